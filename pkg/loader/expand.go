package loader

import (
	json "github.com/ajitpratap0/objectdag/pkg/json"
	"github.com/ajitpratap0/objectdag/pkg/models"
)

// ToMap converts a loaded graph into nested ordered maps, keeping the
// restored key names. Serializing the result yields the same ids as
// serializing b.
func ToMap(b *models.Base) *json.Map {
	m := json.NewMap()
	for _, f := range b.Fields() {
		m.Set(f.Key, toValue(f.Value))
	}
	return m
}

func toValue(v any) any {
	switch t := v.(type) {
	case *models.Base:
		return ToMap(t)
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = toValue(elem)
		}
		return out
	}
	return v
}
