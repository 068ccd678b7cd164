package serializer

import (
	"bytes"

	json "github.com/ajitpratap0/objectdag/pkg/json"
	"github.com/ajitpratap0/objectdag/pkg/models"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
)

// buildRecord finishes a decomposed object. The id is the digest of
// props followed by __closure (when non-empty) and totalChildrenCount;
// the stored form has id inserted right after props.
func buildRecord(props *json.Map, closure *closureTable) (*core.Record, error) {
	tail := json.NewMap()
	if closure.len() > 0 {
		tail.Set(models.ClosureKey, closure.toMap())
	}
	tail.Set(models.TotalChildrenCountKey, closure.len())

	propsJSON, err := json.Canonical(props)
	if err != nil {
		return nil, err
	}
	tailJSON, err := json.Canonical(tail)
	if err != nil {
		return nil, err
	}
	propsBody := propsJSON[1 : len(propsJSON)-1]
	tailBody := tailJSON[1 : len(tailJSON)-1]

	var hashed bytes.Buffer
	hashed.Grow(len(propsJSON) + len(tailJSON))
	hashed.WriteByte('{')
	if len(propsBody) > 0 {
		hashed.Write(propsBody)
		hashed.WriteByte(',')
	}
	hashed.Write(tailBody)
	hashed.WriteByte('}')

	id := json.ContentID(hashed.Bytes())

	var stored bytes.Buffer
	stored.Grow(hashed.Len() + len(id) + 8)
	stored.WriteByte('{')
	if len(propsBody) > 0 {
		stored.Write(propsBody)
		stored.WriteByte(',')
	}
	stored.WriteString(`"id":"`)
	stored.WriteString(id)
	stored.WriteString(`",`)
	stored.Write(tailBody)
	stored.WriteByte('}')

	fields := json.NewMap()
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		fields.Set(pair.Key, pair.Value)
	}
	fields.Set(models.IDKey, id)
	for pair := tail.Oldest(); pair != nil; pair = pair.Next() {
		fields.Set(pair.Key, pair.Value)
	}

	return &core.Record{ID: id, Fields: fields, JSON: stored.Bytes()}, nil
}
