package serializer

import (
	"fmt"
	"reflect"
	"sort"
	"unicode/utf8"

	json "github.com/ajitpratap0/objectdag/pkg/json"
	"github.com/ajitpratap0/objectdag/pkg/models"
)

// valueKind is the closed set of shapes a graph value can take.
type valueKind int

const (
	kindInvalid valueKind = iota
	kindScalar
	kindSequence
	kindChunk
	kindObject
)

func (k valueKind) String() string {
	switch k {
	case kindScalar:
		return "scalar"
	case kindSequence:
		return "sequence"
	case kindChunk:
		return "chunk"
	case kindObject:
		return "object"
	default:
		return "invalid"
	}
}

// value is a graph value resolved to its kind. Exactly one of scalar, seq
// or fields is meaningful, depending on kind.
type value struct {
	kind   valueKind
	scalar any
	seq    []any
	fields []models.Field
}

// classify resolves v once. Named scalar types are normalized to their
// underlying kind, typed nil pointers become null, and Go maps with
// string keys enumerate in sorted key order.
func classify(v any) value {
	switch val := v.(type) {
	case nil:
		return value{kind: kindScalar}
	case bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return value{kind: kindScalar, scalar: val}
	case *models.DataChunk:
		if val == nil {
			return value{kind: kindScalar}
		}
		return value{kind: kindChunk, fields: val.Fields()}
	case *json.Map:
		if val == nil {
			return value{kind: kindScalar}
		}
		return value{kind: kindObject, fields: mapFields(val)}
	case []any:
		return value{kind: kindSequence, seq: val}
	case models.Object:
		if isNilPointer(val) {
			return value{kind: kindScalar}
		}
		return value{kind: kindObject, fields: val.Fields()}
	}
	return classifyReflect(reflect.ValueOf(v))
}

func classifyReflect(rv reflect.Value) value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return value{kind: kindScalar}
		}
		return classify(rv.Elem().Interface())
	case reflect.Bool:
		return value{kind: kindScalar, scalar: rv.Bool()}
	case reflect.String:
		return value{kind: kindScalar, scalar: rv.String()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value{kind: kindScalar, scalar: rv.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return value{kind: kindScalar, scalar: rv.Uint()}
	case reflect.Float32, reflect.Float64:
		return value{kind: kindScalar, scalar: rv.Float()}
	case reflect.Slice, reflect.Array:
		seq := make([]any, rv.Len())
		for i := range seq {
			seq[i] = rv.Index(i).Interface()
		}
		return value{kind: kindSequence, seq: seq}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value{kind: kindInvalid}
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		fields := make([]models.Field, len(keys))
		for i, k := range keys {
			fields[i] = models.Field{Key: k.String(), Value: rv.MapIndex(k).Interface()}
		}
		return value{kind: kindObject, fields: fields}
	}
	return value{kind: kindInvalid}
}

func mapFields(m *json.Map) []models.Field {
	fields := make([]models.Field, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		fields = append(fields, models.Field{Key: pair.Key, Value: pair.Value})
	}
	return fields
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// describe renders an offending value for error details.
func describe(v any) (typeName, text string) {
	text = fmt.Sprintf("%v", v)
	if len(text) > 64 {
		cut := 64
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return fmt.Sprintf("%T", v), text
}
