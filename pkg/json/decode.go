package json

import (
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/buger/jsonparser"
)

// DecodeOrdered decodes a JSON object into an ordered map. Nested objects
// are ordered maps too, arrays become []any and numbers stay Number so
// re-encoding a decoded record reproduces its canonical bytes.
func DecodeOrdered(data []byte) (*Map, error) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid JSON document")
	}
	if dataType != jsonparser.Object {
		return nil, errors.New(errors.ErrorTypeData, "JSON document is not an object").
			WithDetail("kind", dataType.String())
	}
	return decodeObject(value)
}

func decodeObject(data []byte) (*Map, error) {
	m := NewMap()
	err := jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		v, err := decodeValue(value, dataType)
		if err != nil {
			return err
		}
		m.Set(k, v)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode object")
	}
	return m, nil
}

func decodeArray(data []byte) ([]any, error) {
	out := make([]any, 0)
	var decodeErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if decodeErr != nil {
			return
		}
		if err != nil {
			decodeErr = err
			return
		}
		v, err := decodeValue(value, dataType)
		if err != nil {
			decodeErr = err
			return
		}
		out = append(out, v)
	})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode array")
	}
	return out, nil
}

func decodeValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.Object:
		return decodeObject(value)
	case jsonparser.Array:
		return decodeArray(value)
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return Number(string(value)), nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	default:
		return nil, errors.New(errors.ErrorTypeData, "unexpected JSON value").
			WithDetail("kind", dataType.String())
	}
}
