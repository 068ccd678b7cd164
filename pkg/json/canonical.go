package json

import (
	"bytes"
	"crypto/md5" //nolint:gosec // content ids are a wire-format digest, not a security boundary
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"github.com/ajitpratap0/objectdag/pkg/errors"
	gojson "github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is the ordered field map every record is built from
type Map = orderedmap.OrderedMap[string, any]

// NewMap creates an empty ordered map
func NewMap() *Map {
	return orderedmap.New[string, any]()
}

// Number is a JSON number literal kept verbatim
type Number = gojson.Number

// Canonical encodes v in canonical form. The returned slice is owned by
// the caller.
func Canonical(v any) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := encode(buf, v); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// ContentID returns the lower-case hex MD5 digest of canonical bytes
func ContentID(canonical []byte) string {
	sum := md5.Sum(canonical) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case string:
		return encodeString(buf, val)
	case Number:
		if _, err := strconv.ParseFloat(string(val), 64); err != nil {
			return unsupported(val, "invalid number literal")
		}
		buf.WriteString(string(val))
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case float32:
		return encodeFloat(buf, val, float64(val))
	case float64:
		return encodeFloat(buf, val, val)
	case *Map:
		return encodeMap(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return unsupported(v, "value is not JSON-representable")
	}
	return nil
}

func encodeMap(buf *bytes.Buffer, m *Map) error {
	if m == nil {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('{')
	first := true
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := encodeString(buf, pair.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := encode(buf, pair.Value); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to encode field").
				WithDetail("key", pair.Key)
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	b, err := gojson.MarshalNoEscape(s)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to encode string")
	}
	buf.Write(b)
	return nil
}

func encodeFloat(buf *bytes.Buffer, v any, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return unsupported(v, "non-finite number")
	}
	b, err := gojson.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "failed to encode number")
	}
	buf.Write(b)
	return nil
}

func unsupported(v any, msg string) error {
	return errors.New(errors.ErrorTypeSerialization, msg).
		WithDetail("type", fmt.Sprintf("%T", v)).
		WithDetail("value", fmt.Sprintf("%v", v))
}
