package json

import (
	"math"
	"testing"

	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical_PreservesInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set("zeta", 1)
	m.Set("alpha", "a")
	m.Set("mid", []any{true, nil, 2.5})

	out, err := Canonical(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":"a","mid":[true,null,2.5]}`, string(out))
}

func TestCanonical_NoHTMLEscaping(t *testing.T) {
	m := NewMap()
	m.Set("html", `<a href="x">&</a>`)

	out, err := Canonical(m)
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<a href=\"x\">&</a>"}`, string(out))
}

func TestCanonical_NestedMaps(t *testing.T) {
	inner := NewMap()
	inner.Set("b", int64(-3))
	inner.Set("a", uint8(7))

	outer := NewMap()
	outer.Set("inner", inner)
	outer.Set("empty", NewMap())
	outer.Set("list", []any{})

	out, err := Canonical(outer)
	require.NoError(t, err)
	assert.Equal(t, `{"inner":{"b":-3,"a":7},"empty":{},"list":[]}`, string(out))
}

func TestCanonical_Numbers(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"int", 42, "42"},
		{"negative", int32(-1), "-1"},
		{"float", 0.1, "0.1"},
		{"whole float", 3.0, "3"},
		{"float32", float32(1.5), "1.5"},
		{"number literal", Number("1e3"), "1e3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Canonical(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestCanonical_RejectsUnsupported(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"bad number literal", Number("twelve")},
		{"struct", struct{ A int }{1}},
		{"plain map", map[string]any{"a": 1}},
		{"func", func() {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Canonical(tt.value)
			require.Error(t, err)
			assert.True(t, errors.IsSerializationError(err))
		})
	}
}

func TestCanonical_ErrorNamesKey(t *testing.T) {
	m := NewMap()
	m.Set("bad", math.Inf(-1))

	_, err := Canonical(m)
	require.Error(t, err)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "bad", e.Details["key"])
}

func TestContentID(t *testing.T) {
	// md5("") and md5("{}") are fixed points of the wire format.
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", ContentID(nil))
	assert.Equal(t, "99914b932bd37a50b983c5e7c90ae93b", ContentID([]byte("{}")))
	assert.Len(t, ContentID([]byte(`{"a":1}`)), 32)
}
