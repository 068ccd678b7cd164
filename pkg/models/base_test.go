package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBase(t *testing.T) {
	b := NewBase("Objects.Geometry.Point")
	assert.Equal(t, []string{TypeKey}, b.Keys())
	assert.Equal(t, "Objects.Geometry.Point", b.SpeckleType())

	untyped := NewBase("")
	assert.Equal(t, 0, untyped.Len())
	assert.Equal(t, BaseType, untyped.SpeckleType())
}

func TestBase_SetKeepsPosition(t *testing.T) {
	b := NewBase("").Set("a", 1).Set("b", 2).Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, b.Keys())
	v, ok := b.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestBase_Delete(t *testing.T) {
	b := NewBase("").Set("a", 1).Set("b", 2).Set("c", 3)
	b.Delete("b")
	b.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, b.Keys())
	_, ok := b.Get("b")
	assert.False(t, ok)
}

func TestBase_FieldsOrder(t *testing.T) {
	b := NewBase("Wall").Set("height", 3)
	b.SetDerived("area", func() any { return 12 })
	b.Set("width", 4)
	b.SetDerived("volume", func() any { return 24 })

	fields := b.Fields()
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{TypeKey, "height", "width", "area", "volume"}, keys)
	assert.Equal(t, 12, fields[3].Value)
}

func TestBase_DerivedReadsBase(t *testing.T) {
	b := NewBase("").Set("n", 2)
	b.SetDerived("double", func() any {
		v, _ := b.Get("n")
		return v.(int) * 2
	})
	b.SetDerived("double", func() any {
		v, _ := b.Get("n")
		return v.(int) * 20
	})

	fields := b.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, 40, fields[1].Value)
}

func TestBase_ConcurrentAccess(t *testing.T) {
	b := NewBase("")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Set("k", j)
				_ = b.Fields()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, b.Len())
}

func TestDataChunk_Fields(t *testing.T) {
	c := &DataChunk{Data: []any{1, 2}}
	fields := c.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, Field{Key: TypeKey, Value: DataChunkType}, fields[0])
	assert.Equal(t, DataKey, fields[1].Key)
}

func TestIsReservedKey(t *testing.T) {
	for _, k := range []string{IDKey, ClosureKey, TotalChildrenCountKey} {
		assert.True(t, IsReservedKey(k), k)
	}
	for _, k := range []string{TypeKey, ReferencedIDKey, "name"} {
		assert.False(t, IsReservedKey(k), k)
	}
}
