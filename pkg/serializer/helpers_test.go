package serializer

import (
	"strings"
	"testing"
	"unicode/utf8"

	json "github.com/ajitpratap0/objectdag/pkg/json"
	"github.com/ajitpratap0/objectdag/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key    string
		clean  string
		detach bool
	}{
		{"name", "name", false},
		{"a.b/c", "abc", false},
		{"@bar", "bar", true},
		{"@@foo", "@foo", false},
		{"@@@x", "@@x", false},
		{"@a.b", "ab", true},
		{"x@y", "x@y", false},
		{"./", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clean, detach := SanitizeKey(tt.key)
			assert.Equal(t, tt.clean, clean)
			assert.Equal(t, tt.detach, detach)
		})
	}
}

func TestChunk(t *testing.T) {
	seq := make([]any, 12000)
	for i := range seq {
		seq[i] = i
	}

	chunks := Chunk(seq, ChunkSize)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Data, 5000)
	assert.Len(t, chunks[1].Data, 5000)
	assert.Len(t, chunks[2].Data, 2000)
	assert.Equal(t, 5000, chunks[1].Data[0])
	assert.Equal(t, 11999, chunks[2].Data[1999])

	// appending to a chunk must not bleed into its neighbour
	chunks[0].Data = append(chunks[0].Data, "x")
	assert.Equal(t, 5000, chunks[1].Data[0])
}

func TestChunk_EdgeCases(t *testing.T) {
	assert.Empty(t, Chunk(nil, 10))
	assert.Len(t, Chunk(make([]any, 10), 10), 1)
	assert.Len(t, Chunk(make([]any, 11), 10), 2)
	assert.Len(t, Chunk(make([]any, ChunkSize+1), 0), 2)
}

func TestClosureChain(t *testing.T) {
	root, rootTable := closureChain(nil).push()
	child, childTable := root.push()
	sibling, siblingTable := root.push()
	grand, _ := child.push()

	grand.register("g")
	child.register("c")
	sibling.register("s")

	assert.Equal(t, 3, rootTable.len())
	assert.Equal(t, 1, childTable.len())
	assert.Equal(t, 0, siblingTable.len())

	depths := map[string]int{}
	m := rootTable.toMap()
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		depths[pair.Key] = pair.Value.(int)
	}
	assert.Equal(t, map[string]int{"g": 2, "c": 1, "s": 1}, depths)

	// siblings never see each other's tables
	assert.Len(t, child, 2)
	assert.Len(t, sibling, 2)
	assert.NotSame(t, child[1], sibling[1])
}

func TestClosureTable_KeepsSmallestDepth(t *testing.T) {
	table := newClosureTable()
	table.add("a", 3)
	table.add("b", 1)
	table.add("a", 1)
	table.add("a", 2)

	m := table.toMap()
	a, _ := m.Get("a")
	assert.Equal(t, 1, a)
	assert.Equal(t, "a", m.Oldest().Key)
}

type point struct{ x, y float64 }

func (p point) Fields() []models.Field {
	return []models.Field{{Key: "x", Value: p.x}, {Key: "y", Value: p.y}}
}

type label string

func TestClassify(t *testing.T) {
	var nilBase *models.Base
	var nilMap *json.Map

	tests := []struct {
		name  string
		value any
		kind  valueKind
	}{
		{"nil", nil, kindScalar},
		{"typed nil object", nilBase, kindScalar},
		{"typed nil ordered map", nilMap, kindScalar},
		{"string", "s", kindScalar},
		{"named string", label("l"), kindScalar},
		{"number", json.Number("1.5"), kindScalar},
		{"pointer to int", new(int), kindScalar},
		{"chunk", &models.DataChunk{}, kindChunk},
		{"value object", point{1, 2}, kindObject},
		{"base", models.NewBase("Base"), kindObject},
		{"ordered map", json.NewMap(), kindObject},
		{"string map", map[string]bool{}, kindObject},
		{"int map", map[int]string{}, kindInvalid},
		{"slice", []string{"a"}, kindSequence},
		{"array", [2]int{1, 2}, kindSequence},
		{"struct", struct{}{}, kindInvalid},
		{"func", func() {}, kindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, classify(tt.value).kind)
		})
	}
}

func TestClassify_NormalizesNamedScalars(t *testing.T) {
	assert.Equal(t, "l", classify(label("l")).scalar)

	type count uint16
	assert.Equal(t, uint64(7), classify(count(7)).scalar)
}

func TestDescribe_TruncatesOnRuneBoundary(t *testing.T) {
	typeName, text := describe("a" + strings.Repeat("é", 40))
	assert.Equal(t, "string", typeName)
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, "a"+strings.Repeat("é", 31)+"...", text)

	_, short := describe("short")
	assert.Equal(t, "short", short)

	_, ascii := describe(strings.Repeat("x", 100))
	assert.Equal(t, strings.Repeat("x", 64)+"...", ascii)
}
