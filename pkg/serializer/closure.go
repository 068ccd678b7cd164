package serializer

import (
	json "github.com/ajitpratap0/objectdag/pkg/json"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// closureTable maps descendant record ids to their depth below the owning
// object. Insertion order is kept so __closure encodes deterministically.
type closureTable struct {
	entries *orderedmap.OrderedMap[string, int]
}

func newClosureTable() *closureTable {
	return &closureTable{entries: orderedmap.New[string, int]()}
}

// add records id at depth. An id already present keeps the smaller depth.
func (t *closureTable) add(id string, depth int) {
	if current, ok := t.entries.Get(id); ok && current <= depth {
		return
	}
	t.entries.Set(id, depth)
}

func (t *closureTable) len() int {
	return t.entries.Len()
}

// toMap renders the table as the __closure field value.
func (t *closureTable) toMap() *json.Map {
	m := json.NewMap()
	for pair := t.entries.Oldest(); pair != nil; pair = pair.Next() {
		m.Set(pair.Key, pair.Value)
	}
	return m
}

// closureChain holds the tables of every object on the current recursion
// path, outermost first. Tables are shared with true ancestors; the slice
// itself is never shared between siblings.
type closureChain []*closureTable

// push returns a new chain ending in a fresh table for the object about to
// be flattened.
func (c closureChain) push() (closureChain, *closureTable) {
	own := newClosureTable()
	next := make(closureChain, len(c), len(c)+1)
	copy(next, c)
	return append(next, own), own
}

// register records id in every table of the chain except the last, which
// belongs to the object that owns id. The table directly above gets depth
// 1, the one above that depth 2, and so on.
func (c closureChain) register(id string) {
	own := len(c) - 1
	for i := 0; i < own; i++ {
		c[i].add(id, own-i)
	}
}
