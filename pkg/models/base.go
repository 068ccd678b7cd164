// Package models provides the object model serialized by objectdag.
//
// Any value implementing Object exposes an ordered list of fields: stored
// fields first, then derived (computed) fields. The order is part of the
// content hash, so implementations must return the same order every time.
//
// A field key starting with a single '@' marks its value for detachment:
// the serializer stores it as an independent record and leaves a
// reference in its place.
package models

import "sync"

// Field is one named value of an Object.
type Field struct {
	// Key is the raw property name, before sanitization
	Key string
	// Value is any serializable value: scalar, sequence, map or Object
	Value any
}

// Object is implemented by every type the serializer can decompose.
type Object interface {
	// Fields returns stored fields followed by derived fields
	Fields() []Field
}

// Wire constants shared by the serializer and the loader.
const (
	// TypeKey holds the type tag of an object
	TypeKey = "speckle_type"
	// ReferenceType tags a reference left in place of a detached object
	ReferenceType = "reference"
	// ReferencedIDKey holds the id a reference points to
	ReferencedIDKey = "referencedId"
	// DataChunkType tags a chunk of an oversized sequence
	DataChunkType = "Speckle.Core.Models.DataChunk"
	// DataKey holds the elements of a chunk
	DataKey = "data"
	// BaseType is the default type tag of a Base
	BaseType = "Base"

	// IDKey holds the content id of a record
	IDKey = "id"
	// ClosureKey holds the descendant id to depth map of a record
	ClosureKey = "__closure"
	// TotalChildrenCountKey holds the number of closure entries
	TotalChildrenCountKey = "totalChildrenCount"
)

// IsReservedKey reports whether key is computed by the serializer and
// therefore never taken from an input object.
func IsReservedKey(key string) bool {
	switch key {
	case IDKey, ClosureKey, TotalChildrenCountKey:
		return true
	}
	return false
}

// Base is a dynamic object: an ordered set of stored properties plus
// optional derived properties evaluated at serialization time.
// Base is safe for concurrent use.
type Base struct {
	mu      sync.RWMutex
	keys    []string
	values  map[string]any
	derived []derivedField
}

type derivedField struct {
	key string
	fn  func() any
}

// NewBase creates a Base whose first stored field is the type tag.
func NewBase(speckleType string) *Base {
	b := &Base{values: make(map[string]any)}
	if speckleType != "" {
		b.Set(TypeKey, speckleType)
	}
	return b
}

// Set stores a property. A new key is appended; an existing key keeps
// its position.
func (b *Base) Set(key string, value any) *Base {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.values == nil {
		b.values = make(map[string]any)
	}
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
	return b
}

// Get returns a stored property.
func (b *Base) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Delete removes a stored property.
func (b *Base) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.values[key]; !ok {
		return
	}
	delete(b.values, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

// Keys returns stored property keys in insertion order.
func (b *Base) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.keys...)
}

// Len returns the number of stored properties.
func (b *Base) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.keys)
}

// SpeckleType returns the type tag, or BaseType when unset.
func (b *Base) SpeckleType() string {
	if v, ok := b.Get(TypeKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return BaseType
}

// SetDerived registers a read-only computed property. Derived
// properties enumerate after all stored ones, in registration order.
func (b *Base) SetDerived(key string, fn func() any) *Base {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.derived {
		if b.derived[i].key == key {
			b.derived[i].fn = fn
			return b
		}
	}
	b.derived = append(b.derived, derivedField{key: key, fn: fn})
	return b
}

// Fields implements Object.
func (b *Base) Fields() []Field {
	b.mu.RLock()
	fields := make([]Field, 0, len(b.keys)+len(b.derived))
	for _, k := range b.keys {
		fields = append(fields, Field{Key: k, Value: b.values[k]})
	}
	derived := append([]derivedField(nil), b.derived...)
	b.mu.RUnlock()

	// Evaluated outside the lock: a derived func may read b.
	for _, d := range derived {
		fields = append(fields, Field{Key: d.key, Value: d.fn()})
	}
	return fields
}

// DataChunk wraps a contiguous slice of an oversized sequence.
// The serializer always detaches it into its own record.
type DataChunk struct {
	Data []any
}

// Fields implements Object.
func (c *DataChunk) Fields() []Field {
	return []Field{
		{Key: TypeKey, Value: DataChunkType},
		{Key: DataKey, Value: c.Data},
	}
}
