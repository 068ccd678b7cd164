// Package memory provides an in-process transport, used as a cache in
// front of slower transports and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
)

// TypeName is the registry name of this transport.
const TypeName = "memory"

func init() {
	registry.Register(TypeName, func(_ context.Context, cfg *config.TransportConfig) (core.Transport, error) {
		return New(cfg.Name), nil
	})
}

// Transport keeps records in a map keyed by id.
type Transport struct {
	name    string
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates an empty memory transport.
func New(name string) *Transport {
	return &Transport{name: name, objects: make(map[string][]byte)}
}

// Name implements core.Transport.
func (t *Transport) Name() string {
	return t.name
}

// SaveObject implements core.Transport. Saving a known id is a no-op.
func (t *Transport) SaveObject(ctx context.Context, rec *core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.objects[rec.ID]; !ok {
		t.objects[rec.ID] = rec.JSON
	}
	return nil
}

// GetObject implements core.Reader.
func (t *Transport) GetObject(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	data, ok := t.objects[id]
	if !ok {
		return nil, core.NotFound(t.name, id)
	}
	return data, nil
}

// Has reports whether id has been saved.
func (t *Transport) Has(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.objects[id]
	return ok
}

// Len returns the number of distinct records held.
func (t *Transport) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.objects)
}
