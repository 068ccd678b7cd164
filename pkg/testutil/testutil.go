// Package testutil provides testing utilities for objectdag
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// RecordingTransport keeps every saved record in save order, duplicates
// included. It can read records back and can be told to fail.
type RecordingTransport struct {
	name string

	mu     sync.Mutex
	saved  []*core.Record
	byID   map[string]*core.Record
	failOn func(*core.Record) error
	onSave func(*core.Record)
}

// NewRecordingTransport creates an empty recording transport.
func NewRecordingTransport(name string) *RecordingTransport {
	return &RecordingTransport{name: name, byID: make(map[string]*core.Record)}
}

// FailWhen makes SaveObject return the error produced by fn, when non-nil.
func (r *RecordingTransport) FailWhen(fn func(*core.Record) error) *RecordingTransport {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOn = fn
	return r
}

// OnSave registers a hook called after each successful save.
func (r *RecordingTransport) OnSave(fn func(*core.Record)) *RecordingTransport {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSave = fn
	return r
}

// Name implements core.Transport.
func (r *RecordingTransport) Name() string {
	return r.name
}

// SaveObject implements core.Transport.
func (r *RecordingTransport) SaveObject(_ context.Context, rec *core.Record) error {
	r.mu.Lock()
	failOn, onSave := r.failOn, r.onSave
	r.mu.Unlock()

	if failOn != nil {
		if err := failOn(rec); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.saved = append(r.saved, rec)
	r.byID[rec.ID] = rec
	r.mu.Unlock()

	if onSave != nil {
		onSave(rec)
	}
	return nil
}

// GetObject implements core.Reader.
func (r *RecordingTransport) GetObject(_ context.Context, id string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, core.NotFound(r.name, id)
	}
	return rec.JSON, nil
}

// Saved returns the records in save order.
func (r *RecordingTransport) Saved() []*core.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*core.Record(nil), r.saved...)
}

// IDs returns the saved ids in save order.
func (r *RecordingTransport) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.saved))
	for i, rec := range r.saved {
		ids[i] = rec.ID
	}
	return ids
}

// Get returns a saved record by id.
func (r *RecordingTransport) Get(id string) (*core.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	return rec, ok
}

// ErrInjected is returned by transports built with FailAfter.
var ErrInjected = errors.New(errors.ErrorTypeConnection, "injected failure")

// FailAfter returns a FailWhen predicate that lets n saves succeed and
// fails every later one.
func FailAfter(n int) func(*core.Record) error {
	var mu sync.Mutex
	count := 0
	return func(*core.Record) error {
		mu.Lock()
		defer mu.Unlock()
		count++
		if count > n {
			return ErrInjected
		}
		return nil
	}
}
