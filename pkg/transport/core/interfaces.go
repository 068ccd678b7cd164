// Package core defines the contracts between the serializer, the loader
// and storage transports.
package core

import (
	"context"
	"time"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	json "github.com/ajitpratap0/objectdag/pkg/json"
)

// Record is a finished, content-addressed record. It is immutable once
// handed to a transport: transports must not modify Fields or JSON.
type Record struct {
	// ID is the hex digest of the record's canonical JSON without "id"
	ID string
	// Fields holds the sanitized properties followed by id, __closure
	// (when non-empty) and totalChildrenCount
	Fields *json.Map
	// JSON is the canonical encoding of Fields
	JSON []byte
}

// Size returns the encoded size of the record in bytes.
func (r *Record) Size() int {
	return len(r.JSON)
}

// TotalChildrenCount returns the number of descendants in the closure.
func (r *Record) TotalChildrenCount() int {
	v, ok := r.Fields.Get("totalChildrenCount")
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}

// Closure returns the descendant id to depth map, or nil when empty.
func (r *Record) Closure() map[string]int {
	v, ok := r.Fields.Get("__closure")
	if !ok {
		return nil
	}
	m, ok := v.(*json.Map)
	if !ok {
		return nil
	}
	out := make(map[string]int, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if depth, ok := pair.Value.(int); ok {
			out[pair.Key] = depth
		}
	}
	return out
}

// Transport durably persists finished records. Every record produced by
// a serialize call is offered to every configured transport, descendants
// before ancestors. SaveObject must be idempotent for an id already saved.
type Transport interface {
	// Name identifies the transport instance
	Name() string
	// SaveObject persists one record
	SaveObject(ctx context.Context, record *Record) error
}

// Reader is implemented by transports that can return stored records.
type Reader interface {
	// GetObject returns the stored JSON of a record. A missing id yields
	// an error for which errors.IsNotFound is true.
	GetObject(ctx context.Context, id string) ([]byte, error)
}

// Closer is implemented by transports holding connections or files.
type Closer interface {
	Close(ctx context.Context) error
}

// ReadTransport is a Transport that can also read records back.
type ReadTransport interface {
	Transport
	Reader
}

// Factory creates a transport from its configuration.
type Factory func(ctx context.Context, cfg *config.TransportConfig) (Transport, error)

// NotFound builds the error readers return for a missing record.
func NotFound(transport, id string) error {
	return errors.New(errors.ErrorTypeNotFound, "object not found").
		WithDetail("transport", transport).
		WithDetail("id", id)
}

// ValidID reports whether id looks like a content id: 32 lower-case hex
// characters. Transports use it before building paths or keys from ids.
func ValidID(id string) bool {
	if len(id) != 32 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// CloseAll closes every transport that implements Closer and returns the
// first error.
func CloseAll(ctx context.Context, transports []Transport) error {
	var first error
	for _, t := range transports {
		c, ok := t.(Closer)
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil && first == nil {
			first = errors.Wrap(err, errors.ErrorTypeConnection, "failed to close transport").
				WithDetail("transport", t.Name())
		}
	}
	return first
}

// WithWriteTimeout bounds every SaveObject call of t by d. The returned
// transport is a Reader exactly when t is; closing it closes t if t is a
// Closer.
func WithWriteTimeout(t Transport, d time.Duration) Transport {
	if d <= 0 {
		return t
	}
	base := timeoutTransport{Transport: t, timeout: d}
	if r, ok := t.(Reader); ok {
		return &timeoutReadTransport{timeoutTransport: base, reader: r}
	}
	return &base
}

type timeoutTransport struct {
	Transport
	timeout time.Duration
}

func (t *timeoutTransport) SaveObject(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Transport.SaveObject(ctx, rec)
}

func (t *timeoutTransport) Close(ctx context.Context) error {
	if c, ok := t.Transport.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}

type timeoutReadTransport struct {
	timeoutTransport
	reader Reader
}

func (t *timeoutReadTransport) GetObject(ctx context.Context, id string) ([]byte, error) {
	return t.reader.GetObject(ctx, id)
}
