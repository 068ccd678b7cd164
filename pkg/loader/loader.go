// Package loader rebuilds object graphs from stored records.
//
// Load fetches a record and every record it references and returns the
// root as a *models.Base. Properties that held references come back under
// their detach key ("@name"), and sequences that were split into chunks
// come back whole, so serializing a loaded graph reproduces its ids.
package loader

import (
	"context"
	"strings"

	"github.com/ajitpratap0/objectdag/pkg/errors"
	json "github.com/ajitpratap0/objectdag/pkg/json"
	"github.com/ajitpratap0/objectdag/pkg/logger"
	"github.com/ajitpratap0/objectdag/pkg/models"
	"github.com/ajitpratap0/objectdag/pkg/observability"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Loader reads graphs from one reader.
type Loader struct {
	reader core.Reader
	logger *zap.Logger
	tracer trace.Tracer
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(ld *Loader) {
		ld.tracer = t
	}
}

// New creates a Loader over r.
func New(r core.Reader, opts ...Option) *Loader {
	ld := &Loader{reader: r}
	for _, opt := range opts {
		opt(ld)
	}
	if ld.logger == nil {
		ld.logger = logger.Get()
	}
	if ld.tracer == nil {
		ld.tracer = observability.Tracer()
	}
	return ld
}

// Load is shorthand for New(r).Load(ctx, id).
func Load(ctx context.Context, r core.Reader, id string) (*models.Base, error) {
	return New(r).Load(ctx, id)
}

// Load returns the object stored under id with all references resolved.
func (ld *Loader) Load(ctx context.Context, id string) (*models.Base, error) {
	if _, ok := ctx.Value(logger.OperationIDKey).(string); !ok {
		ctx = logger.WithOperation(ctx, uuid.NewString())
	}
	ctx, span := ld.tracer.Start(ctx, "loader.Load", trace.WithAttributes(attribute.String("record.id", id)))

	l := &load{
		ld:      ld,
		log:     logger.FromContext(ctx, ld.logger),
		raw:     make(map[string]*json.Map),
		objects: make(map[string]*models.Base),
	}
	obj, err := l.object(ctx, id)
	if err != nil {
		l.log.Error("load failed", zap.String("id", id), zap.Error(err))
		observability.EndSpan(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("records", len(l.raw)))
	observability.EndSpan(span, nil)
	l.log.Info("object loaded", zap.String("id", id), zap.Int("records", len(l.raw)))
	return obj, nil
}

// load carries the state of one Load call. Records shared by several
// parents are fetched and restored once.
type load struct {
	ld      *Loader
	log     *zap.Logger
	raw     map[string]*json.Map
	objects map[string]*models.Base
}

// record returns the decoded record id.
func (l *load) record(ctx context.Context, id string) (*json.Map, error) {
	if m, ok := l.raw[id]; ok {
		return m, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "load canceled")
	}
	data, err := l.ld.reader.GetObject(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := json.DecodeOrdered(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode record").WithDetail("id", id)
	}
	l.raw[id] = m
	l.log.Debug("record fetched", zap.String("id", id), zap.Int("bytes", len(data)))
	return m, nil
}

// object restores record id as a Base, dropping the serializer's own
// fields.
func (l *load) object(ctx context.Context, id string) (*models.Base, error) {
	if b, ok := l.objects[id]; ok {
		return b, nil
	}
	m, err := l.record(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := l.fields(ctx, m, true)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to restore record").WithDetail("id", id)
	}
	l.objects[id] = b
	return b, nil
}

// fields restores the properties of m. Reserved keys are dropped from
// records only; nested objects keep them.
func (l *load) fields(ctx context.Context, m *json.Map, record bool) (*models.Base, error) {
	b := models.NewBase("")
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if record && models.IsReservedKey(pair.Key) {
			continue
		}
		v, detached, err := l.value(ctx, pair.Value)
		if err != nil {
			return nil, err
		}
		b.Set(restoreKey(pair.Key, detached), v)
	}
	return b, nil
}

// value restores one stored value and reports whether it held a
// reference to a detached object.
func (l *load) value(ctx context.Context, v any) (any, bool, error) {
	switch t := v.(type) {
	case *json.Map:
		if id, ok := referenceID(t); ok {
			obj, err := l.object(ctx, id)
			return obj, true, err
		}
		obj, err := l.fields(ctx, t, false)
		return obj, false, err

	case []any:
		chunks, err := l.chunks(ctx, t)
		if err != nil {
			return nil, false, err
		}
		if chunks != nil {
			return l.sequence(ctx, chunks)
		}
		return l.sequence(ctx, t)
	}
	return v, false, nil
}

func (l *load) sequence(ctx context.Context, seq []any) (any, bool, error) {
	out := make([]any, len(seq))
	detached := false
	for i, elem := range seq {
		ev, d, err := l.value(ctx, elem)
		if err != nil {
			return nil, false, err
		}
		out[i] = ev
		detached = detached || d
	}
	return out, detached, nil
}

// chunks returns the concatenated stored elements of seq when seq is a
// non-empty list of references to chunk records, and nil otherwise.
func (l *load) chunks(ctx context.Context, seq []any) ([]any, error) {
	if len(seq) == 0 {
		return nil, nil
	}
	ids := make([]string, len(seq))
	for i, elem := range seq {
		m, ok := elem.(*json.Map)
		if !ok {
			return nil, nil
		}
		id, ok := referenceID(m)
		if !ok {
			return nil, nil
		}
		ids[i] = id
	}

	var out []any
	for _, id := range ids {
		m, err := l.record(ctx, id)
		if err != nil {
			return nil, err
		}
		if typ, _ := m.Get(models.TypeKey); typ != models.DataChunkType {
			return nil, nil
		}
		data, ok := m.Get(models.DataKey)
		elems, isSeq := data.([]any)
		if !ok || !isSeq {
			return nil, errors.New(errors.ErrorTypeData, "chunk record has no data").WithDetail("id", id)
		}
		out = append(out, elems...)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func referenceID(m *json.Map) (string, bool) {
	if m.Len() != 2 {
		return "", false
	}
	typ, _ := m.Get(models.TypeKey)
	if typ != models.ReferenceType {
		return "", false
	}
	id, _ := m.Get(models.ReferencedIDKey)
	s, ok := id.(string)
	return s, ok
}

// restoreKey returns the property name that sanitizes back to key with
// the same detach flag.
func restoreKey(key string, detached bool) string {
	if detached || strings.HasPrefix(key, "@") {
		return "@" + key
	}
	return key
}
