// Package serializer decomposes object graphs into content-addressed
// records.
//
// Serialize walks an object depth first. Every value stored under a key
// with a single leading '@', and every chunk of an oversized sequence,
// becomes a record of its own and is replaced in its parent by a
// reference. Everything else folds into the parent's canonical JSON.
// A record's id is the hex MD5 of its canonical JSON without the id field,
// so identical sub-graphs always produce identical records.
//
//	s := serializer.New([]core.Transport{memory.New("cache")})
//	root, err := s.Serialize(ctx, obj)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(root.ID)
//
// Records are saved child before parent, to every transport in order. The
// first failure aborts the call; records saved before it stay saved.
package serializer

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/ajitpratap0/objectdag/pkg/errors"
	json "github.com/ajitpratap0/objectdag/pkg/json"
	"github.com/ajitpratap0/objectdag/pkg/logger"
	"github.com/ajitpratap0/objectdag/pkg/metrics"
	"github.com/ajitpratap0/objectdag/pkg/models"
	"github.com/ajitpratap0/objectdag/pkg/observability"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Serializer turns object graphs into records. It holds no per-call state
// and is safe for concurrent use when its transports are.
type Serializer struct {
	transports []core.Transport
	logger     *zap.Logger
	metrics    *metrics.Collector
	tracer     trace.Tracer
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithLogger sets the logger. The global logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(s *Serializer) {
		s.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Serializer) {
		s.metrics = c
	}
}

// WithTracer sets the tracer. The global tracer is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(s *Serializer) {
		s.tracer = t
	}
}

// New creates a Serializer saving to transports. An empty transport list
// is valid: records are built and returned but stored nowhere.
func New(transports []core.Transport, opts ...Option) *Serializer {
	s := &Serializer{
		transports: append([]core.Transport(nil), transports...),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.tracer == nil {
		s.tracer = observability.Tracer()
	}
	return s
}

// Transports returns the configured transports.
func (s *Serializer) Transports() []core.Transport {
	return append([]core.Transport(nil), s.transports...)
}

// Serialize decomposes obj and saves every resulting record. It returns
// the root record. obj must be an object: a models.Object, an ordered map
// or a Go map with string keys.
func (s *Serializer) Serialize(ctx context.Context, obj any) (*core.Record, error) {
	if _, ok := ctx.Value(logger.OperationIDKey).(string); !ok {
		ctx = logger.WithOperation(ctx, uuid.NewString())
	}
	ctx, span := s.tracer.Start(ctx, "serializer.Serialize")

	r := &run{s: s, log: logger.FromContext(ctx, s.logger)}
	root, err := r.serializeRoot(ctx, obj)
	if err != nil {
		r.log.Error("serialization failed",
			zap.Int("records_saved", r.records),
			zap.Error(err))
		observability.EndSpan(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("record.id", root.ID),
		attribute.Int("records", r.records),
	)
	observability.EndSpan(span, nil)

	r.log.Info("object serialized",
		zap.String("id", root.ID),
		zap.Int("records", r.records),
		zap.Int("total_children", root.TotalChildrenCount()))
	return root, nil
}

// run carries the bookkeeping of one Serialize call.
type run struct {
	s       *Serializer
	log     *zap.Logger
	records int
}

func (r *run) serializeRoot(ctx context.Context, obj any) (*core.Record, error) {
	v := classify(obj)
	if v.kind != kindObject && v.kind != kindChunk {
		typeName, text := describe(obj)
		return nil, errors.New(errors.ErrorTypeSerialization, "root value is not an object").
			WithDetail("type", typeName).
			WithDetail("value", text).
			WithDetail("kind", v.kind.String())
	}
	return r.flatten(ctx, v.fields, nil, metrics.KindRoot)
}

// flatten turns one object into a record: it pre-serializes every field
// under a fresh closure table, builds the record, registers its id with
// every ancestor and saves it. Fields whose sanitized key is computed by
// the record builder are skipped.
func (r *run) flatten(ctx context.Context, fields []models.Field, ancestors closureChain, kind string) (*core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "serialization canceled")
	}

	chain, own := ancestors.push()

	props := json.NewMap()
	for _, f := range fields {
		key, detach := SanitizeKey(f.Key)
		if models.IsReservedKey(key) {
			continue
		}
		v, err := r.preserialize(ctx, f.Value, chain, detach)
		if err != nil {
			return nil, withPath(err, key)
		}
		props.Set(key, v)
	}

	rec, err := buildRecord(props, own)
	if err != nil {
		return nil, err
	}
	chain.register(rec.ID)

	if err := r.save(ctx, rec); err != nil {
		return nil, err
	}
	r.records++
	r.s.metrics.RecordProduced(kind, rec.Size())
	r.log.Debug("record built",
		zap.String("id", rec.ID),
		zap.String("kind", kind),
		zap.Int("bytes", rec.Size()),
		zap.Int("children", own.len()))
	return rec, nil
}

// preserialize converts one value into its stored form.
func (r *run) preserialize(ctx context.Context, v any, chain closureChain, detach bool) (any, error) {
	val := classify(v)
	switch val.kind {
	case kindScalar:
		// Scalars stay inline even under a detach marker.
		return val.scalar, nil

	case kindChunk:
		return r.detach(ctx, chunkFields(val.fields, detach), chain, metrics.KindChunk)

	case kindObject:
		if detach {
			return r.detach(ctx, val.fields, chain, metrics.KindObject)
		}
		return r.inline(ctx, val.fields, chain)

	case kindSequence:
		if len(val.seq) > ChunkSize {
			chunks := Chunk(val.seq, ChunkSize)
			seq := make([]any, len(chunks))
			for i, c := range chunks {
				seq[i] = c
			}
			return r.preserialize(ctx, seq, chain, detach)
		}
		out := make([]any, len(val.seq))
		for i, elem := range val.seq {
			pv, err := r.preserialize(ctx, elem, chain, detach)
			if err != nil {
				return nil, withPath(err, "["+strconv.Itoa(i)+"]")
			}
			out[i] = pv
		}
		return out, nil
	}

	typeName, text := describe(v)
	return nil, errors.New(errors.ErrorTypeSerialization, "value is not serializable").
		WithDetail("type", typeName).
		WithDetail("value", text)
}

// detach flattens fields into their own record and returns a reference.
func (r *run) detach(ctx context.Context, fields []models.Field, chain closureChain, kind string) (any, error) {
	rec, err := r.flatten(ctx, fields, chain, kind)
	if err != nil {
		return nil, err
	}
	return newReference(rec.ID), nil
}

// chunkFields carries a detach marker from a chunked sequence onto the
// chunk's data, so elements are stored the same way whether or not the
// sequence was split.
func chunkFields(fields []models.Field, detach bool) []models.Field {
	if !detach {
		return fields
	}
	out := make([]models.Field, len(fields))
	for i, f := range fields {
		if f.Key == models.DataKey {
			f.Key = "@" + models.DataKey
		}
		out[i] = f
	}
	return out
}

// inline folds a nested object into the enclosing record. Detach markers
// inside it are honoured and count as children of the enclosing record.
func (r *run) inline(ctx context.Context, fields []models.Field, chain closureChain) (any, error) {
	out := json.NewMap()
	for _, f := range fields {
		key, detach := SanitizeKey(f.Key)
		v, err := r.preserialize(ctx, f.Value, chain, detach)
		if err != nil {
			return nil, withPath(err, key)
		}
		out.Set(key, v)
	}
	return out, nil
}

// save offers rec to every transport in order and stops at the first
// failure.
func (r *run) save(ctx context.Context, rec *core.Record) error {
	for _, t := range r.s.transports {
		timer := metrics.NewTimer()
		err := t.SaveObject(ctx, rec)
		r.s.metrics.TransportSave(t.Name(), timer.Stop(), err)
		observability.SaveEvent(ctx, t.Name(), rec.ID, err)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeStorage, "failed to save record").
				WithDetail("transport", t.Name()).
				WithDetail("id", rec.ID)
		}
	}
	return nil
}

func newReference(id string) *json.Map {
	ref := json.NewMap()
	ref.Set(models.TypeKey, models.ReferenceType)
	ref.Set(models.ReferencedIDKey, id)
	return ref
}

// withPath prefixes the location of a serialization failure with segment.
func withPath(err error, segment string) error {
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Type != errors.ErrorTypeSerialization {
		return err
	}
	if p, ok := e.Details["path"].(string); ok && p != "" {
		if strings.HasPrefix(p, "[") {
			segment += p
		} else {
			segment += "." + p
		}
	}
	e.WithDetail("path", segment)
	return err
}
