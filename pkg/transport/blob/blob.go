// Package blob implements the record transport shared by object stores
// (local disk, S3, GCS). Records are stored one object per id under
//
//	<prefix>/<id[0:2]>/<id>.json[.ext]
//
// where ext names the compression algorithm. Reads try the configured
// algorithm first and fall back to every other known extension, so a
// prefix written with one compression setting stays readable after the
// setting changes.
package blob

import (
	"context"
	stderrors "errors"
	"path"

	"github.com/ajitpratap0/objectdag/pkg/compression"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/logger"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"go.uber.org/zap"
)

// ErrNotExist is returned by a Store for a missing key.
var ErrNotExist = stderrors.New("blob does not exist")

// Store is a flat key/value object store.
type Store interface {
	// Put writes data under key, replacing any previous object
	Put(ctx context.Context, key string, data []byte) error
	// Get reads the object under key, or returns ErrNotExist
	Get(ctx context.Context, key string) ([]byte, error)
}

// Transport adapts a Store to core.Transport.
type Transport struct {
	name       string
	prefix     string
	store      Store
	compressor compression.Compressor
	readers    []compression.Compressor
	logger     *zap.Logger
}

// New creates a blob transport. A nil compressor stores plain JSON.
func New(name, prefix string, store Store, compressor compression.Compressor) *Transport {
	if compressor == nil {
		compressor, _ = compression.NewCompressor(nil)
	}
	return &Transport{
		name:       name,
		prefix:     prefix,
		store:      store,
		compressor: compressor,
		readers:    readers(compressor),
		logger:     logger.Get().With(zap.String("transport", name)),
	}
}

// Key returns the object key of id for the given compression extension.
func Key(prefix, id, ext string) string {
	shard := id
	if len(id) >= 2 {
		shard = id[:2]
	}
	return path.Join(prefix, shard, id+".json"+ext)
}

// Name implements core.Transport.
func (t *Transport) Name() string {
	return t.name
}

// Store returns the underlying store.
func (t *Transport) Store() Store {
	return t.store
}

// SaveObject implements core.Transport.
func (t *Transport) SaveObject(ctx context.Context, rec *core.Record) error {
	if !core.ValidID(rec.ID) {
		return errors.New(errors.ErrorTypeValidation, "invalid record id").WithDetail("id", rec.ID)
	}
	data, err := t.compressor.Compress(rec.JSON)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress record").
			WithDetail("algorithm", string(t.compressor.Algorithm()))
	}

	key := Key(t.prefix, rec.ID, t.compressor.Extension())
	if err := t.store.Put(ctx, key, data); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to write object").
			WithDetail("key", key)
	}
	t.logger.Debug("object written", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// GetObject implements core.Reader.
func (t *Transport) GetObject(ctx context.Context, id string) ([]byte, error) {
	if !core.ValidID(id) {
		return nil, core.NotFound(t.name, id)
	}
	for _, c := range t.readers {
		key := Key(t.prefix, id, c.Extension())
		data, err := t.store.Get(ctx, key)
		if stderrors.Is(err, ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read object").
				WithDetail("key", key)
		}
		return c.Decompress(data)
	}
	return nil, core.NotFound(t.name, id)
}

// readers returns the configured compressor followed by one compressor
// per other known algorithm.
func readers(configured compression.Compressor) []compression.Compressor {
	out := []compression.Compressor{configured}
	for _, a := range compression.Algorithms {
		if a == configured.Algorithm() {
			continue
		}
		if c, err := compression.NewCompressor(&compression.Config{Algorithm: a, Level: compression.Default}); err == nil {
			out = append(out, c)
		}
	}
	return out
}
