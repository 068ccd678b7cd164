// Package gcs stores records as objects in a Google Cloud Storage bucket
// using the blob layout.
//
// Configuration options:
//
//	bucket            bucket name (required)
//	prefix            object name prefix (default "objects")
//	credentials_file  service account key file; default credentials otherwise
//	endpoint          custom endpoint, used with an emulator
package gcs

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/ajitpratap0/objectdag/pkg/compression"
	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/transport/blob"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// TypeName is the registry name of this transport.
const TypeName = "gcs"

// DefaultPrefix is the object name prefix records are written under.
const DefaultPrefix = "objects"

func init() {
	registry.Register(TypeName, func(ctx context.Context, cfg *config.TransportConfig) (core.Transport, error) {
		return Open(ctx, cfg)
	})
}

// Transport is a blob transport that owns its storage client.
type Transport struct {
	*blob.Transport
	client *storage.Client
}

// Open creates a storage client from cfg.
func Open(ctx context.Context, cfg *config.TransportConfig) (*Transport, error) {
	bucket, err := cfg.RequireOption("bucket")
	if err != nil {
		return nil, err
	}
	comp, err := compression.NewCompressor(compression.FromConfig(cfg.Compression))
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx, ClientOptions(cfg)...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client")
	}
	store := NewStore(client.Bucket(bucket))
	return &Transport{
		Transport: blob.New(cfg.Name, cfg.Option("prefix", DefaultPrefix), store, comp),
		client:    client,
	}, nil
}

// ClientOptions translates transport options into client options.
func ClientOptions(cfg *config.TransportConfig) []option.ClientOption {
	var opts []option.ClientOption
	if file := cfg.Option("credentials_file", ""); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	if endpoint := cfg.Option("endpoint", ""); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	return opts
}

// Close implements core.Closer.
func (t *Transport) Close(_ context.Context) error {
	return t.client.Close()
}

// Store is a blob.Store over one bucket.
type Store struct {
	bucket *storage.BucketHandle
}

// NewStore creates a store over bucket.
func NewStore(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

// Put implements blob.Store. The write is conditional on the object not
// existing; losing that race means the same bytes are already stored.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	w := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil && !isPreconditionFailed(err) {
		return err
	}
	return nil
}

// Get implements blob.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if stderrors.Is(err, storage.ErrObjectNotExist) {
		return nil, blob.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return stderrors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
