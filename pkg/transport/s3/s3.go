// Package s3 stores records as objects in an S3 (or S3-compatible) bucket
// using the blob layout.
//
// Configuration options:
//
//	bucket    bucket name (required)
//	region    AWS region (default "us-east-1")
//	prefix    key prefix (default "objects")
//	endpoint  custom endpoint for S3-compatible stores; enables path-style
package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"

	"github.com/ajitpratap0/objectdag/pkg/compression"
	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/transport/blob"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// TypeName is the registry name of this transport.
const TypeName = "s3"

// DefaultPrefix is the key prefix records are written under.
const DefaultPrefix = "objects"

func init() {
	registry.Register(TypeName, func(ctx context.Context, cfg *config.TransportConfig) (core.Transport, error) {
		bucket, err := cfg.RequireOption("bucket")
		if err != nil {
			return nil, err
		}
		comp, err := compression.NewCompressor(compression.FromConfig(cfg.Compression))
		if err != nil {
			return nil, err
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Option("region", "us-east-1")),
		)
		if err != nil {
			return nil, err
		}
		endpoint := cfg.Option("endpoint", "")
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
				o.UsePathStyle = true
			}
		})

		return blob.New(cfg.Name, cfg.Option("prefix", DefaultPrefix), NewStore(client, bucket), comp), nil
	})
}

// Client is the subset of *s3.Client the store uses.
type Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store is a blob.Store over one bucket.
type Store struct {
	client   Client
	uploader *manager.Uploader
	bucket   string
}

// NewStore creates a store writing to bucket.
func NewStore(client Client, bucket string) *Store {
	return &Store{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.Concurrency = 1
		}),
		bucket: bucket,
	}
}

// Put implements blob.Store.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

// Get implements blob.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if stderrors.As(err, &noSuchKey) {
			return nil, blob.ErrNotExist
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
