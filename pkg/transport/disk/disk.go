// Package disk stores records as files under a local directory.
//
// Configuration options:
//
//	path    root directory (required)
//	prefix  sub-directory under path (default "objects")
package disk

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/ajitpratap0/objectdag/pkg/compression"
	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/transport/blob"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"github.com/spf13/afero"
)

// TypeName is the registry name of this transport.
const TypeName = "disk"

// DefaultPrefix is the directory records are written under.
const DefaultPrefix = "objects"

func init() {
	registry.Register(TypeName, func(_ context.Context, cfg *config.TransportConfig) (core.Transport, error) {
		root, err := cfg.RequireOption("path")
		if err != nil {
			return nil, err
		}
		comp, err := compression.NewCompressor(compression.FromConfig(cfg.Compression))
		if err != nil {
			return nil, err
		}
		return New(cfg.Name, afero.NewBasePathFs(afero.NewOsFs(), root), cfg.Option("prefix", DefaultPrefix), comp), nil
	})
}

// New creates a disk transport writing to fsys under prefix.
func New(name string, fsys afero.Fs, prefix string, comp compression.Compressor) *blob.Transport {
	return blob.New(name, prefix, &Store{fs: fsys}, comp)
}

// Store is a blob.Store over a filesystem. Writes go to a temporary file
// that is renamed into place, so readers never observe partial objects.
type Store struct {
	fs afero.Fs
}

// NewStore creates a store over fsys.
func NewStore(fsys afero.Fs) *Store {
	return &Store{fs: fsys}
}

// Put implements blob.Store. An existing file is left untouched: its
// name is its content digest.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.fs.Stat(key); err == nil {
		return nil
	}

	dir := filepath.Dir(key)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := afero.TempFile(s.fs, dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := s.fs.Rename(tmpName, key); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	return nil
}

// Get implements blob.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, blob.ErrNotExist
	}
	return data, err
}
