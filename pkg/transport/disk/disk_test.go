package disk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ajitpratap0/objectdag/pkg/compression"
	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/testutil"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestDiskTransport_OsFs(t *testing.T) {
	suite.Run(t, &testutil.TransportSuite{New: func(t *testing.T) core.ReadTransport {
		return New("disk", afero.NewBasePathFs(afero.NewOsFs(), t.TempDir()), DefaultPrefix, nil)
	}})
}

func TestDiskTransport_MemFs(t *testing.T) {
	suite.Run(t, &testutil.TransportSuite{New: func(*testing.T) core.ReadTransport {
		return New("disk", afero.NewMemMapFs(), DefaultPrefix, nil)
	}})
}

func TestDiskTransport_FromRegistry(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	dir := t.TempDir()
	cfg := config.NewTransportConfig("local", TypeName)
	cfg.Options["path"] = dir
	cfg.Compression.Algorithm = "snappy"

	tr, err := registry.Create(ctx, cfg)
	require.NoError(t, err)

	rec := testutil.SampleRecord(t, "on disk")
	require.NoError(t, tr.SaveObject(ctx, rec))

	file := filepath.Join(dir, DefaultPrefix, rec.ID[:2], rec.ID+".json.snappy")
	_, err = os.Stat(file)
	require.NoError(t, err)

	data, err := tr.(core.Reader).GetObject(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, string(rec.JSON), string(data))
}

func TestDiskTransport_RequiresPath(t *testing.T) {
	_, err := registry.Create(context.Background(), config.NewTransportConfig("local", TypeName))
	require.Error(t, err)
}

func TestStore_LeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	comp, err := compression.NewCompressor(nil)
	require.NoError(t, err)
	tr := New("disk", fs, "p", comp)

	rec := testutil.SampleRecord(t, "tidy")
	require.NoError(t, tr.SaveObject(context.Background(), rec))
	require.NoError(t, tr.SaveObject(context.Background(), rec))

	entries, err := afero.ReadDir(fs, filepath.Join("p", rec.ID[:2]))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, rec.ID+".json", entries[0].Name())
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStore(afero.NewMemMapFs())
	assert.Error(t, s.Put(ctx, "a/b.json", []byte("{}")))
	_, err := s.Get(ctx, "a/b.json")
	assert.Error(t, err)
}
