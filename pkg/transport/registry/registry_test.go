package registry

import (
	"context"
	"testing"
	"time"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/testutil"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingTransport struct {
	*testutil.RecordingTransport
	closed *int
}

func (c closingTransport) Close(context.Context) error {
	*c.closed++
	return nil
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("recording", func(_ context.Context, cfg *config.TransportConfig) (core.Transport, error) {
		return testutil.NewRecordingTransport(cfg.Name), nil
	}))

	assert.True(t, r.Has("recording"))
	assert.False(t, r.Has("missing"))
	assert.Equal(t, []string{"recording"}, r.List())

	tr, err := r.Create(context.Background(), config.NewTransportConfig("mine", "recording"))
	require.NoError(t, err)
	assert.Equal(t, "mine", tr.Name())
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	factory := func(context.Context, *config.TransportConfig) (core.Transport, error) { return nil, nil }

	require.NoError(t, r.Register("x", factory))
	err := r.Register("x", factory)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(context.Background(), config.NewTransportConfig("a", "nope"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRegistry_FactoryError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("broken", func(context.Context, *config.TransportConfig) (core.Transport, error) {
		return nil, errors.New(errors.ErrorTypeConnection, "unreachable")
	}))

	_, err := r.Create(context.Background(), config.NewTransportConfig("b", "broken"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestRegistry_CreateAllClosesOnFailure(t *testing.T) {
	closed := 0
	r := NewRegistry()
	require.NoError(t, r.Register("ok", func(_ context.Context, cfg *config.TransportConfig) (core.Transport, error) {
		return closingTransport{RecordingTransport: testutil.NewRecordingTransport(cfg.Name), closed: &closed}, nil
	}))

	cfg := config.NewConfig()
	cfg.Transports = []*config.TransportConfig{
		config.NewTransportConfig("first", "ok"),
		config.NewTransportConfig("second", "ok"),
		config.NewTransportConfig("third", "missing"),
	}

	_, err := r.CreateAll(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, 2, closed)
}

func TestRegistry_CreateAll(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ok", func(_ context.Context, cfg *config.TransportConfig) (core.Transport, error) {
		return testutil.NewRecordingTransport(cfg.Name), nil
	}))

	cfg := config.NewConfig()
	cfg.Transports = []*config.TransportConfig{
		config.NewTransportConfig("first", "ok"),
		config.NewTransportConfig("second", "ok"),
	}

	transports, err := r.CreateAll(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, transports, 2)
	assert.Equal(t, "first", transports[0].Name())
	assert.Equal(t, "second", transports[1].Name())
}

func TestRegistry_AppliesWriteTimeout(t *testing.T) {
	r := NewRegistry()
	inner := testutil.NewRecordingTransport("timed")
	require.NoError(t, r.Register("timed", func(context.Context, *config.TransportConfig) (core.Transport, error) {
		return inner, nil
	}))

	plain, err := r.Create(context.Background(), config.NewTransportConfig("timed", "timed"))
	require.NoError(t, err)
	assert.Same(t, inner, plain)

	cfg := config.NewTransportConfig("timed", "timed")
	cfg.Timeouts.Write = time.Second
	wrapped, err := r.Create(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotSame(t, inner, wrapped)
	_, isReader := wrapped.(core.Reader)
	assert.True(t, isReader)
}
