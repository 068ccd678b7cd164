package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNew_Defaults(t *testing.T) {
	logger, err := New(Config{})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestFromContext_AddsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := WithOperation(context.Background(), "op-1")
	ctx = context.WithValue(ctx, TransportKey, "disk")

	FromContext(ctx, base).Info("saved")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "op-1", fields["operation_id"])
	assert.Equal(t, "disk", fields["transport"])
}

func TestSetAndGet(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	previous := Get()
	t.Cleanup(func() { Set(previous) })

	Set(zap.New(core))
	Info("hello", zap.Int("n", 1))

	assert.Equal(t, 1, logs.Len())
}
