package gcs

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/testutil"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/api/googleapi"
)

func TestClientOptions(t *testing.T) {
	cfg := config.NewTransportConfig("gcs", TypeName)
	assert.Empty(t, ClientOptions(cfg))

	cfg.Options["credentials_file"] = "/etc/key.json"
	assert.Len(t, ClientOptions(cfg), 1)

	cfg.Options["endpoint"] = "http://localhost:4443/storage/v1/"
	assert.Len(t, ClientOptions(cfg), 3)
}

func TestIsPreconditionFailed(t *testing.T) {
	wrapped := fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})
	assert.True(t, isPreconditionFailed(wrapped))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(fmt.Errorf("boom")))
}

func TestOpen_RequiresBucket(t *testing.T) {
	_, err := Open(context.Background(), config.NewTransportConfig("gcs", TypeName))
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	assert.True(t, registry.Has(TypeName))
}

func TestGCSTransport_Integration(t *testing.T) {
	endpoint := testutil.IntegrationTest(t, "OBJECTDAG_GCS_ENDPOINT")
	suite.Run(t, &testutil.TransportSuite{New: func(t *testing.T) core.ReadTransport {
		cfg := config.NewTransportConfig("gcs", TypeName)
		cfg.Options["bucket"] = "objectdag-test"
		cfg.Options["endpoint"] = endpoint
		tr, err := Open(context.Background(), cfg)
		require.NoError(t, err)
		return tr
	}})
}
