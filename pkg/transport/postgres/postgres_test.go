package postgres

import (
	"context"
	"testing"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/testutil"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestObfuscate(t *testing.T) {
	assert.Equal(t, "postgres://app:xxxxx@db:5432/objects", Obfuscate("postgres://app:secret@db:5432/objects"))
	assert.Equal(t, "postgres://db/objects", Obfuscate("postgres://db/objects"))
	assert.Equal(t, "host=db user=app", Obfuscate("host=db user=app"))
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), config.NewTransportConfig("pg", TypeName))
	assert.Error(t, err)
}

func TestOpen_BadDSN(t *testing.T) {
	cfg := config.NewTransportConfig("pg", TypeName)
	cfg.Options["dsn"] = "postgres://%zz"
	_, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRegistered(t *testing.T) {
	assert.True(t, registry.Has(TypeName))
}

func TestPostgresTransport_Integration(t *testing.T) {
	dsn := testutil.IntegrationTest(t, "OBJECTDAG_POSTGRES_DSN")
	suite.Run(t, &testutil.TransportSuite{New: func(t *testing.T) core.ReadTransport {
		cfg := config.NewTransportConfig("pg", TypeName)
		cfg.Options["dsn"] = dsn
		tr, err := Open(context.Background(), cfg)
		require.NoError(t, err)
		return tr
	}})
}
