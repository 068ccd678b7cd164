// Package postgres stores records in a PostgreSQL table through a pgx
// connection pool. Records are stored as bytea so reads return exactly
// the bytes that were written.
package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/logger"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// TypeName is the registry name of this transport.
const TypeName = "postgres"

// DefaultTable is the table records are written to.
const DefaultTable = "objects"

func init() {
	registry.Register(TypeName, func(ctx context.Context, cfg *config.TransportConfig) (core.Transport, error) {
		return Open(ctx, cfg)
	})
}

// Transport stores records in PostgreSQL.
type Transport struct {
	name   string
	pool   *pgxpool.Pool
	insert string
	sel    string
	logger *zap.Logger
}

// Open creates a pool from the "dsn" option and ensures the table exists.
// "table" overrides DefaultTable; "max_connections" and "min_connections"
// size the pool.
func Open(ctx context.Context, cfg *config.TransportConfig) (*Transport, error) {
	dsn, err := cfg.RequireOption("dsn")
	if err != nil {
		return nil, err
	}
	maxConns, err := cfg.IntOption("max_connections", 10)
	if err != nil {
		return nil, err
	}
	minConns, err := cfg.IntOption("min_connections", 1)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse PostgreSQL connection string")
	}
	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = int32(minConns)
	poolConfig.MaxConnLifetime = time.Hour
	if cfg.Timeouts.Connection > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.Timeouts.Connection
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create PostgreSQL connection pool")
	}

	t, err := New(ctx, cfg.Name, pool, cfg.Option("table", DefaultTable))
	if err != nil {
		pool.Close()
		return nil, err
	}
	t.logger.Info("PostgreSQL connection pool created",
		zap.String("connection_string", Obfuscate(dsn)),
		zap.Int("max_connections", maxConns))
	return t, nil
}

// New ensures the table exists on an open pool.
func New(ctx context.Context, name string, pool *pgxpool.Pool, table string) (*Transport, error) {
	ident := pgx.Identifier{table}.Sanitize()
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id text PRIMARY KEY,
		data bytea NOT NULL
	)`, ident)
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create table").
			WithDetail("table", table)
	}
	return &Transport{
		name:   name,
		pool:   pool,
		insert: fmt.Sprintf("INSERT INTO %s (id, data) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING", ident),
		sel:    fmt.Sprintf("SELECT data FROM %s WHERE id = $1", ident),
		logger: logger.Get().With(zap.String("transport", name)),
	}, nil
}

// Name implements core.Transport.
func (t *Transport) Name() string {
	return t.name
}

// SaveObject implements core.Transport.
func (t *Transport) SaveObject(ctx context.Context, rec *core.Record) error {
	if _, err := t.pool.Exec(ctx, t.insert, rec.ID, rec.JSON); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to insert record").
			WithDetail("id", rec.ID)
	}
	return nil
}

// GetObject implements core.Reader.
func (t *Transport) GetObject(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := t.pool.QueryRow(ctx, t.sel, id).Scan(&data)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, core.NotFound(t.name, id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read record").
			WithDetail("id", id)
	}
	return data, nil
}

// Close implements core.Closer.
func (t *Transport) Close(_ context.Context) error {
	t.pool.Close()
	return nil
}

// Obfuscate hides the password of a URL-style connection string.
func Obfuscate(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
