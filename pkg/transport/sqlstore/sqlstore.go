// Package sqlstore persists records in a SQL table through database/sql.
// Two dialects are registered: "sqlite" (modernc.org/sqlite, no cgo) and
// "mysql" (go-sql-driver/mysql).
//
// Records live in a single table:
//
//	objects(id PRIMARY KEY, data)
//
// where data is the record's JSON. Inserts ignore ids already present.
package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/logger"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Registry names of the dialects.
const (
	SQLite = "sqlite"
	MySQL  = "mysql"
)

// DefaultTable is the table records are written to.
const DefaultTable = "objects"

// Dialect holds the statements that differ between databases.
type Dialect struct {
	// Driver is the database/sql driver name
	Driver string
	// Pragmas are applied to every pooled connection through the DSN
	Pragmas []string
	// Setup runs once after opening, before the schema
	Setup []string
	// Schema creates the table; %s is the table name
	Schema string
	// Insert adds one row, ignoring duplicates; %s is the table name
	Insert string
	// Select reads one row; %s is the table name
	Select string
}

var dialects = map[string]Dialect{
	SQLite: {
		Driver:  "sqlite",
		Pragmas: []string{"busy_timeout(5000)", "synchronous(NORMAL)"},
		Setup:   []string{"PRAGMA journal_mode = WAL"},
		Schema: `CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			data BLOB NOT NULL
		) WITHOUT ROWID`,
		Insert: "INSERT OR IGNORE INTO %s (id, data) VALUES (?, ?)",
		Select: "SELECT data FROM %s WHERE id = ?",
	},
	MySQL: {
		Driver: "mysql",
		Schema: `CREATE TABLE IF NOT EXISTS %s (
			id CHAR(32) NOT NULL PRIMARY KEY,
			data LONGBLOB NOT NULL
		)`,
		Insert: "INSERT IGNORE INTO %s (id, data) VALUES (?, ?)",
		Select: "SELECT data FROM %s WHERE id = ?",
	},
}

func init() {
	for name := range dialects {
		dialect := name
		registry.Register(dialect, func(ctx context.Context, cfg *config.TransportConfig) (core.Transport, error) {
			return Open(ctx, dialect, cfg)
		})
	}
}

// Transport stores records in a SQL table.
type Transport struct {
	name    string
	dialect Dialect
	db      *sql.DB
	insert  *sql.Stmt
	sel     *sql.Stmt
	logger  *zap.Logger
}

// Open opens the database named by the "dsn" option of cfg. For sqlite the
// "path" option is accepted as well. The "table" option overrides
// DefaultTable and "max_connections" bounds the pool.
func Open(ctx context.Context, dialect string, cfg *config.TransportConfig) (*Transport, error) {
	dsn := cfg.Option("dsn", "")
	if dsn == "" && dialect == SQLite {
		dsn = cfg.Option("path", "")
	}
	if dsn == "" {
		return nil, fmt.Errorf("transport %s: option \"dsn\" is required", cfg.Name)
	}
	maxConns, err := cfg.IntOption("max_connections", 10)
	if err != nil {
		return nil, err
	}

	d, ok := dialects[dialect]
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown sql dialect").WithDetail("dialect", dialect)
	}
	db, err := sql.Open(d.Driver, WithPragmas(dsn, d.Pragmas))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open database").
			WithDetail("transport", cfg.Name)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)

	connectCtx := ctx
	if cfg.Timeouts.Connection > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.Timeouts.Connection)
		defer cancel()
	}

	t, err := New(connectCtx, cfg.Name, d, db, cfg.Option("table", DefaultTable))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return t, nil
}

// WithPragmas appends pragmas to a modernc.org/sqlite DSN as _pragma
// query parameters, which the driver runs on each new connection.
func WithPragmas(dsn string, pragmas []string) string {
	if len(pragmas) == 0 {
		return dsn
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + q.Encode()
}

// New creates the table if needed and prepares the statements on an
// already opened database.
func New(ctx context.Context, name string, d Dialect, db *sql.DB, table string) (*Transport, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to database").
			WithDetail("transport", name)
	}
	for _, stmt := range d.Setup {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to configure database").
				WithDetail("statement", stmt)
		}
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(d.Schema, table)); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create table").
			WithDetail("table", table)
	}

	insert, err := db.PrepareContext(ctx, fmt.Sprintf(d.Insert, table))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to prepare insert")
	}
	sel, err := db.PrepareContext(ctx, fmt.Sprintf(d.Select, table))
	if err != nil {
		_ = insert.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to prepare select")
	}

	return &Transport{
		name:    name,
		dialect: d,
		db:      db,
		insert:  insert,
		sel:     sel,
		logger:  logger.Get().With(zap.String("transport", name), zap.String("driver", d.Driver)),
	}, nil
}

// Name implements core.Transport.
func (t *Transport) Name() string {
	return t.name
}

// DB returns the underlying database handle.
func (t *Transport) DB() *sql.DB {
	return t.db
}

// SaveObject implements core.Transport.
func (t *Transport) SaveObject(ctx context.Context, rec *core.Record) error {
	res, err := t.insert.ExecContext(ctx, rec.ID, rec.JSON)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to insert record").
			WithDetail("id", rec.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		t.logger.Debug("record already stored", zap.String("id", rec.ID))
	}
	return nil
}

// GetObject implements core.Reader.
func (t *Transport) GetObject(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := t.sel.QueryRowContext(ctx, id).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
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
	_ = t.insert.Close()
	_ = t.sel.Close()
	return t.db.Close()
}
