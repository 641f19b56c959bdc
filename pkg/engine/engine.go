package engine

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// Dialect names as they appear in URLs and diagnostics.
const (
	DialectPostgres = "postgresql"
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
)

// Options carries engine construction arguments shared by both binding modes.
type Options struct {
	// ConnectParams are appended to the DSN as query options, without overriding
	// anything already present in the URL.
	ConnectParams map[string]string

	// Pool selects a connection pooling strategy. Zero value means driver defaults.
	Pool PoolStrategy

	// ConnMaxLifetime and ConnMaxIdleTime bound how long pooled connections live.
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Binding is the single resolved execution resource of a component: exactly one of a
// native pgx pool or a standard database/sql engine, either owned (constructed from a
// URL) or supplied externally by the caller. Once resolved, its mode is fixed for the
// lifetime of the component and selects the session type and teardown path.
type Binding struct {
	pool    *pgxpool.Pool
	db      *sqlx.DB
	dialect string
	driver  string
	owned   bool
}

// BindDB wraps an externally managed database/sql engine. The binding will never
// dispose it.
func BindDB(db *sqlx.DB) *Binding {
	driver := db.DriverName()
	return &Binding{
		db:      db,
		dialect: dialectForDriver(driver),
		driver:  driver,
	}
}

// BindPool wraps an externally managed pgx pool. The binding will never close it.
func BindPool(pool *pgxpool.Pool) *Binding {
	return &Binding{
		pool:    pool,
		dialect: DialectPostgres,
		driver:  "pgx",
	}
}

// Native reports whether the binding runs in native (pgx) mode. The flag is fixed at
// resolution time and never changes.
func (b *Binding) Native() bool { return b.pool != nil }

// Owned reports whether this binding constructed its engine and is responsible for
// disposing it.
func (b *Binding) Owned() bool { return b.owned }

// Pool returns the native pgx pool, or nil in standard mode.
func (b *Binding) Pool() *pgxpool.Pool { return b.pool }

// DB returns the standard engine, or nil in native mode.
func (b *Binding) DB() *sqlx.DB { return b.db }

// Dialect returns the database dialect name (e.g. "postgresql", "sqlite").
func (b *Binding) Dialect() string { return b.dialect }

// Driver returns the concrete driver name serving the binding.
func (b *Binding) Driver() string { return b.driver }

// Ping verifies connectivity. Engines construct lazily, so this is where a bad host
// or unreachable network first surfaces.
func (b *Binding) Ping(ctx context.Context) error {
	if b.Native() {
		return b.pool.Ping(ctx)
	}
	return b.db.PingContext(ctx)
}

// Dispose releases all pooled connections of an owned engine. Externally supplied
// binds are left untouched.
func (b *Binding) Dispose(ctx context.Context) error {
	if !b.owned {
		return nil
	}
	if b.Native() {
		b.pool.Close()
		return nil
	}
	return b.db.Close()
}

func dialectForDriver(driver string) string {
	switch driver {
	case "pgx", "pgx/v5", "postgres":
		return DialectPostgres
	case "sqlite", "sqlite3":
		return DialectSQLite
	case "mysql":
		return DialectMySQL
	default:
		return driver
	}
}
