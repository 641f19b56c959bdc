package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	// Registered database/sql drivers for the standard binding mode.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Config describes how to obtain a bound execution resource. Exactly one of URL,
// BindDB or BindPool must be set.
type Config struct {
	// URL is the connection target an engine is constructed for.
	URL *URL

	// BindDB reuses an existing database/sql engine instead of constructing one.
	BindDB *sqlx.DB

	// BindPool reuses an existing pgx pool instead of constructing one.
	BindPool *pgxpool.Pool

	// Options carries engine construction arguments.
	Options Options
}

// Resolve produces the component's single execution binding.
//
// Native (pgx) construction is attempted first: driver support for native mode is the
// exception, and the construction layer's ErrUnsupportedDriver signal is authoritative
// where no reliable pre-check exists. Exactly that signal triggers the fallback to a
// standard database/sql engine with the same arguments; any other failure propagates.
func Resolve(ctx context.Context, cfg Config) (*Binding, error) {
	if cfg.BindPool != nil {
		return BindPool(cfg.BindPool), nil
	}
	if cfg.BindDB != nil {
		return BindDB(cfg.BindDB), nil
	}
	if cfg.URL == nil {
		return nil, ErrMissingTarget
	}

	url := prepareURL(cfg.URL, cfg.Options)

	binding, err := openNative(ctx, url, cfg.Options)
	if errors.Is(err, ErrUnsupportedDriver) {
		binding, err = openStandard(url, cfg.Options)
	}
	if err != nil {
		return nil, err
	}

	if url.Dialect == DialectSQLite {
		tuneSQLite(binding.db, url)
	}
	return binding, nil
}

// prepareURL returns a copy of the URL with connect params and dialect defaults
// folded into its options. The caller's URL is never modified, so one URL value can
// serve repeated resolves. Options already present in the URL take precedence over
// ConnectParams, which take precedence over defaults.
func prepareURL(u *URL, opts Options) *URL {
	out := *u
	out.Options = make(map[string]string, len(u.Options)+len(opts.ConnectParams))
	for key, value := range u.Options {
		out.Options[key] = value
	}
	for key, value := range opts.ConnectParams {
		out.setDefaultOption(key, value)
	}

	if out.Dialect == DialectSQLite {
		// Sessions are handed out to arbitrary goroutines, so a connection released
		// by one unit of work may be picked up by another while the file lock is
		// still warm. A default busy timeout absorbs that handoff; an explicit
		// caller-supplied pragma wins.
		out.setDefaultOption("_pragma", "busy_timeout(5000)")
	}
	return &out
}

// openNative constructs a pgx pool for the URL. Dialects and drivers pgx cannot
// serve are reported as ErrUnsupportedDriver, the one recoverable construction
// failure.
func openNative(ctx context.Context, url *URL, opts Options) (*Binding, error) {
	if url.Dialect != DialectPostgres || (url.Driver != "" && url.Driver != "pgx") {
		return nil, fmt.Errorf("%w (dialect %q, driver %q)", ErrUnsupportedDriver, url.Dialect, url.Driver)
	}

	poolCfg, err := pgxpool.ParseConfig(url.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("parsing native config: %w", err)
	}
	if opts.Pool.MaxOpen > 0 {
		poolCfg.MaxConns = int32(opts.Pool.MaxOpen)
	}
	if opts.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = opts.ConnMaxLifetime
	}
	if opts.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = opts.ConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating native pool: %w", err)
	}
	return &Binding{
		pool:    pool,
		dialect: url.Dialect,
		driver:  "pgx",
		owned:   true,
	}, nil
}

// openStandard constructs a database/sql engine with the registered driver for the
// URL's dialect.
func openStandard(url *URL, opts Options) (*Binding, error) {
	driver, err := standardDriver(url.Dialect)
	if err != nil {
		return nil, err
	}
	dsn, err := url.DriverDSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s engine: %w", url.Dialect, err)
	}

	if opts.Pool.MaxOpen > 0 {
		db.SetMaxOpenConns(opts.Pool.MaxOpen)
	}
	switch {
	case opts.Pool.MaxIdle < 0:
		db.SetMaxIdleConns(0)
	case opts.Pool.MaxIdle > 0:
		db.SetMaxIdleConns(opts.Pool.MaxIdle)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	return &Binding{
		db:      db,
		dialect: url.Dialect,
		driver:  driver,
		owned:   true,
	}, nil
}

func standardDriver(dialect string) (string, error) {
	switch dialect {
	case DialectSQLite:
		return "sqlite", nil
	case DialectPostgres:
		return "pgx", nil
	case DialectMySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
}
