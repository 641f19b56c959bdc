package taproot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/taproot/internal/executor"
	"github.com/aretw0/taproot/internal/logging"
	"github.com/aretw0/taproot/pkg/engine"
	"github.com/aretw0/taproot/pkg/session"
)

// DefaultResourceName is the namespace resources are published under when no
// WithResourceName option is given.
const DefaultResourceName = "default"

// DefaultCommitWorkers is the default size of the commit executor used to tear down
// standard sessions off the calling goroutine.
const DefaultCommitWorkers = 5

// Component resolves a database engine binding and publishes it, a session factory,
// and a per-scope session producer into a component host.
//
// The binding's mode is fixed at construction: a native (pgx) binding publishes
// *pgxpool.Pool and native sessions; a standard binding publishes *sqlx.DB, standard
// sessions, and a commit executor for their teardown.
type Component struct {
	resourceName  string
	commitWorkers int
	binding       *engine.Binding
	factory       *session.Factory
	exec          *executor.Pool
	registerer    prometheus.Registerer
	logger        *slog.Logger
	started       bool
}

type config struct {
	rawURL        string
	components    map[string]any
	bindDB        *sqlx.DB
	bindPool      *pgxpool.Pool
	engineOpts    engine.Options
	sessionOpts   session.Settings
	poolName      string
	commitWorkers int
	resourceName  string
	registerer    prometheus.Registerer
	logger        *slog.Logger
}

// Option defines a functional option for configuring the Component.
type Option func(*config)

// WithURL sets the connection string an engine is constructed for.
// Mutually exclusive with WithBind/WithBindPool.
func WithURL(url string) Option {
	return func(c *config) { c.rawURL = url }
}

// WithURLComponents sets the connection target from a structured mapping
// (dialect, driver, username, password, host, port, database, options).
func WithURLComponents(components map[string]any) Option {
	return func(c *config) { c.components = components }
}

// WithBind reuses an existing database/sql engine instead of constructing one.
// The component never disposes an externally supplied bind.
func WithBind(db *sqlx.DB) Option {
	return func(c *config) { c.bindDB = db }
}

// WithBindPool reuses an existing pgx pool instead of constructing one.
func WithBindPool(pool *pgxpool.Pool) Option {
	return func(c *config) { c.bindPool = pool }
}

// WithEngineOptions sets engine construction arguments (connect params, pool sizing,
// connection lifetimes).
func WithEngineOptions(opts engine.Options) Option {
	return func(c *config) { c.engineOpts = opts }
}

// WithSessionSettings sets session construction options. ExpireOnCommit and
// AutoBegin are always forced to false and true respectively, overriding whatever is
// configured here.
func WithSessionSettings(settings session.Settings) Option {
	return func(c *config) { c.sessionOpts = settings }
}

// WithPoolStrategy selects a connection pool strategy by symbolic name
// (see engine.RegisterPool). An unknown name fails construction.
func WithPoolStrategy(name string) Option {
	return func(c *config) { c.poolName = name }
}

// WithPool sets a connection pool strategy value directly.
func WithPool(strategy engine.PoolStrategy) Option {
	return func(c *config) { c.engineOpts.Pool = strategy }
}

// WithCommitWorkers sizes the worker pool used to tear down standard sessions
// (default 5). Meaningless for native bindings, where teardown runs inline.
func WithCommitWorkers(workers int) Option {
	return func(c *config) { c.commitWorkers = workers }
}

// WithResourceName sets the namespace resources are published under
// (default "default").
func WithResourceName(name string) Option {
	return func(c *config) { c.resourceName = name }
}

// WithLogger sets a structured logger for component diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithLogLevel installs the standard stderr logger at the given level. Use WithLogger
// to supply a custom one instead.
func WithLogLevel(level slog.Level) Option {
	return func(c *config) { c.logger = logging.New(level) }
}

// WithMetrics registers engine pool statistics with the given Prometheus registerer
// at start, and unregisters them at teardown.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(c *config) { c.registerer = registerer }
}

// New resolves the engine binding and builds the session factory. Configuration
// errors (no url and no bind, unknown pool strategy, bad URL) surface here, before
// any resource is published. Engine construction failures other than the internal
// unsupported-driver fallback propagate unmodified.
func New(opts ...Option) (*Component, error) {
	cfg := config{
		commitWorkers: DefaultCommitWorkers,
		resourceName:  DefaultResourceName,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}

	engineCfg := engine.Config{
		BindDB:   cfg.bindDB,
		BindPool: cfg.bindPool,
		Options:  cfg.engineOpts,
	}

	if cfg.poolName != "" {
		strategy, err := engine.LookupPool(cfg.poolName)
		if err != nil {
			return nil, err
		}
		engineCfg.Options.Pool = strategy
	}

	if engineCfg.BindDB == nil && engineCfg.BindPool == nil {
		var url *engine.URL
		var err error
		switch {
		case cfg.components != nil:
			url, err = engine.URLFromComponents(cfg.components)
		case cfg.rawURL != "":
			url, err = engine.ParseURL(cfg.rawURL)
		}
		if err != nil {
			return nil, err
		}
		engineCfg.URL = url
	}

	binding, err := engine.Resolve(context.Background(), engineCfg)
	if err != nil {
		return nil, fmt.Errorf("resolving engine binding: %w", err)
	}

	return &Component{
		resourceName:  cfg.resourceName,
		commitWorkers: cfg.commitWorkers,
		binding:       binding,
		factory:       session.NewFactory(binding, cfg.sessionOpts),
		registerer:    cfg.registerer,
		logger:        cfg.logger,
	}, nil
}

// Binding returns the resolved engine binding.
func (c *Component) Binding() *engine.Binding { return c.binding }

// Factory returns the session factory bound to the resolved binding.
func (c *Component) Factory() *session.Factory { return c.factory }
