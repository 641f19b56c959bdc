package taproot

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/taproot/internal/executor"
	"github.com/aretw0/taproot/pkg/metrics"
	"github.com/aretw0/taproot/pkg/ports"
	"github.com/aretw0/taproot/pkg/session"
)

// ErrAlreadyStarted is returned by Start on a component that has already been
// started. Components are not restartable.
var ErrAlreadyStarted = errors.New("taproot: component already started")

// Start verifies connectivity and publishes the component's resources into the
// scope: the engine value (*pgxpool.Pool or *sqlx.DB), the *session.Factory, and a
// per-scope session-producing factory, all under the configured resource name.
//
// For standard bindings the commit executor is created here and its shutdown is
// registered on the scope, so it outlives every session finalizer registered later.
// An owned engine is disposed when the scope ends; externally supplied binds are
// left untouched.
func (c *Component) Start(ctx context.Context, scope ports.Scope) error {
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	if err := c.binding.Ping(ctx); err != nil {
		return fmt.Errorf("taproot: engine connectivity check failed: %w", err)
	}

	// Registered before any session finalizer so it runs after all of them (LIFO).
	if !c.binding.Native() {
		c.exec = executor.New(c.commitWorkers)
		scope.AddTeardown(func(ctx context.Context, cause error) error {
			c.exec.Shutdown()
			return nil
		})
	}

	scope.AddTeardown(c.teardownBinding)

	var engineValue any
	if c.binding.Native() {
		engineValue = c.binding.Pool()
	} else {
		engineValue = c.binding.DB()
	}
	if err := scope.AddResource(engineValue, c.resourceName); err != nil {
		return err
	}
	if err := scope.AddResource(c.factory, c.resourceName); err != nil {
		return err
	}

	var sessions ports.ResourceFactory
	if c.binding.Native() {
		sessions = func(s ports.Scope) (any, error) { return c.CreateNativeSession(s) }
	} else {
		sessions = func(s ports.Scope) (any, error) { return c.CreateSession(s) }
	}
	if err := scope.AddResourceFactory(sessions, c.resourceName); err != nil {
		return err
	}

	if c.registerer != nil {
		if err := c.registerMetrics(scope); err != nil {
			return err
		}
	}

	c.logger.Info("configured database resources",
		"resource", c.resourceName,
		"dialect", c.binding.Dialect(),
		"driver", c.binding.Driver(),
	)
	return nil
}

func (c *Component) teardownBinding(ctx context.Context, cause error) error {
	if c.binding.Owned() {
		if err := c.binding.Dispose(ctx); err != nil {
			return fmt.Errorf("taproot: disposing engine: %w", err)
		}
	}
	c.logger.Info("database resources shut down", "resource", c.resourceName)
	return nil
}

func (c *Component) registerMetrics(scope ports.Scope) error {
	collector := metrics.NewCollector(c.binding, c.resourceName)
	if err := c.registerer.Register(collector); err != nil {
		return fmt.Errorf("taproot: registering pool metrics: %w", err)
	}
	scope.AddTeardown(func(ctx context.Context, cause error) error {
		c.registerer.Unregister(collector)
		return nil
	})
	return nil
}

// CreateSession creates a standard session owned by the given unit-of-work scope.
//
// Exactly one finalizer is registered against the scope: at teardown it commits the
// open transaction when the scope ended cleanly, rolls it back otherwise, then closes
// the session and detaches it from the scope. The finalizer body runs on the commit
// executor, never on the scope's own goroutine; the teardown caller waits for its
// result.
func (c *Component) CreateSession(scope ports.Scope) (*session.Session, error) {
	if c.exec == nil {
		return nil, errors.New("taproot: component not started")
	}
	sess, err := c.factory.NewSession(map[string]any{session.ScopeKey: scope})
	if err != nil {
		return nil, err
	}
	scope.AddTeardown(func(ctx context.Context, cause error) error {
		return c.exec.Do(func() error {
			return finalizeSession(sess, cause)
		})
	})
	return sess, nil
}

// CreateNativeSession creates a native session owned by the given unit-of-work
// scope. The finalizer follows the same commit-or-rollback-then-close contract as
// CreateSession, but runs inline with the teardown context; no worker pool is
// involved.
func (c *Component) CreateNativeSession(scope ports.Scope) (*session.NativeSession, error) {
	sess, err := c.factory.NewNativeSession(map[string]any{session.ScopeKey: scope})
	if err != nil {
		return nil, err
	}
	scope.AddTeardown(func(ctx context.Context, cause error) error {
		return finalizeNativeSession(ctx, sess, cause)
	})
	return sess, nil
}

// finalizeSession settles and releases a standard session. The close and detach
// steps run unconditionally, even when commit or rollback fails; that failure still
// propagates after cleanup completes.
func finalizeSession(sess *session.Session, cause error) (err error) {
	defer func() {
		if closeErr := sess.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		delete(sess.Info(), session.ScopeKey)
	}()

	if sess.InTransaction() {
		if cause == nil {
			return sess.Commit()
		}
		return sess.Rollback()
	}
	return nil
}

func finalizeNativeSession(ctx context.Context, sess *session.NativeSession, cause error) (err error) {
	defer func() {
		if closeErr := sess.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
		delete(sess.Info(), session.ScopeKey)
	}()

	if sess.InTransaction() {
		if cause == nil {
			return sess.Commit(ctx)
		}
		return sess.Rollback(ctx)
	}
	return nil
}
