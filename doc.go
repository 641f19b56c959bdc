/*
Package taproot supplies lifecycle-managed database resources to component-based
applications.

Given a connection URL (or an engine the caller already holds), taproot resolves a
single execution binding, publishes it and a session factory as long-lived named
resources in a host scope, and hands out one session per unit of work. Each session's
commit-or-rollback and close are tied to its scope's teardown: a scope that ends
cleanly commits, a scope that ends with a failure rolls back, and the session is
closed and detached either way.

# Binding modes

Taproot picks between two driver layers at construction. Native mode runs on a pgx
connection pool with fully context-aware teardown; standard mode runs on database/sql
(via sqlx) with teardown dispatched to a small worker pool so it never blocks the
scope's own goroutine. Native construction is attempted first and the driver layer's
unsupported signal selects the fallback; the chosen mode is fixed for the component's
lifetime.

# Usage

	comp, err := taproot.New(taproot.WithURL("sqlite:///:memory:"))
	if err != nil {
		log.Fatal(err)
	}

	app := scope.New()
	if err := comp.Start(ctx, app); err != nil {
		log.Fatal(err)
	}

	// One unit of work: request a session, use it, end the scope.
	work := app.Child()
	sess, _ := comp.CreateSession(work)
	_, err = sess.ExecContext(ctx, "INSERT INTO notes(body) VALUES (?)", "hello")
	_ = work.End(ctx, err) // commits on nil, rolls back otherwise; always closes

	_ = app.End(ctx, nil) // disposes the engine, drains the commit executor

Any host able to publish named resources and run LIFO teardown callbacks can carry
taproot through the ports.Scope interface; pkg/scope ships the in-memory
implementation used above.
*/
package taproot
