package ports

import "context"

// TeardownFunc runs when the owning scope ends. The cause is the failure that
// terminated the scope, or nil when it ended normally. A returned error is collected
// by the host into the scope's teardown result; it must not prevent later teardown
// callbacks from running.
type TeardownFunc func(ctx context.Context, cause error) error

// ResourceFactory lazily produces a resource for a single scope.
// Hosts must memoize the product: at most one invocation per scope per name.
type ResourceFactory func(scope Scope) (any, error)

// Scope is the lifecycle context taproot publishes its resources into.
//
// A Scope can represent the whole application lifetime (where the engine and session
// factory live) or a single unit of work (where sessions live). Implementations must
// run teardown callbacks in LIFO order relative to registration.
type Scope interface {
	// AddResource publishes a ready value under the given name.
	// Returns an error if the same name and type are already taken.
	AddResource(value any, name string) error

	// AddResourceFactory publishes a lazy producer under the given name.
	// The factory is invoked on first request within a scope and its product cached
	// for that scope.
	AddResourceFactory(factory ResourceFactory, name string) error

	// AddTeardown registers a callback to run when this scope ends.
	AddTeardown(cb TeardownFunc)
}
