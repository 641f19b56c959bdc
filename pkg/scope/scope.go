// Package scope provides an in-memory implementation of ports.Scope for embedders
// that do not bring their own component host, and for tests.
//
// Scopes form a chain: a unit-of-work scope created with Child sees everything
// published in its ancestors, but resource factories produce into the requesting
// scope, so per-scope resources (like sessions) are created, cached and torn down
// with the unit of work rather than with the application.
package scope

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/aretw0/taproot/pkg/ports"
)

// ErrEnded is returned when publishing into a scope that has already ended.
var ErrEnded = errors.New("scope: already ended")

// ErrNotFound is returned when no resource of the requested name and type exists.
var ErrNotFound = errors.New("scope: resource not found")

type resourceKey struct {
	name string
	typ  reflect.Type
}

type factoryEntry struct {
	fn ports.ResourceFactory
}

// Scope is an in-memory lifecycle context. Resources are keyed by name and concrete
// type; factory products are memoized per requesting scope; teardown callbacks run
// in LIFO order when the scope ends.
type Scope struct {
	parent *Scope

	mu        sync.Mutex
	resources map[resourceKey]any
	factories map[string][]*factoryEntry
	teardowns []ports.TeardownFunc
	ended     bool

	// produceMu serializes factory invocation so a factory runs at most once per
	// scope even under concurrent Get calls.
	produceMu sync.Mutex
	products  map[*factoryEntry]any
}

var _ ports.Scope = (*Scope)(nil)

// New creates an empty root scope.
func New() *Scope {
	return &Scope{
		resources: make(map[resourceKey]any),
		factories: make(map[string][]*factoryEntry),
		products:  make(map[*factoryEntry]any),
	}
}

// Child creates a scope that inherits this scope's resources and factories. Ending
// the child never touches the parent.
func (s *Scope) Child() *Scope {
	child := New()
	child.parent = s
	return child
}

// AddResource publishes a ready value under the given name.
func (s *Scope) AddResource(value any, name string) error {
	if value == nil {
		return fmt.Errorf("scope: nil resource %q", name)
	}
	key := resourceKey{name: name, typ: reflect.TypeOf(value)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return ErrEnded
	}
	if _, exists := s.resources[key]; exists {
		return fmt.Errorf("scope: resource %q (%s) already published", name, key.typ)
	}
	s.resources[key] = value
	return nil
}

// AddResourceFactory publishes a lazy producer under the given name. The product is
// created on first matching Get in a given scope and cached for that scope.
func (s *Scope) AddResourceFactory(factory ports.ResourceFactory, name string) error {
	if factory == nil {
		return fmt.Errorf("scope: nil resource factory %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return ErrEnded
	}
	s.factories[name] = append(s.factories[name], &factoryEntry{fn: factory})
	return nil
}

// AddTeardown registers a callback to run when the scope ends.
func (s *Scope) AddTeardown(cb ports.TeardownFunc) {
	if cb == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardowns = append(s.teardowns, cb)
}

// End runs all teardown callbacks in LIFO order, passing them the failure that
// terminated the scope (nil on success). Every callback runs even when earlier ones
// fail; their errors are joined into the result. A scope ends once.
func (s *Scope) End(ctx context.Context, cause error) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return ErrEnded
	}
	s.ended = true
	teardowns := s.teardowns
	s.teardowns = nil
	s.mu.Unlock()

	var errs []error
	for i := len(teardowns) - 1; i >= 0; i-- {
		if err := teardowns[i](ctx, cause); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// lookupValue searches this scope and its ancestors for a published value.
func (s *Scope) lookupValue(name string, want reflect.Type) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		for key, value := range cur.resources {
			if key.name == name && reflect.TypeOf(value).AssignableTo(want) {
				cur.mu.Unlock()
				return value, true
			}
		}
		cur.mu.Unlock()
	}
	return nil, false
}

// lookupFactories gathers factory entries registered under the name anywhere in the
// chain, nearest scope first.
func (s *Scope) lookupFactories(name string) []*factoryEntry {
	var entries []*factoryEntry
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		entries = append(entries, cur.factories[name]...)
		cur.mu.Unlock()
	}
	return entries
}

// produce invokes a factory against this scope, memoizing the product here so each
// factory runs at most once per scope.
func (s *Scope) produce(entry *factoryEntry) (any, error) {
	s.produceMu.Lock()
	defer s.produceMu.Unlock()

	if product, ok := s.products[entry]; ok {
		return product, nil
	}
	product, err := entry.fn(s)
	if err != nil {
		return nil, err
	}
	s.products[entry] = product
	return product, nil
}

// Get retrieves a resource of type T published under the given name in this scope or
// an ancestor, invoking a resource factory if needed. Factory products belong to the
// scope Get was called on.
func Get[T any](s *Scope, name string) (T, error) {
	var zero T
	want := reflect.TypeOf(&zero).Elem()

	if value, ok := s.lookupValue(name, want); ok {
		return value.(T), nil
	}

	// Factories do not declare output types, so candidates are invoked (once per
	// scope, memoized) until one yields the wanted type.
	for _, entry := range s.lookupFactories(name) {
		product, err := s.produce(entry)
		if err != nil {
			return zero, err
		}
		if product != nil && reflect.TypeOf(product).AssignableTo(want) {
			return product.(T), nil
		}
	}
	return zero, fmt.Errorf("%w: %q (%s)", ErrNotFound, name, want)
}
