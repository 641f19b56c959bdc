package engine

import (
	"fmt"
	"sync"
)

// PoolStrategy describes how connections are pooled. The zero value keeps the
// driver's defaults.
type PoolStrategy struct {
	// MaxOpen bounds the number of simultaneously open connections. 0 keeps the
	// driver default (unbounded for database/sql).
	MaxOpen int

	// MaxIdle bounds the idle pool. -1 disables idle pooling entirely ("null" pool:
	// every connection is discarded on release).
	MaxIdle int
}

var (
	poolMu       sync.RWMutex
	poolRegistry = map[string]PoolStrategy{
		// Driver defaults.
		"default": {},
		// A single shared connection for the lifetime of the engine. This is what
		// in-memory sqlite needs: a fresh connection would see a fresh database.
		"static": {MaxOpen: 1, MaxIdle: 1},
		// No idle pooling; connections are opened per use and discarded.
		"null": {MaxIdle: -1},
	}
)

// RegisterPool makes a pool strategy resolvable by symbolic name, overwriting any
// previous registration under that name.
func RegisterPool(name string, strategy PoolStrategy) {
	poolMu.Lock()
	defer poolMu.Unlock()
	poolRegistry[name] = strategy
}

// LookupPool resolves a symbolic pool strategy name.
func LookupPool(name string) (PoolStrategy, error) {
	poolMu.RLock()
	defer poolMu.RUnlock()
	strategy, ok := poolRegistry[name]
	if !ok {
		return PoolStrategy{}, fmt.Errorf("%w: %q", ErrUnknownPool, name)
	}
	return strategy, nil
}
