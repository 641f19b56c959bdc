// Package executor provides the bounded worker pool used to run blocking session
// teardown off the calling goroutine.
package executor

import (
	"errors"
	"sync"
)

// ErrShutdown is returned by Do after Shutdown has been initiated.
var ErrShutdown = errors.New("executor: shut down")

type job struct {
	fn   func() error
	done chan error
}

// Pool is a fixed-size worker pool. Submitted work runs on one of the workers; the
// submitter waits for the result. Shutdown drains everything already submitted
// before stopping, so no accepted job is silently dropped.
type Pool struct {
	jobs    chan job
	workers sync.WaitGroup

	mu       sync.Mutex
	inflight sync.WaitGroup
	closed   bool
}

// New creates a pool with the given number of workers (at least one).
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{jobs: make(chan job)}
	p.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.workers.Done()
	for j := range p.jobs {
		j.done <- j.fn()
	}
}

// Do runs fn on a pool worker and returns its result. The calling goroutine blocks
// until fn completes, but fn itself never runs on the calling goroutine.
func (p *Pool) Do(fn func() error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrShutdown
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	j := job{fn: fn, done: make(chan error, 1)}
	p.jobs <- j
	p.inflight.Done()
	return <-j.done
}

// Shutdown stops accepting work, waits for in-flight submissions and running jobs to
// finish, and stops the workers. Safe to call once; subsequent Do calls fail with
// ErrShutdown.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.inflight.Wait()
	close(p.jobs)
	p.workers.Wait()
}
