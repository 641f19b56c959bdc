package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Session is a unit-of-work session over a standard database/sql engine.
//
// With AutoBegin (the factory default) the first statement opens a transaction; the
// session then stays in that transaction until Commit, Rollback or Close. Commit and
// Rollback settle at most one transaction each; Close is idempotent and always safe
// to call again.
type Session struct {
	db       *sqlx.DB
	settings Settings
	info     map[string]any

	mu      sync.Mutex
	tx      *sqlx.Tx
	closed  bool
	expired bool
}

// Info returns the session's metadata map. The owning scope is stored under ScopeKey
// for the session's lifetime.
func (s *Session) Info() map[string]any { return s.info }

// InTransaction reports whether the session currently holds an open transaction.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// Begin explicitly opens a transaction. It is a no-op when one is already open.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.expired = false
	_, err := s.beginLocked(ctx)
	return err
}

func (s *Session) beginLocked(ctx context.Context) (*sqlx.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTxx(ctx, s.settings.TxOptions)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

// transaction returns the current transaction, opening one when AutoBegin allows it.
func (s *Session) transaction(ctx context.Context) (*sqlx.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.expired {
		return nil, fmt.Errorf("session expired on commit: %w", ErrNoTransaction)
	}
	if s.tx == nil && !s.settings.AutoBegin {
		return nil, ErrNoTransaction
	}
	return s.beginLocked(ctx)
}

// ExecContext executes a statement within the session's transaction.
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx, err := s.transaction(ctx)
	if err != nil {
		return nil, err
	}
	return tx.ExecContext(ctx, query, args...)
}

// QueryxContext runs a query within the session's transaction.
func (s *Session) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	tx, err := s.transaction(ctx)
	if err != nil {
		return nil, err
	}
	return tx.QueryxContext(ctx, query, args...)
}

// GetContext scans a single row into dest within the session's transaction.
func (s *Session) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	tx, err := s.transaction(ctx)
	if err != nil {
		return err
	}
	return tx.GetContext(ctx, dest, query, args...)
}

// SelectContext scans all rows into dest within the session's transaction.
func (s *Session) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	tx, err := s.transaction(ctx)
	if err != nil {
		return err
	}
	return tx.SelectContext(ctx, dest, query, args...)
}

// Commit commits the open transaction, if any. Without an open transaction it is a
// no-op, never an error.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if s.settings.ExpireOnCommit {
		s.expired = true
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the open transaction, if any.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

// Close releases the session. An open transaction is rolled back. Closing an already
// closed session is safe and returns nil. The underlying engine is never closed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("closing session: %w", err)
	}
	return nil
}
