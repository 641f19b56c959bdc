package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NativeSession is a unit-of-work session over a native pgx pool. It shares the
// lifecycle shape of Session, but every lifecycle step takes a context: commit,
// rollback and close all run inline within the calling scope's teardown rather than
// on a worker.
type NativeSession struct {
	pool     *pgxpool.Pool
	settings Settings
	info     map[string]any

	mu      sync.Mutex
	tx      pgx.Tx
	closed  bool
	expired bool
}

// Info returns the session's metadata map.
func (s *NativeSession) Info() map[string]any { return s.info }

// InTransaction reports whether the session currently holds an open transaction.
func (s *NativeSession) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// Begin explicitly opens a transaction. It is a no-op when one is already open.
func (s *NativeSession) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.expired = false
	_, err := s.beginLocked(ctx)
	return err
}

func (s *NativeSession) beginLocked(ctx context.Context) (pgx.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.pool.BeginTx(ctx, nativeTxOptions(s.settings.TxOptions))
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

func (s *NativeSession) transaction(ctx context.Context) (pgx.Tx, error) {
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

// Exec executes a statement within the session's transaction.
func (s *NativeSession) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	tx, err := s.transaction(ctx)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return tx.Exec(ctx, query, args...)
}

// Query runs a query within the session's transaction.
func (s *NativeSession) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	tx, err := s.transaction(ctx)
	if err != nil {
		return nil, err
	}
	return tx.Query(ctx, query, args...)
}

// QueryRow runs a single-row query within the session's transaction.
func (s *NativeSession) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	tx, err := s.transaction(ctx)
	if err != nil {
		return errRow{err}
	}
	return tx.QueryRow(ctx, query, args...)
}

// Commit commits the open transaction, if any.
func (s *NativeSession) Commit(ctx context.Context) error {
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
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the open transaction, if any.
func (s *NativeSession) Rollback(ctx context.Context) error {
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
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

// Close releases the session, rolling back any open transaction. Idempotent.
func (s *NativeSession) Close(ctx context.Context) error {
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
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("closing session: %w", err)
	}
	return nil
}

// nativeTxOptions translates database/sql transaction options into pgx ones.
func nativeTxOptions(opts *sql.TxOptions) pgx.TxOptions {
	if opts == nil {
		return pgx.TxOptions{}
	}
	out := pgx.TxOptions{}
	if opts.ReadOnly {
		out.AccessMode = pgx.ReadOnly
	}
	switch opts.Isolation {
	case sql.LevelReadUncommitted:
		out.IsoLevel = pgx.ReadUncommitted
	case sql.LevelReadCommitted:
		out.IsoLevel = pgx.ReadCommitted
	case sql.LevelRepeatableRead:
		out.IsoLevel = pgx.RepeatableRead
	case sql.LevelSerializable:
		out.IsoLevel = pgx.Serializable
	}
	return out
}

// errRow defers a session-state error until Scan, matching pgx.Row semantics.
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
