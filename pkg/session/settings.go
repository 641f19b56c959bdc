package session

import (
	"database/sql"
	"errors"
)

// ScopeKey is the metadata key under which a session carries a reference to its
// owning scope. The entry is removed as part of session teardown.
const ScopeKey = "ctx"

// ErrClosed is returned by any operation on a closed session. Close itself is
// idempotent and never returns ErrClosed.
var ErrClosed = errors.New("session: closed")

// ErrNoTransaction is returned when AutoBegin is disabled and an operation needs a
// transaction that was never explicitly begun.
var ErrNoTransaction = errors.New("session: no transaction in progress")

// Settings configures session construction.
type Settings struct {
	// ExpireOnCommit, when true, leaves the session unusable after a commit until
	// Begin is called again. The factory always forces it to false.
	ExpireOnCommit bool

	// AutoBegin makes statements implicitly open a transaction on first use. The
	// factory always forces it to true.
	AutoBegin bool

	// TxOptions are applied to every transaction the session begins.
	TxOptions *sql.TxOptions
}
