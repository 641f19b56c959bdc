/*
Package session provides unit-of-work sessions over a resolved engine binding.

A session is one logical transaction against the database: it lazily opens a
transaction on first use, tracks whether one is in flight, and is committed or rolled
back exactly once before being closed. Two session types share this lifecycle shape:

  - Session runs over a standard database/sql engine (sqlx).
  - NativeSession runs over a native pgx pool with context-first operations.

Sessions are produced by a Factory bound to the engine binding. The factory pins two
settings regardless of caller input: ExpireOnCommit is always false (the session stays
usable after a commit and lazily opens the next transaction) and AutoBegin is always
true (statements implicitly begin a transaction).

A session belongs to exactly one unit-of-work scope and must not be shared across
scopes. It is safe to drive from different goroutines across its lifetime, but never
from two goroutines at once.
*/
package session
