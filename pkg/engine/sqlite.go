package engine

import (
	"strings"

	"github.com/jmoiron/sqlx"
)

// tuneSQLite applies engine-level adjustments that make sqlite's pooling semantics
// compatible with concurrent access from multiple goroutines.
//
// In-memory databases are pinned to a single shared connection: database/sql would
// otherwise open fresh connections on demand, and every fresh in-memory connection is
// a fresh, empty database. File databases get WAL journaling so readers are not
// serialized behind the writer.
func tuneSQLite(db *sqlx.DB, url *URL) {
	if db == nil {
		return
	}
	if isMemoryDatabase(url.Database) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		// The single connection must never be reaped, or the database goes with it.
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return
	}

	// Journal mode persists in the database file, so a failure here is not fatal;
	// the engine still works in the default rollback-journal mode.
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
}

func isMemoryDatabase(database string) bool {
	return database == ":memory:" || database == "" ||
		strings.Contains(database, "mode=memory")
}
