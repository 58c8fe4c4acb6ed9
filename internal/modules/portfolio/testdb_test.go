package portfolio

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/stretchr/testify/require"
)

// newTestDB opens an in-memory ledger with the positions schema applied
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE positions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker     TEXT NOT NULL,
			buy_price  REAL NOT NULL,
			shares     INTEGER NOT NULL,
			status     TEXT NOT NULL DEFAULT 'OPEN',
			created_at TEXT NOT NULL,
			closed_at  TEXT
		);
		CREATE INDEX idx_positions_status ON positions(status);
	`)
	require.NoError(t, err)

	return db
}
