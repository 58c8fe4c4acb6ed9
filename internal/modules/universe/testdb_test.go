package universe

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// newTestDB opens an in-memory database with the market schema applied.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE securities (
			ticker     TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			board      TEXT NOT NULL,
			is_st      INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE daily_bars (
			ticker       TEXT NOT NULL,
			date         TEXT NOT NULL,
			open         REAL NOT NULL,
			high         REAL NOT NULL,
			low          REAL NOT NULL,
			close        REAL NOT NULL,
			preclose     REAL NOT NULL DEFAULT 0,
			volume       INTEGER NOT NULL DEFAULT 0,
			amount       REAL NOT NULL DEFAULT 0,
			turn         REAL NOT NULL DEFAULT 0,
			pct_chg      REAL NOT NULL DEFAULT 0,
			trade_status INTEGER NOT NULL DEFAULT 1,
			pe_ttm       REAL,
			pb_mrq       REAL,
			ps_ttm       REAL,
			pcf_ncf_ttm  REAL,
			PRIMARY KEY (ticker, date)
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test tables: %v", err)
	}

	return db
}
