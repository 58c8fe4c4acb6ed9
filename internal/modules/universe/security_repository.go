package universe

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// securitiesColumns is the column list for the securities table, kept
// explicit so schema changes break loudly instead of silently reordering
// scans.
const securitiesColumns = `ticker, name, board, is_st, updated_at`

// SecurityRepository handles securities table operations.
type SecurityRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSecurityRepository creates a new security repository.
func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		db:  db,
		log: log.With().Str("repo", "security").Logger(),
	}
}

// UpsertAll inserts or replaces the given securities in one transaction.
func (r *SecurityRepository) UpsertAll(securities []Security) error {
	if len(securities) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if Commit succeeds

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO securities (ticker, name, board, is_st, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, sec := range securities {
		isST := 0
		if sec.IsST {
			isST = 1
		}
		_, err = stmt.Exec(
			sec.Ticker,
			sec.Name,
			string(sec.Board),
			isST,
			sec.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert security %s: %w", sec.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Info().Int("count", len(securities)).Msg("Upserted securities")
	return nil
}

// GetByTicker returns a security by ticker, or nil when unknown.
func (r *SecurityRepository) GetByTicker(ticker string) (*Security, error) {
	query := "SELECT " + securitiesColumns + " FROM securities WHERE ticker = ?"

	row := r.db.QueryRow(query, strings.TrimSpace(ticker))
	sec, err := scanSecurity(row)
	if err == sql.ErrNoRows {
		return nil, nil // Unknown ticker
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query security by ticker: %w", err)
	}

	return &sec, nil
}

// GetScannable returns the securities eligible for scanning: main-board and
// ChiNext names without an ST or delisting marker.
func (r *SecurityRepository) GetScannable() ([]Security, error) {
	query := "SELECT " + securitiesColumns + ` FROM securities
		WHERE is_st = 0 AND board IN (?, ?, ?)
		ORDER BY ticker`

	rows, err := r.db.Query(query,
		string(BoardShanghaiMain), string(BoardShenzhenMain), string(BoardChiNext))
	if err != nil {
		return nil, fmt.Errorf("failed to query scannable securities: %w", err)
	}
	defer rows.Close()

	return collectSecurities(rows)
}

// GetAll returns every known security ordered by ticker.
func (r *SecurityRepository) GetAll() ([]Security, error) {
	query := "SELECT " + securitiesColumns + " FROM securities ORDER BY ticker"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	return collectSecurities(rows)
}

// Count returns the number of known securities.
func (r *SecurityRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM securities").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count securities: %w", err)
	}
	return count, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSecurity(row rowScanner) (Security, error) {
	var sec Security
	var board string
	var isST int
	var updatedAt string

	if err := row.Scan(&sec.Ticker, &sec.Name, &board, &isST, &updatedAt); err != nil {
		return Security{}, err
	}

	sec.Board = Board(board)
	sec.IsST = isST != 0
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		sec.UpdatedAt = t
	}

	return sec, nil
}

func collectSecurities(rows *sql.Rows) ([]Security, error) {
	var securities []Security
	for rows.Next() {
		sec, err := scanSecurity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		securities = append(securities, sec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}

	return securities, nil
}
