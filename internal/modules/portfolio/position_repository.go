// Package portfolio manages the manual position ledger and the exit-rule
// pass that runs against it each scan cycle.
package portfolio

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
)

// positionsColumns is the column list for the positions table. Order must
// match scanPosition.
const positionsColumns = `id, ticker, buy_price, shares, status, created_at, closed_at`

// PositionRepository handles position ledger database operations
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// Create records a new open position and returns it with its assigned id.
func (r *PositionRepository) Create(ticker string, buyPrice float64, shares int64) (domain.Position, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return domain.Position{}, fmt.Errorf("position ticker is required")
	}
	if buyPrice <= 0 {
		return domain.Position{}, fmt.Errorf("buy price must be positive, got %f", buyPrice)
	}
	if shares <= 0 {
		return domain.Position{}, fmt.Errorf("share count must be positive, got %d", shares)
	}

	now := time.Now().UTC()

	result, err := r.db.Exec(
		`INSERT INTO positions (ticker, buy_price, shares, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		ticker, buyPrice, shares, string(domain.PositionOpen), now.Format(time.RFC3339),
	)
	if err != nil {
		return domain.Position{}, fmt.Errorf("failed to create position: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Position{}, fmt.Errorf("failed to read new position id: %w", err)
	}

	r.log.Info().Str("ticker", ticker).Float64("buy_price", buyPrice).Int64("shares", shares).Msg("Position opened")

	return domain.Position{
		ID:        id,
		Ticker:    ticker,
		BuyPrice:  buyPrice,
		Shares:    shares,
		Status:    domain.PositionOpen,
		CreatedAt: now,
	}, nil
}

// GetByID returns one position, or nil when no such row exists.
func (r *PositionRepository) GetByID(id int64) (*domain.Position, error) {
	row := r.db.QueryRow(`SELECT `+positionsColumns+` FROM positions WHERE id = ?`, id)

	position, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %d: %w", id, err)
	}
	return &position, nil
}

// ListOpen returns all open positions in creation order.
func (r *PositionRepository) ListOpen() ([]domain.Position, error) {
	rows, err := r.db.Query(
		`SELECT `+positionsColumns+` FROM positions WHERE status = ? ORDER BY id`,
		string(domain.PositionOpen),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open positions: %w", err)
	}
	defer rows.Close()

	return collectPositions(rows)
}

// ListAll returns every position, open and closed, newest first.
func (r *PositionRepository) ListAll() ([]domain.Position, error) {
	rows, err := r.db.Query(`SELECT ` + positionsColumns + ` FROM positions ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	return collectPositions(rows)
}

// Close marks an open position closed. Closing a position that is not open
// is an error; closed is a terminal state.
func (r *PositionRepository) Close(id int64) error {
	result, err := r.db.Exec(
		`UPDATE positions SET status = ?, closed_at = ? WHERE id = ? AND status = ?`,
		string(domain.PositionClosed), time.Now().UTC().Format(time.RFC3339), id, string(domain.PositionOpen),
	)
	if err != nil {
		return fmt.Errorf("failed to close position %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm position close: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("position %d is not open", id)
	}

	r.log.Info().Int64("id", id).Msg("Position closed")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (domain.Position, error) {
	var p domain.Position
	var status, createdAt string
	var closedAt sql.NullString

	err := row.Scan(&p.ID, &p.Ticker, &p.BuyPrice, &p.Shares, &status, &createdAt, &closedAt)
	if err != nil {
		return domain.Position{}, err
	}

	p.Status = domain.PositionStatus(status)
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = ts
	}
	if closedAt.Valid {
		if ts, err := time.Parse(time.RFC3339, closedAt.String); err == nil {
			p.ClosedAt = &ts
		}
	}
	return p, nil
}

func collectPositions(rows *sql.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
