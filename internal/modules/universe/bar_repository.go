package universe

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
)

// barColumns is the column list for the daily_bars table.
const barColumns = `date, open, high, low, close, preclose, volume, amount,
turn, pct_chg, trade_status, pe_ttm, pb_mrq, ps_ttm, pcf_ncf_ttm`

// BarRepository handles daily bar storage, keyed (ticker, date).
type BarRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewBarRepository creates a new daily bar repository.
func NewBarRepository(db *sql.DB, log zerolog.Logger) *BarRepository {
	return &BarRepository{
		db:  db,
		log: log.With().Str("repo", "daily_bars").Logger(),
	}
}

// UpsertBars writes the bars for a ticker in one transaction. Re-running a
// sync over an already stored range replaces rows without duplicating them.
func (r *BarRepository) UpsertBars(ticker string, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if Commit succeeds

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_bars
		(ticker, date, open, high, low, close, preclose, volume, amount,
		 turn, pct_chg, trade_status, pe_ttm, pb_mrq, ps_ttm, pcf_ncf_ttm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		_, err = stmt.Exec(
			ticker,
			bar.Date,
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.Preclose,
			bar.Volume,
			bar.Amount,
			bar.Turn,
			bar.PctChg,
			bar.TradeStatus,
			nullFloat(bar.PETTM),
			nullFloat(bar.PBMRQ),
			nullFloat(bar.PSTTM),
			nullFloat(bar.PCFNcfTTM),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert bar %s %s: %w", ticker, bar.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Debug().
		Str("ticker", ticker).
		Int("count", len(bars)).
		Msg("Upserted daily bars")
	return nil
}

// History returns the trailing limit bars for a ticker in chronological
// order. A limit of zero or below returns the full stored history.
func (r *BarRepository) History(ticker string, limit int) (domain.TickerHistory, error) {
	query := "SELECT " + barColumns + ` FROM daily_bars
		WHERE ticker = ?
		ORDER BY date DESC`
	args := []interface{}{ticker}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return domain.TickerHistory{}, fmt.Errorf("failed to query daily bars: %w", err)
	}
	defer rows.Close()

	var bars []domain.PriceBar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return domain.TickerHistory{}, fmt.Errorf("failed to scan daily bar: %w", err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return domain.TickerHistory{}, fmt.Errorf("error iterating daily bars: %w", err)
	}

	// Rows arrive newest first; flip to chronological order
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	return domain.TickerHistory{Ticker: ticker, Bars: bars}, nil
}

// Histories loads the trailing limit bars for every given ticker. Tickers
// with no stored bars are omitted from the result.
func (r *BarRepository) Histories(tickers []string, limit int) (map[string]domain.TickerHistory, error) {
	histories := make(map[string]domain.TickerHistory, len(tickers))
	for _, ticker := range tickers {
		history, err := r.History(ticker, limit)
		if err != nil {
			return nil, err
		}
		if history.Len() > 0 {
			histories[ticker] = history
		}
	}
	return histories, nil
}

// LatestDate returns the most recent stored bar date for a ticker, or the
// empty string when nothing is stored yet.
func (r *BarRepository) LatestDate(ticker string) (string, error) {
	var date sql.NullString
	err := r.db.QueryRow(
		"SELECT MAX(date) FROM daily_bars WHERE ticker = ?", ticker,
	).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to query latest bar date: %w", err)
	}
	if !date.Valid {
		return "", nil
	}
	return date.String, nil
}

// CountBars returns the number of stored bars for a ticker.
func (r *BarRepository) CountBars(ticker string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM daily_bars WHERE ticker = ?", ticker,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count daily bars: %w", err)
	}
	return count, nil
}

func scanBar(rows *sql.Rows) (domain.PriceBar, error) {
	var bar domain.PriceBar
	var pe, pb, ps, pcf sql.NullFloat64

	err := rows.Scan(
		&bar.Date,
		&bar.Open,
		&bar.High,
		&bar.Low,
		&bar.Close,
		&bar.Preclose,
		&bar.Volume,
		&bar.Amount,
		&bar.Turn,
		&bar.PctChg,
		&bar.TradeStatus,
		&pe,
		&pb,
		&ps,
		&pcf,
	)
	if err != nil {
		return domain.PriceBar{}, err
	}

	bar.PETTM = floatPtr(pe)
	bar.PBMRQ = floatPtr(pb)
	bar.PSTTM = floatPtr(ps)
	bar.PCFNcfTTM = floatPtr(pcf)

	return bar, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
