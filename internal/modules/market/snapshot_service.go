// Package market builds the present-moment price table for the eligible
// ticker universe and assembles the per-ticker histories that scans run on.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
)

// defaultChunkSize bounds one quote request; the upstream caps batch quotes
// at 100 secids.
const defaultChunkSize = 100

// SnapshotService produces a market snapshot for the scannable universe in
// bounded-size chunks, tolerating partial upstream failure. Retrying a whole
// failed snapshot is the caller's concern, not this service's.
type SnapshotService struct {
	quotes     QuoteSource
	securities UniverseSource
	log        zerolog.Logger
	chunkSize  int
}

// NewSnapshotService creates a snapshot service. A chunkSize of zero or less
// falls back to the default of 100.
func NewSnapshotService(quotes QuoteSource, securities UniverseSource, chunkSize int, log zerolog.Logger) *SnapshotService {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &SnapshotService{
		quotes:     quotes,
		securities: securities,
		log:        log.With().Str("component", "snapshot_service").Logger(),
		chunkSize:  chunkSize,
	}
}

// Snapshot builds the price table for the current session.
//
// The trading calendar anchors the snapshot: fewer than two resolvable dates
// means the session cannot be placed against its prior close, so the cycle
// is abandoned with an empty table instead of guessing. Chunk failures and
// per-ticker gaps only shrink the table, never abort it.
func (s *SnapshotService) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	dates, err := s.quotes.TradingDates(ctx, 2)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("failed to resolve trading calendar: %w", err)
	}
	if len(dates) < 2 {
		s.log.Error().Int("dates", len(dates)).Msg("Trading calendar too short, skipping this cycle")
		return domain.MarketSnapshot{TakenAt: time.Now()}, nil
	}

	snapshot := domain.MarketSnapshot{
		TakenAt:  time.Now(),
		Date:     dates[len(dates)-1],
		PrevDate: dates[len(dates)-2],
	}

	securities, err := s.securities.GetScannable()
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("failed to load ticker universe: %w", err)
	}
	if len(securities) == 0 {
		s.log.Warn().Msg("Ticker universe is empty, nothing to snapshot")
		return snapshot, nil
	}

	tickers := make([]string, len(securities))
	for i, sec := range securities {
		tickers[i] = sec.Ticker
	}

	snapshot.Rows = make([]domain.SnapshotRow, 0, len(tickers))
	for _, chunk := range chunkTickers(tickers, s.chunkSize) {
		quotes, err := s.quotes.QuoteBatch(ctx, chunk)
		if err != nil {
			s.log.Error().Err(err).Int("chunk_size", len(chunk)).Msg("Quote chunk failed, skipping")
			continue
		}
		if len(quotes) == 0 {
			s.log.Warn().Int("chunk_size", len(chunk)).Msg("Quote chunk returned no data")
			continue
		}

		for _, q := range quotes {
			if q.Preclose <= 0 {
				s.log.Debug().Str("ticker", q.Ticker).Msg("No previous close, ticker dropped this cycle")
				continue
			}
			if q.Price <= 0 {
				// Suspended or not yet traded this session
				continue
			}
			snapshot.Rows = append(snapshot.Rows, domain.SnapshotRow{
				Ticker:    q.Ticker,
				Name:      q.Name,
				Date:      snapshot.Date,
				Price:     q.Price,
				Preclose:  q.Preclose,
				Open:      q.Open,
				High:      q.High,
				Low:       q.Low,
				ChangePct: (q.Price/q.Preclose - 1) * 100,
				Amount:    q.Amount,
				Volume:    q.Volume,
			})
		}
	}

	s.log.Info().
		Int("universe", len(tickers)).
		Int("rows", len(snapshot.Rows)).
		Str("date", snapshot.Date).
		Msg("Market snapshot built")

	return snapshot, nil
}

// chunkTickers splits tickers into consecutive slices of at most size each
func chunkTickers(tickers []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(tickers); start += size {
		end := start + size
		if end > len(tickers) {
			end = len(tickers)
		}
		chunks = append(chunks, tickers[start:end])
	}
	return chunks
}
