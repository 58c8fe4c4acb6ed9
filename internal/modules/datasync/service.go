// Package datasync keeps the local market archive current: the securities
// table from the exchange listing scan, and the daily bar archive from
// incremental kline fetches.
package datasync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/modules/universe"
)

const (
	// defaultBackfillDays is the calendar window fetched for a ticker with
	// no archived bars yet.
	defaultBackfillDays = 365

	// defaultPoliteness spaces per-ticker history fetches on top of the
	// client's own request pacing.
	defaultPoliteness = 100 * time.Millisecond

	dateLayout = "2006-01-02"
)

// Service runs the pre-open archive sync. Per-ticker failures are logged
// and skipped; only foundational failures (calendar, universe load) abort
// the run.
type Service struct {
	source     KlineSource
	securities SecurityStore
	bars       BarStore
	backfill   int
	politeness time.Duration
	log        zerolog.Logger
}

// NewService creates the sync service. backfillDays and politeness fall back
// to their defaults when out of range.
func NewService(source KlineSource, securities SecurityStore, bars BarStore, backfillDays int, politeness time.Duration, log zerolog.Logger) *Service {
	if backfillDays <= 0 {
		backfillDays = defaultBackfillDays
	}
	if politeness < 0 {
		politeness = defaultPoliteness
	}

	return &Service{
		source:     source,
		securities: securities,
		bars:       bars,
		backfill:   backfillDays,
		politeness: politeness,
		log:        log.With().Str("component", "datasync").Logger(),
	}
}

// Run refreshes the securities table and then brings every scannable
// ticker's archive up to the latest session. A failed universe refresh is
// not fatal: the bar sync still runs against the stored universe.
func (s *Service) Run(ctx context.Context) error {
	if err := s.RefreshUniverse(ctx); err != nil {
		s.log.Error().Err(err).Msg("Universe refresh failed, syncing with the stored universe")
	}

	return s.SyncBars(ctx)
}

// RefreshUniverse replaces the securities table with the current exchange
// listing scan, reclassifying every name's board and ST flag.
func (s *Service) RefreshUniverse(ctx context.Context) error {
	listings, err := s.source.ListSecurities(ctx)
	if err != nil {
		return fmt.Errorf("failed to list securities: %w", err)
	}
	if len(listings) == 0 {
		return fmt.Errorf("listing scan returned no securities")
	}

	securities := make([]universe.Security, 0, len(listings))
	for _, l := range listings {
		securities = append(securities, universe.NewSecurity(l.Ticker, l.Name))
	}

	if err := s.securities.UpsertAll(securities); err != nil {
		return fmt.Errorf("failed to store securities: %w", err)
	}

	s.log.Info().Int("count", len(securities)).Msg("Securities table refreshed")
	return nil
}

// SyncBars brings the daily bar archive up to the most recent session for
// every scannable ticker.
func (s *Service) SyncBars(ctx context.Context) error {
	dates, err := s.source.TradingDates(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to resolve latest trading date: %w", err)
	}
	if len(dates) == 0 {
		return fmt.Errorf("trading calendar is empty")
	}
	target := dates[len(dates)-1]

	securities, err := s.securities.GetScannable()
	if err != nil {
		return fmt.Errorf("failed to load ticker universe: %w", err)
	}

	var synced, current, skipped, rows int
	for _, sec := range securities {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, fetched, err := s.syncTicker(ctx, sec.Ticker, target)
		if err != nil {
			skipped++
			s.log.Warn().Err(err).Str("ticker", sec.Ticker).Msg("Ticker sync failed, skipping")
		} else if n > 0 {
			synced++
			rows += n
		} else {
			current++
		}

		if fetched && s.politeness > 0 {
			time.Sleep(s.politeness)
		}
	}

	s.log.Info().
		Str("date", target).
		Int("synced", synced).
		Int("current", current).
		Int("skipped", skipped).
		Int("rows", rows).
		Msg("Daily bar sync finished")

	return nil
}

// syncTicker archives the bars a ticker is missing up to target. It returns
// the number of rows added and whether the upstream was actually hit, so
// the caller can pace only real fetches.
func (s *Service) syncTicker(ctx context.Context, ticker, target string) (int, bool, error) {
	latest, err := s.bars.LatestDate(ticker)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read archive state: %w", err)
	}

	// Dates are ISO formatted, so string order is date order.
	if latest != "" && latest >= target {
		return 0, false, nil
	}

	var beg string
	if latest == "" {
		beg = time.Now().AddDate(0, 0, -s.backfill).Format(dateLayout)
	} else {
		d, err := time.Parse(dateLayout, latest)
		if err != nil {
			return 0, false, fmt.Errorf("archive has a malformed date %q: %w", latest, err)
		}
		beg = d.AddDate(0, 0, 1).Format(dateLayout)
	}

	bars, err := s.source.DailyBars(ctx, ticker, beg, target)
	if err != nil {
		return 0, true, err
	}
	if len(bars) == 0 {
		return 0, true, nil
	}

	if err := s.bars.UpsertBars(ticker, bars); err != nil {
		return 0, true, fmt.Errorf("failed to archive bars: %w", err)
	}

	return len(bars), true, nil
}
