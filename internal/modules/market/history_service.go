package market

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
)

const (
	// defaultLookbackBars covers the widest scan window (a 60-session box
	// plus its breakout bar) with room for strategy reconfiguration.
	defaultLookbackBars = 120

	// coldFetchDays is the calendar span requested when a ticker has no
	// local bars at all.
	coldFetchDays = 500
)

// HistoryService assembles per-ticker price histories for scanning. Bars come
// from the local archive, kept fresh by the daily sync; tickers the archive
// has never seen are fetched from the upstream once and stored. The caller's
// market snapshot supplies the running session's bar, so histories end at the
// live price even mid-session.
type HistoryService struct {
	source   HistorySource
	store    HistoryStore
	log      zerolog.Logger
	lookback int
}

// NewHistoryService creates a history service. A lookback of zero or less
// falls back to the default window.
func NewHistoryService(source HistorySource, store HistoryStore, lookback int, log zerolog.Logger) *HistoryService {
	if lookback <= 0 {
		lookback = defaultLookbackBars
	}
	return &HistoryService{
		source:   source,
		store:    store,
		log:      log.With().Str("component", "history_service").Logger(),
		lookback: lookback,
	}
}

// HistoriesFor returns the trailing histories for the given tickers, each
// extended with the session bar from snap when one is present. Tickers whose
// cold fetch fails are dropped with a logged warning; they do not affect the
// rest of the batch.
func (s *HistoryService) HistoriesFor(ctx context.Context, tickers []string, snap domain.MarketSnapshot) (map[string]domain.TickerHistory, error) {
	histories, err := s.store.Histories(tickers, s.lookback)
	if err != nil {
		return nil, err
	}

	for _, ticker := range tickers {
		if h, ok := histories[ticker]; ok && h.Len() > 0 {
			continue
		}

		history, err := s.coldFetch(ctx, ticker)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("History unavailable, ticker skipped")
			delete(histories, ticker)
			continue
		}
		histories[ticker] = history
	}

	if !snap.Empty() {
		for ticker, history := range histories {
			row, ok := snap.Row(ticker)
			if !ok {
				continue
			}
			histories[ticker] = mergeSessionBar(history, row.Bar())
		}
	}

	return histories, nil
}

// coldFetch pulls a ticker's recent daily bars from the upstream and files
// them into the archive.
func (s *HistoryService) coldFetch(ctx context.Context, ticker string) (domain.TickerHistory, error) {
	beg := time.Now().AddDate(0, 0, -coldFetchDays).Format("2006-01-02")

	bars, err := s.source.DailyBars(ctx, ticker, beg, "")
	if err != nil {
		return domain.TickerHistory{}, err
	}

	if err := s.store.UpsertBars(ticker, bars); err != nil {
		// The fetched bars still serve this cycle
		s.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to archive fetched bars")
	}

	history := domain.TickerHistory{Ticker: ticker, Bars: bars}
	if history.Len() > s.lookback {
		history = history.Tail(s.lookback)
	}

	s.log.Debug().Str("ticker", ticker).Int("bars", history.Len()).Msg("Cold-fetched history")
	return history, nil
}

// mergeSessionBar appends the running session's bar to a history, replacing
// the final bar instead when the archive already holds that date.
func mergeSessionBar(history domain.TickerHistory, bar domain.PriceBar) domain.TickerHistory {
	if last := history.Last(); last != nil && last.Date == bar.Date {
		bars := make([]domain.PriceBar, len(history.Bars))
		copy(bars, history.Bars)
		bars[len(bars)-1] = bar
		return domain.TickerHistory{Ticker: history.Ticker, Bars: bars}
	}

	bars := make([]domain.PriceBar, 0, history.Len()+1)
	bars = append(bars, history.Bars...)
	bars = append(bars, bar)
	return domain.TickerHistory{Ticker: history.Ticker, Bars: bars}
}
