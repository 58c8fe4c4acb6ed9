package scan

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
	"github.com/minqi/alphahunter/pkg/formulas"
)

// CrossoverConfig holds the moving-average windows of the crossover
// detector. The short window must stay below the long window.
type CrossoverConfig struct {
	ShortWindow int
	LongWindow  int
}

// DefaultCrossoverConfig returns the classic 5/20 golden-cross windows.
func DefaultCrossoverConfig() CrossoverConfig {
	return CrossoverConfig{ShortWindow: 5, LongWindow: 20}
}

// MACrossoverStrategy detects a golden cross: the short moving average
// closing above the long moving average on the most recent bar after sitting
// below it on the previous bar. Both comparisons are strict, so a series
// that merely touches the long average never fires.
type MACrossoverStrategy struct {
	cfg CrossoverConfig
	log zerolog.Logger
}

// NewMACrossoverStrategy creates a crossover strategy. Missing config values
// fall back to the 5/20 defaults.
func NewMACrossoverStrategy(cfg CrossoverConfig, log zerolog.Logger) *MACrossoverStrategy {
	defaults := DefaultCrossoverConfig()
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = defaults.ShortWindow
	}
	if cfg.LongWindow <= 0 {
		cfg.LongWindow = defaults.LongWindow
	}

	return &MACrossoverStrategy{
		cfg: cfg,
		log: log.With().Str("strategy", "ma_crossover").Logger(),
	}
}

// Name returns the strategy identifier.
func (s *MACrossoverStrategy) Name() string {
	return "ma_crossover"
}

// Scan computes both moving averages over every history and reports tickers
// whose latest bar completes a golden cross.
func (s *MACrossoverStrategy) Scan(histories map[string]domain.TickerHistory) ([]domain.Opportunity, error) {
	if s.cfg.ShortWindow >= s.cfg.LongWindow {
		return nil, fmt.Errorf("short window %d must be below long window %d", s.cfg.ShortWindow, s.cfg.LongWindow)
	}

	var opportunities []domain.Opportunity

	for _, ticker := range sortedTickers(histories) {
		history := histories[ticker]

		if history.Len() < s.cfg.LongWindow {
			s.log.Debug().
				Str("ticker", ticker).
				Int("bars", history.Len()).
				Int("required", s.cfg.LongWindow).
				Msg("History too short, skipping")
			continue
		}

		closes := history.Closes()
		shortMA := formulas.RollingMean(closes, s.cfg.ShortWindow)
		longMA := formulas.RollingMean(closes, s.cfg.LongWindow)

		t := len(closes) - 1
		crossedNow := shortMA[t] > longMA[t]
		belowBefore := shortMA[t-1] < longMA[t-1]
		if !crossedNow || !belowBefore {
			continue
		}

		latest := history.Last()
		historyRef := history
		opportunities = append(opportunities, domain.Opportunity{
			Ticker:      ticker,
			Strategy:    s.Name(),
			Kind:        domain.KindMACrossover,
			SignalDate:  latest.Date,
			SignalPrice: latest.Close,
			Description: fmt.Sprintf(
				"MA%d crossed above MA%d (%.2f > %.2f)",
				s.cfg.ShortWindow, s.cfg.LongWindow, shortMA[t], longMA[t]),
			Crossover: &domain.CrossoverDetails{
				ShortWindow: s.cfg.ShortWindow,
				LongWindow:  s.cfg.LongWindow,
				ShortMA:     shortMA[t],
				LongMA:      longMA[t],
			},
			History: &historyRef,
		})

		s.log.Info().
			Str("ticker", ticker).
			Str("date", latest.Date).
			Float64("short_ma", shortMA[t]).
			Float64("long_ma", longMA[t]).
			Msg("Golden cross detected")
	}

	return opportunities, nil
}
