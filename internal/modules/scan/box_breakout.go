package scan

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
	"github.com/minqi/alphahunter/pkg/formulas"
)

// BoxBreakoutConfig holds the tunables of the box-breakout detector.
type BoxBreakoutConfig struct {
	Window       int     // Consolidation window length in bars
	PriceMult    float64 // Breakout close must exceed box high × this (1.0 = strict close above)
	VolumeMult   float64 // Breakout volume must exceed consolidation average × this
	AmplitudeMax float64 // Reject boxes wider than this fraction of box low
	AmplitudeMin float64 // Reject boxes narrower than this; 0 disables the lower bound
}

// DefaultBoxBreakoutConfig returns the reference parameters: a 60-session
// box, strict close above the box high, 1.5x volume expansion, and boxes
// wider than 50% of the box low rejected as trending rather than
// consolidating. The lower amplitude bound is off by default; enable it to
// also drop near-flat dead stock.
func DefaultBoxBreakoutConfig() BoxBreakoutConfig {
	return BoxBreakoutConfig{
		Window:       60,
		PriceMult:    1.0,
		VolumeMult:   1.5,
		AmplitudeMax: 0.5,
		AmplitudeMin: 0,
	}
}

// BoxBreakoutStrategy identifies consolidation-then-breakout patterns: a
// price range ("box") held over the consolidation window, broken by the most
// recent bar on both price and volume.
//
// Only the most recent bar is evaluated as a breakout candidate; the
// detector is not a historical back-scan, so it emits at most one
// opportunity per ticker per scan.
type BoxBreakoutStrategy struct {
	cfg BoxBreakoutConfig
	log zerolog.Logger
}

// NewBoxBreakoutStrategy creates a box-breakout strategy. Missing config
// values fall back to the reference defaults.
func NewBoxBreakoutStrategy(cfg BoxBreakoutConfig, log zerolog.Logger) *BoxBreakoutStrategy {
	defaults := DefaultBoxBreakoutConfig()
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.PriceMult <= 0 {
		cfg.PriceMult = defaults.PriceMult
	}
	if cfg.VolumeMult <= 0 {
		cfg.VolumeMult = defaults.VolumeMult
	}
	if cfg.AmplitudeMax <= 0 {
		cfg.AmplitudeMax = defaults.AmplitudeMax
	}

	return &BoxBreakoutStrategy{
		cfg: cfg,
		log: log.With().Str("strategy", "box_breakout").Logger(),
	}
}

// Name returns the strategy identifier.
func (s *BoxBreakoutStrategy) Name() string {
	return "box_breakout"
}

// Scan evaluates the trailing window of every history for a fresh breakout.
func (s *BoxBreakoutStrategy) Scan(histories map[string]domain.TickerHistory) ([]domain.Opportunity, error) {
	var opportunities []domain.Opportunity

	for _, ticker := range sortedTickers(histories) {
		history := histories[ticker]

		// The window needs W consolidation bars plus the breakout bar
		if history.Len() < s.cfg.Window+1 {
			s.log.Debug().
				Str("ticker", ticker).
				Int("bars", history.Len()).
				Int("required", s.cfg.Window+1).
				Msg("History too short, skipping")
			continue
		}

		window := history.Tail(s.cfg.Window + 1)
		consolidation := window.Bars[:s.cfg.Window]
		breakout := window.Bars[s.cfg.Window]

		boxHigh := consolidation[0].High
		boxLow := consolidation[0].Low
		volumes := make([]float64, len(consolidation))
		for i, bar := range consolidation {
			if bar.High > boxHigh {
				boxHigh = bar.High
			}
			if bar.Low < boxLow {
				boxLow = bar.Low
			}
			volumes[i] = float64(bar.Volume)
		}

		if boxLow <= 0 {
			continue
		}

		// The amplitude band separates a genuine consolidation from a
		// violently trending range (upper bound) and, when the lower
		// bound is enabled, from near-flat dead stock.
		amplitude := (boxHigh - boxLow) / boxLow
		if amplitude > s.cfg.AmplitudeMax {
			s.log.Debug().
				Str("ticker", ticker).
				Float64("amplitude", amplitude).
				Msg("Box amplitude above acceptance band, skipping")
			continue
		}
		if s.cfg.AmplitudeMin > 0 && amplitude < s.cfg.AmplitudeMin {
			s.log.Debug().
				Str("ticker", ticker).
				Float64("amplitude", amplitude).
				Msg("Box amplitude below acceptance band, skipping")
			continue
		}

		avgVolume := formulas.Mean(volumes)

		priceBreak := breakout.Close > boxHigh*s.cfg.PriceMult && breakout.High > boxHigh
		volumeBreak := float64(breakout.Volume) > avgVolume*s.cfg.VolumeMult
		if !priceBreak || !volumeBreak {
			continue
		}

		historyRef := history
		opportunities = append(opportunities, domain.Opportunity{
			Ticker:      ticker,
			Strategy:    s.Name(),
			Kind:        domain.KindBoxBreakout,
			SignalDate:  breakout.Date,
			SignalPrice: breakout.Close,
			Description: fmt.Sprintf(
				"Close %.2f broke above the %d-session box high %.2f on %.1fx average volume",
				breakout.Close, s.cfg.Window, boxHigh, float64(breakout.Volume)/avgVolume),
			Breakout: &domain.BreakoutDetails{
				BoxHigh:           boxHigh,
				BoxLow:            boxLow,
				ConsolidationDays: s.cfg.Window,
				AvgVolume:         avgVolume,
				BreakoutVolume:    breakout.Volume,
			},
			History: &historyRef,
		})

		s.log.Info().
			Str("ticker", ticker).
			Str("date", breakout.Date).
			Float64("close", breakout.Close).
			Float64("box_high", boxHigh).
			Msg("Box breakout detected")
	}

	return opportunities, nil
}
