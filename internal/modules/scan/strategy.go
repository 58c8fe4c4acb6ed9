// Package scan implements the opportunity-scanning engine: the strategy
// contract, the registry of active detectors, and the aggregator that runs
// them over batches of ticker histories.
package scan

import (
	"sort"

	"github.com/minqi/alphahunter/internal/domain"
)

// Strategy is the interface that all detection rules implement.
// Each strategy turns a batch of per-ticker histories into opportunity
// records of its own kind.
//
// Strategies must be stateless across invocations except for their fixed
// configuration (window sizes, thresholds) set at construction.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Scan evaluates every ticker's history and returns the opportunities
	// found. Histories shorter than the strategy's minimum window are
	// skipped per ticker, never treated as errors.
	Scan(histories map[string]domain.TickerHistory) ([]domain.Opportunity, error)
}

// sortedTickers returns the map keys in sorted order so a scan over an
// unchanged set of histories always yields an identical opportunity list.
func sortedTickers(histories map[string]domain.TickerHistory) []string {
	tickers := make([]string, 0, len(histories))
	for ticker := range histories {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}
