package report

import (
	"context"

	"github.com/minqi/alphahunter/internal/clients/eastmoney"
)

// FactSource provides the per-ticker lookups behind the enrichment blocks.
// Implemented by eastmoney.Client; mocked in tests.
type FactSource interface {
	// CompanyFactsFor returns the profile and valuation fields for one
	// ticker.
	CompanyFactsFor(ctx context.Context, ticker string) (eastmoney.CompanyFacts, error)

	// FundFlowFor returns the current session's money-flow figures.
	FundFlowFor(ctx context.Context, ticker string) (eastmoney.FundFlowStat, error)

	// NewsTitlesFor returns up to limit recent headlines.
	NewsTitlesFor(ctx context.Context, ticker string, limit int) ([]string, error)
}
