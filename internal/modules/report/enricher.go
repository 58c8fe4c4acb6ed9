// Package report turns raw scan opportunities into the enriched, annotated
// records that get persisted and pushed to the dashboard.
package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
)

// newsLimit caps the headlines carried per opportunity.
const newsLimit = 3

// Enricher gathers best-effort secondary-source context for one ticker:
// company profile, valuation multiples, recent headlines and session money
// flow. Each block degrades independently to its zero value when its lookup
// fails; nothing is ever fabricated and no failure aborts the other blocks.
type Enricher struct {
	facts FactSource
	log   zerolog.Logger
}

// NewEnricher creates an enricher backed by the given fact source.
func NewEnricher(facts FactSource, log zerolog.Logger) *Enricher {
	return &Enricher{
		facts: facts,
		log:   log.With().Str("component", "enricher").Logger(),
	}
}

// Enrich collects every block for one ticker. It always returns a usable
// value; on total upstream failure that value is simply empty.
func (e *Enricher) Enrich(ctx context.Context, ticker string) domain.Enrichment {
	var enr domain.Enrichment

	// Profile and valuation come from the same facts endpoint, so the two
	// blocks share one lookup and one failure mode.
	if facts, err := e.facts.CompanyFactsFor(ctx, ticker); err != nil {
		e.log.Warn().Err(err).Str("ticker", ticker).Msg("Company facts unavailable")
	} else {
		enr.CompanyProfile = domain.CompanyProfile{
			Industry:             facts.Industry,
			TotalMarketCap:       formatCap(facts.TotalCap),
			CirculatingMarketCap: formatCap(facts.FloatCap),
		}
		enr.Valuation = domain.ValuationSnapshot{
			PERatio: formatMultiple(facts.PETTM),
			PBRatio: formatMultiple(facts.PB),
			ROE:     formatPercent(facts.ROE),
		}
	}

	if news, err := e.facts.NewsTitlesFor(ctx, ticker, newsLimit); err != nil {
		e.log.Warn().Err(err).Str("ticker", ticker).Msg("News headlines unavailable")
	} else {
		enr.RecentNews = news
	}

	if flow, err := e.facts.FundFlowFor(ctx, ticker); err != nil {
		e.log.Warn().Err(err).Str("ticker", ticker).Msg("Fund flow unavailable")
	} else {
		enr.FundFlow = domain.FundFlow{
			MainNetInflow:       formatWan(flow.MainNetInflow),
			SuperLargeNetInflow: formatWan(flow.SuperLargeNetInflow),
		}
	}

	return enr
}

// formatCap renders a market cap in yuan as 亿 with two decimals. Zero means
// the upstream did not report the field and stays empty.
func formatCap(yuan float64) string {
	if yuan == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f亿", yuan/1e8)
}

// formatMultiple renders a valuation multiple; unreported values show as N/A.
func formatMultiple(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v)
}

func formatPercent(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", v)
}

// formatWan renders a money flow in yuan as 万 with two decimals. Unlike the
// caps a zero flow is a real observation, so it renders as 0.00万.
func formatWan(yuan float64) string {
	return fmt.Sprintf("%.2f万", yuan/1e4)
}
