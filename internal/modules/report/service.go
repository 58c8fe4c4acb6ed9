package report

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
)

// Service annotates a scan cycle's raw opportunities with enrichment and
// commentary. Each record is processed independently; partial upstream
// failures surface as empty enrichment blocks or placeholder commentary,
// never as a lost opportunity.
type Service struct {
	enricher *Enricher
	analyzer *Analyzer
	log      zerolog.Logger
}

// NewService creates the annotation service.
func NewService(enricher *Enricher, analyzer *Analyzer, log zerolog.Logger) *Service {
	return &Service{
		enricher: enricher,
		analyzer: analyzer,
		log:      log.With().Str("component", "report_service").Logger(),
	}
}

// Annotate enriches and comments every opportunity in order. The returned
// records no longer reference the evaluated histories, so they are safe to
// serialize and to hold beyond the cycle.
func (s *Service) Annotate(ctx context.Context, opps []domain.Opportunity) []domain.AnalyzedOpportunity {
	if len(opps) == 0 {
		return nil
	}

	records := make([]domain.AnalyzedOpportunity, 0, len(opps))
	for _, opp := range opps {
		enr := s.enricher.Enrich(ctx, opp.Ticker)
		analysis := s.analyzer.Analyze(ctx, opp, enr)

		// The history served its purpose during analysis; drop the
		// reference so results do not pin a cycle's worth of bars.
		opp.History = nil

		records = append(records, domain.AnalyzedOpportunity{
			Opportunity: opp,
			Enrichment:  &enr,
			AIAnalysis:  analysis,
		})
	}

	s.log.Info().Int("count", len(records)).Msg("Opportunities annotated")
	return records
}
