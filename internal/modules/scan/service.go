package scan

import (
	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
)

// Service runs every registered strategy over a shared set of histories and
// concatenates the results in registration order.
type Service struct {
	registry *Registry
	log      zerolog.Logger
}

// NewService creates the scan service.
func NewService(registry *Registry, log zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		log:      log.With().Str("component", "scan_service").Logger(),
	}
}

// ScanAll feeds the histories to each strategy in turn. A failing strategy
// is logged and skipped so one bad detector never blanks the whole scan;
// duplicate signals from different strategies are kept, letting the reader
// see independent confirmation on the same ticker.
func (s *Service) ScanAll(histories map[string]domain.TickerHistory) []domain.Opportunity {
	opportunities := make([]domain.Opportunity, 0)

	for _, strategy := range s.registry.List() {
		found, err := strategy.Scan(histories)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("strategy", strategy.Name()).
				Msg("Strategy failed")
			continue
		}
		opportunities = append(opportunities, found...)
	}

	s.log.Info().
		Int("tickers", len(histories)).
		Int("opportunities", len(opportunities)).
		Msg("Scan complete")

	return opportunities
}
