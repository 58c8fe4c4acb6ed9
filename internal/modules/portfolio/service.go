package portfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/clients/eastmoney"
	"github.com/minqi/alphahunter/internal/domain"
)

// quoteBatchLimit mirrors the upstream's cap on one batch quote request.
const quoteBatchLimit = 100

// PriceSource supplies current prices for the exit pass.
// Implemented by eastmoney.Client; mocked in tests.
type PriceSource interface {
	QuoteBatch(ctx context.Context, tickers []string) ([]eastmoney.Quote, error)
}

// Service runs the exit-rule pass: every open position is priced and checked
// against the stop-loss and take-profit thresholds, triggered positions are
// closed and a sell alert is recorded for the cycle's result.
//
// Positions are quoted directly rather than through the scan snapshot, so a
// holding stays under watch even after its ticker drops out of the scannable
// universe.
type Service struct {
	positions *PositionRepository
	prices    PriceSource
	log       zerolog.Logger
	rules     ExitRules
}

// NewService creates a portfolio service
func NewService(positions *PositionRepository, prices PriceSource, rules ExitRules, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		prices:    prices,
		log:       log.With().Str("component", "portfolio_service").Logger(),
		rules:     rules,
	}
}

// Positions exposes the underlying ledger for the HTTP handlers.
func (s *Service) Positions() *PositionRepository {
	return s.positions
}

// CheckExits evaluates every open position and closes the ones whose exit
// rule fired. A position that cannot be priced this cycle is skipped with a
// warning; it stays open and is re-checked next cycle.
func (s *Service) CheckExits(ctx context.Context) ([]domain.SellAlert, error) {
	open, err := s.positions.ListOpen()
	if err != nil {
		return nil, fmt.Errorf("failed to load open positions: %w", err)
	}
	if len(open) == 0 {
		return nil, nil
	}

	prices, err := s.currentPrices(ctx, open)
	if err != nil {
		return nil, err
	}

	var alerts []domain.SellAlert
	for _, position := range open {
		price, ok := prices[position.Ticker]
		if !ok {
			s.log.Warn().Str("ticker", position.Ticker).Msg("No current price, exit check skipped")
			continue
		}

		signal := s.rules.Evaluate(position, price)
		if !signal.Triggered {
			continue
		}

		if err := s.positions.Close(position.ID); err != nil {
			// Leave the position for the next cycle rather than
			// alerting on a close that did not happen
			s.log.Error().Err(err).Int64("id", position.ID).Msg("Failed to close triggered position")
			continue
		}

		s.log.Info().
			Str("ticker", position.Ticker).
			Str("reason", string(signal.Reason)).
			Float64("buy_price", position.BuyPrice).
			Float64("sell_price", price).
			Float64("profit_ratio", signal.ProfitRatio).
			Msg("Exit rule fired")

		alerts = append(alerts, domain.SellAlert{
			Ticker:    position.Ticker,
			Reason:    signal.Reason,
			BuyPrice:  position.BuyPrice,
			SellPrice: price,
			ProfitPct: signal.ProfitRatio * 100,
		})
	}

	return alerts, nil
}

// currentPrices quotes the open positions' tickers, deduplicated, and maps
// each to its live price. Unpriceable tickers are simply absent.
func (s *Service) currentPrices(ctx context.Context, open []domain.Position) (map[string]float64, error) {
	seen := make(map[string]bool, len(open))
	tickers := make([]string, 0, len(open))
	for _, p := range open {
		if !seen[p.Ticker] {
			seen[p.Ticker] = true
			tickers = append(tickers, p.Ticker)
		}
	}

	prices := make(map[string]float64, len(tickers))
	for start := 0; start < len(tickers); start += quoteBatchLimit {
		end := start + quoteBatchLimit
		if end > len(tickers) {
			end = len(tickers)
		}

		quotes, err := s.prices.QuoteBatch(ctx, tickers[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to price open positions: %w", err)
		}
		for _, q := range quotes {
			if q.Price > 0 {
				prices[q.Ticker] = q.Price
			}
		}
	}
	return prices, nil
}
