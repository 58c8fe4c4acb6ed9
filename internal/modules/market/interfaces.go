package market

import (
	"context"

	"github.com/minqi/alphahunter/internal/clients/eastmoney"
	"github.com/minqi/alphahunter/internal/domain"
	"github.com/minqi/alphahunter/internal/modules/universe"
)

// QuoteSource defines the live-quote side of the market data client needed
// by the snapshot pipeline. Implemented by eastmoney.Client; mocked in tests.
type QuoteSource interface {
	// TradingDates returns the most recent count trading dates in
	// chronological order.
	TradingDates(ctx context.Context, count int) ([]string, error)

	// QuoteBatch fetches live quotes for up to 100 tickers in one request.
	QuoteBatch(ctx context.Context, tickers []string) ([]eastmoney.Quote, error)
}

// HistorySource fetches daily bars from the upstream market data source.
// Implemented by eastmoney.Client.
type HistorySource interface {
	DailyBars(ctx context.Context, ticker, beg, end string) ([]domain.PriceBar, error)
}

// UniverseSource yields the eligible securities for scanning.
// Implemented by universe.SecurityRepository.
type UniverseSource interface {
	GetScannable() ([]universe.Security, error)
}

// HistoryStore is the local daily-bar archive backing scan histories.
// Implemented by universe.BarRepository.
type HistoryStore interface {
	Histories(tickers []string, limit int) (map[string]domain.TickerHistory, error)
	UpsertBars(ticker string, bars []domain.PriceBar) error
}
