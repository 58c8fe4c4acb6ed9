package datasync

import (
	"context"

	"github.com/minqi/alphahunter/internal/clients/eastmoney"
	"github.com/minqi/alphahunter/internal/domain"
	"github.com/minqi/alphahunter/internal/modules/universe"
)

// KlineSource is the upstream side of the sync: the exchange listing scan,
// the trading calendar and per-ticker daily bars. Implemented by
// eastmoney.Client; mocked in tests.
type KlineSource interface {
	TradingDates(ctx context.Context, count int) ([]string, error)
	ListSecurities(ctx context.Context) ([]eastmoney.Listing, error)
	DailyBars(ctx context.Context, ticker, beg, end string) ([]domain.PriceBar, error)
}

// SecurityStore is the securities table being refreshed and read back.
// Implemented by universe.SecurityRepository.
type SecurityStore interface {
	UpsertAll(securities []universe.Security) error
	GetScannable() ([]universe.Security, error)
}

// BarStore is the daily bar archive. Implemented by universe.BarRepository.
type BarStore interface {
	LatestDate(ticker string) (string, error)
	UpsertBars(ticker string, bars []domain.PriceBar) error
}
