package scan

import (
	"time"

	"github.com/minqi/alphahunter/internal/domain"
)

// barDate returns the fixture date for bar index i.
func barDate(i int) string {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("2006-01-02")
}

// flatBars builds n consecutive tradable bars sharing the given range and
// volume, dated sequentially.
func flatBars(n int, high, low, close float64, volume int64) []domain.PriceBar {
	bars := make([]domain.PriceBar, n)
	for i := range bars {
		bars[i] = domain.PriceBar{
			Date:        barDate(i),
			Open:        close,
			High:        high,
			Low:         low,
			Close:       close,
			Volume:      volume,
			TradeStatus: domain.TradeStatusTradable,
		}
	}
	return bars
}

// closesHistory builds a history whose bars carry the given closing prices.
func closesHistory(ticker string, closes []float64) domain.TickerHistory {
	bars := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = domain.PriceBar{
			Date:        barDate(i),
			Open:        c,
			High:        c,
			Low:         c,
			Close:       c,
			Volume:      1000,
			TradeStatus: domain.TradeStatusTradable,
		}
	}
	return domain.TickerHistory{Ticker: ticker, Bars: bars}
}

// historiesOf keys the given histories by ticker.
func historiesOf(histories ...domain.TickerHistory) map[string]domain.TickerHistory {
	out := make(map[string]domain.TickerHistory, len(histories))
	for _, h := range histories {
		out[h.Ticker] = h
	}
	return out
}
