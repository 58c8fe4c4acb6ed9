package market

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minqi/alphahunter/internal/clients/eastmoney"
	"github.com/minqi/alphahunter/internal/modules/universe"
)

var testCalendar = []string{"2025-01-03", "2025-01-06"}

type stubQuotes struct {
	quoteFn  func(call int, tickers []string) ([]eastmoney.Quote, error)
	datesErr error
	dates    []string
	batches  [][]string
}

func (s *stubQuotes) TradingDates(ctx context.Context, count int) ([]string, error) {
	return s.dates, s.datesErr
}

func (s *stubQuotes) QuoteBatch(ctx context.Context, tickers []string) ([]eastmoney.Quote, error) {
	s.batches = append(s.batches, tickers)
	if s.quoteFn != nil {
		return s.quoteFn(len(s.batches), tickers)
	}
	return echoQuotes(tickers), nil
}

// echoQuotes answers a batch with a well-formed quote per ticker
func echoQuotes(tickers []string) []eastmoney.Quote {
	quotes := make([]eastmoney.Quote, len(tickers))
	for i, ticker := range tickers {
		quotes[i] = eastmoney.Quote{
			Ticker:   ticker,
			Name:     "测试",
			Price:    10.5,
			Preclose: 10.0,
			Open:     10.0,
			High:     10.6,
			Low:      9.9,
			Amount:   1_050_000,
			Volume:   100_000,
		}
	}
	return quotes
}

type stubUniverse struct {
	err  error
	secs []universe.Security
}

func (s *stubUniverse) GetScannable() ([]universe.Security, error) {
	return s.secs, s.err
}

func securitiesOf(n int) []universe.Security {
	secs := make([]universe.Security, n)
	for i := range secs {
		secs[i] = universe.Security{
			Ticker: fmt.Sprintf("sz.%06d", i+1),
			Name:   fmt.Sprintf("股票%d", i+1),
			Board:  universe.BoardShenzhenMain,
		}
	}
	return secs
}

func TestSnapshotService_ChunksUniverse(t *testing.T) {
	quotes := &stubQuotes{dates: testCalendar}
	svc := NewSnapshotService(quotes, &stubUniverse{secs: securitiesOf(250)}, 100, zerolog.Nop())

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, quotes.batches, 3, "250 tickers at chunk size 100 should need exactly 3 requests")
	assert.Len(t, quotes.batches[0], 100)
	assert.Len(t, quotes.batches[1], 100)
	assert.Len(t, quotes.batches[2], 50)

	assert.Equal(t, "2025-01-06", snap.Date)
	assert.Equal(t, "2025-01-03", snap.PrevDate)
	require.Len(t, snap.Rows, 250)

	first := snap.Rows[0]
	assert.Equal(t, "sz.000001", first.Ticker)
	assert.Equal(t, "2025-01-06", first.Date)
	assert.InDelta(t, 5.0, first.ChangePct, 1e-9)
}

func TestSnapshotService_SkipsFailedChunks(t *testing.T) {
	quotes := &stubQuotes{
		dates: testCalendar,
		quoteFn: func(call int, tickers []string) ([]eastmoney.Quote, error) {
			if call == 2 {
				return nil, fmt.Errorf("upstream hiccup")
			}
			return echoQuotes(tickers), nil
		},
	}
	svc := NewSnapshotService(quotes, &stubUniverse{secs: securitiesOf(250)}, 100, zerolog.Nop())

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err, "a failed chunk must not abort the snapshot")

	assert.Len(t, quotes.batches, 3, "chunks after the failure are still processed")
	assert.Len(t, snap.Rows, 150)
}

func TestSnapshotService_EmptyChunkDoesNotAbort(t *testing.T) {
	quotes := &stubQuotes{
		dates: testCalendar,
		quoteFn: func(call int, tickers []string) ([]eastmoney.Quote, error) {
			if call == 1 {
				return nil, nil
			}
			return echoQuotes(tickers), nil
		},
	}
	svc := NewSnapshotService(quotes, &stubUniverse{secs: securitiesOf(150)}, 100, zerolog.Nop())

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Rows, 50)
}

func TestSnapshotService_JoinIsStrictlyInner(t *testing.T) {
	quotes := &stubQuotes{
		dates: testCalendar,
		quoteFn: func(call int, tickers []string) ([]eastmoney.Quote, error) {
			return []eastmoney.Quote{
				{Ticker: "sz.000001", Name: "好的", Price: 10.5, Preclose: 10.0, Volume: 100},
				// Live price but no previous close: current-bar side only
				{Ticker: "sz.000002", Name: "缺参考", Price: 11.5, Preclose: 0, Volume: 100},
				// Previous close but no live price: suspended today
				{Ticker: "sz.000003", Name: "停牌", Price: 0, Preclose: 9.0, Volume: 0},
				// sz.000004 is not echoed back at all
			}, nil
		},
	}
	svc := NewSnapshotService(quotes, &stubUniverse{secs: securitiesOf(4)}, 100, zerolog.Nop())

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "sz.000001", snap.Rows[0].Ticker)
}

func TestSnapshotService_AbortsOnShortCalendar(t *testing.T) {
	quotes := &stubQuotes{dates: []string{"2025-01-06"}}
	svc := NewSnapshotService(quotes, &stubUniverse{secs: securitiesOf(10)}, 100, zerolog.Nop())

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Empty())
	assert.Empty(t, quotes.batches, "no quotes are fetched without a usable calendar")
}

func TestSnapshotService_CalendarErrorPropagates(t *testing.T) {
	quotes := &stubQuotes{datesErr: fmt.Errorf("connection refused")}
	svc := NewSnapshotService(quotes, &stubUniverse{secs: securitiesOf(10)}, 100, zerolog.Nop())

	_, err := svc.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trading calendar")
}

func TestSnapshotService_EmptyUniverse(t *testing.T) {
	quotes := &stubQuotes{dates: testCalendar}
	svc := NewSnapshotService(quotes, &stubUniverse{}, 100, zerolog.Nop())

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Empty())
	assert.Equal(t, "2025-01-06", snap.Date, "the resolved session dates are still reported")
	assert.Empty(t, quotes.batches)
}

func TestSnapshotService_UniverseErrorPropagates(t *testing.T) {
	quotes := &stubQuotes{dates: testCalendar}
	svc := NewSnapshotService(quotes, &stubUniverse{err: fmt.Errorf("table missing")}, 100, zerolog.Nop())

	_, err := svc.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticker universe")
}

func TestChunkTickers(t *testing.T) {
	tickers := []string{"a", "b", "c", "d", "e"}

	chunks := chunkTickers(tickers, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
	assert.Equal(t, []string{"e"}, chunks[2])

	assert.Len(t, chunkTickers(tickers, 10), 1)
	assert.Empty(t, chunkTickers(nil, 10))
}
