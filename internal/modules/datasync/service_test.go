package datasync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minqi/alphahunter/internal/clients/eastmoney"
	"github.com/minqi/alphahunter/internal/domain"
	"github.com/minqi/alphahunter/internal/modules/universe"
)

type barFetch struct {
	ticker string
	beg    string
	end    string
}

type stubSource struct {
	dates    []string
	datesErr error

	listings    []eastmoney.Listing
	listingsErr error

	bars    map[string][]domain.PriceBar
	barErrs map[string]error
	fetches []barFetch
}

func (s *stubSource) TradingDates(_ context.Context, count int) ([]string, error) {
	if s.datesErr != nil {
		return nil, s.datesErr
	}
	if count < len(s.dates) {
		return s.dates[len(s.dates)-count:], nil
	}
	return s.dates, nil
}

func (s *stubSource) ListSecurities(_ context.Context) ([]eastmoney.Listing, error) {
	return s.listings, s.listingsErr
}

func (s *stubSource) DailyBars(_ context.Context, ticker, beg, end string) ([]domain.PriceBar, error) {
	s.fetches = append(s.fetches, barFetch{ticker: ticker, beg: beg, end: end})
	if err, ok := s.barErrs[ticker]; ok {
		return nil, err
	}
	bars, ok := s.bars[ticker]
	if !ok {
		return nil, fmt.Errorf("no daily bars for %s", ticker)
	}
	return bars, nil
}

type stubSecurities struct {
	scannable []universe.Security
	loadErr   error
	upserted  [][]universe.Security
	upsertErr error
}

func (s *stubSecurities) UpsertAll(securities []universe.Security) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, securities)
	return nil
}

func (s *stubSecurities) GetScannable() ([]universe.Security, error) {
	return s.scannable, s.loadErr
}

type stubBars struct {
	latest    map[string]string
	latestErr error
	upserts   map[string][]domain.PriceBar
}

func (s *stubBars) LatestDate(ticker string) (string, error) {
	if s.latestErr != nil {
		return "", s.latestErr
	}
	return s.latest[ticker], nil
}

func (s *stubBars) UpsertBars(ticker string, bars []domain.PriceBar) error {
	if s.upserts == nil {
		s.upserts = make(map[string][]domain.PriceBar)
	}
	s.upserts[ticker] = append(s.upserts[ticker], bars...)
	return nil
}

func dayBars(dates ...string) []domain.PriceBar {
	bars := make([]domain.PriceBar, len(dates))
	for i, date := range dates {
		bars[i] = domain.PriceBar{
			Date:        date,
			Open:        10,
			High:        10.5,
			Low:         9.5,
			Close:       10,
			Preclose:    10,
			Volume:      1000,
			TradeStatus: domain.TradeStatusTradable,
		}
	}
	return bars
}

func scannableOf(tickers ...string) []universe.Security {
	secs := make([]universe.Security, len(tickers))
	for i, t := range tickers {
		secs[i] = universe.Security{Ticker: t, Board: universe.BoardOf(t)}
	}
	return secs
}

func newTestService(source *stubSource, securities *stubSecurities, bars *stubBars) *Service {
	return NewService(source, securities, bars, 30, 0, zerolog.Nop())
}

func TestRefreshUniverseClassifiesListings(t *testing.T) {
	source := &stubSource{
		listings: []eastmoney.Listing{
			{Ticker: "sh.600519", Name: "贵州茅台"},
			{Ticker: "sz.300750", Name: "宁德时代"},
			{Ticker: "sz.000670", Name: "*ST盈方"},
			{Ticker: "sh.688981", Name: "中芯国际"},
		},
	}
	securities := &stubSecurities{}
	svc := newTestService(source, securities, &stubBars{})

	err := svc.RefreshUniverse(context.Background())

	require.NoError(t, err)
	require.Len(t, securities.upserted, 1)
	rows := securities.upserted[0]
	require.Len(t, rows, 4)

	assert.Equal(t, universe.BoardShanghaiMain, rows[0].Board)
	assert.False(t, rows[0].IsST)
	assert.Equal(t, universe.BoardChiNext, rows[1].Board)
	assert.True(t, rows[2].IsST)
	assert.Equal(t, universe.BoardOther, rows[3].Board)
}

func TestRefreshUniverseRejectsEmptyScan(t *testing.T) {
	svc := newTestService(&stubSource{}, &stubSecurities{}, &stubBars{})

	err := svc.RefreshUniverse(context.Background())

	assert.ErrorContains(t, err, "no securities")
}

func TestSyncBarsBackfillsUnseenTicker(t *testing.T) {
	source := &stubSource{
		dates: []string{"2025-01-06"},
		bars:  map[string][]domain.PriceBar{"sh.600519": dayBars("2025-01-03", "2025-01-06")},
	}
	bars := &stubBars{}
	svc := newTestService(source, &stubSecurities{scannable: scannableOf("sh.600519")}, bars)

	err := svc.SyncBars(context.Background())

	require.NoError(t, err)
	require.Len(t, source.fetches, 1)
	assert.Equal(t, "sh.600519", source.fetches[0].ticker)
	assert.Equal(t, time.Now().AddDate(0, 0, -30).Format("2006-01-02"), source.fetches[0].beg)
	assert.Equal(t, "2025-01-06", source.fetches[0].end)
	assert.Len(t, bars.upserts["sh.600519"], 2)
}

func TestSyncBarsFetchesOnlyTheMissingTail(t *testing.T) {
	source := &stubSource{
		dates: []string{"2025-01-06"},
		bars:  map[string][]domain.PriceBar{"sh.600519": dayBars("2025-01-06")},
	}
	bars := &stubBars{latest: map[string]string{"sh.600519": "2025-01-03"}}
	svc := newTestService(source, &stubSecurities{scannable: scannableOf("sh.600519")}, bars)

	err := svc.SyncBars(context.Background())

	require.NoError(t, err)
	require.Len(t, source.fetches, 1)
	assert.Equal(t, "2025-01-04", source.fetches[0].beg)
	assert.Equal(t, "2025-01-06", source.fetches[0].end)
}

func TestSyncBarsSkipsCurrentTickers(t *testing.T) {
	source := &stubSource{dates: []string{"2025-01-06"}}
	bars := &stubBars{latest: map[string]string{"sh.600519": "2025-01-06"}}
	svc := newTestService(source, &stubSecurities{scannable: scannableOf("sh.600519")}, bars)

	err := svc.SyncBars(context.Background())

	require.NoError(t, err)
	assert.Empty(t, source.fetches)
}

func TestSyncBarsTickerFailureDoesNotAbortTheRest(t *testing.T) {
	source := &stubSource{
		dates:   []string{"2025-01-06"},
		bars:    map[string][]domain.PriceBar{"sz.000001": dayBars("2025-01-06")},
		barErrs: map[string]error{"sh.600519": fmt.Errorf("upstream timeout")},
	}
	bars := &stubBars{latest: map[string]string{
		"sh.600519": "2025-01-03",
		"sz.000001": "2025-01-03",
	}}
	svc := newTestService(source, &stubSecurities{scannable: scannableOf("sh.600519", "sz.000001")}, bars)

	err := svc.SyncBars(context.Background())

	require.NoError(t, err)
	assert.Len(t, source.fetches, 2)
	assert.NotContains(t, bars.upserts, "sh.600519")
	assert.Len(t, bars.upserts["sz.000001"], 1)
}

func TestSyncBarsAbortsWithoutCalendar(t *testing.T) {
	t.Run("calendar error", func(t *testing.T) {
		source := &stubSource{datesErr: fmt.Errorf("service unavailable")}
		svc := newTestService(source, &stubSecurities{scannable: scannableOf("sh.600519")}, &stubBars{})

		err := svc.SyncBars(context.Background())

		assert.ErrorContains(t, err, "latest trading date")
	})

	t.Run("empty calendar", func(t *testing.T) {
		source := &stubSource{}
		svc := newTestService(source, &stubSecurities{scannable: scannableOf("sh.600519")}, &stubBars{})

		err := svc.SyncBars(context.Background())

		assert.ErrorContains(t, err, "calendar is empty")
	})
}

func TestSyncBarsStopsOnCancelledContext(t *testing.T) {
	source := &stubSource{dates: []string{"2025-01-06"}}
	svc := newTestService(source, &stubSecurities{scannable: scannableOf("sh.600519")}, &stubBars{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.SyncBars(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, source.fetches)
}

func TestRunSyncsWithStaleUniverseWhenRefreshFails(t *testing.T) {
	source := &stubSource{
		listingsErr: fmt.Errorf("listing scan down"),
		dates:       []string{"2025-01-06"},
		bars:        map[string][]domain.PriceBar{"sh.600519": dayBars("2025-01-06")},
	}
	bars := &stubBars{latest: map[string]string{"sh.600519": "2025-01-03"}}
	svc := newTestService(source, &stubSecurities{scannable: scannableOf("sh.600519")}, bars)

	err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, bars.upserts["sh.600519"], 1)
}
