package server

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/minqi/alphahunter/internal/domain"
	"github.com/minqi/alphahunter/internal/modules/market"
	"github.com/minqi/alphahunter/internal/modules/portfolio"
	"github.com/minqi/alphahunter/internal/modules/report"
)

// newTestServer builds a server over throwaway stores.
func newTestServer(t *testing.T) (*Server, *report.ResultsStore, *market.SnapshotCache) {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	dir := t.TempDir()

	results := report.NewResultsStore(filepath.Join(dir, "scan_results.json"), log)
	snapshots := market.NewSnapshotCache(filepath.Join(dir, "snapshot.bin"), log)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`
		CREATE TABLE positions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker     TEXT NOT NULL,
			buy_price  REAL NOT NULL,
			shares     INTEGER NOT NULL,
			status     TEXT NOT NULL DEFAULT 'OPEN',
			created_at TEXT NOT NULL,
			closed_at  TEXT
		);
	`)
	require.NoError(t, err)

	srv := New(Config{
		Log:       log,
		Port:      0,
		DevMode:   true,
		DataDir:   dir,
		Results:   results,
		Snapshots: snapshots,
		Positions: portfolio.NewPositionRepository(db, log),
		Hub:       NewHub(log),
	})
	return srv, results, snapshots
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestServerHealthRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, "healthy", gjson.Get(body, "status").String())
	assert.Equal(t, "alphahunter", gjson.Get(body, "service").String())
}

func TestServerDashboardPage(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "AlphaHunter API")
	assert.Contains(t, rec.Body.String(), "/ws")
}

func TestServerLatestResults(t *testing.T) {
	srv, results, _ := newTestServer(t)

	saved := domain.ScanResult{
		GeneratedAt: time.Date(2025, 1, 6, 7, 32, 0, 0, time.UTC),
		NewOpportunities: []domain.AnalyzedOpportunity{
			{
				Opportunity: domain.Opportunity{
					Ticker:      "sh.600519",
					Strategy:    "box_breakout",
					Kind:        domain.KindBoxBreakout,
					SignalDate:  "2025-01-06",
					SignalPrice: 1734.56,
					Description: "放量突破60日箱体",
				},
				AIAnalysis: "模拟分析",
			},
		},
	}
	require.NoError(t, results.Save(saved))

	rec := get(t, srv, "/api/opportunities/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Equal(t, int64(1), gjson.Get(body, "new_opportunities.#").Int())
	assert.Equal(t, "sh.600519", gjson.Get(body, "new_opportunities.0.ticker").String())
	assert.Equal(t, "模拟分析", gjson.Get(body, "new_opportunities.0.ai_analysis").String())
}

func TestServerLatestResultsBeforeFirstCycle(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/opportunities/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.Get(rec.Body.String(), "generated_at").Exists())
}

func TestServerSnapshotRoute(t *testing.T) {
	srv, _, snapshots := newTestServer(t)

	require.NoError(t, snapshots.Save(domain.MarketSnapshot{
		TakenAt:  time.Now().UTC(),
		Date:     "2025-01-06",
		PrevDate: "2025-01-03",
		Rows: []domain.SnapshotRow{
			{Ticker: "sh.600519", Name: "贵州茅台", Date: "2025-01-06", Price: 1734.56, ChangePct: 5.4},
		},
	}))

	rec := get(t, srv, "/api/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, "2025-01-06", gjson.Get(body, "date").String())
	require.Equal(t, int64(1), gjson.Get(body, "rows.#").Int())
	assert.Equal(t, "sh.600519", gjson.Get(body, "rows.0.ticker").String())
}

func TestServerSystemStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, "ok", gjson.Get(body, "status").String())
	assert.True(t, gjson.Get(body, "cpu_percent").Exists())
	assert.True(t, gjson.Get(body, "ram_percent").Exists())
	assert.Greater(t, gjson.Get(body, "goroutines").Int(), int64(0))
	assert.Equal(t, int64(0), gjson.Get(body, "ws_clients").Int())
}

func TestServerPositionRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/positions",
		strings.NewReader(`{"ticker":"sz.000001","buy_price":10.2,"shares":500}`))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := gjson.Get(rec.Body.String(), "id").Int()
	require.Greater(t, id, int64(0))

	rec = get(t, srv, "/api/positions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "#").Int())

	req = httptest.NewRequest(http.MethodPost, "/api/positions/1/close", nil)
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CLOSED", gjson.Get(rec.Body.String(), "status").String())
}
