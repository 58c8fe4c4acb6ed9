package scheduler

import (
	"context"

	"github.com/minqi/alphahunter/internal/domain"
)

// SnapshotSource builds the live market snapshot.
// Implemented by market.SnapshotService.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (domain.MarketSnapshot, error)
}

// SnapshotKeeper persists the latest snapshot for warm restarts and the API.
// Implemented by market.SnapshotCache.
type SnapshotKeeper interface {
	Save(snap domain.MarketSnapshot) error
}

// HistoryProvider assembles trailing daily histories for the scan
// candidates, with the live session bar merged in from the snapshot.
// Implemented by market.HistoryService.
type HistoryProvider interface {
	HistoriesFor(ctx context.Context, tickers []string, snap domain.MarketSnapshot) (map[string]domain.TickerHistory, error)
}

// Scanner runs every registered strategy over the candidate histories.
// Implemented by scan.Service.
type Scanner interface {
	ScanAll(histories map[string]domain.TickerHistory) []domain.Opportunity
}

// Annotator enriches raw opportunities into serializable records.
// Implemented by report.Service.
type Annotator interface {
	Annotate(ctx context.Context, opps []domain.Opportunity) []domain.AnalyzedOpportunity
}

// ExitChecker prices open positions and closes the ones whose exit rules
// fire. Implemented by portfolio.Service.
type ExitChecker interface {
	CheckExits(ctx context.Context) ([]domain.SellAlert, error)
}

// ResultsSink persists the cycle's results document.
// Implemented by report.ResultsStore.
type ResultsSink interface {
	Save(result domain.ScanResult) error
}

// Publisher pushes cycle outcomes to connected dashboards.
// Implemented by server.Hub.
type Publisher interface {
	PublishScanning(message string)
	PublishResult(result domain.ScanResult)
	PublishError(message string)
}

// ArchiveSyncer brings the local market archive up to date.
// Implemented by datasync.Service.
type ArchiveSyncer interface {
	Run(ctx context.Context) error
}
