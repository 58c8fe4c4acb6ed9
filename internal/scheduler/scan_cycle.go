package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
)

const (
	// cycleTimeout caps one scan cycle end to end. The scheduler skips
	// overlapping runs, so a slow cycle delays the next instead of
	// stacking up.
	cycleTimeout = 5 * time.Minute

	// The snapshot is the cycle's foundation, so it gets a few attempts
	// before the cycle is abandoned.
	snapshotAttempts   = 3
	snapshotRetryDelay = 10 * time.Second
)

// ScanCycleConfig holds the collaborators and tunables of the scan cycle.
type ScanCycleConfig struct {
	Log       zerolog.Logger
	Snapshots SnapshotSource
	Cache     SnapshotKeeper // optional
	Histories HistoryProvider
	Scanner   Scanner
	Reports   Annotator
	Portfolio ExitChecker
	Results   ResultsSink
	Publisher Publisher // optional
	TopMovers int       // snapshot rows promoted to candidates
	Targets   []string  // explicit candidates; overrides TopMovers when set
}

// ScanCycleJob runs one full pass of the pipeline: live snapshot, candidate
// selection, strategy scan, enrichment and commentary, results persistence
// and dashboard push, then the exit-rule pass over open positions.
type ScanCycleJob struct {
	log       zerolog.Logger
	snapshots SnapshotSource
	cache     SnapshotKeeper
	histories HistoryProvider
	scanner   Scanner
	reports   Annotator
	portfolio ExitChecker
	results   ResultsSink
	publisher Publisher
	topMovers int
	targets   []string

	timeout    time.Duration
	retryDelay time.Duration
}

// NewScanCycleJob creates a new scan cycle job
func NewScanCycleJob(cfg ScanCycleConfig) *ScanCycleJob {
	return &ScanCycleJob{
		log:        cfg.Log.With().Str("job", "scan_cycle").Logger(),
		snapshots:  cfg.Snapshots,
		cache:      cfg.Cache,
		histories:  cfg.Histories,
		scanner:    cfg.Scanner,
		reports:    cfg.Reports,
		portfolio:  cfg.Portfolio,
		results:    cfg.Results,
		publisher:  cfg.Publisher,
		topMovers:  cfg.TopMovers,
		targets:    cfg.Targets,
		timeout:    cycleTimeout,
		retryDelay: snapshotRetryDelay,
	}
}

// Name returns the job name
func (j *ScanCycleJob) Name() string {
	return "scan_cycle"
}

// Run executes one scan cycle. Only a foundational failure (no snapshot,
// no histories) returns an error; everything downstream degrades per part.
// On a foundational failure the previous results document is left in place
// and open positions are still checked.
func (j *ScanCycleJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	result := domain.ScanResult{
		CycleID:     uuid.New().String(),
		GeneratedAt: start.UTC(),
	}

	records, err := j.scanOpportunities(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Scan failed, keeping previous results")
		j.checkExits(ctx, &result)
		j.publishError(err)
		return err
	}
	result.NewOpportunities = records

	j.checkExits(ctx, &result)

	if err := j.results.Save(result); err != nil {
		j.log.Error().Err(err).Msg("Failed to persist scan results")
	}

	j.publish(result)

	j.log.Info().
		Str("cycle_id", result.CycleID).
		Int("opportunities", len(result.NewOpportunities)).
		Int("alerts", len(result.SellAlerts)).
		Dur("duration", time.Since(start)).
		Msg("Scan cycle completed")

	return nil
}

// scanOpportunities runs the scanning half of the cycle: snapshot with
// retries, candidate selection, history assembly, strategies, annotation.
func (j *ScanCycleJob) scanOpportunities(ctx context.Context) ([]domain.AnalyzedOpportunity, error) {
	var snap domain.MarketSnapshot
	err := Retry(ctx, snapshotAttempts, j.retryDelay, func() error {
		var err error
		snap, err = j.snapshots.Snapshot(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot failed after %d attempts: %w", snapshotAttempts, err)
	}

	if j.cache != nil {
		if err := j.cache.Save(snap); err != nil {
			j.log.Error().Err(err).Msg("Failed to cache snapshot")
		}
	}

	if snap.Empty() {
		j.log.Warn().Msg("Empty snapshot, nothing to scan")
		return nil, nil
	}

	candidates := j.candidates(snap)
	if len(candidates) == 0 {
		return nil, nil
	}

	histories, err := j.histories.HistoriesFor(ctx, candidates, snap)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble candidate histories: %w", err)
	}

	opps := j.scanner.ScanAll(histories)
	if len(opps) == 0 {
		return nil, nil
	}

	return j.reports.Annotate(ctx, opps), nil
}

// candidates picks the tickers handed to the strategies: the configured
// target list when one is set, otherwise the snapshot's top movers.
func (j *ScanCycleJob) candidates(snap domain.MarketSnapshot) []string {
	if len(j.targets) > 0 {
		return j.targets
	}

	rows := snap.TopMovers(j.topMovers)
	tickers := make([]string, len(rows))
	for i, row := range rows {
		tickers[i] = row.Ticker
	}
	return tickers
}

// checkExits runs the exit-rule pass. Exit failures never fail the cycle;
// the positions are checked again next run.
func (j *ScanCycleJob) checkExits(ctx context.Context, result *domain.ScanResult) {
	alerts, err := j.portfolio.CheckExits(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Exit pass failed")
		return
	}
	result.SellAlerts = alerts
}

func (j *ScanCycleJob) publish(result domain.ScanResult) {
	if j.publisher == nil {
		return
	}

	if len(result.NewOpportunities) == 0 && len(result.SellAlerts) == 0 {
		j.publisher.PublishScanning("未发现机会")
		return
	}

	j.publisher.PublishResult(result)
}

func (j *ScanCycleJob) publishError(err error) {
	if j.publisher == nil {
		return
	}

	j.publisher.PublishError(fmt.Sprintf("后台服务发生错误: %v", err))
}
