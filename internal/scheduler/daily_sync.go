package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// syncTimeout caps one archive sync pass. A cold full-universe backfill is
// the slow case; incremental mornings finish in minutes.
const syncTimeout = 2 * time.Hour

// DailySyncJob refreshes the securities table and the daily bar archive
// before the session opens.
type DailySyncJob struct {
	syncer ArchiveSyncer
	log    zerolog.Logger
}

// NewDailySyncJob creates a new daily sync job
func NewDailySyncJob(syncer ArchiveSyncer, log zerolog.Logger) *DailySyncJob {
	return &DailySyncJob{
		syncer: syncer,
		log:    log.With().Str("job", "daily_sync").Logger(),
	}
}

// Name returns the job name
func (j *DailySyncJob) Name() string {
	return "daily_sync"
}

// Run executes the archive sync
func (j *DailySyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	start := time.Now()
	if err := j.syncer.Run(ctx); err != nil {
		return err
	}

	j.log.Info().Dur("duration", time.Since(start)).Msg("Archive sync completed")
	return nil
}
