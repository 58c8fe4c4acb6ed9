package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// backupTimeout bounds one backup run end to end, upload included.
const backupTimeout = 30 * time.Minute

// BackupJob runs the nightly backup on the scheduler.
type BackupJob struct {
	service *BackupService
	log     zerolog.Logger
}

// NewBackupJob creates the backup job.
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		log:     log.With().Str("job", "daily_backup").Logger(),
	}
}

// Name returns the job identifier.
func (j *BackupJob) Name() string {
	return "daily_backup"
}

// Run uploads a fresh backup, then prunes expired ones. A failed rotation
// only logs: the upload already succeeded and rotation reruns tomorrow.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if err := j.service.RotateOldBackups(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
