package reliability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupJobRunsBackup(t *testing.T) {
	store := newStubStorage()
	service, _ := newTestBackupService(t, store)
	job := NewBackupJob(service, service.log)

	assert.Equal(t, "daily_backup", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.uploads, 1)
}

func TestBackupJobSurvivesRotationFailure(t *testing.T) {
	store := newStubStorage()
	store.listErr = assert.AnError
	service, _ := newTestBackupService(t, store)
	job := NewBackupJob(service, service.log)

	// Upload works, rotation cannot list; the job still succeeds
	require.NoError(t, job.Run())
	assert.Len(t, store.uploads, 1)

	// Rotation alone surfaces the error
	assert.Error(t, service.RotateOldBackups(context.Background()))
}

func TestBackupJobPropagatesBackupFailure(t *testing.T) {
	store := newStubStorage()
	store.uploadErr = assert.AnError
	service, _ := newTestBackupService(t, store)
	job := NewBackupJob(service, service.log)

	assert.Error(t, job.Run())
}
