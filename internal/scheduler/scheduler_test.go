package scheduler

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func TestSchedulerAddJobRejectsBadSchedule(t *testing.T) {
	sched := New(zerolog.Nop())

	err := sched.AddJob("not a schedule", &countingJob{name: "broken"})

	assert.Error(t, err)
}

func TestSchedulerAddJobAcceptsCronAndDescriptors(t *testing.T) {
	sched := New(zerolog.Nop())

	assert.NoError(t, sched.AddJob("@every 60s", &countingJob{name: "scan_cycle"}))
	assert.NoError(t, sched.AddJob("0 30 8 * * MON-FRI", &countingJob{name: "daily_sync"}))
}

func TestSchedulerRunNow(t *testing.T) {
	sched := New(zerolog.Nop())

	job := &countingJob{name: "scan_cycle"}
	assert.NoError(t, sched.RunNow(job))
	assert.Equal(t, 1, job.runs)

	failing := &countingJob{name: "scan_cycle", err: fmt.Errorf("boom")}
	assert.EqualError(t, sched.RunNow(failing), "boom")
}
