package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	onRun func()
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) (*RunResult, error) {
	j.runs.Add(1)
	if j.onRun != nil {
		j.onRun()
	}
	if j.err != nil {
		return nil, j.err
	}
	return &RunResult{}, nil
}

func TestRunOnce_RunsEveryJobDespiteFailures(t *testing.T) {
	ok := &countingJob{name: "ok"}
	broken := &countingJob{name: "broken", err: errors.New("boom")}

	results := NewRunner(time.Hour, quietLogger(), broken, ok).RunOnce(context.Background())

	assert.Equal(t, int32(1), ok.runs.Load())
	assert.Equal(t, int32(1), broken.runs.Load())
	assert.Nil(t, results[0])
	assert.NotNil(t, results[1])
}

func TestStart_RunsImmediatelyAndOnTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := &countingJob{name: "tick"}
	job.onRun = func() {
		if job.runs.Load() >= 3 {
			cancel()
		}
	}

	done := make(chan struct{})
	go func() {
		NewRunner(5*time.Millisecond, quietLogger(), job).Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancellation")
	}
	assert.GreaterOrEqual(t, job.runs.Load(), int32(3))
}
