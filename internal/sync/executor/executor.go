package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/planner"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/synctypes"
)

// DefaultConcurrency is the number of concurrent pipelines used when none is configured.
const DefaultConcurrency = 5

// JobFunc runs one file's pipeline and returns its finalized outcome.
type JobFunc func(ctx context.Context, job *planner.Job) *synctypes.Outcome

// Executor handles the parallel execution of file pipelines.
type Executor struct {
	// Concurrency control
	maxConcurrency int
	semaphore      chan struct{}

	running   atomic.Int64
	completed atomic.Int64
}

// NewExecutor creates a new executor with the specified concurrency limit.
func NewExecutor(maxConcurrency int) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultConcurrency
	}

	return &Executor{
		maxConcurrency: maxConcurrency,
		semaphore:      make(chan struct{}, maxConcurrency),
	}
}

// Run executes fn for every job and returns one outcome per job, in job
// order. Jobs that carry an error are not run and fail immediately. After
// ctx is cancelled no further job is started.
func (e *Executor) Run(ctx context.Context, jobs []*planner.Job, fn JobFunc) []*synctypes.Outcome {
	outcomes := make([]*synctypes.Outcome, len(jobs))
	var wg sync.WaitGroup

	for i, job := range jobs {
		if job.Err != nil {
			outcomes[i] = Failed(job, job.Err)
			e.completed.Add(1)
			continue
		}

		// Acquire semaphore
		select {
		case e.semaphore <- struct{}{}:
		case <-ctx.Done():
			outcomes[i] = Failed(job, fmt.Errorf("not started: %w", ctx.Err()))
			e.completed.Add(1)
			continue
		}
		// A ready semaphore may win the select over a cancelled context.
		if err := ctx.Err(); err != nil {
			<-e.semaphore
			outcomes[i] = Failed(job, fmt.Errorf("not started: %w", err))
			e.completed.Add(1)
			continue
		}

		wg.Add(1)
		e.running.Add(1)
		go func(i int, job *planner.Job) {
			defer func() {
				e.running.Add(-1)
				e.completed.Add(1)
				<-e.semaphore
				wg.Done()
			}()
			outcomes[i] = fn(ctx, job)
		}(i, job)
	}

	wg.Wait()
	return outcomes
}

// Failed builds a failed outcome for job.
func Failed(job *planner.Job, err error) *synctypes.Outcome {
	return &synctypes.Outcome{
		Key:       job.Key,
		LocalPath: job.LocalPath,
		Status:    synctypes.StatusFailed,
		Size:      job.Size,
		Err:       err,
	}
}

// ValidateConcurrency checks if the concurrency settings are valid.
func (e *Executor) ValidateConcurrency() error {
	if e.maxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be positive, got %d", e.maxConcurrency)
	}
	if e.maxConcurrency > 100 {
		return fmt.Errorf("max concurrency too high: %d (recommended: <= 100)", e.maxConcurrency)
	}
	return nil
}

// GetStats returns current execution statistics.
func (e *Executor) GetStats() Stats {
	return Stats{
		MaxConcurrency:     e.maxConcurrency,
		CurrentConcurrency: int(e.running.Load()),
		AvailableSlots:     cap(e.semaphore) - len(e.semaphore),
		Completed:          int(e.completed.Load()),
	}
}

// Stats contains statistics about the executor's current state.
type Stats struct {
	// MaxConcurrency is the maximum allowed concurrent pipelines
	MaxConcurrency int

	// CurrentConcurrency is the current number of running pipelines
	CurrentConcurrency int

	// AvailableSlots is the number of available concurrency slots
	AvailableSlots int

	// Completed is the number of jobs with a finalized outcome
	Completed int
}
