package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/cobrafacil/cobranca-api/pkg/logger"
)

// Job is a unit of background work, such as a late-fee accrual pass.
type Job func(ctx context.Context) error

// Worker runs background jobs for the collections service. It bounds
// concurrency with a semaphore and drives the recurring accrual schedule.
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	sem           chan struct{}
	maxConcurrent int
	stats         WorkerStats
	statsMu       sync.RWMutex
}

// WorkerStats is the snapshot exposed on /jobs/stats.
type WorkerStats struct {
	ActiveJobs    int   `json:"active_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	MaxConcurrent int   `json:"max_concurrent"`
}

// NewWorker creates a worker that runs at most maxConcurrent jobs at once.
func NewWorker(maxConcurrent int) *Worker {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		ctx:           ctx,
		cancel:        cancel,
		sem:           make(chan struct{}, maxConcurrent),
		maxConcurrent: maxConcurrent,
	}
}

// EnqueueAsync runs a job in its own goroutine, waiting for a semaphore
// slot when the worker is saturated. Errors and panics are logged and
// counted; the caller is never blocked on the job's outcome.
func (w *Worker) EnqueueAsync(job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.sem <- struct{}{}
		defer func() { <-w.sem }()

		w.runJob(job)
	}()
}

// ScheduleEvery runs a job at fixed intervals, starting one interval from now.
func (w *Worker) ScheduleEvery(interval time.Duration, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runJob(job)
			}
		}
	}()
}

// ScheduleEveryImmediate runs a job once right away, then at fixed
// intervals. Accrual passes use this so a restarted process catches up on
// fines without waiting out the first interval.
func (w *Worker) ScheduleEveryImmediate(interval time.Duration, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.runJob(job)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runJob(job)
			}
		}
	}()
}

func (w *Worker) runJob(job Job) {
	w.trackJobStart()
	defer w.trackJobEnd()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("background job panicked", "panic", r)
			w.trackJobFailure()
		}
	}()

	start := time.Now()
	if err := job(w.ctx); err != nil {
		logger.Error("background job failed", "error", err, "elapsed", time.Since(start))
		w.trackJobFailure()
		return
	}
	logger.Debug("background job finished", "elapsed", time.Since(start))
}

// Shutdown cancels the worker context and waits for in-flight jobs.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}

// Context returns the worker's context for checking cancellation.
func (w *Worker) Context() context.Context {
	return w.ctx
}

// GetStats returns a snapshot of the worker counters.
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.MaxConcurrent = w.maxConcurrent
	return stats
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

// trackJobEnd always runs, so CompletedJobs counts every finished run;
// FailedJobs is the subset that errored or panicked.
func (w *Worker) trackJobEnd() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++
}

func (w *Worker) trackJobFailure() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.FailedJobs++
}
