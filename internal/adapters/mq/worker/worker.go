// Package worker runs queued evaluation jobs and drives their status
// records through pending -> running -> completed or failed. A failed
// run always terminates its job record with a captured message; no
// job is left dangling in running.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/parley/internal/adapters/evalstore"
	"github.com/okian/parley/internal/adapters/mq/queue"
	"github.com/okian/parley/pkg/logger"
	"github.com/okian/parley/pkg/metrics"
)

const workerShutdownTimeout = 5 * time.Second

// Runner executes one evaluation run to completion.
type Runner interface {
	RunEvaluation(ctx context.Context, interviewID, version string) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Jobs records job status transitions.
type Jobs interface {
	UpdateJob(ctx context.Context, id string, status evalstore.JobStatus, errMsg string) error
}

// Worker processes evaluation jobs.
type Worker struct {
	queue  Queue
	runner Runner
	jobs   Jobs
	name   string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// New creates a worker with configuration options.
func New(q Queue, runner Runner, jobs Jobs, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		runner:   runner,
		jobs:     jobs,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// signalShutdown tells the worker loop to stop. Safe to call more
// than once.
func (w *Worker) signalShutdown() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Shutdown gracefully stops the worker. Idempotent.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.signalShutdown()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, job queue.Job) {
	start := time.Now()
	if err := w.jobs.UpdateJob(ctx, job.JobID, evalstore.JobRunning, ""); err != nil {
		w.logger.Error(ctx, "failed to mark job running",
			logger.String("jobID", job.JobID), logger.Error(err))
	}

	err := w.runner.RunEvaluation(ctx, job.InterviewID, job.Version)
	metrics.ObserveEvaluationDuration(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordEvaluation("failed")
		if uerr := w.jobs.UpdateJob(ctx, job.JobID, evalstore.JobFailed, err.Error()); uerr != nil {
			w.logger.Error(ctx, "failed to mark job failed",
				logger.String("jobID", job.JobID), logger.Error(uerr))
		}
		w.logger.Error(ctx, "evaluation run failed",
			logger.String("jobID", job.JobID),
			logger.String("interviewID", job.InterviewID),
			logger.String("version", job.Version),
			logger.Error(err),
		)
		return
	}

	metrics.RecordEvaluation("completed")
	if err := w.jobs.UpdateJob(ctx, job.JobID, evalstore.JobCompleted, ""); err != nil {
		w.logger.Error(ctx, "failed to mark job completed",
			logger.String("jobID", job.JobID), logger.Error(err))
	}
}

// Pool manages a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates and wires workerCount workers.
func NewPool(workerCount int, q Queue, runner Runner, jobs Jobs) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	pool := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range pool.workers {
		pool.workers[i] = New(q, runner, jobs, WithName(fmt.Sprintf("worker-%d", i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop waits for all workers to drain, bounded by one shared deadline.
// Safe to call after individual Shutdown calls, and safe to call twice.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()

	for _, w := range p.workers {
		w.signalShutdown()
	}
	for _, w := range p.workers {
		_ = w.Shutdown(ctx)
	}
}
