package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"threadcraft/internal/core/ports"
	"threadcraft/internal/domain"

	"github.com/google/uuid"
)

// JobRecorder counts processed refresh jobs.
type JobRecorder interface {
	RefreshJobDone(workflowType, status string)
}

type Worker struct {
	workerID string
	queue    ports.RefreshQueue
	registry ReportRegistry
	recorder JobRecorder
	logger   *slog.Logger

	// retryDelay throttles a loop whose queue keeps failing.
	retryDelay time.Duration
	wg         sync.WaitGroup
}

func NewWorker(q ports.RefreshQueue, reg ReportRegistry, recorder JobRecorder, logger *slog.Logger) *Worker {
	return &Worker{
		workerID:   uuid.New().String(),
		queue:      q,
		registry:   reg,
		recorder:   recorder,
		logger:     logger,
		retryDelay: time.Second,
	}
}

// ProcessNextJob handles exactly ONE refresh job lifecycle
func (w *Worker) ProcessNextJob(ctx context.Context) error {
	// 1. POP: Wait until a job is available
	job, err := w.queue.Pop(ctx)
	if err != nil {
		return err
	}
	w.run(ctx, job)
	return nil
}

func (w *Worker) run(ctx context.Context, job domain.RefreshJob) {
	logger := w.logger.With("worker_id", w.workerID, "job_id", job.ID, "workflow_type", job.WorkflowType)

	// 2. EXECUTE: Rebuild every registered report for the workflow type
	status := "ok"
	for _, name := range w.registry.names() {
		if err := w.registry[name](ctx, job.WorkflowType); err != nil {
			status = "error"
			logger.Error("report refresh failed", "report", name, "error", err)
			continue
		}
		logger.Debug("report refreshed", "report", name)
	}

	// 3. COMPLETE: Count the outcome
	if w.recorder != nil {
		w.recorder.RefreshJobDone(job.WorkflowType, status)
	}
	logger.Info("refresh job finished", "status", status, "queued_for", time.Since(job.RequestedAt).String())
}

// StartPool launches multiple concurrent worker loops. Wait blocks until they exit.
func (w *Worker) StartPool(ctx context.Context, concurrency int) {
	w.logger.Info("starting worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go func(threadID int) {
			defer w.wg.Done()
			w.logger.Debug("worker thread started", "thread", threadID, "worker_id", w.workerID)
			for {
				select {
				case <-ctx.Done():
					w.logger.Debug("worker thread shutting down", "thread", threadID, "worker_id", w.workerID)
					return
				default:
				}

				err := w.ProcessNextJob(ctx)
				if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				w.logger.Warn("worker error popping from queue", "thread", threadID, "error", err)
				select {
				case <-time.After(w.retryDelay):
				case <-ctx.Done():
				}
			}
		}(i)
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
}
