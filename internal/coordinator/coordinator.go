package coordinator

import (
	"context"
	"log/slog"
	"time"

	"threadcraft/internal/core/ports"
	"threadcraft/internal/domain"

	"github.com/google/uuid"
)

// Coordinator turns workflow transitions into analytics refresh jobs.
type Coordinator struct {
	eventBus ports.EventBus
	queue    ports.RefreshQueue
	logger   *slog.Logger

	// debounce is the minimum gap between two jobs for the same workflow type.
	// Transitions into terminal steps always queue a job.
	debounce   time.Duration
	now        func() time.Time
	lastQueued map[string]time.Time
}

func NewCoordinator(bus ports.EventBus, queue ports.RefreshQueue, debounce time.Duration, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		eventBus:   bus,
		queue:      queue,
		logger:     logger,
		debounce:   debounce,
		now:        time.Now,
		lastQueued: make(map[string]time.Time),
	}
}

// Start subscribes to transition events and blocks until ctx is done or the
// subscription ends. Run it in its own goroutine.
func (c *Coordinator) Start(ctx context.Context) error {
	events, err := c.eventBus.SubscribeToTransitions(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("coordinator started, listening for transitions")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator shutting down")
			return nil

		case event, ok := <-events:
			if !ok {
				c.logger.Info("transition subscription closed")
				return nil
			}
			c.handleTransition(ctx, event)
		}
	}
}

// handleTransition is only called from the Start loop, so lastQueued needs no lock.
func (c *Coordinator) handleTransition(ctx context.Context, event domain.TransitionEvent) {
	now := c.now()
	last, seen := c.lastQueued[event.WorkflowType]
	if seen && !event.Terminal && now.Sub(last) < c.debounce {
		c.logger.Debug("refresh debounced", "workflow_type", event.WorkflowType, "workflow_id", event.WorkflowID)
		return
	}

	job := domain.RefreshJob{
		ID:           uuid.New().String(),
		WorkflowType: event.WorkflowType,
		RequestedAt:  now,
	}
	if err := c.queue.Push(ctx, job); err != nil {
		c.logger.Error("failed to queue analytics refresh", "workflow_type", event.WorkflowType, "error", err)
		return
	}
	c.lastQueued[event.WorkflowType] = now
	c.logger.Debug("analytics refresh queued", "workflow_type", event.WorkflowType, "job_id", job.ID, "trigger", event.To)
}
