package ports

import (
	"context"
	"time"

	"threadcraft/internal/domain"
)

// SnapshotSource supplies workflow snapshots to analytics.
type SnapshotSource interface {
	// All snapshots of workflowType created within r. Each snapshot carries full history.
	ListSnapshots(ctx context.Context, workflowType string, r domain.DateRange) ([]domain.WorkflowState, error)
}

// StateStore is the durable side of the engine: written through on every accepted
// change and read back at start-up.
type StateStore interface {
	// Save upserts the snapshot. A snapshot with a shorter history than the stored one
	// is ignored so that a late write never rolls a workflow back.
	Save(ctx context.Context, state domain.WorkflowState) error

	// Get a single workflow by id
	Get(ctx context.Context, workflowID string) (domain.WorkflowState, error)

	// Every stored workflow, oldest first (used to restore the engine)
	ListAll(ctx context.Context) ([]domain.WorkflowState, error)
}

// EventBus represents the event bus operations
type EventBus interface {
	// Publish "workflow X moved to step Y" to Redis Pub/Sub
	PublishTransition(ctx context.Context, event domain.TransitionEvent) error

	// Subscribe to transition events (Used by Coordinator)
	SubscribeToTransitions(ctx context.Context) (<-chan domain.TransitionEvent, error)
}

// RefreshQueue carries analytics refresh jobs from the coordinator to the workers.
type RefreshQueue interface {
	// Push a job to the end of the queue
	Push(ctx context.Context, job domain.RefreshJob) error

	// Wait (Block) until a job is available
	Pop(ctx context.Context) (domain.RefreshJob, error)
}

// ReportCache stores serialized analytics reports keyed by report and workflow type.
type ReportCache interface {
	Get(ctx context.Context, report, workflowType string) ([]byte, bool, error)
	Set(ctx context.Context, report, workflowType string, payload []byte, ttl time.Duration) error
}
