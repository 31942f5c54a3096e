package domain

import (
	"time"
)

// TransitionEvent is published to Redis Pub/Sub after the engine accepts a step change.
// Creation is published as well, with an empty From.
type TransitionEvent struct {
	WorkflowID   string    `json:"workflow_id"`
	WorkflowType string    `json:"workflow_type"`
	From         StepID    `json:"from,omitempty"`
	To           StepID    `json:"to"`
	Terminal     bool      `json:"terminal"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// RefreshJob asks the worker pool to recompute the analytics reports of one workflow type.
type RefreshJob struct {
	ID           string    `json:"id"`
	WorkflowType string    `json:"workflow_type"`
	RequestedAt  time.Time `json:"requested_at"`
}
