package domain

import (
	"slices"
	"time"
)

// HistoryEntry records one accepted step entry of a workflow instance.
type HistoryEntry struct {
	StepID    StepID    `json:"step_id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Metadata is the optional caller information attached to a transition.
type Metadata struct {
	Actor string `json:"actor,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// WorkflowState is a snapshot of one workflow instance.
type WorkflowState struct {
	WorkflowID   string         `json:"workflow_id"`
	WorkflowType string         `json:"workflow_type"`
	CurrentStep  StepID         `json:"current_step"`
	History      []HistoryEntry `json:"history"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// --- FACTORY ---
func NewWorkflowState(id, workflowType string, initial StepID, at time.Time, meta Metadata) WorkflowState {
	return WorkflowState{
		WorkflowID:   id,
		WorkflowType: workflowType,
		CurrentStep:  initial,
		History: []HistoryEntry{{
			StepID:    initial,
			Timestamp: at,
			Actor:     meta.Actor,
			Notes:     meta.Notes,
		}},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// --- METHODS ---

// Clone returns a copy that shares no memory with s.
func (s WorkflowState) Clone() WorkflowState {
	out := s
	out.History = append([]HistoryEntry(nil), s.History...)
	return out
}

// LastEntry returns the most recent history entry.
func (s WorkflowState) LastEntry() (HistoryEntry, bool) {
	if len(s.History) == 0 {
		return HistoryEntry{}, false
	}
	return s.History[len(s.History)-1], true
}

// EnteredCurrentStepAt is the time the instance entered its current step.
func (s WorkflowState) EnteredCurrentStepAt() time.Time {
	if last, ok := s.LastEntry(); ok {
		return last.Timestamp
	}
	return s.UpdatedAt
}

// Duration is the time between the first and the last history entry. Instances with
// fewer than two entries have no measurable duration.
func (s WorkflowState) Duration() (time.Duration, bool) {
	if len(s.History) < 2 {
		return 0, false
	}
	return s.History[len(s.History)-1].Timestamp.Sub(s.History[0].Timestamp), true
}

// Consistent reports whether the snapshot honours the history invariants.
func (s WorkflowState) Consistent() bool {
	last, ok := s.LastEntry()
	return ok && last.StepID == s.CurrentStep
}

// DateRange bounds snapshot queries by creation time. Zero bounds are open.
// Workflows sitting in one of OpenSteps are selected whatever their creation time.
type DateRange struct {
	From      time.Time
	To        time.Time
	OpenSteps []StepID
}

// Contains reports whether t falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Includes reports whether the snapshot is selected by the range.
func (r DateRange) Includes(s WorkflowState) bool {
	return r.Contains(s.CreatedAt) || slices.Contains(r.OpenSteps, s.CurrentStep)
}
