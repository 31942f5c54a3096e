package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"threadcraft/internal/core/ports"
	"threadcraft/internal/domain"

	"gorm.io/datatypes"
)

// WorkflowRepository persists workflow snapshots and serves them back to the engine
// (restore) and to analytics.
type WorkflowRepository interface {
	ports.StateStore
	ports.SnapshotSource
}

// WorkflowRecord is the stored form of a domain.WorkflowState. History is kept as a
// JSON array; HistoryLen guards against out-of-order writes.
type WorkflowRecord struct {
	ID           string         `gorm:"type:varchar(64);primary_key"`
	WorkflowType string         `gorm:"type:varchar(64);index;not null"`
	CurrentStep  string         `gorm:"type:varchar(64);index;not null"`
	History      datatypes.JSON `gorm:"type:jsonb;not null"`
	HistoryLen   int            `gorm:"not null"`

	CreatedAt time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (WorkflowRecord) TableName() string {
	return "workflow_states"
}

func toRecord(state domain.WorkflowState) (WorkflowRecord, error) {
	history, err := json.Marshal(state.History)
	if err != nil {
		return WorkflowRecord{}, fmt.Errorf("encode history of %s: %w", state.WorkflowID, err)
	}
	return WorkflowRecord{
		ID:           state.WorkflowID,
		WorkflowType: state.WorkflowType,
		CurrentStep:  string(state.CurrentStep),
		History:      datatypes.JSON(history),
		HistoryLen:   len(state.History),
		CreatedAt:    state.CreatedAt.UTC(),
		UpdatedAt:    state.UpdatedAt.UTC(),
	}, nil
}

func (r WorkflowRecord) toState() (domain.WorkflowState, error) {
	var history []domain.HistoryEntry
	if err := json.Unmarshal(r.History, &history); err != nil {
		return domain.WorkflowState{}, fmt.Errorf("decode history of %s: %w", r.ID, err)
	}
	return domain.WorkflowState{
		WorkflowID:   r.ID,
		WorkflowType: r.WorkflowType,
		CurrentStep:  domain.StepID(r.CurrentStep),
		History:      history,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}
