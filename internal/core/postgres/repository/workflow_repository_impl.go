package repository

import (
	"context"
	"errors"

	"threadcraft/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type workflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository creates a new instance of WorkflowRepository
func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

// Migrate creates or updates the workflow_states table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&WorkflowRecord{})
}

// Save upserts the snapshot. A row is only replaced by a snapshot with a longer history,
// so a late write-through of an older transition is a no-op.
func (r *workflowRepository) Save(ctx context.Context, state domain.WorkflowState) error {
	rec, err := toRecord(state)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_step", "history", "history_len", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "workflow_states.history_len < excluded.history_len"},
		}},
	}).Create(&rec).Error
}

func (r *workflowRepository) Get(ctx context.Context, workflowID string) (domain.WorkflowState, error) {
	var rec WorkflowRecord
	err := r.db.WithContext(ctx).Where("id = ?", workflowID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.WorkflowState{}, &domain.Error{Kind: domain.KindUnknownWorkflow, Op: "load workflow", WorkflowID: workflowID}
	}
	if err != nil {
		return domain.WorkflowState{}, err
	}
	return rec.toState()
}

func (r *workflowRepository) ListAll(ctx context.Context) ([]domain.WorkflowState, error) {
	var recs []WorkflowRecord
	err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toStates(recs)
}

func (r *workflowRepository) ListSnapshots(ctx context.Context, workflowType string, rng domain.DateRange) ([]domain.WorkflowState, error) {
	query := r.db.WithContext(ctx).Where("workflow_type = ?", workflowType)

	created := r.db.Session(&gorm.Session{NewDB: true})
	bounded := false
	if !rng.From.IsZero() {
		created = created.Where("created_at >= ?", rng.From.UTC())
		bounded = true
	}
	if !rng.To.IsZero() {
		created = created.Where("created_at < ?", rng.To.UTC())
		bounded = true
	}
	if bounded {
		if len(rng.OpenSteps) > 0 {
			steps := make([]string, len(rng.OpenSteps))
			for i, step := range rng.OpenSteps {
				steps[i] = string(step)
			}
			created = created.Or("current_step IN ?", steps)
		}
		query = query.Where(created)
	}

	var recs []WorkflowRecord
	if err := query.Order("created_at ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return toStates(recs)
}

func toStates(recs []WorkflowRecord) ([]domain.WorkflowState, error) {
	out := make([]domain.WorkflowState, 0, len(recs))
	for _, rec := range recs {
		state, err := rec.toState()
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, nil
}
