package service

import (
	"context"
	"log/slog"

	"threadcraft/internal/core/ports"
	"threadcraft/internal/domain"
	"threadcraft/internal/engine"
)

type WorkflowService interface {
	RegisterDefinition(ctx context.Context, def domain.Definition) error
	Definitions(ctx context.Context) []domain.Definition
	Definition(ctx context.Context, name string) (domain.Definition, error)

	CreateWorkflow(ctx context.Context, workflowType string, opts engine.CreateOptions) (domain.WorkflowState, error)
	Transition(ctx context.Context, workflowID string, target domain.StepID, meta domain.Metadata) (domain.WorkflowState, error)
	GetState(ctx context.Context, workflowID string) (domain.WorkflowState, error)
	GetHistory(ctx context.Context, workflowID string) ([]domain.HistoryEntry, error)
	ListActiveWorkflows(ctx context.Context, workflowType string) []domain.WorkflowState

	// Restore loads persisted workflows into the engine.
	Restore(ctx context.Context) (int, error)
}

// The Implementation
type workflowService struct {
	engine *engine.Engine
	store  ports.StateStore
	bus    ports.EventBus
	logger *slog.Logger
}

// NewWorkflowService wires the engine to its optional collaborators. A nil store keeps
// workflows in memory only; a nil bus publishes nothing.
func NewWorkflowService(e *engine.Engine, store ports.StateStore, bus ports.EventBus, logger *slog.Logger) WorkflowService {
	return &workflowService{
		engine: e,
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

func (s *workflowService) RegisterDefinition(ctx context.Context, def domain.Definition) error {
	if err := s.engine.RegisterDefinition(def); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "workflow definition registered", "workflow_type", def.Name, "steps", len(def.Steps))
	return nil
}

func (s *workflowService) Definitions(ctx context.Context) []domain.Definition {
	return s.engine.Definitions()
}

func (s *workflowService) Definition(ctx context.Context, name string) (domain.Definition, error) {
	def, ok := s.engine.Definition(name)
	if !ok {
		return domain.Definition{}, &domain.Error{Kind: domain.KindUnknownWorkflowType, Op: "get definition", WorkflowType: name}
	}
	return def, nil
}

func (s *workflowService) CreateWorkflow(ctx context.Context, workflowType string, opts engine.CreateOptions) (domain.WorkflowState, error) {
	// 1. Create the instance in memory
	state, err := s.engine.CreateWorkflow(workflowType, opts)
	if err != nil {
		return domain.WorkflowState{}, err
	}

	// 2. Write-through and broadcast
	s.persist(ctx, state)
	def, _ := s.engine.Definition(state.WorkflowType)
	s.publish(ctx, domain.TransitionEvent{
		WorkflowID:   state.WorkflowID,
		WorkflowType: state.WorkflowType,
		To:           state.CurrentStep,
		Terminal:     def.IsTerminal(state.CurrentStep),
		OccurredAt:   state.CreatedAt,
	})

	s.logger.InfoContext(ctx, "workflow created",
		"workflow_id", state.WorkflowID,
		"workflow_type", state.WorkflowType,
		"step", state.CurrentStep,
	)
	return state, nil
}

func (s *workflowService) Transition(ctx context.Context, workflowID string, target domain.StepID, meta domain.Metadata) (domain.WorkflowState, error) {
	// 1. Validate and apply in the engine
	state, err := s.engine.Transition(workflowID, target, meta)
	if err != nil {
		s.logger.DebugContext(ctx, "transition rejected", "workflow_id", workflowID, "target", target, "error", err)
		return domain.WorkflowState{}, err
	}

	// 2. Write-through and broadcast
	s.persist(ctx, state)

	from := state.History[len(state.History)-2].StepID
	def, _ := s.engine.Definition(state.WorkflowType)
	s.publish(ctx, domain.TransitionEvent{
		WorkflowID:   state.WorkflowID,
		WorkflowType: state.WorkflowType,
		From:         from,
		To:           state.CurrentStep,
		Terminal:     def.IsTerminal(state.CurrentStep),
		OccurredAt:   state.UpdatedAt,
	})

	s.logger.InfoContext(ctx, "workflow transitioned",
		"workflow_id", state.WorkflowID,
		"workflow_type", state.WorkflowType,
		"from", from,
		"to", state.CurrentStep,
		"actor", meta.Actor,
	)
	return state, nil
}

func (s *workflowService) GetState(ctx context.Context, workflowID string) (domain.WorkflowState, error) {
	return s.engine.GetState(workflowID)
}

func (s *workflowService) GetHistory(ctx context.Context, workflowID string) ([]domain.HistoryEntry, error) {
	return s.engine.GetHistory(workflowID)
}

func (s *workflowService) ListActiveWorkflows(ctx context.Context, workflowType string) []domain.WorkflowState {
	return s.engine.ListActiveWorkflows(workflowType)
}

func (s *workflowService) Restore(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	states, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	restored, rejected := s.engine.Restore(states)
	for _, rerr := range rejected {
		s.logger.WarnContext(ctx, "skipping persisted workflow", "error", rerr)
	}
	s.logger.InfoContext(ctx, "workflows restored", "restored", restored, "skipped", len(rejected))
	return restored, nil
}

// persist writes the snapshot through to the store. Failures are logged only; the next
// successful save of the workflow carries the full history.
func (s *workflowService) persist(ctx context.Context, state domain.WorkflowState) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, state); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist workflow", "workflow_id", state.WorkflowID, "error", err)
	}
}

func (s *workflowService) publish(ctx context.Context, event domain.TransitionEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishTransition(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish transition", "workflow_id", event.WorkflowID, "error", err)
	}
}
