// Package engine owns workflow definitions and the live state of every workflow
// instance. All operations are in-memory and synchronous; callers only ever see
// copies of engine-owned state.
package engine

import (
	"sort"
	"sync"
	"time"

	"threadcraft/internal/domain"

	"github.com/google/uuid"
)

// Recorder receives engine outcomes, e.g. for metrics. Implementations must not block.
type Recorder interface {
	WorkflowCreated(workflowType string)
	TransitionApplied(workflowType string, from, to domain.StepID, terminal bool)
	TransitionRejected(workflowType string, kind domain.ErrorKind)
}

type nopRecorder struct{}

func (nopRecorder) WorkflowCreated(string) {}

func (nopRecorder) TransitionApplied(string, domain.StepID, domain.StepID, bool) {}

func (nopRecorder) TransitionRejected(string, domain.ErrorKind) {}

// instance guards one workflow's state. Mutations of different workflows never contend.
type instance struct {
	mu    sync.Mutex
	state domain.WorkflowState
	def   *domain.Definition
}

type Engine struct {
	defsMu sync.RWMutex
	defs   map[string]*domain.Definition

	instMu    sync.RWMutex
	instances map[string]*instance

	now      func() time.Time
	newID    func() string
	recorder Recorder
}

type Option func(*Engine)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the uuid based workflow id generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New creates an empty engine. The composition root owns it and hands it to whoever
// needs it; there is no package level instance.
func New(opts ...Option) *Engine {
	e := &Engine{
		defs:      make(map[string]*domain.Definition),
		instances: make(map[string]*instance),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterDefinition validates def and adds it to the registry.
func (e *Engine) RegisterDefinition(def domain.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	stored := def.Clone()

	e.defsMu.Lock()
	defer e.defsMu.Unlock()
	if _, exists := e.defs[def.Name]; exists {
		return &domain.Error{Kind: domain.KindDuplicateDefinition, Op: "register definition", WorkflowType: def.Name}
	}
	e.defs[def.Name] = &stored
	return nil
}

// Definition returns a copy of the named definition.
func (e *Engine) Definition(name string) (domain.Definition, bool) {
	def, ok := e.lookupDefinition(name)
	if !ok {
		return domain.Definition{}, false
	}
	return def.Clone(), true
}

// Definitions returns copies of all registered definitions sorted by name.
func (e *Engine) Definitions() []domain.Definition {
	e.defsMu.RLock()
	out := make([]domain.Definition, 0, len(e.defs))
	for _, def := range e.defs {
		out = append(out, def.Clone())
	}
	e.defsMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *Engine) lookupDefinition(name string) (*domain.Definition, bool) {
	e.defsMu.RLock()
	defer e.defsMu.RUnlock()
	def, ok := e.defs[name]
	return def, ok
}

// CreateOptions are the optional inputs of CreateWorkflow.
type CreateOptions struct {
	// InitialStep defaults to the definition's start step.
	InitialStep domain.StepID
	// WorkflowID defaults to a generated uuid.
	WorkflowID string
	Metadata   domain.Metadata
}

// CreateWorkflow starts a new instance of workflowType.
func (e *Engine) CreateWorkflow(workflowType string, opts CreateOptions) (domain.WorkflowState, error) {
	const op = "create workflow"

	def, ok := e.lookupDefinition(workflowType)
	if !ok {
		return domain.WorkflowState{}, &domain.Error{Kind: domain.KindUnknownWorkflowType, Op: op, WorkflowType: workflowType}
	}

	initial := opts.InitialStep
	if initial == "" {
		initial = def.Start
	}
	if !def.HasStep(initial) {
		return domain.WorkflowState{}, &domain.Error{Kind: domain.KindInvalidStep, Op: op, WorkflowType: workflowType, Step: initial}
	}

	id := opts.WorkflowID
	if id == "" {
		id = e.newID()
	}

	inst := &instance{
		state: domain.NewWorkflowState(id, workflowType, initial, e.now(), opts.Metadata),
		def:   def,
	}
	snapshot := inst.state.Clone()

	e.instMu.Lock()
	if _, exists := e.instances[id]; exists {
		e.instMu.Unlock()
		return domain.WorkflowState{}, &domain.Error{Kind: domain.KindDuplicateWorkflow, Op: op, WorkflowID: id, WorkflowType: workflowType}
	}
	e.instances[id] = inst
	e.instMu.Unlock()

	e.recorder.WorkflowCreated(workflowType)
	return snapshot, nil
}

// Transition moves the workflow to target if the definition allows it. On failure the
// instance is left untouched.
func (e *Engine) Transition(workflowID string, target domain.StepID, meta domain.Metadata) (domain.WorkflowState, error) {
	const op = "transition"

	inst, ok := e.lookupInstance(workflowID)
	if !ok {
		return domain.WorkflowState{}, &domain.Error{Kind: domain.KindUnknownWorkflow, Op: op, WorkflowID: workflowID, Target: target}
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	current := inst.state.CurrentStep
	step := inst.def.Steps[current]

	if step.Terminal {
		e.recorder.TransitionRejected(inst.state.WorkflowType, domain.KindTerminalState)
		return domain.WorkflowState{}, &domain.Error{
			Kind: domain.KindTerminalState, Op: op,
			WorkflowID: workflowID, WorkflowType: inst.state.WorkflowType,
			Step: current, Target: target,
		}
	}
	if !step.Allows(target) {
		e.recorder.TransitionRejected(inst.state.WorkflowType, domain.KindInvalidTransition)
		return domain.WorkflowState{}, &domain.Error{
			Kind: domain.KindInvalidTransition, Op: op,
			WorkflowID: workflowID, WorkflowType: inst.state.WorkflowType,
			Step: current, Target: target,
		}
	}

	at := e.now()
	inst.state.History = append(inst.state.History, domain.HistoryEntry{
		StepID:    target,
		Timestamp: at,
		Actor:     meta.Actor,
		Notes:     meta.Notes,
	})
	inst.state.CurrentStep = target
	inst.state.UpdatedAt = at

	e.recorder.TransitionApplied(inst.state.WorkflowType, current, target, inst.def.IsTerminal(target))
	return inst.state.Clone(), nil
}

// GetState returns a copy of the workflow's state.
func (e *Engine) GetState(workflowID string) (domain.WorkflowState, error) {
	inst, ok := e.lookupInstance(workflowID)
	if !ok {
		return domain.WorkflowState{}, &domain.Error{Kind: domain.KindUnknownWorkflow, Op: "get state", WorkflowID: workflowID}
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state.Clone(), nil
}

// GetHistory returns a copy of the workflow's history.
func (e *Engine) GetHistory(workflowID string) ([]domain.HistoryEntry, error) {
	inst, ok := e.lookupInstance(workflowID)
	if !ok {
		return nil, &domain.Error{Kind: domain.KindUnknownWorkflow, Op: "get history", WorkflowID: workflowID}
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return append([]domain.HistoryEntry(nil), inst.state.History...), nil
}

// ListActiveWorkflows returns copies of every instance not sitting in a terminal step.
// An empty workflowType lists all types.
func (e *Engine) ListActiveWorkflows(workflowType string) []domain.WorkflowState {
	return e.collect(workflowType, true)
}

// Snapshots returns copies of every instance of workflowType, terminal or not.
func (e *Engine) Snapshots(workflowType string) []domain.WorkflowState {
	return e.collect(workflowType, false)
}

func (e *Engine) collect(workflowType string, activeOnly bool) []domain.WorkflowState {
	e.instMu.RLock()
	insts := make([]*instance, 0, len(e.instances))
	for _, inst := range e.instances {
		insts = append(insts, inst)
	}
	e.instMu.RUnlock()

	var out []domain.WorkflowState
	for _, inst := range insts {
		inst.mu.Lock()
		matches := workflowType == "" || inst.state.WorkflowType == workflowType
		if matches && (!activeOnly || !inst.def.IsTerminal(inst.state.CurrentStep)) {
			out = append(out, inst.state.Clone())
		}
		inst.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].WorkflowID < out[j].WorkflowID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Restore loads previously persisted snapshots into the engine. Snapshots whose type is
// not registered, whose history names an unknown step or is inconsistent are skipped
// and reported; ids already present are left alone.
func (e *Engine) Restore(states []domain.WorkflowState) (restored int, rejected []error) {
	const op = "restore"

	for _, s := range states {
		def, ok := e.lookupDefinition(s.WorkflowType)
		if !ok {
			rejected = append(rejected, &domain.Error{Kind: domain.KindUnknownWorkflowType, Op: op, WorkflowID: s.WorkflowID, WorkflowType: s.WorkflowType})
			continue
		}
		if !s.Consistent() {
			rejected = append(rejected, &domain.Error{Kind: domain.KindInvalidStep, Op: op, WorkflowID: s.WorkflowID, WorkflowType: s.WorkflowType, Step: s.CurrentStep})
			continue
		}
		if step, ok := unknownStep(def, s.History); ok {
			rejected = append(rejected, &domain.Error{Kind: domain.KindInvalidStep, Op: op, WorkflowID: s.WorkflowID, WorkflowType: s.WorkflowType, Step: step})
			continue
		}

		e.instMu.Lock()
		if _, exists := e.instances[s.WorkflowID]; exists {
			e.instMu.Unlock()
			rejected = append(rejected, &domain.Error{Kind: domain.KindDuplicateWorkflow, Op: op, WorkflowID: s.WorkflowID, WorkflowType: s.WorkflowType})
			continue
		}
		e.instances[s.WorkflowID] = &instance{state: s.Clone(), def: def}
		e.instMu.Unlock()
		restored++
	}
	return restored, rejected
}

func unknownStep(def *domain.Definition, history []domain.HistoryEntry) (domain.StepID, bool) {
	for _, entry := range history {
		if !def.HasStep(entry.StepID) {
			return entry.StepID, true
		}
	}
	return "", false
}

func (e *Engine) lookupInstance(id string) (*instance, bool) {
	e.instMu.RLock()
	defer e.instMu.RUnlock()
	inst, ok := e.instances[id]
	return inst, ok
}
