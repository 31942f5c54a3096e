// Package analytics computes read-only reports over batches of workflow snapshots.
//
// Every report is a pure function of its input slice, the registered definitions and
// the analyzer clock. Empty input yields zero values, never an error; only caller
// mistakes such as an unregistered workflow type are reported.
package analytics

import (
	"errors"
	"fmt"
	"time"

	"threadcraft/internal/domain"
)

// DefinitionSource resolves workflow definitions by name. *engine.Engine satisfies it.
type DefinitionSource interface {
	Definition(name string) (domain.Definition, bool)
}

// Level grades bottleneck impact and completion risk.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Rank orders levels so that higher is worse.
func (l Level) Rank() int {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	case LevelLow:
		return 1
	default:
		return 0
	}
}

// ErrNoExpectedDuration matches NoExpectedDurationError with errors.Is.
var ErrNoExpectedDuration = errors.New("no expected completion duration")

type NoExpectedDurationError struct {
	WorkflowType string
}

func (e *NoExpectedDurationError) Error() string {
	return fmt.Sprintf("workflow type %q: %s", e.WorkflowType, ErrNoExpectedDuration)
}

func (e *NoExpectedDurationError) Is(target error) bool {
	return target == ErrNoExpectedDuration
}

type Analyzer struct {
	defs   DefinitionSource
	policy Policy
	now    func() time.Time
}

type Option func(*Analyzer)

func WithPolicy(p Policy) Option {
	return func(a *Analyzer) { a.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithStrict makes unknown expected durations an error instead of using the fallback.
func WithStrict(strict bool) Option {
	return func(a *Analyzer) { a.policy.Strict = strict }
}

func New(defs DefinitionSource, opts ...Option) *Analyzer {
	a := &Analyzer{
		defs:   defs,
		policy: DefaultPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WorkflowMetrics summarises the performance of one workflow type.
type WorkflowMetrics struct {
	WorkflowType          string               `json:"workflow_type"`
	TotalWorkflows        int                  `json:"total_workflows"`
	CompletedWorkflows    int                  `json:"completed_workflows"`
	AverageCompletionTime time.Duration        `json:"average_completion_time"`
	// SuccessRate is the percentage (0-100) of workflows resting in a terminal step.
	SuccessRate           float64              `json:"success_rate"`
	Bottlenecks           []BottleneckAnalysis `json:"bottlenecks"`
	StepPerformance       []StepPerformance    `json:"step_performance"`
	GeneratedAt           time.Time            `json:"generated_at"`
}

// AnalyzeWorkflowPerformance computes completion figures, bottlenecks and per-step
// performance for workflows of workflowType.
func (a *Analyzer) AnalyzeWorkflowPerformance(workflows []domain.WorkflowState, workflowType string) (WorkflowMetrics, error) {
	def, err := a.Definition(workflowType)
	if err != nil {
		return WorkflowMetrics{}, err
	}
	now := a.now()
	workflows = scope(workflows, workflowType)

	metrics := WorkflowMetrics{
		WorkflowType:    workflowType,
		TotalWorkflows:  len(workflows),
		Bottlenecks:     []BottleneckAnalysis{},
		StepPerformance: []StepPerformance{},
		GeneratedAt:     now,
	}

	var (
		totalDuration time.Duration
		measured      int
	)
	for _, wf := range workflows {
		if !def.IsTerminal(wf.CurrentStep) {
			continue
		}
		metrics.CompletedWorkflows++
		if d, ok := wf.Duration(); ok {
			totalDuration += d
			measured++
		}
	}
	if measured > 0 {
		metrics.AverageCompletionTime = totalDuration / time.Duration(measured)
	}
	if metrics.TotalWorkflows > 0 {
		metrics.SuccessRate = float64(metrics.CompletedWorkflows) / float64(metrics.TotalWorkflows) * 100
	}

	stats := collectStepStats(def, workflows)
	metrics.Bottlenecks = a.detectBottlenecks(def, workflows, stats, now)
	metrics.StepPerformance = a.stepPerformance(stats)
	return metrics, nil
}

// Definition resolves the definition reports for workflowType are computed against.
func (a *Analyzer) Definition(workflowType string) (domain.Definition, error) {
	def, ok := a.defs.Definition(workflowType)
	if !ok {
		return domain.Definition{}, &domain.Error{Kind: domain.KindUnknownWorkflowType, Op: "analyze", WorkflowType: workflowType}
	}
	return def, nil
}

// scope drops snapshots of other workflow types. Snapshots without a type are kept.
func scope(workflows []domain.WorkflowState, workflowType string) []domain.WorkflowState {
	out := make([]domain.WorkflowState, 0, len(workflows))
	for _, wf := range workflows {
		if wf.WorkflowType == "" || wf.WorkflowType == workflowType {
			out = append(out, wf)
		}
	}
	return out
}

func averageDuration(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range samples {
		total += s
	}
	return total / time.Duration(len(samples))
}
