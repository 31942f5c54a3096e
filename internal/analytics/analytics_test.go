package analytics

import (
	"testing"
	"time"

	"threadcraft/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type definitions map[string]domain.Definition

func (d definitions) Definition(name string) (domain.Definition, bool) {
	def, ok := d[name]
	return def, ok
}

func orderFulfillment() domain.Definition {
	return domain.Definition{
		Name:  "orderFulfillment",
		Start: "draft",
		Steps: map[domain.StepID]domain.Step{
			"draft":           {Next: []domain.StepID{"payment_pending", "cancelled"}},
			"payment_pending": {Next: []domain.StepID{"production", "cancelled"}},
			"production":      {Next: []domain.StepID{"completed"}},
			"completed":       {Terminal: true},
			"cancelled":       {Terminal: true, Failure: true},
		},
		CanonicalOrder: []domain.StepID{"draft", "payment_pending", "production", "completed"},
	}
}

func designApproval() domain.Definition {
	return domain.Definition{
		Name:  "designApproval",
		Start: "submitted",
		Steps: map[domain.StepID]domain.Step{
			"submitted":          {Next: []domain.StepID{"in_progress"}},
			"in_progress":        {Next: []domain.StepID{"review"}},
			"review":             {Next: []domain.StepID{"review", "revision_requested", "approved"}},
			"revision_requested": {Next: []domain.StepID{"in_progress"}},
			"approved":           {Terminal: true},
		},
		CanonicalOrder:     []domain.StepID{"submitted", "in_progress", "review", "revision_requested", "approved"},
		ExpectedCompletion: 14 * 24 * time.Hour,
	}
}

func newTestAnalyzer(opts ...Option) *Analyzer {
	defs := definitions{
		"orderFulfillment": orderFulfillment(),
		"designApproval":   designApproval(),
	}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(defs, opts...)
}

type visit struct {
	step domain.StepID
	at   time.Duration
}

// snapshot builds a workflow whose history enters each step at testNow minus the
// given age. Visits must be listed oldest first.
func snapshot(id, workflowType string, visits ...visit) domain.WorkflowState {
	history := make([]domain.HistoryEntry, 0, len(visits))
	for _, v := range visits {
		history = append(history, domain.HistoryEntry{StepID: v.step, Timestamp: testNow.Add(-v.at)})
	}
	return domain.WorkflowState{
		WorkflowID:   id,
		WorkflowType: workflowType,
		CurrentStep:  history[len(history)-1].StepID,
		History:      history,
		CreatedAt:    history[0].Timestamp,
		UpdatedAt:    history[len(history)-1].Timestamp,
	}
}

const (
	hour = time.Hour
	day  = 24 * time.Hour
)

func stuckAndCompleted() []domain.WorkflowState {
	return []domain.WorkflowState{
		snapshot("stuck", "orderFulfillment",
			visit{"draft", 40 * hour},
			visit{"payment_pending", 35 * hour},
			visit{"production", 30 * hour},
		),
		snapshot("done", "orderFulfillment",
			visit{"draft", 10 * hour},
			visit{"payment_pending", 9*hour + 30*time.Minute},
			visit{"production", 9 * hour},
			visit{"completed", 8 * hour},
		),
	}
}

func findBottleneck(t *testing.T, m WorkflowMetrics, step domain.StepID) BottleneckAnalysis {
	t.Helper()
	for _, b := range m.Bottlenecks {
		if b.Step == step {
			return b
		}
	}
	t.Fatalf("no bottleneck entry for %s", step)
	return BottleneckAnalysis{}
}

func findStep(t *testing.T, m WorkflowMetrics, step domain.StepID) StepPerformance {
	t.Helper()
	for _, p := range m.StepPerformance {
		if p.Step == step {
			return p
		}
	}
	t.Fatalf("no step performance entry for %s", step)
	return StepPerformance{}
}

func TestAnalyzeWorkflowPerformance(t *testing.T) {
	a := newTestAnalyzer()

	m, err := a.AnalyzeWorkflowPerformance(stuckAndCompleted(), "orderFulfillment")
	require.NoError(t, err)

	assert.Equal(t, 2, m.TotalWorkflows)
	assert.Equal(t, 1, m.CompletedWorkflows)
	assert.InDelta(t, 50.0, m.SuccessRate, 1e-9)
	assert.Equal(t, 2*hour, m.AverageCompletionTime)
	assert.Equal(t, testNow, m.GeneratedAt)

	production := findBottleneck(t, m, "production")
	assert.Equal(t, 1, production.WorkflowsStuck)
	assert.Equal(t, LevelMedium, production.Impact)
	assert.Equal(t, hour, production.AverageDwell)
	assert.NotEmpty(t, production.Recommendations)

	draft := findBottleneck(t, m, "draft")
	assert.Equal(t, 0, draft.WorkflowsStuck)
	assert.Equal(t, LevelLow, draft.Impact)
	assert.Empty(t, draft.Recommendations)

	for i := 1; i < len(m.Bottlenecks); i++ {
		assert.GreaterOrEqual(t, m.Bottlenecks[i-1].AverageDwell, m.Bottlenecks[i].AverageDwell)
	}
}

func TestAnalyzeWorkflowPerformanceEmpty(t *testing.T) {
	a := newTestAnalyzer()

	m, err := a.AnalyzeWorkflowPerformance(nil, "orderFulfillment")
	require.NoError(t, err)
	assert.Zero(t, m.TotalWorkflows)
	assert.Zero(t, m.CompletedWorkflows)
	assert.Zero(t, m.SuccessRate)
	assert.Zero(t, m.AverageCompletionTime)
	assert.NotNil(t, m.Bottlenecks)
	assert.Empty(t, m.Bottlenecks)
	assert.NotNil(t, m.StepPerformance)
	assert.Empty(t, m.StepPerformance)
}

func TestAnalyzeWorkflowPerformanceSingleCompletedWorkflow(t *testing.T) {
	a := newTestAnalyzer()
	wf := snapshot("one", "orderFulfillment",
		visit{"draft", 6 * hour},
		visit{"payment_pending", 5 * hour},
		visit{"production", 3 * hour},
		visit{"completed", 2 * hour},
	)

	m, err := a.AnalyzeWorkflowPerformance([]domain.WorkflowState{wf}, "orderFulfillment")
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalWorkflows)
	assert.Equal(t, 1, m.CompletedWorkflows)
	assert.InDelta(t, 100.0, m.SuccessRate, 1e-9)
	assert.Equal(t, 4*hour, m.AverageCompletionTime)
	for _, b := range m.Bottlenecks {
		assert.Zero(t, b.WorkflowsStuck, b.Step)
	}
}

func TestAnalyzeWorkflowPerformanceIgnoresOtherTypes(t *testing.T) {
	a := newTestAnalyzer()
	workflows := append(stuckAndCompleted(), snapshot("other", "designApproval", visit{"submitted", hour}))

	m, err := a.AnalyzeWorkflowPerformance(workflows, "orderFulfillment")
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalWorkflows)
}

func TestAnalyzeUnknownWorkflowType(t *testing.T) {
	a := newTestAnalyzer()

	_, err := a.AnalyzeWorkflowPerformance(nil, "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownWorkflowType)
	_, err = a.AnalyzeTransitionPatterns(nil, "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownWorkflowType)
	_, err = a.GeneratePredictiveAnalytics(nil, "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownWorkflowType)
	_, err = a.GenerateOptimizationRecommendations(nil, "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownWorkflowType)
}

func TestStepPerformance(t *testing.T) {
	a := newTestAnalyzer()
	workflows := []domain.WorkflowState{
		snapshot("a", "orderFulfillment",
			visit{"draft", 10 * hour},
			visit{"payment_pending", 8 * hour},
		),
		snapshot("b", "orderFulfillment",
			visit{"draft", 10 * hour},
			visit{"cancelled", 6 * hour},
		),
		snapshot("c", "orderFulfillment",
			visit{"draft", 10 * hour},
			visit{"payment_pending", 4 * hour},
		),
	}

	m, err := a.AnalyzeWorkflowPerformance(workflows, "orderFulfillment")
	require.NoError(t, err)

	draft := findStep(t, m, "draft")
	assert.Equal(t, 3, draft.TotalTransitions)
	assert.Equal(t, 4*hour, draft.AverageTimeSpent)
	assert.InDelta(t, 200.0/3.0, draft.SuccessRate, 1e-9)
	assert.Equal(t, []ExitPoint{{Step: "payment_pending", Count: 2}, {Step: "cancelled", Count: 1}}, draft.CommonExitPoints)

	cancelled := findStep(t, m, "cancelled")
	assert.Equal(t, 1, cancelled.TotalTransitions)
	assert.Zero(t, cancelled.AverageTimeSpent)
	assert.Zero(t, cancelled.SuccessRate)
	assert.Empty(t, cancelled.CommonExitPoints)
}

func TestTopExitPointsKeepsFirstSeenOrderOnTies(t *testing.T) {
	st := &stepStat{exits: map[domain.StepID]int{}}
	for _, id := range []domain.StepID{"x", "y", "z", "w", "y"} {
		if _, ok := st.exits[id]; !ok {
			st.exitOrder = append(st.exitOrder, id)
		}
		st.exits[id]++
	}

	got := topExitPoints(st, 3)
	assert.Equal(t, []ExitPoint{{"y", 2}, {"x", 1}, {"z", 1}}, got)
}

func TestClassifyIsMonotonic(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		dwell time.Duration
		stuck int
		want  Level
	}{
		{0, 0, LevelLow},
		{24 * hour, 0, LevelLow},
		{25 * hour, 0, LevelMedium},
		{hour, 1, LevelMedium},
		{hour, 3, LevelMedium},
		{72 * hour, 5, LevelMedium},
		{73 * hour, 0, LevelHigh},
		{hour, 6, LevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.classify(tt.dwell, tt.stuck), "dwell=%s stuck=%d", tt.dwell, tt.stuck)
	}

	dwells := []time.Duration{0, 12 * hour, 24 * hour, 30 * hour, 72 * hour, 80 * hour}
	for _, d := range dwells {
		for s := 0; s < 8; s++ {
			base := p.classify(d, s).Rank()
			assert.GreaterOrEqual(t, p.classify(d, s+1).Rank(), base)
			assert.GreaterOrEqual(t, p.classify(d+hour, s).Rank(), base)
		}
	}
}

func TestStuckIgnoresTerminalSteps(t *testing.T) {
	a := newTestAnalyzer()
	old := snapshot("old", "orderFulfillment",
		visit{"draft", 10 * day},
		visit{"cancelled", 9 * day},
	)

	m, err := a.AnalyzeWorkflowPerformance([]domain.WorkflowState{old}, "orderFulfillment")
	require.NoError(t, err)
	assert.Zero(t, findBottleneck(t, m, "cancelled").WorkflowsStuck)
}

func TestHighImpactFromManyStuckWorkflows(t *testing.T) {
	a := newTestAnalyzer()
	var workflows []domain.WorkflowState
	for _, id := range []string{"1", "2", "3", "4", "5", "6"} {
		workflows = append(workflows, snapshot(id, "orderFulfillment",
			visit{"draft", 50 * hour},
			visit{"payment_pending", 48 * hour},
		))
	}

	m, err := a.AnalyzeWorkflowPerformance(workflows, "orderFulfillment")
	require.NoError(t, err)

	payment := findBottleneck(t, m, "payment_pending")
	assert.Equal(t, 6, payment.WorkflowsStuck)
	assert.Equal(t, LevelHigh, payment.Impact)
	assert.Contains(t, payment.Recommendations, "Send automated payment reminders and offer additional payment methods")
}
