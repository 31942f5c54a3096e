package analytics

import (
	"sort"
	"time"

	"threadcraft/internal/domain"
)

type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendStable     TrendDirection = "stable"
	TrendDecreasing TrendDirection = "decreasing"
)

// CompletionPrediction estimates when an active workflow will finish.
type CompletionPrediction struct {
	WorkflowID          string        `json:"workflow_id"`
	CurrentStep         domain.StepID `json:"current_step"`
	Elapsed             time.Duration `json:"elapsed"`
	EstimatedRemaining  time.Duration `json:"estimated_remaining"`
	EstimatedCompletion time.Time     `json:"estimated_completion"`
	RiskLevel           Level         `json:"risk_level"`
}

type DemandForecast struct {
	WindowDays        int     `json:"window_days"`
	RecentCount       int     `json:"recent_count"`
	DailyAverage      float64 `json:"daily_average"`
	WeeklyProjection  float64 `json:"weekly_projection"`
	MonthlyProjection float64 `json:"monthly_projection"`
}

// Trend compares instance creation in the latest window against the one before it.
type Trend struct {
	Direction     TrendDirection `json:"direction"`
	RecentCount   int            `json:"recent_count"`
	PriorCount    int            `json:"prior_count"`
	ChangePercent float64        `json:"change_percent"`
}

type PredictiveAnalytics struct {
	WorkflowType       string                 `json:"workflow_type"`
	ExpectedCompletion time.Duration          `json:"expected_completion"`
	Predictions        []CompletionPrediction `json:"predictions"`
	DemandForecast     DemandForecast         `json:"demand_forecast"`
	Trend              Trend                  `json:"trend"`
	GeneratedAt        time.Time              `json:"generated_at"`
}

// GeneratePredictiveAnalytics estimates remaining time and risk for every active
// workflow and forecasts demand from recent creation counts.
func (a *Analyzer) GeneratePredictiveAnalytics(workflows []domain.WorkflowState, workflowType string) (PredictiveAnalytics, error) {
	def, err := a.Definition(workflowType)
	if err != nil {
		return PredictiveAnalytics{}, err
	}
	expected, err := a.policy.expectedCompletion(def)
	if err != nil {
		return PredictiveAnalytics{}, err
	}
	now := a.now()
	workflows = scope(workflows, workflowType)

	out := PredictiveAnalytics{
		WorkflowType:       workflowType,
		ExpectedCompletion: expected,
		Predictions:        []CompletionPrediction{},
		GeneratedAt:        now,
	}

	for _, wf := range workflows {
		if def.IsTerminal(wf.CurrentStep) {
			continue
		}
		elapsed := now.Sub(wf.CreatedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		remaining := expected - elapsed
		if remaining < 0 {
			remaining = 0
		}
		out.Predictions = append(out.Predictions, CompletionPrediction{
			WorkflowID:          wf.WorkflowID,
			CurrentStep:         wf.CurrentStep,
			Elapsed:             elapsed,
			EstimatedRemaining:  remaining,
			EstimatedCompletion: now.Add(remaining),
			RiskLevel:           riskLevel(elapsed, expected),
		})
	}
	sort.SliceStable(out.Predictions, func(i, j int) bool {
		pi, pj := out.Predictions[i], out.Predictions[j]
		if pi.RiskLevel.Rank() != pj.RiskLevel.Rank() {
			return pi.RiskLevel.Rank() > pj.RiskLevel.Rank()
		}
		return pi.Elapsed > pj.Elapsed
	})

	out.DemandForecast, out.Trend = a.forecast(workflows, now)
	return out, nil
}

func riskLevel(elapsed, expected time.Duration) Level {
	switch {
	case float64(elapsed) > 1.5*float64(expected):
		return LevelHigh
	case elapsed > expected:
		return LevelMedium
	default:
		return LevelLow
	}
}

// forecast counts creations in the trailing window and the window before it.
// Instances created in the future are ignored.
func (a *Analyzer) forecast(workflows []domain.WorkflowState, now time.Time) (DemandForecast, Trend) {
	window := a.policy.ForecastWindow
	recentStart := now.Add(-window)
	priorStart := recentStart.Add(-window)

	var recent, prior int
	for _, wf := range workflows {
		created := wf.CreatedAt
		switch {
		case created.After(now):
		case !created.Before(recentStart):
			recent++
		case !created.Before(priorStart):
			prior++
		}
	}

	days := int(window / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	daily := float64(recent) / float64(days)
	forecast := DemandForecast{
		WindowDays:        days,
		RecentCount:       recent,
		DailyAverage:      daily,
		WeeklyProjection:  daily * 7,
		MonthlyProjection: daily * 30,
	}

	trend := Trend{Direction: TrendStable, RecentCount: recent, PriorCount: prior}
	switch {
	case prior == 0 && recent > 0:
		trend.Direction = TrendIncreasing
		trend.ChangePercent = 100
	case prior > 0:
		change := float64(recent-prior) / float64(prior)
		trend.ChangePercent = change * 100
		if change > a.policy.TrendBand {
			trend.Direction = TrendIncreasing
		} else if change < -a.policy.TrendBand {
			trend.Direction = TrendDecreasing
		}
	}
	return forecast, trend
}
