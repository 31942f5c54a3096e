package analytics

import (
	"fmt"
	"sort"
	"strings"

	"threadcraft/internal/domain"
)

type InsightCategory string

const (
	CategoryEfficiency     InsightCategory = "efficiency"
	CategoryBottleneck     InsightCategory = "bottleneck"
	CategoryTrend          InsightCategory = "trend"
	CategoryRecommendation InsightCategory = "recommendation"
)

// BusinessInsight is one ranked finding for the operations dashboard.
type BusinessInsight struct {
	Category    InsightCategory    `json:"category"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Impact      Level              `json:"impact"`
	ActionItems []string           `json:"action_items"`
	Metrics     map[string]float64 `json:"metrics"`
}

// GenerateOptimizationRecommendations combines performance, pattern and predictive
// reports into insights ranked from highest to lowest impact.
func (a *Analyzer) GenerateOptimizationRecommendations(workflows []domain.WorkflowState, workflowType string) ([]BusinessInsight, error) {
	perf, err := a.AnalyzeWorkflowPerformance(workflows, workflowType)
	if err != nil {
		return nil, err
	}
	patterns, err := a.AnalyzeTransitionPatterns(workflows, workflowType)
	if err != nil {
		return nil, err
	}
	predictive, err := a.GeneratePredictiveAnalytics(workflows, workflowType)
	if err != nil {
		return nil, err
	}

	insights := []BusinessInsight{}
	if in, ok := a.efficiencyInsight(perf, predictive); ok {
		insights = append(insights, in)
	}
	if in, ok := bottleneckInsight(perf); ok {
		insights = append(insights, in)
	}
	if in, ok := a.successInsight(perf); ok {
		insights = append(insights, in)
	}
	if in, ok := trendInsight(predictive); ok {
		insights = append(insights, in)
	}
	if in, ok := riskInsight(predictive); ok {
		insights = append(insights, in)
	}
	if in, ok := reworkInsight(patterns); ok {
		insights = append(insights, in)
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Impact.Rank() > insights[j].Impact.Rank()
	})
	return insights, nil
}

func (a *Analyzer) efficiencyInsight(perf WorkflowMetrics, predictive PredictiveAnalytics) (BusinessInsight, bool) {
	expected := predictive.ExpectedCompletion
	if perf.CompletedWorkflows == 0 || perf.AverageCompletionTime <= expected {
		return BusinessInsight{}, false
	}
	impact := LevelMedium
	if float64(perf.AverageCompletionTime) > 1.5*float64(expected) {
		impact = LevelHigh
	}
	return BusinessInsight{
		Category: CategoryEfficiency,
		Title:    "Workflows finish later than expected",
		Description: fmt.Sprintf("Completed %s workflows take %.1f days on average against an expected %.1f days",
			perf.WorkflowType, perf.AverageCompletionTime.Hours()/24, expected.Hours()/24),
		Impact: impact,
		ActionItems: []string{
			"Review the slowest steps in the bottleneck report",
			"Agree turnaround targets with designers and manufacturers",
		},
		Metrics: map[string]float64{
			"average_completion_hours":  perf.AverageCompletionTime.Hours(),
			"expected_completion_hours": expected.Hours(),
			"completed_workflows":       float64(perf.CompletedWorkflows),
		},
	}, true
}

func bottleneckInsight(perf WorkflowMetrics) (BusinessInsight, bool) {
	var (
		steps   []string
		actions []string
		stuck   int
		worst   float64
	)
	for _, b := range perf.Bottlenecks {
		if b.Impact != LevelHigh {
			continue
		}
		steps = append(steps, string(b.Step))
		actions = append(actions, b.Recommendations...)
		stuck += b.WorkflowsStuck
		if h := b.AverageDwell.Hours(); h > worst {
			worst = h
		}
	}
	if len(steps) == 0 {
		return BusinessInsight{}, false
	}
	return BusinessInsight{
		Category:    CategoryBottleneck,
		Title:       "High impact bottlenecks detected",
		Description: fmt.Sprintf("Steps holding up %s workflows: %s", perf.WorkflowType, strings.Join(steps, ", ")),
		Impact:      LevelHigh,
		ActionItems: actions,
		Metrics: map[string]float64{
			"high_impact_steps":         float64(len(steps)),
			"workflows_stuck":           float64(stuck),
			"worst_average_dwell_hours": worst,
		},
	}, true
}

func (a *Analyzer) successInsight(perf WorkflowMetrics) (BusinessInsight, bool) {
	if perf.TotalWorkflows == 0 || perf.SuccessRate >= a.policy.LowSuccessRate {
		return BusinessInsight{}, false
	}
	impact := LevelMedium
	if perf.SuccessRate < a.policy.LowSuccessRate/2 {
		impact = LevelHigh
	}
	return BusinessInsight{
		Category:    CategoryRecommendation,
		Title:       "Low completion rate",
		Description: fmt.Sprintf("Only %.1f%% of %s workflows have reached a final step", perf.SuccessRate, perf.WorkflowType),
		Impact:      impact,
		ActionItems: []string{
			"Review open workflows with their account owners",
			"Check whether cancellations share a common cause",
		},
		Metrics: map[string]float64{
			"success_rate":        perf.SuccessRate,
			"total_workflows":     float64(perf.TotalWorkflows),
			"completed_workflows": float64(perf.CompletedWorkflows),
		},
	}, true
}

func trendInsight(predictive PredictiveAnalytics) (BusinessInsight, bool) {
	trend := predictive.Trend
	metrics := map[string]float64{
		"recent_count":       float64(trend.RecentCount),
		"prior_count":        float64(trend.PriorCount),
		"change_percent":     trend.ChangePercent,
		"weekly_projection":  predictive.DemandForecast.WeeklyProjection,
		"monthly_projection": predictive.DemandForecast.MonthlyProjection,
	}
	switch trend.Direction {
	case TrendIncreasing:
		return BusinessInsight{
			Category:    CategoryTrend,
			Title:       "Demand is increasing",
			Description: fmt.Sprintf("%d new %s workflows in the last %d days, %d in the period before", trend.RecentCount, predictive.WorkflowType, predictive.DemandForecast.WindowDays, trend.PriorCount),
			Impact:      LevelMedium,
			ActionItems: []string{
				"Confirm designer and manufacturer capacity for the projected volume",
				"Reorder popular blanks ahead of demand",
			},
			Metrics: metrics,
		}, true
	case TrendDecreasing:
		return BusinessInsight{
			Category:    CategoryTrend,
			Title:       "Demand is decreasing",
			Description: fmt.Sprintf("%d new %s workflows in the last %d days, down from %d", trend.RecentCount, predictive.WorkflowType, predictive.DemandForecast.WindowDays, trend.PriorCount),
			Impact:      LevelLow,
			ActionItems: []string{
				"Ask sales to follow up with dormant accounts",
			},
			Metrics: metrics,
		}, true
	default:
		return BusinessInsight{}, false
	}
}

func riskInsight(predictive PredictiveAnalytics) (BusinessInsight, bool) {
	var high, medium int
	for _, p := range predictive.Predictions {
		switch p.RiskLevel {
		case LevelHigh:
			high++
		case LevelMedium:
			medium++
		}
	}
	if high+medium == 0 {
		return BusinessInsight{}, false
	}
	impact := LevelMedium
	if high > 0 {
		impact = LevelHigh
	}
	return BusinessInsight{
		Category:    CategoryRecommendation,
		Title:       "Workflows at risk of running late",
		Description: fmt.Sprintf("%d active %s workflows are past their expected completion time", high+medium, predictive.WorkflowType),
		Impact:      impact,
		ActionItems: []string{
			"Prioritise the oldest open workflows",
			"Notify affected customers about revised delivery dates",
		},
		Metrics: map[string]float64{
			"high_risk":   float64(high),
			"medium_risk": float64(medium),
		},
	}, true
}

func reworkInsight(patterns TransitionPatterns) (BusinessInsight, bool) {
	if len(patterns.UnusualPatterns) == 0 {
		return BusinessInsight{}, false
	}
	var (
		steps []string
		worst float64
	)
	for _, u := range patterns.UnusualPatterns {
		steps = append(steps, string(u.Step))
		if u.BackwardRatio > worst {
			worst = u.BackwardRatio
		}
	}
	return BusinessInsight{
		Category:    CategoryRecommendation,
		Title:       "Frequent rework",
		Description: fmt.Sprintf("Steps that often send %s workflows backwards: %s", patterns.WorkflowType, strings.Join(steps, ", ")),
		Impact:      LevelMedium,
		ActionItems: []string{
			"Review why work returns from these steps",
			"Add a checklist before handing work forward",
		},
		Metrics: map[string]float64{
			"steps_flagged":        float64(len(steps)),
			"worst_backward_ratio": worst,
		},
	}, true
}
