package analytics

import (
	"fmt"
	"sort"
	"time"

	"threadcraft/internal/domain"
)

// BottleneckAnalysis grades how much one step slows workflows down.
type BottleneckAnalysis struct {
	Step            domain.StepID `json:"step"`
	AverageDwell    time.Duration `json:"average_dwell"`
	Visits          int           `json:"visits"`
	WorkflowsStuck  int           `json:"workflows_stuck"`
	Impact          Level         `json:"impact"`
	Recommendations []string      `json:"recommendations"`
}

func (a *Analyzer) detectBottlenecks(def domain.Definition, workflows []domain.WorkflowState, stats *stepStats, now time.Time) []BottleneckAnalysis {
	stuck := make(map[domain.StepID]int)
	for _, wf := range workflows {
		if def.IsTerminal(wf.CurrentStep) {
			continue
		}
		if now.Sub(wf.EnteredCurrentStepAt()) > a.policy.StuckThreshold {
			stuck[wf.CurrentStep]++
			stats.get(wf.CurrentStep)
		}
	}

	out := make([]BottleneckAnalysis, 0, len(stats.order))
	for _, id := range stats.order {
		st := stats.byStep[id]
		b := BottleneckAnalysis{
			Step:           id,
			AverageDwell:   averageDuration(st.dwells),
			Visits:         len(st.dwells),
			WorkflowsStuck: stuck[id],
		}
		b.Impact = a.policy.classify(b.AverageDwell, b.WorkflowsStuck)
		b.Recommendations = a.recommendationsFor(b)
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageDwell != out[j].AverageDwell {
			return out[i].AverageDwell > out[j].AverageDwell
		}
		return out[i].WorkflowsStuck > out[j].WorkflowsStuck
	})
	return out
}

// recommendationsFor looks the step up in the policy table and appends the generic
// suggestions triggered by thresholds. Low impact steps get none.
func (a *Analyzer) recommendationsFor(b BottleneckAnalysis) []string {
	recs := []string{}
	if b.Impact == LevelLow {
		return recs
	}
	recs = append(recs, a.policy.StepRecommendations[b.Step]...)
	if b.AverageDwell > a.policy.HighDwell {
		recs = append(recs, fmt.Sprintf("Average time in %s exceeds %s; add capacity or split the step", b.Step, formatHours(a.policy.HighDwell)))
	} else if b.AverageDwell > a.policy.MediumDwell {
		recs = append(recs, fmt.Sprintf("Average time in %s exceeds %s; set an internal SLA for it", b.Step, formatHours(a.policy.MediumDwell)))
	}
	if b.WorkflowsStuck > 0 {
		recs = append(recs, fmt.Sprintf("Follow up on %d workflow(s) waiting in %s for more than %s", b.WorkflowsStuck, b.Step, formatHours(a.policy.StuckThreshold)))
	}
	return recs
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%.0fh", d.Hours())
}
