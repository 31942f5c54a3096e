package analytics

import (
	"sort"
	"time"

	"threadcraft/internal/domain"
)

// StepPerformance describes how instances move through one step.
type StepPerformance struct {
	Step             domain.StepID `json:"step"`
	TotalTransitions int           `json:"total_transitions"`
	AverageTimeSpent time.Duration `json:"average_time_spent"`
	// SuccessRate is the percentage (0-100) of visits made by workflows not resting
	// in a failure step, on the same scale as WorkflowMetrics.SuccessRate.
	SuccessRate      float64     `json:"success_rate"`
	CommonExitPoints []ExitPoint `json:"common_exit_points"`
}

type ExitPoint struct {
	Step  domain.StepID `json:"step"`
	Count int           `json:"count"`
}

// stepStats is the per-step aggregate shared by bottleneck and step-performance analysis.
type stepStats struct {
	order  []domain.StepID
	byStep map[domain.StepID]*stepStat
}

type stepStat struct {
	visits        int
	successVisits int
	// dwells are closed visits only: the gap to the next history entry.
	dwells    []time.Duration
	exits     map[domain.StepID]int
	exitOrder []domain.StepID
}

func (s *stepStats) get(id domain.StepID) *stepStat {
	st, ok := s.byStep[id]
	if !ok {
		st = &stepStat{exits: make(map[domain.StepID]int)}
		s.byStep[id] = st
		s.order = append(s.order, id)
	}
	return st
}

func collectStepStats(def domain.Definition, workflows []domain.WorkflowState) *stepStats {
	stats := &stepStats{byStep: make(map[domain.StepID]*stepStat)}

	for _, wf := range workflows {
		failed := def.IsFailure(wf.CurrentStep)
		for i, entry := range wf.History {
			st := stats.get(entry.StepID)
			st.visits++
			if !failed {
				st.successVisits++
			}
			if i+1 >= len(wf.History) {
				continue
			}
			next := wf.History[i+1]
			dwell := next.Timestamp.Sub(entry.Timestamp)
			if dwell < 0 {
				dwell = 0
			}
			st.dwells = append(st.dwells, dwell)
			if _, seen := st.exits[next.StepID]; !seen {
				st.exitOrder = append(st.exitOrder, next.StepID)
			}
			st.exits[next.StepID]++
		}
		if len(wf.History) == 0 && wf.CurrentStep != "" {
			stats.get(wf.CurrentStep)
		}
	}
	return stats
}

func (a *Analyzer) stepPerformance(stats *stepStats) []StepPerformance {
	out := make([]StepPerformance, 0, len(stats.order))
	for _, id := range stats.order {
		st := stats.byStep[id]
		perf := StepPerformance{
			Step:             id,
			TotalTransitions: st.visits,
			AverageTimeSpent: averageDuration(st.dwells),
			CommonExitPoints: topExitPoints(st, a.policy.TopExitPoints),
		}
		if st.visits > 0 {
			perf.SuccessRate = float64(st.successVisits) / float64(st.visits) * 100
		}
		out = append(out, perf)
	}
	return out
}

// topExitPoints returns the n most frequent next steps. Ties keep first-observed order.
func topExitPoints(st *stepStat, n int) []ExitPoint {
	exits := make([]ExitPoint, 0, len(st.exitOrder))
	for _, id := range st.exitOrder {
		exits = append(exits, ExitPoint{Step: id, Count: st.exits[id]})
	}
	sort.SliceStable(exits, func(i, j int) bool { return exits[i].Count > exits[j].Count })
	if len(exits) > n {
		exits = exits[:n]
	}
	return exits
}
