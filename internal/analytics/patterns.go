package analytics

import (
	"sort"

	"threadcraft/internal/domain"
)

// TransitionPatterns describes how instances actually move between steps.
type TransitionPatterns struct {
	WorkflowType     string                                  `json:"workflow_type"`
	TotalTransitions int                                     `json:"total_transitions"`
	Matrix           map[domain.StepID]map[domain.StepID]int `json:"matrix"`
	LoopDetection    map[domain.StepID]int                   `json:"loop_detection"`
	MostCommonPaths  []PathCount                             `json:"most_common_paths"`
	UnusualPatterns  []UnusualPattern                        `json:"unusual_patterns"`
}

type PathCount struct {
	From  domain.StepID `json:"from"`
	To    domain.StepID `json:"to"`
	Count int           `json:"count"`
}

// UnusualPattern flags a step whose outgoing transitions often move backwards.
type UnusualPattern struct {
	Step                domain.StepID `json:"step"`
	BackwardTransitions int           `json:"backward_transitions"`
	TotalTransitions    int           `json:"total_transitions"`
	BackwardRatio       float64       `json:"backward_ratio"`
}

// AnalyzeTransitionPatterns builds the from/to matrix over all histories and derives
// self loops, the most common paths and backward-heavy steps. Backward moves are judged
// against the definition's canonical order; definitions without one report none.
func (a *Analyzer) AnalyzeTransitionPatterns(workflows []domain.WorkflowState, workflowType string) (TransitionPatterns, error) {
	def, err := a.Definition(workflowType)
	if err != nil {
		return TransitionPatterns{}, err
	}
	workflows = scope(workflows, workflowType)

	out := TransitionPatterns{
		WorkflowType:    workflowType,
		Matrix:          make(map[domain.StepID]map[domain.StepID]int),
		LoopDetection:   make(map[domain.StepID]int),
		MostCommonPaths: []PathCount{},
		UnusualPatterns: []UnusualPattern{},
	}

	var (
		paths     []PathCount
		pathIndex = make(map[[2]domain.StepID]int)
		outgoing  = make(map[domain.StepID]int)
		backward  = make(map[domain.StepID]int)
	)
	for _, wf := range workflows {
		for i := 1; i < len(wf.History); i++ {
			from, to := wf.History[i-1].StepID, wf.History[i].StepID

			row, ok := out.Matrix[from]
			if !ok {
				row = make(map[domain.StepID]int)
				out.Matrix[from] = row
			}
			row[to]++
			out.TotalTransitions++
			outgoing[from]++

			if from == to {
				out.LoopDetection[from]++
			}

			key := [2]domain.StepID{from, to}
			if idx, ok := pathIndex[key]; ok {
				paths[idx].Count++
			} else {
				pathIndex[key] = len(paths)
				paths = append(paths, PathCount{From: from, To: to, Count: 1})
			}

			fromIdx, fromOK := def.CanonicalIndex(from)
			toIdx, toOK := def.CanonicalIndex(to)
			if fromOK && toOK && toIdx < fromIdx {
				backward[from]++
			}
		}
	}

	sort.SliceStable(paths, func(i, j int) bool { return paths[i].Count > paths[j].Count })
	if len(paths) > a.policy.TopPaths {
		paths = paths[:a.policy.TopPaths]
	}
	out.MostCommonPaths = append(out.MostCommonPaths, paths...)

	for _, step := range def.CanonicalOrder {
		total := outgoing[step]
		if total == 0 {
			continue
		}
		ratio := float64(backward[step]) / float64(total)
		if ratio > a.policy.BackwardRatio {
			out.UnusualPatterns = append(out.UnusualPatterns, UnusualPattern{
				Step:                step,
				BackwardTransitions: backward[step],
				TotalTransitions:    total,
				BackwardRatio:       ratio,
			})
		}
	}
	return out, nil
}
