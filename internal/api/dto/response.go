package dto

import (
	"sort"
	"time"

	"threadcraft/internal/analytics"
	"threadcraft/internal/domain"
)

type HistoryEntryResponse struct {
	StepID    string    `json:"step_id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

type WorkflowResponse struct {
	WorkflowID   string                 `json:"workflow_id"`
	WorkflowType string                 `json:"workflow_type"`
	CurrentStep  string                 `json:"current_step"`
	History      []HistoryEntryResponse `json:"history"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type DefinitionResponse struct {
	Name                    string             `json:"name"`
	Start                   string             `json:"start"`
	Steps                   map[string]StepDTO `json:"steps"`
	CanonicalOrder          []string           `json:"canonical_order"`
	ExpectedCompletionHours float64            `json:"expected_completion_hours"`
}

func NewHistoryResponse(history []domain.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(history))
	for _, h := range history {
		out = append(out, HistoryEntryResponse{
			StepID:    string(h.StepID),
			Timestamp: h.Timestamp,
			Actor:     h.Actor,
			Notes:     h.Notes,
		})
	}
	return out
}

func NewWorkflowResponse(s domain.WorkflowState) WorkflowResponse {
	return WorkflowResponse{
		WorkflowID:   s.WorkflowID,
		WorkflowType: s.WorkflowType,
		CurrentStep:  string(s.CurrentStep),
		History:      NewHistoryResponse(s.History),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func NewDefinitionResponse(def domain.Definition) DefinitionResponse {
	steps := make(map[string]StepDTO, len(def.Steps))
	for id, step := range def.Steps {
		next := make([]string, 0, len(step.Next))
		for _, n := range step.Next {
			next = append(next, string(n))
		}
		steps[string(id)] = StepDTO{
			DisplayName: step.DisplayName,
			Next:        next,
			Terminal:    step.Terminal,
			Failure:     step.Failure,
		}
	}
	order := make([]string, 0, len(def.CanonicalOrder))
	for _, id := range def.CanonicalOrder {
		order = append(order, string(id))
	}
	return DefinitionResponse{
		Name:                    def.Name,
		Start:                   string(def.Start),
		Steps:                   steps,
		CanonicalOrder:          order,
		ExpectedCompletionHours: def.ExpectedCompletion.Hours(),
	}
}

// ToDefinition converts the request into a domain definition; validation happens in
// the engine.
func (r RegisterDefinitionRequest) ToDefinition() domain.Definition {
	steps := make(map[domain.StepID]domain.Step, len(r.Steps))
	for id, s := range r.Steps {
		next := make([]domain.StepID, 0, len(s.Next))
		for _, n := range s.Next {
			next = append(next, domain.StepID(n))
		}
		steps[domain.StepID(id)] = domain.Step{
			DisplayName: s.DisplayName,
			Next:        next,
			Terminal:    s.Terminal,
			Failure:     s.Failure,
		}
	}
	order := make([]domain.StepID, 0, len(r.CanonicalOrder))
	for _, id := range r.CanonicalOrder {
		order = append(order, domain.StepID(id))
	}
	return domain.Definition{
		Name:               r.Name,
		Start:              domain.StepID(r.Start),
		Steps:              steps,
		CanonicalOrder:     order,
		ExpectedCompletion: time.Duration(r.ExpectedCompletionHours * float64(time.Hour)),
	}
}

// Analytics responses report durations in hours.

type BottleneckResponse struct {
	Step              string   `json:"step"`
	AverageDwellHours float64  `json:"average_dwell_hours"`
	Visits            int      `json:"visits"`
	WorkflowsStuck    int      `json:"workflows_stuck"`
	Impact            string   `json:"impact"`
	Recommendations   []string `json:"recommendations"`
}

type ExitPointResponse struct {
	Step  string `json:"step"`
	Count int    `json:"count"`
}

type StepPerformanceResponse struct {
	Step                  string              `json:"step"`
	TotalTransitions      int                 `json:"total_transitions"`
	AverageTimeSpentHours float64             `json:"average_time_spent_hours"`
	// SuccessRate is a percentage, 0-100.
	SuccessRate           float64             `json:"success_rate"`
	CommonExitPoints      []ExitPointResponse `json:"common_exit_points"`
}

type PerformanceResponse struct {
	WorkflowType               string                    `json:"workflow_type"`
	TotalWorkflows             int                       `json:"total_workflows"`
	CompletedWorkflows         int                       `json:"completed_workflows"`
	AverageCompletionTimeHours float64                   `json:"average_completion_time_hours"`
	// SuccessRate is a percentage, 0-100.
	SuccessRate                float64                   `json:"success_rate"`
	Bottlenecks                []BottleneckResponse      `json:"bottlenecks"`
	StepPerformance            []StepPerformanceResponse `json:"step_performance"`
	GeneratedAt                time.Time                 `json:"generated_at"`
}

func NewPerformanceResponse(m analytics.WorkflowMetrics) PerformanceResponse {
	out := PerformanceResponse{
		WorkflowType:               m.WorkflowType,
		TotalWorkflows:             m.TotalWorkflows,
		CompletedWorkflows:         m.CompletedWorkflows,
		AverageCompletionTimeHours: m.AverageCompletionTime.Hours(),
		SuccessRate:                m.SuccessRate,
		Bottlenecks:                make([]BottleneckResponse, 0, len(m.Bottlenecks)),
		StepPerformance:            make([]StepPerformanceResponse, 0, len(m.StepPerformance)),
		GeneratedAt:                m.GeneratedAt,
	}
	for _, b := range m.Bottlenecks {
		out.Bottlenecks = append(out.Bottlenecks, BottleneckResponse{
			Step:              string(b.Step),
			AverageDwellHours: b.AverageDwell.Hours(),
			Visits:            b.Visits,
			WorkflowsStuck:    b.WorkflowsStuck,
			Impact:            string(b.Impact),
			Recommendations:   b.Recommendations,
		})
	}
	for _, p := range m.StepPerformance {
		exits := make([]ExitPointResponse, 0, len(p.CommonExitPoints))
		for _, e := range p.CommonExitPoints {
			exits = append(exits, ExitPointResponse{Step: string(e.Step), Count: e.Count})
		}
		out.StepPerformance = append(out.StepPerformance, StepPerformanceResponse{
			Step:                  string(p.Step),
			TotalTransitions:      p.TotalTransitions,
			AverageTimeSpentHours: p.AverageTimeSpent.Hours(),
			SuccessRate:           p.SuccessRate,
			CommonExitPoints:      exits,
		})
	}
	return out
}

type PathResponse struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

type UnusualPatternResponse struct {
	Step                string  `json:"step"`
	BackwardTransitions int     `json:"backward_transitions"`
	TotalTransitions    int     `json:"total_transitions"`
	BackwardRatio       float64 `json:"backward_ratio"`
}

type PatternsResponse struct {
	WorkflowType     string                    `json:"workflow_type"`
	TotalTransitions int                       `json:"total_transitions"`
	Matrix           map[string]map[string]int `json:"matrix"`
	LoopDetection    map[string]int            `json:"loop_detection"`
	MostCommonPaths  []PathResponse            `json:"most_common_paths"`
	UnusualPatterns  []UnusualPatternResponse  `json:"unusual_patterns"`
}

func NewPatternsResponse(p analytics.TransitionPatterns) PatternsResponse {
	out := PatternsResponse{
		WorkflowType:     p.WorkflowType,
		TotalTransitions: p.TotalTransitions,
		Matrix:           make(map[string]map[string]int, len(p.Matrix)),
		LoopDetection:    make(map[string]int, len(p.LoopDetection)),
		MostCommonPaths:  make([]PathResponse, 0, len(p.MostCommonPaths)),
		UnusualPatterns:  make([]UnusualPatternResponse, 0, len(p.UnusualPatterns)),
	}
	for from, row := range p.Matrix {
		r := make(map[string]int, len(row))
		for to, n := range row {
			r[string(to)] = n
		}
		out.Matrix[string(from)] = r
	}
	for step, n := range p.LoopDetection {
		out.LoopDetection[string(step)] = n
	}
	for _, path := range p.MostCommonPaths {
		out.MostCommonPaths = append(out.MostCommonPaths, PathResponse{From: string(path.From), To: string(path.To), Count: path.Count})
	}
	for _, u := range p.UnusualPatterns {
		out.UnusualPatterns = append(out.UnusualPatterns, UnusualPatternResponse{
			Step:                string(u.Step),
			BackwardTransitions: u.BackwardTransitions,
			TotalTransitions:    u.TotalTransitions,
			BackwardRatio:       u.BackwardRatio,
		})
	}
	return out
}

type PredictionResponse struct {
	WorkflowID              string    `json:"workflow_id"`
	CurrentStep             string    `json:"current_step"`
	ElapsedHours            float64   `json:"elapsed_hours"`
	EstimatedRemainingHours float64   `json:"estimated_remaining_hours"`
	EstimatedCompletion     time.Time `json:"estimated_completion"`
	RiskLevel               string    `json:"risk_level"`
}

type PredictiveResponse struct {
	WorkflowType            string                   `json:"workflow_type"`
	ExpectedCompletionHours float64                  `json:"expected_completion_hours"`
	Predictions             []PredictionResponse     `json:"predictions"`
	DemandForecast          analytics.DemandForecast `json:"demand_forecast"`
	Trend                   analytics.Trend          `json:"trend"`
	GeneratedAt             time.Time                `json:"generated_at"`
}

func NewPredictiveResponse(p analytics.PredictiveAnalytics) PredictiveResponse {
	out := PredictiveResponse{
		WorkflowType:            p.WorkflowType,
		ExpectedCompletionHours: p.ExpectedCompletion.Hours(),
		Predictions:             make([]PredictionResponse, 0, len(p.Predictions)),
		DemandForecast:          p.DemandForecast,
		Trend:                   p.Trend,
		GeneratedAt:             p.GeneratedAt,
	}
	for _, pr := range p.Predictions {
		out.Predictions = append(out.Predictions, PredictionResponse{
			WorkflowID:              pr.WorkflowID,
			CurrentStep:             string(pr.CurrentStep),
			ElapsedHours:            pr.Elapsed.Hours(),
			EstimatedRemainingHours: pr.EstimatedRemaining.Hours(),
			EstimatedCompletion:     pr.EstimatedCompletion,
			RiskLevel:               string(pr.RiskLevel),
		})
	}
	return out
}

// SortedDefinitions is a helper for list endpoints.
func SortedDefinitions(defs []domain.Definition) []DefinitionResponse {
	out := make([]DefinitionResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, NewDefinitionResponse(def))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type ProblemDetails struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Kind   string `json:"kind,omitempty"`
}
