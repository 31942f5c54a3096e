package dto

type StepDTO struct {
	DisplayName string   `json:"display_name"`
	Next        []string `json:"next"`
	Terminal    bool     `json:"terminal"`
	Failure     bool     `json:"failure"`
}

type RegisterDefinitionRequest struct {
	Name                    string             `json:"name" binding:"required"`
	Start                   string             `json:"start" binding:"required"`
	Steps                   map[string]StepDTO `json:"steps" binding:"required,min=1"`
	CanonicalOrder          []string           `json:"canonical_order"`
	ExpectedCompletionHours float64            `json:"expected_completion_hours" binding:"gte=0"`
}

type CreateWorkflowRequest struct {
	WorkflowType string `json:"workflow_type" binding:"required"`
	InitialStep  string `json:"initial_step"`
	WorkflowID   string `json:"workflow_id"`
	Actor        string `json:"actor"`
	Notes        string `json:"notes"`
}

type TransitionRequest struct {
	TargetStep string `json:"target_step" binding:"required"`
	Actor      string `json:"actor"`
	Notes      string `json:"notes"`
}
