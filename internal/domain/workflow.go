package domain

import (
	"fmt"
	"slices"
	"time"
)

// StepID names a step inside a workflow definition, e.g. "design_review".
type StepID string

// Step describes one state of a workflow definition.
type Step struct {
	DisplayName string   `json:"display_name"`
	Next        []StepID `json:"next,omitempty"`
	// Terminal steps accept no outgoing transitions.
	Terminal bool `json:"terminal,omitempty"`
	// Failure marks terminal outcomes that do not count as a success (e.g. "cancelled").
	Failure bool `json:"failure,omitempty"`
}

// Allows reports whether target is a declared successor of the step.
func (s Step) Allows(target StepID) bool {
	for _, next := range s.Next {
		if next == target {
			return true
		}
	}
	return false
}

// Definition is a named template for workflow instances. Once registered with the
// engine it is never mutated.
type Definition struct {
	Name  string          `json:"name"`
	Start StepID          `json:"start"`
	Steps map[StepID]Step `json:"steps"`

	// CanonicalOrder is the forward order of steps used to detect backward moves.
	// Definitions without one skip that check.
	CanonicalOrder []StepID `json:"canonical_order,omitempty"`

	// ExpectedCompletion is the policy duration for a full run of this workflow type.
	// Zero means no policy; analytics then falls back to its own table.
	ExpectedCompletion time.Duration `json:"expected_completion,omitempty"`
}

// Validate checks the definition is a well formed state machine.
func (d Definition) Validate() error {
	if d.Name == "" {
		return invalidDefinition(d.Name, "name is required")
	}
	if len(d.Steps) == 0 {
		return invalidDefinition(d.Name, "at least one step is required")
	}
	if _, ok := d.Steps[d.Start]; !ok {
		return invalidDefinition(d.Name, fmt.Sprintf("start step %q is not declared", d.Start))
	}
	for id, step := range d.Steps {
		if id == "" {
			return invalidDefinition(d.Name, "step ids must not be empty")
		}
		if step.Terminal && len(step.Next) > 0 {
			return invalidDefinition(d.Name, fmt.Sprintf("terminal step %q declares next steps", id))
		}
		if step.Failure && !step.Terminal {
			return invalidDefinition(d.Name, fmt.Sprintf("failure step %q must be terminal", id))
		}
		for _, next := range step.Next {
			if _, ok := d.Steps[next]; !ok {
				return invalidDefinition(d.Name, fmt.Sprintf("step %q points to undeclared step %q", id, next))
			}
		}
	}
	seen := make(map[StepID]bool, len(d.CanonicalOrder))
	for _, id := range d.CanonicalOrder {
		if _, ok := d.Steps[id]; !ok {
			return invalidDefinition(d.Name, fmt.Sprintf("canonical order names undeclared step %q", id))
		}
		if seen[id] {
			return invalidDefinition(d.Name, fmt.Sprintf("canonical order repeats step %q", id))
		}
		seen[id] = true
	}
	if d.ExpectedCompletion < 0 {
		return invalidDefinition(d.Name, "expected completion must not be negative")
	}
	return nil
}

// HasStep reports whether id is a step of the definition.
func (d Definition) HasStep(id StepID) bool {
	_, ok := d.Steps[id]
	return ok
}

func (d Definition) IsTerminal(id StepID) bool {
	return d.Steps[id].Terminal
}

func (d Definition) IsFailure(id StepID) bool {
	return d.Steps[id].Failure
}

// TerminalSteps returns the set of terminal step ids.
func (d Definition) TerminalSteps() map[StepID]bool {
	out := make(map[StepID]bool)
	for id, step := range d.Steps {
		if step.Terminal {
			out[id] = true
		}
	}
	return out
}

// OpenSteps returns the non-terminal step ids in sorted order.
func (d Definition) OpenSteps() []StepID {
	out := make([]StepID, 0, len(d.Steps))
	for id, step := range d.Steps {
		if !step.Terminal {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// CanonicalIndex returns the position of id in the canonical order.
func (d Definition) CanonicalIndex(id StepID) (int, bool) {
	for i, step := range d.CanonicalOrder {
		if step == id {
			return i, true
		}
	}
	return -1, false
}

// ParseStep validates raw against the definition's step set.
func (d Definition) ParseStep(raw string) (StepID, error) {
	id := StepID(raw)
	if !d.HasStep(id) {
		return "", &Error{Kind: KindInvalidStep, Op: "parse step", WorkflowType: d.Name, Step: id}
	}
	return id, nil
}

// Clone returns a deep copy so the registry never shares slices or maps with callers.
func (d Definition) Clone() Definition {
	out := d
	out.Steps = make(map[StepID]Step, len(d.Steps))
	for id, step := range d.Steps {
		step.Next = append([]StepID(nil), step.Next...)
		out.Steps[id] = step
	}
	out.CanonicalOrder = append([]StepID(nil), d.CanonicalOrder...)
	return out
}

func invalidDefinition(name, msg string) error {
	return &Error{Kind: KindInvalidDefinition, Op: "register definition", WorkflowType: name, Message: msg}
}
