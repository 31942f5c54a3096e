package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindDuplicateDefinition ErrorKind = "duplicate_definition"
	KindInvalidDefinition   ErrorKind = "invalid_definition"
	KindUnknownWorkflowType ErrorKind = "unknown_workflow_type"
	KindInvalidStep         ErrorKind = "invalid_step"
	KindUnknownWorkflow     ErrorKind = "unknown_workflow"
	KindDuplicateWorkflow   ErrorKind = "duplicate_workflow"
	KindInvalidTransition   ErrorKind = "invalid_transition"
	KindTerminalState       ErrorKind = "terminal_state"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrDuplicateDefinition = &Error{Kind: KindDuplicateDefinition}
	ErrInvalidDefinition   = &Error{Kind: KindInvalidDefinition}
	ErrUnknownWorkflowType = &Error{Kind: KindUnknownWorkflowType}
	ErrInvalidStep         = &Error{Kind: KindInvalidStep}
	ErrUnknownWorkflow     = &Error{Kind: KindUnknownWorkflow}
	ErrDuplicateWorkflow   = &Error{Kind: KindDuplicateWorkflow}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrTerminalState       = &Error{Kind: KindTerminalState}
)

// Error is returned by every engine operation that rejects its input.
type Error struct {
	Kind         ErrorKind
	Op           string
	WorkflowID   string
	WorkflowType string
	Step         StepID
	Target       StepID
	Message      string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.describe()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) describe() string {
	switch e.Kind {
	case KindDuplicateDefinition:
		return fmt.Sprintf("workflow type %q is already registered", e.WorkflowType)
	case KindUnknownWorkflowType:
		return fmt.Sprintf("workflow type %q is not registered", e.WorkflowType)
	case KindInvalidStep:
		return fmt.Sprintf("step %q is not part of workflow type %q", e.Step, e.WorkflowType)
	case KindUnknownWorkflow:
		return fmt.Sprintf("workflow %q does not exist", e.WorkflowID)
	case KindDuplicateWorkflow:
		return fmt.Sprintf("workflow %q already exists", e.WorkflowID)
	case KindInvalidTransition:
		return fmt.Sprintf("workflow %q cannot move from %q to %q", e.WorkflowID, e.Step, e.Target)
	case KindTerminalState:
		return fmt.Sprintf("workflow %q is in terminal step %q", e.WorkflowID, e.Step)
	default:
		return string(e.Kind)
	}
}

// Is matches on kind so callers can use the package sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func AsError(err error) (*Error, bool) {
	var out *Error
	if errors.As(err, &out) {
		return out, true
	}
	return nil, false
}

func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	return e.Kind == kind
}
