package handler

import (
	"errors"
	"net/http"

	"threadcraft/internal/analytics"
	"threadcraft/internal/api/dto"
	"threadcraft/internal/domain"

	"github.com/gin-gonic/gin"
)

// statusFor maps engine error kinds to HTTP status codes.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnknownWorkflow, domain.KindUnknownWorkflowType:
		return http.StatusNotFound
	case domain.KindInvalidTransition, domain.KindTerminalState,
		domain.KindDuplicateDefinition, domain.KindDuplicateWorkflow:
		return http.StatusConflict
	case domain.KindInvalidStep, domain.KindInvalidDefinition:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a problem details body for err.
func respondError(c *gin.Context, err error) {
	if derr, ok := domain.AsError(err); ok {
		status := statusFor(derr.Kind)
		writeProblem(c, status, derr.Error(), string(derr.Kind))
		return
	}
	if errors.Is(err, analytics.ErrNoExpectedDuration) {
		writeProblem(c, http.StatusUnprocessableEntity, err.Error(), "no_expected_duration")
		return
	}

	_ = c.Error(err)
	writeProblem(c, http.StatusInternalServerError, "internal error", "")
}

func respondBindError(c *gin.Context, err error) {
	writeProblem(c, http.StatusBadRequest, err.Error(), "invalid_request")
}

func writeProblem(c *gin.Context, status int, detail, kind string) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, dto.ProblemDetails{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Kind:   kind,
	})
}
