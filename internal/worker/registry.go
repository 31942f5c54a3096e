package worker

import (
	"context"
	"sort"

	"threadcraft/internal/service"
)

// ReportHandler is the blueprint for any function that rebuilds one analytics report
type ReportHandler func(ctx context.Context, workflowType string) error

// ReportRegistry holds all the reports a refresh job rebuilds
type ReportRegistry map[string]ReportHandler

// InitRegistry wires every analytics report to the service's refresh
func InitRegistry(svc service.AnalyticsService) ReportRegistry {
	registry := make(ReportRegistry)

	for _, report := range service.Reports {
		registry[report] = func(ctx context.Context, workflowType string) error {
			return svc.Refresh(ctx, report, workflowType)
		}
	}

	return registry
}

// names returns the registered report names in a stable order.
func (r ReportRegistry) names() []string {
	out := make([]string, 0, len(r))
	for name := range r {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
