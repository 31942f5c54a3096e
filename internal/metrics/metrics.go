package metrics

import (
	"time"

	"threadcraft/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors exposes engine and analytics activity to Prometheus. It implements
// engine.Recorder.
type Collectors struct {
	workflowsCreated   *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	transitionsFailed  *prometheus.CounterVec
	workflowsCompleted *prometheus.CounterVec
	reportDuration     *prometheus.HistogramVec
	refreshJobs        *prometheus.CounterVec
}

// NewCollectors creates the collectors and registers them with reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		workflowsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcraft_workflows_created_total",
				Help: "Total number of workflow instances created",
			},
			[]string{"workflow_type"},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcraft_workflow_transitions_total",
				Help: "Total number of accepted workflow transitions",
			},
			[]string{"workflow_type", "from", "to"},
		),
		transitionsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcraft_workflow_transitions_rejected_total",
				Help: "Total number of rejected workflow transitions",
			},
			[]string{"workflow_type", "reason"},
		),
		workflowsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcraft_workflows_terminated_total",
				Help: "Total number of workflows that reached a terminal step",
			},
			[]string{"workflow_type", "step"},
		),
		reportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "threadcraft_analytics_report_duration_seconds",
				Help:    "Time spent computing analytics reports",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report", "workflow_type"},
		),
		refreshJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threadcraft_analytics_refresh_jobs_total",
				Help: "Total number of analytics refresh jobs processed",
			},
			[]string{"workflow_type", "status"},
		),
	}

	reg.MustRegister(
		c.workflowsCreated,
		c.transitionsTotal,
		c.transitionsFailed,
		c.workflowsCompleted,
		c.reportDuration,
		c.refreshJobs,
	)
	return c
}

func (c *Collectors) WorkflowCreated(workflowType string) {
	c.workflowsCreated.WithLabelValues(workflowType).Inc()
}

func (c *Collectors) TransitionApplied(workflowType string, from, to domain.StepID, terminal bool) {
	c.transitionsTotal.WithLabelValues(workflowType, string(from), string(to)).Inc()
	if terminal {
		c.workflowsCompleted.WithLabelValues(workflowType, string(to)).Inc()
	}
}

func (c *Collectors) TransitionRejected(workflowType string, kind domain.ErrorKind) {
	c.transitionsFailed.WithLabelValues(workflowType, string(kind)).Inc()
}

// ObserveReport records how long one analytics report took.
func (c *Collectors) ObserveReport(report, workflowType string, took time.Duration) {
	c.reportDuration.WithLabelValues(report, workflowType).Observe(took.Seconds())
}

// RefreshJobDone counts a processed refresh job; status is "ok" or "error".
func (c *Collectors) RefreshJobDone(workflowType, status string) {
	c.refreshJobs.WithLabelValues(workflowType, status).Inc()
}
