package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"threadcraft/internal/analytics"
	"threadcraft/internal/domain"
	"threadcraft/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanQueue struct {
	jobs chan domain.RefreshJob
}

func (q *chanQueue) Push(ctx context.Context, job domain.RefreshJob) error {
	q.jobs <- job
	return nil
}

func (q *chanQueue) Pop(ctx context.Context) (domain.RefreshJob, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return domain.RefreshJob{}, ctx.Err()
	}
}

type jobCounter struct {
	mu     sync.Mutex
	status map[string]int
}

func (r *jobCounter) RefreshJobDone(workflowType, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == nil {
		r.status = make(map[string]int)
	}
	r.status[status]++
}

func (r *jobCounter) count(status string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status[status]
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) handler(name string, err error) ReportHandler {
	return func(ctx context.Context, workflowType string) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.calls = append(l.calls, name+":"+workflowType)
		return err
	}
}

func (l *callLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func TestProcessNextJob(t *testing.T) {
	queue := &chanQueue{jobs: make(chan domain.RefreshJob, 1)}
	log := &callLog{}
	recorder := &jobCounter{}
	registry := ReportRegistry{
		"patterns":    log.handler("patterns", nil),
		"performance": log.handler("performance", nil),
	}
	w := NewWorker(queue, registry, recorder, logging.Discard())

	require.NoError(t, queue.Push(context.Background(), domain.RefreshJob{ID: "job-1", WorkflowType: "order_lifecycle", RequestedAt: time.Now()}))
	require.NoError(t, w.ProcessNextJob(context.Background()))

	assert.Equal(t, []string{"patterns:order_lifecycle", "performance:order_lifecycle"}, log.calls)
	assert.Equal(t, 1, recorder.count("ok"))
}

func TestProcessNextJobReportFailure(t *testing.T) {
	queue := &chanQueue{jobs: make(chan domain.RefreshJob, 1)}
	log := &callLog{}
	recorder := &jobCounter{}
	registry := ReportRegistry{
		"performance": log.handler("performance", errors.New("db down")),
		"predictive":  log.handler("predictive", nil),
	}
	w := NewWorker(queue, registry, recorder, logging.Discard())

	require.NoError(t, queue.Push(context.Background(), domain.RefreshJob{ID: "job-2", WorkflowType: "production_run"}))
	require.NoError(t, w.ProcessNextJob(context.Background()))

	assert.Equal(t, 2, log.len(), "a failing report must not stop the others")
	assert.Equal(t, 1, recorder.count("error"))
}

func TestProcessNextJobPopError(t *testing.T) {
	queue := &chanQueue{jobs: make(chan domain.RefreshJob)}
	w := NewWorker(queue, ReportRegistry{}, nil, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.ProcessNextJob(ctx), context.Canceled)
}

func TestStartPool(t *testing.T) {
	queue := &chanQueue{jobs: make(chan domain.RefreshJob, 10)}
	log := &callLog{}
	recorder := &jobCounter{}
	w := NewWorker(queue, ReportRegistry{"performance": log.handler("performance", nil)}, recorder, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	w.StartPool(ctx, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, queue.Push(ctx, domain.RefreshJob{WorkflowType: "design_approval"}))
	}
	assert.Eventually(t, func() bool { return recorder.count("ok") == 5 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	w.Wait()
	assert.Equal(t, 5, log.len())
}

type fakeAnalytics struct {
	mu        sync.Mutex
	refreshed []string
}

func (f *fakeAnalytics) Performance(ctx context.Context, workflowType string) (analytics.WorkflowMetrics, error) {
	return analytics.WorkflowMetrics{}, nil
}

func (f *fakeAnalytics) Patterns(ctx context.Context, workflowType string) (analytics.TransitionPatterns, error) {
	return analytics.TransitionPatterns{}, nil
}

func (f *fakeAnalytics) Predictive(ctx context.Context, workflowType string) (analytics.PredictiveAnalytics, error) {
	return analytics.PredictiveAnalytics{}, nil
}

func (f *fakeAnalytics) Recommendations(ctx context.Context, workflowType string) ([]analytics.BusinessInsight, error) {
	return nil, nil
}

func (f *fakeAnalytics) Refresh(ctx context.Context, report, workflowType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, report+":"+workflowType)
	return nil
}

func TestInitRegistry(t *testing.T) {
	svc := &fakeAnalytics{}
	registry := InitRegistry(svc)

	assert.Equal(t, []string{"patterns", "performance", "predictive", "recommendations"}, registry.names())
	for _, name := range registry.names() {
		require.NoError(t, registry[name](context.Background(), "order_lifecycle"))
	}
	assert.Equal(t, []string{
		"patterns:order_lifecycle",
		"performance:order_lifecycle",
		"predictive:order_lifecycle",
		"recommendations:order_lifecycle",
	}, svc.refreshed)
}
