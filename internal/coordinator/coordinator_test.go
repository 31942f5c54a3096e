package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"threadcraft/internal/domain"
	"threadcraft/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	events chan domain.TransitionEvent
	err    error
}

func (b *fakeBus) PublishTransition(ctx context.Context, event domain.TransitionEvent) error {
	b.events <- event
	return nil
}

func (b *fakeBus) SubscribeToTransitions(ctx context.Context) (<-chan domain.TransitionEvent, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.events, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []domain.RefreshJob
	err  error
}

func (q *fakeQueue) Push(ctx context.Context, job domain.RefreshJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Pop(ctx context.Context) (domain.RefreshJob, error) {
	<-ctx.Done()
	return domain.RefreshJob{}, ctx.Err()
}

func (q *fakeQueue) pushed() []domain.RefreshJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.RefreshJob(nil), q.jobs...)
}

func TestHandleTransitionDebounce(t *testing.T) {
	queue := &fakeQueue{}
	c := NewCoordinator(&fakeBus{}, queue, time.Minute, logging.Discard())

	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.handleTransition(ctx, domain.TransitionEvent{WorkflowType: "order_lifecycle", To: "design_requested"})
	c.handleTransition(ctx, domain.TransitionEvent{WorkflowType: "order_lifecycle", To: "design_in_progress"})
	c.handleTransition(ctx, domain.TransitionEvent{WorkflowType: "production_run", To: "cutting"})
	require.Len(t, queue.pushed(), 2)

	c.handleTransition(ctx, domain.TransitionEvent{WorkflowType: "order_lifecycle", To: "delivered", Terminal: true})
	require.Len(t, queue.pushed(), 3)

	now = now.Add(2 * time.Minute)
	c.handleTransition(ctx, domain.TransitionEvent{WorkflowType: "order_lifecycle", To: "design_review"})

	jobs := queue.pushed()
	require.Len(t, jobs, 4)
	assert.Equal(t, "order_lifecycle", jobs[0].WorkflowType)
	assert.Equal(t, "production_run", jobs[1].WorkflowType)
	assert.Equal(t, now, jobs[3].RequestedAt)
	assert.NotEmpty(t, jobs[3].ID)
}

func TestHandleTransitionPushFailureDoesNotDebounce(t *testing.T) {
	queue := &fakeQueue{err: errors.New("redis down")}
	c := NewCoordinator(&fakeBus{}, queue, time.Hour, logging.Discard())
	ctx := context.Background()

	c.handleTransition(ctx, domain.TransitionEvent{WorkflowType: "order_lifecycle"})
	assert.Empty(t, c.lastQueued)

	queue.err = nil
	c.handleTransition(ctx, domain.TransitionEvent{WorkflowType: "order_lifecycle"})
	assert.Len(t, queue.pushed(), 1)
}

func TestStart(t *testing.T) {
	bus := &fakeBus{events: make(chan domain.TransitionEvent, 4)}
	queue := &fakeQueue{}
	c := NewCoordinator(bus, queue, 0, logging.Discard())

	bus.events <- domain.TransitionEvent{WorkflowType: "design_approval", To: "review"}
	bus.events <- domain.TransitionEvent{WorkflowType: "design_approval", To: "approved", Terminal: true}
	close(bus.events)

	require.NoError(t, c.Start(context.Background()))
	assert.Len(t, queue.pushed(), 2)
}

func TestStartStopsOnCancel(t *testing.T) {
	bus := &fakeBus{events: make(chan domain.TransitionEvent)}
	c := NewCoordinator(bus, &fakeQueue{}, 0, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("coordinator did not stop")
	}
}

func TestStartSubscribeError(t *testing.T) {
	c := NewCoordinator(&fakeBus{err: errors.New("no redis")}, &fakeQueue{}, 0, logging.Discard())
	assert.Error(t, c.Start(context.Background()))
}
