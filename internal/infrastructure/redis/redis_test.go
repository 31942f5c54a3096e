package redis

import (
	"context"
	"testing"
	"time"

	"threadcraft/internal/domain"
	"threadcraft/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestDecodeTransition(t *testing.T) {
	event, err := decodeTransition(`{"workflow_id":"wf-1","workflow_type":"order_lifecycle","from":"shipped","to":"delivered","terminal":true,"occurred_at":"2025-04-01T10:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, "wf-1", event.WorkflowID)
	assert.Equal(t, domain.StepID("shipped"), event.From)
	assert.Equal(t, domain.StepID("delivered"), event.To)
	assert.True(t, event.Terminal)
	assert.Equal(t, time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC), event.OccurredAt.UTC())

	_, err = decodeTransition("not json")
	assert.Error(t, err)
}

func TestRedisInfrastructure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, addr, 10)
	require.NoError(t, err)
	defer client.Close()

	t.Run("Queue push and pop", func(t *testing.T) {
		queue := NewRedisQueue(client)
		queue.popTimeout = 100 * time.Millisecond

		job := domain.RefreshJob{ID: "job-1", WorkflowType: "order_lifecycle", RequestedAt: time.Now().UTC().Truncate(time.Millisecond)}
		require.NoError(t, queue.Push(ctx, job))

		got, err := queue.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.True(t, job.RequestedAt.Equal(got.RequestedAt))

		popCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err = queue.Pop(popCtx)
		assert.Error(t, err)
	})

	t.Run("Report cache", func(t *testing.T) {
		cache := NewRedisReportCache(client)

		_, ok, err := cache.Get(ctx, "performance", "order_lifecycle")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, cache.Set(ctx, "performance", "order_lifecycle", []byte(`{"total_workflows":3}`), time.Minute))
		payload, ok, err := cache.Get(ctx, "performance", "order_lifecycle")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"total_workflows":3}`, string(payload))

		ttl, err := client.TTL(ctx, cache.key("performance", "order_lifecycle")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("Event bus publish and subscribe", func(t *testing.T) {
		bus := NewRedisEventBus(client, logging.Discard())

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		events, err := bus.SubscribeToTransitions(subCtx)
		require.NoError(t, err)

		sent := domain.TransitionEvent{
			WorkflowID:   "wf-9",
			WorkflowType: "production_run",
			From:         "packaging",
			To:           "completed",
			Terminal:     true,
			OccurredAt:   time.Now().UTC(),
		}
		require.NoError(t, bus.PublishTransition(ctx, sent))

		select {
		case got := <-events:
			assert.Equal(t, sent.WorkflowID, got.WorkflowID)
			assert.Equal(t, sent.To, got.To)
			assert.True(t, got.Terminal)
		case <-time.After(5 * time.Second):
			t.Fatal("no transition event received")
		}

		cancel()
		assert.Eventually(t, func() bool {
			_, open := <-events
			return !open
		}, 5*time.Second, 10*time.Millisecond)
	})
}
