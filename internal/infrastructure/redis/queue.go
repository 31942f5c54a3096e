package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"threadcraft/internal/domain"

	"github.com/redis/go-redis/v9"
)

const refreshQueueName = "threadcraft:analytics:refresh"

type RedisQueue struct {
	client    *redis.Client
	queueName string
	// popTimeout bounds each BLPOP so that Pop notices cancellation.
	popTimeout time.Duration
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:     client,
		queueName:  refreshQueueName,
		popTimeout: 5 * time.Second,
	}
}

// Push adds a job to the end of the list
func (q *RedisQueue) Push(ctx context.Context, job domain.RefreshJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.queueName, payload).Err()
}

// Pop waits for a job and removes it from the front of the list
func (q *RedisQueue) Pop(ctx context.Context) (domain.RefreshJob, error) {
	for {
		result, err := q.client.BLPop(ctx, q.popTimeout, q.queueName).Result()
		if err == redis.Nil {
			if ctx.Err() != nil {
				return domain.RefreshJob{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			return domain.RefreshJob{}, err
		}

		// BLPop returns a slice: [QueueName, Element]
		var job domain.RefreshJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			return domain.RefreshJob{}, fmt.Errorf("decode refresh job: %w", err)
		}
		return job, nil
	}
}
