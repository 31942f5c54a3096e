package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReportCache keeps serialized analytics reports for dashboards.
type RedisReportCache struct {
	client *redis.Client
	prefix string
}

func NewRedisReportCache(client *redis.Client) *RedisReportCache {
	return &RedisReportCache{
		client: client,
		prefix: "threadcraft:analytics:report",
	}
}

func (c *RedisReportCache) key(report, workflowType string) string {
	return c.prefix + ":" + report + ":" + workflowType
}

// Get returns the cached payload; ok is false on a miss.
func (c *RedisReportCache) Get(ctx context.Context, report, workflowType string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, c.key(report, workflowType)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Set stores the payload; a zero ttl keeps it until overwritten.
func (c *RedisReportCache) Set(ctx context.Context, report, workflowType string, payload []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(report, workflowType), payload, ttl).Err()
}
