package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eventsphere/internal/domain"
)

// NewRedisClient creates a pooled Redis client from a redis:// URL or a bare host:port and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	opts.PoolSize = 100
	opts.MinIdleConns = 10
	opts.MaxRetries = 3

	client := redis.NewClient(opts)
	if err := HealthCheck(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// HealthCheck pings Redis with a short deadline.
func HealthCheck(ctx context.Context, client redis.Cmdable) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// redisPusher publishes to the channel "notifications:<recipient>", which websocket gateways subscribe to.
type redisPusher struct {
	client redis.Cmdable
}

// NewRedisPusher returns a Pusher that uses Redis pub/sub.
func NewRedisPusher(client redis.Cmdable) domain.Pusher {
	return &redisPusher{client: client}
}

func redisChannel(recipientID string) string {
	return "notifications:" + recipientID
}

func (p *redisPusher) Push(ctx context.Context, recipientID string, n *domain.Notification) error {
	payload, err := json.Marshal(newMessage(n))
	if err != nil {
		return fmt.Errorf("encode push message: %w", err)
	}
	if err := p.client.Publish(ctx, redisChannel(recipientID), string(payload)).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", redisChannel(recipientID), err)
	}
	return nil
}
