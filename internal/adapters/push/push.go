// Package push delivers stored notifications to a user's live connections.
package push

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"eventsphere/internal/domain"
)

// Config selects and configures the push provider.
type Config struct {
	// Provider is one of "noop", "pubnub" or "redis".
	Provider string
	PubNub   PubNubConfig
	// Redis is required for the "redis" provider.
	Redis *redis.Client
}

// message is the envelope sent over every provider.
type message struct {
	Type         string               `json:"type"`
	Notification *domain.Notification `json:"notification"`
}

func newMessage(n *domain.Notification) message {
	return message{Type: "notification", Notification: n}
}

// NewPusher returns the pusher for cfg.Provider. Unknown providers fall back to noop.
func NewPusher(cfg Config, logger *slog.Logger) (domain.Pusher, error) {
	switch cfg.Provider {
	case "pubnub":
		return NewPubNubPusher(cfg.PubNub)
	case "redis":
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis push provider: client is required")
		}
		return NewRedisPusher(cfg.Redis), nil
	case "noop", "":
		return &noopPusher{logger: logger}, nil
	default:
		logger.Warn("unknown push provider, using noop", "provider", cfg.Provider)
		return &noopPusher{logger: logger}, nil
	}
}

type noopPusher struct {
	logger *slog.Logger
}

func (p *noopPusher) Push(ctx context.Context, recipientID string, n *domain.Notification) error {
	p.logger.DebugContext(ctx, "notification push skipped (noop)", "recipient_id", recipientID, "notification_id", n.ID)
	return nil
}
