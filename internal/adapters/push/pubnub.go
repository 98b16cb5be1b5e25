package push

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go/v7"

	"eventsphere/internal/domain"
)

// PubNubConfig holds the PubNub keyset used for publishing.
type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string
}

// pubnubPusher publishes to the per-user channel "user-<id>".
type pubnubPusher struct {
	publish func(channel string, msg any) error
}

// NewPubNubPusher returns a Pusher backed by PubNub.
func NewPubNubPusher(cfg PubNubConfig) (domain.Pusher, error) {
	if cfg.PublishKey == "" || cfg.SubscribeKey == "" {
		return nil, fmt.Errorf("pubnub push provider: publish and subscribe keys are required")
	}
	userID := cfg.UserID
	if userID == "" {
		userID = "eventsphere-server"
	}
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey
	pnCfg.SecretKey = cfg.SecretKey
	pn := pubnub.NewPubNub(pnCfg)

	return &pubnubPusher{
		publish: func(channel string, msg any) error {
			_, status, err := pn.Publish().
				Channel(channel).
				Message(msg).
				Execute()
			if err != nil {
				return err
			}
			if status.Error != nil {
				return status.Error
			}
			return nil
		},
	}, nil
}

func userChannel(recipientID string) string {
	return "user-" + recipientID
}

func (p *pubnubPusher) Push(ctx context.Context, recipientID string, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.publish(userChannel(recipientID), newMessage(n)); err != nil {
		return fmt.Errorf("pubnub publish to %s: %w", userChannel(recipientID), err)
	}
	return nil
}
