// Package notifications delivers content events to the admin live feed.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"techatlas/internal/events"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AdminFeedChannel is the Redis channel carrying admin feed messages.
const AdminFeedChannel = "techatlas:admin:feed"

// FeedMessage is the frame written to admin websocket clients.
type FeedMessage struct {
	Type    string              `json:"type"`
	Payload events.ContentEvent `json:"payload"`
}

func encodeEvent(ev events.ContentEvent) ([]byte, error) {
	return json.Marshal(FeedMessage{Type: "content_event", Payload: ev})
}

// Notifier publishes content events on Redis so every API instance can
// forward them to its own websocket clients.
type Notifier struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewNotifier creates a Notifier. A nil client turns every call into a no-op.
func NewNotifier(rdb *redis.Client, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{rdb: rdb, logger: logger}
}

func (n *Notifier) Name() string { return "redis" }

// Deliver publishes ev to AdminFeedChannel.
func (n *Notifier) Deliver(ctx context.Context, ev events.ContentEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal feed message: %w", err)
	}
	return n.rdb.Publish(ctx, AdminFeedChannel, payload).Err()
}

// Subscribe calls onMessage for every payload published on AdminFeedChannel
// until ctx is cancelled.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, AdminFeedChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", AdminFeedChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							n.logger.Error("panic in admin feed subscriber",
								zap.Any("panic", r),
								zap.ByteString("stack", debug.Stack()),
							)
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
