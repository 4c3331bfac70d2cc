package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/services"
)

// LearnerEvent is the wire shape published on the notification channel.
type LearnerEvent struct {
	UserID  string                 `json:"user_id"`
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	At      time.Time              `json:"at"`
}

type notifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewNotifier connects to redis using REDIS_ADDR and publishes learner
// events on REDIS_CHANNEL (default "learner_events"). When REDIS_ADDR is
// unset it returns (nil, nil) so the caller runs without a notifier.
func NewNotifier(log *logger.Logger) (services.Notifier, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}
	channel := strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	if channel == "" {
		channel = "learner_events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &notifier{
		log:     log.With("service", "RedisNotifier"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (n *notifier) PublishLearnerEvent(ctx context.Context, userID uuid.UUID, event string, payload map[string]interface{}) {
	if n == nil || n.rdb == nil {
		return
	}
	raw, err := json.Marshal(LearnerEvent{
		UserID:  userID.String(),
		Event:   event,
		Payload: payload,
		At:      time.Now().UTC(),
	})
	if err != nil {
		n.log.Warn("Failed to marshal learner event", "error", err)
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		n.log.Warn("Failed to publish learner event", "event", event, "error", err)
	}
}

// Close releases the underlying connection.
func (n *notifier) Close() error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}
