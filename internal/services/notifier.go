package services

import (
	"context"

	"github.com/google/uuid"
)

// Notifier fans learner-facing events out to the realtime channel,
// best effort. A nil Notifier is valid and drops everything.
type Notifier interface {
	PublishLearnerEvent(ctx context.Context, userID uuid.UUID, event string, payload map[string]interface{})
}
