package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/apierr"
	"github.com/pylearnhq/pylearn-backend/internal/config"
	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/repos"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type AttemptService interface {
	// Start opens a fresh attempt with seeded engagement counters. Caller
	// metadata keys override the seeded ones.
	Start(ctx context.Context, userID, lessonID uuid.UUID, dwellSeconds int, metadata map[string]interface{}) (*types.LessonAttempt, error)
	// Heartbeat records a liveness ping: the raw counter always increments,
	// the engaged counter only when the previous ping is at least the
	// debounce window old. Reported dwell can only grow the stored value.
	Heartbeat(ctx context.Context, userID, lessonID, attemptID uuid.UUID, dwellSeconds int, metadata map[string]interface{}) (*types.LessonAttempt, error)
}

type attemptService struct {
	db          *gorm.DB
	cfg         config.Integrity
	lessonRepo  repos.LessonRepo
	attemptRepo repos.LessonAttemptRepo
	audit       AuditService
	log         *logger.Logger
}

func NewAttemptService(
	db *gorm.DB,
	cfg config.Integrity,
	lessonRepo repos.LessonRepo,
	attemptRepo repos.LessonAttemptRepo,
	audit AuditService,
	baseLog *logger.Logger,
) AttemptService {
	serviceLog := baseLog.With("service", "AttemptService")
	return &attemptService{
		db:          db,
		cfg:         cfg,
		lessonRepo:  lessonRepo,
		attemptRepo: attemptRepo,
		audit:       audit,
		log:         serviceLog,
	}
}

func decodeAttemptMetadata(raw datatypes.JSON) map[string]interface{} {
	meta := map[string]interface{}{}
	if len(raw) == 0 {
		return meta
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return map[string]interface{}{}
	}
	return meta
}

func encodeAttemptMetadata(meta map[string]interface{}) (datatypes.JSON, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal attempt metadata: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// mergeAttemptMetadata overlays caller-supplied keys onto base, last writer
// wins. base is mutated and returned.
func mergeAttemptMetadata(base, overrides map[string]interface{}) map[string]interface{} {
	for key, value := range overrides {
		base[key] = value
	}
	return base
}

func metadataInt(meta map[string]interface{}, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func metadataTime(meta map[string]interface{}, key string) *time.Time {
	raw, ok := meta[key].(string)
	if !ok {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// isEngagedHeartbeat reports whether a ping at now counts as engaged given
// the previous ping time: the first ping always does, later pings only after
// the full debounce window.
func isEngagedHeartbeat(previous *time.Time, now time.Time, debounce time.Duration) bool {
	if previous == nil {
		return true
	}
	return now.Sub(*previous) >= debounce
}

func (s *attemptService) Start(ctx context.Context, userID, lessonID uuid.UUID, dwellSeconds int, metadata map[string]interface{}) (*types.LessonAttempt, error) {
	lessons, err := s.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	if len(lessons) == 0 {
		return nil, apierr.New(http.StatusNotFound, "not_found", errors.New("Lesson not found"))
	}

	now := time.Now().UTC()
	meta := map[string]interface{}{
		"heartbeat_count":         0,
		"engaged_heartbeat_count": 0,
		"last_heartbeat_at":       nil,
		"started_at":              now.Format(time.RFC3339Nano),
	}
	meta = mergeAttemptMetadata(meta, metadata)
	encoded, err := encodeAttemptMetadata(meta)
	if err != nil {
		return nil, err
	}

	if dwellSeconds < 0 {
		dwellSeconds = 0
	}
	attempt := &types.LessonAttempt{
		UserID:       userID,
		LessonID:     lessonID,
		Status:       types.AttemptStatusStarted,
		DwellSeconds: dwellSeconds,
		Metadata:     encoded,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.attemptRepo.Create(ctx, tx, []*types.LessonAttempt{attempt}); err != nil {
			return fmt.Errorf("create lesson attempt: %w", err)
		}
		return s.audit.LogEvent(ctx, tx, EventParams{
			Type:       "lesson_attempt.started",
			UserID:     &userID,
			EntityType: "lesson",
			EntityID:   lessonID.String(),
			Payload:    map[string]interface{}{"attempt_id": attempt.ID.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *attemptService) Heartbeat(ctx context.Context, userID, lessonID, attemptID uuid.UUID, dwellSeconds int, metadata map[string]interface{}) (*types.LessonAttempt, error) {
	attempt, err := s.attemptRepo.GetForUserLesson(ctx, nil, attemptID, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson attempt: %w", err)
	}
	if attempt == nil {
		return nil, apierr.New(http.StatusNotFound, "not_found", errors.New("Lesson attempt not found"))
	}

	meta := decodeAttemptMetadata(attempt.Metadata)
	now := time.Now().UTC()
	previous := metadataTime(meta, "last_heartbeat_at")

	heartbeatCount := metadataInt(meta, "heartbeat_count") + 1
	engagedCount := metadataInt(meta, "engaged_heartbeat_count")
	debounce := time.Duration(s.cfg.HeartbeatDebounceSeconds) * time.Second
	if isEngagedHeartbeat(previous, now, debounce) {
		engagedCount++
	}

	meta["heartbeat_count"] = heartbeatCount
	meta["engaged_heartbeat_count"] = engagedCount
	meta["last_heartbeat_at"] = now.Format(time.RFC3339Nano)
	meta = mergeAttemptMetadata(meta, metadata)
	encoded, err := encodeAttemptMetadata(meta)
	if err != nil {
		return nil, err
	}

	if dwellSeconds > attempt.DwellSeconds {
		attempt.DwellSeconds = dwellSeconds
	}
	attempt.Metadata = encoded
	if attempt.Status == types.AttemptStatusStarted {
		attempt.Status = types.AttemptStatusInProgress
	}

	if err := s.attemptRepo.Save(ctx, nil, attempt); err != nil {
		return nil, fmt.Errorf("save lesson attempt: %w", err)
	}
	return attempt, nil
}
