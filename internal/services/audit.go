package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/repos"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

// EventParams describes one audit log entry. Severity defaults to "info".
type EventParams struct {
	Type       string
	UserID     *uuid.UUID
	EntityType string
	EntityID   string
	Severity   string
	Payload    map[string]interface{}
}

type AuditService interface {
	LogEvent(ctx context.Context, tx *gorm.DB, params EventParams) error
	ListUserEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*types.UserEvent, error)
}

type auditService struct {
	db        *gorm.DB
	eventRepo repos.UserEventRepo
	log       *logger.Logger
}

func NewAuditService(db *gorm.DB, eventRepo repos.UserEventRepo, baseLog *logger.Logger) AuditService {
	serviceLog := baseLog.With("service", "AuditService")
	return &auditService{db: db, eventRepo: eventRepo, log: serviceLog}
}

func (s *auditService) LogEvent(ctx context.Context, tx *gorm.DB, params EventParams) error {
	severity := params.Severity
	if severity == "" {
		severity = "info"
	}

	var payload datatypes.JSON
	if params.Payload != nil {
		raw, err := json.Marshal(params.Payload)
		if err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
		payload = datatypes.JSON(raw)
	}

	event := &types.UserEvent{
		UserID:     params.UserID,
		Type:       params.Type,
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
		Severity:   severity,
		Payload:    payload,
	}
	if _, err := s.eventRepo.Create(ctx, tx, []*types.UserEvent{event}); err != nil {
		return fmt.Errorf("create audit event: %w", err)
	}
	return nil
}

func (s *auditService) ListUserEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*types.UserEvent, error) {
	return s.eventRepo.ListByUserID(ctx, nil, userID, limit)
}
