package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserEvent is the append-only audit log consumed by forensics tooling.
type UserEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User       *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Type       string         `gorm:"column:type;not null;index" json:"type"`
	EntityType string         `gorm:"column:entity_type" json:"entity_type"`
	EntityID   string         `gorm:"column:entity_id" json:"entity_id"`
	Severity   string         `gorm:"column:severity;not null;default:'info'" json:"severity"`
	Payload    datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (UserEvent) TableName() string { return "user_event" }
