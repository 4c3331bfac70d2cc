package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PremiumAccessGrant struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Source    string         `gorm:"column:source;not null" json:"source"`
	GrantedAt time.Time      `gorm:"column:granted_at;not null;default:now()" json:"granted_at"`
	ExpiresAt *time.Time     `gorm:"column:expires_at" json:"expires_at,omitempty"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (PremiumAccessGrant) TableName() string { return "premium_access_grant" }
