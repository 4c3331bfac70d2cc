package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CodingChallenge struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LessonID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"lesson_id"`
	Lesson      *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Prompt      string         `gorm:"column:prompt" json:"prompt"`
	StarterCode string         `gorm:"column:starter_code" json:"starter_code"`
	Tests       datatypes.JSON `gorm:"type:jsonb;column:tests" json:"tests"`
	Difficulty  string         `gorm:"column:difficulty" json:"difficulty"`
	XPReward    int            `gorm:"column:xp_reward;not null;default:100" json:"xp_reward"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CodingChallenge) TableName() string { return "coding_challenge" }
