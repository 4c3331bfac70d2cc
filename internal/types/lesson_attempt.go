package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Attempt lifecycle: started -> in_progress -> completed | rejected.
const (
	AttemptStatusStarted    = "started"
	AttemptStatusInProgress = "in_progress"
	AttemptStatusCompleted  = "completed"
	AttemptStatusRejected   = "rejected"
)

// LessonAttempt is one evidentiary record per attempt at a lesson. Rows are
// never deleted; rejected attempts stay around for audit.
type LessonAttempt struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_attempt_user_lesson" json:"user_id"`
	User            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	LessonID        uuid.UUID      `gorm:"type:uuid;not null;index:idx_attempt_user_lesson" json:"lesson_id"`
	Lesson          *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	Status          string         `gorm:"column:status;not null;default:'started'" json:"status"`
	DwellSeconds    int            `gorm:"column:dwell_seconds;not null;default:0" json:"dwell_seconds"`
	QuizScore       *int           `gorm:"column:quiz_score" json:"quiz_score,omitempty"`
	ChallengePassed bool           `gorm:"column:challenge_passed;not null;default:false" json:"challenge_passed"`
	AntiFakePassed  bool           `gorm:"column:anti_fake_passed;not null;default:false" json:"anti_fake_passed"`
	Metadata        datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (LessonAttempt) TableName() string { return "lesson_attempt" }
