package types

import (
	"time"

	"github.com/google/uuid"
)

// ModuleMastery is a derived aggregate, recomputed from LessonProgress rows
// on every evaluation. UnlockedAt is sticky: set on the first transition into
// mastered and never cleared, even if later aggregates regress.
type ModuleMastery struct {
	ID                  uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID              uuid.UUID     `gorm:"type:uuid;not null;index:idx_user_module,unique" json:"user_id"`
	User                *User         `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ModuleID            uuid.UUID     `gorm:"type:uuid;not null;index:idx_user_module,unique" json:"module_id"`
	Module              *CourseModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	AverageQuizScore    int           `gorm:"column:average_quiz_score;not null;default:0" json:"average_quiz_score"`
	LessonsCompleted    int           `gorm:"column:lessons_completed;not null;default:0" json:"lessons_completed"`
	ChallengesPassed    int           `gorm:"column:challenges_passed;not null;default:0" json:"challenges_passed"`
	MasteryThresholdMet bool          `gorm:"column:mastery_threshold_met;not null;default:false" json:"mastery_threshold_met"`
	UnlockedAt          *time.Time    `gorm:"column:unlocked_at" json:"unlocked_at,omitempty"`
	CreatedAt           time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

func (ModuleMastery) TableName() string { return "module_mastery" }
