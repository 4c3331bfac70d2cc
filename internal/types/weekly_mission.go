package types

import (
	"time"

	"github.com/google/uuid"
)

type WeeklyUnlockMission struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	WeekStart         time.Time `gorm:"column:week_start;type:date;not null;index" json:"week_start"`
	Title             string    `gorm:"column:title;not null" json:"title"`
	Description       string    `gorm:"column:description" json:"description"`
	RequiredLessons   int       `gorm:"column:required_lessons;not null;default:3" json:"required_lessons"`
	RequiredQuizScore int       `gorm:"column:required_quiz_score;not null;default:75" json:"required_quiz_score"`
	RewardCredits     int       `gorm:"column:reward_credits;not null;default:2" json:"reward_credits"`
	Active            bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt         time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (WeeklyUnlockMission) TableName() string { return "weekly_unlock_mission" }

type UserWeeklyMission struct {
	ID              uuid.UUID            `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID            `gorm:"type:uuid;not null;index:idx_user_mission,unique" json:"user_id"`
	User            *User                `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	MissionID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_user_mission,unique" json:"mission_id"`
	Mission         *WeeklyUnlockMission `gorm:"constraint:OnDelete:CASCADE;foreignKey:MissionID;references:ID" json:"mission,omitempty"`
	LessonsProgress int                  `gorm:"column:lessons_progress;not null;default:0" json:"lessons_progress"`
	BestQuizScore   int                  `gorm:"column:best_quiz_score;not null;default:0" json:"best_quiz_score"`
	Completed       bool                 `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletedAt     *time.Time           `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time            `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserWeeklyMission) TableName() string { return "user_weekly_mission" }
