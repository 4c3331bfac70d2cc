package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email          string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password       string         `gorm:"not null;column:password" json:"-"`
	FirstName      string         `gorm:"not null;column:first_name" json:"first_name"`
	LastName       string         `gorm:"not null;column:last_name" json:"last_name"`
	XP             int            `gorm:"column:xp;not null;default:0" json:"xp"`
	Level          int            `gorm:"column:level;not null;default:1" json:"level"`
	StreakDays     int            `gorm:"column:streak_days;not null;default:0" json:"streak_days"`
	LastActiveDate *time.Time     `gorm:"column:last_active_date;type:date" json:"last_active_date,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
