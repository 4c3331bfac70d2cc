package types

import (
	"time"

	"github.com/google/uuid"
)

// Submission records one externally-executed sandbox run against a coding
// challenge. The completion pipeline only ever reads these; it never runs code.
type Submission struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User            `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ChallengeID uuid.UUID        `gorm:"type:uuid;not null;index" json:"challenge_id"`
	Challenge   *CodingChallenge `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChallengeID;references:ID" json:"challenge,omitempty"`
	Code        string           `gorm:"column:code" json:"code"`
	Output      string           `gorm:"column:output" json:"output"`
	ExitCode    int              `gorm:"column:exit_code;not null;default:0" json:"exit_code"`
	Passed      bool             `gorm:"column:passed;not null;default:false;index" json:"passed"`
	CreatedAt   time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null;default:now()" json:"updated_at"`
}

func (Submission) TableName() string { return "submission" }
