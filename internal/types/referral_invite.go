package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReferralStatusPending  = "pending"
	ReferralStatusRewarded = "rewarded"
)

type ReferralInvite struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	InviterUserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"inviter_user_id"`
	Inviter       *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:InviterUserID;references:ID" json:"inviter,omitempty"`
	InvitedEmail  *string    `gorm:"column:invited_email" json:"invited_email,omitempty"`
	InvitedUserID *uuid.UUID `gorm:"type:uuid" json:"invited_user_id,omitempty"`
	Code          string     `gorm:"column:code;uniqueIndex;not null" json:"code"`
	Status        string     `gorm:"column:status;not null;default:'pending'" json:"status"`
	RewardXP      int        `gorm:"column:reward_xp;not null;default:120" json:"reward_xp"`
	RewardCredits int        `gorm:"column:reward_credits;not null;default:1" json:"reward_credits"`
	RewardedAt    *time.Time `gorm:"column:rewarded_at" json:"rewarded_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (ReferralInvite) TableName() string { return "referral_invite" }
