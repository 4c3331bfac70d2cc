package types

import (
	"time"

	"github.com/google/uuid"
)

// UserWallet balances always equal the sum of the matching currency's
// EconomyTransaction rows for the user; every mutation site writes both.
type UserWallet struct {
	ID                  uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID              uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User                *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	XPCredits           int       `gorm:"column:xp_credits;not null;default:0" json:"xp_credits"`
	ReferralCredits     int       `gorm:"column:referral_credits;not null;default:0" json:"referral_credits"`
	PremiumUnlockTokens int       `gorm:"column:premium_unlock_tokens;not null;default:0" json:"premium_unlock_tokens"`
	CreatedAt           time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserWallet) TableName() string { return "user_wallet" }
