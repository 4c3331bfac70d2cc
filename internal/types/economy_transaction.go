package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	CurrencyXPCredit           = "xp_credit"
	CurrencyReferralCredit     = "referral_credit"
	CurrencyPremiumUnlockToken = "premium_unlock_token"
)

// EconomyTransaction is the append-only ledger behind UserWallet.
type EconomyTransaction struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Source    string         `gorm:"column:source;not null;index" json:"source"`
	Currency  string         `gorm:"column:currency;not null" json:"currency"`
	Amount    int            `gorm:"column:amount;not null" json:"amount"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (EconomyTransaction) TableName() string { return "economy_transaction" }
