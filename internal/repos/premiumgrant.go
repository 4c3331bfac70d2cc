package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type PremiumGrantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.PremiumAccessGrant) error
	GetActiveForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) ([]*types.PremiumAccessGrant, error)
}

type premiumGrantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPremiumGrantRepo(db *gorm.DB, baseLog *logger.Logger) PremiumGrantRepo {
	repoLog := baseLog.With("repo", "PremiumGrantRepo")
	return &premiumGrantRepo{db: db, log: repoLog}
}

func (r *premiumGrantRepo) Create(ctx context.Context, tx *gorm.DB, row *types.PremiumAccessGrant) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *premiumGrantRepo) GetActiveForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) ([]*types.PremiumAccessGrant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PremiumAccessGrant
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND (expires_at IS NULL OR expires_at > ?)", userID, now).
		Order("granted_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
