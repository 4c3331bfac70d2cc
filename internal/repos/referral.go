package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type ReferralInviteRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.ReferralInvite) error
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.ReferralInvite, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.ReferralInvite) error
}

type referralInviteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReferralInviteRepo(db *gorm.DB, baseLog *logger.Logger) ReferralInviteRepo {
	repoLog := baseLog.With("repo", "ReferralInviteRepo")
	return &referralInviteRepo{db: db, log: repoLog}
}

func (r *referralInviteRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ReferralInvite) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *referralInviteRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.ReferralInvite, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ReferralInvite
	err := transaction.WithContext(ctx).
		Where("code = ?", code).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *referralInviteRepo) Save(ctx context.Context, tx *gorm.DB, row *types.ReferralInvite) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}
