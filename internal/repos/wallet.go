package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type WalletRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.UserWallet) error
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserWallet, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.UserWallet) error
}

type walletRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWalletRepo(db *gorm.DB, baseLog *logger.Logger) WalletRepo {
	repoLog := baseLog.With("repo", "WalletRepo")
	return &walletRepo{db: db, log: repoLog}
}

func (r *walletRepo) Create(ctx context.Context, tx *gorm.DB, row *types.UserWallet) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *walletRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserWallet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.UserWallet
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *walletRepo) Save(ctx context.Context, tx *gorm.DB, row *types.UserWallet) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}
