package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type EconomyTransactionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.EconomyTransaction) ([]*types.EconomyTransaction, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.EconomyTransaction, error)
}

type economyTransactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEconomyTransactionRepo(db *gorm.DB, baseLog *logger.Logger) EconomyTransactionRepo {
	repoLog := baseLog.With("repo", "EconomyTransactionRepo")
	return &economyTransactionRepo{db: db, log: repoLog}
}

func (r *economyTransactionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.EconomyTransaction) ([]*types.EconomyTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.EconomyTransaction{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *economyTransactionRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.EconomyTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.EconomyTransaction
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
