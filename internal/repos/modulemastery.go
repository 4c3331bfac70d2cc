package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type ModuleMasteryRepo interface {
	GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.ModuleMastery, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.ModuleMastery) error
}

type moduleMasteryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleMasteryRepo(db *gorm.DB, baseLog *logger.Logger) ModuleMasteryRepo {
	repoLog := baseLog.With("repo", "ModuleMasteryRepo")
	return &moduleMasteryRepo{db: db, log: repoLog}
}

func (r *moduleMasteryRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.ModuleMastery, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ModuleMastery
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *moduleMasteryRepo) Save(ctx context.Context, tx *gorm.DB, row *types.ModuleMastery) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}
