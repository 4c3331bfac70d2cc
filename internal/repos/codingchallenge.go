package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type CodingChallengeRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.CodingChallenge, error)
	ListByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.CodingChallenge, error)
}

type codingChallengeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCodingChallengeRepo(db *gorm.DB, baseLog *logger.Logger) CodingChallengeRepo {
	repoLog := baseLog.With("repo", "CodingChallengeRepo")
	return &codingChallengeRepo{db: db, log: repoLog}
}

func (r *codingChallengeRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.CodingChallenge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CodingChallenge
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *codingChallengeRepo) ListByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]*types.CodingChallenge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CodingChallenge
	if lessonID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
