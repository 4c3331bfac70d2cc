package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type LessonAttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.LessonAttempt) ([]*types.LessonAttempt, error)
	// GetForUserLesson resolves an attempt only when all three of
	// (id, user, lesson) match; a claim cannot borrow another user's attempt.
	GetForUserLesson(ctx context.Context, tx *gorm.DB, id, userID, lessonID uuid.UUID) (*types.LessonAttempt, error)
	// GetLatestActive returns the most recently updated attempt still in
	// started/in_progress for the (user, lesson) pair, or nil.
	GetLatestActive(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonAttempt, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.LessonAttempt) error
}

type lessonAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonAttemptRepo(db *gorm.DB, baseLog *logger.Logger) LessonAttemptRepo {
	repoLog := baseLog.With("repo", "LessonAttemptRepo")
	return &lessonAttemptRepo{db: db, log: repoLog}
}

func (r *lessonAttemptRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.LessonAttempt) ([]*types.LessonAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.LessonAttempt{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *lessonAttemptRepo) GetForUserLesson(ctx context.Context, tx *gorm.DB, id, userID, lessonID uuid.UUID) (*types.LessonAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.LessonAttempt
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ? AND lesson_id = ?", id, userID, lessonID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *lessonAttemptRepo) GetLatestActive(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.LessonAttempt
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ? AND status IN ?", userID, lessonID,
			[]string{types.AttemptStatusStarted, types.AttemptStatusInProgress}).
		Order("updated_at DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *lessonAttemptRepo) Save(ctx context.Context, tx *gorm.DB, row *types.LessonAttempt) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}
