package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type SubmissionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Submission) ([]*types.Submission, error)
	// CountPassedSince counts passing submissions for the user against any of
	// the challenge ids, created at or after since. Older passes do not count.
	CountPassedSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, challengeIDs []uuid.UUID, since time.Time) (int64, error)
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	repoLog := baseLog.With("repo", "SubmissionRepo")
	return &submissionRepo{db: db, log: repoLog}
}

func (r *submissionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Submission) ([]*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Submission{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *submissionRepo) CountPassedSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, challengeIDs []uuid.UUID, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || len(challengeIDs) == 0 {
		return 0, nil
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Submission{}).
		Where("user_id = ? AND challenge_id IN ? AND passed = ? AND created_at >= ?", userID, challengeIDs, true, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
