package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type WeeklyMissionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.WeeklyUnlockMission) error
	GetActiveByWeekStart(ctx context.Context, tx *gorm.DB, weekStart time.Time) (*types.WeeklyUnlockMission, error)
}

type weeklyMissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeeklyMissionRepo(db *gorm.DB, baseLog *logger.Logger) WeeklyMissionRepo {
	repoLog := baseLog.With("repo", "WeeklyMissionRepo")
	return &weeklyMissionRepo{db: db, log: repoLog}
}

func (r *weeklyMissionRepo) Create(ctx context.Context, tx *gorm.DB, row *types.WeeklyUnlockMission) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *weeklyMissionRepo) GetActiveByWeekStart(ctx context.Context, tx *gorm.DB, weekStart time.Time) (*types.WeeklyUnlockMission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.WeeklyUnlockMission
	err := transaction.WithContext(ctx).
		Where("week_start = ? AND active = ?", weekStart, true).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type UserWeeklyMissionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.UserWeeklyMission) error
	GetByUserAndMission(ctx context.Context, tx *gorm.DB, userID, missionID uuid.UUID) (*types.UserWeeklyMission, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.UserWeeklyMission) error
}

type userWeeklyMissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserWeeklyMissionRepo(db *gorm.DB, baseLog *logger.Logger) UserWeeklyMissionRepo {
	repoLog := baseLog.With("repo", "UserWeeklyMissionRepo")
	return &userWeeklyMissionRepo{db: db, log: repoLog}
}

func (r *userWeeklyMissionRepo) Create(ctx context.Context, tx *gorm.DB, row *types.UserWeeklyMission) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *userWeeklyMissionRepo) GetByUserAndMission(ctx context.Context, tx *gorm.DB, userID, missionID uuid.UUID) (*types.UserWeeklyMission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.UserWeeklyMission
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND mission_id = ?", userID, missionID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *userWeeklyMissionRepo) Save(ctx context.Context, tx *gorm.DB, row *types.UserWeeklyMission) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}
