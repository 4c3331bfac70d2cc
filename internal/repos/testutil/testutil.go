package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			dbErr = err
			return
		}

		if err := autoMigrateAll(db); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func autoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Course{},
		&types.CourseModule{},
		&types.Lesson{},
		&types.CodingChallenge{},
		&types.LessonAttempt{},
		&types.LessonProgress{},
		&types.ModuleMastery{},
		&types.Submission{},
		&types.Achievement{},
		&types.UserAchievement{},
		&types.UserWallet{},
		&types.EconomyTransaction{},
		&types.WeeklyUnlockMission{},
		&types.UserWeeklyMission{},
		&types.ReferralInvite{},
		&types.PremiumAccessGrant{},
		&types.UserEvent{},
	)
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	user := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "hashed",
		FirstName: "Test",
		LastName:  "Learner",
		Level:     1,
	}
	if err := tx.WithContext(ctx).Create(user).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return user
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, orderIndex int) *types.Course {
	tb.Helper()
	course := &types.Course{
		ID:         uuid.New(),
		Slug:       fmt.Sprintf("course-%s", uuid.New().String()[:8]),
		Title:      "Python Foundations",
		OrderIndex: orderIndex,
		Published:  true,
	}
	if err := tx.WithContext(ctx).Create(course).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return course
}

func SeedModule(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, orderIndex int) *types.CourseModule {
	tb.Helper()
	module := &types.CourseModule{
		ID:         uuid.New(),
		CourseID:   courseID,
		OrderIndex: orderIndex,
		Title:      fmt.Sprintf("Module %d", orderIndex),
		XPReward:   50,
	}
	if err := tx.WithContext(ctx).Create(module).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return module
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, orderIndex, estimatedMinutes int) *types.Lesson {
	tb.Helper()
	lesson := &types.Lesson{
		ID:               uuid.New(),
		ModuleID:         moduleID,
		Title:            fmt.Sprintf("Lesson %d", orderIndex),
		Objective:        "Learn the thing",
		OrderIndex:       orderIndex,
		EstimatedMinutes: estimatedMinutes,
	}
	if err := tx.WithContext(ctx).Create(lesson).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return lesson
}

func SeedChallenge(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) *types.CodingChallenge {
	tb.Helper()
	challenge := &types.CodingChallenge{
		ID:       uuid.New(),
		LessonID: lessonID,
		Title:    "Print hello",
		XPReward: 100,
	}
	if err := tx.WithContext(ctx).Create(challenge).Error; err != nil {
		tb.Fatalf("seed challenge: %v", err)
	}
	return challenge
}
