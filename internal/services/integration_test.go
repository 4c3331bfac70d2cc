package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/apierr"
	"github.com/pylearnhq/pylearn-backend/internal/config"
	"github.com/pylearnhq/pylearn-backend/internal/repos"
	"github.com/pylearnhq/pylearn-backend/internal/repos/testutil"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

// serviceStack wires every service against one rolled-back transaction so
// scenario tests can exercise the full pipeline without touching real data.
type serviceStack struct {
	tx  *gorm.DB
	cfg config.Config

	userRepo     repos.UserRepo
	attemptRepo  repos.LessonAttemptRepo
	progressRepo repos.LessonProgressRepo
	masteryRepo  repos.ModuleMasteryRepo
	walletRepo   repos.WalletRepo
	txnRepo      repos.EconomyTransactionRepo
	eventRepo    repos.UserEventRepo

	audit        AuditService
	gamification GamificationService
	mastery      MasteryService
	economy      EconomyService
	attempt      AttemptService
	completion   CompletionService
	submission   SubmissionService
}

func newServiceStack(t *testing.T) *serviceStack {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	cfg := config.Default()

	userRepo := repos.NewUserRepo(tx, log)
	lessonRepo := repos.NewLessonRepo(tx, log)
	moduleRepo := repos.NewCourseModuleRepo(tx, log)
	challengeRepo := repos.NewCodingChallengeRepo(tx, log)
	attemptRepo := repos.NewLessonAttemptRepo(tx, log)
	progressRepo := repos.NewLessonProgressRepo(tx, log)
	masteryRepo := repos.NewModuleMasteryRepo(tx, log)
	submissionRepo := repos.NewSubmissionRepo(tx, log)
	achievementRepo := repos.NewAchievementRepo(tx, log)
	userAchievementRepo := repos.NewUserAchievementRepo(tx, log)
	walletRepo := repos.NewWalletRepo(tx, log)
	txnRepo := repos.NewEconomyTransactionRepo(tx, log)
	missionRepo := repos.NewWeeklyMissionRepo(tx, log)
	userMissionRepo := repos.NewUserWeeklyMissionRepo(tx, log)
	referralRepo := repos.NewReferralInviteRepo(tx, log)
	grantRepo := repos.NewPremiumGrantRepo(tx, log)
	eventRepo := repos.NewUserEventRepo(tx, log)

	audit := NewAuditService(tx, eventRepo, log)
	gamification := NewGamificationService(tx, userRepo, progressRepo, achievementRepo, userAchievementRepo, log)
	mastery := NewMasteryService(tx, moduleRepo, lessonRepo, progressRepo, masteryRepo, log)
	economy := NewEconomyService(tx, cfg.Economy, userRepo, walletRepo, txnRepo, missionRepo, userMissionRepo, referralRepo, grantRepo, audit, log)
	attempt := NewAttemptService(tx, cfg.Integrity, lessonRepo, attemptRepo, audit, log)
	completion := NewCompletionService(tx, cfg.Integrity, lessonRepo, attemptRepo, progressRepo, challengeRepo, submissionRepo, userRepo, mastery, gamification, economy, audit, nil, log)
	submission := NewSubmissionService(tx, challengeRepo, submissionRepo, userRepo, gamification, audit, log)

	return &serviceStack{
		tx:           tx,
		cfg:          cfg,
		userRepo:     userRepo,
		attemptRepo:  attemptRepo,
		progressRepo: progressRepo,
		masteryRepo:  masteryRepo,
		walletRepo:   walletRepo,
		txnRepo:      txnRepo,
		eventRepo:    eventRepo,
		audit:        audit,
		gamification: gamification,
		mastery:      mastery,
		economy:      economy,
		attempt:      attempt,
		completion:   completion,
		submission:   submission,
	}
}

func uniqueEmail() string {
	return fmt.Sprintf("learner-%s@example.com", uuid.New().String()[:8])
}

// seedEvidencedAttempt plants an attempt old enough, and with enough engaged
// heartbeats, to satisfy the integrity checks for a lesson of a few minutes.
func seedEvidencedAttempt(t *testing.T, ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID, age time.Duration, engagedHeartbeats int) *types.LessonAttempt {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"heartbeat_count":         engagedHeartbeats + 1,
		"engaged_heartbeat_count": engagedHeartbeats,
	})
	if err != nil {
		t.Fatalf("marshal attempt metadata: %v", err)
	}
	attempt := &types.LessonAttempt{
		UserID:    userID,
		LessonID:  lessonID,
		Status:    types.AttemptStatusInProgress,
		Metadata:  datatypes.JSON(raw),
		CreatedAt: time.Now().UTC().Add(-age),
	}
	if err := tx.WithContext(ctx).Create(attempt).Error; err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	return attempt
}

func seedPassingSubmission(t *testing.T, ctx context.Context, tx *gorm.DB, userID, challengeID uuid.UUID) *types.Submission {
	t.Helper()
	submission := &types.Submission{
		UserID:      userID,
		ChallengeID: challengeID,
		Code:        "print('hello')",
		Output:      "hello",
		ExitCode:    0,
		Passed:      true,
	}
	if err := tx.WithContext(ctx).Create(submission).Error; err != nil {
		t.Fatalf("seed submission: %v", err)
	}
	return submission
}

func seedAchievementCatalog(t *testing.T, ctx context.Context, tx *gorm.DB) {
	t.Helper()
	rows := []*types.Achievement{
		{Code: "first_steps", Name: "First Steps", XPBonus: 50},
		{Code: "streak_7", Name: "Week Warrior", XPBonus: 50},
		{Code: "xp_500", Name: "Halfway to Mastery", XPBonus: 50},
		{Code: "project_finisher", Name: "Project Finisher", XPBonus: 50},
	}
	for _, row := range rows {
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			t.Fatalf("seed achievement %s: %v", row.Code, err)
		}
	}
}

func asAPIError(t *testing.T, err error) *apierr.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error")
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected apierr.Error, got %T: %v", err, err)
	}
	return apiErr
}
