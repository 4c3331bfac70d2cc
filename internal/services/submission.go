package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/apierr"
	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/repos"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

// RecordSubmissionInput carries the outcome of an externally-executed
// sandbox run. The server never executes learner code; it only interprets
// the exit code.
type RecordSubmissionInput struct {
	Code     string
	Stdout   string
	Stderr   string
	ExitCode int
}

type SubmissionService interface {
	// RecordSubmission stores the run as a Submission row and, on a pass,
	// pays the challenge XP and advances streak and achievements.
	RecordSubmission(ctx context.Context, userID, challengeID uuid.UUID, input RecordSubmissionInput) (*types.Submission, error)
}

type submissionService struct {
	db             *gorm.DB
	challengeRepo  repos.CodingChallengeRepo
	submissionRepo repos.SubmissionRepo
	userRepo       repos.UserRepo
	gamification   GamificationService
	audit          AuditService
	log            *logger.Logger
}

func NewSubmissionService(
	db *gorm.DB,
	challengeRepo repos.CodingChallengeRepo,
	submissionRepo repos.SubmissionRepo,
	userRepo repos.UserRepo,
	gamification GamificationService,
	audit AuditService,
	baseLog *logger.Logger,
) SubmissionService {
	serviceLog := baseLog.With("service", "SubmissionService")
	return &submissionService{
		db:             db,
		challengeRepo:  challengeRepo,
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		gamification:   gamification,
		audit:          audit,
		log:            serviceLog,
	}
}

func (s *submissionService) RecordSubmission(ctx context.Context, userID, challengeID uuid.UUID, input RecordSubmissionInput) (*types.Submission, error) {
	challenges, err := s.challengeRepo.GetByIDs(ctx, nil, []uuid.UUID{challengeID})
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	if len(challenges) == 0 {
		return nil, apierr.New(http.StatusNotFound, "not_found", errors.New("Challenge not found"))
	}
	challenge := challenges[0]

	passed := input.ExitCode == 0
	output := input.Stdout
	if output == "" {
		output = input.Stderr
	}

	submission := &types.Submission{
		UserID:      userID,
		ChallengeID: challenge.ID,
		Code:        input.Code,
		Output:      output,
		ExitCode:    input.ExitCode,
		Passed:      passed,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.submissionRepo.Create(ctx, tx, []*types.Submission{submission}); err != nil {
			return fmt.Errorf("create submission: %w", err)
		}

		users, err := s.userRepo.GetByIDs(ctx, tx, []uuid.UUID{userID})
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if len(users) == 0 {
			return apierr.New(http.StatusNotFound, "not_found", errors.New("User not found"))
		}
		user := users[0]

		if passed {
			s.gamification.AwardXP(user, challenge.XPReward)
		}
		s.gamification.UpdateStreak(user, time.Now().UTC())
		if _, err := s.gamification.EvaluateAchievements(ctx, tx, user); err != nil {
			return err
		}
		if err := s.userRepo.Save(ctx, tx, user); err != nil {
			return fmt.Errorf("save user: %w", err)
		}

		return s.audit.LogEvent(ctx, tx, EventParams{
			Type:       "challenge.submitted",
			UserID:     &userID,
			EntityType: "challenge",
			EntityID:   challenge.ID.String(),
			Payload:    map[string]interface{}{"passed": passed},
		})
	})
	if err != nil {
		return nil, err
	}
	return submission, nil
}
