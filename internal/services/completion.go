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
	"github.com/pylearnhq/pylearn-backend/internal/config"
	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/repos"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type CompleteLessonInput struct {
	QuizScore    *int
	AttemptID    *uuid.UUID
	DwellSeconds int
}

type CompleteLessonResult struct {
	LessonID  uuid.UUID `json:"lesson_id"`
	Status    string    `json:"status"`
	XPAwarded int       `json:"xp_awarded"`
	Level     int       `json:"level"`
	TotalXP   int       `json:"total_xp"`
}

type CompletionService interface {
	// CompleteLesson runs the full claim pipeline: mastery gate, evidence
	// evaluation against the attempt record, then either a rejection (422)
	// or the accept cascade (XP, streak, achievements, mastery re-eval,
	// credits, weekly mission, audit) in a single transaction.
	CompleteLesson(ctx context.Context, userID, lessonID uuid.UUID, input CompleteLessonInput) (*CompleteLessonResult, error)
}

type completionService struct {
	db             *gorm.DB
	cfg            config.Integrity
	lessonRepo     repos.LessonRepo
	attemptRepo    repos.LessonAttemptRepo
	progressRepo   repos.LessonProgressRepo
	challengeRepo  repos.CodingChallengeRepo
	submissionRepo repos.SubmissionRepo
	userRepo       repos.UserRepo
	mastery        MasteryService
	gamification   GamificationService
	economy        EconomyService
	audit          AuditService
	notifier       Notifier
	log            *logger.Logger
}

func NewCompletionService(
	db *gorm.DB,
	cfg config.Integrity,
	lessonRepo repos.LessonRepo,
	attemptRepo repos.LessonAttemptRepo,
	progressRepo repos.LessonProgressRepo,
	challengeRepo repos.CodingChallengeRepo,
	submissionRepo repos.SubmissionRepo,
	userRepo repos.UserRepo,
	mastery MasteryService,
	gamification GamificationService,
	economy EconomyService,
	audit AuditService,
	notifier Notifier,
	baseLog *logger.Logger,
) CompletionService {
	serviceLog := baseLog.With("service", "CompletionService")
	return &completionService{
		db:             db,
		cfg:            cfg,
		lessonRepo:     lessonRepo,
		attemptRepo:    attemptRepo,
		progressRepo:   progressRepo,
		challengeRepo:  challengeRepo,
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		mastery:        mastery,
		gamification:   gamification,
		economy:        economy,
		audit:          audit,
		notifier:       notifier,
		log:            serviceLog,
	}
}

// requiredDwellSeconds is the minimum trusted reading time for a lesson.
func requiredDwellSeconds(estimatedMinutes int, cfg config.Integrity) int {
	required := estimatedMinutes * cfg.DwellPerEstimatedMinute
	if required < cfg.MinDwellSeconds {
		required = cfg.MinDwellSeconds
	}
	return required
}

// integrityPassed is the anti-fake conjunction: enough trusted dwell AND a
// verified challenge AND enough engaged heartbeats. No single signal can
// carry a claim on its own.
func integrityPassed(dwellSeconds, requiredDwell int, challengeVerified bool, engagedHeartbeats, minEngaged int) bool {
	return dwellSeconds >= requiredDwell &&
		challengeVerified &&
		engagedHeartbeats >= minEngaged
}

func (s *completionService) CompleteLesson(ctx context.Context, userID, lessonID uuid.UUID, input CompleteLessonInput) (*CompleteLessonResult, error) {
	lessons, err := s.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	if len(lessons) == 0 {
		return nil, apierr.New(http.StatusNotFound, "not_found", errors.New("Lesson not found"))
	}
	lesson := lessons[0]

	unlocked, reason, err := s.mastery.LessonIsUnlocked(ctx, nil, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		// The blocked event must survive the 423, so it commits on its own.
		if err := s.audit.LogEvent(ctx, nil, EventParams{
			Type:       "lesson_completion.blocked_by_mastery_gate",
			UserID:     &userID,
			EntityType: "lesson",
			EntityID:   lessonID.String(),
			Severity:   "warning",
			Payload:    map[string]interface{}{"reason": reason},
		}); err != nil {
			s.log.Warn("Failed to record gate-blocked event", "error", err)
		}
		if reason == "" {
			reason = "Lesson is locked by mastery gate"
		}
		return nil, apierr.New(http.StatusLocked, "gate_locked", errors.New(reason))
	}

	var (
		result        *CompleteLessonResult
		rejected      bool
		requiredDwell int
		levelBefore   int
		newlyUnlocked []*types.Achievement
		missionDone   bool
		xpAwarded     int
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt, err := s.resolveAttempt(ctx, tx, userID, lessonID, input.AttemptID)
		if err != nil {
			return err
		}

		meta := decodeAttemptMetadata(attempt.Metadata)
		engagedHeartbeats := metadataInt(meta, "engaged_heartbeat_count")

		now := time.Now().UTC()
		serverObserved := int(now.Sub(attempt.CreatedAt).Seconds())
		if serverObserved < 0 {
			serverObserved = 0
		}
		requiredDwell = requiredDwellSeconds(lesson.EstimatedMinutes, s.cfg)
		// The server clock dominates: a forged dwell payload cannot beat
		// the observed attempt age, and stored dwell only ever grew through
		// heartbeats.
		dwellSeconds := serverObserved
		if attempt.DwellSeconds > dwellSeconds {
			dwellSeconds = attempt.DwellSeconds
		}

		challenges, err := s.challengeRepo.ListByLessonID(ctx, tx, lessonID)
		if err != nil {
			return fmt.Errorf("list lesson challenges: %w", err)
		}
		challengeVerified := true
		if len(challenges) > 0 {
			challengeIDs := make([]uuid.UUID, 0, len(challenges))
			for _, challenge := range challenges {
				challengeIDs = append(challengeIDs, challenge.ID)
			}
			passed, err := s.submissionRepo.CountPassedSince(ctx, tx, userID, challengeIDs, attempt.CreatedAt)
			if err != nil {
				return fmt.Errorf("count passing submissions: %w", err)
			}
			challengeVerified = passed > 0
		}

		antiFakePassed := integrityPassed(dwellSeconds, requiredDwell, challengeVerified, engagedHeartbeats, s.cfg.MinEngagedHeartbeats)

		progressRows, err := s.progressRepo.GetByUserAndLessonIDs(ctx, tx, userID, []uuid.UUID{lessonID})
		if err != nil {
			return fmt.Errorf("load lesson progress: %w", err)
		}
		var progress *types.LessonProgress
		if len(progressRows) > 0 {
			progress = progressRows[0]
		} else {
			progress = &types.LessonProgress{UserID: userID, LessonID: lessonID}
		}

		progress.QuizScore = input.QuizScore
		progress.ChallengePassed = challengeVerified

		attempt.DwellSeconds = dwellSeconds
		attempt.QuizScore = input.QuizScore
		attempt.ChallengePassed = challengeVerified
		attempt.AntiFakePassed = antiFakePassed

		if !antiFakePassed {
			rejected = true
			attempt.Status = types.AttemptStatusRejected
			progress.Status = types.ProgressStatusInProgress
			if err := s.attemptRepo.Save(ctx, tx, attempt); err != nil {
				return fmt.Errorf("save lesson attempt: %w", err)
			}
			if err := s.progressRepo.Save(ctx, tx, progress); err != nil {
				return fmt.Errorf("save lesson progress: %w", err)
			}
			return s.audit.LogEvent(ctx, tx, EventParams{
				Type:       "lesson_completion.rejected_anti_fake",
				UserID:     &userID,
				EntityType: "lesson",
				EntityID:   lessonID.String(),
				Severity:   "warning",
				Payload: map[string]interface{}{
					"required_dwell_seconds":      requiredDwell,
					"provided_dwell_seconds":      dwellSeconds,
					"challenge_verified":          challengeVerified,
					"required_engaged_heartbeats": s.cfg.MinEngagedHeartbeats,
					"engaged_heartbeats":          engagedHeartbeats,
				},
			})
		}

		fullCredit := (input.QuizScore == nil || *input.QuizScore >= s.cfg.QuizPassThreshold) && challengeVerified
		if fullCredit {
			progress.Status = types.ProgressStatusCompleted
			progress.CompletedAt = &now
			attempt.Status = types.AttemptStatusCompleted
			xpAwarded = s.cfg.FullCompletionXP
		} else {
			progress.Status = types.ProgressStatusInProgress
			attempt.Status = types.AttemptStatusInProgress
			xpAwarded = s.cfg.PartialCompletionXP
		}

		if err := s.attemptRepo.Save(ctx, tx, attempt); err != nil {
			return fmt.Errorf("save lesson attempt: %w", err)
		}
		if err := s.progressRepo.Save(ctx, tx, progress); err != nil {
			return fmt.Errorf("save lesson progress: %w", err)
		}

		users, err := s.userRepo.GetByIDs(ctx, tx, []uuid.UUID{userID})
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if len(users) == 0 {
			return apierr.New(http.StatusNotFound, "not_found", errors.New("User not found"))
		}
		user := users[0]
		levelBefore = user.Level

		s.gamification.AwardXP(user, xpAwarded)
		s.gamification.UpdateStreak(user, now)
		newlyUnlocked, err = s.gamification.EvaluateAchievements(ctx, tx, user)
		if err != nil {
			return err
		}
		if err := s.userRepo.Save(ctx, tx, user); err != nil {
			return fmt.Errorf("save user: %w", err)
		}

		if _, err := s.mastery.EvaluateModuleMastery(ctx, tx, userID, lesson.ModuleID); err != nil {
			return err
		}
		if _, err := s.economy.AwardLessonCompletionCredits(ctx, tx, userID, lessonID); err != nil {
			return err
		}
		_, missionDone, err = s.economy.UpdateWeeklyProgress(ctx, tx, userID, progress.Status == types.ProgressStatusCompleted, input.QuizScore)
		if err != nil {
			return err
		}

		eventType := "lesson.progressed"
		if progress.Status == types.ProgressStatusCompleted {
			eventType = "lesson.completed"
		}
		if err := s.audit.LogEvent(ctx, tx, EventParams{
			Type:       eventType,
			UserID:     &userID,
			EntityType: "lesson",
			EntityID:   lessonID.String(),
			Payload: map[string]interface{}{
				"quiz_score":         input.QuizScore,
				"challenge_passed":   challengeVerified,
				"xp_awarded":         xpAwarded,
				"attempt_id":         attempt.ID.String(),
				"dwell_seconds":      dwellSeconds,
				"anti_fake_passed":   antiFakePassed,
				"engaged_heartbeats": engagedHeartbeats,
			},
		}); err != nil {
			return err
		}

		result = &CompleteLessonResult{
			LessonID:  lessonID,
			Status:    progress.Status,
			XPAwarded: xpAwarded,
			Level:     user.Level,
			TotalXP:   user.XP,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rejected {
		return nil, apierr.New(http.StatusUnprocessableEntity, "integrity_rejected", fmt.Errorf(
			"Completion rejected: spend at least %d seconds in lesson with active reading time and pass the challenge before completing.",
			requiredDwell,
		))
	}

	if s.notifier != nil {
		s.notifier.PublishLearnerEvent(ctx, userID, "xp_awarded", map[string]interface{}{
			"lesson_id": lessonID.String(),
			"amount":    xpAwarded,
		})
		if result.Level > levelBefore {
			s.notifier.PublishLearnerEvent(ctx, userID, "level_up", map[string]interface{}{
				"level": result.Level,
			})
		}
		for _, achievement := range newlyUnlocked {
			s.notifier.PublishLearnerEvent(ctx, userID, "achievement_unlocked", map[string]interface{}{
				"code": achievement.Code,
				"name": achievement.Name,
			})
		}
		if missionDone {
			s.notifier.PublishLearnerEvent(ctx, userID, "mission_completed", map[string]interface{}{
				"lesson_id": lessonID.String(),
			})
		}
	}
	return result, nil
}

// resolveAttempt binds the claim to its evidence record. An explicit id must
// triple-match (id, user, lesson); otherwise the freshest active attempt is
// used, and a claim with no attempt at all gets an empty one whose age and
// counters make it fail the integrity checks.
func (s *completionService) resolveAttempt(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID, attemptID *uuid.UUID) (*types.LessonAttempt, error) {
	if attemptID != nil {
		attempt, err := s.attemptRepo.GetForUserLesson(ctx, tx, *attemptID, userID, lessonID)
		if err != nil {
			return nil, fmt.Errorf("load lesson attempt: %w", err)
		}
		if attempt == nil {
			return nil, apierr.New(http.StatusNotFound, "not_found", errors.New("Lesson attempt not found"))
		}
		return attempt, nil
	}

	attempt, err := s.attemptRepo.GetLatestActive(ctx, tx, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load active lesson attempt: %w", err)
	}
	if attempt != nil {
		return attempt, nil
	}

	encoded, err := encodeAttemptMetadata(map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	attempt = &types.LessonAttempt{
		UserID:   userID,
		LessonID: lessonID,
		Status:   types.AttemptStatusInProgress,
		Metadata: encoded,
	}
	if _, err := s.attemptRepo.Create(ctx, tx, []*types.LessonAttempt{attempt}); err != nil {
		return nil, fmt.Errorf("create lesson attempt: %w", err)
	}
	return attempt, nil
}
