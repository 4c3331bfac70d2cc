package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/repos"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

const defaultQuizThreshold = 70

const gateLockedReason = "Mastery gate locked. Complete prior module with quiz>=70 and challenge pass to unlock."

// ModuleGateState is the per-module row of the gate map shown to learners.
type ModuleGateState struct {
	ModuleID         uuid.UUID `json:"module_id"`
	Unlocked         bool      `json:"unlocked"`
	Mastered         bool      `json:"mastered"`
	AverageQuizScore int       `json:"average_quiz_score"`
	LessonsCompleted int       `json:"lessons_completed"`
	TotalLessons     int       `json:"total_lessons"`
	ChallengesPassed int       `json:"challenges_passed"`
}

type MasteryService interface {
	// EvaluateModuleMastery recomputes the mastery aggregate for one
	// (user, module) pair from lesson progress rows and persists it.
	// UnlockedAt is set on the first transition into mastered and never
	// cleared afterwards.
	EvaluateModuleMastery(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.ModuleMastery, error)
	// ModuleGateStates returns the ordered gate map. A module is unlocked
	// iff its predecessor is mastered; the first module is always unlocked.
	ModuleGateStates(ctx context.Context, userID uuid.UUID, courseID *uuid.UUID) ([]ModuleGateState, error)
	// LessonIsUnlocked reports whether the lesson is claimable and, when it
	// is not, a learner-facing reason. Missing rows are a locked outcome,
	// not an error.
	LessonIsUnlocked(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (bool, string, error)
}

type masteryService struct {
	db           *gorm.DB
	moduleRepo   repos.CourseModuleRepo
	lessonRepo   repos.LessonRepo
	progressRepo repos.LessonProgressRepo
	masteryRepo  repos.ModuleMasteryRepo
	log          *logger.Logger
}

func NewMasteryService(
	db *gorm.DB,
	moduleRepo repos.CourseModuleRepo,
	lessonRepo repos.LessonRepo,
	progressRepo repos.LessonProgressRepo,
	masteryRepo repos.ModuleMasteryRepo,
	baseLog *logger.Logger,
) MasteryService {
	serviceLog := baseLog.With("service", "MasteryService")
	return &masteryService{
		db:           db,
		moduleRepo:   moduleRepo,
		lessonRepo:   lessonRepo,
		progressRepo: progressRepo,
		masteryRepo:  masteryRepo,
		log:          serviceLog,
	}
}

type masteryAggregate struct {
	lessonsCompleted int
	averageQuizScore int
	challengesPassed int
	mastered         bool
}

// aggregateMastery folds progress rows into the mastery aggregate. The quiz
// average is taken over graded lessons only; an ungraded module averages 0.
func aggregateMastery(progress []*types.LessonProgress, totalLessons, quizThreshold int) masteryAggregate {
	var agg masteryAggregate
	quizSum := 0
	quizCount := 0
	for _, row := range progress {
		if row.Status == types.ProgressStatusCompleted {
			agg.lessonsCompleted++
		}
		if row.QuizScore != nil {
			quizSum += *row.QuizScore
			quizCount++
		}
		if row.ChallengePassed {
			agg.challengesPassed++
		}
	}
	if quizCount > 0 {
		agg.averageQuizScore = quizSum / quizCount
	}
	agg.mastered = agg.lessonsCompleted >= totalLessons &&
		agg.challengesPassed >= totalLessons &&
		agg.averageQuizScore >= quizThreshold
	return agg
}

// unlockChain folds an ordered mastered sequence into per-module unlock
// flags: each module is unlocked iff every predecessor slot rolled a
// mastered=true into it, seeded true for the first.
func unlockChain(mastered []bool) []bool {
	unlocked := make([]bool, len(mastered))
	previous := true
	for i, m := range mastered {
		unlocked[i] = previous
		previous = m
	}
	return unlocked
}

func (s *masteryService) EvaluateModuleMastery(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.ModuleMastery, error) {
	lessons, err := s.lessonRepo.ListByModuleIDOrdered(ctx, tx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("list module lessons: %w", err)
	}

	record, err := s.masteryRepo.GetByUserAndModule(ctx, tx, userID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("load module mastery: %w", err)
	}
	if record == nil {
		record = &types.ModuleMastery{UserID: userID, ModuleID: moduleID}
	}

	if len(lessons) == 0 {
		// A module without lessons has nothing to gate on.
		record.MasteryThresholdMet = true
		record.AverageQuizScore = 100
		record.LessonsCompleted = 0
		record.ChallengesPassed = 0
		if err := s.masteryRepo.Save(ctx, tx, record); err != nil {
			return nil, fmt.Errorf("save module mastery: %w", err)
		}
		return record, nil
	}

	lessonIDs := make([]uuid.UUID, 0, len(lessons))
	for _, lesson := range lessons {
		lessonIDs = append(lessonIDs, lesson.ID)
	}
	progress, err := s.progressRepo.GetByUserAndLessonIDs(ctx, tx, userID, lessonIDs)
	if err != nil {
		return nil, fmt.Errorf("load lesson progress: %w", err)
	}

	agg := aggregateMastery(progress, len(lessons), defaultQuizThreshold)
	record.LessonsCompleted = agg.lessonsCompleted
	record.AverageQuizScore = agg.averageQuizScore
	record.ChallengesPassed = agg.challengesPassed
	record.MasteryThresholdMet = agg.mastered
	if agg.mastered && record.UnlockedAt == nil {
		now := time.Now().UTC()
		record.UnlockedAt = &now
	}
	if err := s.masteryRepo.Save(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("save module mastery: %w", err)
	}
	return record, nil
}

func (s *masteryService) ModuleGateStates(ctx context.Context, userID uuid.UUID, courseID *uuid.UUID) ([]ModuleGateState, error) {
	modules, err := s.moduleRepo.ListOrdered(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	masteries := make([]*types.ModuleMastery, 0, len(modules))
	totals := make([]int, 0, len(modules))
	masteredSeq := make([]bool, 0, len(modules))
	for _, module := range modules {
		mastery, err := s.EvaluateModuleMastery(ctx, nil, userID, module.ID)
		if err != nil {
			return nil, err
		}
		lessons, err := s.lessonRepo.ListByModuleIDOrdered(ctx, nil, module.ID)
		if err != nil {
			return nil, fmt.Errorf("list module lessons: %w", err)
		}
		masteries = append(masteries, mastery)
		totals = append(totals, len(lessons))
		masteredSeq = append(masteredSeq, mastery.MasteryThresholdMet)
	}

	unlocked := unlockChain(masteredSeq)
	states := make([]ModuleGateState, 0, len(modules))
	for i, module := range modules {
		states = append(states, ModuleGateState{
			ModuleID:         module.ID,
			Unlocked:         unlocked[i],
			Mastered:         masteries[i].MasteryThresholdMet,
			AverageQuizScore: masteries[i].AverageQuizScore,
			LessonsCompleted: masteries[i].LessonsCompleted,
			TotalLessons:     totals[i],
			ChallengesPassed: masteries[i].ChallengesPassed,
		})
	}
	return states, nil
}

func (s *masteryService) LessonIsUnlocked(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (bool, string, error) {
	lessons, err := s.lessonRepo.GetByIDs(ctx, tx, []uuid.UUID{lessonID})
	if err != nil {
		return false, "", fmt.Errorf("load lesson: %w", err)
	}
	if len(lessons) == 0 {
		return false, "Lesson not found", nil
	}
	lesson := lessons[0]

	modules, err := s.moduleRepo.GetByIDs(ctx, tx, []uuid.UUID{lesson.ModuleID})
	if err != nil {
		return false, "", fmt.Errorf("load module: %w", err)
	}
	if len(modules) == 0 {
		return false, "Module not found", nil
	}
	module := modules[0]

	ordered, err := s.moduleRepo.ListByCourseIDOrdered(ctx, tx, module.CourseID)
	if err != nil {
		return false, "", fmt.Errorf("list course modules: %w", err)
	}
	if len(ordered) == 0 || ordered[0].ID == module.ID {
		return true, "", nil
	}

	var previousModuleID *uuid.UUID
	for idx, item := range ordered {
		if item.ID == module.ID && idx > 0 {
			previousModuleID = &ordered[idx-1].ID
			break
		}
	}
	if previousModuleID == nil {
		return true, "", nil
	}

	previous, err := s.EvaluateModuleMastery(ctx, tx, userID, *previousModuleID)
	if err != nil {
		return false, "", err
	}
	if previous.MasteryThresholdMet {
		return true, "", nil
	}
	return false, gateLockedReason, nil
}
