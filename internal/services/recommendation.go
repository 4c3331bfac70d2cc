package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/repos"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

// Recommendation points the learner at one lesson. When the pick sits behind
// a mastery gate it is still surfaced, with UnlockReason explaining the lock.
type Recommendation struct {
	LessonID        *uuid.UUID `json:"lesson_id"`
	LessonTitle     *string    `json:"lesson_title"`
	LessonObjective *string    `json:"lesson_objective"`
	ModuleID        *uuid.UUID `json:"module_id"`
	ModuleTitle     *string    `json:"module_title"`
	Reason          string     `json:"reason"`
	UnlockReason    *string    `json:"unlock_reason"`
}

type RecommendationService interface {
	// RecommendNextLesson prefers the weakest graded-but-unmastered lesson,
	// then falls back to the first uncompleted lesson in curriculum order.
	RecommendNextLesson(ctx context.Context, userID uuid.UUID) (*Recommendation, error)
}

type recommendationService struct {
	db           *gorm.DB
	moduleRepo   repos.CourseModuleRepo
	lessonRepo   repos.LessonRepo
	progressRepo repos.LessonProgressRepo
	mastery      MasteryService
	log          *logger.Logger
}

func NewRecommendationService(
	db *gorm.DB,
	moduleRepo repos.CourseModuleRepo,
	lessonRepo repos.LessonRepo,
	progressRepo repos.LessonProgressRepo,
	mastery MasteryService,
	baseLog *logger.Logger,
) RecommendationService {
	serviceLog := baseLog.With("service", "RecommendationService")
	return &recommendationService{
		db:           db,
		moduleRepo:   moduleRepo,
		lessonRepo:   lessonRepo,
		progressRepo: progressRepo,
		mastery:      mastery,
		log:          serviceLog,
	}
}

// isWeakSignal flags a progress row worth revisiting: a weak or missing quiz
// on an uncompleted lesson, or an unpassed challenge.
func isWeakSignal(row *types.LessonProgress, quizThreshold int) bool {
	quizWeak := row.QuizScore == nil || *row.QuizScore < quizThreshold
	if quizWeak && row.Status != types.ProgressStatusCompleted {
		return true
	}
	return !row.ChallengePassed
}

func (s *recommendationService) RecommendNextLesson(ctx context.Context, userID uuid.UUID) (*Recommendation, error) {
	progressRows, err := s.progressRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load lesson progress: %w", err)
	}

	var weak []*types.LessonProgress
	for _, row := range progressRows {
		if isWeakSignal(row, defaultQuizThreshold) {
			weak = append(weak, row)
		}
	}
	// Worst quiz first; a missing score counts as zero.
	sort.SliceStable(weak, func(i, j int) bool {
		return coalesceScore(weak[i].QuizScore) < coalesceScore(weak[j].QuizScore)
	})

	if len(weak) > 0 {
		return s.describeLesson(ctx, userID, weak[0].LessonID,
			"Recommended due to weak quiz/challenge performance.",
			"Weak area detected but module gate is active.")
	}

	modules, err := s.moduleRepo.ListOrdered(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	completed := make(map[uuid.UUID]bool, len(progressRows))
	for _, row := range progressRows {
		if row.Status == types.ProgressStatusCompleted {
			completed[row.LessonID] = true
		}
	}

	for _, module := range modules {
		lessons, err := s.lessonRepo.ListByModuleIDOrdered(ctx, nil, module.ID)
		if err != nil {
			return nil, fmt.Errorf("list module lessons: %w", err)
		}
		for _, lesson := range lessons {
			if completed[lesson.ID] {
				continue
			}
			return s.describeLesson(ctx, userID, lesson.ID,
				"Next unlocked lesson in your path.",
				"Next lesson found but locked behind module mastery.")
		}
	}

	return &Recommendation{Reason: "No recommendation available. Curriculum complete."}, nil
}

func coalesceScore(score *int) int {
	if score == nil {
		return 0
	}
	return *score
}

func (s *recommendationService) describeLesson(ctx context.Context, userID, lessonID uuid.UUID, unlockedReason, lockedReason string) (*Recommendation, error) {
	lessons, err := s.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{lessonID})
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	if len(lessons) == 0 {
		return &Recommendation{Reason: "No recommendation available. Curriculum complete."}, nil
	}
	lesson := lessons[0]

	modules, err := s.moduleRepo.GetByIDs(ctx, nil, []uuid.UUID{lesson.ModuleID})
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}

	rec := &Recommendation{
		LessonID:        &lesson.ID,
		LessonTitle:     &lesson.Title,
		LessonObjective: &lesson.Objective,
		ModuleID:        &lesson.ModuleID,
	}
	if len(modules) > 0 {
		rec.ModuleTitle = &modules[0].Title
	}

	unlocked, reason, err := s.mastery.LessonIsUnlocked(ctx, nil, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if unlocked {
		rec.Reason = unlockedReason
	} else {
		rec.Reason = lockedReason
		rec.UnlockReason = &reason
	}
	return rec, nil
}
