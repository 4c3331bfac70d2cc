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

// achievementCodes is checked in a fixed order so unlock rows and XP bonuses
// land deterministically within a single evaluation.
var achievementCodes = []string{"first_steps", "streak_7", "xp_500", "project_finisher"}

// CalculateLevel maps lifetime XP onto a level. The cost of each level grows
// by level*100 XP and the curve is capped at level 100.
func CalculateLevel(xp int) int {
	level := 1
	threshold := 0
	for xp >= threshold {
		level++
		threshold += level * 100
		if level > 100 {
			break
		}
	}
	if level-1 < 1 {
		return 1
	}
	return level - 1
}

// NextLevelXP returns the total XP at which the given level rolls over.
func NextLevelXP(level int) int {
	total := 0
	for lvl := 2; lvl <= level; lvl++ {
		total += lvl * 100
	}
	return total + (level+1)*100
}

type GamificationProfile struct {
	UserID       uuid.UUID            `json:"user_id"`
	XP           int                  `json:"xp"`
	Level        int                  `json:"level"`
	NextLevelXP  int                  `json:"next_level_xp"`
	StreakDays   int                  `json:"streak_days"`
	Achievements []*types.Achievement `json:"achievements"`
}

type GamificationService interface {
	// AwardXP adds amount (clamped at zero) to the user and recomputes the
	// level. The caller persists the user.
	AwardXP(user *types.User, amount int)
	// UpdateStreak advances the daily streak: same day is a no-op,
	// consecutive day increments, anything else resets to 1.
	UpdateStreak(user *types.User, now time.Time)
	// EvaluateAchievements unlocks every achievement whose condition holds
	// and is not already held, credits its XP bonus and recomputes the
	// level. Returns the newly unlocked achievements.
	EvaluateAchievements(ctx context.Context, tx *gorm.DB, user *types.User) ([]*types.Achievement, error)
	Profile(ctx context.Context, userID uuid.UUID) (*GamificationProfile, error)
}

type gamificationService struct {
	db                  *gorm.DB
	userRepo            repos.UserRepo
	progressRepo        repos.LessonProgressRepo
	achievementRepo     repos.AchievementRepo
	userAchievementRepo repos.UserAchievementRepo
	log                 *logger.Logger
}

func NewGamificationService(
	db *gorm.DB,
	userRepo repos.UserRepo,
	progressRepo repos.LessonProgressRepo,
	achievementRepo repos.AchievementRepo,
	userAchievementRepo repos.UserAchievementRepo,
	baseLog *logger.Logger,
) GamificationService {
	serviceLog := baseLog.With("service", "GamificationService")
	return &gamificationService{
		db:                  db,
		userRepo:            userRepo,
		progressRepo:        progressRepo,
		achievementRepo:     achievementRepo,
		userAchievementRepo: userAchievementRepo,
		log:                 serviceLog,
	}
}

func (s *gamificationService) AwardXP(user *types.User, amount int) {
	if amount > 0 {
		user.XP += amount
	}
	user.Level = CalculateLevel(user.XP)
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (s *gamificationService) UpdateStreak(user *types.User, now time.Time) {
	today := dateOnly(now)
	if user.LastActiveDate != nil && dateOnly(*user.LastActiveDate).Equal(today) {
		return
	}
	if user.LastActiveDate != nil && dateOnly(*user.LastActiveDate).Equal(today.AddDate(0, 0, -1)) {
		user.StreakDays++
	} else {
		user.StreakDays = 1
	}
	user.LastActiveDate = &today
}

func (s *gamificationService) EvaluateAchievements(ctx context.Context, tx *gorm.DB, user *types.User) ([]*types.Achievement, error) {
	completedLessons, err := s.progressRepo.CountCompletedByUser(ctx, tx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count completed lessons: %w", err)
	}

	held, err := s.userAchievementRepo.GetByUserID(ctx, tx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load held achievements: %w", err)
	}
	heldIDs := make(map[uuid.UUID]bool, len(held))
	for _, row := range held {
		heldIDs[row.AchievementID] = true
	}

	conditions := map[string]bool{
		"first_steps":      completedLessons >= 1,
		"streak_7":         user.StreakDays >= 7,
		"xp_500":           user.XP >= 500,
		"project_finisher": completedLessons >= 10,
	}

	var earnedCodes []string
	for _, code := range achievementCodes {
		if conditions[code] {
			earnedCodes = append(earnedCodes, code)
		}
	}

	catalog, err := s.achievementRepo.GetByCodes(ctx, tx, earnedCodes)
	if err != nil {
		return nil, fmt.Errorf("load achievement catalog: %w", err)
	}
	byCode := make(map[string]*types.Achievement, len(catalog))
	for _, achievement := range catalog {
		byCode[achievement.Code] = achievement
	}

	var unlocked []*types.Achievement
	var newRows []*types.UserAchievement
	for _, code := range earnedCodes {
		achievement, ok := byCode[code]
		if !ok || heldIDs[achievement.ID] {
			continue
		}
		newRows = append(newRows, &types.UserAchievement{
			UserID:        user.ID,
			AchievementID: achievement.ID,
		})
		user.XP += achievement.XPBonus
		unlocked = append(unlocked, achievement)
	}
	if len(newRows) > 0 {
		if _, err := s.userAchievementRepo.Create(ctx, tx, newRows); err != nil {
			return nil, fmt.Errorf("create achievement unlocks: %w", err)
		}
	}

	user.Level = CalculateLevel(user.XP)
	return unlocked, nil
}

func (s *gamificationService) Profile(ctx context.Context, userID uuid.UUID) (*GamificationProfile, error) {
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	user := users[0]

	held, err := s.userAchievementRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load held achievements: %w", err)
	}
	catalog, err := s.achievementRepo.ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load achievement catalog: %w", err)
	}
	byID := make(map[uuid.UUID]*types.Achievement, len(catalog))
	for _, achievement := range catalog {
		byID[achievement.ID] = achievement
	}

	achievements := make([]*types.Achievement, 0, len(held))
	for _, row := range held {
		if achievement, ok := byID[row.AchievementID]; ok {
			achievements = append(achievements, achievement)
		}
	}

	return &GamificationProfile{
		UserID:       user.ID,
		XP:           user.XP,
		Level:        user.Level,
		NextLevelXP:  NextLevelXP(user.Level),
		StreakDays:   user.StreakDays,
		Achievements: achievements,
	}, nil
}
