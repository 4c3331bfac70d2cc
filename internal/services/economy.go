package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pylearnhq/pylearn-backend/internal/apierr"
	"github.com/pylearnhq/pylearn-backend/internal/config"
	"github.com/pylearnhq/pylearn-backend/internal/logger"
	"github.com/pylearnhq/pylearn-backend/internal/repos"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

type EconomyService interface {
	GetOrCreateWallet(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserWallet, error)
	// AwardLessonCompletionCredits pays the completion reward and, when the
	// balance crosses the conversion threshold, burns it into a premium
	// unlock token. Both moves land in the ledger.
	AwardLessonCompletionCredits(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.UserWallet, error)
	// UpdateWeeklyProgress advances the current weekly mission and pays its
	// reward on the completing update. Returns completedNow true only on
	// that update.
	UpdateWeeklyProgress(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonCompleted bool, quizScore *int) (*types.UserWeeklyMission, bool, error)
	CreateReferral(ctx context.Context, userID uuid.UUID, invitedEmail *string) (*types.ReferralInvite, error)
	RedeemReferral(ctx context.Context, userID uuid.UUID, code string) error
	GrantPremiumFromWallet(ctx context.Context, userID uuid.UUID, days int) (*types.PremiumAccessGrant, error)
	HasEarnedPremiumAccess(ctx context.Context, userID uuid.UUID) (bool, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*types.EconomyTransaction, error)
}

type economyService struct {
	db          *gorm.DB
	cfg         config.Economy
	userRepo    repos.UserRepo
	walletRepo  repos.WalletRepo
	txnRepo     repos.EconomyTransactionRepo
	missionRepo repos.WeeklyMissionRepo
	userMission repos.UserWeeklyMissionRepo
	referral    repos.ReferralInviteRepo
	grantRepo   repos.PremiumGrantRepo
	audit       AuditService
	log         *logger.Logger
}

func NewEconomyService(
	db *gorm.DB,
	cfg config.Economy,
	userRepo repos.UserRepo,
	walletRepo repos.WalletRepo,
	txnRepo repos.EconomyTransactionRepo,
	missionRepo repos.WeeklyMissionRepo,
	userMission repos.UserWeeklyMissionRepo,
	referral repos.ReferralInviteRepo,
	grantRepo repos.PremiumGrantRepo,
	audit AuditService,
	baseLog *logger.Logger,
) EconomyService {
	serviceLog := baseLog.With("service", "EconomyService")
	return &economyService{
		db:          db,
		cfg:         cfg,
		userRepo:    userRepo,
		walletRepo:  walletRepo,
		txnRepo:     txnRepo,
		missionRepo: missionRepo,
		userMission: userMission,
		referral:    referral,
		grantRepo:   grantRepo,
		audit:       audit,
		log:         serviceLog,
	}
}

// weekStart truncates to the Monday of the week holding when.
func weekStart(when time.Time) time.Time {
	day := dateOnly(when)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func (s *economyService) GetOrCreateWallet(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserWallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	if wallet != nil {
		return wallet, nil
	}
	wallet = &types.UserWallet{UserID: userID}
	if err := s.walletRepo.Create(ctx, tx, wallet); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return wallet, nil
}

func (s *economyService) recordTxn(ctx context.Context, tx *gorm.DB, userID uuid.UUID, source, currency string, amount int, metadata map[string]interface{}) error {
	payload, err := encodeAttemptMetadata(metadata)
	if err != nil {
		return err
	}
	row := &types.EconomyTransaction{
		UserID:   userID,
		Source:   source,
		Currency: currency,
		Amount:   amount,
		Metadata: payload,
	}
	if _, err := s.txnRepo.Create(ctx, tx, []*types.EconomyTransaction{row}); err != nil {
		return fmt.Errorf("create economy transaction: %w", err)
	}
	return nil
}

func (s *economyService) AwardLessonCompletionCredits(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.UserWallet, error) {
	wallet, err := s.GetOrCreateWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	wallet.XPCredits += s.cfg.LessonCompletionCredits
	if err := s.recordTxn(ctx, tx, userID, "lesson_completion", types.CurrencyXPCredit, s.cfg.LessonCompletionCredits,
		map[string]interface{}{"lesson_id": lessonID.String()}); err != nil {
		return nil, err
	}

	if wallet.XPCredits >= s.cfg.CreditConversionThreshold {
		wallet.XPCredits -= s.cfg.CreditConversionThreshold
		wallet.PremiumUnlockTokens++
		if err := s.recordTxn(ctx, tx, userID, "xp_credit_conversion", types.CurrencyPremiumUnlockToken, 1,
			map[string]interface{}{"spent_xp_credits": s.cfg.CreditConversionThreshold}); err != nil {
			return nil, err
		}
	}

	if err := s.walletRepo.Save(ctx, tx, wallet); err != nil {
		return nil, fmt.Errorf("save wallet: %w", err)
	}
	return wallet, nil
}

func (s *economyService) ensureWeeklyMission(ctx context.Context, tx *gorm.DB, now time.Time) (*types.WeeklyUnlockMission, error) {
	start := weekStart(now)
	mission, err := s.missionRepo.GetActiveByWeekStart(ctx, tx, start)
	if err != nil {
		return nil, fmt.Errorf("load weekly mission: %w", err)
	}
	if mission != nil {
		return mission, nil
	}

	mission = &types.WeeklyUnlockMission{
		WeekStart:         start,
		Title:             "Mastery Sprint",
		Description:       "Complete 3 lessons with at least one quiz score above 75 to earn unlock credits.",
		RequiredLessons:   3,
		RequiredQuizScore: 75,
		RewardCredits:     2,
		Active:            true,
	}
	if err := s.missionRepo.Create(ctx, tx, mission); err != nil {
		return nil, fmt.Errorf("create weekly mission: %w", err)
	}
	return mission, nil
}

func (s *economyService) UpdateWeeklyProgress(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonCompleted bool, quizScore *int) (*types.UserWeeklyMission, bool, error) {
	mission, err := s.ensureWeeklyMission(ctx, tx, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}

	progress, err := s.userMission.GetByUserAndMission(ctx, tx, userID, mission.ID)
	if err != nil {
		return nil, false, fmt.Errorf("load weekly mission progress: %w", err)
	}
	if progress == nil {
		progress = &types.UserWeeklyMission{UserID: userID, MissionID: mission.ID}
		if err := s.userMission.Create(ctx, tx, progress); err != nil {
			return nil, false, fmt.Errorf("create weekly mission progress: %w", err)
		}
	}

	if lessonCompleted {
		progress.LessonsProgress++
	}
	if quizScore != nil && *quizScore > progress.BestQuizScore {
		progress.BestQuizScore = *quizScore
	}

	completedNow := false
	if !progress.Completed &&
		progress.LessonsProgress >= mission.RequiredLessons &&
		progress.BestQuizScore >= mission.RequiredQuizScore {
		completedNow = true
		now := time.Now().UTC()
		progress.Completed = true
		progress.CompletedAt = &now

		wallet, err := s.GetOrCreateWallet(ctx, tx, userID)
		if err != nil {
			return nil, false, err
		}
		wallet.ReferralCredits += mission.RewardCredits
		if err := s.walletRepo.Save(ctx, tx, wallet); err != nil {
			return nil, false, fmt.Errorf("save wallet: %w", err)
		}
		if err := s.recordTxn(ctx, tx, userID, "weekly_mission_completion", types.CurrencyReferralCredit, mission.RewardCredits,
			map[string]interface{}{"mission_id": mission.ID.String()}); err != nil {
			return nil, false, err
		}
		if err := s.audit.LogEvent(ctx, tx, EventParams{
			Type:       "weekly_mission.completed",
			UserID:     &userID,
			EntityType: "weekly_unlock_mission",
			EntityID:   mission.ID.String(),
			Payload: map[string]interface{}{
				"reward_credits":   mission.RewardCredits,
				"lessons_progress": progress.LessonsProgress,
				"best_quiz_score":  progress.BestQuizScore,
			},
		}); err != nil {
			return nil, false, err
		}
	}

	if err := s.userMission.Save(ctx, tx, progress); err != nil {
		return nil, false, fmt.Errorf("save weekly mission progress: %w", err)
	}
	return progress, completedNow, nil
}

func referralCode() (string, error) {
	raw := make([]byte, 4)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	return "REF" + strings.ToUpper(hex.EncodeToString(raw)), nil
}

func (s *economyService) CreateReferral(ctx context.Context, userID uuid.UUID, invitedEmail *string) (*types.ReferralInvite, error) {
	code, err := referralCode()
	if err != nil {
		return nil, err
	}

	invite := &types.ReferralInvite{
		InviterUserID: userID,
		Code:          code,
		Status:        types.ReferralStatusPending,
		RewardXP:      s.cfg.ReferralRewardXP,
		RewardCredits: s.cfg.ReferralRewardCredits,
	}
	if invitedEmail != nil {
		lowered := strings.ToLower(*invitedEmail)
		invite.InvitedEmail = &lowered
	}
	if err := s.referral.Create(ctx, nil, invite); err != nil {
		return nil, fmt.Errorf("create referral invite: %w", err)
	}
	return invite, nil
}

func (s *economyService) RedeemReferral(ctx context.Context, userID uuid.UUID, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := s.referral.GetByCode(ctx, tx, strings.ToUpper(code))
		if err != nil {
			return fmt.Errorf("load referral invite: %w", err)
		}
		if invite == nil {
			return apierr.New(http.StatusNotFound, "not_found", errors.New("Referral code not found"))
		}
		if invite.InviterUserID == userID {
			return apierr.New(http.StatusBadRequest, "referral_invalid", errors.New("You cannot redeem your own referral code"))
		}
		if invite.Status == types.ReferralStatusRewarded {
			return apierr.New(http.StatusBadRequest, "referral_invalid", errors.New("Referral code already redeemed"))
		}

		inviters, err := s.userRepo.GetByIDs(ctx, tx, []uuid.UUID{invite.InviterUserID})
		if err != nil {
			return fmt.Errorf("load inviter: %w", err)
		}
		if len(inviters) == 0 {
			return apierr.New(http.StatusNotFound, "not_found", errors.New("Inviter account not found"))
		}
		inviter := inviters[0]

		now := time.Now().UTC()
		invite.InvitedUserID = &userID
		invite.Status = types.ReferralStatusRewarded
		invite.RewardedAt = &now
		if err := s.referral.Save(ctx, tx, invite); err != nil {
			return fmt.Errorf("save referral invite: %w", err)
		}

		wallet, err := s.GetOrCreateWallet(ctx, tx, inviter.ID)
		if err != nil {
			return err
		}
		wallet.ReferralCredits += invite.RewardCredits
		wallet.PremiumUnlockTokens++
		if err := s.walletRepo.Save(ctx, tx, wallet); err != nil {
			return fmt.Errorf("save inviter wallet: %w", err)
		}

		inviter.XP += invite.RewardXP
		inviter.Level = CalculateLevel(inviter.XP)
		if err := s.userRepo.Save(ctx, tx, inviter); err != nil {
			return fmt.Errorf("save inviter: %w", err)
		}

		meta := map[string]interface{}{
			"referral_code":   invite.Code,
			"invited_user_id": userID.String(),
		}
		if err := s.recordTxn(ctx, tx, inviter.ID, "referral_reward", types.CurrencyReferralCredit, invite.RewardCredits, meta); err != nil {
			return err
		}
		return s.recordTxn(ctx, tx, inviter.ID, "referral_reward", types.CurrencyPremiumUnlockToken, 1, meta)
	})
}

func (s *economyService) GrantPremiumFromWallet(ctx context.Context, userID uuid.UUID, days int) (*types.PremiumAccessGrant, error) {
	if days <= 0 {
		days = s.cfg.PremiumGrantDays
	}

	var grant *types.PremiumAccessGrant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := s.GetOrCreateWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if wallet.PremiumUnlockTokens <= 0 {
			return apierr.New(http.StatusBadRequest, "insufficient_tokens", errors.New("No premium unlock tokens available"))
		}

		wallet.PremiumUnlockTokens--
		if err := s.walletRepo.Save(ctx, tx, wallet); err != nil {
			return fmt.Errorf("save wallet: %w", err)
		}

		now := time.Now().UTC()
		expires := now.AddDate(0, 0, days)
		payload, err := encodeAttemptMetadata(map[string]interface{}{"days": days})
		if err != nil {
			return err
		}
		grant = &types.PremiumAccessGrant{
			UserID:    userID,
			Source:    "wallet_token",
			GrantedAt: now,
			ExpiresAt: &expires,
			Metadata:  payload,
		}
		if err := s.grantRepo.Create(ctx, tx, grant); err != nil {
			return fmt.Errorf("create premium grant: %w", err)
		}

		if err := s.recordTxn(ctx, tx, userID, "premium_unlock_spend", types.CurrencyPremiumUnlockToken, -1,
			map[string]interface{}{"days": days}); err != nil {
			return err
		}
		return s.audit.LogEvent(ctx, tx, EventParams{
			Type:       "premium_access.granted",
			UserID:     &userID,
			EntityType: "premium_access_grant",
			Payload:    map[string]interface{}{"source": "wallet_token", "days": days},
		})
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *economyService) HasEarnedPremiumAccess(ctx context.Context, userID uuid.UUID) (bool, error) {
	grants, err := s.grantRepo.GetActiveForUser(ctx, nil, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("load premium grants: %w", err)
	}
	return len(grants) > 0, nil
}

func (s *economyService) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*types.EconomyTransaction, error) {
	return s.txnRepo.ListByUserID(ctx, nil, userID)
}
