package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/pylearnhq/pylearn-backend/internal/repos/testutil"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

func TestAwardLessonCompletionCredits_ConvertsAtThreshold(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	module := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, stack.tx, module.ID, 0, 3)

	wallet := &types.UserWallet{UserID: user.ID, XPCredits: stack.cfg.Economy.CreditConversionThreshold - 2}
	if err := stack.tx.WithContext(ctx).Create(wallet).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}

	updated, err := stack.economy.AwardLessonCompletionCredits(ctx, nil, user.ID, lesson.ID)
	if err != nil {
		t.Fatalf("award credits: %v", err)
	}
	if updated.XPCredits != 1 {
		t.Fatalf("xp credits = %d, want 1 after conversion", updated.XPCredits)
	}
	if updated.PremiumUnlockTokens != 1 {
		t.Fatalf("tokens = %d, want 1", updated.PremiumUnlockTokens)
	}

	txns, err := stack.txnRepo.ListByUserID(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("got %d ledger rows, want reward plus conversion", len(txns))
	}
	currencies := map[string]bool{}
	for _, txn := range txns {
		currencies[txn.Currency] = true
	}
	if !currencies[types.CurrencyXPCredit] || !currencies[types.CurrencyPremiumUnlockToken] {
		t.Fatalf("ledger currencies = %v", currencies)
	}
}

func TestRedeemReferral(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	inviter := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	invited := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())

	invite, err := stack.economy.CreateReferral(ctx, inviter.ID, nil)
	if err != nil {
		t.Fatalf("create referral: %v", err)
	}

	if err := stack.economy.RedeemReferral(ctx, invited.ID, invite.Code); err != nil {
		t.Fatalf("redeem referral: %v", err)
	}

	wallet, err := stack.walletRepo.GetByUserID(ctx, nil, inviter.ID)
	if err != nil || wallet == nil {
		t.Fatalf("reload inviter wallet: %v", err)
	}
	if wallet.ReferralCredits != stack.cfg.Economy.ReferralRewardCredits {
		t.Fatalf("referral credits = %d, want %d", wallet.ReferralCredits, stack.cfg.Economy.ReferralRewardCredits)
	}
	if wallet.PremiumUnlockTokens != 1 {
		t.Fatalf("tokens = %d, want 1", wallet.PremiumUnlockTokens)
	}

	inviters, err := stack.userRepo.GetByIDs(ctx, nil, []uuid.UUID{inviter.ID})
	if err != nil || len(inviters) == 0 {
		t.Fatalf("reload inviter: %v", err)
	}
	if inviters[0].XP != stack.cfg.Economy.ReferralRewardXP {
		t.Fatalf("inviter xp = %d, want %d", inviters[0].XP, stack.cfg.Economy.ReferralRewardXP)
	}

	// Second redemption of the same code must fail.
	err = stack.economy.RedeemReferral(ctx, invited.ID, invite.Code)
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "referral_invalid" {
		t.Fatalf("got status=%d code=%q, want 400 referral_invalid", apiErr.Status, apiErr.Code)
	}
}

func TestRedeemReferral_OwnCodeRejected(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	inviter := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	invite, err := stack.economy.CreateReferral(ctx, inviter.ID, nil)
	if err != nil {
		t.Fatalf("create referral: %v", err)
	}

	err = stack.economy.RedeemReferral(ctx, inviter.ID, invite.Code)
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "referral_invalid" {
		t.Fatalf("got status=%d code=%q, want 400 referral_invalid", apiErr.Status, apiErr.Code)
	}
}

func TestRedeemReferral_UnknownCode(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	err := stack.economy.RedeemReferral(ctx, user.ID, "REFNOPE123")
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", apiErr.Status)
	}
}

func TestGrantPremiumFromWallet(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	wallet := &types.UserWallet{UserID: user.ID, PremiumUnlockTokens: 1}
	if err := stack.tx.WithContext(ctx).Create(wallet).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}

	grant, err := stack.economy.GrantPremiumFromWallet(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("grant premium: %v", err)
	}
	if grant.ExpiresAt == nil {
		t.Fatalf("grant must carry an expiry")
	}
	wantExpiry := grant.GrantedAt.AddDate(0, 0, stack.cfg.Economy.PremiumGrantDays)
	if !grant.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expires_at = %v, want %v", grant.ExpiresAt, wantExpiry)
	}

	reloaded, err := stack.walletRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload wallet: %v", err)
	}
	if reloaded.PremiumUnlockTokens != 0 {
		t.Fatalf("tokens = %d, want 0 after spend", reloaded.PremiumUnlockTokens)
	}

	active, err := stack.economy.HasEarnedPremiumAccess(ctx, user.ID)
	if err != nil {
		t.Fatalf("check premium access: %v", err)
	}
	if !active {
		t.Fatalf("expected active premium access")
	}

	// No tokens left, second unlock must fail.
	_, err = stack.economy.GrantPremiumFromWallet(ctx, user.ID, 0)
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "insufficient_tokens" {
		t.Fatalf("got status=%d code=%q, want 400 insufficient_tokens", apiErr.Status, apiErr.Code)
	}
}

func TestUpdateWeeklyProgress_PaysOnceOnCompletion(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())

	var completedNow bool
	for i := 0; i < 3; i++ {
		var err error
		_, completedNow, err = stack.economy.UpdateWeeklyProgress(ctx, nil, user.ID, true, intPtr(80))
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if i < 2 && completedNow {
			t.Fatalf("mission completed too early on update %d", i)
		}
	}
	if !completedNow {
		t.Fatalf("third qualifying lesson must complete the mission")
	}

	wallet, err := stack.walletRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil || wallet == nil {
		t.Fatalf("reload wallet: %v", err)
	}
	if wallet.ReferralCredits != 2 {
		t.Fatalf("referral credits = %d, want 2", wallet.ReferralCredits)
	}

	// A fourth lesson must not pay again.
	_, completedNow, err = stack.economy.UpdateWeeklyProgress(ctx, nil, user.ID, true, intPtr(80))
	if err != nil {
		t.Fatalf("fourth update: %v", err)
	}
	if completedNow {
		t.Fatalf("completed mission must not complete twice")
	}
	wallet, err = stack.walletRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil || wallet == nil {
		t.Fatalf("reload wallet: %v", err)
	}
	if wallet.ReferralCredits != 2 {
		t.Fatalf("referral credits = %d after extra lesson, want 2", wallet.ReferralCredits)
	}
}

func TestUpdateWeeklyProgress_QuizBelowBarBlocksReward(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	for i := 0; i < 3; i++ {
		_, completedNow, err := stack.economy.UpdateWeeklyProgress(ctx, nil, user.ID, true, intPtr(60))
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if completedNow {
			t.Fatalf("mission must not complete with best quiz below the bar")
		}
	}
}
