package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pylearnhq/pylearn-backend/internal/repos/testutil"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

func TestCompleteLesson_RejectsImmediateClaim(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	module := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, stack.tx, module.ID, 0, 3)

	attempt, err := stack.attempt.Start(ctx, user.ID, lesson.ID, 0, nil)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	_, err = stack.completion.CompleteLesson(ctx, user.ID, lesson.ID, CompleteLessonInput{
		QuizScore: intPtr(100),
		AttemptID: &attempt.ID,
	})
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Code != "integrity_rejected" {
		t.Fatalf("got status=%d code=%q, want 422 integrity_rejected", apiErr.Status, apiErr.Code)
	}

	// The rejection itself must be durable.
	stored, err := stack.attemptRepo.GetForUserLesson(ctx, nil, attempt.ID, user.ID, lesson.ID)
	if err != nil {
		t.Fatalf("reload attempt: %v", err)
	}
	if stored.Status != types.AttemptStatusRejected {
		t.Fatalf("attempt status = %q, want rejected", stored.Status)
	}
	if stored.AntiFakePassed {
		t.Fatalf("rejected attempt must not carry anti_fake_passed")
	}

	progressRows, err := stack.progressRepo.GetByUserAndLessonIDs(ctx, nil, user.ID, []uuid.UUID{lesson.ID})
	if err != nil {
		t.Fatalf("reload progress: %v", err)
	}
	if len(progressRows) != 1 || progressRows[0].Status != types.ProgressStatusInProgress {
		t.Fatalf("progress rows = %+v, want single in_progress row", progressRows)
	}
}

func TestCompleteLesson_ForgedDwellPayloadIsIgnored(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	module := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, stack.tx, module.ID, 0, 3)

	attempt, err := stack.attempt.Start(ctx, user.ID, lesson.ID, 0, nil)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	_, err = stack.completion.CompleteLesson(ctx, user.ID, lesson.ID, CompleteLessonInput{
		AttemptID:    &attempt.ID,
		DwellSeconds: 999999,
	})
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("forged dwell got status %d, want 422", apiErr.Status)
	}
}

func TestCompleteLesson_FullCredit(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	module := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, stack.tx, module.ID, 0, 3)
	challenge := testutil.SeedChallenge(t, ctx, stack.tx, lesson.ID)

	attempt := seedEvidencedAttempt(t, ctx, stack.tx, user.ID, lesson.ID, 2*time.Minute, 3)
	seedPassingSubmission(t, ctx, stack.tx, user.ID, challenge.ID)

	result, err := stack.completion.CompleteLesson(ctx, user.ID, lesson.ID, CompleteLessonInput{
		QuizScore: intPtr(100),
		AttemptID: &attempt.ID,
	})
	if err != nil {
		t.Fatalf("complete lesson: %v", err)
	}
	if result.Status != types.ProgressStatusCompleted {
		t.Fatalf("status = %q, want completed", result.Status)
	}
	if result.XPAwarded != stack.cfg.Integrity.FullCompletionXP {
		t.Fatalf("xp awarded = %d, want %d", result.XPAwarded, stack.cfg.Integrity.FullCompletionXP)
	}
	if result.TotalXP != stack.cfg.Integrity.FullCompletionXP {
		t.Fatalf("total xp = %d, want %d", result.TotalXP, stack.cfg.Integrity.FullCompletionXP)
	}

	stored, err := stack.attemptRepo.GetForUserLesson(ctx, nil, attempt.ID, user.ID, lesson.ID)
	if err != nil {
		t.Fatalf("reload attempt: %v", err)
	}
	if stored.Status != types.AttemptStatusCompleted || !stored.AntiFakePassed {
		t.Fatalf("attempt status=%q anti_fake=%v, want completed/true", stored.Status, stored.AntiFakePassed)
	}

	users, err := stack.userRepo.GetByIDs(ctx, nil, []uuid.UUID{user.ID})
	if err != nil || len(users) == 0 {
		t.Fatalf("reload user: %v", err)
	}
	if users[0].StreakDays != 1 {
		t.Fatalf("streak = %d, want 1", users[0].StreakDays)
	}

	mastery, err := stack.masteryRepo.GetByUserAndModule(ctx, nil, user.ID, module.ID)
	if err != nil {
		t.Fatalf("reload mastery: %v", err)
	}
	if mastery == nil || !mastery.MasteryThresholdMet {
		t.Fatalf("single-lesson module should be mastered after full credit: %+v", mastery)
	}
	if mastery.UnlockedAt == nil {
		t.Fatalf("mastered module must stamp unlocked_at")
	}

	wallet, err := stack.walletRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("reload wallet: %v", err)
	}
	if wallet == nil || wallet.XPCredits != stack.cfg.Economy.LessonCompletionCredits {
		t.Fatalf("wallet = %+v, want %d xp credits", wallet, stack.cfg.Economy.LessonCompletionCredits)
	}
}

func TestCompleteLesson_WeakQuizGetsPartialCredit(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	module := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, stack.tx, module.ID, 0, 3)
	challenge := testutil.SeedChallenge(t, ctx, stack.tx, lesson.ID)

	attempt := seedEvidencedAttempt(t, ctx, stack.tx, user.ID, lesson.ID, 2*time.Minute, 3)
	seedPassingSubmission(t, ctx, stack.tx, user.ID, challenge.ID)

	result, err := stack.completion.CompleteLesson(ctx, user.ID, lesson.ID, CompleteLessonInput{
		QuizScore: intPtr(50),
		AttemptID: &attempt.ID,
	})
	if err != nil {
		t.Fatalf("complete lesson: %v", err)
	}
	if result.Status != types.ProgressStatusInProgress {
		t.Fatalf("status = %q, want in_progress", result.Status)
	}
	if result.XPAwarded != stack.cfg.Integrity.PartialCompletionXP {
		t.Fatalf("xp awarded = %d, want %d", result.XPAwarded, stack.cfg.Integrity.PartialCompletionXP)
	}
}

func TestCompleteLesson_GateLockedSecondModule(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	first := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	second := testutil.SeedModule(t, ctx, stack.tx, course.ID, 1)
	testutil.SeedLesson(t, ctx, stack.tx, first.ID, 0, 3)
	locked := testutil.SeedLesson(t, ctx, stack.tx, second.ID, 0, 3)

	_, err := stack.completion.CompleteLesson(ctx, user.ID, locked.ID, CompleteLessonInput{QuizScore: intPtr(100)})
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusLocked || apiErr.Code != "gate_locked" {
		t.Fatalf("got status=%d code=%q, want 423 gate_locked", apiErr.Status, apiErr.Code)
	}

	events, err := stack.eventRepo.ListByUserID(ctx, nil, user.ID, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	found := false
	for _, event := range events {
		if event.Type == "lesson_completion.blocked_by_mastery_gate" {
			found = true
		}
	}
	if !found {
		t.Fatalf("blocked-by-gate event missing from audit trail")
	}
}

func TestCompleteLesson_RejectedReclaimRegressesProgress(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	module := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, stack.tx, module.ID, 0, 3)
	challenge := testutil.SeedChallenge(t, ctx, stack.tx, lesson.ID)

	attempt := seedEvidencedAttempt(t, ctx, stack.tx, user.ID, lesson.ID, 2*time.Minute, 3)
	seedPassingSubmission(t, ctx, stack.tx, user.ID, challenge.ID)

	result, err := stack.completion.CompleteLesson(ctx, user.ID, lesson.ID, CompleteLessonInput{
		QuizScore: intPtr(100),
		AttemptID: &attempt.ID,
	})
	if err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if result.Status != types.ProgressStatusCompleted {
		t.Fatalf("first completion status = %q, want completed", result.Status)
	}

	// A later claim with no fresh evidence demotes the durable record.
	fresh, err := stack.attempt.Start(ctx, user.ID, lesson.ID, 0, nil)
	if err != nil {
		t.Fatalf("start fresh attempt: %v", err)
	}
	_, err = stack.completion.CompleteLesson(ctx, user.ID, lesson.ID, CompleteLessonInput{
		QuizScore: intPtr(100),
		AttemptID: &fresh.ID,
	})
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("reclaim got status %d, want 422", apiErr.Status)
	}

	progressRows, err := stack.progressRepo.GetByUserAndLessonIDs(ctx, nil, user.ID, []uuid.UUID{lesson.ID})
	if err != nil || len(progressRows) != 1 {
		t.Fatalf("reload progress: %v (%d rows)", err, len(progressRows))
	}
	if progressRows[0].Status != types.ProgressStatusInProgress {
		t.Fatalf("progress status = %q, want regressed to in_progress", progressRows[0].Status)
	}
}

func TestCompleteLesson_UnknownLesson(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	_, err := stack.completion.CompleteLesson(ctx, user.ID, uuid.New(), CompleteLessonInput{})
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", apiErr.Status)
	}
}
