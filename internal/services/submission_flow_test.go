package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/pylearnhq/pylearn-backend/internal/repos/testutil"
)

func TestRecordSubmission_PassAwardsChallengeXP(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	module := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, stack.tx, module.ID, 0, 3)
	challenge := testutil.SeedChallenge(t, ctx, stack.tx, lesson.ID)

	submission, err := stack.submission.RecordSubmission(ctx, user.ID, challenge.ID, RecordSubmissionInput{
		Code:     "print('hello')",
		Stdout:   "hello",
		ExitCode: 0,
	})
	if err != nil {
		t.Fatalf("record submission: %v", err)
	}
	if !submission.Passed {
		t.Fatalf("exit code 0 must pass")
	}
	if submission.Output != "hello" {
		t.Fatalf("output = %q, want stdout", submission.Output)
	}

	users, err := stack.userRepo.GetByIDs(ctx, nil, []uuid.UUID{user.ID})
	if err != nil || len(users) == 0 {
		t.Fatalf("reload user: %v", err)
	}
	if users[0].XP != challenge.XPReward {
		t.Fatalf("xp = %d, want %d", users[0].XP, challenge.XPReward)
	}
	if users[0].StreakDays != 1 {
		t.Fatalf("streak = %d, want 1", users[0].StreakDays)
	}
}

func TestRecordSubmission_FailureAwardsNothing(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	module := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, stack.tx, module.ID, 0, 3)
	challenge := testutil.SeedChallenge(t, ctx, stack.tx, lesson.ID)

	submission, err := stack.submission.RecordSubmission(ctx, user.ID, challenge.ID, RecordSubmissionInput{
		Code:     "raise SystemExit(1)",
		Stderr:   "SystemExit",
		ExitCode: 1,
	})
	if err != nil {
		t.Fatalf("record submission: %v", err)
	}
	if submission.Passed {
		t.Fatalf("nonzero exit code must not pass")
	}
	if submission.Output != "SystemExit" {
		t.Fatalf("output = %q, want stderr fallback", submission.Output)
	}

	users, err := stack.userRepo.GetByIDs(ctx, nil, []uuid.UUID{user.ID})
	if err != nil || len(users) == 0 {
		t.Fatalf("reload user: %v", err)
	}
	if users[0].XP != 0 {
		t.Fatalf("xp = %d, want 0 on failure", users[0].XP)
	}
}
