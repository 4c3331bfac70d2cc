package repos

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pylearnhq/pylearn-backend/internal/repos/testutil"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

func TestLessonAttemptRepo_GetForUserLesson(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewLessonAttemptRepo(tx, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, fmt.Sprintf("attempt-%s@example.com", uuid.New().String()[:8]))
	course := testutil.SeedCourse(t, ctx, tx, 0)
	module := testutil.SeedModule(t, ctx, tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, tx, module.ID, 0, 3)

	rows, err := repo.Create(ctx, nil, []*types.LessonAttempt{{
		UserID:   user.ID,
		LessonID: lesson.ID,
		Status:   types.AttemptStatusStarted,
	}})
	if err != nil || len(rows) != 1 {
		t.Fatalf("create attempt: %v", err)
	}
	attempt := rows[0]

	found, err := repo.GetForUserLesson(ctx, nil, attempt.ID, user.ID, lesson.ID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if found == nil || found.ID != attempt.ID {
		t.Fatalf("got %+v, want attempt %s", found, attempt.ID)
	}

	// Any mismatched leg of the triple must miss.
	if found, _ := repo.GetForUserLesson(ctx, nil, attempt.ID, uuid.New(), lesson.ID); found != nil {
		t.Fatalf("foreign user must not resolve the attempt")
	}
	if found, _ := repo.GetForUserLesson(ctx, nil, attempt.ID, user.ID, uuid.New()); found != nil {
		t.Fatalf("foreign lesson must not resolve the attempt")
	}
}

func TestLessonAttemptRepo_GetLatestActive(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewLessonAttemptRepo(tx, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, fmt.Sprintf("attempt-%s@example.com", uuid.New().String()[:8]))
	course := testutil.SeedCourse(t, ctx, tx, 0)
	module := testutil.SeedModule(t, ctx, tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, tx, module.ID, 0, 3)

	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC().Add(-time.Minute)
	if _, err := repo.Create(ctx, nil, []*types.LessonAttempt{
		{UserID: user.ID, LessonID: lesson.ID, Status: types.AttemptStatusRejected, UpdatedAt: newer},
		{UserID: user.ID, LessonID: lesson.ID, Status: types.AttemptStatusStarted, UpdatedAt: older},
		{UserID: user.ID, LessonID: lesson.ID, Status: types.AttemptStatusInProgress, UpdatedAt: newer},
	}); err != nil {
		t.Fatalf("create attempts: %v", err)
	}

	found, err := repo.GetLatestActive(ctx, nil, user.ID, lesson.ID)
	if err != nil {
		t.Fatalf("get latest active: %v", err)
	}
	if found == nil {
		t.Fatalf("expected an active attempt")
	}
	if found.Status != types.AttemptStatusInProgress {
		t.Fatalf("status = %q, want freshest in_progress, never the rejected row", found.Status)
	}
}
