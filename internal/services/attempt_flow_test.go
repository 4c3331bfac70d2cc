package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/pylearnhq/pylearn-backend/internal/repos/testutil"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

func TestAttemptStartAndHeartbeat(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	module := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, stack.tx, module.ID, 0, 3)

	attempt, err := stack.attempt.Start(ctx, user.ID, lesson.ID, 0, map[string]interface{}{"client": "web"})
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if attempt.Status != types.AttemptStatusStarted {
		t.Fatalf("status = %q, want started", attempt.Status)
	}

	meta := decodeAttemptMetadata(attempt.Metadata)
	if metadataInt(meta, "heartbeat_count") != 0 || metadataInt(meta, "engaged_heartbeat_count") != 0 {
		t.Fatalf("fresh attempt counters not zeroed: %v", meta)
	}
	if meta["client"] != "web" {
		t.Fatalf("caller metadata lost: %v", meta)
	}

	// Two pings in quick succession: both raw heartbeats count, only the
	// first clears the debounce.
	updated, err := stack.attempt.Heartbeat(ctx, user.ID, lesson.ID, attempt.ID, 30, nil)
	if err != nil {
		t.Fatalf("first heartbeat: %v", err)
	}
	updated, err = stack.attempt.Heartbeat(ctx, user.ID, lesson.ID, attempt.ID, 10, nil)
	if err != nil {
		t.Fatalf("second heartbeat: %v", err)
	}

	meta = decodeAttemptMetadata(updated.Metadata)
	if got := metadataInt(meta, "heartbeat_count"); got != 2 {
		t.Fatalf("heartbeat_count = %d, want 2", got)
	}
	if got := metadataInt(meta, "engaged_heartbeat_count"); got != 1 {
		t.Fatalf("engaged_heartbeat_count = %d, want 1", got)
	}
	if updated.Status != types.AttemptStatusInProgress {
		t.Fatalf("status = %q, want in_progress", updated.Status)
	}
	if updated.DwellSeconds != 30 {
		t.Fatalf("dwell = %d, want stored maximum 30", updated.DwellSeconds)
	}
}

func TestAttemptHeartbeat_WrongOwner(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	intruder := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	course := testutil.SeedCourse(t, ctx, stack.tx, 0)
	module := testutil.SeedModule(t, ctx, stack.tx, course.ID, 0)
	lesson := testutil.SeedLesson(t, ctx, stack.tx, module.ID, 0, 3)

	attempt, err := stack.attempt.Start(ctx, owner.ID, lesson.ID, 0, nil)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	_, err = stack.attempt.Heartbeat(ctx, intruder.ID, lesson.ID, attempt.ID, 10, nil)
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusNotFound {
		t.Fatalf("got status %d, want 404 for foreign attempt", apiErr.Status)
	}
}

func TestAttemptStart_UnknownLesson(t *testing.T) {
	stack := newServiceStack(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, stack.tx, uniqueEmail())
	_, err := stack.attempt.Start(ctx, user.ID, uuid.New(), 0, nil)
	apiErr := asAPIError(t, err)
	if apiErr.Status != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", apiErr.Status)
	}
}
