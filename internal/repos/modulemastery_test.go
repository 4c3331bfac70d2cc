package repos

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/pylearnhq/pylearn-backend/internal/repos/testutil"
	"github.com/pylearnhq/pylearn-backend/internal/types"
)

func TestModuleMasteryRepo_SaveAndReload(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewModuleMasteryRepo(tx, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, fmt.Sprintf("mastery-%s@example.com", uuid.New().String()[:8]))
	course := testutil.SeedCourse(t, ctx, tx, 0)
	module := testutil.SeedModule(t, ctx, tx, course.ID, 0)

	missing, err := repo.GetByUserAndModule(ctx, nil, user.ID, module.ID)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing record, got %+v", missing)
	}

	record := &types.ModuleMastery{
		UserID:              user.ID,
		ModuleID:            module.ID,
		AverageQuizScore:    85,
		LessonsCompleted:    2,
		ChallengesPassed:    2,
		MasteryThresholdMet: true,
	}
	if err := repo.Save(ctx, nil, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := repo.GetByUserAndModule(ctx, nil, user.ID, module.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded == nil || reloaded.AverageQuizScore != 85 || !reloaded.MasteryThresholdMet {
		t.Fatalf("reloaded = %+v", reloaded)
	}

	reloaded.AverageQuizScore = 40
	reloaded.MasteryThresholdMet = false
	if err := repo.Save(ctx, nil, reloaded); err != nil {
		t.Fatalf("update: %v", err)
	}
	final, err := repo.GetByUserAndModule(ctx, nil, user.ID, module.ID)
	if err != nil {
		t.Fatalf("reload after update: %v", err)
	}
	if final.ID != reloaded.ID || final.AverageQuizScore != 40 {
		t.Fatalf("update must keep the row: %+v", final)
	}
}
