package course

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
)

func TestCourseRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	c := &types.Course{
		RunID:      "run-1",
		Title:      "Go",
		Slug:       "go",
		Language:   "Go",
		Focus:      "concurrency",
		CourseData: datatypes.JSON([]byte(`{"title":"Go"}`)),
	}
	saved, err := repo.Save(ctx, tx, c)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == uuid.Nil {
		t.Fatalf("Save: expected id to be assigned")
	}

	again, err := repo.Save(ctx, tx, &types.Course{
		RunID:      "run-1",
		Title:      "Other",
		Slug:       "other",
		Language:   "Go",
		Focus:      "x",
		CourseData: datatypes.JSON([]byte(`{}`)),
	})
	if err != nil {
		t.Fatalf("Save duplicate run: %v", err)
	}
	if again.ID != saved.ID || again.Title != "Go" {
		t.Fatalf("Save duplicate run: got id=%s title=%q, want original", again.ID, again.Title)
	}

	if got, err := repo.GetByRunID(ctx, tx, "run-1"); err != nil || got == nil || got.ID != saved.ID {
		t.Fatalf("GetByRunID: err=%v got=%v", err, got)
	}
	if got, err := repo.GetByRunID(ctx, tx, "missing"); err != nil || got != nil {
		t.Fatalf("GetByRunID missing: err=%v got=%v", err, got)
	}
	if rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{saved.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	if err := repo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{saved.ID}); err != nil {
		t.Fatalf("SoftDeleteByIDs: %v", err)
	}
	if rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{saved.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("after SoftDeleteByIDs GetByIDs: err=%v len=%d", err, len(rows))
	}

	seeded := testutil.SeedCourse(t, ctx, tx, "run-2")
	if got, err := repo.GetByRunID(ctx, tx, "run-2"); err != nil || got == nil || got.ID != seeded.ID {
		t.Fatalf("GetByRunID seeded: err=%v got=%v", err, got)
	}
}

func TestCourseRepoKeepsOneCoursePerExecution(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCourseRepo(db, testutil.Logger(t))

	mk := func(exec, title string) *types.Course {
		return &types.Course{
			RunID:       "run-1",
			ExecutionID: exec,
			Title:       title,
			Slug:        "go",
			Language:    "Go",
			Focus:       "concurrency",
			CourseData:  datatypes.JSON([]byte(`{}`)),
		}
	}
	first, err := repo.Save(ctx, tx, mk("exec-a", "Old"))
	if err != nil {
		t.Fatalf("Save first execution: %v", err)
	}
	second, err := repo.Save(ctx, tx, mk("exec-b", "New"))
	if err != nil {
		t.Fatalf("Save restarted execution: %v", err)
	}
	if second.ID == first.ID || second.Title != "New" {
		t.Fatalf("Save restarted execution: got id=%s title=%q, want a new course", second.ID, second.Title)
	}

	replay, err := repo.Save(ctx, tx, mk("exec-b", "Other"))
	if err != nil || replay.ID != second.ID {
		t.Fatalf("Save replayed execution: err=%v got=%v", err, replay)
	}
	if got, err := repo.GetByExecution(ctx, tx, "run-1", "exec-a"); err != nil || got == nil || got.ID != first.ID {
		t.Fatalf("GetByExecution: err=%v got=%v", err, got)
	}
}

func TestCourseRepoRequiresRunID(t *testing.T) {
	repo := NewCourseRepo(testutil.DB(t), testutil.Logger(t))
	if _, err := repo.Save(context.Background(), nil, &types.Course{}); err == nil {
		t.Fatalf("Save without run id: expected error")
	}
}
