package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/coursegen-backend/internal/domain"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, runID string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:         uuid.New(),
		RunID:      runID,
		Title:      "Go Concurrency",
		Slug:       "go-concurrency",
		Language:   "Go",
		Focus:      "concurrency",
		CourseData: datatypes.JSON([]byte(`{"title":"Go Concurrency","slug":"go-concurrency","modules":[]}`)),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}
