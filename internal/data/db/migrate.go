package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/coursegen-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := dropStaleIndexes(db); err != nil {
		return err
	}
	return db.AutoMigrate(
		&types.Course{},
		&types.CourseRunEvent{},
	)
}

// Rows used to be unique per run id alone. AutoMigrate never reshapes an
// existing index, so the old ones go before the execution-scoped ones are built.
func dropStaleIndexes(db *gorm.DB) error {
	m := db.Migrator()
	if m.HasTable(&types.Course{}) && m.HasIndex(&types.Course{}, "idx_course_run_id") {
		if err := m.DropIndex(&types.Course{}, "idx_course_run_id"); err != nil {
			return fmt.Errorf("drop idx_course_run_id: %w", err)
		}
	}
	if m.HasTable(&types.CourseRunEvent{}) && m.HasIndex(&types.CourseRunEvent{}, "idx_course_run_event_seq") &&
		!m.HasColumn(&types.CourseRunEvent{}, "execution_id") {
		if err := m.DropIndex(&types.CourseRunEvent{}, "idx_course_run_event_seq"); err != nil {
			return fmt.Errorf("drop idx_course_run_event_seq: %w", err)
		}
	}
	return nil
}
