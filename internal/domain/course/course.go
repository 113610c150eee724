package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course is a persisted, validated course. CourseData holds the full course
// document exactly as it passed validation. A run id that was restarted has
// one course per execution.
type Course struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunID       string         `gorm:"column:run_id;not null;uniqueIndex:idx_course_run_execution" json:"run_id"`
	ExecutionID string         `gorm:"column:execution_id;not null;default:'';uniqueIndex:idx_course_run_execution" json:"execution_id,omitempty"`
	RequesterID string         `gorm:"column:requester_id;index" json:"requester_id,omitempty"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Slug        string         `gorm:"column:slug;not null;index" json:"slug"`
	Language    string         `gorm:"column:language;not null" json:"language"`
	Focus       string         `gorm:"column:focus;not null" json:"focus"`
	CourseData  datatypes.JSON `gorm:"type:jsonb;column:course_data;not null" json:"course_data"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

// CourseRunEvent is the append-only ledger of run transitions.
// (RunID, ExecutionID, Seq) is unique, so a replayed projection is a no-op
// while a restarted run id starts a fresh sequence.
type CourseRunEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunID       string         `gorm:"column:run_id;not null;uniqueIndex:idx_course_run_event_seq" json:"run_id"`
	ExecutionID string         `gorm:"column:execution_id;not null;default:'';uniqueIndex:idx_course_run_event_seq" json:"execution_id,omitempty"`
	Seq         int            `gorm:"column:seq;not null;uniqueIndex:idx_course_run_event_seq" json:"seq"`
	Kind        string         `gorm:"column:kind;not null;index" json:"kind"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Message     string         `gorm:"column:message;type:text" json:"message,omitempty"`
	Data        datatypes.JSON `gorm:"type:jsonb;column:data" json:"data,omitempty"`
	At          time.Time      `gorm:"column:at;not null" json:"at"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
}

func (CourseRunEvent) TableName() string { return "course_run_event" }
