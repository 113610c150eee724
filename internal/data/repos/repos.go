package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos/course"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type CourseRepo = course.CourseRepo
type RunEventRepo = course.RunEventRepo

type Repos struct {
	Course    CourseRepo
	RunEvents RunEventRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Course:    course.NewCourseRepo(db, log),
		RunEvents: course.NewRunEventRepo(db, log),
	}
}
