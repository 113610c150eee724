package domain

import "github.com/yungbote/coursegen-backend/internal/domain/course"

type Course = course.Course
type CourseRunEvent = course.CourseRunEvent
