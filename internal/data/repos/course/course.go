package course

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type CourseRepo interface {
	// Save inserts the course for its run execution. An execution that
	// already has a course keeps it, and that stored course is returned.
	Save(ctx context.Context, tx *gorm.DB, c *types.Course) (*types.Course, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error)
	// GetByRunID returns the most recently saved course for the run id.
	GetByRunID(ctx context.Context, tx *gorm.DB, runID string) (*types.Course, error)
	GetByExecution(ctx context.Context, tx *gorm.DB, runID, executionID string) (*types.Course, error)
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Save(ctx context.Context, tx *gorm.DB, c *types.Course) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if c == nil || c.RunID == "" {
		return nil, fmt.Errorf("course with run id required")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "execution_id"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		return c, nil
	}
	r.log.Info("course already saved for run", "run_id", c.RunID, "execution_id", c.ExecutionID)
	existing, err := r.GetByExecution(ctx, transaction, c.RunID, c.ExecutionID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("course for run %s (%s) vanished", c.RunID, c.ExecutionID)
	}
	return existing, nil
}

func (r *courseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Course
	if len(courseIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) GetByRunID(ctx context.Context, tx *gorm.DB, runID string) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if runID == "" {
		return nil, nil
	}
	var c types.Course
	err := transaction.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at DESC").
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *courseRepo) GetByExecution(ctx context.Context, tx *gorm.DB, runID, executionID string) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if runID == "" {
		return nil, nil
	}
	var c types.Course
	err := transaction.WithContext(ctx).
		Where("run_id = ? AND execution_id = ?", runID, executionID).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *courseRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(courseIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id IN ?", courseIDs).
		Delete(&types.Course{}).Error
}
