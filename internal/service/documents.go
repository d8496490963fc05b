package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/repository"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

// StudentStore persists whole student documents under optimistic versioning.
type StudentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentData, int, error)
	ListIDs(ctx context.Context) ([]string, error)
	FindByID(ctx context.Context, id string) (*models.StudentData, error)
	Create(ctx context.Context, student *models.StudentData) error
	Save(ctx context.Context, student *models.StudentData) error
}

// CourseStore persists catalog courses.
type CourseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Save(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

const (
	collectionStudents = "students"
	collectionCourses  = "courses"
)

// studentDocuments is the load/save cycle shared by every service that mutates a
// student document: read the sanitised state, apply a transition, save it back
// under the version that was read.
type studentDocuments struct {
	store   StudentStore
	metrics *MetricsService
	cache   *CacheService
	logger  *zap.Logger
}

func (d studentDocuments) load(ctx context.Context, id string) (*models.StudentData, error) {
	start := time.Now()
	student, err := d.store.FindByID(ctx, id)
	d.metrics.ObserveStore(collectionStudents, "find", time.Since(start))
	if err != nil {
		return nil, storeReadError(err, "student")
	}
	return student, nil
}

// save persists next. A stale version is a conflict the caller can retry; any
// other failure means the computed state was lost and is logged in full.
func (d studentDocuments) save(ctx context.Context, next *models.StudentData) error {
	start := time.Now()
	err := d.store.Save(ctx, next)
	d.metrics.ObserveStore(collectionStudents, "save", time.Since(start))
	if err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			d.metrics.RecordStaleWrite()
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "student was modified by another request; reload and retry")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		d.logger.Error("student state computed but not saved",
			zap.String("student_id", next.ID),
			zap.Int64("version", next.Version),
			zap.Float64("total_owed", next.TotalOwed),
			zap.Float64("total_paid", next.TotalPaid),
			zap.String("payment_status", string(next.PaymentStatus)),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrNotPersisted.Code, appErrors.ErrNotPersisted.Status, appErrors.ErrNotPersisted.Message)
	}
	d.cache.InvalidateStudent(ctx, next.ID)
	return nil
}

// update runs one read-apply-save cycle. apply receives a copy and must not
// perform I/O.
func (d studentDocuments) update(ctx context.Context, id string, apply func(models.StudentData) (models.StudentData, error)) (*models.StudentData, error) {
	student, err := d.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := apply(*student)
	if err != nil {
		return nil, err
	}
	if err := d.save(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func storeReadError(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", what))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s", what))
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func pagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func isStale(err error) bool {
	return errors.Is(err, repository.ErrStaleWrite)
}

func storeWriteError(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", what))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to save %s", what))
}
