package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/grading"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

// CreateCourseRequest is the payload for adding a catalog course.
type CreateCourseRequest struct {
	Name string  `json:"name" validate:"required,max=200"`
	Fee  float64 `json:"fee" validate:"gte=0"`
}

// UpdateCourseRequest patches a course; nil fields are left alone.
type UpdateCourseRequest struct {
	Name *string  `json:"name" validate:"omitempty,max=200"`
	Fee  *float64 `json:"fee" validate:"omitempty,gte=0"`
}

// AddSubjectRequest names a new subject.
type AddSubjectRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// AddResourceRequest attaches a learning resource.
type AddResourceRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	URL   string `json:"url" validate:"required,url"`
	Kind  string `json:"kind" validate:"omitempty,oneof=link video document"`
}

// AddTestRequest schedules an assessment.
type AddTestRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Date        *time.Time `json:"date"`
	Description string     `json:"description" validate:"max=2000"`
}

type courseListing struct {
	Courses []models.Course `json:"courses"`
	Total   int             `json:"total"`
}

// CourseService manages the course catalog. Enrolled copies on students are never
// touched by catalog edits.
type CourseService struct {
	repo      CourseStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo CourseStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns one page of the catalog. The boolean reports a cache hit.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, bool, error) {
	page := pagination(filter.Page, filter.PageSize, 0)
	key := CourseListKey(filter.Search, page.Page, page.PageSize)

	var cached courseListing
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		page.TotalCount = cached.Total
		return cached.Courses, page, true, nil
	}

	start := time.Now()
	courses, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveStore(collectionCourses, "list", time.Since(start))
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page.TotalCount = total
	_ = s.cache.Set(ctx, key, courseListing{Courses: courses, Total: total}, 0)
	return courses, page, false, nil
}

// Get returns a catalog course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	start := time.Now()
	course, err := s.repo.FindByID(ctx, id)
	s.metrics.ObserveStore(collectionCourses, "find", time.Since(start))
	if err != nil {
		return nil, storeReadError(err, "course")
	}
	return course, nil
}

// Create adds a catalog course with no subjects.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	req.Name = plainText(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	course := &models.Course{
		Name:      req.Name,
		Fee:       req.Fee,
		Subjects:  []models.Subject{},
		Resources: []models.Resource{},
		Tests:     []models.Test{},
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.cache.InvalidateCourses(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.Float64("fee", course.Fee))
	return course, nil
}

// Update renames a course or changes its fee. Students already enrolled keep the
// fee they were charged.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if req.Name != nil {
		name := plainText(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course name cannot be empty")
		}
		req.Name = &name
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	return s.mutate(ctx, id, func(course *models.Course) error {
		if req.Name != nil {
			course.Name = *req.Name
		}
		if req.Fee != nil {
			course.Fee = *req.Fee
		}
		return nil
	})
}

// Delete removes a catalog course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeReadError(err, "course")
	}
	s.cache.InvalidateCourses(ctx)
	return nil
}

// AddSubject appends an empty subject; names are unique within a course ignoring case.
func (s *CourseService) AddSubject(ctx context.Context, courseID string, req AddSubjectRequest) (*models.Course, error) {
	req.Name = plainText(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		if course.SubjectIndex(req.Name) >= 0 {
			return appErrors.Clone(appErrors.ErrDuplicateSubject, fmt.Sprintf("subject %q already exists in %s", req.Name, course.Name))
		}
		*course = grading.AddSubject(*course, req.Name)
		return nil
	})
}

// AddResource attaches a learning resource to the course.
func (s *CourseService) AddResource(ctx context.Context, courseID string, req AddResourceRequest) (*models.Course, error) {
	req.Title = plainText(req.Title)
	req.URL = strings.TrimSpace(req.URL)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid resource payload")
	}
	if req.Kind == "" {
		req.Kind = "link"
	}
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		course.Resources = append(course.Resources, models.Resource{
			ID:    uuid.NewString(),
			Title: req.Title,
			URL:   req.URL,
			Kind:  req.Kind,
		})
		return nil
	})
}

// AddTest schedules a test for the course.
func (s *CourseService) AddTest(ctx context.Context, courseID string, req AddTestRequest) (*models.Course, error) {
	req.Title = plainText(req.Title)
	req.Description = plainText(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid test payload")
	}
	var date *time.Time
	if req.Date != nil {
		d := req.Date.UTC()
		date = &d
	}
	return s.mutate(ctx, courseID, func(course *models.Course) error {
		course.Tests = append(course.Tests, models.Test{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Date:        date,
			Description: req.Description,
		})
		return nil
	})
}

func (s *CourseService) mutate(ctx context.Context, id string, apply func(*models.Course) error) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(course); err != nil {
		return nil, err
	}
	start := time.Now()
	err = s.repo.Save(ctx, course)
	s.metrics.ObserveStore(collectionCourses, "save", time.Since(start))
	if err != nil {
		if isStale(err) {
			s.metrics.RecordStaleWrite()
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "course was modified by another request; reload and retry")
		}
		return nil, storeWriteError(err, "course")
	}
	s.cache.InvalidateCourses(ctx)
	return course, nil
}
