package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/billing"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

// EnrollRequest names the catalog course to enroll in.
type EnrollRequest struct {
	CourseID string `json:"courseId"`
}

// EnrollmentService copies catalog courses onto students and charges their fee.
type EnrollmentService struct {
	docs    studentDocuments
	courses *CourseService
	ledger  billing.Ledger
	logger  *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(students StudentStore, courses *CourseService, ledger billing.Ledger, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		docs:    studentDocuments{store: students, metrics: metrics, cache: cache, logger: logger},
		courses: courses,
		ledger:  ledger,
		logger:  logger,
	}
}

// Enroll snapshots the course's current subject list onto the student. Later
// catalog edits do not reach the copy.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID string, req EnrollRequest) (*models.StudentData, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if req.CourseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}
	course, err := s.courses.Get(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	student, err := s.docs.update(ctx, studentID, func(student models.StudentData) (models.StudentData, error) {
		next, err := s.ledger.Enroll(student, *course)
		if err != nil {
			return student, err
		}
		msg := fmt.Sprintf("You are enrolled in %s. JMD %.2f was added to your balance.", course.Name, course.Fee)
		return s.ledger.Notify(next, msg), nil
	})
	if err != nil {
		return nil, err
	}
	s.docs.metrics.RecordNotification("enrollment")
	s.logger.Info("student enrolled",
		zap.String("student_id", studentID),
		zap.String("course_id", course.ID),
		zap.Float64("fee", course.Fee),
	)
	return student, nil
}
