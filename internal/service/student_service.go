package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/billing"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/grading"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

// CreateStudentRequest registers a student document.
type CreateStudentRequest struct {
	ID    string `json:"id" validate:"omitempty,max=128"`
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

// PaymentPlanRequest replaces a student's installment plan.
type PaymentPlanRequest struct {
	Installments []InstallmentRequest `json:"installments" validate:"required,min=1,max=24,dive"`
}

// InstallmentRequest is one planned installment.
type InstallmentRequest struct {
	Amount  float64    `json:"amount" validate:"gt=0"`
	DueDate *time.Time `json:"dueDate"`
}

// ChargeRequest raises what a student owes.
type ChargeRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
	Reason string  `json:"reason" validate:"required,max=500"`
}

// StudentService serves student documents and the administrative ledger edits.
type StudentService struct {
	docs      studentDocuments
	ledger    billing.Ledger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo StudentStore, ledger billing.Ledger, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		docs:      studentDocuments{store: repo, metrics: metrics, cache: cache, logger: logger},
		ledger:    ledger,
		validator: validate,
		logger:    logger,
	}
}

// List returns one page of students.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentData, *models.Pagination, error) {
	start := time.Now()
	students, total, err := s.docs.store.List(ctx, filter)
	s.docs.metrics.ObserveStore(collectionStudents, "list", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one student document.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentData, error) {
	return s.docs.load(ctx, id)
}

// Create registers a student with an empty ledger. The id is normally the identity
// provider's user id so tokens map straight onto documents.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentData, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Name = plainText(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	student := &models.StudentData{
		ID:            req.ID,
		Name:          req.Name,
		Email:         req.Email,
		Courses:       []models.Course{},
		PaymentStatus: models.PaymentStatusUnpaid,
		Transactions:  []models.Transaction{},
		Notifications: []models.Notification{},
	}
	if err := s.docs.store.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID))
	return student, nil
}

// Summary is the dashboard view: per-course averages and ledger standing. The
// boolean reports a cache hit.
func (s *StudentService) Summary(ctx context.Context, id string) (*models.StudentSummary, bool, error) {
	key := StudentSummaryKey(id)
	var cached models.StudentSummary
	if hit, _ := s.docs.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	student, err := s.docs.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	summary := BuildSummary(*student)
	_ = s.docs.cache.Set(ctx, key, summary, 0)
	return &summary, false, nil
}

// BuildSummary derives the dashboard view of a student document.
func BuildSummary(student models.StudentData) models.StudentSummary {
	courses := make([]models.CourseAverage, 0, len(student.Courses))
	for _, c := range student.Courses {
		courses = append(courses, models.CourseAverage{
			CourseID:   c.ID,
			CourseName: c.Name,
			Average:    grading.CourseAverage(c.Subjects),
		})
	}
	return models.StudentSummary{
		StudentID:           student.ID,
		Name:                student.Name,
		Courses:             courses,
		TotalOwed:           student.TotalOwed,
		TotalPaid:           student.TotalPaid,
		Balance:             student.Balance,
		PaymentStatus:       student.PaymentStatus,
		Clearance:           student.Clearance,
		UnreadNotifications: student.UnreadNotifications(),
	}
}

// SetPaymentPlan replaces the installment plan. Existing payments are not
// re-allocated; the plan applies to payments from now on.
func (s *StudentService) SetPaymentPlan(ctx context.Context, id string, req PaymentPlanRequest) (*models.StudentData, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid payment plan")
	}
	installments := make([]models.Installment, 0, len(req.Installments))
	for _, inst := range req.Installments {
		var due *time.Time
		if inst.DueDate != nil {
			d := inst.DueDate.UTC()
			due = &d
		}
		installments = append(installments, models.Installment{Amount: inst.Amount, DueDate: due})
	}
	return s.docs.update(ctx, id, func(student models.StudentData) (models.StudentData, error) {
		return billing.SetPaymentPlan(student, installments)
	})
}

// GrantClearance opens institutional services to the student.
func (s *StudentService) GrantClearance(ctx context.Context, id string) (*models.StudentData, error) {
	return s.setClearance(ctx, id, true)
}

// RemoveClearance withdraws clearance. Payments never do this on their own.
func (s *StudentService) RemoveClearance(ctx context.Context, id string) (*models.StudentData, error) {
	return s.setClearance(ctx, id, false)
}

func (s *StudentService) setClearance(ctx context.Context, id string, granted bool) (*models.StudentData, error) {
	return s.docs.update(ctx, id, func(student models.StudentData) (models.StudentData, error) {
		next := billing.SetClearance(student, granted)
		if granted {
			next = s.ledger.Notify(next, "Your clearance has been granted.")
		} else {
			next = s.ledger.Notify(next, "Your clearance has been removed. Contact the accounts office.")
		}
		return next, nil
	})
}

// AddCharge raises the amount owed, for example a late fee or a correction.
func (s *StudentService) AddCharge(ctx context.Context, id string, req ChargeRequest) (*models.StudentData, error) {
	req.Reason = plainText(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid charge")
	}
	return s.docs.update(ctx, id, func(student models.StudentData) (models.StudentData, error) {
		next, err := s.ledger.AddCharge(student, req.Amount)
		if err != nil {
			return student, err
		}
		return s.ledger.Notify(next, "A charge was added to your account: "+req.Reason), nil
	})
}
