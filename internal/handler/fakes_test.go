package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	internalmiddleware "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/middleware"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

type fakeCourses struct {
	hit     bool
	created *service.CreateCourseRequest
	err     error
}

func (f *fakeCourses) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, bool, error) {
	return []models.Course{{ID: "c1", Name: "Science"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, f.hit, f.err
}

func (f *fakeCourses) Get(ctx context.Context, id string) (*models.Course, error) {
	if id != "c1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return &models.Course{ID: "c1", Name: "Science"}, nil
}

func (f *fakeCourses) Create(ctx context.Context, req service.CreateCourseRequest) (*models.Course, error) {
	f.created = &req
	return &models.Course{ID: "c2", Name: req.Name, Fee: req.Fee}, f.err
}

func (f *fakeCourses) Update(ctx context.Context, id string, req service.UpdateCourseRequest) (*models.Course, error) {
	return &models.Course{ID: id}, f.err
}

func (f *fakeCourses) Delete(ctx context.Context, id string) error { return f.err }

func (f *fakeCourses) AddSubject(ctx context.Context, courseID string, req service.AddSubjectRequest) (*models.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Course{ID: courseID, Subjects: []models.Subject{{Name: req.Name}}}, nil
}

func (f *fakeCourses) AddResource(ctx context.Context, courseID string, req service.AddResourceRequest) (*models.Course, error) {
	return &models.Course{ID: courseID}, f.err
}

func (f *fakeCourses) AddTest(ctx context.Context, courseID string, req service.AddTestRequest) (*models.Course, error) {
	return &models.Course{ID: courseID}, f.err
}

type fakeStudents struct {
	summaryHit bool
}

func (f *fakeStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentData, *models.Pagination, error) {
	return []models.StudentData{{ID: "s1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeStudents) Get(ctx context.Context, id string) (*models.StudentData, error) {
	return &models.StudentData{ID: id, Name: "Ada"}, nil
}

func (f *fakeStudents) Create(ctx context.Context, req service.CreateStudentRequest) (*models.StudentData, error) {
	return &models.StudentData{ID: "s9", Name: req.Name, Email: req.Email}, nil
}

func (f *fakeStudents) Summary(ctx context.Context, id string) (*models.StudentSummary, bool, error) {
	return &models.StudentSummary{StudentID: id}, f.summaryHit, nil
}

func (f *fakeStudents) SetPaymentPlan(ctx context.Context, id string, req service.PaymentPlanRequest) (*models.StudentData, error) {
	return &models.StudentData{ID: id}, nil
}

func (f *fakeStudents) GrantClearance(ctx context.Context, id string) (*models.StudentData, error) {
	return &models.StudentData{ID: id, Clearance: true}, nil
}

func (f *fakeStudents) RemoveClearance(ctx context.Context, id string) (*models.StudentData, error) {
	return &models.StudentData{ID: id}, nil
}

func (f *fakeStudents) AddCharge(ctx context.Context, id string, req service.ChargeRequest) (*models.StudentData, error) {
	return &models.StudentData{ID: id, TotalOwed: req.Amount}, nil
}

type fakeEnrollments struct{}

func (fakeEnrollments) Enroll(ctx context.Context, studentID string, req service.EnrollRequest) (*models.StudentData, error) {
	return &models.StudentData{ID: studentID, Courses: []models.Course{{ID: req.CourseID}}}, nil
}

type fakeGrades struct{}

func (fakeGrades) UpdateComponent(ctx context.Context, studentID, courseID, subjectName string, req service.UpdateGradeRequest) (*service.GradeUpdateResult, error) {
	return &service.GradeUpdateResult{Subject: models.Subject{Name: subjectName, Grades: map[string]string{req.Key: req.Value}}}, nil
}

func (fakeGrades) CourseAverage(ctx context.Context, studentID, courseID string) (*models.CourseAverage, error) {
	return &models.CourseAverage{CourseID: courseID, Average: "N/A"}, nil
}

type fakePayments struct {
	card     *service.CardPaymentRequest
	recorded *service.RecordPaymentRequest
	err      error
}

func (f *fakePayments) Pay(ctx context.Context, studentID string, req service.CardPaymentRequest) (*service.PaymentResult, error) {
	f.card = &req
	if f.err != nil {
		return nil, f.err
	}
	return &service.PaymentResult{Student: &models.StudentData{ID: studentID}, Transaction: models.Transaction{Amount: req.Amount, Method: models.PaymentMethodCard}}, nil
}

func (f *fakePayments) Record(ctx context.Context, studentID string, req service.RecordPaymentRequest) (*service.PaymentResult, error) {
	f.recorded = &req
	if f.err != nil {
		return nil, f.err
	}
	return &service.PaymentResult{Student: &models.StudentData{ID: studentID}, Transaction: models.Transaction{Amount: req.Amount, Method: req.Method}}, nil
}

func (f *fakePayments) Transactions(ctx context.Context, studentID string) ([]models.Transaction, error) {
	return nil, nil
}

type fakeNotifications struct {
	broadcast *service.BroadcastRequest
}

func (f *fakeNotifications) List(ctx context.Context, studentID string) ([]models.Notification, error) {
	return []models.Notification{{ID: "n1", Read: true}, {ID: "n2"}}, nil
}

func (f *fakeNotifications) MarkRead(ctx context.Context, studentID, notificationID string) (*models.Notification, error) {
	return &models.Notification{ID: notificationID, Read: true}, nil
}

func (f *fakeNotifications) Broadcast(ctx context.Context, req service.BroadcastRequest) (*service.BroadcastResult, error) {
	f.broadcast = &req
	return &service.BroadcastResult{JobID: "job-1", NotificationID: "n-1"}, nil
}

type fakeTranscripts struct {
	file *service.TranscriptFile
	err  error
}

func (f *fakeTranscripts) Generate(ctx context.Context, studentID string, req service.TranscriptRequest) (*service.TranscriptResult, error) {
	return &service.TranscriptResult{URL: "/api/v1/exports/tok"}, nil
}

func (f *fakeTranscripts) Open(token string) (*service.TranscriptFile, error) {
	return f.file, f.err
}

// testAuth stands in for JWT verification: X-Test-Role and X-Test-User become claims.
func testAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
			UserID: c.GetHeader("X-Test-User"),
			Role:   models.UserRole(role),
		})
		c.Next()
	}
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
