package handler

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
)

func buildTestRouter(payments *fakePayments, transcripts *fakeTranscripts) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Courses:       NewCourseHandler(&fakeCourses{}),
		Students:      NewStudentHandler(&fakeStudents{}),
		Enrollments:   NewEnrollmentHandler(fakeEnrollments{}),
		Grades:        NewGradeHandler(fakeGrades{}),
		Payments:      NewPaymentHandler(payments),
		Notifications: NewNotificationHandler(&fakeNotifications{}),
		Transcripts:   NewTranscriptHandler(transcripts),
		Metrics:       NewMetricsHandler(service.NewMetricsService(), nil),
	}, testAuth())
	return router
}

func TestRoutesAccessControl(t *testing.T) {
	router := buildTestRouter(&fakePayments{}, &fakeTranscripts{})

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		role   models.UserRole
		user   string
		want   int
	}{
		{"courses need a token", http.MethodGet, "/api/v1/courses", "", "", "", http.StatusUnauthorized},
		{"any role lists courses", http.MethodGet, "/api/v1/courses", "", models.RoleStudent, "s1", http.StatusOK},
		{"teacher cannot create course", http.MethodPost, "/api/v1/courses", `{"name":"Art"}`, models.RoleTeacher, "t1", http.StatusForbidden},
		{"admin creates course", http.MethodPost, "/api/v1/courses", `{"name":"Art"}`, models.RoleAdmin, "a1", http.StatusCreated},
		{"teacher adds subject", http.MethodPost, "/api/v1/courses/c1/subjects", `{"name":"Drawing"}`, models.RoleTeacher, "t1", http.StatusCreated},
		{"student cannot list students", http.MethodGet, "/api/v1/students", "", models.RoleStudent, "s1", http.StatusForbidden},
		{"student reads own summary", http.MethodGet, "/api/v1/students/s1/summary", "", models.RoleStudent, "s1", http.StatusOK},
		{"student cannot read another summary", http.MethodGet, "/api/v1/students/s2/summary", "", models.RoleStudent, "s1", http.StatusForbidden},
		{"teacher reads summary", http.MethodGet, "/api/v1/students/s2/summary", "", models.RoleTeacher, "t1", http.StatusOK},
		{"student enrolls self", http.MethodPost, "/api/v1/students/s1/enrollments", `{"courseId":"c1"}`, models.RoleStudent, "s1", http.StatusCreated},
		{"teacher cannot enroll", http.MethodPost, "/api/v1/students/s1/enrollments", `{"courseId":"c1"}`, models.RoleTeacher, "t1", http.StatusForbidden},
		{"student cannot grade self", http.MethodPut, "/api/v1/students/s1/courses/c1/subjects/Physics/grades", `{"key":"exam","value":"90"}`, models.RoleStudent, "s1", http.StatusForbidden},
		{"teacher grades", http.MethodPut, "/api/v1/students/s1/courses/c1/subjects/Physics/grades", `{"key":"exam","value":"90"}`, models.RoleTeacher, "t1", http.StatusOK},
		{"teacher cannot take payments", http.MethodPost, "/api/v1/students/s1/payments", `{"amount":10}`, models.RoleTeacher, "t1", http.StatusForbidden},
		{"teacher cannot see transactions", http.MethodGet, "/api/v1/students/s1/transactions", "", models.RoleTeacher, "t1", http.StatusForbidden},
		{"admin cannot set payment plan", http.MethodPut, "/api/v1/students/s1/payment-plan", `{"installments":[{"amount":10}]}`, models.RoleAdmin, "a1", http.StatusForbidden},
		{"accounts sets payment plan", http.MethodPut, "/api/v1/students/s1/payment-plan", `{"installments":[{"amount":10}]}`, models.RoleAccountsAdmin, "f1", http.StatusOK},
		{"admin grants clearance", http.MethodPost, "/api/v1/students/s1/clearance", "", models.RoleAdmin, "a1", http.StatusOK},
		{"admin cannot mark read for student", http.MethodPatch, "/api/v1/students/s1/notifications/n1/read", "", models.RoleAdmin, "a1", http.StatusForbidden},
		{"student marks own notification", http.MethodPatch, "/api/v1/students/s1/notifications/n1/read", "", models.RoleStudent, "s1", http.StatusOK},
		{"teacher cannot broadcast", http.MethodPost, "/api/v1/notifications/broadcast", `{"message":"hi"}`, models.RoleTeacher, "t1", http.StatusForbidden},
		{"admin broadcasts", http.MethodPost, "/api/v1/notifications/broadcast", `{"message":"hi"}`, models.RoleAdmin, "a1", http.StatusAccepted},
		{"admin metrics", http.MethodGet, "/api/v1/admin/metrics", "", models.RoleAdmin, "a1", http.StatusOK},
		{"student cannot read admin metrics", http.MethodGet, "/api/v1/admin/metrics", "", models.RoleStudent, "s1", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = bytes.NewBufferString(tc.body)
			}
			req, _ := http.NewRequest(tc.method, tc.path, body)
			req.Header.Set("Content-Type", "application/json")
			if tc.role != "" {
				req.Header.Set("X-Test-Role", string(tc.role))
				req.Header.Set("X-Test-User", tc.user)
			}
			resp := performRequest(router, req)
			require.Equal(t, tc.want, resp.Code, resp.Body.String())
		})
	}
}

func TestRoutesExportsArePublic(t *testing.T) {
	transcripts := &fakeTranscripts{file: &service.TranscriptFile{
		Body:        io.NopCloser(strings.NewReader("a,b\n")),
		Size:        4,
		Filename:    "transcript-s1.csv",
		ContentType: "text/csv",
	}}
	router := buildTestRouter(&fakePayments{}, transcripts)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/exports/signed-token", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "a,b\n", resp.Body.String())
}
