package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/billing"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

func TestEnrollmentServiceEnroll(t *testing.T) {
	courses := newFakeCourseStore(models.Course{
		ID:   "c1",
		Name: "Science",
		Fee:  1000,
		Subjects: []models.Subject{
			{Name: "Physics", Grades: map[string]string{"C1": "90"}, Comments: "catalog note"},
		},
	})
	students := newFakeStudentStore(models.StudentData{ID: "s1", Name: "Ann"})
	courseSvc := newTestCourseService(courses, nil)
	svc := NewEnrollmentService(students, courseSvc, billing.Ledger{}, nil, nil, nil)

	student, err := svc.Enroll(context.Background(), "s1", EnrollRequest{CourseID: "c1"})
	require.NoError(t, err)
	require.Len(t, student.Courses, 1)
	assert.Equal(t, 1000.0, student.TotalOwed)
	assert.Equal(t, 1000.0, student.Balance)
	assert.Equal(t, models.PaymentStatusPartial, student.PaymentStatus)
	assert.Empty(t, student.Courses[0].Subjects[0].Grades)
	assert.Empty(t, student.Courses[0].Subjects[0].Comments)
	require.Len(t, student.Notifications, 1)
	assert.Contains(t, student.Notifications[0].Message, "Science")

	_, err = svc.Enroll(context.Background(), "s1", EnrollRequest{CourseID: "c1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyEnrolled))
	assert.Len(t, students.get("s1").Courses, 1)
}

func TestEnrollmentServiceCopyIsIndependent(t *testing.T) {
	courses := newFakeCourseStore(models.Course{ID: "c1", Name: "Science", Subjects: []models.Subject{{Name: "Physics"}}})
	students := newFakeStudentStore(models.StudentData{ID: "s1"})
	courseSvc := newTestCourseService(courses, nil)
	svc := NewEnrollmentService(students, courseSvc, billing.Ledger{}, nil, nil, nil)

	_, err := svc.Enroll(context.Background(), "s1", EnrollRequest{CourseID: "c1"})
	require.NoError(t, err)

	_, err = courseSvc.AddSubject(context.Background(), "c1", AddSubjectRequest{Name: "Biology"})
	require.NoError(t, err)

	enrolled := students.get("s1").Courses[0]
	assert.Len(t, enrolled.Subjects, 1)
}

func TestEnrollmentServiceUnknownCourse(t *testing.T) {
	students := newFakeStudentStore(models.StudentData{ID: "s1"})
	svc := NewEnrollmentService(students, newTestCourseService(newFakeCourseStore(), nil), billing.Ledger{}, nil, nil, nil)

	_, err := svc.Enroll(context.Background(), "s1", EnrollRequest{CourseID: "nope"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
