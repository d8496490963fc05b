package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

func gradedStudent() models.StudentData {
	return models.StudentData{
		ID: "s1",
		Courses: []models.Course{{
			ID:   "c1",
			Name: "Science",
			Subjects: []models.Subject{
				{Name: "Physics", Grades: map[string]string{"C1": "80", "C2": "90"}},
				{Name: "Chemistry", Grades: map[string]string{"final": "70.00"}},
			},
		}},
	}
}

func TestGradeServiceUpdateComponentDerivesFinal(t *testing.T) {
	store := newFakeStudentStore(gradedStudent())
	svc := NewGradeService(store, nil, nil, nil)

	result, err := svc.UpdateComponent(context.Background(), "s1", "c1", "physics", UpdateGradeRequest{Key: "exam", Value: "70"})
	require.NoError(t, err)
	final, ok := result.Subject.Final()
	require.True(t, ok)
	// mean(80, 90) * 0.4 + 70 * 0.6
	assert.Equal(t, "76.00", final)
	assert.Empty(t, result.Advisories)

	saved := store.get("s1").Courses[0].Subjects[0]
	assert.Equal(t, "76.00", saved.Grades["final"])
}

func TestGradeServiceUnparsableIsAdvisory(t *testing.T) {
	store := newFakeStudentStore(gradedStudent())
	metrics := NewMetricsService()
	svc := NewGradeService(store, nil, metrics, nil)

	result, err := svc.UpdateComponent(context.Background(), "s1", "c1", "Physics", UpdateGradeRequest{Key: "C3", Value: "absent"})
	require.NoError(t, err)
	require.Len(t, result.Advisories, 1)
	assert.Equal(t, "C3", result.Advisories[0].Component)
	_, hasFinal := result.Subject.Final()
	assert.False(t, hasFinal, "no exam yet, final stays absent")
}

func TestGradeServiceCommentsAreSanitised(t *testing.T) {
	store := newFakeStudentStore(gradedStudent())
	svc := NewGradeService(store, nil, nil, nil)

	result, err := svc.UpdateComponent(context.Background(), "s1", "c1", "Physics", UpdateGradeRequest{Key: "comments", Value: "<script>x</script>Good effort"})
	require.NoError(t, err)
	assert.Equal(t, "Good effort", result.Subject.Comments)
	_, hasFinal := result.Subject.Final()
	assert.False(t, hasFinal)
}

func TestGradeServiceFinalIsNotWritable(t *testing.T) {
	store := newFakeStudentStore(gradedStudent())
	svc := NewGradeService(store, nil, nil, nil)

	result, err := svc.UpdateComponent(context.Background(), "s1", "c1", "Chemistry", UpdateGradeRequest{Key: "final", Value: "100"})
	require.NoError(t, err)
	assert.Equal(t, "70.00", result.Subject.Grades["final"])
}

func TestGradeServiceNotEnrolled(t *testing.T) {
	store := newFakeStudentStore(gradedStudent())
	svc := NewGradeService(store, nil, nil, nil)

	_, err := svc.UpdateComponent(context.Background(), "s1", "c9", "Physics", UpdateGradeRequest{Key: "exam", Value: "70"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.UpdateComponent(context.Background(), "s1", "c1", "Biology", UpdateGradeRequest{Key: "exam", Value: "70"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.UpdateComponent(context.Background(), "s1", "c1", "Physics", UpdateGradeRequest{Key: " "})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestGradeServiceCourseAverage(t *testing.T) {
	store := newFakeStudentStore(gradedStudent())
	svc := NewGradeService(store, nil, nil, nil)

	avg, err := svc.CourseAverage(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "70.00", avg.Average)
}

func TestGradeServiceRecalculate(t *testing.T) {
	student := gradedStudent()
	student.Courses[0].Subjects[0].Grades["exam"] = "70"
	student.Courses[0].Subjects[0].Grades["final"] = "1.00"
	store := newFakeStudentStore(student)
	svc := NewGradeService(store, nil, nil, nil)

	result, err := svc.Recalculate(context.Background(), "s1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Subjects)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, "1.00", store.get("s1").Courses[0].Subjects[0].Grades["final"])

	_, err = svc.Recalculate(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.Equal(t, "76.00", store.get("s1").Courses[0].Subjects[0].Grades["final"])
	assert.Equal(t, "70.00", store.get("s1").Courses[0].Subjects[1].Grades["final"])
}
