package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
)

func TestUpdateComponentGradeComputesFinal(t *testing.T) {
	subject := models.Subject{Name: "Math", Grades: map[string]string{"C1": "80", "C2": "90"}}

	next, advisories := UpdateComponentGrade(subject, "exam", "70")

	assert.Empty(t, advisories)
	assert.Equal(t, "76.00", next.Grades["final"])
	assert.Equal(t, "70", next.Grades["exam"])
	_, touched := subject.Grades["exam"]
	assert.False(t, touched, "input subject must not be mutated")
}

func TestUpdateComponentGradeWithoutExamKeepsFinal(t *testing.T) {
	unset := models.Subject{Name: "Math", Grades: map[string]string{"C1": "80"}}
	next, _ := UpdateComponentGrade(unset, "C2", "90")
	_, ok := next.Grades["final"]
	assert.False(t, ok)

	prior := models.Subject{Name: "Math", Grades: map[string]string{"C1": "80", "final": "55.00"}}
	next, _ = UpdateComponentGrade(prior, "C2", "90")
	assert.Equal(t, "55.00", next.Grades["final"])
}

func TestUpdateComponentGradeSkipsUnparsableClasswork(t *testing.T) {
	subject := models.Subject{Name: "Math", Grades: map[string]string{"C1": "abc", "C2": "90", "exam": "70"}}

	next, advisories := UpdateComponentGrade(subject, "C3", "")

	// 90*0.4 + 70*0.6
	assert.Equal(t, "78.00", next.Grades["final"])
	require.Len(t, advisories, 1)
	assert.Equal(t, "C1", advisories[0].Component)
}

func TestUpdateComponentGradeNoParsableClassworkKeepsFinal(t *testing.T) {
	subject := models.Subject{Name: "Math", Grades: map[string]string{"C1": "n/a", "final": "60.00"}}

	next, advisories := UpdateComponentGrade(subject, "exam", "88")

	assert.Equal(t, "60.00", next.Grades["final"])
	assert.Len(t, advisories, 1)
}

func TestUpdateComponentGradeComments(t *testing.T) {
	subject := models.Subject{Name: "Math", Grades: map[string]string{"C1": "80", "exam": "90", "final": "1.00"}}

	next, advisories := UpdateComponentGrade(subject, "comments", "Good work")

	assert.Nil(t, advisories)
	assert.Equal(t, "Good work", next.Comments)
	assert.Equal(t, "1.00", next.Grades["final"], "comments never trigger recomputation")
	_, ok := next.Grades["comments"]
	assert.False(t, ok)
}

func TestUpdateComponentGradeIgnoresDirectFinal(t *testing.T) {
	subject := models.Subject{Name: "Math", Grades: map[string]string{"C1": "80", "exam": "70"}}

	next, _ := UpdateComponentGrade(subject, "final", "99.00")

	assert.Equal(t, "74.00", next.Grades["final"])
}

func TestUpdateComponentGradeNilGrades(t *testing.T) {
	next, _ := UpdateComponentGrade(models.Subject{Name: "Art"}, "C1", "50")
	assert.Equal(t, "50", next.Grades["C1"])
}

func TestCourseAverage(t *testing.T) {
	subjects := []models.Subject{
		{Name: "A", Grades: map[string]string{"final": "76.00"}},
		{Name: "B", Grades: map[string]string{"final": "84.00"}},
		{Name: "C", Grades: map[string]string{"final": "oops"}},
		{Name: "D", Grades: map[string]string{}},
	}
	assert.Equal(t, "80.00", CourseAverage(subjects))
	assert.Equal(t, NotAvailable, CourseAverage(subjects[2:]))
	assert.Equal(t, NotAvailable, CourseAverage(nil))
}

func TestAddSubjectDoesNotAlias(t *testing.T) {
	course := models.Course{ID: "c1", Subjects: make([]models.Subject, 1, 4)}
	course.Subjects[0] = models.Subject{Name: "Math", Grades: map[string]string{}}

	next := AddSubject(course, "Physics")

	require.Len(t, next.Subjects, 2)
	assert.Equal(t, "Physics", next.Subjects[1].Name)
	assert.NotNil(t, next.Subjects[1].Grades)
	assert.Len(t, course.Subjects, 1)
	// the engine leaves uniqueness to its caller
	assert.Len(t, AddSubject(next, "Physics").Subjects, 3)
}

func TestBlankSubjects(t *testing.T) {
	blank := BlankSubjects([]models.Subject{{Name: "Math", Grades: map[string]string{"C1": "90"}, Comments: "x"}})
	require.Len(t, blank, 1)
	assert.Equal(t, "Math", blank[0].Name)
	assert.Empty(t, blank[0].Grades)
	assert.Empty(t, blank[0].Comments)
}

func TestIsEditableKey(t *testing.T) {
	assert.True(t, IsEditableKey("C1"))
	assert.True(t, IsEditableKey("exam"))
	assert.True(t, IsEditableKey("comments"))
	assert.False(t, IsEditableKey("final"))
	assert.False(t, IsEditableKey("homework"))
}
