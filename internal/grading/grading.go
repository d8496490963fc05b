// Package grading derives subject finals and course averages from component grades.
//
// Everything here is a pure value transformation: inputs are never mutated and no
// I/O happens. Component values are numeric strings; anything that does not parse
// is left out of the arithmetic and reported as an advisory instead of an error.
package grading

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
)

const (
	classworkWeight = 0.4
	examWeight      = 0.6
)

// NotAvailable is the course average when no subject has a usable final.
const NotAvailable = "N/A"

// Advisory reports a component that was excluded because it is not numeric.
type Advisory struct {
	Subject   string `json:"subject"`
	Component string `json:"component"`
	Value     string `json:"value"`
}

// IsClassworkKey reports whether key names a classwork component.
func IsClassworkKey(key string) bool {
	return strings.HasPrefix(key, models.ClassworkPrefix)
}

// IsEditableKey reports whether a user may write key. The final grade is derived only.
func IsEditableKey(key string) bool {
	return key == models.GradeKeyExam || key == models.GradeKeyComments || IsClassworkKey(key)
}

// UpdateComponentGrade sets one component and recomputes the final grade.
// Writing comments never triggers recomputation. A direct write to the final key
// is ignored; the final is only ever derived.
func UpdateComponentGrade(subject models.Subject, key, value string) (models.Subject, []Advisory) {
	next := subject.Clone()
	if key == models.GradeKeyComments {
		next.Comments = value
		return next, nil
	}
	if key != models.GradeKeyFinal {
		next.Grades[key] = value
	}
	return Recompute(next)
}

// Recompute derives final from the classwork and exam components. When there is no
// parsable classwork or no parsable exam the previous final is kept as is.
func Recompute(subject models.Subject) (models.Subject, []Advisory) {
	next := subject.Clone()

	keys := make([]string, 0, len(next.Grades))
	for k := range next.Grades {
		if IsClassworkKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var advisories []Advisory
	classwork := make([]float64, 0, len(keys))
	for _, k := range keys {
		raw := next.Grades[k]
		v, ok := parseGrade(raw)
		if !ok {
			if strings.TrimSpace(raw) != "" {
				advisories = append(advisories, Advisory{Subject: next.Name, Component: k, Value: raw})
			}
			continue
		}
		classwork = append(classwork, v)
	}

	rawExam, hasExam := next.Grades[models.GradeKeyExam]
	exam, examOK := parseGrade(rawExam)
	if hasExam && !examOK && strings.TrimSpace(rawExam) != "" {
		advisories = append(advisories, Advisory{Subject: next.Name, Component: models.GradeKeyExam, Value: rawExam})
	}

	if len(classwork) > 0 && examOK {
		final := mean(classwork)*classworkWeight + exam*examWeight
		next.Grades[models.GradeKeyFinal] = format2(final)
	}
	return next, advisories
}

// CourseAverage is the unweighted mean of every subject final that parses, or
// NotAvailable when none do.
func CourseAverage(subjects []models.Subject) string {
	finals := make([]float64, 0, len(subjects))
	for _, s := range subjects {
		raw, ok := s.Final()
		if !ok {
			continue
		}
		if v, ok := parseGrade(raw); ok {
			finals = append(finals, v)
		}
	}
	if len(finals) == 0 {
		return NotAvailable
	}
	return format2(mean(finals))
}

// AddSubject appends an empty subject. Name uniqueness is the caller's concern.
func AddSubject(course models.Course, name string) models.Course {
	subjects := make([]models.Subject, len(course.Subjects), len(course.Subjects)+1)
	copy(subjects, course.Subjects)
	course.Subjects = append(subjects, models.Subject{Name: name, Grades: map[string]string{}})
	return course
}

// BlankSubjects copies a subject list with every grade and comment cleared.
func BlankSubjects(subjects []models.Subject) []models.Subject {
	out := make([]models.Subject, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, models.Subject{Name: s.Name, Grades: map[string]string{}})
	}
	return out
}

func parseGrade(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func format2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
