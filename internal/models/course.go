package models

import (
	"strings"
	"time"
)

// Grade component keys with fixed meaning.
const (
	GradeKeyExam     = "exam"
	GradeKeyFinal    = "final"
	GradeKeyComments = "comments"

	ClassworkPrefix = "C"
)

// Subject holds component grades keyed by component name.
type Subject struct {
	Name     string            `json:"name" bson:"name"`
	Grades   map[string]string `json:"grades" bson:"grades"`
	Comments string            `json:"comments" bson:"comments"`
}

// Final returns the derived final grade, if any.
func (s Subject) Final() (string, bool) {
	v, ok := s.Grades[GradeKeyFinal]
	return v, ok
}

// Clone deep-copies the grade map.
func (s Subject) Clone() Subject {
	grades := make(map[string]string, len(s.Grades))
	for k, v := range s.Grades {
		grades[k] = v
	}
	s.Grades = grades
	return s
}

// Course is a catalog template; enrolled copies live on StudentData.
type Course struct {
	ID        string     `json:"id" bson:"_id"`
	Name      string     `json:"name" bson:"name"`
	Fee       float64    `json:"fee" bson:"fee"`
	Subjects  []Subject  `json:"subjects" bson:"subjects"`
	Resources []Resource `json:"resources" bson:"resources"`
	Tests     []Test     `json:"tests" bson:"tests"`
	Version   int64      `json:"version" bson:"version"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// SubjectIndex finds a subject by name, ignoring case and surrounding space.
func (c *Course) SubjectIndex(name string) int {
	name = strings.TrimSpace(name)
	for i := range c.Subjects {
		if strings.EqualFold(strings.TrimSpace(c.Subjects[i].Name), name) {
			return i
		}
	}
	return -1
}

// Resource is a learning resource attached to a course.
type Resource struct {
	ID    string `json:"id" bson:"id"`
	Title string `json:"title" bson:"title"`
	URL   string `json:"url" bson:"url"`
	Kind  string `json:"kind" bson:"kind"`
}

// Test is a scheduled assessment for a course.
type Test struct {
	ID          string     `json:"id" bson:"id"`
	Title       string     `json:"title" bson:"title"`
	Date        *time.Time `json:"date,omitempty" bson:"date,omitempty"`
	Description string     `json:"description" bson:"description"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	Search   string
	Page     int
	PageSize int
}
