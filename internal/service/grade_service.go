package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/grading"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

// UpdateGradeRequest sets one grade component of an enrolled subject.
type UpdateGradeRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GradeUpdateResult is the subject after the write plus any components that were
// left out of the final because they are not numeric.
type GradeUpdateResult struct {
	Subject    models.Subject     `json:"subject"`
	Advisories []grading.Advisory `json:"advisories"`
}

// RecalcResult reports a full re-derivation of a student's finals.
type RecalcResult struct {
	StudentID  string             `json:"studentId"`
	Subjects   int                `json:"subjects"`
	Changed    int                `json:"changed"`
	Advisories []grading.Advisory `json:"advisories"`
}

// GradeService edits grades on students' enrolled course copies.
type GradeService struct {
	docs   studentDocuments
	logger *zap.Logger
}

// NewGradeService constructs a GradeService.
func NewGradeService(students StudentStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		docs:   studentDocuments{store: students, metrics: metrics, cache: cache, logger: logger},
		logger: logger,
	}
}

// UpdateComponent writes one component and re-derives the subject final.
func (s *GradeService) UpdateComponent(ctx context.Context, studentID, courseID, subjectName string, req UpdateGradeRequest) (*GradeUpdateResult, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" || len(key) > 32 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade key must be 1 to 32 characters")
	}
	value := strings.TrimSpace(req.Value)
	if key == models.GradeKeyComments {
		value = plainText(req.Value)
	}

	var result GradeUpdateResult
	_, err := s.docs.update(ctx, studentID, func(student models.StudentData) (models.StudentData, error) {
		courses, course, err := enrolledCourseCopy(student, courseID)
		if err != nil {
			return student, err
		}
		idx := course.SubjectIndex(subjectName)
		if idx < 0 {
			return student, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subject %q not found in %s", subjectName, course.Name))
		}
		subject, advisories := grading.UpdateComponentGrade(course.Subjects[idx], key, value)
		course.Subjects[idx] = subject
		student.Courses = courses
		result = GradeUpdateResult{Subject: subject, Advisories: advisories}
		return student, nil
	})
	if err != nil {
		return nil, err
	}
	s.reportAdvisories(studentID, result.Advisories)
	if result.Advisories == nil {
		result.Advisories = []grading.Advisory{}
	}
	return &result, nil
}

// CourseAverage is the unweighted mean of the student's finals in one course.
func (s *GradeService) CourseAverage(ctx context.Context, studentID, courseID string) (*models.CourseAverage, error) {
	student, err := s.docs.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	_, course := student.EnrolledCourse(courseID)
	if course == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in course")
	}
	return &models.CourseAverage{
		CourseID:   course.ID,
		CourseName: course.Name,
		Average:    grading.CourseAverage(course.Subjects),
	}, nil
}

// Recalculate re-derives every final on the student's enrolled subjects. Documents
// written by older clients can carry finals that disagree with their components.
func (s *GradeService) Recalculate(ctx context.Context, studentID string, dryRun bool) (*RecalcResult, error) {
	result := &RecalcResult{StudentID: studentID, Advisories: []grading.Advisory{}}
	apply := func(student models.StudentData) (models.StudentData, error) {
		courses := make([]models.Course, len(student.Courses))
		for i, c := range student.Courses {
			subjects := make([]models.Subject, len(c.Subjects))
			for j, subj := range c.Subjects {
				next, advisories := grading.Recompute(subj)
				before, _ := subj.Final()
				after, _ := next.Final()
				if before != after {
					result.Changed++
				}
				result.Subjects++
				result.Advisories = append(result.Advisories, advisories...)
				subjects[j] = next
			}
			c.Subjects = subjects
			courses[i] = c
		}
		student.Courses = courses
		return student, nil
	}

	if dryRun {
		student, err := s.docs.load(ctx, studentID)
		if err != nil {
			return nil, err
		}
		if _, err := apply(*student); err != nil {
			return nil, err
		}
		return result, nil
	}
	if _, err := s.docs.update(ctx, studentID, apply); err != nil {
		return nil, err
	}
	s.reportAdvisories(studentID, result.Advisories)
	return result, nil
}

func (s *GradeService) reportAdvisories(studentID string, advisories []grading.Advisory) {
	if len(advisories) == 0 {
		return
	}
	s.docs.metrics.RecordGradeAdvisories(len(advisories))
	for _, a := range advisories {
		s.logger.Info("grade component excluded from final",
			zap.String("code", appErrors.ErrUnparsableGrade.Code),
			zap.String("student_id", studentID),
			zap.String("subject", a.Subject),
			zap.String("component", a.Component),
			zap.String("value", a.Value),
		)
	}
}

// enrolledCourseCopy returns a copy of the student's course list and a pointer
// into it for the requested course, with that course's subjects also copied.
func enrolledCourseCopy(student models.StudentData, courseID string) ([]models.Course, *models.Course, error) {
	idx, _ := student.EnrolledCourse(courseID)
	if idx < 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in course")
	}
	courses := make([]models.Course, len(student.Courses))
	copy(courses, student.Courses)
	subjects := make([]models.Subject, len(courses[idx].Subjects))
	copy(subjects, courses[idx].Subjects)
	courses[idx].Subjects = subjects
	return courses, &courses[idx], nil
}
