package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/response"
)

type gradeService interface {
	UpdateComponent(ctx context.Context, studentID, courseID, subjectName string, req service.UpdateGradeRequest) (*service.GradeUpdateResult, error)
	CourseAverage(ctx context.Context, studentID, courseID string) (*models.CourseAverage, error)
}

// GradeHandler exposes grade entry and course averages.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// UpdateComponent godoc
// @Summary Set grade component
// @Description Writes one component (C1..Cn, exam or comments) and re-derives the final.
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Param subject path string true "Subject name"
// @Param payload body service.UpdateGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/courses/{courseId}/subjects/{subject}/grades [put]
func (h *GradeHandler) UpdateComponent(c *gin.Context) {
	var req service.UpdateGradeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.grades.UpdateComponent(c.Request.Context(), c.Param("id"), c.Param("courseId"), c.Param("subject"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if len(result.Advisories) > 0 {
		meta = map[string]interface{}{"advisories": len(result.Advisories)}
	}
	response.OK(c, result, meta)
}

// CourseAverage godoc
// @Summary Course average
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/courses/{courseId}/average [get]
func (h *GradeHandler) CourseAverage(c *gin.Context) {
	avg, err := h.grades.CourseAverage(c.Request.Context(), c.Param("id"), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, avg)
}
