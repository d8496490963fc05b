package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, studentID string, req service.EnrollRequest) (*models.StudentData, error)
}

// EnrollmentHandler enrolls students into catalog courses.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll student in course
// @Description Copies the catalog course onto the student and charges its fee.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.enrollments.Enroll(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}
