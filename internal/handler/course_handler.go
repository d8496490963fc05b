package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, bool, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req service.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req service.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, id string) error
	AddSubject(ctx context.Context, courseID string, req service.AddSubjectRequest) (*models.Course, error)
	AddResource(ctx context.Context, courseID string, req service.AddResourceRequest) (*models.Course, error)
	AddTest(ctx context.Context, courseID string, req service.AddTestRequest) (*models.Course, error)
}

// CourseHandler exposes the course catalog.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List catalog courses
// @Tags Courses
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	search, page, size := pageParams(c)
	courses, pagination, hit, err := h.courses.List(c.Request.Context(), models.CourseFilter{Search: search, Page: page, PageSize: size})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination, withCacheMeta(c, hit))
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [patch]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Delete godoc
// @Summary Remove course from the catalog
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddSubject godoc
// @Summary Add subject to course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.AddSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/subjects [post]
func (h *CourseHandler) AddSubject(c *gin.Context) {
	var req service.AddSubjectRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.AddSubject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// AddResource godoc
// @Summary Attach learning resource to course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.AddResourceRequest true "Resource payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/resources [post]
func (h *CourseHandler) AddResource(c *gin.Context) {
	var req service.AddResourceRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.AddResource(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// AddTest godoc
// @Summary Schedule test for course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.AddTestRequest true "Test payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/tests [post]
func (h *CourseHandler) AddTest(c *gin.Context) {
	var req service.AddTestRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.AddTest(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}
