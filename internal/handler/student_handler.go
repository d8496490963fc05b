package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentData, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.StudentData, error)
	Create(ctx context.Context, req service.CreateStudentRequest) (*models.StudentData, error)
	Summary(ctx context.Context, id string) (*models.StudentSummary, bool, error)
	SetPaymentPlan(ctx context.Context, id string, req service.PaymentPlanRequest) (*models.StudentData, error)
	GrantClearance(ctx context.Context, id string) (*models.StudentData, error)
	RemoveClearance(ctx context.Context, id string) (*models.StudentData, error)
	AddCharge(ctx context.Context, id string, req service.ChargeRequest) (*models.StudentData, error)
}

// StudentHandler exposes student documents and the administrative ledger edits.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name, email or id"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	search, page, size := pageParams(c)
	students, pagination, err := h.students.List(c.Request.Context(), models.StudentFilter{Search: search, Page: page, PageSize: size})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student document
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Create godoc
// @Summary Register student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Summary godoc
// @Summary Student dashboard summary
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/summary [get]
func (h *StudentHandler) Summary(c *gin.Context) {
	summary, hit, err := h.students.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary, withCacheMeta(c, hit))
}

// SetPaymentPlan godoc
// @Summary Replace installment plan
// @Tags Billing
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.PaymentPlanRequest true "Plan payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/payment-plan [put]
func (h *StudentHandler) SetPaymentPlan(c *gin.Context) {
	var req service.PaymentPlanRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.SetPaymentPlan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// AddCharge godoc
// @Summary Add charge to student ledger
// @Tags Billing
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.ChargeRequest true "Charge payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/charges [post]
func (h *StudentHandler) AddCharge(c *gin.Context) {
	var req service.ChargeRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.AddCharge(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// GrantClearance godoc
// @Summary Grant financial clearance
// @Tags Billing
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/clearance [post]
func (h *StudentHandler) GrantClearance(c *gin.Context) {
	student, err := h.students.GrantClearance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// RemoveClearance godoc
// @Summary Remove financial clearance
// @Tags Billing
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/clearance [delete]
func (h *StudentHandler) RemoveClearance(c *gin.Context) {
	student, err := h.students.RemoveClearance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}
