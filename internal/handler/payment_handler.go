package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/middleware"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/response"
)

type paymentService interface {
	Pay(ctx context.Context, studentID string, req service.CardPaymentRequest) (*service.PaymentResult, error)
	Record(ctx context.Context, studentID string, req service.RecordPaymentRequest) (*service.PaymentResult, error)
	Transactions(ctx context.Context, studentID string) ([]models.Transaction, error)
}

// PaymentRequest covers both payment paths. Students send a card source; the
// accounts office sends a method and reference for money received elsewhere.
type PaymentRequest struct {
	Amount         float64 `json:"amount"`
	Source         string  `json:"source"`
	IdempotencyKey string  `json:"idempotencyKey"`
	Method         string  `json:"method"`
	Reference      string  `json:"reference"`
}

// PaymentHandler exposes payments and the transaction history.
type PaymentHandler struct {
	payments paymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Pay godoc
// @Summary Make or record a payment
// @Description Students pay their own balance by card. ACCOUNTS_ADMIN records cash or bank payments.
// @Tags Billing
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param Idempotency-Key header string false "Gateway idempotency key; a replay returns the recorded payment"
// @Param payload body PaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope "DUPLICATE_PAYMENT for a recorded reference, CONFLICT for a stale write"
// @Failure 502 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /students/{id}/payments [post]
func (h *PaymentHandler) Pay(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	studentID := c.Param("id")

	var (
		result *service.PaymentResult
		err    error
	)
	switch {
	case claims.Role == models.RoleAccountsAdmin:
		result, err = h.payments.Record(c.Request.Context(), studentID, service.RecordPaymentRequest{
			Amount:    req.Amount,
			Method:    req.Method,
			Reference: req.Reference,
		})
	case middleware.IsSelf(c, claims):
		key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		if key == "" {
			key = req.IdempotencyKey
		}
		result, err = h.payments.Pay(c.Request.Context(), studentID, service.CardPaymentRequest{
			Amount:         req.Amount,
			Source:         req.Source,
			IdempotencyKey: key,
		})
	default:
		err = appErrors.ErrForbidden
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Transactions godoc
// @Summary Student transaction history
// @Tags Billing
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transactions [get]
func (h *PaymentHandler) Transactions(c *gin.Context) {
	txns, err := h.payments.Transactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	response.OK(c, txns)
}
