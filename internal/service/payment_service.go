package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/billing"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/gateway"
)

// postChargeAttempts bounds how often a charged payment is re-applied after losing
// a version race. The money has moved, so a stale write is retried rather than returned.
const postChargeAttempts = 3

type chargeGateway interface {
	Enabled() bool
	Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error)
}

// CardPaymentRequest pays by card through the gateway.
type CardPaymentRequest struct {
	Amount         float64 `json:"amount"`
	Source         string  `json:"source"`
	IdempotencyKey string  `json:"idempotencyKey"`
}

// RecordPaymentRequest records money received outside the gateway.
type RecordPaymentRequest struct {
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
}

// PaymentResult is the saved student plus the transaction that was appended.
type PaymentResult struct {
	Student     *models.StudentData `json:"student"`
	Transaction models.Transaction  `json:"transaction"`
}

// PaymentService charges and records payments against student ledgers.
type PaymentService struct {
	docs     studentDocuments
	ledger   billing.Ledger
	gateway  chargeGateway
	currency string
	logger   *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(students StudentStore, ledger billing.Ledger, gw chargeGateway, currency string, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "JMD"
	}
	return &PaymentService{
		docs:     studentDocuments{store: students, metrics: metrics, cache: cache, logger: logger},
		ledger:   ledger,
		gateway:  gw,
		currency: currency,
		logger:   logger,
	}
}

// Pay validates the amount, charges the card and applies the payment. The amount
// is checked before the gateway is contacted so an invalid request never moves money.
func (s *PaymentService) Pay(ctx context.Context, studentID string, req CardPaymentRequest) (*PaymentResult, error) {
	if err := s.ledger.ValidateAmount(req.Amount); err != nil {
		s.docs.metrics.RecordPayment(models.PaymentMethodCard, PaymentOutcomeRejected, req.Amount)
		return nil, err
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "card source token is required")
	}
	if s.gateway == nil || !s.gateway.Enabled() {
		return nil, appErrors.Wrap(gateway.ErrDisabled, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "card payments are not available")
	}
	if _, err := s.docs.load(ctx, studentID); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	charge, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		Amount:         req.Amount,
		Currency:       s.currency,
		Source:         source,
		Description:    fmt.Sprintf("Tuition payment for student %s", studentID),
		IdempotencyKey: key,
	})
	if err != nil {
		s.docs.metrics.RecordPayment(models.PaymentMethodCard, PaymentOutcomeGatewayError, req.Amount)
		var declined *gateway.DeclinedError
		if errors.As(err, &declined) {
			msg := "card was declined"
			if declined.Message != "" {
				msg = "card was declined: " + declined.Message
			}
			return nil, appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, msg)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, appErrors.ErrGateway.Message)
	}

	payment := billing.Payment{Amount: req.Amount, Method: models.PaymentMethodCard, Reference: charge.ID}
	var result *PaymentResult
	for attempt := 1; attempt <= postChargeAttempts; attempt++ {
		result, err = s.apply(ctx, studentID, payment)
		if err == nil || !isStale(err) {
			break
		}
		s.logger.Warn("charged payment lost a version race; retrying",
			zap.String("student_id", studentID),
			zap.String("charge_id", charge.ID),
			zap.Int("attempt", attempt),
		)
	}
	if errors.Is(err, appErrors.ErrDuplicatePayment) {
		// A replayed idempotency key returns the charge that is already on the ledger.
		return s.recorded(ctx, studentID, charge.ID)
	}
	if err != nil {
		s.docs.metrics.RecordPayment(models.PaymentMethodCard, PaymentOutcomeNotSaved, req.Amount)
		s.logger.Error("card charged but payment not saved",
			zap.String("student_id", studentID),
			zap.String("charge_id", charge.ID),
			zap.Float64("amount", req.Amount),
			zap.Error(err),
		)
		if errors.Is(err, appErrors.ErrNotPersisted) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrNotPersisted.Code, appErrors.ErrNotPersisted.Status,
			fmt.Sprintf("payment %s was charged but not saved; quote this reference to the accounts office", charge.ID))
	}
	s.docs.metrics.RecordPayment(models.PaymentMethodCard, PaymentOutcomeSucceeded, req.Amount)
	return result, nil
}

// Record applies money received outside the gateway (cash, bank transfer,
// statement import). A reference already on the ledger is rejected so imports can
// be re-run safely.
func (s *PaymentService) Record(ctx context.Context, studentID string, req RecordPaymentRequest) (*PaymentResult, error) {
	method := strings.ToLower(strings.TrimSpace(req.Method))
	switch method {
	case "":
		method = models.PaymentMethodRecorded
	case models.PaymentMethodRecorded, models.PaymentMethodBank:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "method must be recorded or bank")
	}
	payment := billing.Payment{Amount: req.Amount, Method: method, Reference: strings.TrimSpace(req.Reference)}
	result, err := s.apply(ctx, studentID, payment)
	if err != nil {
		if errors.Is(err, appErrors.ErrInvalidAmount) {
			s.docs.metrics.RecordPayment(method, PaymentOutcomeRejected, req.Amount)
		}
		return nil, err
	}
	s.docs.metrics.RecordPayment(method, PaymentOutcomeSucceeded, req.Amount)
	return result, nil
}

// recorded returns the ledger entry carrying reference.
func (s *PaymentService) recorded(ctx context.Context, studentID, reference string) (*PaymentResult, error) {
	student, err := s.docs.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	for _, t := range student.Transactions {
		if t.Reference == reference {
			s.logger.Info("payment replay matched a recorded charge",
				zap.String("student_id", studentID),
				zap.String("charge_id", reference),
				zap.String("transaction_id", t.ID),
			)
			return &PaymentResult{Student: student, Transaction: t}, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("payment %s is recorded but missing from the ledger", reference))
}

// Transactions returns the student's ledger entries, oldest first.
func (s *PaymentService) Transactions(ctx context.Context, studentID string) ([]models.Transaction, error) {
	student, err := s.docs.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return student.Transactions, nil
}

func (s *PaymentService) apply(ctx context.Context, studentID string, payment billing.Payment) (*PaymentResult, error) {
	var txn models.Transaction
	student, err := s.docs.update(ctx, studentID, func(student models.StudentData) (models.StudentData, error) {
		if payment.Reference != "" && hasReference(student, payment.Reference) {
			return student, appErrors.Clone(appErrors.ErrDuplicatePayment, fmt.Sprintf("payment %s is already recorded", payment.Reference))
		}
		next, err := s.ledger.ApplyPayment(student, payment)
		if err != nil {
			return student, err
		}
		txn = next.Transactions[len(next.Transactions)-1]
		msg := fmt.Sprintf("Payment of %s %.2f received. Balance: %s %.2f.", s.currency, payment.Amount, s.currency, next.Balance)
		return s.ledger.Notify(next, msg), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment applied",
		zap.String("student_id", studentID),
		zap.String("transaction_id", txn.ID),
		zap.String("method", txn.Method),
		zap.Float64("amount", txn.Amount),
		zap.String("payment_status", string(student.PaymentStatus)),
	)
	return &PaymentResult{Student: student, Transaction: txn}, nil
}

func hasReference(student models.StudentData, reference string) bool {
	for _, t := range student.Transactions {
		if t.Reference == reference {
			return true
		}
	}
	return false
}
