// Package billing reconciles a student's charges, payments, installment plan and
// clearance. Operations take a student document by value and return the next one.
package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/grading"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

// DefaultMaxPayment guards against fat-fingered amounts.
const DefaultMaxPayment = 1_000_000

// Ledger applies reconciliation rules. The zero value is usable.
type Ledger struct {
	MaxPayment float64
	Now        func() time.Time
	NewID      func() string
}

// Payment describes money received for a student.
type Payment struct {
	Amount    float64
	Method    string
	Reference string
}

func (l Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l Ledger) newID() string {
	if l.NewID != nil {
		return l.NewID()
	}
	return uuid.NewString()
}

func (l Ledger) maxPayment() float64 {
	if l.MaxPayment > 0 {
		return l.MaxPayment
	}
	return DefaultMaxPayment
}

// ValidateAmount rejects non-positive and over-ceiling amounts.
func (l Ledger) ValidateAmount(amount float64) error {
	if !(amount > 0) {
		return appErrors.Clone(appErrors.ErrInvalidAmount, "amount must be greater than zero")
	}
	if amount > l.maxPayment() {
		return appErrors.Clone(appErrors.ErrInvalidAmount, fmt.Sprintf("amount exceeds the maximum of %.2f", l.maxPayment()))
	}
	return nil
}

// ApplyPayment records a payment, allocates it across the installment plan and
// re-derives balance, status and clearance.
func (l Ledger) ApplyPayment(student models.StudentData, payment Payment) (models.StudentData, error) {
	if err := l.ValidateAmount(payment.Amount); err != nil {
		return student, err
	}
	next := cloneLedger(student)

	next.TotalPaid += payment.Amount
	next.Balance = next.TotalOwed - next.TotalPaid
	switch {
	case next.Balance <= 0:
		next.PaymentStatus = models.PaymentStatusPaid
	case next.TotalPaid > 0:
		next.PaymentStatus = models.PaymentStatusPartial
	default:
		next.PaymentStatus = models.PaymentStatusUnpaid
	}

	method := payment.Method
	if method == "" {
		method = models.PaymentMethodRecorded
	}
	next.Transactions = append(next.Transactions, models.Transaction{
		ID:        l.newID(),
		Amount:    payment.Amount,
		Date:      l.now(),
		Status:    models.TransactionStatusSucceeded,
		Method:    method,
		Reference: payment.Reference,
	})

	firstNewlyPaid := allocateInstallments(next.PaymentPlan, payment.Amount)
	if firstNewlyPaid && !next.Clearance {
		next.Clearance = true
	}
	if next.Balance <= 0 {
		next.Clearance = true
	}
	return next, nil
}

// allocateInstallments pays installments in plan order, each in full or not at all,
// stopping at the first unpaid installment the remaining amount cannot cover. It
// reports whether installment 0 moved to paid.
func allocateInstallments(plan *models.PaymentPlan, amount float64) bool {
	if plan == nil {
		return false
	}
	firstWasPaid := len(plan.Installments) > 0 && plan.Installments[0].Paid
	remaining := amount
	for i := range plan.Installments {
		inst := &plan.Installments[i]
		if inst.Paid {
			continue
		}
		if remaining < inst.Amount {
			break
		}
		inst.Paid = true
		remaining -= inst.Amount
	}
	return !firstWasPaid && len(plan.Installments) > 0 && plan.Installments[0].Paid
}

// Enroll copies the course's current subject list onto the student and charges its fee.
func (l Ledger) Enroll(student models.StudentData, course models.Course) (models.StudentData, error) {
	if IsEnrolled(student, course.ID) {
		return student, appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("already enrolled in %s", displayName(course)))
	}
	next := cloneLedger(student)
	next.Courses = append(next.Courses, EnrollmentCopy(course))
	next.TotalOwed += course.Fee
	next.Balance = next.TotalOwed - next.TotalPaid
	if next.Balance <= 0 {
		next.PaymentStatus = models.PaymentStatusPaid
	} else {
		next.PaymentStatus = models.PaymentStatusPartial
	}
	return next, nil
}

// IsEnrolled reports whether the student holds a copy of the course id.
func IsEnrolled(student models.StudentData, courseID string) bool {
	_, c := student.EnrolledCourse(courseID)
	return c != nil
}

// EnrollmentCopy is the student's independent copy of a catalog course.
func EnrollmentCopy(course models.Course) models.Course {
	resources := make([]models.Resource, len(course.Resources))
	copy(resources, course.Resources)
	tests := make([]models.Test, len(course.Tests))
	copy(tests, course.Tests)
	return models.Course{
		ID:        course.ID,
		Name:      course.Name,
		Fee:       course.Fee,
		Subjects:  grading.BlankSubjects(course.Subjects),
		Resources: resources,
		Tests:     tests,
	}
}

// AddCharge raises what the student owes. Clearance is left untouched.
func (l Ledger) AddCharge(student models.StudentData, amount float64) (models.StudentData, error) {
	if err := l.ValidateAmount(amount); err != nil {
		return student, err
	}
	next := cloneLedger(student)
	next.TotalOwed += amount
	next.Balance = next.TotalOwed - next.TotalPaid
	next.PaymentStatus = DeriveStatus(next.TotalOwed, next.TotalPaid)
	return next, nil
}

// DeriveStatus maps ledger totals to a payment status.
func DeriveStatus(totalOwed, totalPaid float64) models.PaymentStatus {
	switch {
	case totalOwed-totalPaid <= 0:
		return models.PaymentStatusPaid
	case totalPaid > 0:
		return models.PaymentStatusPartial
	default:
		return models.PaymentStatusUnpaid
	}
}

// SetClearance is the administrative grant/remove switch.
func SetClearance(student models.StudentData, granted bool) models.StudentData {
	student.Clearance = granted
	return student
}

// SetPaymentPlan replaces the installment plan.
func SetPaymentPlan(student models.StudentData, installments []models.Installment) (models.StudentData, error) {
	for i, inst := range installments {
		if !(inst.Amount > 0) {
			return student, appErrors.Clone(appErrors.ErrInvalidAmount, fmt.Sprintf("installment %d must have a positive amount", i+1))
		}
	}
	plan := &models.PaymentPlan{Installments: make([]models.Installment, len(installments))}
	copy(plan.Installments, installments)
	student.PaymentPlan = plan
	return student, nil
}

// Notify appends a notification to the student's inbox.
func (l Ledger) Notify(student models.StudentData, message string) models.StudentData {
	next := student
	next.Notifications = make([]models.Notification, len(student.Notifications), len(student.Notifications)+1)
	copy(next.Notifications, student.Notifications)
	next.Notifications = append(next.Notifications, models.Notification{
		ID:      l.newID(),
		Message: message,
		Date:    l.now(),
	})
	return next
}

// MarkNotificationRead flips the read flag; it reports false if the id is unknown.
func MarkNotificationRead(student models.StudentData, notificationID string) (models.StudentData, bool) {
	next := student
	next.Notifications = make([]models.Notification, len(student.Notifications))
	copy(next.Notifications, student.Notifications)
	for i := range next.Notifications {
		if next.Notifications[i].ID == notificationID {
			next.Notifications[i].Read = true
			return next, true
		}
	}
	return student, false
}

func cloneLedger(student models.StudentData) models.StudentData {
	next := student
	next.Courses = make([]models.Course, len(student.Courses), len(student.Courses)+1)
	copy(next.Courses, student.Courses)
	next.Transactions = make([]models.Transaction, len(student.Transactions), len(student.Transactions)+1)
	copy(next.Transactions, student.Transactions)
	if student.PaymentPlan != nil {
		plan := &models.PaymentPlan{Installments: make([]models.Installment, len(student.PaymentPlan.Installments))}
		copy(plan.Installments, student.PaymentPlan.Installments)
		next.PaymentPlan = plan
	}
	return next
}

func displayName(course models.Course) string {
	if name := strings.TrimSpace(course.Name); name != "" {
		return name
	}
	return course.ID
}
