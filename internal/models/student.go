package models

import "time"

// PaymentStatus summarises how much of a student's balance is settled.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "Unpaid"
	PaymentStatusPartial PaymentStatus = "Partial"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// TransactionStatusSucceeded marks a settled payment.
const TransactionStatusSucceeded = "succeeded"

// Payment methods recorded on transactions.
const (
	PaymentMethodCard     = "card"
	PaymentMethodRecorded = "recorded"
	PaymentMethodBank     = "bank"
)

// StudentData is the student's document: enrolled course copies, ledger totals and logs.
type StudentData struct {
	ID            string         `json:"id" bson:"_id"`
	Name          string         `json:"name" bson:"name"`
	Email         string         `json:"email" bson:"email"`
	Courses       []Course       `json:"courses" bson:"courses"`
	TotalOwed     float64        `json:"totalOwed" bson:"totalOwed"`
	TotalPaid     float64        `json:"totalPaid" bson:"totalPaid"`
	Balance       float64        `json:"balance" bson:"balance"`
	PaymentStatus PaymentStatus  `json:"paymentStatus" bson:"paymentStatus"`
	Clearance     bool           `json:"clearance" bson:"clearance"`
	Transactions  []Transaction  `json:"transactions" bson:"transactions"`
	Notifications []Notification `json:"notifications" bson:"notifications"`
	PaymentPlan   *PaymentPlan   `json:"paymentPlan,omitempty" bson:"paymentPlan,omitempty"`
	Version       int64          `json:"version" bson:"version"`
	CreatedAt     time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// EnrolledCourse returns the student's copy of the course with the given id.
func (s *StudentData) EnrolledCourse(courseID string) (int, *Course) {
	for i := range s.Courses {
		if s.Courses[i].ID == courseID {
			return i, &s.Courses[i]
		}
	}
	return -1, nil
}

// UnreadNotifications counts notifications not yet marked read.
func (s *StudentData) UnreadNotifications() int {
	count := 0
	for _, n := range s.Notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID        string    `json:"id" bson:"id"`
	Amount    float64   `json:"amount" bson:"amount"`
	Date      time.Time `json:"date" bson:"date"`
	Status    string    `json:"status" bson:"status"`
	Method    string    `json:"method" bson:"method"`
	Reference string    `json:"reference" bson:"reference"`
}

// Notification is appended to a student's inbox; only Read ever changes.
type Notification struct {
	ID      string    `json:"id" bson:"id"`
	Message string    `json:"message" bson:"message"`
	Date    time.Time `json:"date" bson:"date"`
	Read    bool      `json:"read" bson:"read"`
}

// PaymentPlan is an ordered sequence of installment obligations.
type PaymentPlan struct {
	Installments []Installment `json:"installments" bson:"installments"`
}

// Installment is paid in full or not at all.
type Installment struct {
	Amount  float64    `json:"amount" bson:"amount"`
	Paid    bool       `json:"paid" bson:"paid"`
	DueDate *time.Time `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}

// StudentSummary is the dashboard view of a student's standing.
type StudentSummary struct {
	StudentID           string          `json:"studentId"`
	Name                string          `json:"name"`
	Courses             []CourseAverage `json:"courses"`
	TotalOwed           float64         `json:"totalOwed"`
	TotalPaid           float64         `json:"totalPaid"`
	Balance             float64         `json:"balance"`
	PaymentStatus       PaymentStatus   `json:"paymentStatus"`
	Clearance           bool            `json:"clearance"`
	UnreadNotifications int             `json:"unreadNotifications"`
}

// CourseAverage pairs a course with its unweighted subject average.
type CourseAverage struct {
	CourseID   string `json:"courseId"`
	CourseName string `json:"courseName"`
	Average    string `json:"average"`
}
