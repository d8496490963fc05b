package sanitize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
)

func roundTrip(t *testing.T, v any) map[string]any {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(payload, &out))
	return out
}

func TestStudentEmptyRecordDefaults(t *testing.T) {
	student := Student(map[string]any{})

	assert.Equal(t, "", student.ID)
	assert.Equal(t, 0.0, student.TotalOwed)
	assert.Equal(t, 0.0, student.Balance)
	assert.False(t, student.Clearance)
	assert.Equal(t, models.PaymentStatusUnpaid, student.PaymentStatus)
	assert.NotNil(t, student.Courses)
	assert.NotNil(t, student.Transactions)
	assert.NotNil(t, student.Notifications)
	assert.Nil(t, student.PaymentPlan)
}

func TestStudentSanitizeIsIdempotent(t *testing.T) {
	first := Student(map[string]any{})
	second := Student(roundTrip(t, first))
	assert.Equal(t, first, second)

	rich := Student(map[string]any{
		"id":            "s1",
		"totalOwed":     "1000",
		"totalPaid":     int32(250),
		"paymentStatus": "Partially Paid",
		"courses": []any{
			map[string]any{"id": "c1", "name": "Science", "subjects": []any{
				map[string]any{"name": "Physics", "grades": map[string]any{"C1": 80, "exam": "70"}},
			}},
		},
		"transactions": []any{map[string]any{"amount": 250, "date": "2024-05-01T12:00:00Z", "status": "succeeded"}},
		"paymentPlan":  map[string]any{"installments": []any{map[string]any{"amount": 300, "paid": "true"}}},
	})
	assert.Equal(t, rich, Student(roundTrip(t, rich)))
}

func TestStudentDerivesBalanceAndStatus(t *testing.T) {
	student := Student(map[string]any{
		"totalOwed":     1000.0,
		"totalPaid":     "400",
		"balance":       12345.0,
		"paymentStatus": "Partially Paid",
	})

	assert.Equal(t, 600.0, student.Balance)
	assert.Equal(t, models.PaymentStatusPartial, student.PaymentStatus)

	unknown := Student(map[string]any{"totalOwed": 100, "totalPaid": 100, "paymentStatus": "weird"})
	assert.Equal(t, models.PaymentStatusPaid, unknown.PaymentStatus)
}

func TestStudentAcceptsDriverTypes(t *testing.T) {
	when := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	oid := primitive.NewObjectID()
	student := Student(map[string]any{
		"_id":       oid,
		"totalOwed": int64(500),
		"courses": primitive.A{
			primitive.M{"_id": "c1", "fee": int32(500), "subjects": primitive.A{
				primitive.D{{Key: "name", Value: "Math"}, {Key: "grades", Value: primitive.M{"C1": 90.5}}},
			}},
		},
		"notifications": primitive.A{primitive.M{"id": "n1", "message": "hi", "date": primitive.NewDateTimeFromTime(when)}},
	})

	assert.Equal(t, oid.Hex(), student.ID)
	assert.Equal(t, 500.0, student.TotalOwed)
	require.Len(t, student.Courses, 1)
	assert.Equal(t, "c1", student.Courses[0].ID)
	require.Len(t, student.Courses[0].Subjects, 1)
	assert.Equal(t, "90.5", student.Courses[0].Subjects[0].Grades["C1"])
	require.Len(t, student.Notifications, 1)
	assert.True(t, when.Equal(student.Notifications[0].Date))
}

func TestCourseFallsBackToNameIdentity(t *testing.T) {
	course := Course(map[string]any{"name": "Biology", "fee": -10, "subjects": "not a list"})

	assert.Equal(t, "Biology", course.ID)
	assert.Equal(t, 0.0, course.Fee)
	assert.NotNil(t, course.Subjects)
	assert.Empty(t, course.Subjects)
}

func TestSubjectNeverHasNilGrades(t *testing.T) {
	subject := Subject(map[string]any{"name": "Art", "grades": nil})
	assert.NotNil(t, subject.Grades)
}
