// Package sanitize maps loosely shaped documents read from a store into fully
// defaulted model values. Missing numbers become 0, strings "", booleans false,
// and collections empty but non-nil. Sanitizing its own output is a no-op.
package sanitize

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/billing"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
)

// Student normalises a raw student document.
func Student(raw map[string]any) models.StudentData {
	student := models.StudentData{
		ID:            identity(raw),
		Name:          str(raw, "name"),
		Email:         str(raw, "email"),
		TotalOwed:     num(raw, "totalOwed"),
		TotalPaid:     num(raw, "totalPaid"),
		Clearance:     boolean(raw, "clearance"),
		Version:       cast.ToInt64(raw["version"]),
		CreatedAt:     timestamp(raw["createdAt"]),
		UpdatedAt:     timestamp(raw["updatedAt"]),
		Courses:       []models.Course{},
		Transactions:  []models.Transaction{},
		Notifications: []models.Notification{},
	}
	for _, item := range list(raw["courses"]) {
		student.Courses = append(student.Courses, Course(document(item)))
	}
	for _, item := range list(raw["transactions"]) {
		student.Transactions = append(student.Transactions, Transaction(document(item)))
	}
	for _, item := range list(raw["notifications"]) {
		student.Notifications = append(student.Notifications, Notification(document(item)))
	}
	if planRaw, ok := raw["paymentPlan"]; ok && planRaw != nil {
		plan := PaymentPlan(document(planRaw))
		student.PaymentPlan = &plan
	}

	student.Balance = student.TotalOwed - student.TotalPaid
	student.PaymentStatus = PaymentStatus(str(raw, "paymentStatus"), student.TotalOwed, student.TotalPaid)
	return student
}

// PaymentStatus accepts the stored label when it is known and derives one otherwise.
func PaymentStatus(label string, totalOwed, totalPaid float64) models.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "paid":
		return models.PaymentStatusPaid
	case "partial", "partially paid":
		return models.PaymentStatusPartial
	case "unpaid":
		return models.PaymentStatusUnpaid
	}
	if totalOwed == 0 && totalPaid == 0 {
		return models.PaymentStatusUnpaid
	}
	return billing.DeriveStatus(totalOwed, totalPaid)
}

// Course normalises a catalog course or an enrolled copy. Documents written before
// courses carried ids fall back to their name.
func Course(raw map[string]any) models.Course {
	course := models.Course{
		ID:        identity(raw),
		Name:      str(raw, "name"),
		Fee:       num(raw, "fee"),
		Version:   cast.ToInt64(raw["version"]),
		CreatedAt: timestamp(raw["createdAt"]),
		UpdatedAt: timestamp(raw["updatedAt"]),
		Subjects:  []models.Subject{},
		Resources: []models.Resource{},
		Tests:     []models.Test{},
	}
	if course.ID == "" {
		course.ID = course.Name
	}
	if course.Fee < 0 {
		course.Fee = 0
	}
	for _, item := range list(raw["subjects"]) {
		course.Subjects = append(course.Subjects, Subject(document(item)))
	}
	for _, item := range list(raw["resources"]) {
		r := document(item)
		course.Resources = append(course.Resources, models.Resource{
			ID:    str(r, "id"),
			Title: str(r, "title"),
			URL:   str(r, "url"),
			Kind:  str(r, "kind"),
		})
	}
	for _, item := range list(raw["tests"]) {
		t := document(item)
		course.Tests = append(course.Tests, models.Test{
			ID:          str(t, "id"),
			Title:       str(t, "title"),
			Date:        optionalTimestamp(t["date"]),
			Description: str(t, "description"),
		})
	}
	return course
}

// Subject normalises a subject; grade values of any scalar type become strings.
func Subject(raw map[string]any) models.Subject {
	subject := models.Subject{
		Name:     str(raw, "name"),
		Comments: str(raw, "comments"),
		Grades:   map[string]string{},
	}
	for k, v := range document(raw["grades"]) {
		if v == nil {
			continue
		}
		subject.Grades[k] = cast.ToString(v)
	}
	return subject
}

// Transaction normalises a ledger entry.
func Transaction(raw map[string]any) models.Transaction {
	return models.Transaction{
		ID:        str(raw, "id"),
		Amount:    num(raw, "amount"),
		Date:      timestamp(raw["date"]),
		Status:    str(raw, "status"),
		Method:    str(raw, "method"),
		Reference: str(raw, "reference"),
	}
}

// Notification normalises an inbox entry.
func Notification(raw map[string]any) models.Notification {
	return models.Notification{
		ID:      str(raw, "id"),
		Message: str(raw, "message"),
		Date:    timestamp(raw["date"]),
		Read:    boolean(raw, "read"),
	}
}

// PaymentPlan normalises an installment plan.
func PaymentPlan(raw map[string]any) models.PaymentPlan {
	plan := models.PaymentPlan{Installments: []models.Installment{}}
	for _, item := range list(raw["installments"]) {
		inst := document(item)
		plan.Installments = append(plan.Installments, models.Installment{
			Amount:  num(inst, "amount"),
			Paid:    boolean(inst, "paid"),
			DueDate: optionalTimestamp(inst["dueDate"]),
		})
	}
	return plan
}

func identity(raw map[string]any) string {
	if id := str(raw, "id"); id != "" {
		return id
	}
	return str(raw, "_id")
}

func str(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

func num(raw map[string]any, key string) float64 {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}

func boolean(raw map[string]any, key string) bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}

type timeValuer interface {
	Time() time.Time
}

// timestamp accepts time.Time, driver date types and date strings. Zero and
// unparsable values become the zero time.
func timestamp(v any) time.Time {
	var t time.Time
	switch value := v.(type) {
	case nil:
		return time.Time{}
	case time.Time:
		t = value
	case *time.Time:
		if value == nil {
			return time.Time{}
		}
		t = *value
	case timeValuer:
		t = value.Time()
	case string:
		if strings.TrimSpace(value) == "" {
			return time.Time{}
		}
		parsed, err := cast.ToTimeE(strings.TrimSpace(value))
		if err != nil {
			return time.Time{}
		}
		t = parsed
	default:
		return time.Time{}
	}
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

func optionalTimestamp(v any) *time.Time {
	t := timestamp(v)
	if t.IsZero() {
		return nil
	}
	return &t
}

// document turns any map-shaped value into map[string]any. Driver types such as
// primitive.M and primitive.D are handled; anything else yields an empty map.
func document(v any) map[string]any {
	switch value := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return value
	case primitive.D:
		out := make(map[string]any, len(value))
		for _, e := range value {
			out[e.Key] = e.Value
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return map[string]any{}
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

// list turns any slice-shaped value, such as primitive.A, into []any.
func list(v any) []any {
	switch value := v.(type) {
	case nil:
		return nil
	case []any:
		return value
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out
}
