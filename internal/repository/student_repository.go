package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/sanitize"
)

const studentColumns = "id, version, document, created_at, updated_at"

// StudentRepository stores student documents as JSONB rows.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters, newest first.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentData, int, error) {
	where := ""
	var args []interface{}
	if filter.Search != "" {
		where = " WHERE (LOWER(document->>'name') LIKE $1 OR LOWER(document->>'email') LIKE $1)"
		args = append(args, likePattern(filter.Search))
	}
	page, size := normalisePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM students%s ORDER BY created_at DESC LIMIT %d OFFSET %d", studentColumns, where, size, offset)
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	students := make([]models.StudentData, 0, len(rows))
	for _, row := range rows {
		raw, err := row.raw()
		if err != nil {
			return nil, 0, err
		}
		students = append(students, sanitize.Student(raw))
	}
	return students, total, nil
}

// ListIDs returns every student id in creation order.
func (r *StudentRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM students ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("list student ids: %w", err)
	}
	return ids, nil
}

// FindByID fetches and sanitises a student document.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentData, error) {
	var row documentRow
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	raw, err := row.raw()
	if err != nil {
		return nil, err
	}
	student := sanitize.Student(raw)
	return &student, nil
}

// Create inserts a new student document at version 1.
func (r *StudentRepository) Create(ctx context.Context, student *models.StudentData) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	student.Version = 1

	doc, err := json.Marshal(student)
	if err != nil {
		return fmt.Errorf("encode student: %w", err)
	}
	const query = `INSERT INTO students (id, version, document, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, student.ID, student.Version, doc, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Save writes the document only if the stored version still matches and bumps it.
func (r *StudentRepository) Save(ctx context.Context, student *models.StudentData) error {
	expected := student.Version
	next := *student
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode student: %w", err)
	}
	const query = `UPDATE students SET document = $1, version = $2, updated_at = $3 WHERE id = $4 AND version = $5`
	res, err := r.db.ExecContext(ctx, query, doc, next.Version, next.UpdatedAt, next.ID, expected)
	if err != nil {
		return fmt.Errorf("save student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save student: %w", err)
	}
	if affected == 0 {
		return ErrStaleWrite
	}
	*student = next
	return nil
}
