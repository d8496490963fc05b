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

// CourseRepository stores catalog course documents as JSONB rows.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns catalog courses ordered by name.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	where := ""
	var args []interface{}
	if filter.Search != "" {
		where = " WHERE LOWER(document->>'name') LIKE $1"
		args = append(args, likePattern(filter.Search))
	}
	page, size := normalisePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, version, document, created_at, updated_at FROM courses%s ORDER BY document->>'name' ASC LIMIT %d OFFSET %d", where, size, offset)
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	courses := make([]models.Course, 0, len(rows))
	for _, row := range rows {
		raw, err := row.raw()
		if err != nil {
			return nil, 0, err
		}
		courses = append(courses, sanitize.Course(raw))
	}
	return courses, total, nil
}

// FindByID fetches a catalog course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var row documentRow
	if err := r.db.GetContext(ctx, &row, "SELECT id, version, document, created_at, updated_at FROM courses WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	raw, err := row.raw()
	if err != nil {
		return nil, err
	}
	course := sanitize.Course(raw)
	return &course, nil
}

// Create inserts a course at version 1.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	course.Version = 1

	doc, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("encode course: %w", err)
	}
	const query = `INSERT INTO courses (id, version, document, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, course.ID, course.Version, doc, course.CreatedAt, course.UpdatedAt); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Save performs a version-conditional update.
func (r *CourseRepository) Save(ctx context.Context, course *models.Course) error {
	expected := course.Version
	next := *course
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode course: %w", err)
	}
	const query = `UPDATE courses SET document = $1, version = $2, updated_at = $3 WHERE id = $4 AND version = $5`
	res, err := r.db.ExecContext(ctx, query, doc, next.Version, next.UpdatedAt, next.ID, expected)
	if err != nil {
		return fmt.Errorf("save course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save course: %w", err)
	}
	if affected == 0 {
		return ErrStaleWrite
	}
	*course = next
	return nil
}

// Delete removes a catalog course. Enrolled copies are unaffected.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
