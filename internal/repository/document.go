package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound is returned when no document exists for the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrStaleWrite is returned when a conditional save finds a newer version stored.
	ErrStaleWrite = errors.New("document version is stale")
)

// documentRow is the shared shape of the students and courses tables.
type documentRow struct {
	ID        string    `db:"id"`
	Version   int64     `db:"version"`
	Document  []byte    `db:"document"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// raw decodes the JSONB payload and overlays the column values, which win over
// whatever the payload carries.
func (r documentRow) raw() (map[string]any, error) {
	out := map[string]any{}
	if len(r.Document) > 0 {
		if err := json.Unmarshal(r.Document, &out); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", r.ID, err)
		}
		if out == nil {
			out = map[string]any{}
		}
	}
	out["id"] = r.ID
	out["version"] = r.Version
	out["createdAt"] = r.CreatedAt
	out["updatedAt"] = r.UpdatedAt
	return out, nil
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// schema creates the document tables when they are missing.
const schema = `
CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    version BIGINT NOT NULL DEFAULT 1,
    document JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS courses (
    id TEXT PRIMARY KEY,
    version BIGINT NOT NULL DEFAULT 1,
    document JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS students_name_idx ON students ((LOWER(document->>'name')));
`

// Migrate applies the document schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
