// Package mongostore keeps student and course documents in MongoDB collections.
// It honours the same contract as the Postgres repositories: sanitised reads,
// version-conditional saves and the repository sentinel errors.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/repository"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/sanitize"
)

const (
	studentsCollection = "students"
	coursesCollection  = "courses"
)

func page(p, size int) (int64, int64) {
	if p < 1 {
		p = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return int64((p - 1) * size), int64(size)
}

func searchFilter(search string, fields ...string) bson.M {
	search = strings.TrimSpace(search)
	if search == "" {
		return bson.M{}
	}
	rx := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: rx})
	}
	return bson.M{"$or": or}
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]bson.M, error) {
	defer cur.Close(ctx)
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// StudentStore persists student documents.
type StudentStore struct {
	c *mongo.Collection
}

// NewStudentStore binds the store to the students collection.
func NewStudentStore(db *mongo.Database) *StudentStore {
	return &StudentStore{c: db.Collection(studentsCollection)}
}

// List returns students matching the filter, newest first.
func (s *StudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentData, int, error) {
	query := searchFilter(filter.Search, "name", "email")
	skip, limit := page(filter.Page, filter.PageSize)
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(limit)

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	docs, err := decodeAll(ctx, cur)
	if err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	total, err := s.c.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	out := make([]models.StudentData, 0, len(docs))
	for _, doc := range docs {
		out = append(out, sanitize.Student(doc))
	}
	return out, int(total), nil
}

// ListIDs returns every student id in creation order.
func (s *StudentStore) ListIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list student ids: %w", err)
	}
	docs, err := decodeAll(ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("list student ids: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id := sanitize.Student(doc).ID; id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// FindByID fetches one student document.
func (s *StudentStore) FindByID(ctx context.Context, id string) (*models.StudentData, error) {
	var doc bson.M
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	student := sanitize.Student(doc)
	return &student, nil
}

// Create inserts a student document at version 1.
func (s *StudentStore) Create(ctx context.Context, student *models.StudentData) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	student.Version = 1
	if _, err := s.c.InsertOne(ctx, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Save replaces the document only while its stored version is unchanged.
func (s *StudentStore) Save(ctx context.Context, student *models.StudentData) error {
	expected := student.Version
	next := *student
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC()

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": next.ID, "version": expected}, next)
	if err != nil {
		return fmt.Errorf("save student: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrStaleWrite
	}
	*student = next
	return nil
}

// CourseStore persists catalog courses.
type CourseStore struct {
	c *mongo.Collection
}

// NewCourseStore binds the store to the courses collection.
func NewCourseStore(db *mongo.Database) *CourseStore {
	return &CourseStore{c: db.Collection(coursesCollection)}
}

// List returns catalog courses ordered by name.
func (s *CourseStore) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	query := searchFilter(filter.Search, "name")
	skip, limit := page(filter.Page, filter.PageSize)
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetSkip(skip).SetLimit(limit)

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	docs, err := decodeAll(ctx, cur)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	total, err := s.c.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	out := make([]models.Course, 0, len(docs))
	for _, doc := range docs {
		out = append(out, sanitize.Course(doc))
	}
	return out, int(total), nil
}

// FindByID fetches one catalog course.
func (s *CourseStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var doc bson.M
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	course := sanitize.Course(doc)
	return &course, nil
}

// Create inserts a course at version 1.
func (s *CourseStore) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	course.Version = 1
	if _, err := s.c.InsertOne(ctx, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Save replaces the course while its stored version is unchanged.
func (s *CourseStore) Save(ctx context.Context, course *models.Course) error {
	expected := course.Version
	next := *course
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC()

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": next.ID, "version": expected}, next)
	if err != nil {
		return fmt.Errorf("save course: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrStaleWrite
	}
	*course = next
	return nil
}

// Delete removes a catalog course.
func (s *CourseStore) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes the list queries sort and filter on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(studentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("student indexes: %w", err)
	}
	if _, err := db.Collection(coursesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}},
	}); err != nil {
		return fmt.Errorf("course indexes: %w", err)
	}
	return nil
}
