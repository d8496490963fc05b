package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/repository"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

type fakeStudentStore struct {
	mu       sync.Mutex
	students map[string]models.StudentData
	saveErr  error
	findErr  error
	// staleSaves makes the next n saves lose the version race.
	staleSaves int
	saves      int
	nextID     int
}

func newFakeStudentStore(students ...models.StudentData) *fakeStudentStore {
	store := &fakeStudentStore{students: map[string]models.StudentData{}}
	for _, s := range students {
		if s.Version == 0 {
			s.Version = 1
		}
		store.students[s.ID] = s
	}
	return store
}

func (f *fakeStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentData, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.StudentData, 0, len(f.students))
	for _, s := range f.students {
		if filter.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeStudentStore) ListIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.students))
	for id := range f.students {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStudentStore) FindByID(ctx context.Context, id string) (*models.StudentData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	s, ok := f.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStudentStore) Create(ctx context.Context, student *models.StudentData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if student.ID == "" {
		f.nextID++
		student.ID = fmt.Sprintf("student-%d", f.nextID)
	}
	student.Version = 1
	student.CreatedAt = time.Now().UTC()
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentStore) Save(ctx context.Context, student *models.StudentData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.staleSaves > 0 {
		f.staleSaves--
		return repository.ErrStaleWrite
	}
	current, ok := f.students[student.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != student.Version {
		return repository.ErrStaleWrite
	}
	student.Version++
	f.students[student.ID] = *student
	f.saves++
	return nil
}

func (f *fakeStudentStore) get(id string) models.StudentData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.students[id]
}

type fakeCourseStore struct {
	courses map[string]models.Course
	nextID  int
}

func newFakeCourseStore(courses ...models.Course) *fakeCourseStore {
	store := &fakeCourseStore{courses: map[string]models.Course{}}
	for _, c := range courses {
		if c.Version == 0 {
			c.Version = 1
		}
		store.courses[c.ID] = c
	}
	return store
}

func (f *fakeCourseStore) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	out := make([]models.Course, 0, len(f.courses))
	for _, c := range f.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (f *fakeCourseStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f *fakeCourseStore) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		f.nextID++
		course.ID = fmt.Sprintf("course-%d", f.nextID)
	}
	course.Version = 1
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourseStore) Save(ctx context.Context, course *models.Course) error {
	current, ok := f.courses[course.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != course.Version {
		return repository.ErrStaleWrite
	}
	course.Version++
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourseStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.courses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.courses, id)
	return nil
}

type fakeCacheRepo struct {
	mu      sync.Mutex
	values  map[string][]byte
	deleted []string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{values: map[string][]byte{}}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.values[key] = raw
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.values {
		if key == pattern || (strings.HasSuffix(pattern, "*") && strings.HasPrefix(key, prefix)) {
			delete(f.values, key)
		}
	}
	return nil
}

func (f *fakeCacheRepo) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	return ok
}
