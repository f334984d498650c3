package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs.ID = repo.db.nextID()
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int64) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.mutex.RLock()
	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, crs)
	}
	repo.db.mutex.RUnlock()

	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		for _, ord := range ordering {
			cmp := compareCourses(a, b, ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return a.ID < b.ID
	})
	return courses, nil
}

func compareCourses(a, b course.Course, field string) int {
	switch field {
	case course.OrderByTitle:
		return strings.Compare(a.Title, b.Title)
	case course.OrderByPrice:
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
	case course.OrderByCreatedAt:
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

// DeleteCourse cascades to everything attached to the course.
func (repo *courseRepository) DeleteCourse(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)
	for k, lsn := range repo.db.lessons {
		if lsn.CourseID == id {
			delete(repo.db.lessons, k)
		}
	}
	for k, res := range repo.db.resources {
		if res.CourseID == id {
			delete(repo.db.resources, k)
		}
	}
	for k, enr := range repo.db.enrollments {
		if enr.CourseID == id {
			delete(repo.db.enrollments, k)
		}
	}
	for k, qz := range repo.db.quizzes {
		if qz.CourseID == id {
			repo.db.deleteQuiz(k)
		}
	}
	return nil
}

func (repo *courseRepository) CreateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[lsn.CourseID]; !ok {
		return course.Lesson{}, course.ErrNotFound
	}
	lsn.ID = repo.db.nextID()
	repo.db.lessons[lsn.ID] = lsn
	return lsn, nil
}

func (repo *courseRepository) GetLesson(_ context.Context, id int64) (course.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if lsn, ok := repo.db.lessons[id]; ok {
		return lsn, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) ListLessons(_ context.Context, courseID int64) ([]course.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lessons := make([]course.Lesson, 0)
	for _, lsn := range repo.db.lessons {
		if lsn.CourseID == courseID {
			lessons = append(lessons, lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Position != lessons[j].Position {
			return lessons[i].Position < lessons[j].Position
		}
		return lessons[i].ID < lessons[j].ID
	})
	return lessons, nil
}

func (repo *courseRepository) UpdateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.lessons[lsn.ID]; !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	repo.db.lessons[lsn.ID] = lsn
	return lsn, nil
}

func (repo *courseRepository) DeleteLesson(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.lessons[id]; !ok {
		return course.ErrLessonNotFound
	}
	delete(repo.db.lessons, id)
	return nil
}
