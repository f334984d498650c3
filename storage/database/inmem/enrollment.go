package inmemdb

import (
	"context"
	"sort"

	"github.com/innovalab/center/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, e := range repo.db.enrollments {
		if e.UserID == enr.UserID && e.CourseID == enr.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}
	enr.ID = repo.db.nextID()
	repo.db.enrollments[enr.ID] = enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id int64) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) GetUserEnrollment(_ context.Context, userID, courseID int64) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.UserID == userID && enr.CourseID == courseID {
			return enr, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) SetStatus(_ context.Context, id int64, status string) (enrollment.Enrollment, error) {
	return repo.update(id, func(enr *enrollment.Enrollment) { enr.Status = status })
}

func (repo *enrollmentRepository) SetProgress(_ context.Context, id int64, progress int) (enrollment.Enrollment, error) {
	return repo.update(id, func(enr *enrollment.Enrollment) { enr.Progress = progress })
}

func (repo *enrollmentRepository) update(id int64, fn func(enr *enrollment.Enrollment)) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr, ok := repo.db.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	fn(&enr)
	enr.UpdatedAt = enrollment.NowFunc().UTC()
	repo.db.enrollments[id] = enr
	return enr, nil
}

func (repo *enrollmentRepository) UpdateProgress(_ context.Context, userID, courseID int64, progress int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, enr := range repo.db.enrollments {
		if enr.UserID == userID && enr.CourseID == courseID {
			enr.Progress = progress
			enr.UpdatedAt = enrollment.NowFunc().UTC()
			repo.db.enrollments[id] = enr
		}
	}
	return nil
}

func (repo *enrollmentRepository) DeleteEnrollment(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.enrollments[id]; !ok {
		return enrollment.ErrNotFound
	}
	delete(repo.db.enrollments, id)
	return nil
}

// sorted returns the enrollments matching keep, newest first.
func (repo *enrollmentRepository) sorted(keep func(enr enrollment.Enrollment) bool) []enrollment.Enrollment {
	enrollments := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if keep(enr) {
			enrollments = append(enrollments, enr)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if !enrollments[i].EnrolledAt.Equal(enrollments[j].EnrolledAt) {
			return enrollments[i].EnrolledAt.After(enrollments[j].EnrolledAt)
		}
		return enrollments[i].ID > enrollments[j].ID
	})
	return enrollments
}

func (repo *enrollmentRepository) ListPending(_ context.Context) ([]enrollment.PendingEnrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	pending := make([]enrollment.PendingEnrollment, 0)
	for _, enr := range repo.sorted(func(e enrollment.Enrollment) bool { return e.Status == enrollment.StatusPending }) {
		usr, crs := repo.db.users[enr.UserID], repo.db.courses[enr.CourseID]
		pending = append(pending, enrollment.PendingEnrollment{
			ID:            enr.ID,
			Names:         usr.FullName(),
			Email:         usr.Email,
			CourseTitle:   crs.Title,
			Price:         crs.Price,
			EnrolledAt:    enr.EnrolledAt,
			PaymentMethod: enr.PaymentMethod,
		})
	}
	return pending, nil
}

func (repo *enrollmentRepository) ListUserCourses(_ context.Context, userID int64) ([]enrollment.UserCourse, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]enrollment.UserCourse, 0)
	for _, enr := range repo.sorted(func(e enrollment.Enrollment) bool {
		return e.UserID == userID && e.Status == enrollment.StatusActive
	}) {
		if crs, ok := repo.db.courses[enr.CourseID]; ok {
			courses = append(courses, enrollment.UserCourse{Course: crs, Progress: enr.Progress})
		}
	}
	return courses, nil
}

func (repo *enrollmentRepository) ListCourseStudents(_ context.Context, courseID int64) ([]enrollment.CourseStudent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]enrollment.CourseStudent, 0)
	for _, enr := range repo.sorted(func(e enrollment.Enrollment) bool { return e.CourseID == courseID }) {
		usr := repo.db.users[enr.UserID]
		students = append(students, enrollment.CourseStudent{
			ID:         enr.ID,
			Names:      usr.Names,
			Surnames:   usr.Surnames,
			Email:      usr.Email,
			Status:     enr.Status,
			EnrolledAt: enr.EnrolledAt,
			Progress:   enr.Progress,
		})
	}
	return students, nil
}
