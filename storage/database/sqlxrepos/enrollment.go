package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core/enrollment"
)

const enrollmentColumns = `id, user_id, course_id, status, payment_method, progress, enrolled_at, updated_at`

type enrollmentRow struct {
	ID            int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	CourseID      int64     `db:"course_id"`
	Status        string    `db:"status"`
	PaymentMethod string    `db:"payment_method"`
	Progress      int       `db:"progress"`
	EnrolledAt    time.Time `db:"enrolled_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	enr := enrollment.Enrollment(r)
	enr.EnrolledAt = enr.EnrolledAt.UTC()
	enr.UpdatedAt = enr.UpdatedAt.UTC()
	return enr
}

type pendingRow struct {
	ID            int64     `db:"id"`
	Names         string    `db:"names"`
	Email         string    `db:"email"`
	CourseTitle   string    `db:"course_title"`
	Price         float64   `db:"price"`
	EnrolledAt    time.Time `db:"enrolled_at"`
	PaymentMethod string    `db:"payment_method"`
}

type userCourseRow struct {
	courseRow
	Progress int `db:"progress"`
}

type courseStudentRow struct {
	ID         int64     `db:"id"`
	Names      string    `db:"names"`
	Surnames   string    `db:"surnames"`
	Email      string    `db:"email"`
	Status     string    `db:"status"`
	EnrolledAt time.Time `db:"enrolled_at"`
	Progress   int       `db:"progress"`
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	exec := getExec(ctx, repo.db)
	q, args, err := exec.BindNamed(`
		INSERT INTO enrollments (user_id, course_id, status, payment_method, progress, enrolled_at, updated_at)
		VALUES (:user_id, :course_id, :status, :payment_method, :progress, :enrolled_at, :updated_at)
		ON CONFLICT (user_id, course_id) DO NOTHING
		RETURNING `+enrollmentColumns, enrollmentRow(enr))
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "binding enrollment")
	}

	var row enrollmentRow
	if err = exec.GetContext(ctx, &row, q, args...); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrAlreadyEnrolled, "inserting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, id int64) (enrollment.Enrollment, error) {
	var row enrollmentRow
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	if err := getExec(ctx, repo.db).GetContext(ctx, &row, q, id); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "getting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo enrollmentRepository) GetUserEnrollment(ctx context.Context, userID, courseID int64) (enrollment.Enrollment, error) {
	var row enrollmentRow
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND course_id = $2`
	if err := getExec(ctx, repo.db).GetContext(ctx, &row, q, userID, courseID); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "getting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo enrollmentRepository) SetStatus(ctx context.Context, id int64, status string) (enrollment.Enrollment, error) {
	b := newUpdateBuilder("enrollments").
		set("status", status).
		set("updated_at", enrollment.NowFunc().UTC())
	return repo.update(ctx, id, b)
}

func (repo enrollmentRepository) SetProgress(ctx context.Context, id int64, progress int) (enrollment.Enrollment, error) {
	b := newUpdateBuilder("enrollments").
		set("progress", progress).
		set("updated_at", enrollment.NowFunc().UTC())
	return repo.update(ctx, id, b)
}

func (repo enrollmentRepository) update(ctx context.Context, id int64, b *updateBuilder) (enrollment.Enrollment, error) {
	q, args := b.build(id, enrollmentColumns)
	exec := getExec(ctx, repo.db)
	var row enrollmentRow
	if err := exec.GetContext(ctx, &row, exec.Rebind(q), args...); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "updating enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo enrollmentRepository) UpdateProgress(ctx context.Context, userID, courseID int64, progress int) error {
	q := `UPDATE enrollments SET progress = $1, updated_at = $2 WHERE user_id = $3 AND course_id = $4`
	_, err := getExec(ctx, repo.db).ExecContext(ctx, q, progress, enrollment.NowFunc().UTC(), userID, courseID)
	return errors.Wrap(err, "updating progress")
}

func (repo enrollmentRepository) DeleteEnrollment(ctx context.Context, id int64) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return checkAffected(res, enrollment.ErrNotFound)
}

func (repo enrollmentRepository) ListPending(ctx context.Context) ([]enrollment.PendingEnrollment, error) {
	var rows []pendingRow
	q := `
		SELECT e.id, TRIM(u.names || ' ' || u.surnames) AS names, u.email, c.title AS course_title, c.price,
			e.enrolled_at, e.payment_method
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		JOIN courses c ON c.id = e.course_id
		WHERE e.status = $1
		ORDER BY e.enrolled_at DESC, e.id DESC`
	if err := getExec(ctx, repo.db).SelectContext(ctx, &rows, q, enrollment.StatusPending); err != nil {
		return nil, errors.Wrap(err, "listing pending enrollments")
	}
	pending := make([]enrollment.PendingEnrollment, 0, len(rows))
	for _, r := range rows {
		p := enrollment.PendingEnrollment(r)
		p.EnrolledAt = p.EnrolledAt.UTC()
		pending = append(pending, p)
	}
	return pending, nil
}

func (repo enrollmentRepository) ListUserCourses(ctx context.Context, userID int64) ([]enrollment.UserCourse, error) {
	var rows []userCourseRow
	q := `
		SELECT c.id, c.title, c.description, c.price, c.target_level, c.cover_image, c.modality, c.duration,
			c.certificate, c.requirements, c.created_at, e.progress
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.user_id = $1 AND e.status = $2
		ORDER BY e.enrolled_at DESC, c.id ASC`
	if err := getExec(ctx, repo.db).SelectContext(ctx, &rows, q, userID, enrollment.StatusActive); err != nil {
		return nil, errors.Wrap(err, "listing user courses")
	}
	courses := make([]enrollment.UserCourse, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, enrollment.UserCourse{Course: r.toCourse(), Progress: r.Progress})
	}
	return courses, nil
}

func (repo enrollmentRepository) ListCourseStudents(ctx context.Context, courseID int64) ([]enrollment.CourseStudent, error) {
	var rows []courseStudentRow
	q := `
		SELECT e.id, u.names, u.surnames, u.email, e.status, e.enrolled_at, e.progress
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		WHERE e.course_id = $1
		ORDER BY e.enrolled_at DESC, e.id DESC`
	if err := getExec(ctx, repo.db).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing course students")
	}
	students := make([]enrollment.CourseStudent, 0, len(rows))
	for _, r := range rows {
		st := enrollment.CourseStudent(r)
		st.EnrolledAt = st.EnrolledAt.UTC()
		students = append(students, st)
	}
	return students, nil
}
