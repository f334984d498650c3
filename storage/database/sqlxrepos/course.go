package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
)

const (
	courseColumns = `id, title, description, price, target_level, cover_image, modality, duration,
	certificate, requirements, created_at`
	lessonColumns = `id, course_id, title, video_url, duration, position, description`
)

// courseOrderColumns maps the sortable fields of a listing to their columns.
var courseOrderColumns = map[string]string{
	course.OrderByTitle:     "title",
	course.OrderByPrice:     "price",
	course.OrderByCreatedAt: "created_at",
}

type courseRow struct {
	ID           int64     `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	Price        float64   `db:"price"`
	TargetLevel  string    `db:"target_level"`
	CoverImage   string    `db:"cover_image"`
	Modality     string    `db:"modality"`
	Duration     string    `db:"duration"`
	Certificate  string    `db:"certificate"`
	Requirements string    `db:"requirements"`
	CreatedAt    time.Time `db:"created_at"`
}

func toCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:           crs.ID,
		Title:        crs.Title,
		Description:  crs.Description,
		Price:        crs.Price,
		TargetLevel:  crs.TargetLevel,
		CoverImage:   crs.CoverImage,
		Modality:     crs.Modality,
		Duration:     crs.Duration,
		Certificate:  crs.Certificate,
		Requirements: crs.Requirements,
		CreatedAt:    crs.CreatedAt.UTC(),
	}
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Price:        r.Price,
		TargetLevel:  r.TargetLevel,
		CoverImage:   r.CoverImage,
		Modality:     r.Modality,
		Duration:     r.Duration,
		Certificate:  r.Certificate,
		Requirements: r.Requirements,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type lessonRow struct {
	ID          int64  `db:"id"`
	CourseID    int64  `db:"course_id"`
	Title       string `db:"title"`
	VideoURL    string `db:"video_url"`
	Duration    string `db:"duration"`
	Position    int    `db:"position"`
	Description string `db:"description"`
}

func (r lessonRow) toLesson() course.Lesson {
	return course.Lesson(r)
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	exec := getExec(ctx, repo.db)
	q, args, err := exec.BindNamed(`
		INSERT INTO courses (title, description, price, target_level, cover_image, modality, duration,
			certificate, requirements, created_at)
		VALUES (:title, :description, :price, :target_level, :cover_image, :modality, :duration,
			:certificate, :requirements, :created_at)
		RETURNING `+courseColumns, toCourseRow(crs))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "binding course")
	}

	var row courseRow
	if err = exec.GetContext(ctx, &row, q, args...); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id int64) (course.Course, error) {
	var row courseRow
	q := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	if err := getExec(ctx, repo.db).GetContext(ctx, &row, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, ordering []core.DBOrdering) ([]course.Course, error) {
	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := courseOrderColumns[ord.Field]; ok {
			orderBy = append(orderBy, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	orderBy = append(orderBy, "id ASC")

	var rows []courseRow
	q := `SELECT ` + courseColumns + ` FROM courses ORDER BY ` + strings.Join(orderBy, ", ")
	if err := getExec(ctx, repo.db).SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	exec := getExec(ctx, repo.db)
	q, args, err := exec.BindNamed(`
		UPDATE courses SET title = :title, description = :description, price = :price,
			target_level = :target_level, cover_image = :cover_image, modality = :modality,
			duration = :duration, certificate = :certificate, requirements = :requirements
		WHERE id = :id
		RETURNING `+courseColumns, toCourseRow(crs))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "binding course")
	}

	var row courseRow
	if err = exec.GetContext(ctx, &row, q, args...); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "updating course")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int64) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkAffected(res, course.ErrNotFound)
}

func (repo courseRepository) CreateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	exec := getExec(ctx, repo.db)
	q, args, err := exec.BindNamed(`
		INSERT INTO lessons (course_id, title, video_url, duration, position, description)
		VALUES (:course_id, :title, :video_url, :duration, :position, :description)
		RETURNING `+lessonColumns, lessonRow(lsn))
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "binding lesson")
	}

	var row lessonRow
	if err = exec.GetContext(ctx, &row, q, args...); err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return row.toLesson(), nil
}

func (repo courseRepository) GetLesson(ctx context.Context, id int64) (course.Lesson, error) {
	var row lessonRow
	q := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`
	if err := getExec(ctx, repo.db).GetContext(ctx, &row, q, id); err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "getting lesson")
	}
	return row.toLesson(), nil
}

func (repo courseRepository) ListLessons(ctx context.Context, courseID int64) ([]course.Lesson, error) {
	var rows []lessonRow
	q := `SELECT ` + lessonColumns + ` FROM lessons WHERE course_id = $1 ORDER BY position ASC, id ASC`
	if err := getExec(ctx, repo.db).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.toLesson())
	}
	return lessons, nil
}

func (repo courseRepository) UpdateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	exec := getExec(ctx, repo.db)
	q, args, err := exec.BindNamed(`
		UPDATE lessons SET title = :title, video_url = :video_url, duration = :duration,
			position = :position, description = :description
		WHERE id = :id
		RETURNING `+lessonColumns, lessonRow(lsn))
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "binding lesson")
	}

	var row lessonRow
	if err = exec.GetContext(ctx, &row, q, args...); err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "updating lesson")
	}
	return row.toLesson(), nil
}

func (repo courseRepository) DeleteLesson(ctx context.Context, id int64) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return checkAffected(res, course.ErrLessonNotFound)
}
