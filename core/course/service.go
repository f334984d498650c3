package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound       = core.NewNotFoundError("Curso no encontrado")
	ErrLessonNotFound = core.NewNotFoundError("Lección no encontrada")
	ErrInvalidOrder   = core.NewValidationError(errors.New("Campo de ordenamiento inválido"))
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id int64) (Course, error)
		// QueryCourses orders by the given sortable fields, then by id.
		QueryCourses(ctx context.Context, ordering []core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id int64) error

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id int64) (Lesson, error)
		// ListLessons returns the lessons of a course by position.
		ListLessons(ctx context.Context, courseID int64) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id int64) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) List(ctx context.Context, ordering []core.DBOrdering) ([]Course, error) {
	for _, ord := range ordering {
		if !isSortable(ord.Field) {
			return nil, ErrInvalidOrder
		}
	}
	return svc.repo.QueryCourses(ctx, ordering)
}

func (svc *Service) Get(ctx context.Context, id int64) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// Create stores a new course; coverURL is the uploaded cover, if any.
func (svc *Service) Create(ctx context.Context, in CourseInput, coverURL string) (Course, error) {
	if coverURL == "" {
		coverURL = DefaultCoverImage
	}
	crs := Course{CreatedAt: NowFunc().UTC()}
	in.apply(&crs)
	crs.CoverImage = coverURL
	return svc.repo.CreateCourse(ctx, crs)
}

// Update overwrites a course. Without a new upload the cover falls back to
// in.CurrentImage, then to the stored one.
func (svc *Service) Update(ctx context.Context, id int64, in CourseInput, coverURL string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	in.apply(&crs)
	switch {
	case coverURL != "":
		crs.CoverImage = coverURL
	case in.CurrentImage != "":
		crs.CoverImage = in.CurrentImage
	}
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) Delete(ctx context.Context, id int64) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) Lessons(ctx context.Context, courseID int64) ([]Lesson, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.ListLessons(ctx, courseID)
}

func (svc *Service) GetLesson(ctx context.Context, id int64) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) AddLesson(ctx context.Context, courseID int64, in LessonInput) (Lesson, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Lesson{}, err
	}
	lsn := Lesson{CourseID: courseID}
	in.apply(&lsn)
	return svc.repo.CreateLesson(ctx, lsn)
}

func (svc *Service) UpdateLesson(ctx context.Context, id int64, in LessonInput) (Lesson, error) {
	lsn, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	in.apply(&lsn)
	return svc.repo.UpdateLesson(ctx, lsn)
}

func (svc *Service) DeleteLesson(ctx context.Context, id int64) error {
	return svc.repo.DeleteLesson(ctx, id)
}

func (in CourseInput) apply(crs *Course) {
	crs.Title = in.Title
	crs.Description = in.Description
	crs.Price = in.Price
	crs.TargetLevel = in.TargetLevel
	crs.Modality = in.Modality
	crs.Duration = in.Duration
	crs.Certificate = in.Certificate
	crs.Requirements = in.Requirements
}

func (in LessonInput) apply(lsn *Lesson) {
	lsn.Title = in.Title
	lsn.VideoURL = in.VideoURL
	lsn.Duration = in.Duration
	lsn.Position = in.Position
	lsn.Description = in.Description
}

func isSortable(field string) bool {
	for _, f := range SortableFields {
		if f == field {
			return true
		}
	}
	return false
}
