package resource

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound    = core.NewNotFoundError("Recurso no encontrado")
	ErrMissingFile = core.NewValidationError(errors.New("Debes subir un archivo."), core.FieldError{Field: "archivo", Error: "este campo es obligatorio"})
	ErrMissingURL  = core.NewValidationError(errors.New("Debes ingresar una URL válida."), core.FieldError{Field: "url_externa", Error: "este campo es obligatorio"})
)

type (
	Repository interface {
		CreateResource(ctx context.Context, res Resource) (Resource, error)
		// ListResources returns the resources of a course, newest first.
		ListResources(ctx context.Context, courseID int64) ([]Resource, error)
		DeleteResource(ctx context.Context, id int64) error
	}

	Service struct {
		repo    Repository
		courses course.Repository
	}
)

func NewService(repo Repository, courses course.Repository) *Service {
	return &Service{repo: repo, courses: courses}
}

func (svc *Service) ListByCourse(ctx context.Context, courseID int64) ([]Resource, error) {
	return svc.repo.ListResources(ctx, courseID)
}

// Add attaches a resource to a course. fileURL is where the uploaded file was stored;
// it is required for KindFile and ignored for KindLink.
func (svc *Service) Add(ctx context.Context, courseID int64, nr NewResource, fileURL string) (Resource, error) {
	if _, err := svc.courses.GetCourse(ctx, courseID); err != nil {
		return Resource{}, err
	}

	res := Resource{
		CourseID:    courseID,
		Title:       nr.Title,
		Kind:        nr.Kind,
		Description: nr.Description,
		CreatedAt:   NowFunc().UTC(),
	}
	switch nr.Kind {
	case KindFile:
		if fileURL == "" {
			return Resource{}, ErrMissingFile
		}
		res.URL = fileURL
	default:
		if nr.ExternalURL == "" {
			return Resource{}, ErrMissingURL
		}
		res.URL = nr.ExternalURL
	}
	return svc.repo.CreateResource(ctx, res)
}

// Delete only removes the row; stored files are left to the storage provider.
func (svc *Service) Delete(ctx context.Context, id int64) error {
	return svc.repo.DeleteResource(ctx, id)
}
