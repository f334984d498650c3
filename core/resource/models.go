package resource

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/innovalab/center/core"
)

// Kinds
const (
	KindFile = "archivo"
	KindLink = "link"
)

// Resource is supplementary course material: an uploaded file or an external link.
type Resource struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"titulo"`
	Kind        string    `json:"tipo"`
	URL         string    `json:"url_recurso"`
	Description string    `json:"descripcion"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewResource is submitted as a multipart form; the file itself travels in the "archivo" field.
type NewResource struct {
	Title       string `json:"titulo" form:"titulo" validate:"required,notblank,max=200"`
	Kind        string `json:"tipo" form:"tipo" validate:"required,oneof=archivo link"`
	ExternalURL string `json:"url_externa" form:"url_externa" validate:"omitempty,url"`
	Description string `json:"descripcion" form:"descripcion"`
}

func (nr *NewResource) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Kind = core.CleanString(nr.Kind, true /* lower */)
	nr.ExternalURL = core.CleanString(nr.ExternalURL)
	nr.Description = core.CleanString(nr.Description)
	return validate.Struct(nr)
}
