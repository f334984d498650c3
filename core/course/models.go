package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/innovalab/center/core"
)

// DefaultCoverImage is used when a course is created without an uploaded cover.
const DefaultCoverImage = "https://via.placeholder.com/300"

// Sortable fields of a course listing.
const (
	OrderByTitle     = "titulo"
	OrderByPrice     = "precio"
	OrderByCreatedAt = "created_at"
)

var SortableFields = []string{OrderByTitle, OrderByPrice, OrderByCreatedAt}

type Course struct {
	ID           int64     `json:"id"`
	Title        string    `json:"titulo"`
	Description  string    `json:"descripcion"`
	Price        float64   `json:"precio"`
	TargetLevel  string    `json:"nivel_objetivo"`
	CoverImage   string    `json:"imagen_portada"`
	Modality     string    `json:"modalidad"`
	Duration     string    `json:"duracion"`
	Certificate  string    `json:"certificado"`
	Requirements string    `json:"requisitos"`
	CreatedAt    time.Time `json:"created_at"`
}

type Lesson struct {
	ID          int64  `json:"id"`
	CourseID    int64  `json:"course_id"`
	Title       string `json:"titulo"`
	VideoURL    string `json:"video_url"`
	Duration    string `json:"duracion"`
	Position    int    `json:"orden"`
	Description string `json:"descripcion"`
}

// CourseInput is what an admin submits to create or edit a course, as JSON or multipart form.
type CourseInput struct {
	Title        string  `json:"titulo" form:"titulo" validate:"required,notblank,max=200"`
	Description  string  `json:"descripcion" form:"descripcion"`
	Price        float64 `json:"precio" form:"precio" validate:"gte=0"`
	TargetLevel  string  `json:"nivel_objetivo" form:"nivel_objetivo"`
	CurrentImage string  `json:"imagen_actual" form:"imagen_actual"`
	Modality     string  `json:"modalidad" form:"modalidad"`
	Duration     string  `json:"duracion" form:"duracion"`
	Certificate  string  `json:"certificado" form:"certificado"`
	Requirements string  `json:"requisitos" form:"requisitos"`
}

func (in *CourseInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Description = core.CleanString(in.Description)
	in.TargetLevel = core.CleanString(in.TargetLevel)
	in.CurrentImage = core.CleanString(in.CurrentImage)
	in.Modality = core.CleanString(in.Modality)
	in.Duration = core.CleanString(in.Duration)
	in.Certificate = core.CleanString(in.Certificate)
	in.Requirements = core.CleanString(in.Requirements)
	return validate.Struct(in)
}

type LessonInput struct {
	Title       string `json:"titulo" validate:"required,notblank,max=200"`
	VideoURL    string `json:"video_url" validate:"omitempty,url"`
	Duration    string `json:"duracion"`
	Position    int    `json:"orden" validate:"gte=0"`
	Description string `json:"descripcion"`
}

func (in *LessonInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.VideoURL = core.CleanString(in.VideoURL)
	in.Duration = core.CleanString(in.Duration)
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}
