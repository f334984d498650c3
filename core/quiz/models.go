package quiz

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
)

// States
const (
	StateDraft     = "borrador"
	StatePublished = "publicado"
)

// Question kinds
const (
	KindMultiple = "multiple"
	KindText     = "texto"
)

var deadlineLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02"}

type Quiz struct {
	ID              int64      `json:"id"`
	CourseID        int64      `json:"course_id"`
	Title           string     `json:"titulo"`
	Description     string     `json:"descripcion"`
	DurationMinutes int        `json:"duracion_minutos"`
	MinScore        int        `json:"nota_minima"`
	Deadline        *time.Time `json:"fecha_limite"`
	State           string     `json:"estado"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (q *Quiz) IsPublished() bool { return q.State == StatePublished }

// IsClosed reports whether the deadline, if any, is past at t.
func (q *Quiz) IsClosed(t time.Time) bool {
	return q.Deadline != nil && t.After(*q.Deadline)
}

type Question struct {
	ID        int64    `json:"id"`
	QuizID    int64    `json:"quiz_id"`
	Statement string   `json:"enunciado"`
	Kind      string   `json:"tipo"`
	Points    int      `json:"puntos"`
	Position  int      `json:"orden"`
	Options   []Option `json:"options"`
}

// Option is a choice of a multiple question, or the canonical answer of a text question.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"texto_opcion"`
	IsCorrect  bool   `json:"es_correcta"`
}

type Attempt struct {
	ID          int64     `json:"id"`
	QuizID      int64     `json:"quiz_id"`
	StudentID   int64     `json:"student_id"`
	Score       int       `json:"score"`
	Approved    bool      `json:"aprobado"`
	AttemptedAt time.Time `json:"fecha_intento"`
}

// Details is a quiz with its questions, as shown in the editor and to students taking it.
type Details struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// StudentQuiz is a quiz of a course with the caller's result, if they attempted it.
type StudentQuiz struct {
	Quiz
	Score    *int  `json:"nota_obtenida"`
	Approved *bool `json:"estado_aprobacion"`
}

// CourseResult is an attempt as listed in the admin grade book.
type CourseResult struct {
	ID           int64     `json:"id"`
	StudentNames string    `json:"student_names"`
	Email        string    `json:"email"`
	QuizTitle    string    `json:"examen_nombre"`
	Score        int       `json:"nota"`
	Approved     bool      `json:"aprobado"`
	AttemptedAt  time.Time `json:"fecha"`
	Progress     int       `json:"progreso_total"`
}

// Result is what a student gets back after submitting a quiz.
type Result struct {
	Score       int  `json:"score"`
	Approved    bool `json:"aprobado"`
	NewProgress int  `json:"nuevoProgreso"`
}

// ID is an identifier sent by clients either as a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(core.CleanString(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "id must be a number or a string")
	}
	*id = ID(n.String())
	return nil
}

// Int64 parses the id; ok is false if it is not an integer.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

func (id ID) Matches(n int64) bool {
	return string(id) == strconv.FormatInt(n, 10)
}

type Answer struct {
	QuestionID ID     `json:"questionId"`
	OptionID   ID     `json:"optionId"`
	TextValue  string `json:"textValue"`
}

type Submission struct {
	QuizID  ID       `json:"quizId" validate:"required"`
	Answers []Answer `json:"answers"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	return validate.Struct(s)
}

type NewQuiz struct {
	Title           string `json:"titulo" validate:"required,notblank,max=200"`
	Description     string `json:"descripcion"`
	DurationMinutes int    `json:"duracion_minutos" validate:"gte=0"`
	MinScore        int    `json:"nota_minima" validate:"gte=0"`
	Deadline        string `json:"fecha_limite"`

	deadline *time.Time
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.Description = core.CleanString(nq.Description)
	nq.Deadline = core.CleanString(nq.Deadline)
	if err := validate.Struct(nq); err != nil {
		return err
	}

	nq.deadline = nil
	if nq.Deadline == "" {
		return nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, nq.Deadline); err == nil {
			t = t.UTC()
			nq.deadline = &t
			return nil
		}
	}
	return core.NewValidationError(
		errors.New("Fecha límite inválida"),
		core.FieldError{Field: "fecha_limite", Error: "formato de fecha inválido"},
	)
}

// ParsedDeadline is only set once Validate succeeded.
func (nq *NewQuiz) ParsedDeadline() *time.Time { return nq.deadline }

type StateInput struct {
	State string `json:"estado" validate:"required,oneof=borrador publicado"`
}

func (si *StateInput) Validate(validate *validator.Validate) error {
	si.State = core.CleanString(si.State, true /* lower */)
	return validate.Struct(si)
}

type NewOption struct {
	Text      string `json:"texto" validate:"required,notblank"`
	IsCorrect bool   `json:"es_correcta"`
}

type NewQuestion struct {
	Statement string      `json:"enunciado" validate:"required,notblank"`
	Kind      string      `json:"tipo" validate:"required,oneof=multiple texto"`
	Points    int         `json:"puntos" validate:"gt=0"`
	Position  int         `json:"orden" validate:"gte=0"`
	Options   []NewOption `json:"opciones" validate:"required,min=1,dive"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Statement = core.CleanString(nq.Statement)
	nq.Kind = core.CleanString(nq.Kind, true /* lower */)
	for i := range nq.Options {
		nq.Options[i].Text = core.CleanString(nq.Options[i].Text)
	}
	return validate.Struct(nq)
}
