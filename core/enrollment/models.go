package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
)

// Statuses. A rejected enrollment is deleted, so it has no status of its own.
const (
	StatusPending = "pendiente"
	StatusActive  = "activo"
)

const DefaultPaymentMethod = "manual"

type Enrollment struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	CourseID      int64     `json:"course_id"`
	Status        string    `json:"estado"`
	PaymentMethod string    `json:"metodo_pago"`
	Progress      int       `json:"progreso"`
	EnrolledAt    time.Time `json:"enrolled_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Status is what a student sees about their own enrollment in a course.
// Status.Status is nil when there is no enrollment.
type Status struct {
	IsEnrolled bool    `json:"isEnrolled"`
	Status     *string `json:"status"`
}

// PendingEnrollment is a row of the admin payment-confirmation queue.
type PendingEnrollment struct {
	ID            int64     `json:"id"`
	Names         string    `json:"names"`
	Email         string    `json:"email"`
	CourseTitle   string    `json:"curso_titulo"`
	Price         float64   `json:"precio"`
	EnrolledAt    time.Time `json:"enrolled_at"`
	PaymentMethod string    `json:"metodo_pago"`
}

// UserCourse is an active course of a student along with their progress in it.
type UserCourse struct {
	course.Course
	Progress int `json:"progreso"`
}

// CourseStudent is an enrolled student as listed to admins; ID is the enrollment's.
type CourseStudent struct {
	ID         int64     `json:"id"`
	Names      string    `json:"names"`
	Surnames   string    `json:"lastNames"`
	Email      string    `json:"email"`
	Status     string    `json:"status"`
	EnrolledAt time.Time `json:"enrollment_date"`
	Progress   int       `json:"progress"`
}

type EnrollRequest struct {
	PaymentMethod string `json:"metodo_pago" validate:"max=50"`
}

func (er *EnrollRequest) Validate(validate *validator.Validate) error {
	er.PaymentMethod = core.CleanString(er.PaymentMethod)
	return validate.Struct(er)
}

// DirectEnroll is an admin's express enrollment; names are only needed for unknown emails.
type DirectEnroll struct {
	Email    string `json:"email" validate:"required,email"`
	Names    string `json:"nombres"`
	Surnames string `json:"apellidos"`
}

func (de *DirectEnroll) Validate(validate *validator.Validate) error {
	de.Email = core.CleanString(de.Email, true /* lower */)
	de.Names = core.CleanString(de.Names)
	de.Surnames = core.CleanString(de.Surnames)
	return validate.Struct(de)
}

// Credentials of an account created by AdminDirectEnroll. They are only ever returned once.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type DirectEnrollResult struct {
	Enrollment  Enrollment   `json:"enrollment"`
	IsNewUser   bool         `json:"isNewUser"`
	Credentials *Credentials `json:"credentials"`
}

type ProgressInput struct {
	Progress *int `json:"progreso" validate:"required,min=0,max=100"`
}

func (pi *ProgressInput) Validate(validate *validator.Validate) error {
	return validate.Struct(pi)
}
