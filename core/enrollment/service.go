package enrollment

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/user"
)

const tempPasswordPrefix = "Innova"

var (
	NowFunc          = time.Now           // mockable
	TempPasswordFunc = randomTempPassword // mockable

	// errors
	ErrNotFound        = core.NewNotFoundError("Inscripción no encontrada")
	ErrAlreadyEnrolled = core.NewConflictError("Usuario ya inscrito.")
	ErrNamesRequired   = core.NewValidationError(
		errors.New("Nombre y apellido requeridos para nuevos usuarios."),
		core.FieldError{Field: "nombres", Error: "este campo es obligatorio"},
		core.FieldError{Field: "apellidos", Error: "este campo es obligatorio"},
	)
)

type (
	Repository interface {
		// CreateEnrollment fails with ErrAlreadyEnrolled if the user already has an enrollment in the course.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, id int64) (Enrollment, error)
		GetUserEnrollment(ctx context.Context, userID, courseID int64) (Enrollment, error)
		SetStatus(ctx context.Context, id int64, status string) (Enrollment, error)
		SetProgress(ctx context.Context, id int64, progress int) (Enrollment, error)
		// UpdateProgress is a no-op if the user has no enrollment in the course.
		UpdateProgress(ctx context.Context, userID, courseID int64, progress int) error
		DeleteEnrollment(ctx context.Context, id int64) error
		ListPending(ctx context.Context) ([]PendingEnrollment, error)
		ListUserCourses(ctx context.Context, userID int64) ([]UserCourse, error)
		ListCourseStudents(ctx context.Context, courseID int64) ([]CourseStudent, error)
	}

	// UserService is the part of the user service enrollments depend on.
	UserService interface {
		GetByID(ctx context.Context, id int64) (user.User, error)
		GetByEmail(ctx context.Context, email string) (user.User, error)
		CreateStudent(ctx context.Context, names, surnames, email, pwd string) (user.User, error)
	}

	Service struct {
		repo    Repository
		courses course.Repository
		users   UserService
		uow     core.UnitOfWork
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(
	repo Repository,
	courses course.Repository,
	users UserService,
	uow core.UnitOfWork,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:    repo,
		courses: courses,
		users:   users,
		uow:     uow,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Enroll requests a pending enrollment of userID in courseID.
// If one already exists it is returned untouched and created is false.
func (svc *Service) Enroll(ctx context.Context, userID, courseID int64, req EnrollRequest) (enr Enrollment, created bool, err error) {
	if _, err = svc.courses.GetCourse(ctx, courseID); err != nil {
		return Enrollment{}, false, err
	}
	method := req.PaymentMethod
	if method == "" {
		method = DefaultPaymentMethod
	}

	now := NowFunc().UTC()
	enr, err = svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:        userID,
		CourseID:      courseID,
		Status:        StatusPending,
		PaymentMethod: method,
		EnrolledAt:    now,
		UpdatedAt:     now,
	})
	if errors.Cause(err) == ErrAlreadyEnrolled {
		enr, err = svc.repo.GetUserEnrollment(ctx, userID, courseID)
		return enr, false, err
	}
	if err != nil {
		return Enrollment{}, false, err
	}
	return enr, true, nil
}

func (svc *Service) CheckStatus(ctx context.Context, userID, courseID int64) (Status, error) {
	enr, err := svc.repo.GetUserEnrollment(ctx, userID, courseID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Status{}, nil
		}
		return Status{}, err
	}
	status := enr.Status
	return Status{IsEnrolled: true, Status: &status}, nil
}

// Approve activates an enrollment, whatever its current status, and notifies the student.
func (svc *Service) Approve(ctx context.Context, id int64) (Enrollment, error) {
	enr, err := svc.repo.SetStatus(ctx, id, StatusActive)
	if err != nil {
		return Enrollment{}, err
	}
	svc.sendApprovalMail(ctx, enr)
	return enr, nil
}

// Reject deletes the enrollment.
func (svc *Service) Reject(ctx context.Context, id int64) error {
	return svc.repo.DeleteEnrollment(ctx, id)
}

func (svc *Service) ListPending(ctx context.Context) ([]PendingEnrollment, error) {
	return svc.repo.ListPending(ctx)
}

func (svc *Service) ListUserCourses(ctx context.Context, userID int64) ([]UserCourse, error) {
	return svc.repo.ListUserCourses(ctx, userID)
}

func (svc *Service) ListCourseStudents(ctx context.Context, courseID int64) ([]CourseStudent, error) {
	if _, err := svc.courses.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.ListCourseStudents(ctx, courseID)
}

func (svc *Service) RemoveStudent(ctx context.Context, courseID, enrollmentID int64) error {
	if _, err := svc.courseEnrollment(ctx, courseID, enrollmentID); err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, enrollmentID)
}

// SetStudentProgress is the admin's manual override of an enrollment's progress.
func (svc *Service) SetStudentProgress(ctx context.Context, courseID, enrollmentID int64, progress int) (Enrollment, error) {
	if _, err := svc.courseEnrollment(ctx, courseID, enrollmentID); err != nil {
		return Enrollment{}, err
	}
	return svc.repo.SetProgress(ctx, enrollmentID, progress)
}

// AdminDirectEnroll enrolls the owner of de.Email straight into the active state,
// creating a local account with a temporary password when the email is unknown.
// Account and enrollment are created atomically; the password is only ever returned here.
func (svc *Service) AdminDirectEnroll(ctx context.Context, courseID int64, de DirectEnroll) (DirectEnrollResult, error) {
	if _, err := svc.courses.GetCourse(ctx, courseID); err != nil {
		return DirectEnrollResult{}, err
	}

	var res DirectEnrollResult
	err := svc.uow.Do(ctx, func(ctx context.Context) error {
		res = DirectEnrollResult{}
		usr, err := svc.users.GetByEmail(ctx, de.Email)
		switch {
		case err == nil:
		case core.IsNotFound(err):
			if de.Names == "" || de.Surnames == "" {
				return ErrNamesRequired
			}
			pwd, err := TempPasswordFunc()
			if err != nil {
				return errors.Wrap(err, "generating temporary password")
			}
			if usr, err = svc.users.CreateStudent(ctx, de.Names, de.Surnames, de.Email, pwd); err != nil {
				return err
			}
			res.IsNewUser = true
			res.Credentials = &Credentials{Email: usr.Email, Password: pwd}
		default:
			return err
		}

		now := NowFunc().UTC()
		res.Enrollment, err = svc.repo.CreateEnrollment(ctx, Enrollment{
			UserID:        usr.ID,
			CourseID:      courseID,
			Status:        StatusActive,
			PaymentMethod: DefaultPaymentMethod,
			EnrolledAt:    now,
			UpdatedAt:     now,
		})
		return err
	})
	if err != nil {
		return DirectEnrollResult{}, err
	}
	return res, nil
}

func (svc *Service) courseEnrollment(ctx context.Context, courseID, enrollmentID int64) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.CourseID != courseID {
		return Enrollment{}, ErrNotFound
	}
	return enr, nil
}

func (svc *Service) sendApprovalMail(ctx context.Context, enr Enrollment) {
	if svc.mailSvc == nil {
		return
	}
	usr, err := svc.users.GetByID(ctx, enr.UserID)
	if err != nil {
		svc.logger.Error("approval mail: fetching user", err)
		return
	}
	crs, err := svc.courses.GetCourse(ctx, enr.CourseID)
	if err != nil {
		svc.logger.Error("approval mail: fetching course", err, core.LogPerson{ID: strconv.FormatInt(usr.ID, 10), Email: usr.Email})
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Tu inscripción fue aprobada",
		TemplateName: "enrollment_approved",
		TemplateData: struct {
			Name        string
			CourseTitle string
			CourseID    int64
		}{Name: usr.Names, CourseTitle: crs.Title, CourseID: crs.ID},
	})
}

// randomTempPassword returns "Innova" followed by 4 random digits (1000-9999).
func randomTempPassword() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return tempPasswordPrefix + strconv.FormatInt(n.Int64()+1000, 10), nil
}
