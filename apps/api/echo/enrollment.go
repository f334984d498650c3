package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core/enrollment"
)

type enrollResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (s *server) registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	admin := adminMiddleware()
	eg := g.Group("/enrollments", jwt)

	eg.GET("/user/:userId", s.listUserCourses, selfOrAdminMiddleware("userId"))
	eg.GET("/courses/:courseId/check-enrollment", s.checkEnrollment)
	eg.POST("/courses/:courseId/enroll", s.requestEnrollment)

	eg.GET("/pending", s.listPendingEnrollments, admin)
	eg.PATCH("/:id/approve", s.approveEnrollment, admin)
	eg.DELETE("/:id/reject", s.rejectEnrollment, admin)
}

// enroll binds the optional payment method and enrolls the caller in the course identified by param.
func (s *server) enroll(ctx echo.Context, param string) (enrollment.Enrollment, bool, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return enrollment.Enrollment{}, false, errors.Wrap(err, "getting context claims")
	}
	courseID, err := pathID(ctx, param)
	if err != nil {
		return enrollment.Enrollment{}, false, err
	}
	var data enrollment.EnrollRequest
	if ctx.Request().ContentLength != 0 {
		if err = ctx.Bind(&data); err != nil {
			return enrollment.Enrollment{}, false, errors.Wrap(err, "binding to EnrollRequest")
		}
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return enrollment.Enrollment{}, false, err
	}
	enr, created, err := s.deps.EnrollmentSvc.Enroll(ctx.Request().Context(), claims.ID, courseID, data)
	if err != nil {
		return enrollment.Enrollment{}, false, errors.Wrap(err, "enrolling")
	}
	return enr, created, nil
}

// enrollInCourse is the course page's enroll button.
func (s *server) enrollInCourse(ctx echo.Context) error {
	_, created, err := s.enroll(ctx, "id")
	if err != nil {
		return err
	}
	if !created {
		return enrollment.ErrAlreadyEnrolled
	}
	return ctx.JSON(http.StatusCreated, messageResponse{Message: "Inscrito con éxito"})
}

// requestEnrollment reports the status of the enrollment, whether it was just created or not.
func (s *server) requestEnrollment(ctx echo.Context) error {
	enr, created, err := s.enroll(ctx, "courseId")
	if err != nil {
		return err
	}
	if !created {
		return ctx.JSON(http.StatusBadRequest, enrollResponse{Message: "Solicitud ya registrada.", Status: enr.Status})
	}
	return ctx.JSON(http.StatusCreated, enrollResponse{Message: "Registrado correctamente", Status: enr.Status})
}

func (s *server) checkCourseEnrollment(ctx echo.Context) error {
	return s.respondEnrollmentStatus(ctx, "id")
}

func (s *server) checkEnrollment(ctx echo.Context) error {
	return s.respondEnrollmentStatus(ctx, "courseId")
}

func (s *server) respondEnrollmentStatus(ctx echo.Context, param string) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	courseID, err := pathID(ctx, param)
	if err != nil {
		return err
	}
	status, err := s.deps.EnrollmentSvc.CheckStatus(ctx.Request().Context(), claims.ID, courseID)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (s *server) listUserCourses(ctx echo.Context) error {
	userID, err := pathID(ctx, "userId")
	if err != nil {
		return err
	}
	courses, err := s.deps.EnrollmentSvc.ListUserCourses(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "listing user courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (s *server) listPendingEnrollments(ctx echo.Context) error {
	pending, err := s.deps.EnrollmentSvc.ListPending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing pending enrollments")
	}
	return ctx.JSON(http.StatusOK, pending)
}

func (s *server) approveEnrollment(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err = s.deps.EnrollmentSvc.Approve(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "approving enrollment")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Aprobada"})
}

func (s *server) rejectEnrollment(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.deps.EnrollmentSvc.Reject(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "rejecting enrollment")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Rechazada"})
}
