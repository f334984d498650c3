package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/enrollment"
)

const coverImageField = "imagen"

type createdResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func (s *server) registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	admin := adminMiddleware()
	cg := g.Group("/courses")

	// public endpoints
	cg.GET("", s.listCourses)
	cg.GET("/:id", s.getCourse)
	cg.GET("/:id/lessons", s.listLessons)
	cg.GET("/lessons/:id", s.getLesson)

	// student endpoints
	cg.POST("/:id/enroll", s.enrollInCourse, jwt)
	cg.GET("/:id/check-enrollment", s.checkCourseEnrollment, jwt)

	// admin endpoints
	cg.POST("", s.createCourse, jwt, admin)
	cg.PUT("/:id", s.updateCourse, jwt, admin)
	cg.DELETE("/:id", s.deleteCourse, jwt, admin)

	cg.POST("/:id/lessons", s.addLesson, jwt, admin)
	cg.PUT("/lessons/:id", s.updateLesson, jwt, admin)
	cg.DELETE("/lessons/:id", s.deleteLesson, jwt, admin)

	cg.GET("/:id/students", s.listCourseStudents, jwt, admin)
	cg.POST("/:id/students", s.directEnroll, jwt, admin)
	cg.PUT("/:id/students/:enrollmentId", s.setStudentProgress, jwt, admin)
	cg.DELETE("/:id/students/:enrollmentId", s.removeStudent, jwt, admin)
}

// Courses

func (s *server) listCourses(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)
	courses, err := s.deps.CourseSvc.List(ctx.Request().Context(), ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (s *server) getCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	crs, err := s.deps.CourseSvc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (s *server) createCourse(ctx echo.Context) error {
	var data course.CourseInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseInput")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	coverURL, err := s.saveUpload(ctx, coverImageField)
	if err != nil {
		return errors.Wrap(err, "saving cover image")
	}
	crs, err := s.deps.CourseSvc.Create(ctx.Request().Context(), data, coverURL)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, createdResponse{Message: "Curso creado", ID: crs.ID})
}

func (s *server) updateCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.CourseInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseInput")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	coverURL, err := s.saveUpload(ctx, coverImageField)
	if err != nil {
		return errors.Wrap(err, "saving cover image")
	}
	if _, err = s.deps.CourseSvc.Update(ctx.Request().Context(), id, data, coverURL); err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Curso actualizado correctamente"})
}

func (s *server) deleteCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.deps.CourseSvc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Curso eliminado"})
}

// Lessons

func (s *server) listLessons(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	lessons, err := s.deps.CourseSvc.Lessons(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (s *server) getLesson(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	lsn, err := s.deps.CourseSvc.GetLesson(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (s *server) addLesson(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.LessonInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonInput")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	lsn, err := s.deps.CourseSvc.AddLesson(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}
	return ctx.JSON(http.StatusCreated, createdResponse{Message: "Lección agregada", ID: lsn.ID})
}

func (s *server) updateLesson(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.LessonInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonInput")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	if _, err = s.deps.CourseSvc.UpdateLesson(ctx.Request().Context(), id, data); err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Lección actualizada"})
}

func (s *server) deleteLesson(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.deps.CourseSvc.DeleteLesson(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Lección eliminada"})
}

// Course students

func (s *server) listCourseStudents(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	students, err := s.deps.EnrollmentSvc.ListCourseStudents(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing course students")
	}
	return ctx.JSON(http.StatusOK, students)
}

type directEnrollResponse struct {
	Message string `json:"message"`
	enrollment.DirectEnrollResult
}

func (s *server) directEnroll(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data enrollment.DirectEnroll
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DirectEnroll")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	res, err := s.deps.EnrollmentSvc.AdminDirectEnroll(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	msg := "Estudiante inscrito correctamente."
	if res.IsNewUser {
		msg = "Usuario creado e inscrito correctamente."
	}
	return ctx.JSON(http.StatusCreated, directEnrollResponse{Message: msg, DirectEnrollResult: res})
}

func (s *server) setStudentProgress(ctx echo.Context) error {
	courseID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	enrollmentID, err := pathID(ctx, "enrollmentId")
	if err != nil {
		return err
	}
	var data enrollment.ProgressInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressInput")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	if _, err = s.deps.EnrollmentSvc.SetStudentProgress(ctx.Request().Context(), courseID, enrollmentID, *data.Progress); err != nil {
		return errors.Wrap(err, "setting progress")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Progreso actualizado"})
}

func (s *server) removeStudent(ctx echo.Context) error {
	courseID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	enrollmentID, err := pathID(ctx, "enrollmentId")
	if err != nil {
		return err
	}
	if err = s.deps.EnrollmentSvc.RemoveStudent(ctx.Request().Context(), courseID, enrollmentID); err != nil {
		return errors.Wrap(err, "removing student")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Estudiante eliminado"})
}
