package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core/quiz"
)

func (s *server) registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	admin := adminMiddleware()
	qg := g.Group("/quizzes", jwt)

	// admin: results
	qg.GET("/admin/results/course/:courseId", s.listCourseResults, admin)
	qg.DELETE("/admin/results/:id", s.deleteAttempt, admin)

	// admin: authoring
	qg.POST("/course/:courseId", s.createQuiz, admin)
	qg.PATCH("/:id/status", s.setQuizState, admin)
	qg.DELETE("/:id", s.deleteQuiz, admin)
	qg.POST("/:id/question", s.addQuestion, admin)
	qg.DELETE("/question/:id", s.deleteQuestion, admin)

	// students
	qg.GET("/course/:courseId", s.listCourseQuizzes)
	qg.GET("/:id", s.getQuiz)
	qg.POST("/submit", s.submitQuiz)
}

func (s *server) createQuiz(ctx echo.Context) error {
	courseID, err := pathID(ctx, "courseId")
	if err != nil {
		return err
	}
	var data quiz.NewQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	qz, err := s.deps.QuizSvc.Create(ctx.Request().Context(), courseID, data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, struct {
		QuizID int64 `json:"quizId"`
	}{QuizID: qz.ID})
}

func (s *server) setQuizState(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data quiz.StateInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StateInput")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	if _, err = s.deps.QuizSvc.SetState(ctx.Request().Context(), id, data.State); err != nil {
		return errors.Wrap(err, "setting quiz state")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Actualizado"})
}

func (s *server) deleteQuiz(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.deps.QuizSvc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Eliminado"})
}

func (s *server) addQuestion(ctx echo.Context) error {
	quizID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data quiz.NewQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	qst, err := s.deps.QuizSvc.AddQuestion(ctx.Request().Context(), quizID, data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, createdResponse{Message: "Pregunta guardada", ID: qst.ID})
}

func (s *server) deleteQuestion(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.deps.QuizSvc.DeleteQuestion(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Eliminada"})
}

func (s *server) listCourseQuizzes(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	courseID, err := pathID(ctx, "courseId")
	if err != nil {
		return err
	}
	quizzes, err := s.deps.QuizSvc.ListForCourse(ctx.Request().Context(), courseID, claims.ID, claims.IsAdmin())
	if err != nil {
		return errors.Wrap(err, "listing course quizzes")
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (s *server) getQuiz(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	details, err := s.deps.QuizSvc.Details(ctx.Request().Context(), id, claims.IsAdmin())
	if err != nil {
		return errors.Wrap(err, "getting quiz details")
	}
	return ctx.JSON(http.StatusOK, details)
}

func (s *server) submitQuiz(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data quiz.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	res, err := s.deps.QuizSvc.Submit(ctx.Request().Context(), claims.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *server) listCourseResults(ctx echo.Context) error {
	courseID, err := pathID(ctx, "courseId")
	if err != nil {
		return err
	}
	results, err := s.deps.QuizSvc.ResultsByCourse(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "listing course results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (s *server) deleteAttempt(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.deps.QuizSvc.DeleteAttempt(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting attempt")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Nota eliminada."})
}
