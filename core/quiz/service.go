package quiz

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
	ErrNotFound          = core.NewNotFoundError("Examen no encontrado")
	ErrQuestionNotFound  = core.NewNotFoundError("Pregunta no encontrada")
	ErrAttemptNotFound   = core.NewNotFoundError("Intento no encontrado")
	ErrAlreadyAttempted  = core.NewConflictError("Ya rendiste este examen.")
	ErrNotPublished      = core.NewValidationError(errors.New("El examen no está disponible."))
	ErrDeadlinePassed    = core.NewValidationError(errors.New("La fecha límite del examen ya pasó."))
	ErrNoCorrectOption   = core.NewValidationError(errors.New("Marca al menos una opción correcta."), core.FieldError{Field: "opciones", Error: "marca al menos una opción correcta"})
	ErrTextAnswerOptions = core.NewValidationError(errors.New("Una pregunta de texto lleva una única respuesta."), core.FieldError{Field: "opciones", Error: "una pregunta de texto lleva una única respuesta"})
)

type (
	Repository interface {
		CreateQuiz(ctx context.Context, qz Quiz) (Quiz, error)
		GetQuiz(ctx context.Context, id int64) (Quiz, error)
		SetQuizState(ctx context.Context, id int64, state string) (Quiz, error)
		DeleteQuiz(ctx context.Context, id int64) error
		// ListCourseQuizzes joins the attempt of studentID, if any, to each quiz of the course.
		ListCourseQuizzes(ctx context.Context, courseID, studentID int64) ([]StudentQuiz, error)

		// CreateQuestion stores the question along with its options.
		CreateQuestion(ctx context.Context, qst Question) (Question, error)
		DeleteQuestion(ctx context.Context, id int64) error
		// ListQuestions returns the questions of a quiz by position, options included.
		ListQuestions(ctx context.Context, quizID int64) ([]Question, error)

		// CreateAttempt fails with ErrAlreadyAttempted if the student already attempted the quiz.
		CreateAttempt(ctx context.Context, att Attempt) (Attempt, error)
		DeleteAttempt(ctx context.Context, id int64) error
		CountPublished(ctx context.Context, courseID int64) (int, error)
		// CountPassed counts the published quizzes of the course the student has an approved attempt on.
		CountPassed(ctx context.Context, studentID, courseID int64) (int, error)
		ListCourseResults(ctx context.Context, courseID int64) ([]CourseResult, error)
	}

	// ProgressUpdater stores a student's progress in a course.
	ProgressUpdater interface {
		UpdateProgress(ctx context.Context, userID, courseID int64, progress int) error
	}

	Service struct {
		repo     Repository
		courses  course.Repository
		progress ProgressUpdater
		uow      core.UnitOfWork
	}
)

func NewService(repo Repository, courses course.Repository, progress ProgressUpdater, uow core.UnitOfWork) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		progress: progress,
		uow:      uow,
	}
}

// Create adds a draft quiz to a course.
func (svc *Service) Create(ctx context.Context, courseID int64, nq NewQuiz) (Quiz, error) {
	if _, err := svc.courses.GetCourse(ctx, courseID); err != nil {
		return Quiz{}, err
	}
	return svc.repo.CreateQuiz(ctx, Quiz{
		CourseID:        courseID,
		Title:           nq.Title,
		Description:     nq.Description,
		DurationMinutes: nq.DurationMinutes,
		MinScore:        nq.MinScore,
		Deadline:        nq.ParsedDeadline(),
		State:           StateDraft,
		CreatedAt:       NowFunc().UTC(),
	})
}

func (svc *Service) SetState(ctx context.Context, id int64, state string) (Quiz, error) {
	return svc.repo.SetQuizState(ctx, id, state)
}

func (svc *Service) Delete(ctx context.Context, id int64) error {
	return svc.repo.DeleteQuiz(ctx, id)
}

// AddQuestion appends a question to a quiz.
// Multiple questions need at least one correct option; a text question takes exactly one
// option, its canonical answer, which is always stored as correct.
func (svc *Service) AddQuestion(ctx context.Context, quizID int64, nq NewQuestion) (Question, error) {
	if _, err := svc.repo.GetQuiz(ctx, quizID); err != nil {
		return Question{}, err
	}

	qst := Question{
		QuizID:    quizID,
		Statement: nq.Statement,
		Kind:      nq.Kind,
		Points:    nq.Points,
		Position:  nq.Position,
	}
	switch nq.Kind {
	case KindText:
		if len(nq.Options) != 1 {
			return Question{}, ErrTextAnswerOptions
		}
		qst.Options = []Option{{Text: nq.Options[0].Text, IsCorrect: true}}
	default:
		hasCorrect := false
		for _, opt := range nq.Options {
			hasCorrect = hasCorrect || opt.IsCorrect
			qst.Options = append(qst.Options, Option{Text: opt.Text, IsCorrect: opt.IsCorrect})
		}
		if !hasCorrect {
			return Question{}, ErrNoCorrectOption
		}
	}

	err := svc.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		qst, err = svc.repo.CreateQuestion(ctx, qst)
		return err
	})
	if err != nil {
		return Question{}, err
	}
	return qst, nil
}

func (svc *Service) DeleteQuestion(ctx context.Context, id int64) error {
	return svc.repo.DeleteQuestion(ctx, id)
}

// Details returns a quiz with its questions. Non-admins only see published quizzes,
// and never which options are correct nor the answers of text questions.
func (svc *Service) Details(ctx context.Context, id int64, isAdmin bool) (Details, error) {
	qz, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Details{}, err
	}
	if !isAdmin && !qz.IsPublished() {
		return Details{}, ErrNotFound
	}
	questions, err := svc.repo.ListQuestions(ctx, id)
	if err != nil {
		return Details{}, err
	}
	if !isAdmin {
		for i := range questions {
			questions[i].Options = redactOptions(questions[i])
		}
	}
	return Details{Quiz: qz, Questions: questions}, nil
}

// ListForCourse lists the quizzes of a course with the caller's results.
// Drafts are only listed to admins.
func (svc *Service) ListForCourse(ctx context.Context, courseID, callerID int64, isAdmin bool) ([]StudentQuiz, error) {
	quizzes, err := svc.repo.ListCourseQuizzes(ctx, courseID, callerID)
	if err != nil {
		return nil, err
	}
	if isAdmin {
		return quizzes, nil
	}
	published := make([]StudentQuiz, 0, len(quizzes))
	for _, qz := range quizzes {
		if qz.IsPublished() {
			published = append(published, qz)
		}
	}
	return published, nil
}

// Submit grades a student's answers, records the attempt and recomputes the student's
// progress in the quiz's course, all in one transaction.
func (svc *Service) Submit(ctx context.Context, studentID int64, sub Submission) (Result, error) {
	quizID, ok := sub.QuizID.Int64()
	if !ok {
		return Result{}, ErrNotFound
	}
	qz, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return Result{}, err
	}
	now := NowFunc().UTC()
	if !qz.IsPublished() {
		return Result{}, ErrNotPublished
	}
	if qz.IsClosed(now) {
		return Result{}, ErrDeadlinePassed
	}

	var res Result
	err = svc.uow.Do(ctx, func(ctx context.Context) error {
		questions, err := svc.repo.ListQuestions(ctx, qz.ID)
		if err != nil {
			return err
		}
		res.Score = Grade(questions, sub.Answers)
		res.Approved = res.Score >= qz.MinScore

		if _, err = svc.repo.CreateAttempt(ctx, Attempt{
			QuizID:      qz.ID,
			StudentID:   studentID,
			Score:       res.Score,
			Approved:    res.Approved,
			AttemptedAt: now,
		}); err != nil {
			return err
		}

		published, err := svc.repo.CountPublished(ctx, qz.CourseID)
		if err != nil {
			return err
		}
		passed, err := svc.repo.CountPassed(ctx, studentID, qz.CourseID)
		if err != nil {
			return err
		}
		res.NewProgress = ComputeProgress(passed, published)
		return svc.progress.UpdateProgress(ctx, studentID, qz.CourseID, res.NewProgress)
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (svc *Service) ResultsByCourse(ctx context.Context, courseID int64) ([]CourseResult, error) {
	return svc.repo.ListCourseResults(ctx, courseID)
}

// DeleteAttempt lets the student take the quiz again.
func (svc *Service) DeleteAttempt(ctx context.Context, id int64) error {
	return svc.repo.DeleteAttempt(ctx, id)
}

func redactOptions(qst Question) []Option {
	if qst.Kind == KindText {
		return []Option{}
	}
	opts := make([]Option, len(qst.Options))
	for i, opt := range qst.Options {
		opts[i] = Option{ID: opt.ID, QuestionID: opt.QuestionID, Text: opt.Text}
	}
	return opts
}
