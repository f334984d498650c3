package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innovalab/center/core/quiz"
)

const (
	quizColumns     = `id, course_id, title, description, duration_minutes, min_score, deadline, state, created_at`
	questionColumns = `id, quiz_id, statement, kind, points, position`
	optionColumns   = `id, question_id, text, is_correct`
	attemptColumns  = `id, quiz_id, student_id, score, approved, attempted_at`
)

type quizRow struct {
	ID              int64     `db:"id"`
	CourseID        int64     `db:"course_id"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	DurationMinutes int       `db:"duration_minutes"`
	MinScore        int       `db:"min_score"`
	Deadline        null.Time `db:"deadline"`
	State           string    `db:"state"`
	CreatedAt       time.Time `db:"created_at"`
}

func toQuizRow(qz quiz.Quiz) quizRow {
	return quizRow{
		ID:              qz.ID,
		CourseID:        qz.CourseID,
		Title:           qz.Title,
		Description:     qz.Description,
		DurationMinutes: qz.DurationMinutes,
		MinScore:        qz.MinScore,
		Deadline:        null.TimeFromPtr(qz.Deadline),
		State:           qz.State,
		CreatedAt:       qz.CreatedAt.UTC(),
	}
}

func (r quizRow) toQuiz() quiz.Quiz {
	qz := quiz.Quiz{
		ID:              r.ID,
		CourseID:        r.CourseID,
		Title:           r.Title,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		MinScore:        r.MinScore,
		State:           r.State,
		CreatedAt:       r.CreatedAt.UTC(),
	}
	if r.Deadline.Valid {
		t := r.Deadline.Time.UTC()
		qz.Deadline = &t
	}
	return qz
}

type questionRow struct {
	ID        int64  `db:"id"`
	QuizID    int64  `db:"quiz_id"`
	Statement string `db:"statement"`
	Kind      string `db:"kind"`
	Points    int    `db:"points"`
	Position  int    `db:"position"`
}

type optionRow struct {
	ID         int64  `db:"id"`
	QuestionID int64  `db:"question_id"`
	Text       string `db:"text"`
	IsCorrect  bool   `db:"is_correct"`
}

type attemptRow struct {
	ID          int64     `db:"id"`
	QuizID      int64     `db:"quiz_id"`
	StudentID   int64     `db:"student_id"`
	Score       int       `db:"score"`
	Approved    bool      `db:"approved"`
	AttemptedAt time.Time `db:"attempted_at"`
}

type studentQuizRow struct {
	quizRow
	Score    null.Int  `db:"score"`
	Approved null.Bool `db:"approved"`
}

type courseResultRow struct {
	ID           int64     `db:"id"`
	StudentNames string    `db:"student_names"`
	Email        string    `db:"email"`
	QuizTitle    string    `db:"quiz_title"`
	Score        int       `db:"score"`
	Approved     bool      `db:"approved"`
	AttemptedAt  time.Time `db:"attempted_at"`
	Progress     int       `db:"progress"`
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo quizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	exec := getExec(ctx, repo.db)
	q, args, err := exec.BindNamed(`
		INSERT INTO quizzes (course_id, title, description, duration_minutes, min_score, deadline, state, created_at)
		VALUES (:course_id, :title, :description, :duration_minutes, :min_score, :deadline, :state, :created_at)
		RETURNING `+quizColumns, toQuizRow(qz))
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "binding quiz")
	}

	var row quizRow
	if err = exec.GetContext(ctx, &row, q, args...); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return row.toQuiz(), nil
}

func (repo quizRepository) GetQuiz(ctx context.Context, id int64) (quiz.Quiz, error) {
	var row quizRow
	q := `SELECT ` + quizColumns + ` FROM quizzes WHERE id = $1`
	if err := getExec(ctx, repo.db).GetContext(ctx, &row, q, id); err != nil {
		return quiz.Quiz{}, trapNoRowsErr(err, quiz.ErrNotFound, "getting quiz")
	}
	return row.toQuiz(), nil
}

func (repo quizRepository) SetQuizState(ctx context.Context, id int64, state string) (quiz.Quiz, error) {
	var row quizRow
	q := `UPDATE quizzes SET state = $1 WHERE id = $2 RETURNING ` + quizColumns
	if err := getExec(ctx, repo.db).GetContext(ctx, &row, q, state, id); err != nil {
		return quiz.Quiz{}, trapNoRowsErr(err, quiz.ErrNotFound, "updating quiz state")
	}
	return row.toQuiz(), nil
}

func (repo quizRepository) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return checkAffected(res, quiz.ErrNotFound)
}

func (repo quizRepository) ListCourseQuizzes(ctx context.Context, courseID, studentID int64) ([]quiz.StudentQuiz, error) {
	var rows []studentQuizRow
	q := `
		SELECT q.id, q.course_id, q.title, q.description, q.duration_minutes, q.min_score, q.deadline, q.state,
			q.created_at, a.score, a.approved
		FROM quizzes q
		LEFT JOIN quiz_attempts a ON a.quiz_id = q.id AND a.student_id = $1
		WHERE q.course_id = $2
		ORDER BY q.created_at ASC, q.id ASC`
	if err := getExec(ctx, repo.db).SelectContext(ctx, &rows, q, studentID, courseID); err != nil {
		return nil, errors.Wrap(err, "listing course quizzes")
	}
	quizzes := make([]quiz.StudentQuiz, 0, len(rows))
	for _, r := range rows {
		quizzes = append(quizzes, quiz.StudentQuiz{
			Quiz:     r.toQuiz(),
			Score:    r.Score.Ptr(),
			Approved: r.Approved.Ptr(),
		})
	}
	return quizzes, nil
}

func (repo quizRepository) CreateQuestion(ctx context.Context, qst quiz.Question) (quiz.Question, error) {
	exec := getExec(ctx, repo.db)

	var row questionRow
	q := `INSERT INTO questions (quiz_id, statement, kind, points, position) VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + questionColumns
	if err := exec.GetContext(ctx, &row, q, qst.QuizID, qst.Statement, qst.Kind, qst.Points, qst.Position); err != nil {
		return quiz.Question{}, errors.Wrap(err, "inserting question")
	}

	created := quiz.Question{
		ID:        row.ID,
		QuizID:    row.QuizID,
		Statement: row.Statement,
		Kind:      row.Kind,
		Points:    row.Points,
		Position:  row.Position,
		Options:   make([]quiz.Option, 0, len(qst.Options)),
	}
	q = `INSERT INTO question_options (question_id, text, is_correct) VALUES ($1, $2, $3) RETURNING ` + optionColumns
	for _, opt := range qst.Options {
		var oRow optionRow
		if err := exec.GetContext(ctx, &oRow, q, created.ID, opt.Text, opt.IsCorrect); err != nil {
			return quiz.Question{}, errors.Wrap(err, "inserting question option")
		}
		created.Options = append(created.Options, quiz.Option(oRow))
	}
	return created, nil
}

func (repo quizRepository) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return checkAffected(res, quiz.ErrQuestionNotFound)
}

func (repo quizRepository) ListQuestions(ctx context.Context, quizID int64) ([]quiz.Question, error) {
	exec := getExec(ctx, repo.db)

	var qRows []questionRow
	q := `SELECT ` + questionColumns + ` FROM questions WHERE quiz_id = $1 ORDER BY position ASC, id ASC`
	if err := exec.SelectContext(ctx, &qRows, q, quizID); err != nil {
		return nil, errors.Wrap(err, "listing questions")
	}

	var oRows []optionRow
	q = `
		SELECT o.id, o.question_id, o.text, o.is_correct
		FROM question_options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.quiz_id = $1
		ORDER BY o.id ASC`
	if err := exec.SelectContext(ctx, &oRows, q, quizID); err != nil {
		return nil, errors.Wrap(err, "listing question options")
	}
	options := make(map[int64][]quiz.Option, len(qRows))
	for _, o := range oRows {
		options[o.QuestionID] = append(options[o.QuestionID], quiz.Option(o))
	}

	questions := make([]quiz.Question, 0, len(qRows))
	for _, r := range qRows {
		opts := options[r.ID]
		if opts == nil {
			opts = []quiz.Option{}
		}
		questions = append(questions, quiz.Question{
			ID:        r.ID,
			QuizID:    r.QuizID,
			Statement: r.Statement,
			Kind:      r.Kind,
			Points:    r.Points,
			Position:  r.Position,
			Options:   opts,
		})
	}
	return questions, nil
}

func (repo quizRepository) CreateAttempt(ctx context.Context, att quiz.Attempt) (quiz.Attempt, error) {
	exec := getExec(ctx, repo.db)
	q, args, err := exec.BindNamed(`
		INSERT INTO quiz_attempts (quiz_id, student_id, score, approved, attempted_at)
		VALUES (:quiz_id, :student_id, :score, :approved, :attempted_at)
		ON CONFLICT (student_id, quiz_id) DO NOTHING
		RETURNING `+attemptColumns, attemptRow(att))
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "binding attempt")
	}

	var row attemptRow
	if err = exec.GetContext(ctx, &row, q, args...); err != nil {
		return quiz.Attempt{}, trapNoRowsErr(err, quiz.ErrAlreadyAttempted, "inserting attempt")
	}
	created := quiz.Attempt(row)
	created.AttemptedAt = created.AttemptedAt.UTC()
	return created, nil
}

func (repo quizRepository) DeleteAttempt(ctx context.Context, id int64) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM quiz_attempts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting attempt")
	}
	return checkAffected(res, quiz.ErrAttemptNotFound)
}

func (repo quizRepository) CountPublished(ctx context.Context, courseID int64) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM quizzes WHERE course_id = $1 AND state = $2`
	if err := getExec(ctx, repo.db).GetContext(ctx, &n, q, courseID, quiz.StatePublished); err != nil {
		return 0, errors.Wrap(err, "counting published quizzes")
	}
	return n, nil
}

func (repo quizRepository) CountPassed(ctx context.Context, studentID, courseID int64) (int, error) {
	var n int
	q := `
		SELECT COUNT(DISTINCT a.quiz_id)
		FROM quiz_attempts a
		JOIN quizzes q ON q.id = a.quiz_id
		WHERE a.student_id = $1 AND a.approved AND q.course_id = $2 AND q.state = $3`
	if err := getExec(ctx, repo.db).GetContext(ctx, &n, q, studentID, courseID, quiz.StatePublished); err != nil {
		return 0, errors.Wrap(err, "counting passed quizzes")
	}
	return n, nil
}

func (repo quizRepository) ListCourseResults(ctx context.Context, courseID int64) ([]quiz.CourseResult, error) {
	var rows []courseResultRow
	q := `
		SELECT a.id, TRIM(u.names || ' ' || u.surnames) AS student_names, u.email, q.title AS quiz_title,
			a.score, a.approved, a.attempted_at, COALESCE(e.progress, 0) AS progress
		FROM quiz_attempts a
		JOIN users u ON u.id = a.student_id
		JOIN quizzes q ON q.id = a.quiz_id
		LEFT JOIN enrollments e ON e.user_id = u.id AND e.course_id = q.course_id
		WHERE q.course_id = $1
		ORDER BY a.attempted_at DESC, a.id DESC`
	if err := getExec(ctx, repo.db).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing course results")
	}
	results := make([]quiz.CourseResult, 0, len(rows))
	for _, r := range rows {
		res := quiz.CourseResult(r)
		res.AttemptedAt = res.AttemptedAt.UTC()
		results = append(results, res)
	}
	return results, nil
}
