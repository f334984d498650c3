package inmemdb

import (
	"context"
	"sort"

	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) CreateQuiz(_ context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[qz.CourseID]; !ok {
		return quiz.Quiz{}, course.ErrNotFound
	}
	qz.ID = repo.db.nextID()
	repo.db.quizzes[qz.ID] = qz
	return qz, nil
}

func (repo *quizRepository) GetQuiz(_ context.Context, id int64) (quiz.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if qz, ok := repo.db.quizzes[id]; ok {
		return qz, nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) SetQuizState(_ context.Context, id int64, state string) (quiz.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	qz, ok := repo.db.quizzes[id]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	qz.State = state
	repo.db.quizzes[id] = qz
	return qz, nil
}

func (repo *quizRepository) DeleteQuiz(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.quizzes[id]; !ok {
		return quiz.ErrNotFound
	}
	repo.db.deleteQuiz(id)
	return nil
}

// deleteQuiz cascades to questions, options and attempts. The caller holds the write lock.
func (db *DB) deleteQuiz(id int64) {
	delete(db.quizzes, id)
	for k, qst := range db.questions {
		if qst.QuizID == id {
			db.deleteQuestion(k)
		}
	}
	for k, att := range db.attempts {
		if att.QuizID == id {
			delete(db.attempts, k)
		}
	}
}

func (db *DB) deleteQuestion(id int64) {
	delete(db.questions, id)
	for k, opt := range db.options {
		if opt.QuestionID == id {
			delete(db.options, k)
		}
	}
}

func (repo *quizRepository) ListCourseQuizzes(_ context.Context, courseID, studentID int64) ([]quiz.StudentQuiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	quizzes := make([]quiz.StudentQuiz, 0)
	for _, qz := range repo.db.quizzes {
		if qz.CourseID != courseID {
			continue
		}
		sq := quiz.StudentQuiz{Quiz: qz}
		for _, att := range repo.db.attempts {
			if att.QuizID == qz.ID && att.StudentID == studentID {
				score, approved := att.Score, att.Approved
				sq.Score, sq.Approved = &score, &approved
				break
			}
		}
		quizzes = append(quizzes, sq)
	}
	sort.Slice(quizzes, func(i, j int) bool {
		if !quizzes[i].CreatedAt.Equal(quizzes[j].CreatedAt) {
			return quizzes[i].CreatedAt.Before(quizzes[j].CreatedAt)
		}
		return quizzes[i].ID < quizzes[j].ID
	})
	return quizzes, nil
}

func (repo *quizRepository) CreateQuestion(_ context.Context, qst quiz.Question) (quiz.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.quizzes[qst.QuizID]; !ok {
		return quiz.Question{}, quiz.ErrNotFound
	}
	options := qst.Options
	qst.ID = repo.db.nextID()
	qst.Options = nil
	repo.db.questions[qst.ID] = qst

	qst.Options = make([]quiz.Option, 0, len(options))
	for _, opt := range options {
		opt.ID = repo.db.nextID()
		opt.QuestionID = qst.ID
		repo.db.options[opt.ID] = opt
		qst.Options = append(qst.Options, opt)
	}
	return qst, nil
}

func (repo *quizRepository) DeleteQuestion(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.questions[id]; !ok {
		return quiz.ErrQuestionNotFound
	}
	repo.db.deleteQuestion(id)
	return nil
}

func (repo *quizRepository) ListQuestions(_ context.Context, quizID int64) ([]quiz.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	questions := make([]quiz.Question, 0)
	for _, qst := range repo.db.questions {
		if qst.QuizID != quizID {
			continue
		}
		qst.Options = make([]quiz.Option, 0)
		for _, opt := range repo.db.options {
			if opt.QuestionID == qst.ID {
				qst.Options = append(qst.Options, opt)
			}
		}
		sort.Slice(qst.Options, func(i, j int) bool { return qst.Options[i].ID < qst.Options[j].ID })
		questions = append(questions, qst)
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Position != questions[j].Position {
			return questions[i].Position < questions[j].Position
		}
		return questions[i].ID < questions[j].ID
	})
	return questions, nil
}

func (repo *quizRepository) CreateAttempt(_ context.Context, att quiz.Attempt) (quiz.Attempt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, a := range repo.db.attempts {
		if a.StudentID == att.StudentID && a.QuizID == att.QuizID {
			return quiz.Attempt{}, quiz.ErrAlreadyAttempted
		}
	}
	att.ID = repo.db.nextID()
	repo.db.attempts[att.ID] = att
	return att, nil
}

func (repo *quizRepository) DeleteAttempt(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.attempts[id]; !ok {
		return quiz.ErrAttemptNotFound
	}
	delete(repo.db.attempts, id)
	return nil
}

func (repo *quizRepository) CountPublished(_ context.Context, courseID int64) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	n := 0
	for _, qz := range repo.db.quizzes {
		if qz.CourseID == courseID && qz.IsPublished() {
			n++
		}
	}
	return n, nil
}

func (repo *quizRepository) CountPassed(_ context.Context, studentID, courseID int64) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	passed := make(map[int64]bool)
	for _, att := range repo.db.attempts {
		if att.StudentID != studentID || !att.Approved {
			continue
		}
		if qz, ok := repo.db.quizzes[att.QuizID]; ok && qz.CourseID == courseID && qz.IsPublished() {
			passed[qz.ID] = true
		}
	}
	return len(passed), nil
}

func (repo *quizRepository) ListCourseResults(_ context.Context, courseID int64) ([]quiz.CourseResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	results := make([]quiz.CourseResult, 0)
	for _, att := range repo.db.attempts {
		qz, ok := repo.db.quizzes[att.QuizID]
		if !ok || qz.CourseID != courseID {
			continue
		}
		usr := repo.db.users[att.StudentID]
		res := quiz.CourseResult{
			ID:           att.ID,
			StudentNames: usr.FullName(),
			Email:        usr.Email,
			QuizTitle:    qz.Title,
			Score:        att.Score,
			Approved:     att.Approved,
			AttemptedAt:  att.AttemptedAt,
		}
		for _, enr := range repo.db.enrollments {
			if enr.UserID == usr.ID && enr.CourseID == courseID {
				res.Progress = enr.Progress
				break
			}
		}
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].AttemptedAt.Equal(results[j].AttemptedAt) {
			return results[i].AttemptedAt.After(results[j].AttemptedAt)
		}
		return results[i].ID > results[j].ID
	})
	return results, nil
}
