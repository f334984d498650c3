// Package testutil holds the fixtures shared by the tests of every package.
package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/enrollment"
	"github.com/innovalab/center/core/quiz"
	"github.com/innovalab/center/core/user"
	logsvc "github.com/innovalab/center/services/logger"
)

// NewConfig returns the configuration of the TEST environment, uploading into a temp dir.
func NewConfig(t *testing.T) *core.Config {
	t.Setenv("ENV", "TEST")
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Server.DisableReqLogs = true
	conf.Server.UploadDir = t.TempDir()
	conf.Server.UploadURL = "/uploads"
	return conf
}

// NewLogger returns a logger that neither prints nor reports.
func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator set up like the API's.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, names, surnames, email, pwd, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Names:      names,
		Surnames:   surnames,
		Email:      email,
		Role:       role,
		Provider:   user.ProviderLocal,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	} else {
		usr.Provider = user.ProviderGoogle
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, title string, price float64, createdAt ...time.Time) course.Course {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:      title,
		Price:      price,
		CoverImage: course.DefaultCoverImage,
		CreatedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateEnrollment(t *testing.T, repo enrollment.Repository, userID, courseID int64, status string) enrollment.Enrollment {
	t.Helper()
	now := time.Now().UTC()
	enr, err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		UserID:        userID,
		CourseID:      courseID,
		Status:        status,
		PaymentMethod: enrollment.DefaultPaymentMethod,
		EnrolledAt:    now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr
}

func CreateQuiz(t *testing.T, repo quiz.Repository, courseID int64, title string, minScore int, state string) quiz.Quiz {
	t.Helper()
	qz, err := repo.CreateQuiz(context.Background(), quiz.Quiz{
		CourseID:  courseID,
		Title:     title,
		MinScore:  minScore,
		State:     state,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return qz
}

// CreateQuestion adds a question whose options are given as text -> is_correct.
// Options are stored in the order of texts.
func CreateQuestion(t *testing.T, repo quiz.Repository, quizID int64, kind string, points int, texts []string, correct ...bool) quiz.Question {
	t.Helper()
	qst := quiz.Question{QuizID: quizID, Statement: "¿Pregunta?", Kind: kind, Points: points}
	for i, text := range texts {
		qst.Options = append(qst.Options, quiz.Option{Text: text, IsCorrect: i < len(correct) && correct[i]})
	}
	qst, err := repo.CreateQuestion(context.Background(), qst)
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return qst
}

func CreateAttempt(t *testing.T, repo quiz.Repository, quizID, studentID int64, score int, approved bool) quiz.Attempt {
	t.Helper()
	att, err := repo.CreateAttempt(context.Background(), quiz.Attempt{
		QuizID:      quizID,
		StudentID:   studentID,
		Score:       score,
		Approved:    approved,
		AttemptedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAttempt() failed: %v", err)
	}
	return att
}
