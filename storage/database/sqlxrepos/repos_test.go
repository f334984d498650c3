package sqlxrepos_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/enrollment"
	"github.com/innovalab/center/core/quiz"
	"github.com/innovalab/center/core/user"
	"github.com/innovalab/center/storage/database"
	"github.com/innovalab/center/storage/database/sqlxrepos"
	"github.com/innovalab/center/testutil"
)

// prepareDB connects to the TEST database (TEST_DATABASE_* env vars), migrates it and empties every table.
func prepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}
	conf := testutil.NewConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	_, err = db.Exec("TRUNCATE users, courses, lessons, resources, enrollments, quizzes, questions, question_options, quiz_attempts RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return db
}

func TestUserRepository(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(db)

	usr := testutil.CreateUser(t, repo, "Ana", "Diaz", "ana@test.pe", "Secreto#2024", user.RoleStudent)
	_, err := repo.CreateUser(ctx, user.User{Names: "x", Email: "ana@test.pe", Role: user.RoleStudent, Provider: user.ProviderLocal})
	assert.Equal(t, user.ErrEmailExists, errors.Cause(err))

	got, err := repo.GetUserByEmail(ctx, "ana@test.pe")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword("Secreto#2024"))

	changedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	got, err = repo.UpdateUser(ctx, usr.ID, user.Patch{
		Names:               user.StringPtr("Ana Maria"),
		PasswordChangeCount: user.IntPtr(1),
		PasswordChangedAt:   user.TimePtr(changedAt),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", got.Names)
	assert.Equal(t, "Diaz", got.Surnames)
	assert.Equal(t, 1, got.PasswordChangeCount)
	assert.True(t, changedAt.Equal(got.PasswordChangedAt))

	// an empty patch touches nothing
	unchanged, err := repo.UpdateUser(ctx, usr.ID, user.Patch{})
	require.NoError(t, err)
	assert.Equal(t, got.UpdatedAt, unchanged.UpdatedAt)
	assert.Equal(t, "Ana Maria", unchanged.Names)

	social := testutil.CreateUser(t, repo, "Luis", "Rojas", "luis@test.pe", "", user.RoleStudent)
	got, err = repo.GetUserByID(ctx, social.ID)
	require.NoError(t, err)
	assert.False(t, got.HasPassword())
	assert.True(t, got.PasswordChangedAt.IsZero())

	_, err = repo.GetUserByID(ctx, 999)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	_, err = repo.UpdateUser(ctx, 999, user.Patch{Names: user.StringPtr("x")})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestCourseRepository(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewCourseRepository(db)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	goCrs := testutil.CreateCourse(t, repo, "Go", 100, t0)
	rust := testutil.CreateCourse(t, repo, "Rust", 80, t0.Add(time.Hour))

	list, err := repo.QueryCourses(ctx, []core.DBOrdering{{Field: course.OrderByPrice, Ascending: true}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, rust.ID, list[0].ID)
	assert.Equal(t, goCrs.ID, list[1].ID)

	lsn, err := repo.CreateLesson(ctx, course.Lesson{CourseID: goCrs.ID, Title: "Intro", Position: 1})
	require.NoError(t, err)
	lessons, err := repo.ListLessons(ctx, goCrs.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 1)

	require.NoError(t, repo.DeleteCourse(ctx, goCrs.ID))
	_, err = repo.GetLesson(ctx, lsn.ID)
	assert.Equal(t, course.ErrLessonNotFound, errors.Cause(err))
	assert.Equal(t, course.ErrNotFound, errors.Cause(repo.DeleteCourse(ctx, goCrs.ID)))
}

func TestEnrollmentAndQuizRepositories(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	users := sqlxrepos.NewUserRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	enrollments := sqlxrepos.NewEnrollmentRepository(db)
	quizzes := sqlxrepos.NewQuizRepository(db)

	student := testutil.CreateUser(t, users, "Ana", "Diaz", "ana@test.pe", "Secreto#2024", user.RoleStudent)
	crs := testutil.CreateCourse(t, courses, "Go", 100)
	enr := testutil.CreateEnrollment(t, enrollments, student.ID, crs.ID, enrollment.StatusPending)

	_, err := enrollments.CreateEnrollment(ctx, enrollment.Enrollment{UserID: student.ID, CourseID: crs.ID, Status: enrollment.StatusActive, PaymentMethod: "manual"})
	assert.Equal(t, enrollment.ErrAlreadyEnrolled, errors.Cause(err))

	pending, err := enrollments.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, enr.ID, pending[0].ID)
	assert.Equal(t, "Go", pending[0].CourseTitle)

	_, err = enrollments.SetStatus(ctx, enr.ID, enrollment.StatusActive)
	require.NoError(t, err)
	require.NoError(t, enrollments.UpdateProgress(ctx, student.ID, crs.ID, 60))
	userCourses, err := enrollments.ListUserCourses(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, userCourses, 1)
	assert.Equal(t, 60, userCourses[0].Progress)

	qz := testutil.CreateQuiz(t, quizzes, crs.ID, "Parcial", 5, quiz.StatePublished)
	testutil.CreateQuiz(t, quizzes, crs.ID, "Borrador", 5, quiz.StateDraft)
	qst := testutil.CreateQuestion(t, quizzes, qz.ID, quiz.KindMultiple, 5, []string{"a", "b"}, false, true)
	require.Len(t, qst.Options, 2)

	questions, err := quizzes.ListQuestions(ctx, qz.ID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.True(t, questions[0].Options[1].IsCorrect)

	published, err := quizzes.CountPublished(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	testutil.CreateAttempt(t, quizzes, qz.ID, student.ID, 5, true)
	_, err = quizzes.CreateAttempt(ctx, quiz.Attempt{QuizID: qz.ID, StudentID: student.ID, AttemptedAt: time.Now().UTC()})
	assert.Equal(t, quiz.ErrAlreadyAttempted, errors.Cause(err))

	passed, err := quizzes.CountPassed(ctx, student.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, passed)

	list, err := quizzes.ListCourseQuizzes(ctx, crs.ID, student.ID)
	require.NoError(t, err)
	require.Len(t, list, 2, "drafts are filtered out by the service")
	for _, sq := range list {
		if sq.ID == qz.ID {
			require.NotNil(t, sq.Score)
			assert.Equal(t, 5, *sq.Score)
		} else {
			assert.Nil(t, sq.Score)
		}
	}
}

func TestUnitOfWork(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	users := sqlxrepos.NewUserRepository(db)
	uow := sqlxrepos.NewUnitOfWork(db)

	errBoom := errors.New("boom")
	err := uow.Do(ctx, func(ctx context.Context) error {
		testutil.CreateUser(t, users, "Ana", "Diaz", "ana@test.pe", "", user.RoleStudent)
		return errBoom
	})
	assert.Equal(t, errBoom, errors.Cause(err))

	_, err = users.GetUserByEmail(ctx, "ana@test.pe")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
