package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/innovalab/center/apps/api/echo"
	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/enrollment"
	"github.com/innovalab/center/core/quiz"
	"github.com/innovalab/center/core/resource"
	"github.com/innovalab/center/core/user"
	emailsvc "github.com/innovalab/center/services/email"
	inmemdb "github.com/innovalab/center/storage/database/inmem"
	"github.com/innovalab/center/storage/files"
	"github.com/innovalab/center/testutil"
)

type testEnv struct {
	app         echoapi.Server
	conf        *core.Config
	users       user.Repository
	courses     course.Repository
	enrollments enrollment.Repository
	quizzes     quiz.Repository
	mailSvc     *emailsvc.ConsoleServiceMock
}

// googleVerifier accepts the token "google-ok" only.
type googleVerifier struct{}

func (googleVerifier) VerifyIdentity(_ context.Context, token string) (user.Identity, error) {
	if token != "google-ok" {
		return user.Identity{}, errors.New("invalid token")
	}
	return user.Identity{Provider: user.ProviderGoogle, Subject: "g-1", Email: "gina@gmail.com", Names: "Gina", Surnames: "Paz"}, nil
}

func setup(t *testing.T) *testEnv {
	conf := testutil.NewConfig(t)
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator()

	db := inmemdb.Open()
	env := &testEnv{
		conf:        conf,
		users:       inmemdb.NewUserRepository(db),
		courses:     inmemdb.NewCourseRepository(db),
		enrollments: inmemdb.NewEnrollmentRepository(db),
		quizzes:     inmemdb.NewQuizRepository(db),
		mailSvc:     emailsvc.NewConsoleServiceMock(conf, logger),
	}
	uow := inmemdb.NewUnitOfWork(db)

	store, err := files.NewLocalStorage(conf.Server.UploadDir, conf.Server.UploadURL)
	require.NoError(t, err)

	usrSvc := user.NewService(env.users, env.mailSvc, logger, map[string]user.IdentityVerifier{
		user.ProviderGoogle: googleVerifier{},
	})
	env.app = echoapi.NewServer(&echoapi.Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Files:         store,
		UserSvc:       usrSvc,
		CourseSvc:     course.NewService(env.courses),
		ResourceSvc:   resource.NewService(inmemdb.NewResourceRepository(db), env.courses),
		EnrollmentSvc: enrollment.NewService(env.enrollments, env.courses, usrSvc, uow, env.mailSvc, logger),
		QuizSvc:       quiz.NewService(env.quizzes, env.courses, env.enrollments, uow),
	})
	return env
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantData interface{} // compared as JSON when set
}

func (env *testEnv) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, env.conf), env.conf)
	require.NoError(t, err)
	return token
}

func (env *testEnv) student(t *testing.T, names, email string) (user.User, string) {
	t.Helper()
	usr := testutil.CreateUser(t, env.users, names, "Test", email, "Secreto#2024", user.RoleStudent)
	return usr, env.token(t, usr)
}

func (env *testEnv) admin(t *testing.T) (user.User, string) {
	t.Helper()
	usr := testutil.CreateUser(t, env.users, "Admin", "Innova", "admin@innovalab.pe", "Secreto#2024", user.RoleAdmin)
	return usr, env.token(t, usr)
}

func marshal(t *testing.T, obj interface{}) []byte {
	t.Helper()
	switch v := obj.(type) {
	case nil:
		return nil
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

// do sends a JSON request to the app.
func (env *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(marshal(t, body)))
	req.Header.Set("Content-Type", "application/json")
	return env.serve(req, token)
}

func (env *testEnv) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	return rec
}

// doMultipart sends fields, plus a file under fileField when fileName is set.
func (env *testEnv) doMultipart(t *testing.T, method, path, token string, fields map[string]string, fileField, fileName string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return env.serve(req, token)
}

func (env *testEnv) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := env.do(t, method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(marshal(t, tt.wantData)), rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), "body: %s", rec.Body.String())
}

type msg struct {
	Message string `json:"message"`
}

type errMsg struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

var (
	errMissingToken = msg{Message: "No se proporcionó token"}
	errInvalidToken = msg{Message: "Token inválido"}
	errInvalidID    = msg{Message: "Identificador inválido"}
)

func errForbiddenRole(role string) msg {
	return msg{Message: "Acceso denegado: se requiere rol de administrador (rol actual: " + role + ")"}
}
