package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/testutil"
)

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Fatal(string, ...interface{}) {}
func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}

func TestAppHTTPErrorHandler(t *testing.T) {
	validate, translator := testutil.NewValidator()
	var input struct {
		Email string `json:"email" validate:"required,email"`
	}
	vErr := validate.Struct(&input)
	require.Error(t, vErr)

	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantBody     string
		wantLogged   bool
		wantShutdown bool
	}{
		{
			name:     "validation",
			err:      core.NewValidationError(errors.New("Nombre requerido"), core.FieldError{Field: "names", Error: "requerido"}),
			wantCode: http.StatusBadRequest,
			wantBody: `{"message":"Nombre requerido","errors":{"names":"requerido"}}`,
		},
		{
			name:     "validator errors",
			err:      vErr,
			wantCode: http.StatusBadRequest,
		},
		{name: "not found", err: errors.Wrap(core.NewNotFoundError("Curso no encontrado"), "getting"), wantCode: http.StatusNotFound, wantBody: `{"message":"Curso no encontrado"}`},
		{name: "conflict", err: core.NewConflictError("Usuario ya inscrito."), wantCode: http.StatusBadRequest, wantBody: `{"message":"Usuario ya inscrito."}`},
		{name: "auth", err: core.NewAuthError("Credenciales inválidas"), wantCode: http.StatusUnauthorized},
		{name: "forbidden", err: core.NewForbiddenError("Acceso denegado"), wantCode: http.StatusForbidden},
		{name: "limit", err: core.NewLimitError("Demasiados cambios"), wantCode: http.StatusTooManyRequests},
		{name: "echo not found", err: echo.ErrNotFound, wantCode: http.StatusNotFound, wantBody: `{"message":"Recurso no encontrado"}`},
		{name: "invalid token", err: errInvalidToken, wantCode: http.StatusUnauthorized, wantBody: `{"message":"Token inválido"}`},
		{
			name:       "internal",
			err:        errors.New("pq: connection refused"),
			wantCode:   http.StatusInternalServerError,
			wantBody:   `{"message":"Error interno del servidor"}`,
			wantLogged: true,
		},
		{
			name:         "shutdown",
			err:          errors.Wrap(core.NewShutdownError("disk full"), "saving file"),
			wantCode:     http.StatusInternalServerError,
			wantBody:     `{"message":"Error interno del servidor"}`,
			wantLogged:   true,
			wantShutdown: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			shutdown := false
			handler := newAppHTTPErrorHandler(logger, translator, func() { shutdown = true })

			rec := httptest.NewRecorder()
			ctx := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			handler(tt.err, ctx)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
			assert.Equal(t, tt.wantLogged, len(logger.errors) > 0)
			assert.Equal(t, tt.wantShutdown, shutdown)
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "12", want: 12},
		{raw: ":12", want: 12},
		{raw: "abc", wantErr: true},
		{raw: "0", wantErr: true},
		{raw: "-3", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		ctx := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		ctx.SetParamNames("id")
		ctx.SetParamValues(tt.raw)

		id, err := pathID(ctx, "id")
		if tt.wantErr {
			assert.Equal(t, errInvalidID, err, "pathID(%q)", tt.raw)
			continue
		}
		require.NoError(t, err, "pathID(%q)", tt.raw)
		assert.Equal(t, tt.want, id)
	}
}

func TestOrdering_Bind(t *testing.T) {
	tests := []struct {
		query string
		want  []core.DBOrdering
	}{
		{query: "", want: nil},
		{query: "ordering=titulo", want: []core.DBOrdering{{Field: "titulo", Ascending: true}}},
		{
			query: "ordering=-precio,%20titulo,,-",
			want:  []core.DBOrdering{{Field: "precio"}, {Field: "titulo", Ascending: true}},
		},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/courses?"+tt.query, nil)
		ctx := echo.New().NewContext(req, httptest.NewRecorder())

		var ord Ordering
		ord.Bind(ctx)
		assert.Equal(t, tt.want, ord.Orderings, "query %q", tt.query)
	}
}
