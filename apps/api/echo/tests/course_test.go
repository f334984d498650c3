package tests

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/enrollment"
	"github.com/innovalab/center/core/user"
	"github.com/innovalab/center/testutil"
)

func idPath(format string, ids ...int64) string {
	for _, id := range ids {
		format = strings.Replace(format, "{}", strconv.FormatInt(id, 10), 1)
	}
	return format
}

func Test_courseApi_public(t *testing.T) {
	env := setup(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	goCrs := testutil.CreateCourse(t, env.courses, "Go", 100, t0)
	rust := testutil.CreateCourse(t, env.courses, "Rust", 80, t0.Add(time.Hour))
	lsn, err := env.courses.CreateLesson(context.Background(), course.Lesson{CourseID: goCrs.ID, Title: "Intro", Position: 1})
	require.NoError(t, err)

	env.run(t, []httpTest{
		{name: "list", path: "/api/courses", wantData: []course.Course{goCrs, rust}},
		{name: "list by price", path: "/api/courses?ordering=precio", wantData: []course.Course{rust, goCrs}},
		{name: "list newest first", path: "/api/courses?ordering=-created_at", wantData: []course.Course{rust, goCrs}},
		{
			name: "bad ordering", path: "/api/courses?ordering=password",
			wantCode: http.StatusBadRequest, wantData: msg{Message: "Campo de ordenamiento inválido"},
		},
		{name: "detail", path: idPath("/api/courses/{}", goCrs.ID), wantData: goCrs},
		{name: "detail (trailing slash)", path: idPath("/api/courses/{}/", goCrs.ID), wantData: goCrs},
		{name: "detail (placeholder colon)", path: idPath("/api/courses/:{}", goCrs.ID), wantData: goCrs},
		{name: "unknown", path: "/api/courses/999", wantCode: http.StatusNotFound, wantData: msg{Message: "Curso no encontrado"}},
		{name: "bad id", path: "/api/courses/abc", wantCode: http.StatusBadRequest, wantData: errInvalidID},
		{name: "lessons", path: idPath("/api/courses/{}/lessons", goCrs.ID), wantData: []course.Lesson{lsn}},
		{name: "no lessons", path: idPath("/api/courses/{}/lessons", rust.ID), wantData: []course.Lesson{}},
		{name: "lesson", path: idPath("/api/courses/lessons/{}", lsn.ID), wantData: lsn},
		{name: "unknown lesson", path: "/api/courses/lessons/999", wantCode: http.StatusNotFound, wantData: msg{Message: "Lección no encontrada"}},
	})
}

func Test_courseApi_admin(t *testing.T) {
	env := setup(t)
	_, adminToken := env.admin(t)
	_, studentToken := env.student(t, "Ana", "ana@test.pe")

	fields := map[string]string{"titulo": "Go desde cero", "precio": "149.9", "modalidad": "virtual"}

	// permissions
	rec := env.doMultipart(t, http.MethodPost, "/api/courses", "", fields, "", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.doMultipart(t, http.MethodPost, "/api/courses", studentToken, fields, "", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, string(marshal(t, errForbiddenRole("estudiante"))), rec.Body.String())

	// with a cover
	rec = env.doMultipart(t, http.MethodPost, "/api/courses", adminToken, fields, "imagen", "portada.PNG", []byte("png-bytes"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Message string `json:"message"`
		ID      int64  `json:"id"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "Curso creado", created.Message)

	crs, err := env.courses.GetCourse(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go desde cero", crs.Title)
	assert.Equal(t, 149.9, crs.Price)
	assert.True(t, strings.HasPrefix(crs.CoverImage, "/uploads/"), crs.CoverImage)
	assert.True(t, strings.HasSuffix(crs.CoverImage, ".png"), crs.CoverImage)

	// the cover is served back
	coverRec := httptest.NewRecorder()
	env.app.ServeHTTP(coverRec, httptest.NewRequest(http.MethodGet, crs.CoverImage, nil))
	require.Equal(t, http.StatusOK, coverRec.Code)
	body, _ := io.ReadAll(coverRec.Body)
	assert.Equal(t, "png-bytes", string(body))

	// without a cover
	rec = env.doMultipart(t, http.MethodPost, "/api/courses", adminToken, map[string]string{"titulo": "Rust"}, "", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &created)
	rust, err := env.courses.GetCourse(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, course.DefaultCoverImage, rust.CoverImage)

	// JSON works too; the stored cover is kept
	env.run(t, []httpTest{
		{
			name: "update", method: http.MethodPut, path: idPath("/api/courses/{}", crs.ID), token: adminToken,
			body: map[string]interface{}{"titulo": "Go avanzado", "precio": 199}, wantData: msg{Message: "Curso actualizado correctamente"},
		},
		{
			name: "update: missing title", method: http.MethodPut, path: idPath("/api/courses/{}", crs.ID), token: adminToken,
			body: map[string]interface{}{"precio": 199}, wantCode: http.StatusBadRequest,
		},
		{
			name: "update: negative price", method: http.MethodPut, path: idPath("/api/courses/{}", crs.ID), token: adminToken,
			body: map[string]interface{}{"titulo": "Go", "precio": -1}, wantCode: http.StatusBadRequest,
		},
		{
			name: "update: unknown", method: http.MethodPut, path: "/api/courses/999", token: adminToken,
			body: map[string]interface{}{"titulo": "Go"}, wantCode: http.StatusNotFound,
		},
	})
	updated, err := env.courses.GetCourse(context.Background(), crs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go avanzado", updated.Title)
	assert.Equal(t, crs.CoverImage, updated.CoverImage)

	// lessons
	rec = env.do(t, http.MethodPost, idPath("/api/courses/{}/lessons", crs.ID), adminToken,
		map[string]interface{}{"titulo": "Intro", "video_url": "https://videos.innovalab.pe/1", "orden": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &created)
	lessonID := created.ID

	env.run(t, []httpTest{
		{
			name: "lesson: bad url", method: http.MethodPost, path: idPath("/api/courses/{}/lessons", crs.ID), token: adminToken,
			body: map[string]interface{}{"titulo": "x", "video_url": "no-url"}, wantCode: http.StatusBadRequest,
		},
		{
			name: "lesson: student", method: http.MethodPost, path: idPath("/api/courses/{}/lessons", crs.ID), token: studentToken,
			body: map[string]interface{}{"titulo": "x"}, wantCode: http.StatusForbidden, wantData: errForbiddenRole("estudiante"),
		},
		{
			name: "lesson: update", method: http.MethodPut, path: idPath("/api/courses/lessons/{}", lessonID), token: adminToken,
			body: map[string]interface{}{"titulo": "Introducción", "orden": 0}, wantData: msg{Message: "Lección actualizada"},
		},
		{
			name: "lesson: delete", method: http.MethodDelete, path: idPath("/api/courses/lessons/{}", lessonID), token: adminToken,
			wantData: msg{Message: "Lección eliminada"},
		},
		{
			name: "lesson: delete again", method: http.MethodDelete, path: idPath("/api/courses/lessons/{}", lessonID), token: adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name: "delete: student", method: http.MethodDelete, path: idPath("/api/courses/{}", crs.ID), token: studentToken,
			wantCode: http.StatusForbidden,
		},
		{name: "delete", method: http.MethodDelete, path: idPath("/api/courses/{}", crs.ID), token: adminToken, wantData: msg{Message: "Curso eliminado"}},
		{name: "deleted", path: idPath("/api/courses/{}", crs.ID), wantCode: http.StatusNotFound},
	})
}

func Test_courseApi_students(t *testing.T) {
	env := setup(t)
	_, adminToken := env.admin(t)
	ana, studentToken := env.student(t, "Ana", "ana@test.pe")
	crs := testutil.CreateCourse(t, env.courses, "Go", 100)
	other := testutil.CreateCourse(t, env.courses, "Rust", 80)
	otherEnr := testutil.CreateEnrollment(t, env.enrollments, ana.ID, other.ID, enrollment.StatusActive)

	type directResp struct {
		Message     string                  `json:"message"`
		Enrollment  enrollment.Enrollment   `json:"enrollment"`
		IsNewUser   bool                    `json:"isNewUser"`
		Credentials *enrollment.Credentials `json:"credentials"`
	}

	// existing account
	rec := env.do(t, http.MethodPost, idPath("/api/courses/{}/students", crs.ID), adminToken, map[string]string{"email": "ANA@test.pe"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp directResp
	decode(t, rec, &resp)
	assert.Equal(t, "Estudiante inscrito correctamente.", resp.Message)
	assert.False(t, resp.IsNewUser)
	assert.Nil(t, resp.Credentials)
	assert.Equal(t, enrollment.StatusActive, resp.Enrollment.Status)
	anaEnrID := resp.Enrollment.ID

	// new account
	rec = env.do(t, http.MethodPost, idPath("/api/courses/{}/students", crs.ID), adminToken,
		map[string]string{"email": "luis@test.pe", "nombres": "Luis", "apellidos": "Rojas"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp = directResp{}
	decode(t, rec, &resp)
	assert.Equal(t, "Usuario creado e inscrito correctamente.", resp.Message)
	assert.True(t, resp.IsNewUser)
	require.NotNil(t, resp.Credentials)
	assert.Equal(t, "luis@test.pe", resp.Credentials.Email)
	assert.Regexp(t, `^Innova\d{4}$`, resp.Credentials.Password)

	// the new student can log in with them
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "luis@test.pe", "password": resp.Credentials.Password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login loginResp
	decode(t, rec, &login)
	require.NotEmpty(t, login.Token)

	// their profile never shows the temporary password
	rec = env.do(t, http.MethodGet, "/api/users/profile", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), resp.Credentials.Password)
	var profile user.Profile
	decode(t, rec, &profile)
	assert.Equal(t, "luis@test.pe", profile.Email)
	assert.Equal(t, "Luis", profile.Names)

	env.run(t, []httpTest{
		{
			name: "already enrolled", method: http.MethodPost, path: idPath("/api/courses/{}/students", crs.ID), token: adminToken,
			body: map[string]string{"email": "ana@test.pe"}, wantCode: http.StatusBadRequest, wantData: msg{Message: "Usuario ya inscrito."},
		},
		{
			name: "new account without names", method: http.MethodPost, path: idPath("/api/courses/{}/students", crs.ID), token: adminToken,
			body: map[string]string{"email": "nuevo@test.pe"}, wantCode: http.StatusBadRequest,
			wantData: errMsg{
				Message: "Nombre y apellido requeridos para nuevos usuarios.",
				Errors:  map[string]string{"nombres": "este campo es obligatorio", "apellidos": "este campo es obligatorio"},
			},
		},
		{
			name: "bad email", method: http.MethodPost, path: idPath("/api/courses/{}/students", crs.ID), token: adminToken,
			body: map[string]string{"email": "nope"}, wantCode: http.StatusBadRequest,
		},
		{
			name: "student", method: http.MethodGet, path: idPath("/api/courses/{}/students", crs.ID), token: studentToken,
			wantCode: http.StatusForbidden,
		},
		{
			name: "progress", method: http.MethodPut, path: idPath("/api/courses/{}/students/{}", crs.ID, anaEnrID), token: adminToken,
			body: map[string]int{"progreso": 80}, wantData: msg{Message: "Progreso actualizado"},
		},
		{
			name: "progress out of range", method: http.MethodPut, path: idPath("/api/courses/{}/students/{}", crs.ID, anaEnrID), token: adminToken,
			body: map[string]int{"progreso": 101}, wantCode: http.StatusBadRequest,
		},
		{
			name: "progress missing", method: http.MethodPut, path: idPath("/api/courses/{}/students/{}", crs.ID, anaEnrID), token: adminToken,
			body: map[string]int{}, wantCode: http.StatusBadRequest,
		},
		{
			name: "progress of another course", method: http.MethodPut, path: idPath("/api/courses/{}/students/{}", crs.ID, otherEnr.ID), token: adminToken,
			body: map[string]int{"progreso": 10}, wantCode: http.StatusNotFound, wantData: msg{Message: "Inscripción no encontrada"},
		},
	})

	rec = env.do(t, http.MethodGet, idPath("/api/courses/{}/students", crs.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var students []enrollment.CourseStudent
	decode(t, rec, &students)
	require.Len(t, students, 2)
	for _, s := range students {
		if s.ID == anaEnrID {
			assert.Equal(t, 80, s.Progress)
			assert.Equal(t, "ana@test.pe", s.Email)
		}
	}

	env.run(t, []httpTest{
		{
			name: "remove", method: http.MethodDelete, path: idPath("/api/courses/{}/students/{}", crs.ID, anaEnrID), token: adminToken,
			wantData: msg{Message: "Estudiante eliminado"},
		},
		{
			name: "remove again", method: http.MethodDelete, path: idPath("/api/courses/{}/students/{}", crs.ID, anaEnrID), token: adminToken,
			wantCode: http.StatusNotFound,
		},
	})
}
