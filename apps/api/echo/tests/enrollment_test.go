package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovalab/center/core/enrollment"
	"github.com/innovalab/center/testutil"
)

func Test_enrollmentApi(t *testing.T) {
	env := setup(t)
	_, adminToken := env.admin(t)
	ana, anaToken := env.student(t, "Ana", "ana@test.pe")
	luis, luisToken := env.student(t, "Luis", "luis@test.pe")
	goCrs := testutil.CreateCourse(t, env.courses, "Go", 100)
	rust := testutil.CreateCourse(t, env.courses, "Rust", 80)

	pending := "pendiente"
	env.run(t, []httpTest{
		{
			name: "check: not enrolled", path: idPath("/api/courses/{}/check-enrollment", goCrs.ID), token: anaToken,
			wantData: enrollment.Status{},
		},
		{
			name: "enroll: auth required", method: http.MethodPost, path: idPath("/api/courses/{}/enroll", goCrs.ID),
			wantCode: http.StatusForbidden, wantData: errMissingToken,
		},
		{
			name: "enroll", method: http.MethodPost, path: idPath("/api/courses/{}/enroll", goCrs.ID), token: anaToken,
			wantCode: http.StatusCreated, wantData: msg{Message: "Inscrito con éxito"},
		},
		{
			name: "enroll again", method: http.MethodPost, path: idPath("/api/courses/{}/enroll", goCrs.ID), token: anaToken,
			wantCode: http.StatusBadRequest, wantData: msg{Message: "Usuario ya inscrito."},
		},
		{
			name: "request again", method: http.MethodPost, path: idPath("/api/enrollments/courses/{}/enroll", goCrs.ID), token: anaToken,
			body:     map[string]string{"metodo_pago": "yape"},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"message": "Solicitud ya registrada.", "status": "pendiente"},
		},
		{
			name: "request", method: http.MethodPost, path: idPath("/api/enrollments/courses/{}/enroll", rust.ID), token: luisToken,
			body:     map[string]string{"metodo_pago": "yape"},
			wantCode: http.StatusCreated, wantData: map[string]string{"message": "Registrado correctamente", "status": "pendiente"},
		},
		{
			name: "request: unknown course", method: http.MethodPost, path: "/api/enrollments/courses/999/enroll", token: luisToken,
			wantCode: http.StatusNotFound, wantData: msg{Message: "Curso no encontrado"},
		},
		{
			name: "check: pending", path: idPath("/api/enrollments/courses/{}/check-enrollment", goCrs.ID), token: anaToken,
			wantData: enrollment.Status{IsEnrolled: true, Status: &pending},
		},
		{
			name: "pending: student", path: "/api/enrollments/pending", token: anaToken,
			wantCode: http.StatusForbidden, wantData: errForbiddenRole("estudiante"),
		},
	})

	rec := env.do(t, http.MethodGet, "/api/enrollments/pending", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var queue []enrollment.PendingEnrollment
	decode(t, rec, &queue)
	require.Len(t, queue, 2)
	ids := map[string]int64{}
	for _, p := range queue {
		ids[p.Email] = p.ID
	}
	require.Contains(t, ids, "ana@test.pe")
	require.Contains(t, ids, "luis@test.pe")

	env.run(t, []httpTest{
		{
			name: "approve: student", method: http.MethodPatch, path: idPath("/api/enrollments/{}/approve", ids["ana@test.pe"]), token: anaToken,
			wantCode: http.StatusForbidden,
		},
		{
			name: "approve", method: http.MethodPatch, path: idPath("/api/enrollments/{}/approve", ids["ana@test.pe"]), token: adminToken,
			wantData: msg{Message: "Aprobada"},
		},
		{
			name: "approve: unknown", method: http.MethodPatch, path: "/api/enrollments/999/approve", token: adminToken,
			wantCode: http.StatusNotFound, wantData: msg{Message: "Inscripción no encontrada"},
		},
		{
			name: "reject", method: http.MethodDelete, path: idPath("/api/enrollments/{}/reject", ids["luis@test.pe"]), token: adminToken,
			wantData: msg{Message: "Rechazada"},
		},
		{
			name: "check: rejected", path: idPath("/api/enrollments/courses/{}/check-enrollment", rust.ID), token: luisToken,
			wantData: enrollment.Status{},
		},
		{name: "own courses: other student", path: idPath("/api/enrollments/user/{}", ana.ID), token: luisToken, wantCode: http.StatusForbidden},
		{name: "own courses: bad id", path: "/api/enrollments/user/abc", token: luisToken, wantCode: http.StatusBadRequest, wantData: errInvalidID},
		{name: "own courses: empty", path: idPath("/api/enrollments/user/{}", luis.ID), token: luisToken, wantData: []interface{}{}},
	})

	// an approval notifies the student
	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@test.pe", sent[0].To[0].Address)

	for _, token := range []string{anaToken, adminToken} {
		rec = env.do(t, http.MethodGet, idPath("/api/enrollments/user/{}", ana.ID), token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var courses []enrollment.UserCourse
		decode(t, rec, &courses)
		require.Len(t, courses, 1)
		assert.Equal(t, goCrs.ID, courses[0].ID)
		assert.Equal(t, "Go", courses[0].Title)
		assert.Zero(t, courses[0].Progress)
	}
}
