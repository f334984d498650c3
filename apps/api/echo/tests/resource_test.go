package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovalab/center/core/resource"
	"github.com/innovalab/center/testutil"
)

func Test_resourceApi(t *testing.T) {
	env := setup(t)
	_, adminToken := env.admin(t)
	_, anaToken := env.student(t, "Ana", "ana@test.pe")
	crs := testutil.CreateCourse(t, env.courses, "Go", 100)
	path := idPath("/api/resources/course/{}", crs.ID)

	link := map[string]string{"titulo": "Tour de Go", "tipo": "link", "url_externa": "https://go.dev/tour"}
	env.run(t, []httpTest{
		{name: "list: empty", path: path, wantData: []interface{}{}},
		{name: "list: bad id", path: "/api/resources/course/abc", wantCode: http.StatusBadRequest, wantData: errInvalidID},
		{name: "add: auth required", method: http.MethodPost, path: path, body: link, wantCode: http.StatusForbidden, wantData: errMissingToken},
		{
			name: "add: student", method: http.MethodPost, path: path, token: anaToken, body: link,
			wantCode: http.StatusForbidden, wantData: errForbiddenRole("estudiante"),
		},
		{
			name: "add: link without url", method: http.MethodPost, path: path, token: adminToken,
			body:     map[string]string{"titulo": "Tour de Go", "tipo": "link"},
			wantCode: http.StatusBadRequest,
			wantData: errMsg{Message: "Debes ingresar una URL válida.", Errors: map[string]string{"url_externa": "este campo es obligatorio"}},
		},
		{
			name: "add: unknown kind", method: http.MethodPost, path: path, token: adminToken,
			body: map[string]string{"titulo": "Video", "tipo": "video"}, wantCode: http.StatusBadRequest,
		},
		{
			name: "add: unknown course", method: http.MethodPost, path: "/api/resources/course/999", token: adminToken,
			body: link, wantCode: http.StatusNotFound, wantData: msg{Message: "Curso no encontrado"},
		},
	})

	rec := env.do(t, http.MethodPost, path, adminToken, link)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	fields := map[string]string{"titulo": "Guía", "tipo": "archivo", "descripcion": "Semana 1"}
	rec = env.doMultipart(t, http.MethodPost, path, adminToken, fields, "", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.JSONEq(t, string(marshal(t, errMsg{
		Message: "Debes subir un archivo.",
		Errors:  map[string]string{"archivo": "este campo es obligatorio"},
	})), rec.Body.String())

	rec = env.doMultipart(t, http.MethodPost, path, adminToken, fields, "archivo", "guia.PDF", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resources []resource.Resource
	decode(t, rec, &resources)
	require.Len(t, resources, 2)

	byKind := map[string]resource.Resource{}
	for _, res := range resources {
		byKind[res.Kind] = res
	}
	assert.Equal(t, "https://go.dev/tour", byKind[resource.KindLink].URL)
	file := byKind[resource.KindFile]
	assert.Equal(t, "Semana 1", file.Description)
	assert.True(t, strings.HasPrefix(file.URL, "/uploads/"), file.URL)
	assert.True(t, strings.HasSuffix(file.URL, ".pdf"), file.URL)

	// the stored file is served back
	rec = env.do(t, http.MethodGet, file.URL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())

	env.run(t, []httpTest{
		{
			name: "delete: student", method: http.MethodDelete, path: idPath("/api/resources/{}", file.ID), token: anaToken,
			wantCode: http.StatusForbidden,
		},
		{
			name: "delete", method: http.MethodDelete, path: idPath("/api/resources/{}", file.ID), token: adminToken,
			wantData: msg{Message: "Recurso eliminado"},
		},
		{
			name: "delete again", method: http.MethodDelete, path: idPath("/api/resources/{}", file.ID), token: adminToken,
			wantCode: http.StatusNotFound, wantData: msg{Message: "Recurso no encontrado"},
		},
	})

	rec = env.do(t, http.MethodGet, path, "", nil)
	decode(t, rec, &resources)
	require.Len(t, resources, 1)
	assert.Equal(t, resource.KindLink, resources[0].Kind)
}
