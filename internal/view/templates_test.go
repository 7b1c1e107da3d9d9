package view

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func renderInline(t *testing.T, src string, id rbac.Identity) string {
	t.Helper()
	tpl, err := template.New("inline").Funcs(FuncMap()).Parse(src)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tpl.Execute(&buf, TemplateData{Identity: id}))
	return buf.String()
}

func TestGateFuncs(t *testing.T) {
	teacher := rbac.Resolved(1, rbac.NewSnapshot(rbac.RoleTeacher, 0, nil))
	const src = `{{if gateOpen .Identity}}open {{end}}` +
		`{{if allowRoles .Identity "teacher" "office-admin"}}roles {{end}}` +
		`{{if allowMin .Identity "office_admin"}}min {{end}}` +
		`{{if allowModule .Identity "attendance" "view"}}attendance {{end}}` +
		`{{if allowModule .Identity "attendance" "delete"}}delete {{end}}` +
		`{{if allowRoles .Identity "principal"}}bogus {{end}}`

	assert.Equal(t, "open roles attendance ", renderInline(t, src, teacher))
	assert.Equal(t, "", renderInline(t, src, rbac.Loading()))
	assert.Equal(t, "", renderInline(t, src, rbac.Unavailable(errors.New("store unreachable"))))
	assert.Equal(t, "open ", renderInline(t, src, rbac.Anonymous()))

	super := rbac.Resolved(2, rbac.Snapshot{Role: rbac.RoleSuperAdmin})
	assert.Equal(t, "open min attendance delete ", renderInline(t, src, super))
}

func TestNavHidesLinksByRole(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	render := func(id rbac.Identity) string {
		rr := httptest.NewRecorder()
		require.NoError(t, engine.Render(rr, "pages/home.html", TemplateData{Title: "Home", Identity: id}))
		return rr.Body.String()
	}

	parent := render(rbac.Resolved(1, rbac.NewSnapshot(rbac.RoleParent, 0, nil)))
	assert.False(t, strings.Contains(parent, `href="/users"`))
	assert.False(t, strings.Contains(parent, `href="/admin/permissions"`))

	super := render(rbac.Resolved(2, rbac.Snapshot{Role: rbac.RoleSuperAdmin}))
	assert.Contains(t, super, `href="/users"`)
	assert.Contains(t, super, `href="/admin/permissions"`)

	anon := render(rbac.Anonymous())
	assert.Contains(t, anon, `href="/auth/login"`)
}

func TestRenderStatusWritesNothingOnFailure(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.RenderStatus(rr, http.StatusBadRequest, "pages/missing.html", TemplateData{})
	require.Error(t, err)
	assert.False(t, rr.Flushed)
	assert.Empty(t, rr.Body.String())
	assert.Empty(t, rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	require.NoError(t, engine.RenderStatus(rr, http.StatusBadRequest, "pages/login.html", TemplateData{Title: "Sign in", Data: struct {
		Form   struct{ Email string }
		Errors map[string]string
	}{}}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestRoleLabelFunc(t *testing.T) {
	tpl, err := template.New("x").Funcs(FuncMap()).Parse(`{{roleLabel .}}`)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tpl.Execute(&buf, rbac.RoleOfficeAdmin))
	assert.Equal(t, "Office Admin", buf.String())
}
