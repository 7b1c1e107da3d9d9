package rbachttp_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	rbachttp "github.com/odyssey-erp/odyssey-school/internal/rbac/http"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
	"github.com/odyssey-erp/odyssey-school/internal/view"
	_ "github.com/odyssey-erp/odyssey-school/testing"
)

type adminFixture struct {
	router   http.Handler
	sessions *shared.SessionManager
	session  *shared.Session
}

func newAdminFixture(t *testing.T, svc *stubService, id rbac.Identity) *adminFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	sess, err := sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	fx := &adminFixture{sessions: sessions, session: sess}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithSession(req.Context(), fx.session)
			ctx = rbac.ContextWithIdentity(ctx, id)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	guards := rbac.Guards{Renderer: rbachttp.NewGuardRenderer(nil, templates)}
	handler := rbachttp.NewAdminHandler(nil, svc, templates, shared.NewCSRFManager("csrfsecret"))
	handler.MountRoutes(r, guards, 1000)
	fx.router = r
	return fx
}

func (fx *adminFixture) get(target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	fx.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func (fx *adminFixture) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	fx.router.ServeHTTP(rr, req)
	return rr
}

func TestAdminMatrixRendersRole(t *testing.T) {
	svc := &stubService{epoch: 6, rows: []rbac.PermissionRow{{ID: 1, Role: rbac.RoleTeacher, Module: rbac.ModuleInventory, Flags: rbac.Flags{CanView: true}}}}
	fx := newAdminFixture(t, svc, superAdminIdentity())

	rr := fx.get("/admin/permissions?role=teacher")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Role permissions")
	assert.Contains(t, body, `data-epoch="6"`)
	assert.Contains(t, body, "Fee Management")
	assert.Contains(t, body, `action="/admin/permissions/toggle"`)
	assert.Contains(t, body, "explicit")
	assert.NotContains(t, body, "cannot be edited")
}

func TestAdminMatrixSuperAdminIsReadOnly(t *testing.T) {
	fx := newAdminFixture(t, &stubService{}, superAdminIdentity())
	rr := fx.get("/admin/permissions?role=super_admin")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "cannot be edited")
	assert.NotContains(t, body, `action="/admin/permissions/toggle"`)
}

func TestAdminMatrixErrors(t *testing.T) {
	fx := newAdminFixture(t, &stubService{}, superAdminIdentity())
	rr := fx.get("/admin/permissions?role=principal")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Unknown role")

	fx = newAdminFixture(t, &stubService{err: errors.New("db down")}, superAdminIdentity())
	rr = fx.get("/admin/permissions")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAdminMatrixDeniedForOtherRoles(t *testing.T) {
	office := rbac.Resolved(3, rbac.Snapshot{Role: rbac.RoleOfficeAdmin})
	fx := newAdminFixture(t, &stubService{}, office)
	rr := fx.get("/admin/permissions")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Access denied")
	assert.Contains(t, body, "Super Admin")
	assert.Contains(t, body, `href="/office"`)

	fx = newAdminFixture(t, &stubService{}, rbac.Loading())
	rr = fx.get("/admin/permissions")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestAdminToggleRedirectsWithFlash(t *testing.T) {
	svc := &stubService{}
	fx := newAdminFixture(t, svc, superAdminIdentity())

	rr := fx.postForm("/admin/permissions/toggle", url.Values{
		"role":   {"teacher"},
		"module": {"students"},
		"action": {"edit"},
		"value":  {"true"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/permissions?role=teacher", rr.Header().Get("Location"))
	require.Len(t, svc.calls, 1)
	assert.Equal(t, rbac.ActionEdit, svc.calls[0].action)

	flash := fx.session.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "success", flash.Kind)
	assert.Equal(t, "Teacher: Students edit granted", flash.Message)
}

func TestAdminToggleReportsFailures(t *testing.T) {
	svc := &stubService{err: rbac.ErrImmutableRole}
	fx := newAdminFixture(t, svc, superAdminIdentity())

	rr := fx.postForm("/admin/permissions/toggle", url.Values{
		"role": {"super_admin"}, "module": {"settings"}, "action": {"view"}, "value": {"false"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	flash := fx.session.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "error", flash.Kind)
	assert.Equal(t, "Super Admin permissions cannot be changed", flash.Message)

	rr = fx.postForm("/admin/permissions/toggle", url.Values{
		"role": {"teacher"}, "module": {"payroll"}, "action": {"view"}, "value": {"true"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	flash = fx.session.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Unknown module", flash.Message)
	assert.Len(t, svc.calls, 1)
}
