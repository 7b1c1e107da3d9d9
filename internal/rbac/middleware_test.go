package rbac

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/odyssey-school/internal/platform/httpx"
)

func serveAPI(mw func(http.Handler) http.Handler, id Identity) *httptest.ResponseRecorder {
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/role-permissions?role=teacher", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), id))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestMiddlewareStatusPerIdentityState(t *testing.T) {
	mw := Middleware{}.RequireRoles(RoleSuperAdmin)

	assert.Equal(t, http.StatusNoContent, serveAPI(mw, resolvedAs(RoleSuperAdmin)).Code)
	assert.Equal(t, http.StatusForbidden, serveAPI(mw, resolvedAs(RoleOfficeAdmin)).Code)
	assert.Equal(t, http.StatusUnauthorized, serveAPI(mw, Anonymous()).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serveAPI(mw, Unavailable(errors.New("down"))).Code)

	loading := serveAPI(mw, Loading())
	assert.Equal(t, http.StatusServiceUnavailable, loading.Code)
	assert.Equal(t, "1", loading.Header().Get("Retry-After"))
	assert.Equal(t, httpx.ProblemContentType, loading.Header().Get("Content-Type"))
}

func TestMiddlewareMinRoleAndModule(t *testing.T) {
	recorder := &countingRecorder{}
	m := Middleware{Recorder: recorder}

	minRole := m.RequireMinRole(RoleTeacher)
	assert.Equal(t, http.StatusNoContent, serveAPI(minRole, resolvedAs(RoleOfficeAdmin)).Code)
	assert.Equal(t, http.StatusForbidden, serveAPI(minRole, resolvedAs(RoleParent)).Code)

	module := m.RequireModule(ModuleInventory, ActionEdit)
	assert.Equal(t, http.StatusForbidden, serveAPI(module, resolvedAs(RoleOfficeAdmin)).Code)
	granted := resolvedAs(RoleOfficeAdmin, PermissionRow{Module: ModuleInventory, Flags: Flags{CanEdit: true}})
	assert.Equal(t, http.StatusNoContent, serveAPI(module, granted).Code)

	assert.Equal(t, 2, recorder.outcomes["api/allowed"])
	assert.Equal(t, 2, recorder.outcomes["api/denied"])
}

func TestMiddlewarePanicsOnInvalidPolicy(t *testing.T) {
	assert.Panics(t, func() {
		Middleware{}.RequireModule(ModuleInventory, "")
	})
}
