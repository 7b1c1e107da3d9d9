package portal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
	"github.com/odyssey-erp/odyssey-school/internal/view"
)

func modulesOf(tiles []Tile) []rbac.Module {
	out := make([]rbac.Module, 0, len(tiles))
	for _, tile := range tiles {
		out = append(out, tile.Module)
	}
	return out
}

func TestTilesFollowResolvedPermissions(t *testing.T) {
	parent := rbac.Resolved(1, rbac.NewSnapshot(rbac.RoleParent, 1, nil))
	assert.Equal(t, []rbac.Module{rbac.ModuleDashboard, rbac.ModuleStudents}, modulesOf(Tiles(parent)))

	office := rbac.Resolved(2, rbac.NewSnapshot(rbac.RoleOfficeAdmin, 1, []rbac.PermissionRow{
		{Role: rbac.RoleOfficeAdmin, Module: rbac.ModuleInventory, Flags: rbac.Flags{CanView: true, CanEdit: true}},
		{Role: rbac.RoleOfficeAdmin, Module: rbac.ModuleReports},
	}))
	tiles := Tiles(office)
	assert.Equal(t, []rbac.Module{rbac.ModuleDashboard, rbac.ModuleStudents, rbac.ModuleAttendance, rbac.ModuleInventory}, modulesOf(tiles))
	assert.True(t, tiles[3].CanEdit)
	assert.False(t, tiles[3].CanDelete)

	assert.Len(t, Tiles(rbac.Resolved(3, rbac.Snapshot{Role: rbac.RoleSuperAdmin})), len(rbac.AllModules()))
	assert.Empty(t, Tiles(rbac.Anonymous()))
	assert.Empty(t, Tiles(rbac.Loading()))
}

func TestLandingPagesAreGuarded(t *testing.T) {
	templates, err := view.NewEngine()
	require.NoError(t, err)
	r := chi.NewRouter()
	NewHandler(nil, templates, shared.NewCSRFManager("secret"), rbac.Guards{}).MountRoutes(r)

	serve := func(path string, id rbac.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = req.WithContext(rbac.ContextWithIdentity(req.Context(), id))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}
	teacher := rbac.Resolved(1, rbac.NewSnapshot(rbac.RoleTeacher, 0, nil))
	super := rbac.Resolved(2, rbac.Snapshot{Role: rbac.RoleSuperAdmin})

	rr := serve("/portal/teacher", teacher)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Teacher portal")
	assert.Contains(t, rr.Body.String(), "Attendance")

	assert.Equal(t, http.StatusForbidden, serve("/portal/parent", teacher).Code)
	assert.Equal(t, http.StatusForbidden, serve("/admin", teacher).Code)
	assert.Equal(t, http.StatusOK, serve("/portal/parent", super).Code)
	assert.Equal(t, http.StatusOK, serve("/admin", super).Code)
	assert.Equal(t, http.StatusAccepted, serve("/office", rbac.Loading()).Code)
}
