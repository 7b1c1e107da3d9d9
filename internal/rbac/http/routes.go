package rbachttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

const rateWindow = time.Minute

// MountRoutes registers the JSON API under /api. All routes are super-admin only;
// mutations are additionally rate limited per user.
func (h *Handler) MountRoutes(r chi.Router, mw rbac.Middleware, writesPerMinute int) {
	if h == nil {
		return
	}
	r.Group(func(gr chi.Router) {
		gr.Use(mw.RequireRoles(rbac.RoleSuperAdmin))
		gr.Get("/role-permissions", h.listRolePermissions)
		gr.Get("/module-permissions", h.moduleMap)
		gr.Group(func(wr chi.Router) {
			wr.Use(writeLimiter(writesPerMinute))
			wr.Post("/role-permissions", h.replaceRow)
			wr.Post("/role-permissions/toggle", h.toggle)
			wr.Patch("/role-permissions/{id}", h.patchRow)
		})
	})
}

// MountRoutes registers the HTML matrix at /admin/permissions. Paths are
// absolute because /admin itself is the super admin landing page.
func (h *AdminHandler) MountRoutes(r chi.Router, guards rbac.Guards, writesPerMinute int) {
	if h == nil {
		return
	}
	r.Group(func(gr chi.Router) {
		gr.Use(guards.Page(rbac.RoleSuperAdmin))
		gr.Get("/admin/permissions", h.showMatrix)
		gr.With(writeLimiter(writesPerMinute)).Post("/admin/permissions/toggle", h.handleToggle)
	})
}

func writeLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = 30
	}
	return httprate.Limit(perMinute, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
}

func rateLimitKey(r *http.Request) (string, error) {
	if id := rbac.IdentityFromContext(r.Context()); id.IsResolved() {
		return "user:" + strconv.FormatInt(id.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
