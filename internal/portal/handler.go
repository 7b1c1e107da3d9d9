// Package portal serves the per-role landing pages that page guards fall back to.
package portal

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
	"github.com/odyssey-erp/odyssey-school/internal/view"
)

// Handler renders landing dashboards.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	guards    rbac.Guards
}

// NewHandler builds the portal handler.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, guards rbac.Guards) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, templates: templates, csrf: csrf, guards: guards}
}

// Tile is one module card on a landing page.
type Tile struct {
	Module    rbac.Module
	Label     string
	CanCreate bool
	CanEdit   bool
	CanDelete bool
}

type landingPage struct {
	Heading string
	Tiles   []Tile
}

// MountRoutes registers each role's landing page behind its own guard. The
// super admin may open every portal; lower roles only their own.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guards.Page(rbac.RoleParent, rbac.RoleSuperAdmin)).Get("/portal/parent", h.landing("Parent portal"))
	r.With(h.guards.Page(rbac.RoleTeacher, rbac.RoleSuperAdmin)).Get("/portal/teacher", h.landing("Teacher portal"))
	r.With(h.guards.Page(rbac.RoleOfficeAdmin, rbac.RoleSuperAdmin)).Get("/office", h.landing("Office"))
	r.With(h.guards.Page(rbac.RoleSuperAdmin)).Get("/admin", h.landing("Administration"))
}

func (h *Handler) landing(heading string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := rbac.IdentityFromContext(r.Context())
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:       heading,
			CSRFToken:   csrfToken,
			Flash:       flash,
			CurrentPath: r.URL.Path,
			Identity:    id,
			Data:        landingPage{Heading: heading, Tiles: Tiles(id)},
		}
		if err := h.templates.Render(w, "pages/portal.html", data); err != nil {
			h.logger.Error("render portal", slog.String("path", r.URL.Path), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// Tiles lists the modules the identity may view, in catalogue order.
func Tiles(id rbac.Identity) []Tile {
	var tiles []Tile
	for _, module := range rbac.AllModules() {
		if !rbac.Allow(id, rbac.GatePolicy{Module: module, Action: rbac.ActionView}) {
			continue
		}
		tiles = append(tiles, Tile{
			Module:    module,
			Label:     module.Label(),
			CanCreate: id.Can(module, rbac.ActionCreate),
			CanEdit:   id.Can(module, rbac.ActionEdit),
			CanDelete: id.Can(module, rbac.ActionDelete),
		})
	}
	return tiles
}
