package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
	"github.com/odyssey-erp/odyssey-school/internal/view"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guards    rbac.Guards
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guards rbac.Guards) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, guards: guards}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.Page(rbac.RolesAtLeast(rbac.RoleOfficeAdmin)...))
		r.Get("/", h.listUsers)
	})
}

type roleTab struct {
	Role   rbac.Role
	Count  int
	Active bool
}

type listPage struct {
	Directory
	Tabs   []roleTab
	Errors map[string]string
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	var filter rbac.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := rbac.ParseRole(raw)
		if err != nil {
			h.render(w, r, listPage{Errors: map[string]string{"general": "Unknown role " + raw}}, http.StatusBadRequest)
			return
		}
		filter = role
	}
	dir, err := h.service.Directory(r.Context(), filter)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render(w, r, listPage{Errors: map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	page := listPage{Directory: dir}
	for _, role := range rbac.AllRoles() {
		page.Tabs = append(page.Tabs, roleTab{Role: role, Count: dir.Counts[role], Active: role == filter})
	}
	h.render(w, r, page, http.StatusOK)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data listPage, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Users",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Identity:    rbac.IdentityFromContext(r.Context()),
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/users_list.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
