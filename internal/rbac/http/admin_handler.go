package rbachttp

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
	"github.com/odyssey-erp/odyssey-school/internal/view"
)

// AdminHandler renders the permission matrix for super admins.
type AdminHandler struct {
	logger    *slog.Logger
	service   PermissionService
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewAdminHandler builds the HTML administration handler.
func NewAdminHandler(logger *slog.Logger, service PermissionService, templates *view.Engine, csrf *shared.CSRFManager) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{logger: logger, service: service, templates: templates, csrf: csrf}
}

type matrixCell struct {
	Action   rbac.Action
	Granted  bool
	Explicit bool
}

type matrixRow struct {
	Module   rbac.Module
	Label    string
	Explicit bool
	Cells    []matrixCell
}

type roleTab struct {
	Role   rbac.Role
	Label  string
	Active bool
}

type matrixPage struct {
	Role     rbac.Role
	Label    string
	Tabs     []roleTab
	Actions  []rbac.Action
	Rows     []matrixRow
	Epoch    int64
	ReadOnly bool
	Errors   map[string]string
}

func (h *AdminHandler) showMatrix(w http.ResponseWriter, r *http.Request) {
	role := rbac.RoleOfficeAdmin
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := rbac.ParseRole(raw)
		if err != nil {
			h.render(w, r, matrixPage{Tabs: tabs(""), Errors: map[string]string{"general": "Unknown role " + strconv.Quote(raw)}}, http.StatusBadRequest)
			return
		}
		role = parsed
	}
	page := matrixPage{
		Role:     role,
		Label:    role.Label(),
		Tabs:     tabs(role),
		Actions:  rbac.AllActions(),
		ReadOnly: !role.Editable(),
	}
	rows, epoch, err := h.service.ListPermissions(r.Context(), role)
	if err != nil {
		h.logger.Error("load permission matrix", slog.String("role", string(role)), slog.Any("error", err))
		page.Errors = map[string]string{"general": shared.UserSafeMessage(err)}
		h.render(w, r, page, http.StatusServiceUnavailable)
		return
	}
	page.Epoch = epoch
	page.Rows = buildMatrix(rbac.NewSnapshot(role, epoch, rows))
	h.render(w, r, page, http.StatusOK)
}

func (h *AdminHandler) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	rawRole := r.PostFormValue("role")
	back := "/admin/permissions?role=" + url.QueryEscape(rawRole)
	role, err := rbac.ParseRole(rawRole)
	if err != nil {
		h.redirectWithFlash(w, r, "/admin/permissions", "error", "Unknown role")
		return
	}
	module, err := rbac.ParseModule(r.PostFormValue("module"))
	if err != nil {
		h.redirectWithFlash(w, r, back, "error", "Unknown module")
		return
	}
	action, err := rbac.ParseAction(r.PostFormValue("action"))
	if err != nil {
		h.redirectWithFlash(w, r, back, "error", "Unknown action")
		return
	}
	value, err := strconv.ParseBool(r.PostFormValue("value"))
	if err != nil {
		h.redirectWithFlash(w, r, back, "error", "Invalid value")
		return
	}
	_, _, err = h.service.SetFlag(r.Context(), actorFromRequest(r), role, module, action, value)
	if err != nil {
		message := "Permission could not be saved, please retry"
		switch {
		case errors.Is(err, rbac.ErrImmutableRole):
			message = "Super Admin permissions cannot be changed"
		case errors.Is(err, rbac.ErrActorNotAllowed):
			message = "Only a Super Admin may change permissions"
		default:
			h.logger.Error("toggle permission", slog.String("role", string(role)), slog.String("module", string(module)), slog.Any("error", err))
		}
		h.redirectWithFlash(w, r, back, "error", message)
		return
	}
	verb := "revoked"
	if value {
		verb = "granted"
	}
	h.redirectWithFlash(w, r, back, "success", role.Label()+": "+module.Label()+" "+string(action)+" "+verb)
}

func buildMatrix(snap rbac.Snapshot) []matrixRow {
	out := make([]matrixRow, 0, len(rbac.AllModules()))
	for _, module := range rbac.AllModules() {
		explicit := snap.Explicit(module)
		row := matrixRow{Module: module, Label: module.Label(), Explicit: explicit}
		for _, action := range rbac.AllActions() {
			row.Cells = append(row.Cells, matrixCell{
				Action:   action,
				Granted:  rbac.Resolve(snap, module, action),
				Explicit: explicit,
			})
		}
		out = append(out, row)
	}
	return out
}

func tabs(active rbac.Role) []roleTab {
	roles := rbac.AllRoles()
	out := make([]roleTab, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleTab{Role: role, Label: role.Label(), Active: role == active})
	}
	return out
}

func (h *AdminHandler) render(w http.ResponseWriter, r *http.Request, page matrixPage, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Role Permissions",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Identity:    rbac.IdentityFromContext(r.Context()),
		Data:        page,
	}
	if err := h.templates.RenderStatus(w, status, "pages/admin_permissions.html", viewData); err != nil {
		h.logger.Error("render permission matrix", slog.Any("error", err))
	}
}

func (h *AdminHandler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
