package rbachttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-school/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

// PermissionService is the administration contract the handlers depend on.
type PermissionService interface {
	ListPermissions(ctx context.Context, role rbac.Role) ([]rbac.PermissionRow, int64, error)
	ModulePermissionMap(ctx context.Context, role rbac.Role) (rbac.ModuleMap, int64, error)
	ReplaceRow(ctx context.Context, actor rbac.Actor, input rbac.ReplaceInput) (rbac.PermissionRow, int64, error)
	PatchRow(ctx context.Context, actor rbac.Actor, id int64, patch rbac.FlagPatch) (rbac.PermissionRow, int64, error)
	SetFlag(ctx context.Context, actor rbac.Actor, role rbac.Role, module rbac.Module, action rbac.Action, value bool) (rbac.PermissionRow, int64, error)
}

var _ PermissionService = (*rbac.Service)(nil)

// Handler serves the JSON permission API.
type Handler struct {
	logger    *slog.Logger
	service   PermissionService
	validator *validator.Validate
}

// NewHandler builds the JSON API handler.
func NewHandler(logger *slog.Logger, service PermissionService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: newValidator()}
}

type replaceRequest struct {
	Role      string `json:"role" validate:"required,rbac_role"`
	Module    string `json:"module" validate:"required,rbac_module"`
	CanView   bool   `json:"canView"`
	CanCreate bool   `json:"canCreate"`
	CanEdit   bool   `json:"canEdit"`
	CanDelete bool   `json:"canDelete"`
}

type toggleRequest struct {
	Role   string `json:"role" validate:"required,rbac_role"`
	Module string `json:"module" validate:"required,rbac_module"`
	Action string `json:"action" validate:"required,rbac_action"`
	Value  *bool  `json:"value"`
}

type rowResponse struct {
	Permission rbac.PermissionRow `json:"permission"`
	Epoch      int64              `json:"epoch"`
}

type listResponse struct {
	Role        rbac.Role            `json:"role"`
	Epoch       int64                `json:"epoch"`
	Permissions []rbac.PermissionRow `json:"permissions"`
}

type moduleMapResponse struct {
	Role    rbac.Role      `json:"role"`
	Epoch   int64          `json:"epoch"`
	Modules rbac.ModuleMap `json:"modules"`
}

func (h *Handler) listRolePermissions(w http.ResponseWriter, r *http.Request) {
	role, err := rbac.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rows, epoch, err := h.service.ListPermissions(r.Context(), role)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if notModified(w, r, role, epoch) {
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Role: role, Epoch: epoch, Permissions: rows})
}

func (h *Handler) moduleMap(w http.ResponseWriter, r *http.Request) {
	role, err := rbac.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	modules, epoch, err := h.service.ModulePermissionMap(r.Context(), role)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if notModified(w, r, role, epoch) {
		return
	}
	httpx.JSON(w, http.StatusOK, moduleMapResponse{Role: role, Epoch: epoch, Modules: modules})
}

func (h *Handler) replaceRow(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondValidation(w, err)
		return
	}
	// Parsing cannot fail after validation; it normalises aliases.
	role, _ := rbac.ParseRole(req.Role)
	module, _ := rbac.ParseModule(req.Module)
	input := rbac.ReplaceInput{
		Role:   role,
		Module: module,
		Flags:  rbac.Flags{CanView: req.CanView, CanCreate: req.CanCreate, CanEdit: req.CanEdit, CanDelete: req.CanDelete},
	}
	row, epoch, err := h.service.ReplaceRow(r.Context(), actorFromRequest(r), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondRow(w, row, epoch)
}

func (h *Handler) patchRow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}
	var patch rbac.FlagPatch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	row, epoch, err := h.service.PatchRow(r.Context(), actorFromRequest(r), id, patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondRow(w, row, epoch)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondValidation(w, err)
		return
	}
	if req.Value == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "value is required")
		return
	}
	role, _ := rbac.ParseRole(req.Role)
	module, _ := rbac.ParseModule(req.Module)
	action, _ := rbac.ParseAction(req.Action)
	row, epoch, err := h.service.SetFlag(r.Context(), actorFromRequest(r), role, module, action, *req.Value)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondRow(w, row, epoch)
}

func (h *Handler) respondRow(w http.ResponseWriter, row rbac.PermissionRow, epoch int64) {
	w.Header().Set("ETag", etag(row.Role, epoch))
	httpx.JSON(w, http.StatusOK, rowResponse{Permission: row, Epoch: epoch})
}

func (h *Handler) respondValidation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid fields: "+strings.Join(fields, ", "))
}

// respondError maps service errors onto problem responses. Anything
// unrecognised is a 500 and never a grant.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rbac.ErrInvalidRole), errors.Is(err, rbac.ErrInvalidModule),
		errors.Is(err, rbac.ErrInvalidAction), errors.Is(err, rbac.ErrEmptyPatch):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, rbac.ErrImmutableRole):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrConflict, err.Error()))
	case errors.Is(err, rbac.ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: permission row", httpx.ErrNotFound))
	case errors.Is(err, rbac.ErrActorNotAllowed):
		httpx.RespondError(w, httpx.ErrForbidden)
	default:
		h.logger.Error("rbac api", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func actorFromRequest(r *http.Request) rbac.Actor {
	id := rbac.IdentityFromContext(r.Context())
	if !id.IsResolved() {
		return rbac.Actor{}
	}
	return rbac.Actor{UserID: id.UserID, Role: id.Role}
}

func etag(role rbac.Role, epoch int64) string {
	return fmt.Sprintf(`"%s-%d"`, role, epoch)
}

func notModified(w http.ResponseWriter, r *http.Request, role rbac.Role, epoch int64) bool {
	tag := etag(role, epoch)
	w.Header().Set("ETag", tag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == tag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}
