package rbachttp

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	"github.com/odyssey-erp/odyssey-school/internal/view"
)

// GuardRenderer draws the waiting and access-denied pages for page guards.
type GuardRenderer struct {
	logger    *slog.Logger
	templates *view.Engine
}

// NewGuardRenderer builds a renderer backed by the template engine.
func NewGuardRenderer(logger *slog.Logger, templates *view.Engine) *GuardRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardRenderer{logger: logger, templates: templates}
}

var _ rbac.GuardRenderer = (*GuardRenderer)(nil)

type deniedPage struct {
	Required    string
	Actual      string
	SafeLanding string
	Reason      string
	Retryable   bool
}

// RenderWaiting shows the neutral placeholder while the identity loads.
func (g *GuardRenderer) RenderWaiting(w http.ResponseWriter, r *http.Request, decision rbac.GuardDecision) {
	w.Header().Set("Refresh", "1")
	data := view.TemplateData{Title: "Loading", CurrentPath: r.URL.Path}
	if err := g.templates.RenderStatus(w, http.StatusAccepted, "pages/loading.html", data); err != nil {
		g.logger.Error("render loading", slog.Any("error", err))
	}
}

// RenderDenied shows the required roles, the actual role and a safe landing.
func (g *GuardRenderer) RenderDenied(w http.ResponseWriter, r *http.Request, decision rbac.GuardDecision, status int) {
	required := make([]string, 0, len(decision.RequiredRoles))
	for _, role := range decision.RequiredRoles {
		required = append(required, role.Label())
	}
	actual := "none"
	if decision.ActualRole.Valid() {
		actual = decision.ActualRole.Label()
	}
	g.logger.Info("page guard denied",
		slog.String("path", r.URL.Path),
		slog.String("role", string(decision.ActualRole)),
		slog.String("reason", decision.Reason),
	)
	data := view.TemplateData{
		Title:       "Access denied",
		CurrentPath: r.URL.Path,
		Identity:    rbac.IdentityFromContext(r.Context()),
		Data: deniedPage{
			Required:    strings.Join(required, ", "),
			Actual:      actual,
			SafeLanding: decision.SafeLanding,
			Reason:      decision.Reason,
			Retryable:   decision.Retryable,
		},
	}
	if err := g.templates.RenderStatus(w, status, "pages/access_denied.html", data); err != nil {
		g.logger.Error("render access denied", slog.Any("error", err))
	}
}
