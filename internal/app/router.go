package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-school/internal/auth"
	"github.com/odyssey-erp/odyssey-school/internal/observability"
	"github.com/odyssey-erp/odyssey-school/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-school/internal/portal"
	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	rbachttp "github.com/odyssey-erp/odyssey-school/internal/rbac/http"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
	"github.com/odyssey-erp/odyssey-school/internal/users"
	"github.com/odyssey-erp/odyssey-school/internal/view"
	"github.com/odyssey-erp/odyssey-school/jobs"
	"github.com/odyssey-erp/odyssey-school/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Templates        *view.Engine
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	Identity         *users.IdentityProvider
	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	PortalHandler    *portal.Handler
	PermissionsAPI   *rbachttp.Handler
	PermissionsAdmin *rbachttp.AdminHandler
	RBACMiddleware   rbac.Middleware
	Guards           rbac.Guards
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter builds the application router. Optional handlers left nil are
// not mounted.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
		Identity:       params.Identity,
	})...)
	r.Use(requestLogger(params.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", homeHandler(params))

	var writeRate int
	if params.Config != nil {
		writeRate = params.Config.RBACWriteRate
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.PortalHandler != nil {
		params.PortalHandler.MountRoutes(r)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.PermissionsAdmin != nil {
		params.PermissionsAdmin.MountRoutes(r, params.Guards, writeRate)
	}
	if params.PermissionsAPI != nil {
		r.Route("/api", func(api chi.Router) {
			params.PermissionsAPI.MountRoutes(api, params.RBACMiddleware, writeRate)
		})
	}
	if params.JobHandler != nil {
		r.With(params.RBACMiddleware.RequireRoles(rbac.RoleSuperAdmin)).Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	mountStatic(r)
	return r
}

// homeHandler sends signed-in users to their landing page and renders the
// public welcome page otherwise.
func homeHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := rbac.IdentityFromContext(r.Context())
		if id.IsResolved() {
			http.Redirect(w, r, id.Role.LandingPath(), http.StatusSeeOther)
			return
		}
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			params.Logger.Warn("csrf token", slog.Any("error", err))
		}
		data := view.TemplateData{
			Title:       "Welcome",
			CSRFToken:   token,
			CurrentPath: r.URL.Path,
			Identity:    id,
		}
		if sess != nil {
			data.Flash = sess.PopFlash()
		}
		if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
			params.Logger.Error("render home", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

func mountStatic(r chi.Router) {
	files := http.StripPrefix("/static/", http.FileServer(http.FS(web.Static)))
	r.Handle("/static/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, req)
	}))
}

// requestLogger writes one structured line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
