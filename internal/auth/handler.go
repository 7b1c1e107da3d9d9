package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
	"github.com/odyssey-erp/odyssey-school/internal/view"
)

// Handler serves the sign-in form and the sign-out action.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		sessions:  sessions,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if id := rbac.IdentityFromContext(r.Context()); id.IsResolved() {
		http.Redirect(w, r, id.Role.LandingPath(), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, loginPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{Email: strings.TrimSpace(r.PostFormValue("email")), Password: r.PostFormValue("password")}
	if errs := h.validate(form); len(errs) > 0 {
		h.render(w, r, http.StatusBadRequest, loginPageData{Form: loginForm{Email: form.Email}, Errors: errs})
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("authenticate", slog.Any("error", err))
		}
		h.render(w, r, http.StatusBadRequest, loginPageData{
			Form:   loginForm{Email: form.Email},
			Errors: map[string]string{"general": shared.UserSafeMessage(err)},
		})
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess.SignIn(user.ID)
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Signed in as " + user.Role.Label()})
	client := ClientInfo{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	if err := h.service.RecordSignIn(r.Context(), sess.ID, user, h.sessions.TTL(), client); err != nil {
		h.logger.Warn("record sign-in", slog.Any("error", err))
	}
	h.logger.Info("user signed in", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	http.Redirect(w, r, user.Role.LandingPath(), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if err := h.service.RecordSignOut(r.Context(), sess.ID); err != nil {
			h.logger.Warn("record sign-out", slog.Any("error", err))
		}
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
}

var fieldMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"min":      "must be at least 8 characters",
}

func (h *Handler) validate(form loginForm) map[string]string {
	err := h.validator.Struct(form)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		out[fe.Field()] = fe.Field() + " " + msg
	}
	return out
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Warn("csrf token", slog.Any("error", err))
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	err = h.templates.RenderStatus(w, status, "pages/login.html", view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Identity:    rbac.IdentityFromContext(r.Context()),
		Data:        data,
	})
	if err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}
