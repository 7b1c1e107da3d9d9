package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-school/internal/platform/httpx"
)

// Middleware wires RBAC authorization helpers for JSON handlers.
type Middleware struct {
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// RequireRoles admits identities whose role is in the list.
func (m Middleware) RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	policy := GatePolicy{Roles: roles}
	return m.require("roles:"+joinRoles(roles), policy)
}

// RequireMinRole admits identities at least as privileged as min.
func (m Middleware) RequireMinRole(min Role) func(http.Handler) http.Handler {
	return m.require("min:"+string(min), GatePolicy{MinRole: min})
}

// RequireModule admits identities the resolver grants module/action.
func (m Middleware) RequireModule(module Module, action Action) func(http.Handler) http.Handler {
	return m.require("module:"+string(module)+"."+string(action), GatePolicy{Module: module, Action: action})
}

func (m Middleware) require(name string, policy GatePolicy) func(http.Handler) http.Handler {
	if err := policy.Validate(); err != nil {
		panic("rbac: invalid middleware policy " + name + ": " + err.Error())
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			switch id.State {
			case IdentityLoading:
				record(m.Recorder, "api", "loading")
				w.Header().Set("Retry-After", "1")
				httpx.Problem(w, http.StatusServiceUnavailable, "Identity Loading", errIdentityLoading.Error())
				return
			case IdentityUnavailable:
				if m.Logger != nil {
					m.Logger.Error("rbac identity unavailable", slog.String("policy", name), slog.Any("error", id.Err))
				}
				record(m.Recorder, "api", "denied")
				httpx.Problem(w, http.StatusServiceUnavailable, "Permissions Unavailable", "permissions could not be loaded, retry later")
				return
			case IdentityAnonymous:
				record(m.Recorder, "api", "denied")
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !Allow(id, policy) {
				record(m.Recorder, "api", "denied")
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			record(m.Recorder, "api", "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func joinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, role := range roles {
		parts[i] = string(role)
	}
	return strings.Join(parts, ",")
}
