package rbac

import (
	"errors"
	"net/http"
	"strconv"
)

// GuardState is the outcome of a page guard evaluation.
type GuardState int

// Guard states. Loading resolves to either Allowed or Denied on a later request.
const (
	GuardLoading GuardState = iota
	GuardAllowed
	GuardDenied
)

func (s GuardState) String() string {
	switch s {
	case GuardAllowed:
		return "allowed"
	case GuardDenied:
		return "denied"
	default:
		return "loading"
	}
}

// LoginPath is the landing route for callers without an identity.
const LoginPath = "/auth/login"

// GuardDecision carries what the denial view needs for diagnostics.
type GuardDecision struct {
	State         GuardState
	RequiredRoles []Role
	ActualRole    Role
	SafeLanding   string
	Reason        string
	Retryable     bool
}

// PageGuard protects a full page with an explicit role allow-list.
type PageGuard struct {
	Allowed []Role
}

// NewPageGuard builds a guard for the given roles.
func NewPageGuard(allowed ...Role) PageGuard {
	return PageGuard{Allowed: allowed}
}

// Evaluate runs the guard against the identity snapshot it is given.
func (g PageGuard) Evaluate(id Identity) GuardDecision {
	decision := GuardDecision{RequiredRoles: append([]Role(nil), g.Allowed...), ActualRole: id.Role}
	switch id.State {
	case IdentityLoading:
		decision.State = GuardLoading
		return decision
	case IdentityUnavailable:
		decision.State = GuardDenied
		decision.Retryable = true
		decision.Reason = "permissions could not be loaded"
		if id.Err != nil {
			decision.Reason += ": " + id.Err.Error()
		}
		decision.SafeLanding = "/"
		return decision
	case IdentityResolved:
	default:
		decision.State = GuardDenied
		decision.Reason = "sign in required"
		decision.SafeLanding = LoginPath
		return decision
	}
	if !id.Role.Valid() {
		decision.State = GuardDenied
		decision.Reason = "unknown role"
		decision.SafeLanding = "/"
		return decision
	}
	for _, role := range g.Allowed {
		if role == id.Role {
			decision.State = GuardAllowed
			return decision
		}
	}
	decision.State = GuardDenied
	decision.Reason = "role " + string(id.Role) + " is not allowed"
	decision.SafeLanding = id.Role.LandingPath()
	return decision
}

// GuardRenderer renders the waiting and denial views.
type GuardRenderer interface {
	RenderWaiting(w http.ResponseWriter, r *http.Request, decision GuardDecision)
	RenderDenied(w http.ResponseWriter, r *http.Request, decision GuardDecision, status int)
}

// DecisionRecorder counts enforcement outcomes.
type DecisionRecorder interface {
	RecordDecision(point, outcome string)
}

// Guards binds page guards to a renderer.
type Guards struct {
	Renderer GuardRenderer
	Recorder DecisionRecorder
}

// Page wraps a handler so that only the listed roles reach it.
func (g Guards) Page(allowed ...Role) func(http.Handler) http.Handler {
	guard := NewPageGuard(allowed...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := guard.Evaluate(IdentityFromContext(r.Context()))
			record(g.Recorder, "page", decision.State.String())
			switch decision.State {
			case GuardAllowed:
				next.ServeHTTP(w, r)
			case GuardLoading:
				w.Header().Set("Retry-After", strconv.Itoa(1))
				if g.Renderer == nil {
					http.Error(w, "loading", http.StatusAccepted)
					return
				}
				g.Renderer.RenderWaiting(w, r, decision)
			default:
				status := http.StatusForbidden
				if decision.Retryable {
					status = http.StatusServiceUnavailable
				}
				if g.Renderer == nil {
					http.Error(w, http.StatusText(status), status)
					return
				}
				g.Renderer.RenderDenied(w, r, decision, status)
			}
		})
	}
}

func record(rec DecisionRecorder, point, outcome string) {
	if rec != nil {
		rec.RecordDecision(point, outcome)
	}
}

// errIdentityLoading is reported by JSON enforcement points for loading identities.
var errIdentityLoading = errors.New("rbac: identity still loading")
