package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
)

// RoleFinder resolves the stored role of a user.
type RoleFinder interface {
	FindRole(ctx context.Context, id int64) (rbac.Role, bool, error)
}

// SnapshotSource yields the current permission snapshot of a role.
type SnapshotSource interface {
	Snapshot(ctx context.Context, role rbac.Role) (rbac.Snapshot, error)
}

// IdentityProvider turns a session into an rbac.Identity.
type IdentityProvider struct {
	roles   RoleFinder
	perms   SnapshotSource
	timeout time.Duration
	logger  *slog.Logger
}

// NewIdentityProvider builds a provider. A lookup that exceeds timeout yields
// a Loading identity so the client retries instead of being denied.
func NewIdentityProvider(roles RoleFinder, perms SnapshotSource, timeout time.Duration, logger *slog.Logger) *IdentityProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityProvider{roles: roles, perms: perms, timeout: timeout, logger: logger}
}

// Resolve never coerces: unknown roles and failed lookups are Unavailable.
func (p *IdentityProvider) Resolve(ctx context.Context, sess *shared.Session) rbac.Identity {
	if sess == nil {
		return rbac.Anonymous()
	}
	userID, ok := sess.UserID()
	if !ok {
		return rbac.Anonymous()
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	role, found, err := p.roles.FindRole(ctx, userID)
	if err != nil {
		return p.failed(userID, err)
	}
	if !found {
		return rbac.Anonymous()
	}
	snap, err := p.perms.Snapshot(ctx, role)
	if err != nil {
		return p.failed(userID, err)
	}
	return rbac.Resolved(userID, snap)
}

func (p *IdentityProvider) failed(userID int64, err error) rbac.Identity {
	if errors.Is(err, context.DeadlineExceeded) {
		p.logger.Warn("identity lookup still pending", slog.Int64("user_id", userID))
		return rbac.Loading()
	}
	p.logger.Error("identity lookup failed", slog.Int64("user_id", userID), slog.Any("error", err))
	return rbac.Unavailable(err)
}

// IdentityMiddleware resolves the identity once per request and stores it in
// the request context for guards, middleware and templates.
func IdentityMiddleware(provider *IdentityProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := provider.Resolve(r.Context(), shared.SessionFromContext(r.Context()))
			ctx := rbac.ContextWithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
