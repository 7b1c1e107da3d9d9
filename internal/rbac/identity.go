package rbac

import "context"

// IdentityState describes how far identity resolution got.
type IdentityState int

// Identity states.
const (
	IdentityAnonymous IdentityState = iota
	IdentityLoading
	IdentityResolved
	IdentityUnavailable
)

func (s IdentityState) String() string {
	switch s {
	case IdentityLoading:
		return "loading"
	case IdentityResolved:
		return "resolved"
	case IdentityUnavailable:
		return "unavailable"
	default:
		return "anonymous"
	}
}

// Identity is the role tag and permission snapshot of the current actor.
type Identity struct {
	State       IdentityState
	UserID      int64
	Role        Role
	Permissions Snapshot
	Err         error
}

// Anonymous is the identity of a caller without a user.
func Anonymous() Identity {
	return Identity{State: IdentityAnonymous}
}

// Loading is the identity while the provider has not answered yet.
func Loading() Identity {
	return Identity{State: IdentityLoading}
}

// Unavailable records a failed identity or permission lookup.
func Unavailable(err error) Identity {
	return Identity{State: IdentityUnavailable, Err: err}
}

// Resolved builds a usable identity.
func Resolved(userID int64, snap Snapshot) Identity {
	return Identity{State: IdentityResolved, UserID: userID, Role: snap.Role, Permissions: snap}
}

// IsResolved reports whether the identity carries a known role.
func (i Identity) IsResolved() bool {
	return i.State == IdentityResolved && i.Role.Valid()
}

// Can resolves module/action for a resolved identity and denies otherwise.
func (i Identity) Can(module Module, action Action) bool {
	if !i.IsResolved() {
		return false
	}
	return Resolve(i.Permissions, module, action)
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity, defaulting to Anonymous.
func IdentityFromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok {
		return Anonymous()
	}
	return id
}
