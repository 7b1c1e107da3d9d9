package rbac

import "errors"

var (
	// ErrGateConflict indicates more than one gate configuration was supplied.
	ErrGateConflict = errors.New("rbac: gate accepts roles, min role or module/action, not several")
	// ErrGateIncomplete indicates a module without an action or the reverse.
	ErrGateIncomplete = errors.New("rbac: gate module and action must be supplied together")
)

// GatePolicy configures a content-level check. Set at most one of Roles,
// MinRole or Module/Action.
type GatePolicy struct {
	Roles   []Role
	MinRole Role
	Module  Module
	Action  Action
}

// Unrestricted reports whether no configuration was supplied.
func (p GatePolicy) Unrestricted() bool {
	return len(p.Roles) == 0 && p.MinRole == "" && p.Module == "" && p.Action == ""
}

// Validate checks mutual exclusivity.
func (p GatePolicy) Validate() error {
	configured := 0
	if len(p.Roles) > 0 {
		configured++
	}
	if p.MinRole != "" {
		configured++
	}
	if p.Module != "" || p.Action != "" {
		if p.Module == "" || p.Action == "" {
			return ErrGateIncomplete
		}
		configured++
	}
	if configured > 1 {
		return ErrGateConflict
	}
	return nil
}

// Allow evaluates the policy for id. A loading or unavailable identity is
// always denied. Otherwise an empty policy is open, including to anonymous
// visitors, and any configured policy requires a resolved identity.
func Allow(id Identity, p GatePolicy) bool {
	if err := p.Validate(); err != nil {
		return false
	}
	switch id.State {
	case IdentityLoading, IdentityUnavailable:
		return false
	}
	if p.Unrestricted() {
		return true
	}
	if !id.IsResolved() {
		return false
	}
	switch {
	case len(p.Roles) > 0:
		for _, role := range p.Roles {
			if role == id.Role {
				return true
			}
		}
		return false
	case p.MinRole != "":
		return AtLeast(id.Role, p.MinRole)
	default:
		return id.Can(p.Module, p.Action)
	}
}
