package view

import (
	"html/template"
	"time"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

// FuncMap returns the helpers available to every template. The allow*
// helpers evaluate a content gate against the request identity; a malformed
// argument closes the gate.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": formatDate,
		"roleLabel":  func(r rbac.Role) string { return r.Label() },
		// {{ if gateOpen .Identity }} renders unless the identity is loading or unavailable.
		"gateOpen": func(id rbac.Identity) bool {
			return rbac.Allow(id, rbac.GatePolicy{})
		},
		"allowRoles":  allowRoles,
		"allowMin":    allowMin,
		"allowModule": allowModule,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02 Jan 2006 15:04")
}

func allowRoles(id rbac.Identity, raw ...string) bool {
	if len(raw) == 0 {
		return false
	}
	roles := make([]rbac.Role, 0, len(raw))
	for _, r := range raw {
		role, err := rbac.ParseRole(r)
		if err != nil {
			return false
		}
		roles = append(roles, role)
	}
	return rbac.Allow(id, rbac.GatePolicy{Roles: roles})
}

func allowMin(id rbac.Identity, raw string) bool {
	role, err := rbac.ParseRole(raw)
	if err != nil {
		return false
	}
	return rbac.Allow(id, rbac.GatePolicy{MinRole: role})
}

func allowModule(id rbac.Identity, rawModule, rawAction string) bool {
	module, err := rbac.ParseModule(rawModule)
	if err != nil {
		return false
	}
	action, err := rbac.ParseAction(rawAction)
	if err != nil {
		return false
	}
	return rbac.Allow(id, rbac.GatePolicy{Module: module, Action: action})
}
