package rbac

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Module is a named capability area subject to permissioning.
type Module string

// Modules maintained by the operator.
const (
	ModuleDashboard      Module = "dashboard"
	ModuleStudents       Module = "students"
	ModuleAttendance     Module = "attendance"
	ModuleFeeManagement  Module = "fee_management"
	ModuleExpenses       Module = "expenses"
	ModuleInventory      Module = "inventory"
	ModuleReports        Module = "reports"
	ModuleSettings       Module = "settings"
	ModuleUserManagement Module = "user_management"
	ModuleRoleManagement Module = "role_management"
)

// Action is one of view/create/edit/delete.
type Action string

// Supported actions.
const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

var (
	// ErrInvalidModule indicates a value outside the module enumeration.
	ErrInvalidModule = errors.New("rbac: invalid module")
	// ErrInvalidAction indicates a value outside view/create/edit/delete.
	ErrInvalidAction = errors.New("rbac: invalid action")
)

var modules = []Module{
	ModuleDashboard,
	ModuleStudents,
	ModuleAttendance,
	ModuleFeeManagement,
	ModuleExpenses,
	ModuleInventory,
	ModuleReports,
	ModuleSettings,
	ModuleUserManagement,
	ModuleRoleManagement,
}

var moduleSet = func() map[Module]struct{} {
	set := make(map[Module]struct{}, len(modules))
	for _, m := range modules {
		set[m] = struct{}{}
	}
	return set
}()

var titleCaser = cases.Title(language.English)

// AllModules returns modules in display order.
func AllModules() []Module {
	out := make([]Module, len(modules))
	copy(out, modules)
	return out
}

// ParseModule converts user input into a Module.
func ParseModule(raw string) (Module, error) {
	m := Module(strings.ToLower(strings.TrimSpace(raw)))
	if !m.Valid() {
		return "", ErrInvalidModule
	}
	return m, nil
}

// Valid reports whether the module is known.
func (m Module) Valid() bool {
	_, ok := moduleSet[m]
	return ok
}

// Label renders fee_management as "Fee Management".
func (m Module) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(m), "_", " "))
}

// AllActions returns actions in column order.
func AllActions() []Action {
	return []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}
}

// ParseAction converts user input into an Action.
func ParseAction(raw string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	if !a.Valid() {
		return "", ErrInvalidAction
	}
	return a, nil
}

// Valid reports whether the action is known.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return true
	}
	return false
}
