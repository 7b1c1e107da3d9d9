package rbac

type entitlementKey struct {
	role   Role
	module Module
	action Action
}

// baseEntitlements apply only while no explicit row exists for the pair.
var baseEntitlements = func() map[entitlementKey]struct{} {
	grants := map[entitlementKey]struct{}{}
	grant := func(module Module, action Action, roles ...Role) {
		for _, role := range roles {
			grants[entitlementKey{role: role, module: module, action: action}] = struct{}{}
		}
	}
	grant(ModuleDashboard, ActionView, RoleParent, RoleTeacher, RoleOfficeAdmin)
	grant(ModuleStudents, ActionView, RoleParent, RoleTeacher, RoleOfficeAdmin)
	grant(ModuleAttendance, ActionView, RoleTeacher, RoleOfficeAdmin)
	grant(ModuleReports, ActionView, RoleOfficeAdmin)
	return grants
}()

// BaseEntitlement reports whether the static table grants action.
func BaseEntitlement(role Role, module Module, action Action) bool {
	_, ok := baseEntitlements[entitlementKey{role: role, module: module, action: action}]
	return ok
}

// BaseFlags returns the static grants for a pair as flags.
func BaseFlags(role Role, module Module) Flags {
	var flags Flags
	for _, action := range AllActions() {
		if BaseEntitlement(role, module, action) {
			flags = flags.With(action, true)
		}
	}
	return flags
}
