package rbac

// Resolve decides whether the snapshot's role may perform action on module.
//
// Precedence: super admin, then an explicit row (even when it denies), then the
// base entitlement table, then deny.
func Resolve(snap Snapshot, module Module, action Action) bool {
	return ResolveRole(snap.Role, snap.Rows, module, action)
}

// ResolveRole is Resolve over a bare row index.
func ResolveRole(role Role, rows map[Module]PermissionRow, module Module, action Action) bool {
	if !role.Valid() || !module.Valid() || !action.Valid() {
		return false
	}
	if role == RoleSuperAdmin {
		return true
	}
	if row, ok := rows[module]; ok {
		return row.Flags.Get(action)
	}
	return BaseEntitlement(role, module, action)
}

// DeriveModuleMap projects the snapshot onto every module.
func DeriveModuleMap(snap Snapshot) ModuleMap {
	out := make(ModuleMap, len(modules))
	for _, module := range modules {
		var flags Flags
		for _, action := range AllActions() {
			flags = flags.With(action, Resolve(snap, module, action))
		}
		out[module] = flags
	}
	return out
}
