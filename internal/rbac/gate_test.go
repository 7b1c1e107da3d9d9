package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resolvedAs(role Role, rows ...PermissionRow) Identity {
	return Resolved(7, snapshotOf(role, rows...))
}

func TestEmptyGateIsOpenToAnonymousAndResolved(t *testing.T) {
	for _, id := range []Identity{Anonymous(), resolvedAs(RoleParent), resolvedAs(RoleSuperAdmin)} {
		assert.True(t, Allow(id, GatePolicy{}), id.State.String())
	}
}

func TestGateNeverAllowsPendingOrFailedIdentity(t *testing.T) {
	policies := []GatePolicy{
		{},
		{Roles: []Role{RoleParent}},
		{MinRole: RoleParent},
		{Module: ModuleDashboard, Action: ActionView},
	}
	for _, policy := range policies {
		assert.False(t, Allow(Loading(), policy), "loading: %+v", policy)
		assert.False(t, Allow(Unavailable(errors.New("store unreachable")), policy), "unavailable: %+v", policy)
	}
}

func TestConfiguredGateDeniesUnresolvedIdentities(t *testing.T) {
	policies := []GatePolicy{
		{Roles: []Role{RoleParent}},
		{MinRole: RoleParent},
		{Module: ModuleDashboard, Action: ActionView},
	}
	for _, policy := range policies {
		assert.False(t, Allow(Anonymous(), policy))
		assert.False(t, Allow(Loading(), policy))
		assert.False(t, Allow(Unavailable(errors.New("down")), policy))
	}
}

func TestGateRoles(t *testing.T) {
	policy := GatePolicy{Roles: []Role{RoleTeacher, RoleOfficeAdmin}}
	assert.True(t, Allow(resolvedAs(RoleTeacher), policy))
	assert.False(t, Allow(resolvedAs(RoleParent), policy))
	// The list is exact, not a minimum.
	assert.False(t, Allow(resolvedAs(RoleSuperAdmin), policy))
}

func TestGateMinRole(t *testing.T) {
	policy := GatePolicy{MinRole: RoleOfficeAdmin}
	assert.True(t, Allow(resolvedAs(RoleOfficeAdmin), policy))
	assert.True(t, Allow(resolvedAs(RoleSuperAdmin), policy))
	assert.False(t, Allow(resolvedAs(RoleTeacher), policy))
}

func TestGateModule(t *testing.T) {
	policy := GatePolicy{Module: ModuleExpenses, Action: ActionView}
	assert.False(t, Allow(resolvedAs(RoleOfficeAdmin), policy))
	assert.True(t, Allow(resolvedAs(RoleOfficeAdmin, PermissionRow{Module: ModuleExpenses, Flags: Flags{CanView: true}}), policy))
	assert.True(t, Allow(resolvedAs(RoleSuperAdmin), policy))
}

func TestGateRejectsConflictingConfiguration(t *testing.T) {
	conflict := GatePolicy{Roles: []Role{RoleSuperAdmin}, MinRole: RoleParent}
	assert.ErrorIs(t, conflict.Validate(), ErrGateConflict)
	assert.False(t, Allow(resolvedAs(RoleSuperAdmin), conflict))

	incomplete := GatePolicy{Module: ModuleStudents}
	assert.ErrorIs(t, incomplete.Validate(), ErrGateIncomplete)
	assert.False(t, Allow(resolvedAs(RoleSuperAdmin), incomplete))

	assert.NoError(t, GatePolicy{MinRole: RoleTeacher}.Validate())
}

func TestIdentityCanRequiresResolution(t *testing.T) {
	id := Identity{State: IdentityLoading, Role: RoleSuperAdmin, Permissions: Snapshot{Role: RoleSuperAdmin}}
	assert.False(t, id.Can(ModuleDashboard, ActionView))
	id.State = IdentityResolved
	assert.True(t, id.Can(ModuleDashboard, ActionView))
}
