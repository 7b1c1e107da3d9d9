package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

type fakePermissions struct {
	snap  rbac.Snapshot
	err   error
	actor rbac.Actor
}

func (f *fakePermissions) Snapshot(_ context.Context, role rbac.Role) (rbac.Snapshot, error) {
	if f.err != nil {
		return rbac.Snapshot{}, f.err
	}
	snap := f.snap
	snap.Role = role
	return snap, nil
}

func (f *fakePermissions) SetFlag(_ context.Context, actor rbac.Actor, role rbac.Role, module rbac.Module, action rbac.Action, value bool) (rbac.PermissionRow, int64, error) {
	f.actor = actor
	if f.err != nil {
		return rbac.PermissionRow{}, 0, f.err
	}
	return rbac.PermissionRow{Role: role, Module: module, Flags: rbac.Flags{}.With(action, value)}, 8, nil
}

func TestShowPrintsTable(t *testing.T) {
	svc := &fakePermissions{snap: rbac.NewSnapshot(rbac.RoleTeacher, 5, []rbac.PermissionRow{
		{Role: rbac.RoleTeacher, Module: rbac.ModuleInventory, Flags: rbac.Flags{CanView: true, CanEdit: true}},
	})}
	var out bytes.Buffer
	require.NoError(t, NewPermissionsCLI(svc).Show(context.Background(), &out, "Teacher", false))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2+len(rbac.AllModules()))
	assert.Equal(t, "role teacher (epoch 5)", strings.TrimSpace(lines[0]))
	assert.Equal(t, []string{"MODULE", "VIEW", "CREATE", "EDIT", "DELETE", "SOURCE"}, strings.Fields(lines[1]))

	var inventory []string
	for _, line := range lines[2:] {
		if fields := strings.Fields(line); fields[0] == "inventory" {
			inventory = fields
		}
	}
	assert.Equal(t, []string{"inventory", "yes", "-", "yes", "-", "explicit"}, inventory)
}

func TestShowPrintsJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewPermissionsCLI(&fakePermissions{}).Show(context.Background(), &out, "parent", true))

	var body struct {
		Role    string `json:"role"`
		Modules []struct {
			Module   string `json:"module"`
			Explicit bool   `json:"explicit"`
			CanView  bool   `json:"canView"`
		} `json:"modules"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, "parent", body.Role)
	require.Len(t, body.Modules, len(rbac.AllModules()))
	assert.Equal(t, "dashboard", body.Modules[0].Module)
	assert.True(t, body.Modules[0].CanView)
	assert.False(t, body.Modules[0].Explicit)
}

func TestShowErrors(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, NewPermissionsCLI(&fakePermissions{}).Show(context.Background(), &out, "principal", false), rbac.ErrInvalidRole)

	boom := errors.New("db down")
	assert.ErrorIs(t, NewPermissionsCLI(&fakePermissions{err: boom}).Show(context.Background(), &out, "teacher", false), boom)
}

func TestSetUsesSystemActor(t *testing.T) {
	svc := &fakePermissions{}
	var out bytes.Buffer
	require.NoError(t, NewPermissionsCLI(svc).Set(context.Background(), &out, "office_admin", "expenses", "view", true))
	assert.Equal(t, rbac.SystemActor, svc.actor)
	assert.Equal(t, "office_admin/expenses view=true create=false edit=false delete=false (epoch 8)\n", out.String())

	assert.ErrorIs(t, NewPermissionsCLI(svc).Set(context.Background(), &out, "teacher", "payroll", "view", true), rbac.ErrInvalidModule)
	assert.ErrorIs(t, NewPermissionsCLI(svc).Set(context.Background(), &out, "teacher", "students", "approve", true), rbac.ErrInvalidAction)
}
