package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	testenv "github.com/odyssey-erp/odyssey-school/testing"
)

func newPGStore(t *testing.T) *PGStore {
	t.Helper()
	return NewPGStore(testenv.Postgres(t))
}

func TestPGStoreConcurrentFirstTimeToggles(t *testing.T) {
	store := newPGStore(t)
	ctx := context.Background()

	modules := []Module{ModuleInventory, ModuleExpenses, ModuleReports, ModuleSettings}
	for _, module := range modules {
		module := module
		var g errgroup.Group
		for _, action := range AllActions() {
			action := action
			g.Go(func() error {
				_, _, err := store.UpsertFlag(ctx, RoleOfficeAdmin, module, action, true)
				return err
			})
		}
		require.NoError(t, g.Wait())
	}

	rows, epoch, err := store.ListByRole(ctx, RoleOfficeAdmin)
	require.NoError(t, err)
	require.Len(t, rows, len(modules))
	for _, row := range rows {
		assert.Equal(t, AllTrue(), row.Flags, row.Module)
	}
	assert.Equal(t, int64(len(modules)*len(AllActions())), epoch)
}

func TestPGStoreUpsertPatchAndEpochs(t *testing.T) {
	store := newPGStore(t)
	ctx := context.Background()

	epoch, err := store.Epoch(ctx, RoleTeacher)
	require.NoError(t, err)
	assert.Zero(t, epoch)

	row, epoch, err := store.UpsertFlag(ctx, RoleTeacher, ModuleStudents, ActionEdit, true)
	require.NoError(t, err)
	assert.Equal(t, Flags{CanEdit: true}, row.Flags)
	assert.Equal(t, int64(1), epoch)

	row, epoch, err = store.UpsertFlag(ctx, RoleTeacher, ModuleStudents, ActionView, true)
	require.NoError(t, err)
	assert.Equal(t, Flags{CanView: true, CanEdit: true}, row.Flags)
	assert.Equal(t, int64(2), epoch)

	no := false
	patched, epoch, err := store.Patch(ctx, row.ID, FlagPatch{CanEdit: &no})
	require.NoError(t, err)
	assert.Equal(t, Flags{CanView: true}, patched.Flags)
	assert.Equal(t, int64(3), epoch)

	_, _, err = store.Patch(ctx, row.ID+1000, FlagPatch{CanEdit: &no})
	assert.ErrorIs(t, err, ErrNotFound)

	replaced, epoch, err := store.Replace(ctx, ReplaceInput{Role: RoleTeacher, Module: ModuleStudents, Flags: Flags{CanDelete: true}})
	require.NoError(t, err)
	assert.Equal(t, row.ID, replaced.ID)
	assert.Equal(t, Flags{CanDelete: true}, replaced.Flags)
	assert.Equal(t, int64(4), epoch)

	got, err := store.GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, replaced.Flags, got.Flags)

	_, err = store.GetByID(ctx, row.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)

	parentEpoch, err := store.Epoch(ctx, RoleParent)
	require.NoError(t, err)
	assert.Zero(t, parentEpoch)
}
