package rbac

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrImmutableRole is returned when a write targets super-admin.
	ErrImmutableRole = errors.New("rbac: super admin permissions are not editable")
	// ErrEmptyPatch is returned when a patch names no flag.
	ErrEmptyPatch = errors.New("rbac: patch must set at least one flag")
)

// Flags holds the four independent grants of a row.
type Flags struct {
	CanView   bool `json:"canView"`
	CanCreate bool `json:"canCreate"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// Get returns the flag for action.
func (f Flags) Get(action Action) bool {
	switch action {
	case ActionView:
		return f.CanView
	case ActionCreate:
		return f.CanCreate
	case ActionEdit:
		return f.CanEdit
	case ActionDelete:
		return f.CanDelete
	}
	return false
}

// With returns a copy of f with a single flag changed.
func (f Flags) With(action Action, value bool) Flags {
	switch action {
	case ActionView:
		f.CanView = value
	case ActionCreate:
		f.CanCreate = value
	case ActionEdit:
		f.CanEdit = value
	case ActionDelete:
		f.CanDelete = value
	}
	return f
}

// AllTrue returns flags granting every action.
func AllTrue() Flags {
	return Flags{CanView: true, CanCreate: true, CanEdit: true, CanDelete: true}
}

// PermissionRow is the explicit grant state of one (role, module) pair.
type PermissionRow struct {
	ID     int64  `json:"id"`
	Role   Role   `json:"role"`
	Module Module `json:"module"`
	Flags
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FlagPatch names the flags a partial update touches.
type FlagPatch struct {
	CanView   *bool `json:"canView,omitempty"`
	CanCreate *bool `json:"canCreate,omitempty"`
	CanEdit   *bool `json:"canEdit,omitempty"`
	CanDelete *bool `json:"canDelete,omitempty"`
}

// Empty reports whether no flag is set.
func (p FlagPatch) Empty() bool {
	return p.CanView == nil && p.CanCreate == nil && p.CanEdit == nil && p.CanDelete == nil
}

// Apply overlays the patch on f.
func (p FlagPatch) Apply(f Flags) Flags {
	if p.CanView != nil {
		f.CanView = *p.CanView
	}
	if p.CanCreate != nil {
		f.CanCreate = *p.CanCreate
	}
	if p.CanEdit != nil {
		f.CanEdit = *p.CanEdit
	}
	if p.CanDelete != nil {
		f.CanDelete = *p.CanDelete
	}
	return f
}

// ModuleMap is the per-module projection for one role.
type ModuleMap map[Module]Flags

// Snapshot is an epoch-stamped read of one role's explicit rows.
type Snapshot struct {
	Role  Role                     `json:"role"`
	Epoch int64                    `json:"epoch"`
	Rows  map[Module]PermissionRow `json:"rows"`
}

// NewSnapshot indexes rows by module.
func NewSnapshot(role Role, epoch int64, rows []PermissionRow) Snapshot {
	index := make(map[Module]PermissionRow, len(rows))
	for _, row := range rows {
		if row.Role != role {
			continue
		}
		index[row.Module] = row
	}
	return Snapshot{Role: role, Epoch: epoch, Rows: index}
}

// Explicit reports whether a row exists for module.
func (s Snapshot) Explicit(module Module) bool {
	_, ok := s.Rows[module]
	return ok
}

// ReplaceInput is the full-row create-or-replace contract.
type ReplaceInput struct {
	Role   Role
	Module Module
	Flags  Flags
}
