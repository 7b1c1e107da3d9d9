package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/odyssey-erp/odyssey-school/internal/shared"
)

// ErrActorNotAllowed is returned when a non super-admin attempts a mutation.
var ErrActorNotAllowed = errors.New("rbac: actor may not change permissions")

// Actor identifies who performs an administrative write.
type Actor struct {
	UserID int64
	Role   Role
}

// SystemActor is used by the CLI and seeds.
var SystemActor = Actor{UserID: 0, Role: RoleSuperAdmin}

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SnapshotWarmer schedules a cache warm-up for a role.
type SnapshotWarmer interface {
	EnqueueSnapshotWarm(ctx context.Context, role Role) error
}

// Service orchestrates permission reads and the administration workflow.
type Service struct {
	store  Store
	cache  *SnapshotCache
	audit  AuditRecorder
	warmer SnapshotWarmer
	logger *slog.Logger
}

// NewService constructs a Service. cache, audit and warmer are optional.
func NewService(store Store, cache *SnapshotCache, audit AuditRecorder, warmer SnapshotWarmer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, audit: audit, warmer: warmer, logger: logger}
}

// SetFlag grants or revokes one action for (role, module). A missing row is
// created with the other three flags false.
func (s *Service) SetFlag(ctx context.Context, actor Actor, role Role, module Module, action Action, value bool) (PermissionRow, int64, error) {
	if err := checkWrite(actor, role, module); err != nil {
		return PermissionRow{}, 0, err
	}
	if !action.Valid() {
		return PermissionRow{}, 0, ErrInvalidAction
	}
	row, epoch, err := s.store.UpsertFlag(ctx, role, module, action, value)
	if err != nil {
		return PermissionRow{}, 0, err
	}
	s.afterWrite(ctx, actor, "PERMISSION_SET_FLAG", row, epoch, map[string]any{
		"action": string(action),
		"value":  value,
	})
	return row, epoch, nil
}

// ReplaceRow creates the row or overwrites all four flags.
func (s *Service) ReplaceRow(ctx context.Context, actor Actor, input ReplaceInput) (PermissionRow, int64, error) {
	if err := checkWrite(actor, input.Role, input.Module); err != nil {
		return PermissionRow{}, 0, err
	}
	row, epoch, err := s.store.Replace(ctx, input)
	if err != nil {
		return PermissionRow{}, 0, err
	}
	s.afterWrite(ctx, actor, "PERMISSION_REPLACE", row, epoch, map[string]any{"flags": input.Flags})
	return row, epoch, nil
}

// PatchRow updates only the supplied flags of an existing row.
func (s *Service) PatchRow(ctx context.Context, actor Actor, id int64, patch FlagPatch) (PermissionRow, int64, error) {
	if actor.Role != RoleSuperAdmin {
		return PermissionRow{}, 0, ErrActorNotAllowed
	}
	if patch.Empty() {
		return PermissionRow{}, 0, ErrEmptyPatch
	}
	row, epoch, err := s.store.Patch(ctx, id, patch)
	if err != nil {
		return PermissionRow{}, 0, err
	}
	s.afterWrite(ctx, actor, "PERMISSION_PATCH", row, epoch, map[string]any{"patch": patch})
	return row, epoch, nil
}

// GetRow fetches a single row.
func (s *Service) GetRow(ctx context.Context, id int64) (PermissionRow, error) {
	return s.store.GetByID(ctx, id)
}

// ListPermissions returns the explicit rows of role and their epoch.
func (s *Service) ListPermissions(ctx context.Context, role Role) ([]PermissionRow, int64, error) {
	if !role.Valid() {
		return nil, 0, ErrInvalidRole
	}
	snap, err := s.Snapshot(ctx, role)
	if err != nil {
		return nil, 0, err
	}
	rows := make([]PermissionRow, 0, len(snap.Rows))
	for _, row := range snap.Rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Module < rows[j].Module })
	return rows, snap.Epoch, nil
}

// ModulePermissionMap returns the per-module flags of role, honouring base
// entitlements for modules without a row.
func (s *Service) ModulePermissionMap(ctx context.Context, role Role) (ModuleMap, int64, error) {
	if !role.Valid() {
		return nil, 0, ErrInvalidRole
	}
	snap, err := s.Snapshot(ctx, role)
	if err != nil {
		return nil, 0, err
	}
	return DeriveModuleMap(snap), snap.Epoch, nil
}

// Snapshot returns the current, epoch-stamped rows of role.
func (s *Service) Snapshot(ctx context.Context, role Role) (Snapshot, error) {
	if !role.Valid() {
		return Snapshot{}, ErrInvalidRole
	}
	if role == RoleSuperAdmin {
		return Snapshot{Role: role, Rows: map[Module]PermissionRow{}}, nil
	}
	epoch, err := s.store.Epoch(ctx, role)
	if err != nil {
		return Snapshot{}, err
	}
	return s.cache.Fetch(ctx, role, epoch, func(ctx context.Context) (Snapshot, error) {
		rows, current, err := s.store.ListByRole(ctx, role)
		if err != nil {
			return Snapshot{}, err
		}
		return NewSnapshot(role, current, rows), nil
	})
}

// Resolve answers a single check; store failures deny and return the error.
func (s *Service) Resolve(ctx context.Context, role Role, module Module, action Action) (bool, error) {
	snap, err := s.Snapshot(ctx, role)
	if err != nil {
		return false, err
	}
	return Resolve(snap, module, action), nil
}

// WarmSnapshot loads role into the cache.
func (s *Service) WarmSnapshot(ctx context.Context, role Role) (int64, error) {
	snap, err := s.Snapshot(ctx, role)
	if err != nil {
		return 0, fmt.Errorf("rbac: warm %s: %w", role, err)
	}
	return snap.Epoch, nil
}

func checkWrite(actor Actor, role Role, module Module) error {
	if actor.Role != RoleSuperAdmin {
		return ErrActorNotAllowed
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	if !role.Editable() {
		return ErrImmutableRole
	}
	if !module.Valid() {
		return ErrInvalidModule
	}
	return nil
}

func (s *Service) afterWrite(ctx context.Context, actor Actor, action string, row PermissionRow, epoch int64, meta map[string]any) {
	s.logger.Info("rbac permission changed",
		slog.String("action", action),
		slog.String("role", string(row.Role)),
		slog.String("module", string(row.Module)),
		slog.Int64("epoch", epoch),
		slog.Int64("actor", actor.UserID),
	)
	if s.audit != nil {
		meta["role"] = string(row.Role)
		meta["module"] = string(row.Module)
		meta["epoch"] = epoch
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.UserID,
			Action:   action,
			Entity:   "role_permissions",
			EntityID: strconv.FormatInt(row.ID, 10),
			Meta:     meta,
		})
		if err != nil {
			s.logger.Warn("rbac audit record", slog.Any("error", err))
		}
	}
	if s.warmer != nil {
		if err := s.warmer.EnqueueSnapshotWarm(ctx, row.Role); err != nil {
			s.logger.Warn("rbac enqueue snapshot warm", slog.String("role", string(row.Role)), slog.Any("error", err))
		}
	}
}
