package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-school/internal/platform/db"
)

// Store persists permission rows and per-role epochs. Every mutation is atomic
// and returns the role's new epoch.
type Store interface {
	ListByRole(ctx context.Context, role Role) ([]PermissionRow, int64, error)
	Epoch(ctx context.Context, role Role) (int64, error)
	GetByID(ctx context.Context, id int64) (PermissionRow, error)
	UpsertFlag(ctx context.Context, role Role, module Module, action Action, value bool) (PermissionRow, int64, error)
	Replace(ctx context.Context, input ReplaceInput) (PermissionRow, int64, error)
	Patch(ctx context.Context, id int64, patch FlagPatch) (PermissionRow, int64, error)
}

const rowColumns = `id, role, module, can_view, can_create, can_edit, can_delete, created_at, updated_at`

func upsertFlagQuery(column string) string {
	return `INSERT INTO role_permissions (role, module, can_view, can_create, can_edit, can_delete)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (role, module) DO UPDATE SET ` + column + ` = EXCLUDED.` + column + `, updated_at = NOW()
RETURNING ` + rowColumns
}

// One statement per action; column names never come from input.
var upsertFlagSQL = map[Action]string{
	ActionView:   upsertFlagQuery("can_view"),
	ActionCreate: upsertFlagQuery("can_create"),
	ActionEdit:   upsertFlagQuery("can_edit"),
	ActionDelete: upsertFlagQuery("can_delete"),
}

const replaceSQL = `INSERT INTO role_permissions (role, module, can_view, can_create, can_edit, can_delete)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (role, module) DO UPDATE SET
    can_view = EXCLUDED.can_view,
    can_create = EXCLUDED.can_create,
    can_edit = EXCLUDED.can_edit,
    can_delete = EXCLUDED.can_delete,
    updated_at = NOW()
RETURNING ` + rowColumns

const patchSQL = `UPDATE role_permissions SET
    can_view = COALESCE($2::boolean, can_view),
    can_create = COALESCE($3::boolean, can_create),
    can_edit = COALESCE($4::boolean, can_edit),
    can_delete = COALESCE($5::boolean, can_delete),
    updated_at = NOW()
WHERE id = $1
RETURNING ` + rowColumns

const bumpEpochSQL = `INSERT INTO role_permission_epochs (role, epoch) VALUES ($1, 1)
ON CONFLICT (role) DO UPDATE SET epoch = role_permission_epochs.epoch + 1
RETURNING epoch`

const epochSQL = `SELECT COALESCE((SELECT epoch FROM role_permission_epochs WHERE role = $1), 0)`

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

var _ Store = (*PGStore)(nil)

// ListByRole returns the role's rows and the epoch they were read at.
func (s *PGStore) ListByRole(ctx context.Context, role Role) ([]PermissionRow, int64, error) {
	var (
		rows  []PermissionRow
		epoch int64
	)
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := db.WithTxOptions(ctx, s.pool, opts, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, epochSQL, string(role)).Scan(&epoch); err != nil {
			return fmt.Errorf("rbac: read epoch: %w", err)
		}
		result, err := tx.Query(ctx, `SELECT `+rowColumns+` FROM role_permissions WHERE role = $1 ORDER BY module`, string(role))
		if err != nil {
			return fmt.Errorf("rbac: list rows: %w", err)
		}
		defer result.Close()
		rows = rows[:0]
		for result.Next() {
			row, err := scanRow(result)
			if err != nil {
				return err
			}
			if !row.Module.Valid() {
				continue
			}
			rows = append(rows, row)
		}
		return result.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, epoch, nil
}

// Epoch returns the current epoch for role; 0 when never written.
func (s *PGStore) Epoch(ctx context.Context, role Role) (int64, error) {
	var epoch int64
	if err := s.pool.QueryRow(ctx, epochSQL, string(role)).Scan(&epoch); err != nil {
		return 0, fmt.Errorf("rbac: read epoch: %w", err)
	}
	return epoch, nil
}

// GetByID fetches a row by id.
func (s *PGStore) GetByID(ctx context.Context, id int64) (PermissionRow, error) {
	row, err := scanRow(s.pool.QueryRow(ctx, `SELECT `+rowColumns+` FROM role_permissions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PermissionRow{}, ErrNotFound
		}
		return PermissionRow{}, err
	}
	return row, nil
}

// UpsertFlag inserts the row with every other flag false, or updates exactly
// the named column of the existing row, in one statement.
func (s *PGStore) UpsertFlag(ctx context.Context, role Role, module Module, action Action, value bool) (PermissionRow, int64, error) {
	query, ok := upsertFlagSQL[action]
	if !ok {
		return PermissionRow{}, 0, ErrInvalidAction
	}
	flags := Flags{}.With(action, value)
	return s.mutate(ctx, role, func(tx pgx.Tx) (PermissionRow, error) {
		return scanRow(tx.QueryRow(ctx, query, string(role), string(module), flags.CanView, flags.CanCreate, flags.CanEdit, flags.CanDelete))
	})
}

// Replace creates the row or overwrites all four flags.
func (s *PGStore) Replace(ctx context.Context, input ReplaceInput) (PermissionRow, int64, error) {
	f := input.Flags
	return s.mutate(ctx, input.Role, func(tx pgx.Tx) (PermissionRow, error) {
		return scanRow(tx.QueryRow(ctx, replaceSQL, string(input.Role), string(input.Module), f.CanView, f.CanCreate, f.CanEdit, f.CanDelete))
	})
}

// Patch updates the supplied flags of an existing row.
func (s *PGStore) Patch(ctx context.Context, id int64, patch FlagPatch) (PermissionRow, int64, error) {
	var (
		row   PermissionRow
		epoch int64
	)
	opts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := db.WithTxOptions(ctx, s.pool, opts, func(tx pgx.Tx) error {
		var err error
		row, err = scanRow(tx.QueryRow(ctx, patchSQL, id, patch.CanView, patch.CanCreate, patch.CanEdit, patch.CanDelete))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("rbac: patch row: %w", err)
		}
		return tx.QueryRow(ctx, bumpEpochSQL, string(row.Role)).Scan(&epoch)
	})
	if err != nil {
		return PermissionRow{}, 0, err
	}
	return row, epoch, nil
}

// mutate runs write and the epoch bump in one read-committed transaction.
// ON CONFLICT locks the conflicting row, so concurrent writers to the same
// pair serialize instead of failing.
func (s *PGStore) mutate(ctx context.Context, role Role, write func(pgx.Tx) (PermissionRow, error)) (PermissionRow, int64, error) {
	var (
		row   PermissionRow
		epoch int64
	)
	opts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := db.WithTxOptions(ctx, s.pool, opts, func(tx pgx.Tx) error {
		var err error
		row, err = write(tx)
		if err != nil {
			return fmt.Errorf("rbac: upsert row: %w", err)
		}
		if err := tx.QueryRow(ctx, bumpEpochSQL, string(role)).Scan(&epoch); err != nil {
			return fmt.Errorf("rbac: bump epoch: %w", err)
		}
		return nil
	})
	if err != nil {
		return PermissionRow{}, 0, err
	}
	return row, epoch, nil
}

func scanRow(row pgx.Row) (PermissionRow, error) {
	var (
		out          PermissionRow
		role, module string
	)
	if err := row.Scan(&out.ID, &role, &module, &out.CanView, &out.CanCreate, &out.CanEdit, &out.CanDelete, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return PermissionRow{}, err
	}
	out.Role = Role(role)
	out.Module = Module(module)
	return out, nil
}
