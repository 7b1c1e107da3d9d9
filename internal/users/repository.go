package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns every account ordered by name.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, name, role, is_active, created_at, updated_at FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[User])
}

// FindRole returns the role of an active user. found is false for unknown or
// inactive users. A stored role outside the enumeration is an error.
func (r *Repository) FindRole(ctx context.Context, id int64) (rbac.Role, bool, error) {
	var (
		raw    string
		active bool
	)
	err := r.pool.QueryRow(ctx, `SELECT role, is_active FROM users WHERE id = $1`, id).Scan(&raw, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	if !active {
		return "", false, nil
	}
	role, err := rbac.ParseRole(raw)
	if err != nil {
		return "", false, fmt.Errorf("user %d: %w", id, err)
	}
	return role, true, nil
}

// UpsertUser creates or updates a user keyed by email. Used by the seed tool.
func (r *Repository) UpsertUser(ctx context.Context, email, name, passwordHash string, role rbac.Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash, role = EXCLUDED.role, updated_at = NOW()
RETURNING id`, email, name, passwordHash, string(role)).Scan(&id)
	return id, err
}
