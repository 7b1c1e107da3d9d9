package users

import (
	"time"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

// User is a directory entry. Field tags name the users table columns.
type User struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Role      rbac.Role `db:"role"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DisplayName falls back to the email for accounts without a name.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
