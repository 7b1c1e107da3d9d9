package auth

import (
	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

// User is the credential record read at sign-in.
type User struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         rbac.Role `db:"role"`
	IsActive     bool      `db:"is_active"`
}

// CanSignIn reports whether the account is active and holds a known role.
func (u *User) CanSignIn() bool {
	return u != nil && u.IsActive && u.Role.Valid()
}
