package shared

import (
	"context"
	"errors"
)

// Sentinel errors shared by the auth, session and page handlers.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCSRFTokenMissing   = errors.New("csrf token missing")
	ErrCSRFTokenMismatch  = errors.New("csrf token mismatch")
)

var safeMessages = []struct {
	target  error
	message string
}{
	{ErrInvalidCredentials, "Invalid email or password."},
	{ErrNotFound, "The requested record was not found."},
	{ErrCSRFTokenMissing, "Your form expired, please reload the page."},
	{ErrCSRFTokenMismatch, "Your form expired, please reload the page."},
	{context.DeadlineExceeded, "The request took too long, please try again."},
}

// UserSafeMessage maps err to text that can be shown on a page without
// leaking internals.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range safeMessages {
		if errors.Is(err, m.target) {
			return m.message
		}
	}
	return "Something went wrong, please try again."
}
