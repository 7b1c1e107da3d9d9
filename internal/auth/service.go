package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-school/internal/shared"
)

// Compared against when the email is unknown so both paths cost one bcrypt run.
var placeholderHash, _ = bcrypt.GenerateFromPassword([]byte("odyssey-placeholder"), bcrypt.DefaultCost)

// ClientInfo describes where a sign-in came from.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Service implements sign-in and sign-out on top of Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Authenticate checks credentials. Unknown emails, inactive accounts, accounts
// holding an unknown role and wrong passwords all report ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrInvalidCredentials) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(placeholderHash, []byte(password))
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.CanSignIn() {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RecordSignIn stores the session row used for auditing active sign-ins.
func (s *Service) RecordSignIn(ctx context.Context, sessionID string, user *User, ttl time.Duration, client ClientInfo) error {
	return s.repo.CreateSession(ctx, sessionID, user.ID, s.now().Add(ttl), client.IP, client.UserAgent)
}

// RecordSignOut removes the session row.
func (s *Service) RecordSignOut(ctx context.Context, sessionID string) error {
	return s.repo.DeleteSession(ctx, sessionID)
}

// HashPassword derives the bcrypt hash stored for a user.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
