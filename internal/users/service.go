package users

import (
	"context"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// Directory is the staff and parent listing shown to office administrators.
type Directory struct {
	Users  []User
	Counts map[rbac.Role]int
	Filter rbac.Role
}

// Service builds user listings.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Directory lists users, optionally narrowed to one role. Counts always cover
// every account so the filter links show totals.
func (s *Service) Directory(ctx context.Context, filter rbac.Role) (Directory, error) {
	all, err := s.repo.ListUsers(ctx)
	if err != nil {
		return Directory{}, err
	}
	dir := Directory{Counts: make(map[rbac.Role]int, len(rbac.AllRoles())), Filter: filter}
	for _, u := range all {
		dir.Counts[u.Role]++
		if filter == "" || u.Role == filter {
			dir.Users = append(dir.Users, u)
		}
	}
	return dir, nil
}
