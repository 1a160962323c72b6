package service

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// UserService serves the user directory to any authenticated caller.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns a page of users matching role and search.
func (s *UserService) List(ctx context.Context, _ domain.Actor, q UserQuery) (pagination.Page[domain.User], error) {
	return listUsers(ctx, s.users, q)
}
