package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.users {
		if row.user.Email == user.Email {
			return fmt.Errorf("%w: users_email_key", repository.ErrDuplicate)
		}
	}
	id, seq := r.s.nextID()
	now := r.s.now()
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[id] = &userRow{seq: seq, user: *user}
	return nil
}

func (r *userRepo) UpdateRole(_ context.Context, id string, role domain.Role) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	row.user.Role = role
	row.user.UpdatedAt = r.s.now()
	user := row.user
	return &user, nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := row.user
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, row := range r.s.users {
		if row.user.Email == email {
			user := row.user
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter, page pagination.Request) ([]domain.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := make([]*userRow, 0, len(r.s.users))
	for _, row := range r.s.users {
		if filter.Role != "" && string(row.user.Role) != filter.Role {
			continue
		}
		if !pagination.MatchesSearch(filter.Search, row.user.Name, row.user.Email) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	users := make([]domain.User, len(rows))
	for i, row := range rows {
		users[i] = row.user
	}
	result := pagination.Slice(users, page)
	return result.Items, result.Meta.Total, nil
}

func (r *userRepo) CountByRole(_ context.Context) (map[domain.Role]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[domain.Role]int64, 3)
	for _, row := range r.s.users {
		counts[row.user.Role]++
	}
	return counts, nil
}
