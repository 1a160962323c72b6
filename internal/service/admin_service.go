package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const dashboardCacheKey = "admin:dashboard"

// Dashboard aggregates ticket and user counts for administrators.
type Dashboard struct {
	Tickets DashboardTickets `json:"tickets"`
	Users   DashboardUsers   `json:"users"`
}

// DashboardTickets counts tickets by status.
type DashboardTickets struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"inProgress"`
	Pending    int64 `json:"pending"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
}

// DashboardUsers counts accounts by role.
type DashboardUsers struct {
	Customers   int64 `json:"customers"`
	TeamMembers int64 `json:"teamMembers"`
	Admins      int64 `json:"admins"`
}

// AdminService holds the administrator-only workflows.
type AdminService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	cache      persistence.Cache
	cacheTTL   time.Duration
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AdminDependencies bundles collaborators for the admin service.
type AdminDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Cache      persistence.Cache
	CacheTTL   time.Duration
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	s := &AdminService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
	if s.cache == nil {
		s.cache = persistence.NoopCache{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Dashboard returns system-wide counts, served from the cache while fresh.
// Ticket creation, status changes, deletes and role changes drop the entry.
func (s *AdminService) Dashboard(ctx context.Context, actor domain.Actor) (Dashboard, error) {
	if err := auth.CanManageUsers(actor); err != nil {
		return Dashboard{}, err
	}

	var cached Dashboard
	hit, err := s.cache.GetJSON(ctx, dashboardCacheKey, &cached)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	}
	s.metrics.CacheLookup(hit)
	if hit {
		return cached, nil
	}

	statusCounts, err := s.tickets.CountByStatus(ctx, repository.TicketFilter{})
	if err != nil {
		return Dashboard{}, apperrors.NewInternalError(err)
	}
	roleCounts, err := s.users.CountByRole(ctx)
	if err != nil {
		return Dashboard{}, apperrors.NewInternalError(err)
	}

	stats := statsFromCounts(statusCounts)
	d := Dashboard{
		Tickets: DashboardTickets{
			Total:      stats.Total,
			Open:       stats.Open,
			InProgress: stats.InProgress,
			Pending:    stats.Pending,
			Resolved:   stats.Resolved,
			Closed:     stats.Closed,
		},
		Users: DashboardUsers{
			Customers:   roleCounts[domain.RoleCustomer],
			TeamMembers: roleCounts[domain.RoleTeam],
			Admins:      roleCounts[domain.RoleAdmin],
		},
	}
	if s.cacheTTL > 0 {
		if err := s.cache.SetJSON(ctx, dashboardCacheKey, d, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return d, nil
}

// ListTickets lists every ticket with the requested filters.
func (s *AdminService) ListTickets(ctx context.Context, actor domain.Actor, q TicketQuery) (pagination.Page[domain.Ticket], error) {
	if err := auth.CanManageUsers(actor); err != nil {
		return pagination.Page[domain.Ticket]{}, err
	}
	filter, err := ticketFilter(q)
	if err != nil {
		return pagination.Page[domain.Ticket]{}, err
	}
	items, total, err := s.tickets.List(ctx, filter, q.Page)
	if err != nil {
		return pagination.Page[domain.Ticket]{}, apperrors.NewInternalError(err)
	}
	return pagination.Page[domain.Ticket]{Items: items, Meta: pagination.NewMeta(q.Page, total)}, nil
}

// UserQuery holds user list filters.
type UserQuery struct {
	Role   string
	Search string
	Page   pagination.Request
}

// ListUsers lists accounts, optionally narrowed by role.
func (s *AdminService) ListUsers(ctx context.Context, actor domain.Actor, q UserQuery) (pagination.Page[domain.User], error) {
	if err := auth.CanManageUsers(actor); err != nil {
		return pagination.Page[domain.User]{}, err
	}
	return listUsers(ctx, s.users, q)
}

// UpdateUserRole changes a user's role and drops the cached dashboard.
func (s *AdminService) UpdateUserRole(ctx context.Context, actor domain.Actor, userID string, role domain.Role) (*domain.User, error) {
	if err := auth.CanManageUsers(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("Invalid role provided", map[string]any{"role": role})
	}
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, "User not found")
	}
	updated, err := s.users.UpdateRole(ctx, current.ID, role)
	if err != nil {
		return nil, lookupErr(err, "User not found")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	if current.Role != role {
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type:  events.EventUserRoleChanged,
			Actor: events.ActorOf(actor),
			Payload: events.UserRoleChangedPayload{
				UserID:  updated.ID,
				OldRole: current.Role,
				NewRole: role,
			},
		})
	}
	return updated, nil
}

// AssignTicket sets or clears the assignee. The assignee is validated before
// the ticket is touched, and only assigned_to is written. It returns the
// updated ticket and a confirmation.
func (s *AdminService) AssignTicket(ctx context.Context, actor domain.Actor, ticketID, assigneeID string) (*domain.Ticket, string, error) {
	if err := auth.CanManageUsers(actor); err != nil {
		return nil, "", err
	}
	assignee, err := resolveAssignee(ctx, s.users, assigneeID)
	if err != nil {
		return nil, "", err
	}
	change, err := s.tickets.Patch(ctx, ticketID, repository.TicketPatch{Assign: true, AssignedTo: assignee})
	if err != nil {
		return nil, "", lookupErr(err, ticketNotFound)
	}
	if !sameAssignee(change.PreviousAssignee, assignee) {
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticketID,
			Actor:    events.ActorOf(actor),
			Payload:  events.TicketAssignedPayload{PreviousAssignee: change.PreviousAssignee, Assignee: assignee},
		})
	}

	updated, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, "", lookupErr(err, ticketNotFound)
	}
	message := "Ticket assigned successfully"
	if assignee == nil {
		message = "Ticket unassigned"
	}
	return updated, message, nil
}

func listUsers(ctx context.Context, users repository.UserRepository, q UserQuery) (pagination.Page[domain.User], error) {
	role := strings.TrimSpace(q.Role)
	if role != "" && !domain.Role(role).Valid() {
		return pagination.Page[domain.User]{}, invalidField("role", role)
	}
	items, total, err := users.List(ctx, repository.UserFilter{Role: role, Search: strings.TrimSpace(q.Search)}, q.Page)
	if err != nil {
		return pagination.Page[domain.User]{}, apperrors.NewInternalError(err)
	}
	return pagination.Page[domain.User]{Items: items, Meta: pagination.NewMeta(q.Page, total)}, nil
}
