package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var (
	customer      = domain.Actor{ID: "c1", Role: domain.RoleCustomer}
	otherCustomer = domain.Actor{ID: "c2", Role: domain.RoleCustomer}
	teamMember    = domain.Actor{ID: "t1", Role: domain.RoleTeam}
	admin         = domain.Actor{ID: "a1", Role: domain.RoleAdmin}
)

func ownedTicket() *domain.Ticket {
	return &domain.Ticket{ID: "tk", CustomerID: customer.ID}
}

func TestCanRead(t *testing.T) {
	tk := ownedTicket()
	assert.NoError(t, CanRead(customer, tk))
	assert.NoError(t, CanRead(teamMember, tk))
	assert.NoError(t, CanRead(admin, tk))

	err := CanRead(otherCustomer, tk)
	require.Error(t, err)
	assert.Equal(t, 403, apperrors.StatusOf(err))
	assert.Equal(t, "Access denied", apperrors.ToDomainError(err).Message)
}

func TestCanWrite(t *testing.T) {
	tk := ownedTicket()
	cases := []struct {
		name   string
		actor  domain.Actor
		fields []TicketField
		status int
	}{
		{"customer title", customer, []TicketField{FieldTitle, FieldDescription}, 200},
		{"customer status", customer, []TicketField{FieldTitle, FieldStatus}, 403},
		{"customer assign", customer, []TicketField{FieldAssignedTo}, 403},
		{"other customer title", otherCustomer, []TicketField{FieldTitle}, 403},
		{"team everything", teamMember, []TicketField{FieldStatus, FieldTags, FieldAssignedTo}, 200},
		{"admin everything", admin, []TicketField{FieldPriority, FieldCategory}, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, apperrors.StatusOf(CanWrite(tc.actor, tk, tc.fields)))
		})
	}
}

func TestCanDelete(t *testing.T) {
	assert.NoError(t, CanDelete(admin))
	assert.Equal(t, 403, apperrors.StatusOf(CanDelete(teamMember)))
	assert.Equal(t, 403, apperrors.StatusOf(CanDelete(customer)))
}

func TestListScope(t *testing.T) {
	requested := repository.TicketFilter{AssignedTo: "t9", Status: "open"}

	got := ListScope(customer, requested)
	assert.Equal(t, customer.ID, got.CustomerID)
	assert.Equal(t, "open", got.Status)

	got = ListScope(teamMember, requested)
	assert.Empty(t, got.CustomerID)
	assert.Equal(t, "t9", got.AssignedTo)

	got = ListScope(admin, repository.TicketFilter{})
	assert.Equal(t, repository.TicketFilter{}, got)
}

func TestStatsScope(t *testing.T) {
	assert.Equal(t, repository.TicketFilter{CustomerID: customer.ID}, StatsScope(customer))
	assert.Equal(t, repository.TicketFilter{AssignedTo: teamMember.ID}, StatsScope(teamMember))
	assert.Equal(t, repository.TicketFilter{}, StatsScope(admin))
}

func TestInternalVisibility(t *testing.T) {
	assert.False(t, CanViewInternal(customer))
	assert.True(t, CanViewInternal(teamMember))
	assert.False(t, InternalFlag(customer, true))
	assert.True(t, InternalFlag(admin, true))
	assert.False(t, InternalFlag(admin, false))
}

func TestValidateAssignee(t *testing.T) {
	err := ValidateAssignee(nil)
	assert.Equal(t, 404, apperrors.StatusOf(err))
	assert.Equal(t, "Assignee not found", apperrors.ToDomainError(err).Message)

	err = ValidateAssignee(&domain.User{ID: "c1", Role: domain.RoleCustomer})
	assert.Equal(t, 400, apperrors.StatusOf(err))
	assert.Equal(t, "Can only assign to team members or admins", apperrors.ToDomainError(err).Message)

	assert.NoError(t, ValidateAssignee(&domain.User{ID: "t1", Role: domain.RoleTeam}))
	assert.NoError(t, ValidateAssignee(&domain.User{ID: "a1", Role: domain.RoleAdmin}))
}

func TestCanManageUsers(t *testing.T) {
	assert.NoError(t, CanManageUsers(admin))
	assert.Equal(t, 403, apperrors.StatusOf(CanManageUsers(teamMember)))
}
