package auth

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketField names an updatable ticket attribute.
type TicketField string

const (
	FieldTitle       TicketField = "title"
	FieldDescription TicketField = "description"
	FieldStatus      TicketField = "status"
	FieldPriority    TicketField = "priority"
	FieldCategory    TicketField = "category"
	FieldTags        TicketField = "tags"
	FieldAssignedTo  TicketField = "assignedTo"
)

var customerWritable = map[TicketField]bool{
	FieldTitle:       true,
	FieldDescription: true,
}

const accessDenied = "Access denied"

// CanRead allows staff to read any ticket and customers only their own.
func CanRead(actor domain.Actor, ticket *domain.Ticket) error {
	if actor.IsStaff() {
		return nil
	}
	if ticket.CustomerID != actor.ID {
		return apperrors.NewForbidden(accessDenied)
	}
	return nil
}

// CanWrite checks ownership and that every touched field is writable by the
// actor's role. It is evaluated before any field is applied.
func CanWrite(actor domain.Actor, ticket *domain.Ticket, fields []TicketField) error {
	if err := CanRead(actor, ticket); err != nil {
		return err
	}
	if actor.IsStaff() {
		return nil
	}
	for _, f := range fields {
		if !customerWritable[f] {
			return apperrors.NewForbidden("Customers can only update title and description")
		}
	}
	return nil
}

// CanDelete allows admins only.
func CanDelete(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("Only admins can delete tickets")
	}
	return nil
}

// CanChangeStatus allows staff only.
func CanChangeStatus(actor domain.Actor) error {
	if !actor.IsStaff() {
		return apperrors.NewForbidden("Forbidden: Insufficient permissions")
	}
	return nil
}

// ListScope narrows a requested ticket filter to what the actor may see.
// Customers are pinned to their own tickets. Team members and admins keep
// the filter they asked for, including an optional assignedTo.
func ListScope(actor domain.Actor, requested repository.TicketFilter) repository.TicketFilter {
	if !actor.IsStaff() {
		requested.CustomerID = actor.ID
	}
	return requested
}

// StatsScope is the implicit filter for the stats endpoint: customers count
// their own tickets, team members the ones assigned to them, admins all.
func StatsScope(actor domain.Actor) repository.TicketFilter {
	switch actor.Role {
	case domain.RoleAdmin:
		return repository.TicketFilter{}
	case domain.RoleTeam:
		return repository.TicketFilter{AssignedTo: actor.ID}
	default:
		return repository.TicketFilter{CustomerID: actor.ID}
	}
}

// CanViewInternal reports whether internal messages are visible to the actor.
func CanViewInternal(actor domain.Actor) bool {
	return actor.IsStaff()
}

// InternalFlag returns the effective isInternal value for a new message.
// Customers can never author internal messages.
func InternalFlag(actor domain.Actor, requested bool) bool {
	return requested && actor.IsStaff()
}

// CanManageUsers allows admins only.
func CanManageUsers(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("Forbidden: Insufficient permissions")
	}
	return nil
}

// ValidateAssignee requires the assignee to exist and hold a staff role.
func ValidateAssignee(assignee *domain.User) error {
	if assignee == nil {
		return apperrors.NewNotFound("Assignee not found")
	}
	if !assignee.Role.IsStaff() {
		return apperrors.NewValidationError("Can only assign to team members or admins", map[string]any{
			"assignedTo": assignee.ID,
			"role":       assignee.Role,
		})
	}
	return nil
}
