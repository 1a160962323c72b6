package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AdminHandler exposes the administrator console endpoints.
type AdminHandler struct {
	admin  *service.AdminService
	paging Paging
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService, paging Paging) *AdminHandler {
	return &AdminHandler{admin: admin, paging: paging}
}

// Dashboard GET /admin/dashboard.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	stats, err := h.admin.Dashboard(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}

// ListTickets GET /admin/tickets.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page, err := h.admin.ListTickets(c.UserContext(), actor, ticketQuery(c, h.paging))
	if err != nil {
		return err
	}
	return respondPage(c, "Tickets retrieved successfully", dto.NewTicketResponses(page.Items), page.Meta)
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page, err := h.admin.ListUsers(c.UserContext(), actor, service.UserQuery{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Page:   h.paging.request(c, 0),
	})
	if err != nil {
		return err
	}
	return respondPage(c, "Users retrieved successfully", dto.NewUserResponses(page.Items), page.Meta)
}

// UpdateUserRole PATCH /admin/users/:id/role.
func (h *AdminHandler) UpdateUserRole(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := parseJSON(c, &req); err != nil {
		return err
	}
	user, err := h.admin.UpdateUserRole(c.UserContext(), actor, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User role updated successfully", dto.NewUserResponse(user))
}

// AssignTicket PATCH /admin/tickets/:id/assign.
func (h *AdminHandler) AssignTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseJSON(c, &req); err != nil {
		return err
	}
	ticket, message, err := h.admin.AssignTicket(c.UserContext(), actor, c.Params("id"), req.AssignedTo.Value)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, message, dto.NewTicketResponse(ticket))
}
