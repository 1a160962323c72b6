package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// UsersHandler serves the user directory.
type UsersHandler struct {
	users  *service.UserService
	paging Paging
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, paging Paging) *UsersHandler {
	return &UsersHandler{users: users, paging: paging}
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page, err := h.users.List(c.UserContext(), actor, service.UserQuery{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Page:   h.paging.request(c, 0),
	})
	if err != nil {
		return err
	}
	return respondPage(c, "Users retrieved successfully", dto.NewUserResponses(page.Items), page.Meta)
}
