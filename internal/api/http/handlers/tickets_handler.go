package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	attachmentsField     = "attachments"
	messagesDefaultLimit = 50
)

// TicketsHandler manages ticket and thread endpoints for every role.
type TicketsHandler struct {
	service *service.TicketService
	paging  Paging
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, paging Paging) *TicketsHandler {
	return &TicketsHandler{service: ticketService, paging: paging}
}

// CreateTicket POST /tickets. Accepts JSON or multipart with attachments.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	form, err := multipartForm(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if form != nil {
		req = createTicketFromForm(form)
	} else if err := parseJSON(c, &req); err != nil {
		return err
	}
	files, err := openFiles(form, attachmentsField)
	defer files.Close()
	if err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		Tags:        req.Tags.Values,
		Attachments: files.files,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Ticket created successfully", dto.NewTicketResponse(ticket))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListTickets(c.UserContext(), actor, h.ticketQuery(c))
	if err != nil {
		return err
	}
	return respondPage(c, "Tickets retrieved successfully", dto.NewTicketResponses(page.Items), page.Meta)
}

// MyTickets GET /tickets/my-tickets.
func (h *TicketsHandler) MyTickets(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page, err := h.service.MyTickets(c.UserContext(), actor, h.ticketQuery(c))
	if err != nil {
		return err
	}
	return respondPage(c, "Tickets retrieved successfully", dto.NewTicketResponses(page.Items), page.Meta)
}

// Stats GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Ticket stats retrieved successfully", stats)
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Ticket retrieved successfully", dto.NewTicketResponse(ticket))
}

// UpdateTicket PUT /tickets/:id. New attachments are appended.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	form, err := multipartForm(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if form != nil {
		req = updateTicketFromForm(form)
	} else if err := parseJSON(c, &req); err != nil {
		return err
	}
	files, err := openFiles(form, attachmentsField)
	defer files.Close()
	if err != nil {
		return err
	}

	input := service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Category:    req.Category,
		Attachments: files.files,
	}
	if req.Tags.Set {
		tags := req.Tags.Values
		input.Tags = &tags
	}
	if req.AssignedTo.Set {
		input.AssignedTo = service.Assignment{Set: true, AssigneeID: req.AssignedTo.Value}
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Ticket updated successfully", dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Ticket deleted successfully", nil)
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Ticket status updated successfully", dto.NewTicketResponse(ticket))
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	form, err := multipartForm(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if form != nil {
		req.Content, _ = formValue(form, "content")
		if raw, ok := formValue(form, "isInternal"); ok {
			internal, err := dto.ParseBool(raw)
			if err != nil {
				return apperrors.NewValidationError("Invalid isInternal", nil)
			}
			req.IsInternal = dto.Bool(internal)
		}
	} else if err := parseJSON(c, &req); err != nil {
		return err
	}
	files, err := openFiles(form, attachmentsField)
	defer files.Close()
	if err != nil {
		return err
	}

	msg, err := h.service.AddMessage(c.UserContext(), actor, c.Params("id"), service.MessageInput{
		Content:     req.Content,
		IsInternal:  bool(req.IsInternal),
		Attachments: files.files,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Message added successfully", dto.NewMessageResponse(msg))
}

// ListMessages GET /tickets/:id/messages.
func (h *TicketsHandler) ListMessages(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListMessages(c.UserContext(), actor, c.Params("id"), h.paging.request(c, messagesDefaultLimit))
	if err != nil {
		return err
	}
	return respondPage(c, "Messages retrieved successfully", dto.NewMessageResponses(page.Items), page.Meta)
}

// Analyze POST /tickets/:id/analyze.
func (h *TicketsHandler) Analyze(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.AnalyzeTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Ticket analyzed successfully", dto.NewTicketResponse(ticket))
}

// SuggestedReply GET /tickets/:id/suggested-reply.
func (h *TicketsHandler) SuggestedReply(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	reply, err := h.service.SuggestReply(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Suggested reply generated", dto.SuggestedReplyResponse{SuggestedReply: reply})
}

func (h *TicketsHandler) ticketQuery(c *fiber.Ctx) service.TicketQuery {
	return ticketQuery(c, h.paging)
}

func ticketQuery(c *fiber.Ctx, paging Paging) service.TicketQuery {
	return service.TicketQuery{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		Category:   c.Query("category"),
		AssignedTo: c.Query("assignedTo"),
		Search:     c.Query("search"),
		Page:       paging.request(c, 0),
	}
}

func createTicketFromForm(form *multipart.Form) dto.CreateTicketRequest {
	req := dto.CreateTicketRequest{}
	req.Title, _ = formValue(form, "title")
	req.Description, _ = formValue(form, "description")
	if v, ok := formValue(form, "priority"); ok {
		req.Priority = domain.TicketPriority(v)
	}
	if v, ok := formValue(form, "category"); ok {
		req.Category = domain.TicketCategory(v)
	}
	if tags, ok := formValues(form, "tags"); ok {
		req.Tags.SetForm(tags)
	}
	return req
}

func updateTicketFromForm(form *multipart.Form) dto.UpdateTicketRequest {
	req := dto.UpdateTicketRequest{
		Title:       formString(form, "title"),
		Description: formString(form, "description"),
	}
	if v, ok := formValue(form, "status"); ok {
		s := domain.TicketStatus(v)
		req.Status = &s
	}
	if v, ok := formValue(form, "priority"); ok {
		p := domain.TicketPriority(v)
		req.Priority = &p
	}
	if v, ok := formValue(form, "category"); ok {
		cat := domain.TicketCategory(v)
		req.Category = &cat
	}
	if tags, ok := formValues(form, "tags"); ok {
		req.Tags.SetForm(tags)
	}
	if v, ok := formValue(form, "assignedTo"); ok {
		req.AssignedTo.SetForm(v)
	}
	return req
}
