package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const imageField = "image"

// DataEntriesHandler serves data entry CRUD. Reads are public.
type DataEntriesHandler struct {
	entries *service.DataEntryService
	storage storage.Storage
	paging  Paging
}

// NewDataEntriesHandler constructs handler. store maps stored image names to URLs.
func NewDataEntriesHandler(entries *service.DataEntryService, store storage.Storage, paging Paging) *DataEntriesHandler {
	return &DataEntriesHandler{entries: entries, storage: store, paging: paging}
}

// Create POST /data-entries.
func (h *DataEntriesHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	input, files, err := h.readInput(c)
	defer files.Close()
	if err != nil {
		return err
	}
	entry, err := h.entries.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Data entry created successfully", dto.NewDataEntryResponse(entry, h.storage.URLFor))
}

// List GET /data-entries.
func (h *DataEntriesHandler) List(c *fiber.Ctx) error {
	page, err := h.entries.List(c.UserContext(), service.DataEntryQuery{
		CreatedBy: c.Query("createdBy"),
		Search:    c.Query("search"),
		Page:      h.paging.request(c, 0),
	})
	if err != nil {
		return err
	}
	return respondPage(c, "Data entries retrieved successfully", dto.NewDataEntryResponses(page.Items, h.storage.URLFor), page.Meta)
}

// Get GET /data-entries/:id.
func (h *DataEntriesHandler) Get(c *fiber.Ctx) error {
	entry, err := h.entries.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Data entry retrieved successfully", dto.NewDataEntryResponse(entry, h.storage.URLFor))
}

// Update PUT /data-entries/:id.
func (h *DataEntriesHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	input, files, err := h.readInput(c)
	defer files.Close()
	if err != nil {
		return err
	}
	entry, err := h.entries.Update(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Data entry updated successfully", dto.NewDataEntryResponse(entry, h.storage.URLFor))
}

// Delete DELETE /data-entries/:id.
func (h *DataEntriesHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.entries.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Data entry deleted successfully", "")
}

func (h *DataEntriesHandler) readInput(c *fiber.Ctx) (service.DataEntryInput, *openedFiles, error) {
	form, err := multipartForm(c)
	if err != nil {
		return service.DataEntryInput{}, &openedFiles{}, err
	}
	var req dto.DataEntryRequest
	if form != nil {
		if req, err = dataEntryFromForm(form); err != nil {
			return service.DataEntryInput{}, &openedFiles{}, err
		}
	} else if err := parseJSON(c, &req); err != nil {
		return service.DataEntryInput{}, &openedFiles{}, err
	}

	files, err := openFiles(form, imageField)
	if err != nil {
		return service.DataEntryInput{}, files, err
	}
	if len(files.files) > 1 {
		return service.DataEntryInput{}, files, apperrors.NewValidationError("Only one image is allowed", nil)
	}

	input := service.DataEntryInput{
		Title:       req.Title,
		Description: req.Description,
		Value:       req.Value.Ptr(),
		RemoveImage: bool(req.RemoveImage),
	}
	if len(files.files) == 1 {
		input.Image = &files.files[0]
	}
	return input, files, nil
}

func dataEntryFromForm(form *multipart.Form) (dto.DataEntryRequest, error) {
	req := dto.DataEntryRequest{
		Title:       formString(form, "title"),
		Description: formString(form, "description"),
	}
	if v, ok := formValue(form, "value"); ok {
		if err := req.Value.SetForm(v); err != nil {
			return req, apperrors.NewValidationError("Value must be a number", nil)
		}
	}
	if v, ok := formValue(form, "removeImage"); ok {
		remove, err := dto.ParseBool(v)
		if err != nil {
			return req, apperrors.NewValidationError("Invalid removeImage", nil)
		}
		req.RemoveImage = dto.Bool(remove)
	}
	return req, nil
}
