package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// maxFilesPerRequest bounds the number of attachments in one multipart request.
const maxFilesPerRequest = 10

// Paging holds the page size limits applied to list endpoints.
type Paging struct {
	DefaultLimit int
	MaxLimit     int
}

func (p Paging) request(c *fiber.Ctx, defaultLimit int) pagination.Request {
	if defaultLimit <= 0 {
		defaultLimit = p.DefaultLimit
	}
	return pagination.Parse(c.Query("page"), c.Query("limit"), defaultLimit, p.MaxLimit)
}

func actorFrom(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("Unauthorized Access")
	}
	return actor, nil
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.Envelope{Success: true, Message: message, Data: data})
}

func respondPage(c *fiber.Ctx, message string, data any, meta pagination.Meta) error {
	return c.Status(http.StatusOK).JSON(dto.Envelope{Success: true, Message: message, Data: data, Pagination: &meta})
}

func invalidPayload() error {
	return apperrors.NewValidationError("Invalid request payload", nil)
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(string(c.Request().Header.ContentType())), fiber.MIMEMultipartForm)
}

// multipartForm returns the parsed form, or nil for non-multipart requests.
func multipartForm(c *fiber.Ctx) (*multipart.Form, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, invalidPayload()
	}
	return form, nil
}

func formValue(form *multipart.Form, key string) (string, bool) {
	if form == nil {
		return "", false
	}
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func formString(form *multipart.Form, key string) *string {
	v, ok := formValue(form, key)
	if !ok {
		return nil
	}
	return &v
}

// formValues collects key and key[] entries.
func formValues(form *multipart.Form, key string) ([]string, bool) {
	if form == nil {
		return nil, false
	}
	values, ok := form.Value[key]
	bracket, okBracket := form.Value[key+"[]"]
	if !ok && !okBracket {
		return nil, false
	}
	return append(append([]string(nil), values...), bracket...), true
}

// openedFiles holds uploaded parts that must be closed once the request is done.
type openedFiles struct {
	files   []storage.File
	closers []io.Closer
}

func (o *openedFiles) Close() {
	for _, c := range o.closers {
		_ = c.Close()
	}
}

// openFiles opens every file part under field.
func openFiles(form *multipart.Form, field string) (*openedFiles, error) {
	out := &openedFiles{}
	if form == nil {
		return out, nil
	}
	headers := form.File[field]
	if len(headers) > maxFilesPerRequest {
		return out, apperrors.NewValidationError("Too many files", map[string]any{"max": maxFilesPerRequest})
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			out.Close()
			return &openedFiles{}, apperrors.NewValidationError("Invalid file upload", nil)
		}
		out.closers = append(out.closers, f)
		out.files = append(out.files, storage.File{
			Name:     fh.Filename,
			MimeType: fh.Header.Get(fiber.HeaderContentType),
			Size:     fh.Size,
			Content:  f,
		})
	}
	return out, nil
}

// parseJSON decodes the body when one was sent. An empty body is accepted.
func parseJSON(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code == fiber.StatusUnprocessableEntity {
			return apperrors.NewValidationError("Unsupported content type", nil)
		}
		return invalidPayload()
	}
	return nil
}
