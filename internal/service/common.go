package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// EnrichmentScheduler queues background AI enrichment for a ticket.
type EnrichmentScheduler interface {
	EnqueueEnrichment(ctx context.Context, ticketID string) error
}

func systemClock() time.Time { return time.Now().UTC() }

// lookupErr turns a repository miss into a 404 with message and passes other
// errors through as internal failures.
func lookupErr(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(message)
	}
	return apperrors.NewInternalError(err)
}

// writeErr maps repository write failures. Unique violations become 409.
func writeErr(err error, conflictMessage string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict(conflictMessage, nil)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("Resource not found")
	}
	return apperrors.NewInternalError(err)
}

// invalidateDashboard drops the cached admin dashboard after a write that
// changes its counts.
func invalidateDashboard(ctx context.Context, cache persistence.Cache, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, dashboardCacheKey); err != nil {
		logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func requireStaff(actor domain.Actor) error {
	return auth.CanChangeStatus(actor)
}

func publish(ctx context.Context, d events.Dispatcher, logger *zap.Logger, event events.Event) {
	if d == nil {
		return
	}
	if err := d.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// uploadAttachments stores every file or none: on failure the files already
// written are removed and the error is mapped by uploadErr.
func uploadAttachments(ctx context.Context, store storage.Storage, logger *zap.Logger, files []storage.File, destination, failMessage string, now time.Time) ([]domain.Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if store == nil {
		return nil, apperrors.NewUpstreamError(failMessage, errors.New("storage not configured"))
	}
	out := make([]domain.Attachment, 0, len(files))
	for _, f := range files {
		name, err := store.Upload(ctx, f, destination)
		if err != nil {
			removeAttachmentFiles(ctx, store, logger, out)
			return nil, uploadErr(err, f.Name, failMessage)
		}
		out = append(out, domain.Attachment{
			Filename:   f.Name,
			URL:        store.URLFor(name),
			MimeType:   f.MimeType,
			Size:       f.Size,
			UploadedAt: now,
		})
	}
	return out, nil
}

// uploadErr reports an oversized file as a 400 and any other storage
// failure as an upstream error carrying failMessage.
func uploadErr(err error, filename, failMessage string) error {
	if errors.Is(err, storage.ErrTooLarge) {
		return apperrors.NewValidationError("File exceeds the maximum upload size", map[string]any{
			"filename": filename,
		})
	}
	return apperrors.NewUpstreamError(failMessage, err)
}

// removeAttachmentFiles deletes stored files best-effort and returns how many failed.
func removeAttachmentFiles(ctx context.Context, store storage.Storage, logger *zap.Logger, attachments []domain.Attachment) int {
	if store == nil {
		return 0
	}
	failed := 0
	for _, a := range attachments {
		name := store.FilenameFromURL(a.URL)
		if name == "" {
			continue
		}
		if err := store.Remove(ctx, name); err != nil {
			failed++
			logger.Warn("failed to delete attachment", zap.String("file", name), zap.Error(err))
		}
	}
	return failed
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
