package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	dataEntryNotFound = "Data entry not found"
	imageUploadFailed = "Failed to upload image"
)

// DataEntryService manages titled numeric records with an optional image.
// Image holds the stored filename; callers map it to a URL.
type DataEntryService struct {
	entries repository.DataEntryRepository
	storage storage.Storage
	logger  *zap.Logger
}

// NewDataEntryService constructs the service.
func NewDataEntryService(entries repository.DataEntryRepository, store storage.Storage, logger *zap.Logger) *DataEntryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataEntryService{entries: entries, storage: store, logger: logger}
}

// DataEntryInput carries create and update fields. On update nil fields are
// left unchanged. Image replaces the stored image; RemoveImage clears it.
type DataEntryInput struct {
	Title       *string
	Description *string
	Value       *float64
	Image       *storage.File
	RemoveImage bool
}

// DataEntryQuery holds list filters.
type DataEntryQuery struct {
	CreatedBy string
	Search    string
	Page      pagination.Request
}

// Create stores a new entry owned by the actor.
func (s *DataEntryService) Create(ctx context.Context, actor domain.Actor, input DataEntryInput) (*domain.DataEntry, error) {
	title := trimmedPtr(input.Title)
	if title == nil || *title == "" {
		return nil, apperrors.NewValidationError("Title is required", nil)
	}
	if err := validateTitle(*title, true); err != nil {
		return nil, err
	}
	if input.Value == nil {
		return nil, apperrors.NewValidationError("Value is required", nil)
	}
	if err := validateValue(*input.Value); err != nil {
		return nil, err
	}

	entry := &domain.DataEntry{
		Title:     *title,
		Value:     *input.Value,
		CreatedBy: actor.ID,
	}
	if d := trimmedPtr(input.Description); d != nil {
		entry.Description = *d
	}
	if input.Image != nil {
		name, err := s.upload(ctx, *input.Image)
		if err != nil {
			return nil, err
		}
		entry.Image = &name
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		s.removeImage(ctx, entry.Image)
		return nil, writeErr(err, "Data entry already exists")
	}
	return s.Get(ctx, entry.ID)
}

// List returns entries newest first. It is public.
func (s *DataEntryService) List(ctx context.Context, q DataEntryQuery) (pagination.Page[domain.DataEntry], error) {
	createdBy := strings.TrimSpace(q.CreatedBy)
	if createdBy != "" && !repository.ValidID(createdBy) {
		return pagination.Page[domain.DataEntry]{}, invalidField("createdBy", createdBy)
	}
	items, total, err := s.entries.List(ctx, repository.DataEntryFilter{
		CreatedBy: createdBy,
		Search:    strings.TrimSpace(q.Search),
	}, q.Page)
	if err != nil {
		return pagination.Page[domain.DataEntry]{}, apperrors.NewInternalError(err)
	}
	return pagination.Page[domain.DataEntry]{Items: items, Meta: pagination.NewMeta(q.Page, total)}, nil
}

// Get loads one entry. It is public.
func (s *DataEntryService) Get(ctx context.Context, id string) (*domain.DataEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, dataEntryNotFound)
	}
	return entry, nil
}

// Update applies the present fields for the owner. A new image is uploaded
// before the old one is removed; a failed removal is only logged.
func (s *DataEntryService) Update(ctx context.Context, actor domain.Actor, id string, input DataEntryInput) (*domain.DataEntry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.CreatedBy != actor.ID {
		return nil, apperrors.NewForbidden("Unauthorized: You can only update your own data entries")
	}

	title := trimmedPtr(input.Title)
	if title != nil {
		if *title == "" {
			return nil, apperrors.NewValidationError("Title cannot be empty", nil)
		}
		if err := validateTitle(*title, true); err != nil {
			return nil, err
		}
	}
	if input.Value != nil {
		if err := validateValue(*input.Value); err != nil {
			return nil, err
		}
	}

	oldImage := entry.Image
	var newImage *string
	if input.Image != nil {
		name, err := s.upload(ctx, *input.Image)
		if err != nil {
			return nil, err
		}
		newImage = &name
	}

	if title != nil {
		entry.Title = *title
	}
	if d := trimmedPtr(input.Description); d != nil {
		entry.Description = *d
	}
	if input.Value != nil {
		entry.Value = *input.Value
	}
	switch {
	case newImage != nil:
		entry.Image = newImage
	case input.RemoveImage:
		entry.Image = nil
	}

	if err := s.entries.Update(ctx, entry); err != nil {
		s.removeImage(ctx, newImage)
		return nil, lookupErr(err, dataEntryNotFound)
	}
	if oldImage != nil && (newImage != nil || input.RemoveImage) {
		s.removeImage(ctx, oldImage)
	}
	return s.Get(ctx, entry.ID)
}

// Delete removes the owner's entry and, best-effort, its image.
func (s *DataEntryService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if entry.CreatedBy != actor.ID {
		return apperrors.NewForbidden("Unauthorized: You can only delete your own data entries")
	}
	s.removeImage(ctx, entry.Image)
	if err := s.entries.Delete(ctx, entry.ID); err != nil {
		return lookupErr(err, dataEntryNotFound)
	}
	return nil
}

func (s *DataEntryService) upload(ctx context.Context, file storage.File) (string, error) {
	if s.storage == nil {
		return "", apperrors.NewUpstreamError(imageUploadFailed, errors.New("storage not configured"))
	}
	name, err := s.storage.Upload(ctx, file, storage.DestinationDataEntries)
	if err != nil {
		return "", uploadErr(err, file.Name, imageUploadFailed)
	}
	return name, nil
}

func (s *DataEntryService) removeImage(ctx context.Context, name *string) {
	if name == nil || *name == "" || s.storage == nil {
		return
	}
	if err := s.storage.Remove(ctx, *name); err != nil {
		s.logger.Warn("failed to remove data entry image", zap.String("file", *name), zap.Error(err))
	}
}

func validateValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperrors.NewValidationError("Value must be a finite number", nil)
	}
	return nil
}

