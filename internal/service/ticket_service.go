package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/ai"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const ticketNotFound = "Ticket not found"

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	users      repository.UserRepository
	storage    storage.Storage
	analyzer   ai.Analyzer
	enrichment EnrichmentScheduler
	dispatcher events.Dispatcher
	cache      persistence.Cache
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	UserRepo    repository.UserRepository
	Storage     storage.Storage
	Analyzer    ai.Analyzer
	Enrichment  EnrichmentScheduler
	Dispatcher  events.Dispatcher
	Cache       persistence.Cache
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		users:      deps.UserRepo,
		storage:    deps.Storage,
		analyzer:   deps.Analyzer,
		enrichment: deps.Enrichment,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = systemClock
	}
	if s.analyzer == nil {
		s.analyzer = ai.Disabled{}
	}
	if s.cache == nil {
		s.cache = persistence.NoopCache{}
	}
	return s
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
	Tags        []string
	Attachments []storage.File
}

// Assignment is an optional assignee change. Set with an empty AssigneeID unassigns.
type Assignment struct {
	Set        bool
	AssigneeID string
}

// TicketUpdateInput carries the fields present in an update request. Nil
// pointers and an unset Assignment leave the field unchanged.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Category    *domain.TicketCategory
	Tags        *[]string
	AssignedTo  Assignment
	Attachments []storage.File
}

// TicketQuery holds list filters exactly as supplied by the caller.
type TicketQuery struct {
	Status     string
	Priority   string
	Category   string
	AssignedTo string
	Search     string
	Page       pagination.Request
}

// MessageInput describes a new thread message.
type MessageInput struct {
	Content     string
	IsInternal  bool
	Attachments []storage.File
}

// TicketStats counts tickets per status.
type TicketStats struct {
	Total      int64 `json:"totalTickets"`
	Open       int64 `json:"openTickets"`
	InProgress int64 `json:"inProgressTickets"`
	Pending    int64 `json:"pendingTickets"`
	Resolved   int64 `json:"resolvedTickets"`
	Closed     int64 `json:"closedTickets"`
}

func statsFromCounts(counts map[domain.TicketStatus]int64) TicketStats {
	st := TicketStats{
		Open:       counts[domain.TicketStatusOpen],
		InProgress: counts[domain.TicketStatusInProgress],
		Pending:    counts[domain.TicketStatusPending],
		Resolved:   counts[domain.TicketStatusResolved],
		Closed:     counts[domain.TicketStatusClosed],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st
}

// CreateTicket validates input, stores attachments, persists the ticket and
// schedules AI enrichment. Enrichment never blocks or fails the request.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if err := validateTitle(title, true); err != nil {
		return nil, err
	}
	if description == "" {
		return nil, apperrors.NewValidationError("Description is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, invalidField("priority", string(priority))
	}
	category := input.Category
	if category == "" {
		category = domain.TicketCategoryGeneral
	}
	if !category.Valid() {
		return nil, invalidField("category", string(category))
	}

	now := s.now()
	attachments, err := uploadAttachments(ctx, s.storage, s.logger, input.Attachments, storage.DestinationTickets, "Failed to upload attachment", now)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		Category:    category,
		CustomerID:  actor.ID,
		Tags:        domain.NormalizeTags(input.Tags),
		Attachments: attachments,
	}
	domain.EnsureTicketNumber(ticket, now)

	if err := s.tickets.Create(ctx, ticket); err != nil {
		removeAttachmentFiles(ctx, s.storage, s.logger, attachments)
		return nil, writeErr(err, "Ticket number already exists")
	}
	s.metrics.TicketCreated()
	invalidateDashboard(ctx, s.cache, s.logger)

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorOf(actor),
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Title:        ticket.Title,
			Priority:     ticket.Priority,
			Category:     ticket.Category,
		},
	})

	if s.enrichment != nil {
		if err := s.enrichment.EnqueueEnrichment(ctx, ticket.ID); err != nil {
			s.logger.Warn("failed to schedule ai enrichment", zap.String("ticket_id", ticket.ID), zap.Error(err))
			s.metrics.EnrichmentOutcome("not_scheduled")
		}
	}

	return s.reload(ctx, ticket.ID)
}

// ListTickets returns tickets visible to the actor, newest first.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, q TicketQuery) (pagination.Page[domain.Ticket], error) {
	filter, err := ticketFilter(q)
	if err != nil {
		return pagination.Page[domain.Ticket]{}, err
	}
	return s.list(ctx, auth.ListScope(actor, filter), q.Page)
}

// MyTickets returns the tickets the actor filed, whatever their role.
func (s *TicketService) MyTickets(ctx context.Context, actor domain.Actor, q TicketQuery) (pagination.Page[domain.Ticket], error) {
	filter, err := ticketFilter(q)
	if err != nil {
		return pagination.Page[domain.Ticket]{}, err
	}
	filter.CustomerID = actor.ID
	return s.list(ctx, filter, q.Page)
}

func (s *TicketService) list(ctx context.Context, filter repository.TicketFilter, page pagination.Request) (pagination.Page[domain.Ticket], error) {
	items, total, err := s.tickets.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[domain.Ticket]{}, apperrors.NewInternalError(err)
	}
	return pagination.Page[domain.Ticket]{Items: items, Meta: pagination.NewMeta(page, total)}, nil
}

// Stats counts tickets by status within the actor's implicit scope.
func (s *TicketService) Stats(ctx context.Context, actor domain.Actor) (TicketStats, error) {
	counts, err := s.tickets.CountByStatus(ctx, auth.StatsScope(actor))
	if err != nil {
		return TicketStats{}, apperrors.NewInternalError(err)
	}
	return statsFromCounts(counts), nil
}

// GetTicket loads one ticket the actor may read.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanRead(actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTicket writes only the present fields, after every permission and
// value check has passed, and appends uploaded attachments.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanWrite(actor, ticket, touchedFields(input)); err != nil {
		return nil, err
	}

	title, description := trimmedPtr(input.Title), trimmedPtr(input.Description)
	if title != nil {
		if err := validateTitle(*title, true); err != nil {
			return nil, err
		}
	}
	if description != nil && *description == "" {
		return nil, apperrors.NewValidationError("Description cannot be empty", nil)
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, invalidField("status", string(*input.Status))
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, invalidField("priority", string(*input.Priority))
	}
	if input.Category != nil && !input.Category.Valid() {
		return nil, invalidField("category", string(*input.Category))
	}
	var assignee *string
	if input.AssignedTo.Set {
		assignee, err = s.resolveAssignee(ctx, input.AssignedTo.AssigneeID)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	added, err := uploadAttachments(ctx, s.storage, s.logger, input.Attachments, storage.DestinationTickets, "Failed to upload attachment", now)
	if err != nil {
		return nil, err
	}

	patch := repository.TicketPatch{
		Title:       title,
		Description: description,
		Status:      input.Status,
		Priority:    input.Priority,
		Category:    input.Category,
		Assign:      input.AssignedTo.Set,
		AssignedTo:  assignee,
		Attachments: added,
		At:          now,
	}
	if input.Tags != nil {
		tags := domain.NormalizeTags(*input.Tags)
		patch.Tags = &tags
	}
	change, err := s.tickets.Patch(ctx, ticket.ID, patch)
	if err != nil {
		removeAttachmentFiles(ctx, s.storage, s.logger, added)
		return nil, lookupErr(err, ticketNotFound)
	}

	fields := touchedFields(input)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    events.ActorOf(actor),
		Payload:  events.TicketUpdatedPayload{Fields: names, Attachments: len(added)},
	})
	if input.Status != nil && *input.Status != change.PreviousStatus {
		invalidateDashboard(ctx, s.cache, s.logger)
		s.publishStatusChange(ctx, actor, ticket.ID, change.PreviousStatus, *input.Status)
	}
	if input.AssignedTo.Set && !sameAssignee(change.PreviousAssignee, assignee) {
		s.publishAssignment(ctx, actor, ticket.ID, change.PreviousAssignee, assignee)
	}

	return s.reload(ctx, ticket.ID)
}

// ChangeStatus is the staff-only status transition. Any status may follow
// any other; resolvedAt and closedAt are stamped the first time only.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if err := auth.CanChangeStatus(actor); err != nil {
		return nil, err
	}
	if status == "" {
		return nil, apperrors.NewValidationError("Status is required", nil)
	}
	if !status.Valid() {
		return nil, invalidField("status", string(status))
	}
	change, err := s.tickets.Patch(ctx, id, repository.TicketPatch{Status: &status, At: s.now()})
	if err != nil {
		return nil, lookupErr(err, ticketNotFound)
	}
	if change.PreviousStatus != status {
		invalidateDashboard(ctx, s.cache, s.logger)
		s.publishStatusChange(ctx, actor, id, change.PreviousStatus, status)
	}
	return s.reload(ctx, id)
}

// DeleteTicket removes stored files best-effort, then every message, then the ticket.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, id string) error {
	if err := auth.CanDelete(actor); err != nil {
		return err
	}
	ticket, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	msgs, err := s.messages.ListAllByTicket(ctx, ticket.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	failures := removeAttachmentFiles(ctx, s.storage, s.logger, ticket.Attachments)
	for _, m := range msgs {
		failures += removeAttachmentFiles(ctx, s.storage, s.logger, m.Attachments)
	}

	removed, err := s.messages.DeleteByTicket(ctx, ticket.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return lookupErr(err, ticketNotFound)
	}
	invalidateDashboard(ctx, s.cache, s.logger)

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    events.ActorOf(actor),
		Payload: events.TicketDeletedPayload{
			TicketNumber:     ticket.TicketNumber,
			MessagesRemoved:  removed,
			FilesRemoveFails: failures,
		},
	})
	return nil
}

// AddMessage appends to the thread. Customers can only post external
// messages; the first staff message stamps firstResponseAt.
func (s *TicketService) AddMessage(ctx context.Context, actor domain.Actor, ticketID string, input MessageInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("Message content is required", nil)
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := auth.CanRead(actor, ticket); err != nil {
		return nil, err
	}

	now := s.now()
	attachments, err := uploadAttachments(ctx, s.storage, s.logger, input.Attachments, storage.DestinationMessages, "Failed to upload attachment", now)
	if err != nil {
		return nil, err
	}

	senderID := actor.ID
	msg := &domain.Message{
		TicketID:    ticket.ID,
		SenderID:    &senderID,
		SenderRole:  domain.SenderRoleFor(actor.Role),
		Content:     content,
		IsInternal:  auth.InternalFlag(actor, input.IsInternal),
		Attachments: attachments,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		removeAttachmentFiles(ctx, s.storage, s.logger, attachments)
		return nil, lookupErr(err, ticketNotFound)
	}
	s.metrics.MessagePosted(msg.IsInternal)

	if actor.IsStaff() && ticket.FirstResponseAt == nil {
		if _, err := s.tickets.SetFirstResponse(ctx, ticket.ID, now); err != nil {
			s.logger.Warn("failed to stamp first response", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	if user, err := s.users.GetByID(ctx, actor.ID); err == nil {
		msg.Sender = user.Ref()
	} else {
		msg.Sender = &domain.UserRef{ID: actor.ID, Name: actor.Name, Email: actor.Email}
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    events.ActorOf(actor),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			SenderRole:  msg.SenderRole,
			IsInternal:  msg.IsInternal,
			BodyPreview: events.Preview(msg.Content, 120),
		},
	})
	return msg, nil
}

// ListMessages returns the thread oldest first. Internal messages are
// filtered in the query for customers so totals match what they can see.
func (s *TicketService) ListMessages(ctx context.Context, actor domain.Actor, ticketID string, page pagination.Request) (pagination.Page[domain.Message], error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return pagination.Page[domain.Message]{}, err
	}
	if err := auth.CanRead(actor, ticket); err != nil {
		return pagination.Page[domain.Message]{}, err
	}
	items, total, err := s.messages.ListByTicket(ctx, repository.MessageFilter{
		TicketID:        ticket.ID,
		IncludeInternal: auth.CanViewInternal(actor),
	}, page)
	if err != nil {
		return pagination.Page[domain.Message]{}, apperrors.NewInternalError(err)
	}
	return pagination.Page[domain.Message]{Items: items, Meta: pagination.NewMeta(page, total)}, nil
}

// AnalyzeTicket runs the analysis synchronously and stores the result,
// falling back to the neutral defaults when the model fails.
func (s *TicketService) AnalyzeTicket(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	analysis := ai.AnalyzeOrDefault(ctx, s.analyzer, s.logger.With(zap.String("ticket_id", ticket.ID)), ticket.Title, ticket.Description)
	if err := s.tickets.UpdateAIFields(ctx, ticket.ID, analysis); err != nil {
		return nil, lookupErr(err, ticketNotFound)
	}
	return s.reload(ctx, ticket.ID)
}

// SuggestReply drafts an agent reply from the ticket and its public thread.
// Model failures yield an empty suggestion.
func (s *TicketService) SuggestReply(ctx context.Context, actor domain.Actor, id string) (string, error) {
	if err := requireStaff(actor); err != nil {
		return "", err
	}
	ticket, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	msgs, err := s.messages.ListAllByTicket(ctx, ticket.ID)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	logger := s.logger.With(zap.String("ticket_id", ticket.ID))
	return ai.SuggestReplyOrEmpty(ctx, s.analyzer, logger, ticket.Title, ticket.Description, ai.FormatHistory(msgs)), nil
}

func (s *TicketService) load(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ticketNotFound)
	}
	return ticket, nil
}

func (s *TicketService) reload(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.load(ctx, id)
}

// resolveAssignee validates a requested assignee. Empty means unassign.
func (s *TicketService) resolveAssignee(ctx context.Context, id string) (*string, error) {
	return resolveAssignee(ctx, s.users, id)
}

func resolveAssignee(ctx context.Context, users repository.UserRepository, id string) (*string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.ValidateAssignee(nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ValidateAssignee(user); err != nil {
		return nil, err
	}
	return &user.ID, nil
}

func (s *TicketService) publishStatusChange(ctx context.Context, actor domain.Actor, ticketID string, from, to domain.TicketStatus) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Actor:    events.ActorOf(actor),
		Payload:  events.TicketStatusChangedPayload{OldStatus: from, NewStatus: to},
	})
}

func (s *TicketService) publishAssignment(ctx context.Context, actor domain.Actor, ticketID string, from, to *string) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		Actor:    events.ActorOf(actor),
		Payload:  events.TicketAssignedPayload{PreviousAssignee: from, Assignee: to},
	})
}

func touchedFields(input TicketUpdateInput) []auth.TicketField {
	var fields []auth.TicketField
	if input.Title != nil {
		fields = append(fields, auth.FieldTitle)
	}
	if input.Description != nil {
		fields = append(fields, auth.FieldDescription)
	}
	if input.Status != nil {
		fields = append(fields, auth.FieldStatus)
	}
	if input.Priority != nil {
		fields = append(fields, auth.FieldPriority)
	}
	if input.Category != nil {
		fields = append(fields, auth.FieldCategory)
	}
	if input.Tags != nil {
		fields = append(fields, auth.FieldTags)
	}
	if input.AssignedTo.Set {
		fields = append(fields, auth.FieldAssignedTo)
	}
	return fields
}

func ticketFilter(q TicketQuery) (repository.TicketFilter, error) {
	f := repository.TicketFilter{
		Status:     strings.TrimSpace(q.Status),
		Priority:   strings.TrimSpace(q.Priority),
		Category:   strings.TrimSpace(q.Category),
		AssignedTo: strings.TrimSpace(q.AssignedTo),
		Search:     strings.TrimSpace(q.Search),
	}
	if f.Status != "" && !domain.TicketStatus(f.Status).Valid() {
		return f, invalidField("status", f.Status)
	}
	if f.Priority != "" && !domain.TicketPriority(f.Priority).Valid() {
		return f, invalidField("priority", f.Priority)
	}
	if f.Category != "" && !domain.TicketCategory(f.Category).Valid() {
		return f, invalidField("category", f.Category)
	}
	if f.AssignedTo != "" && !repository.ValidID(f.AssignedTo) {
		return f, invalidField("assignedTo", f.AssignedTo)
	}
	return f, nil
}

func validateTitle(title string, required bool) error {
	if title == "" {
		if required {
			return apperrors.NewValidationError("Title is required", nil)
		}
		return nil
	}
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return apperrors.NewValidationError(fmt.Sprintf("Title cannot exceed %d characters", domain.MaxTitleLength), nil)
	}
	return nil
}

func invalidField(field, value string) error {
	return apperrors.NewValidationError(fmt.Sprintf("Invalid %s", field), map[string]any{field: value})
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
