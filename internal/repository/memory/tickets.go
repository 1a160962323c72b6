package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.tickets {
		if row.ticket.TicketNumber == ticket.TicketNumber {
			return fmt.Errorf("%w: tickets_ticket_number_key", repository.ErrDuplicate)
		}
	}
	id, seq := r.s.nextID()
	now := r.s.now()
	ticket.ID = id
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.s.tickets[id] = &ticketRow{seq: seq, ticket: storedTicket(*ticket)}
	return nil
}

func (r *ticketRepo) Patch(_ context.Context, id string, patch repository.TicketPatch) (repository.TicketChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.tickets[id]
	if !ok {
		return repository.TicketChange{}, repository.ErrNotFound
	}
	t := &row.ticket
	change := repository.TicketChange{PreviousStatus: t.Status, PreviousAssignee: cloneID(t.AssignedTo)}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.SetStatus(*patch.Status, patch.At)
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Tags != nil {
		t.Tags = cloneStrings(*patch.Tags)
	}
	if patch.Assign {
		t.AssignedTo = cloneID(patch.AssignedTo)
	}
	t.AppendAttachments(cloneAttachments(patch.Attachments)...)
	t.UpdatedAt = r.s.now()
	return change, nil
}

func (r *ticketRepo) SetFirstResponse(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.tickets[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !row.ticket.RecordStaffResponse(at) {
		return false, nil
	}
	row.ticket.UpdatedAt = r.s.now()
	return true, nil
}

func (r *ticketRepo) UpdateAIFields(_ context.Context, id string, analysis domain.AIAnalysis) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.ticket.ApplyAnalysis(analysis)
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ticket := r.expand(row.ticket)
	return &ticket, nil
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter, page pagination.Request) ([]domain.Ticket, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := r.matching(filter)
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	tickets := make([]domain.Ticket, len(rows))
	for i, row := range rows {
		tickets[i] = r.expand(row.ticket)
	}
	result := pagination.Slice(tickets, page)
	return result.Items, result.Meta.Total, nil
}

func (r *ticketRepo) CountByStatus(_ context.Context, filter repository.TicketFilter) (map[domain.TicketStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[domain.TicketStatus]int64, len(domain.TicketStatuses))
	for _, row := range r.matching(filter) {
		counts[row.ticket.Status]++
	}
	return counts, nil
}

func (r *ticketRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.tickets, id)
	for msgID, row := range r.s.messages {
		if row.msg.TicketID == id {
			delete(r.s.messages, msgID)
		}
	}
	return nil
}

func (r *ticketRepo) matching(filter repository.TicketFilter) []*ticketRow {
	rows := make([]*ticketRow, 0, len(r.s.tickets))
	for _, row := range r.s.tickets {
		t := row.ticket
		if filter.CustomerID != "" && t.CustomerID != filter.CustomerID {
			continue
		}
		if filter.AssignedTo != "" && (t.AssignedTo == nil || *t.AssignedTo != filter.AssignedTo) {
			continue
		}
		if filter.Status != "" && string(t.Status) != filter.Status {
			continue
		}
		if filter.Priority != "" && string(t.Priority) != filter.Priority {
			continue
		}
		if filter.Category != "" && string(t.Category) != filter.Category {
			continue
		}
		if !pagination.MatchesSearch(filter.Search, t.Title, t.Description, t.TicketNumber) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func (r *ticketRepo) expand(t domain.Ticket) domain.Ticket {
	t.Tags = cloneStrings(t.Tags)
	t.Attachments = cloneAttachments(t.Attachments)
	t.Customer = r.s.userRef(t.CustomerID)
	if t.AssignedTo != nil {
		t.Assignee = r.s.userRef(*t.AssignedTo)
	}
	return t
}

func storedTicket(t domain.Ticket) domain.Ticket {
	t.Tags = cloneStrings(t.Tags)
	t.Attachments = cloneAttachments(t.Attachments)
	t.Customer = nil
	t.Assignee = nil
	return t
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
