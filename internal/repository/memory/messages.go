package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[msg.TicketID]; !ok {
		return repository.ErrNotFound
	}
	id, seq := r.s.nextID()
	msg.ID = id
	msg.CreatedAt = r.s.now()
	stored := *msg
	stored.Attachments = cloneAttachments(msg.Attachments)
	stored.Sender = nil
	r.s.messages[id] = &messageRow{seq: seq, msg: stored}
	return nil
}

func (r *messageRepo) ListByTicket(_ context.Context, filter repository.MessageFilter, page pagination.Request) ([]domain.Message, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	msgs := r.thread(filter.TicketID, filter.IncludeInternal)
	result := pagination.Slice(msgs, page)
	return result.Items, result.Meta.Total, nil
}

func (r *messageRepo) ListAllByTicket(_ context.Context, ticketID string) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.thread(ticketID, true), nil
}

func (r *messageRepo) DeleteByTicket(_ context.Context, ticketID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for id, row := range r.s.messages {
		if row.msg.TicketID == ticketID {
			delete(r.s.messages, id)
			removed++
		}
	}
	return removed, nil
}

func (r *messageRepo) thread(ticketID string, includeInternal bool) []domain.Message {
	rows := make([]*messageRow, 0)
	for _, row := range r.s.messages {
		if row.msg.TicketID != ticketID {
			continue
		}
		if row.msg.IsInternal && !includeInternal {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	msgs := make([]domain.Message, len(rows))
	for i, row := range rows {
		msg := row.msg
		msg.Attachments = cloneAttachments(msg.Attachments)
		if msg.SenderID != nil {
			msg.Sender = r.s.userRef(*msg.SenderID)
		}
		msgs[i] = msg
	}
	return msgs
}
