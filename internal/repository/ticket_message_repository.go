package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
)

// MessageFilter selects a ticket thread. Internal messages are excluded
// unless IncludeInternal is set.
type MessageFilter struct {
	TicketID        string
	IncludeInternal bool
}

// TicketMessageRepository manages ticket thread messages.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, filter MessageFilter, page pagination.Request) ([]domain.Message, int64, error)
	ListAllByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
	DeleteByTicket(ctx context.Context, ticketID string) (int64, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

const messageSelect = `
        SELECT m.id, m.ticket_id, m.sender_id, m.sender_role, m.content, m.is_internal,
               m.attachments, m.read_at, m.created_at,
               u.name, u.email, u.avatar
        FROM ticket_messages m
        LEFT JOIN users u ON u.id = m.sender_id`

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	attachments, err := marshalAttachments(msg.Attachments)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO ticket_messages (ticket_id, sender_id, sender_role, content, is_internal, attachments)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderID,
		msg.SenderRole,
		msg.Content,
		msg.IsInternal,
		attachments,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, filter MessageFilter, page pagination.Request) ([]domain.Message, int64, error) {
	f := messagePredicate(filter)

	var total int64
	countSQL, countArgs := f.CountQuery("ticket_messages m")
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query, args := f.PageQuery(messageSelect, "m.created_at ASC, m.id ASC", page)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	msgs, err := scanMessages(rows)
	return msgs, total, err
}

func (r *ticketMessageRepository) ListAllByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, messageSelect+` WHERE m.ticket_id=$1 ORDER BY m.created_at ASC, m.id ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *ticketMessageRepository) DeleteByTicket(ctx context.Context, ticketID string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_messages WHERE ticket_id=$1`, ticketID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func messagePredicate(filter MessageFilter) *pagination.Filter {
	f := pagination.NewFilter().Where("m.ticket_id = %s", filter.TicketID)
	if !filter.IncludeInternal {
		f.Where("m.is_internal = %s", false)
	}
	return f
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var (
			msg                     domain.Message
			senderName, senderEmail *string
			senderAvatar            *string
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderID,
			&msg.SenderRole,
			&msg.Content,
			&msg.IsInternal,
			&msg.Attachments,
			&msg.ReadAt,
			&msg.CreatedAt,
			&senderName,
			&senderEmail,
			&senderAvatar,
		); err != nil {
			return nil, err
		}
		if msg.SenderID != nil && senderName != nil {
			msg.Sender = &domain.UserRef{
				ID:     *msg.SenderID,
				Name:   *senderName,
				Email:  derefString(senderEmail),
				Avatar: senderAvatar,
			}
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
