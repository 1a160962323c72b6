package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
)

// TicketFilter captures list parameters. Empty fields impose no constraint.
type TicketFilter struct {
	CustomerID string
	AssignedTo string
	Status     string
	Priority   string
	Category   string
	Search     string
}

// TicketPatch names the columns a single write touches. Nil fields keep their
// stored value; Attachments are appended to the stored list.
type TicketPatch struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Category    *domain.TicketCategory
	Tags        *[]string
	Assign      bool
	AssignedTo  *string
	Attachments []domain.Attachment
	// At stamps resolvedAt/closedAt when Status first enters those states.
	At time.Time
}

// TicketChange is the row state a patch replaced.
type TicketChange struct {
	PreviousStatus   domain.TicketStatus
	PreviousAssignee *string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Patch(ctx context.Context, id string, patch TicketPatch) (TicketChange, error)
	SetFirstResponse(ctx context.Context, id string, at time.Time) (bool, error)
	UpdateAIFields(ctx context.Context, id string, analysis domain.AIAnalysis) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter, page pagination.Request) ([]domain.Ticket, int64, error)
	CountByStatus(ctx context.Context, filter TicketFilter) (map[domain.TicketStatus]int64, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketSelect = `
        SELECT t.id, t.ticket_number, t.title, t.description, t.status, t.priority, t.category,
               t.customer_id, t.assigned_to, t.tags, t.attachments,
               t.ai_sentiment, t.ai_suggested_priority, t.ai_suggested_category, t.ai_summary,
               t.resolved_at, t.closed_at, t.first_response_at, t.created_at, t.updated_at,
               c.name, c.email, c.avatar,
               a.name, a.email, a.avatar
        FROM tickets t
        JOIN users c ON c.id = t.customer_id
        LEFT JOIN users a ON a.id = t.assigned_to`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	attachments, err := marshalAttachments(ticket.Attachments)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (ticket_number, title, description, status, priority, category,
                             customer_id, assigned_to, tags, attachments)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err = r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.CustomerID,
		ticket.AssignedTo,
		nonNilTags(ticket.Tags),
		attachments,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return wrapWriteErr(err)
}

// Patch writes only the columns named in patch and returns the status and
// assignee it replaced. resolved_at and closed_at are stamped the first time
// the status enters those states and are never cleared.
func (r *ticketRepository) Patch(ctx context.Context, id string, patch TicketPatch) (TicketChange, error) {
	if !ValidID(id) {
		return TicketChange{}, ErrNotFound
	}
	var (
		sets []string
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Title != nil {
		sets = append(sets, "title="+arg(*patch.Title))
	}
	if patch.Description != nil {
		sets = append(sets, "description="+arg(*patch.Description))
	}
	if patch.Status != nil {
		status, at := arg(string(*patch.Status)), arg(patch.At)
		sets = append(sets,
			"status="+status,
			fmt.Sprintf("resolved_at=CASE WHEN %s::text='resolved' THEN COALESCE(t.resolved_at, %s::timestamptz) ELSE t.resolved_at END", status, at),
			fmt.Sprintf("closed_at=CASE WHEN %s::text='closed' THEN COALESCE(t.closed_at, %s::timestamptz) ELSE t.closed_at END", status, at),
		)
	}
	if patch.Priority != nil {
		sets = append(sets, "priority="+arg(string(*patch.Priority)))
	}
	if patch.Category != nil {
		sets = append(sets, "category="+arg(string(*patch.Category)))
	}
	if patch.Tags != nil {
		sets = append(sets, "tags="+arg(nonNilTags(*patch.Tags)))
	}
	if patch.Assign {
		sets = append(sets, "assigned_to="+arg(patch.AssignedTo))
	}
	if len(patch.Attachments) > 0 {
		raw, err := marshalAttachments(patch.Attachments)
		if err != nil {
			return TicketChange{}, err
		}
		sets = append(sets, "attachments=t.attachments || "+arg(raw)+"::jsonb")
	}
	sets = append(sets, "updated_at=NOW()")

	query := `
        UPDATE tickets t SET ` + strings.Join(sets, ", ") + `
        FROM (SELECT id, status, assigned_to FROM tickets WHERE id=` + arg(id) + ` FOR UPDATE) old
        WHERE t.id = old.id
        RETURNING old.status, old.assigned_to`

	var change TicketChange
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&change.PreviousStatus, &change.PreviousAssignee); err != nil {
		return TicketChange{}, wrapWriteErr(err)
	}
	return change, nil
}

// SetFirstResponse stamps first_response_at if it is still unset and
// reports whether this call stamped it.
func (r *ticketRepository) SetFirstResponse(ctx context.Context, id string, at time.Time) (bool, error) {
	if !ValidID(id) {
		return false, ErrNotFound
	}
	const query = `
        UPDATE tickets SET first_response_at=$1, updated_at=NOW()
        WHERE id=$2 AND first_response_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// UpdateAIFields writes only the four AI columns so concurrent edits to other fields survive.
func (r *ticketRepository) UpdateAIFields(ctx context.Context, id string, analysis domain.AIAnalysis) error {
	const query = `
        UPDATE tickets SET ai_sentiment=$1, ai_suggested_priority=$2, ai_suggested_category=$3, ai_summary=$4
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		analysis.Sentiment,
		analysis.SuggestedPriority,
		analysis.SuggestedCategory,
		analysis.Summary,
		id,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, ticketSelect+` WHERE t.id=$1`, id)
	return scanTicket(row)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter, page pagination.Request) ([]domain.Ticket, int64, error) {
	f := ticketPredicate(filter)

	var total int64
	countSQL, countArgs := f.CountQuery("tickets t")
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tickets: %w", err)
	}

	query, args := f.PageQuery(ticketSelect, "t.created_at DESC, t.id DESC", page)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	return result, total, rows.Err()
}

func (r *ticketRepository) CountByStatus(ctx context.Context, filter TicketFilter) (map[domain.TicketStatus]int64, error) {
	f := ticketPredicate(filter)
	query := `SELECT t.status, COUNT(*) FROM tickets t` + f.WhereSQL() + ` GROUP BY t.status`
	rows, err := r.pool.Query(ctx, query, f.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int64, len(domain.TicketStatuses))
	for rows.Next() {
		var status domain.TicketStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func ticketPredicate(filter TicketFilter) *pagination.Filter {
	return pagination.NewFilter().
		Eq("t.customer_id", filter.CustomerID).
		Eq("t.assigned_to", filter.AssignedTo).
		Eq("t.status", filter.Status).
		Eq("t.priority", filter.Priority).
		Eq("t.category", filter.Category).
		Search(filter.Search, "t.title", "t.description", "t.ticket_number")
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket                      domain.Ticket
		customer                    domain.UserRef
		assigneeName, assigneeEmail *string
		assigneeAvatar              *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.CustomerID,
		&ticket.AssignedTo,
		&ticket.Tags,
		&ticket.Attachments,
		&ticket.AISentiment,
		&ticket.AISuggestedPriority,
		&ticket.AISuggestedCategory,
		&ticket.AISummary,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.FirstResponseAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&customer.Name,
		&customer.Email,
		&customer.Avatar,
		&assigneeName,
		&assigneeEmail,
		&assigneeAvatar,
	); err != nil {
		return nil, err
	}
	customer.ID = ticket.CustomerID
	ticket.Customer = &customer
	if ticket.AssignedTo != nil && assigneeName != nil {
		ticket.Assignee = &domain.UserRef{
			ID:     *ticket.AssignedTo,
			Name:   *assigneeName,
			Email:  derefString(assigneeEmail),
			Avatar: assigneeAvatar,
		}
	}
	return &ticket, nil
}

func marshalAttachments(attachments []domain.Attachment) ([]byte, error) {
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return json.Marshal(attachments)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
