package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func seedUser(t *testing.T, s *Store, email string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func seedTicket(t *testing.T, s *Store, customerID, title string) *domain.Ticket {
	t.Helper()
	tk := &domain.Ticket{
		Title:       title,
		Description: "desc " + title,
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		Category:    domain.TicketCategoryGeneral,
		CustomerID:  customerID,
	}
	domain.EnsureTicketNumber(tk, s.now())
	require.NoError(t, s.Tickets().Create(context.Background(), tk))
	return tk
}

func TestUsersDuplicateEmail(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "a@example.com", domain.RoleCustomer)
	err := s.Users().Create(context.Background(), &domain.User{Email: "a@example.com"})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))
}

func TestUsersGetMissing(t *testing.T) {
	_, err := NewStore().Users().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTicketsListScopedAndExpanded(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com", domain.RoleCustomer)
	bob := seedUser(t, s, "bob@example.com", domain.RoleCustomer)
	first := seedTicket(t, s, alice.ID, "Printer jam")
	second := seedTicket(t, s, alice.ID, "Invoice wrong")
	seedTicket(t, s, bob.ID, "Login broken")

	items, total, err := s.Tickets().List(ctx, repository.TicketFilter{CustomerID: alice.ID}, pagination.New(1, 10, 0, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID, "newest first")
	assert.Equal(t, first.ID, items[1].ID)
	require.NotNil(t, items[0].Customer)
	assert.Equal(t, "alice@example.com", items[0].Customer.Email)

	items, total, err = s.Tickets().List(ctx, repository.TicketFilter{Search: "INVOICE"}, pagination.New(1, 10, 0, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, second.ID, items[0].ID)
}

func TestTicketsPatchTouchesOnlyNamedFields(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com", domain.RoleCustomer)
	agent := seedUser(t, s, "agent@example.com", domain.RoleTeam)
	tk := seedTicket(t, s, alice.ID, "Original")

	high := domain.TicketPriorityHigh
	change, err := s.Tickets().Patch(ctx, tk.ID, repository.TicketPatch{Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, change.PreviousStatus)
	assert.Nil(t, change.PreviousAssignee)

	change, err = s.Tickets().Patch(ctx, tk.ID, repository.TicketPatch{
		Assign:      true,
		AssignedTo:  &agent.ID,
		Attachments: []domain.Attachment{{Filename: "a.txt", URL: "/uploads/a.txt"}},
	})
	require.NoError(t, err)
	assert.Nil(t, change.PreviousAssignee)

	got, err := s.Tickets().GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Title)
	assert.Equal(t, domain.TicketPriorityHigh, got.Priority)
	assert.Equal(t, tk.TicketNumber, got.TicketNumber)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, agent.ID, *got.AssignedTo)
	assert.Len(t, got.Attachments, 1)

	change, err = s.Tickets().Patch(ctx, tk.ID, repository.TicketPatch{Assign: true})
	require.NoError(t, err)
	require.NotNil(t, change.PreviousAssignee)
	assert.Equal(t, agent.ID, *change.PreviousAssignee)

	_, err = s.Tickets().Patch(ctx, "missing", repository.TicketPatch{Priority: &high})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTicketsLifecycleStampsAreWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com", domain.RoleCustomer)
	tk := seedTicket(t, s, alice.ID, "Stamps")
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	later := first.Add(time.Hour)

	resolved, open := domain.TicketStatusResolved, domain.TicketStatusOpen
	_, err := s.Tickets().Patch(ctx, tk.ID, repository.TicketPatch{Status: &resolved, At: first})
	require.NoError(t, err)
	_, err = s.Tickets().Patch(ctx, tk.ID, repository.TicketPatch{Status: &open, At: later})
	require.NoError(t, err)
	_, err = s.Tickets().Patch(ctx, tk.ID, repository.TicketPatch{Status: &resolved, At: later})
	require.NoError(t, err)

	stamped, err := s.Tickets().SetFirstResponse(ctx, tk.ID, first)
	require.NoError(t, err)
	assert.True(t, stamped)
	stamped, err = s.Tickets().SetFirstResponse(ctx, tk.ID, later)
	require.NoError(t, err)
	assert.False(t, stamped)

	got, err := s.Tickets().GetByID(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.ResolvedAt.Equal(first))
	require.NotNil(t, got.FirstResponseAt)
	assert.True(t, got.FirstResponseAt.Equal(first))
	assert.Nil(t, got.ClosedAt)
}

func TestTicketsUpdateAIFieldsOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com", domain.RoleCustomer)
	tk := seedTicket(t, s, alice.ID, "Slow")

	require.NoError(t, s.Tickets().UpdateAIFields(ctx, tk.ID, domain.AIAnalysis{
		Sentiment:         domain.SentimentNegative,
		SuggestedPriority: domain.TicketPriorityHigh,
		SuggestedCategory: domain.TicketCategoryTechnical,
		Summary:           "site is slow",
	}))
	got, err := s.Tickets().GetByID(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AISentiment)
	assert.Equal(t, domain.SentimentNegative, *got.AISentiment)
	assert.Equal(t, domain.TicketPriorityMedium, got.Priority)
	assert.Equal(t, "Slow", got.Title)
}

func TestMessagesInternalFilteringAgreesWithCount(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com", domain.RoleCustomer)
	tk := seedTicket(t, s, alice.ID, "Help")
	for i, internal := range []bool{false, true, false, true, false} {
		require.NoError(t, s.Messages().Create(ctx, &domain.Message{
			TicketID:   tk.ID,
			SenderID:   &alice.ID,
			SenderRole: domain.SenderRoleCustomer,
			Content:    string(rune('a' + i)),
			IsInternal: internal,
		}))
	}

	items, total, err := s.Messages().ListByTicket(ctx, repository.MessageFilter{TicketID: tk.ID}, pagination.New(1, 2, 0, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Content)
	assert.Equal(t, "c", items[1].Content)
	for _, m := range items {
		assert.False(t, m.IsInternal)
		require.NotNil(t, m.Sender)
	}

	all, err := s.Messages().ListAllByTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestTicketDeleteCascadesMessages(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com", domain.RoleCustomer)
	tk := seedTicket(t, s, alice.ID, "Bye")
	require.NoError(t, s.Messages().Create(ctx, &domain.Message{TicketID: tk.ID, Content: "hi", SenderRole: domain.SenderRoleCustomer}))

	require.NoError(t, s.Tickets().Delete(ctx, tk.ID))
	all, err := s.Messages().ListAllByTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.ErrorIs(t, s.Tickets().Delete(ctx, tk.ID), repository.ErrNotFound)
}

func TestDataEntriesSearchAndCreator(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com", domain.RoleCustomer)
	require.NoError(t, s.DataEntries().Create(ctx, &domain.DataEntry{Title: "Revenue", Value: 10, CreatedBy: alice.ID}))
	require.NoError(t, s.DataEntries().Create(ctx, &domain.DataEntry{Title: "Costs", Description: "quarterly", Value: 3, CreatedBy: alice.ID}))

	items, total, err := s.DataEntries().List(ctx, repository.DataEntryFilter{Search: "Quarter"}, pagination.New(1, 10, 0, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Costs", items[0].Title)
	require.NotNil(t, items[0].Creator)
	assert.Equal(t, alice.ID, items[0].Creator.ID)
}
