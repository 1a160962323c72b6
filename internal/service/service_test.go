package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/worker"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	analysis domain.AIAnalysis
	reply    string
	err      error
	calls    int
	history  string
}

func (f *fakeAnalyzer) Analyze(context.Context, string, string) (domain.AIAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.analysis, f.err
}

func (f *fakeAnalyzer) SuggestReply(_ context.Context, _, _, history string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = history
	return f.reply, f.err
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	store    *memory.Store
	storage  *storage.Local
	analyzer *fakeAnalyzer
	recorder *eventRecorder
	tickets  *TicketService
	admin    *AdminService

	customer domain.Actor
	other    domain.Actor
	agent    domain.Actor
	boss     domain.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	local, err := storage.NewLocal(t.TempDir(), "/uploads", 1<<20)
	require.NoError(t, err)

	analyzer := &fakeAnalyzer{analysis: domain.AIAnalysis{
		Sentiment:         domain.SentimentNegative,
		SuggestedPriority: domain.TicketPriorityHigh,
		SuggestedCategory: domain.TicketCategoryTechnical,
		Summary:           "Customer cannot log in",
	}}
	enricher := worker.NewEnricher(store.Tickets(), analyzer, zap.NewNop(), nil)

	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketMessageAdded,
		events.EventTicketDeleted,
		events.EventUserRoleChanged,
	} {
		dispatcher.Subscribe(et, recorder.handle)
	}

	env := &testEnv{
		store:    store,
		storage:  local,
		analyzer: analyzer,
		recorder: recorder,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:  store.Tickets(),
			MessageRepo: store.Messages(),
			UserRepo:    store.Users(),
			Storage:     local,
			Analyzer:    analyzer,
			Enrichment:  worker.NewInlineQueue(enricher),
			Dispatcher:  dispatcher,
			Logger:      zap.NewNop(),
		}),
		admin: NewAdminService(AdminDependencies{
			TicketRepo: store.Tickets(),
			UserRepo:   store.Users(),
			Dispatcher: dispatcher,
			Logger:     zap.NewNop(),
		}),
	}
	env.customer = env.seedUser(t, "Cara Customer", "cara@example.com", domain.RoleCustomer)
	env.other = env.seedUser(t, "Olly Other", "olly@example.com", domain.RoleCustomer)
	env.agent = env.seedUser(t, "Tess Team", "tess@example.com", domain.RoleTeam)
	env.boss = env.seedUser(t, "Ada Admin", "ada@example.com", domain.RoleAdmin)
	return env
}

func (e *testEnv) seedUser(t *testing.T, name, email string, role domain.Role) domain.Actor {
	t.Helper()
	u := &domain.User{Name: name, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, e.store.Users().Create(context.Background(), u))
	return domain.ActorFromUser(u)
}

func (e *testEnv) createTicket(t *testing.T, actor domain.Actor, title string) *domain.Ticket {
	t.Helper()
	tk, err := e.tickets.CreateTicket(context.Background(), actor, TicketCreateInput{
		Title:       title,
		Description: "Details for " + title,
	})
	require.NoError(t, err)
	return tk
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, apperrors.StatusOf(err), "error: %v", err)
}

func ptr[T any](v T) *T { return &v }

var ticketNumberPattern = regexp.MustCompile(`^TKT-[0-9A-Z]+-[0-9A-Z]{4}$`)

func TestCreateTicketDefaultsAndEnrichment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tk, err := env.tickets.CreateTicket(ctx, env.customer, TicketCreateInput{
		Title:       "  Cannot log in ",
		Description: "The reset link loops",
		Tags:        []string{"login", " login ", ""},
	})
	require.NoError(t, err)

	assert.Regexp(t, ticketNumberPattern, tk.TicketNumber)
	assert.Equal(t, "Cannot log in", tk.Title)
	assert.Equal(t, domain.TicketStatusOpen, tk.Status)
	assert.Equal(t, domain.TicketPriorityMedium, tk.Priority)
	assert.Equal(t, domain.TicketCategoryGeneral, tk.Category)
	assert.Equal(t, env.customer.ID, tk.CustomerID)
	assert.Equal(t, []string{"login"}, tk.Tags)
	assert.Nil(t, tk.AssignedTo)

	require.NotNil(t, tk.AISummary)
	assert.Equal(t, "Customer cannot log in", *tk.AISummary)
	assert.Equal(t, domain.TicketPriorityHigh, *tk.AISuggestedPriority)
	assert.Equal(t, domain.TicketPriorityMedium, tk.Priority, "AI suggestion must not overwrite priority")
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, env.recorder.types())
}

func TestCreateTicketValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input TicketCreateInput
	}{
		{"missing title", TicketCreateInput{Description: "d"}},
		{"blank title", TicketCreateInput{Title: "   ", Description: "d"}},
		{"long title", TicketCreateInput{Title: strings.Repeat("x", domain.MaxTitleLength+1), Description: "d"}},
		{"missing description", TicketCreateInput{Title: "t"}},
		{"bad priority", TicketCreateInput{Title: "t", Description: "d", Priority: "critical"}},
		{"bad category", TicketCreateInput{Title: "t", Description: "d", Category: "misc"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.tickets.CreateTicket(ctx, env.customer, tc.input)
			requireStatus(t, err, 400)
		})
	}
}

func TestCreateTicketSurvivesAIFailure(t *testing.T) {
	env := newTestEnv(t)
	env.analyzer.err = errors.New("model unavailable")

	tk := env.createTicket(t, env.customer, "Printer on fire")

	assert.Nil(t, tk.AISentiment)
	assert.Nil(t, tk.AISummary)
	assert.Equal(t, 1, env.analyzer.calls)
}

func TestTicketNumberIsImmutable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.createTicket(t, env.customer, "Billing question")
	number := tk.TicketNumber

	updated, err := env.tickets.UpdateTicket(ctx, env.agent, tk.ID, TicketUpdateInput{
		Title:    ptr("Billing question (renamed)"),
		Priority: ptr(domain.TicketPriorityHigh),
	})
	require.NoError(t, err)
	assert.Equal(t, number, updated.TicketNumber)

	updated, err = env.tickets.ChangeStatus(ctx, env.agent, tk.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, number, updated.TicketNumber)
}

func TestResolvedAtIsStampedOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.createTicket(t, env.customer, "Slow dashboard")

	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	env.tickets.now = func() time.Time { return first }
	resolved, err := env.tickets.ChangeStatus(ctx, env.agent, tk.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.True(t, first.Equal(*resolved.ResolvedAt))

	env.tickets.now = func() time.Time { return first.Add(time.Hour) }
	_, err = env.tickets.ChangeStatus(ctx, env.agent, tk.ID, domain.TicketStatusOpen)
	require.NoError(t, err)
	again, err := env.tickets.UpdateTicket(ctx, env.agent, tk.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	require.NotNil(t, again.ResolvedAt)
	assert.True(t, first.Equal(*again.ResolvedAt), "resolvedAt must keep the first stamp")

	closed, err := env.tickets.ChangeStatus(ctx, env.agent, tk.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)

	assert.Contains(t, env.recorder.types(), events.EventTicketStatusChanged)
}

func TestCustomerIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.createTicket(t, env.customer, "Private issue")

	_, err := env.tickets.GetTicket(ctx, env.other, tk.ID)
	requireStatus(t, err, 403)

	_, err = env.tickets.UpdateTicket(ctx, env.other, tk.ID, TicketUpdateInput{Title: ptr("hijack")})
	requireStatus(t, err, 403)

	_, err = env.tickets.AddMessage(ctx, env.other, tk.ID, MessageInput{Content: "hello"})
	requireStatus(t, err, 403)

	_, err = env.tickets.ListMessages(ctx, env.other, tk.ID, pagination.New(1, 10, 50, 100))
	requireStatus(t, err, 403)

	page, err := env.tickets.ListTickets(ctx, env.other, TicketQuery{Page: pagination.New(1, 10, 10, 100)})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.Meta.Total)

	got, err := env.tickets.GetTicket(ctx, env.agent, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)
}

func TestCustomerCannotTouchStaffFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.createTicket(t, env.customer, "Need help")

	_, err := env.tickets.UpdateTicket(ctx, env.customer, tk.ID, TicketUpdateInput{
		Title:  ptr("Need help urgently"),
		Status: ptr(domain.TicketStatusClosed),
	})
	requireStatus(t, err, 403)

	unchanged, err := env.tickets.GetTicket(ctx, env.customer, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Need help", unchanged.Title, "nothing applied on forbidden update")
	assert.Equal(t, domain.TicketStatusOpen, unchanged.Status)

	updated, err := env.tickets.UpdateTicket(ctx, env.customer, tk.ID, TicketUpdateInput{
		Title:       ptr("Need help urgently"),
		Description: ptr("More detail"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Need help urgently", updated.Title)
	assert.Equal(t, "More detail", updated.Description)

	_, err = env.tickets.ChangeStatus(ctx, env.customer, tk.ID, domain.TicketStatusResolved)
	requireStatus(t, err, 403)

	err = env.tickets.DeleteTicket(ctx, env.customer, tk.ID)
	requireStatus(t, err, 403)
	err = env.tickets.DeleteTicket(ctx, env.agent, tk.ID)
	requireStatus(t, err, 403)
}

func TestCustomerMessagesAreNeverInternal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.createTicket(t, env.customer, "Refund")

	msg, err := env.tickets.AddMessage(ctx, env.customer, tk.ID, MessageInput{Content: "secret?", IsInternal: true})
	require.NoError(t, err)
	assert.False(t, msg.IsInternal)
	assert.Equal(t, domain.SenderRoleCustomer, msg.SenderRole)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "Cara Customer", msg.Sender.Name)

	reloaded, err := env.tickets.GetTicket(ctx, env.customer, tk.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.FirstResponseAt, "customer messages do not count as a response")
}

func TestThreadHidesInternalNotesFromCustomers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.createTicket(t, env.customer, "Outage")

	for i, in := range []struct {
		actor    domain.Actor
		internal bool
	}{
		{env.customer, false},
		{env.agent, true},
		{env.agent, false},
		{env.boss, true},
		{env.customer, false},
	} {
		_, err := env.tickets.AddMessage(ctx, in.actor, tk.ID, MessageInput{Content: "m" + string(rune('0'+i)), IsInternal: in.internal})
		require.NoError(t, err)
	}

	page, err := env.tickets.ListMessages(ctx, env.customer, tk.ID, pagination.New(1, 2, 50, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Meta.Total)
	assert.Equal(t, 2, page.Meta.Pages)
	require.Len(t, page.Items, 2)
	for _, m := range page.Items {
		assert.False(t, m.IsInternal)
	}
	assert.Equal(t, "m0", page.Items[0].Content)
	assert.Equal(t, "m2", page.Items[1].Content)

	staff, err := env.tickets.ListMessages(ctx, env.agent, tk.ID, pagination.New(1, 50, 50, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(5), staff.Meta.Total)

	reloaded, err := env.tickets.GetTicket(ctx, env.agent, tk.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.FirstResponseAt)
}

func TestFirstResponseStampedOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.createTicket(t, env.customer, "Question")

	first := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	env.tickets.now = func() time.Time { return first }
	_, err := env.tickets.AddMessage(ctx, env.agent, tk.ID, MessageInput{Content: "On it"})
	require.NoError(t, err)

	env.tickets.now = func() time.Time { return first.Add(time.Hour) }
	_, err = env.tickets.AddMessage(ctx, env.boss, tk.ID, MessageInput{Content: "Escalated"})
	require.NoError(t, err)

	got, err := env.tickets.GetTicket(ctx, env.agent, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FirstResponseAt)
	assert.True(t, first.Equal(*got.FirstResponseAt))
}

func TestAddMessageRequiresContent(t *testing.T) {
	env := newTestEnv(t)
	tk := env.createTicket(t, env.customer, "Empty")

	_, err := env.tickets.AddMessage(context.Background(), env.customer, tk.ID, MessageInput{Content: "  "})
	requireStatus(t, err, 400)

	_, err = env.tickets.AddMessage(context.Background(), env.customer, "00000000-0000-0000-0000-000000000000", MessageInput{Content: "hi"})
	requireStatus(t, err, 404)
}

func TestListTicketsPaginationAndFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		env.createTicket(t, env.customer, "Ticket "+string(rune('A'+i)))
	}
	env.createTicket(t, env.other, "Someone else")

	page, err := env.tickets.ListTickets(ctx, env.customer, TicketQuery{Page: pagination.New(2, 5, 10, 100)})
	require.NoError(t, err)
	assert.Equal(t, pagination.Meta{Page: 2, Limit: 5, Total: 12, Pages: 3}, page.Meta)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "Ticket G", page.Items[0].Title, "newest first")

	all, err := env.tickets.ListTickets(ctx, env.agent, TicketQuery{Page: pagination.New(1, 100, 10, 100)})
	require.NoError(t, err)
	assert.Equal(t, int64(13), all.Meta.Total)

	search, err := env.tickets.ListTickets(ctx, env.agent, TicketQuery{Search: "someone", Page: pagination.New(1, 10, 10, 100)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), search.Meta.Total)

	_, err = env.tickets.ListTickets(ctx, env.agent, TicketQuery{Status: "archived", Page: pagination.New(1, 10, 10, 100)})
	requireStatus(t, err, 400)

	mine, err := env.tickets.MyTickets(ctx, env.other, TicketQuery{Page: pagination.New(1, 10, 10, 100)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Meta.Total)
}

func TestStatsScopeByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createTicket(t, env.customer, "One")
	env.createTicket(t, env.customer, "Two")
	env.createTicket(t, env.other, "Three")

	_, err := env.tickets.UpdateTicket(ctx, env.boss, a.ID, TicketUpdateInput{
		Status:     ptr(domain.TicketStatusInProgress),
		AssignedTo: Assignment{Set: true, AssigneeID: env.agent.ID},
	})
	require.NoError(t, err)

	st, err := env.tickets.Stats(ctx, env.customer)
	require.NoError(t, err)
	assert.Equal(t, TicketStats{Total: 2, Open: 1, InProgress: 1}, st)

	st, err = env.tickets.Stats(ctx, env.agent)
	require.NoError(t, err)
	assert.Equal(t, TicketStats{Total: 1, InProgress: 1}, st)

	st, err = env.tickets.Stats(ctx, env.boss)
	require.NoError(t, err)
	assert.Equal(t, TicketStats{Total: 3, Open: 2, InProgress: 1}, st)
}

func TestAssignmentRequiresStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.createTicket(t, env.customer, "Assign me")

	_, err := env.tickets.UpdateTicket(ctx, env.agent, tk.ID, TicketUpdateInput{
		AssignedTo: Assignment{Set: true, AssigneeID: env.other.ID},
	})
	requireStatus(t, err, 400)

	_, _, err = env.admin.AssignTicket(ctx, env.boss, tk.ID, env.customer.ID)
	requireStatus(t, err, 400)

	_, _, err = env.admin.AssignTicket(ctx, env.boss, tk.ID, "00000000-0000-0000-0000-000000000000")
	requireStatus(t, err, 404)

	assigned, msg, err := env.admin.AssignTicket(ctx, env.boss, tk.ID, env.agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ticket assigned successfully", msg)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, env.agent.ID, *assigned.AssignedTo)
	require.NotNil(t, assigned.Assignee)
	assert.Equal(t, "Tess Team", assigned.Assignee.Name)

	cleared, msg, err := env.admin.AssignTicket(ctx, env.boss, tk.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Ticket unassigned", msg)
	assert.Nil(t, cleared.AssignedTo)

	_, _, err = env.admin.AssignTicket(ctx, env.agent, tk.ID, env.agent.ID)
	requireStatus(t, err, 403)
}

func TestAttachmentsAreStoredAndRemovedOnDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tk, err := env.tickets.CreateTicket(ctx, env.customer, TicketCreateInput{
		Title:       "Screenshot attached",
		Description: "See file",
		Attachments: []storage.File{{Name: "shot.png", MimeType: "image/png", Size: 3, Content: strings.NewReader("png")}},
	})
	require.NoError(t, err)
	require.Len(t, tk.Attachments, 1)
	assert.Equal(t, "shot.png", tk.Attachments[0].Filename)
	assert.True(t, strings.HasPrefix(tk.Attachments[0].URL, "/uploads/tickets/"))

	updated, err := env.tickets.UpdateTicket(ctx, env.customer, tk.ID, TicketUpdateInput{
		Attachments: []storage.File{{Name: "log.txt", MimeType: "text/plain", Size: 3, Content: strings.NewReader("log")}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Attachments, 2, "attachments are appended")

	_, err = env.tickets.AddMessage(ctx, env.agent, tk.ID, MessageInput{
		Content:     "Fixed, see patch",
		Attachments: []storage.File{{Name: "patch.diff", Size: 4, Content: strings.NewReader("diff")}},
	})
	require.NoError(t, err)

	require.NoError(t, env.tickets.DeleteTicket(ctx, env.boss, tk.ID))

	_, err = env.tickets.GetTicket(ctx, env.boss, tk.ID)
	requireStatus(t, err, 404)
	msgs, err := env.store.Messages().ListAllByTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	last := env.recorder.types()
	assert.Equal(t, events.EventTicketDeleted, last[len(last)-1])
}

func TestUploadFailureAbortsCreate(t *testing.T) {
	env := newTestEnv(t)
	small, err := storage.NewLocal(t.TempDir(), "/uploads", 2)
	require.NoError(t, err)
	env.tickets.storage = small

	_, err = env.tickets.CreateTicket(context.Background(), env.customer, TicketCreateInput{
		Title:       "Big file",
		Description: "too large",
		Attachments: []storage.File{{Name: "big.bin", Content: strings.NewReader("way too large")}},
	})
	requireStatus(t, err, 400)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "File exceeds the maximum upload size", de.Message)
	assert.Equal(t, "big.bin", de.Details["filename"])

	env.tickets.storage = brokenStorage{}
	_, err = env.tickets.CreateTicket(context.Background(), env.customer, TicketCreateInput{
		Title:       "Disk full",
		Description: "storage is down",
		Attachments: []storage.File{{Name: "log.txt", Size: 3, Content: strings.NewReader("log")}},
	})
	requireStatus(t, err, 500)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Failed to upload attachment", de.Message)

	page, err := env.tickets.ListTickets(context.Background(), env.boss, TicketQuery{Page: pagination.New(1, 10, 10, 100)})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestAnalyzeAndSuggestReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.createTicket(t, env.customer, "VPN drops")
	_, err := env.tickets.AddMessage(ctx, env.customer, tk.ID, MessageInput{Content: "It drops hourly"})
	require.NoError(t, err)
	_, err = env.tickets.AddMessage(ctx, env.agent, tk.ID, MessageInput{Content: "check router firmware", IsInternal: true})
	require.NoError(t, err)

	_, err = env.tickets.AnalyzeTicket(ctx, env.customer, tk.ID)
	requireStatus(t, err, 403)

	env.analyzer.err = errors.New("quota exceeded")
	analyzed, err := env.tickets.AnalyzeTicket(ctx, env.agent, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, analyzed.AISummary)
	assert.Equal(t, "Unable to generate AI summary", *analyzed.AISummary)
	assert.Equal(t, domain.SentimentNeutral, *analyzed.AISentiment)

	reply, err := env.tickets.SuggestReply(ctx, env.agent, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, reply)

	env.analyzer.err = nil
	env.analyzer.reply = "  Please update the client.  "
	reply, err = env.tickets.SuggestReply(ctx, env.agent, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Please update the client.", reply)
	assert.Contains(t, env.analyzer.history, "It drops hourly")
	assert.NotContains(t, env.analyzer.history, "router firmware")

	_, err = env.tickets.SuggestReply(ctx, env.customer, tk.ID)
	requireStatus(t, err, 403)
}

func TestScenarioCreateResolveAndForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tk := env.createTicket(t, env.customer, "Cannot export CSV")
	_, err := env.tickets.AddMessage(ctx, env.agent, tk.ID, MessageInput{Content: "Looking now"})
	require.NoError(t, err)
	_, _, err = env.admin.AssignTicket(ctx, env.boss, tk.ID, env.agent.ID)
	require.NoError(t, err)
	resolved, err := env.tickets.ChangeStatus(ctx, env.agent, tk.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.NotNil(t, resolved.FirstResponseAt)

	_, err = env.tickets.UpdateTicket(ctx, env.customer, tk.ID, TicketUpdateInput{Priority: ptr(domain.TicketPriorityUrgent)})
	requireStatus(t, err, 403)

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketMessageAdded,
		events.EventTicketAssigned,
		events.EventTicketStatusChanged,
	}, env.recorder.types())
}

type brokenStorage struct{ storage.Storage }

func (brokenStorage) Upload(context.Context, storage.File, string) (string, error) {
	return "", errors.New("disk full")
}
