// Package memory provides in-process implementations of the repository
// interfaces. It backs the service when no Postgres DSN is configured and is
// used by tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Store holds every collection behind one lock so reference expansion sees a
// consistent view.
type Store struct {
	mu          sync.RWMutex
	seq         int64
	now         func() time.Time
	users       map[string]*userRow
	tickets     map[string]*ticketRow
	messages    map[string]*messageRow
	dataEntries map[string]*dataEntryRow
}

type userRow struct {
	seq  int64
	user domain.User
}

type ticketRow struct {
	seq    int64
	ticket domain.Ticket
}

type messageRow struct {
	seq int64
	msg domain.Message
}

type dataEntryRow struct {
	seq   int64
	entry domain.DataEntry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		users:       make(map[string]*userRow),
		tickets:     make(map[string]*ticketRow),
		messages:    make(map[string]*messageRow),
		dataEntries: make(map[string]*dataEntryRow),
	}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s} }

// Messages returns the message repository view.
func (s *Store) Messages() repository.TicketMessageRepository { return &messageRepo{s} }

// DataEntries returns the data entry repository view.
func (s *Store) DataEntries() repository.DataEntryRepository { return &dataEntryRepo{s} }

func (s *Store) nextID() (string, int64) {
	s.seq++
	return uuid.NewString(), s.seq
}

func (s *Store) userRef(id string) *domain.UserRef {
	row, ok := s.users[id]
	if !ok {
		return nil
	}
	return row.user.Ref()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneAttachments(in []domain.Attachment) []domain.Attachment {
	if in == nil {
		return nil
	}
	return append([]domain.Attachment(nil), in...)
}
