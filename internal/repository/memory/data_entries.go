package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type dataEntryRepo struct{ s *Store }

func (r *dataEntryRepo) Create(_ context.Context, entry *domain.DataEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, seq := r.s.nextID()
	now := r.s.now()
	entry.ID = id
	entry.CreatedAt = now
	entry.UpdatedAt = now
	stored := *entry
	stored.Creator = nil
	r.s.dataEntries[id] = &dataEntryRow{seq: seq, entry: stored}
	return nil
}

func (r *dataEntryRepo) Update(_ context.Context, entry *domain.DataEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.dataEntries[entry.ID]
	if !ok {
		return repository.ErrNotFound
	}
	entry.UpdatedAt = r.s.now()
	stored := *entry
	stored.Creator = nil
	stored.CreatedBy = row.entry.CreatedBy
	stored.CreatedAt = row.entry.CreatedAt
	row.entry = stored
	return nil
}

func (r *dataEntryRepo) GetByID(_ context.Context, id string) (*domain.DataEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.dataEntries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	entry := row.entry
	entry.Creator = r.s.userRef(entry.CreatedBy)
	return &entry, nil
}

func (r *dataEntryRepo) List(_ context.Context, filter repository.DataEntryFilter, page pagination.Request) ([]domain.DataEntry, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := make([]*dataEntryRow, 0, len(r.s.dataEntries))
	for _, row := range r.s.dataEntries {
		if filter.CreatedBy != "" && row.entry.CreatedBy != filter.CreatedBy {
			continue
		}
		if !pagination.MatchesSearch(filter.Search, row.entry.Title, row.entry.Description) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	entries := make([]domain.DataEntry, len(rows))
	for i, row := range rows {
		entry := row.entry
		entry.Creator = r.s.userRef(entry.CreatedBy)
		entries[i] = entry
	}
	result := pagination.Slice(entries, page)
	return result.Items, result.Meta.Total, nil
}

func (r *dataEntryRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.dataEntries[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.dataEntries, id)
	return nil
}
