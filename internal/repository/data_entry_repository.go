package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/pagination"
)

// DataEntryFilter captures list parameters for data entries.
type DataEntryFilter struct {
	CreatedBy string
	Search    string
}

// DataEntryRepository persists data entries.
type DataEntryRepository interface {
	Create(ctx context.Context, entry *domain.DataEntry) error
	Update(ctx context.Context, entry *domain.DataEntry) error
	GetByID(ctx context.Context, id string) (*domain.DataEntry, error)
	List(ctx context.Context, filter DataEntryFilter, page pagination.Request) ([]domain.DataEntry, int64, error)
	Delete(ctx context.Context, id string) error
}

type dataEntryRepository struct {
	pool *pgxpool.Pool
}

// NewDataEntryRepository constructs repository.
func NewDataEntryRepository(pool *pgxpool.Pool) DataEntryRepository {
	return &dataEntryRepository{pool: pool}
}

const dataEntrySelect = `
        SELECT d.id, d.title, d.description, d.value, d.image, d.created_by, d.created_at, d.updated_at,
               u.name, u.email, u.avatar
        FROM data_entries d
        JOIN users u ON u.id = d.created_by`

func (r *dataEntryRepository) Create(ctx context.Context, entry *domain.DataEntry) error {
	const query = `
        INSERT INTO data_entries (title, description, value, image, created_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		entry.Title,
		entry.Description,
		entry.Value,
		entry.Image,
		entry.CreatedBy,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
}

func (r *dataEntryRepository) Update(ctx context.Context, entry *domain.DataEntry) error {
	const query = `
        UPDATE data_entries SET title=$1, description=$2, value=$3, image=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		entry.Title,
		entry.Description,
		entry.Value,
		entry.Image,
		entry.ID,
	).Scan(&entry.UpdatedAt)
}

func (r *dataEntryRepository) GetByID(ctx context.Context, id string) (*domain.DataEntry, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}
	return scanDataEntry(r.pool.QueryRow(ctx, dataEntrySelect+` WHERE d.id=$1`, id))
}

func (r *dataEntryRepository) List(ctx context.Context, filter DataEntryFilter, page pagination.Request) ([]domain.DataEntry, int64, error) {
	f := pagination.NewFilter().
		Eq("d.created_by", filter.CreatedBy).
		Search(filter.Search, "d.title", "d.description")

	var total int64
	countSQL, countArgs := f.CountQuery("data_entries d")
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count data entries: %w", err)
	}

	query, args := f.PageQuery(dataEntrySelect, "d.created_at DESC, d.id DESC", page)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.DataEntry
	for rows.Next() {
		entry, err := scanDataEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *entry)
	}
	return result, total, rows.Err()
}

func (r *dataEntryRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM data_entries WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanDataEntry(row pgx.Row) (*domain.DataEntry, error) {
	var (
		entry   domain.DataEntry
		creator domain.UserRef
	)
	if err := row.Scan(
		&entry.ID,
		&entry.Title,
		&entry.Description,
		&entry.Value,
		&entry.Image,
		&entry.CreatedBy,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&creator.Name,
		&creator.Email,
		&creator.Avatar,
	); err != nil {
		return nil, err
	}
	creator.ID = entry.CreatedBy
	entry.Creator = &creator
	return &entry, nil
}
