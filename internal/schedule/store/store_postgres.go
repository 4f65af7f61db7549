package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"adoro/internal/schedule/models"
	"adoro/pkg/platform/sentinel"
)

// Schema is the catalog DDL. Applied by deployment tooling and by the
// integration test harness.
const Schema = `
CREATE TABLE IF NOT EXISTS collections (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	languages TEXT[] NOT NULL,
	maintainer_emails TEXT[] NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS periods (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS period_collections (
	id UUID PRIMARY KEY,
	collection_id UUID NOT NULL REFERENCES collections (id) ON DELETE CASCADE,
	period_id UUID NOT NULL REFERENCES periods (id) ON DELETE CASCADE,
	CONSTRAINT period_collection_unique UNIQUE (collection_id, period_id)
);
`

const uniqueViolation = "23505"

// Postgres persists the schedule catalog in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed catalog store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CreateCollection(ctx context.Context, c *models.Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (id, name, description, enabled, languages, maintainer_emails)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.Name, c.Description, c.Enabled, pq.Array(c.Languages), pq.Array(c.MaintainerEmails))
	return translateWrite(err, "create collection")
}

func (s *Postgres) CreatePeriod(ctx context.Context, p *models.Period) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO periods (id, name, description) VALUES ($1, $2, $3)
	`, p.ID, p.Name, p.Description)
	return translateWrite(err, "create period")
}

func (s *Postgres) CreateSlot(ctx context.Context, slot *models.Slot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO period_collections (id, collection_id, period_id) VALUES ($1, $2, $3)
	`, slot.ID, slot.CollectionID, slot.PeriodID)
	return translateWrite(err, "create slot")
}

func (s *Postgres) ListCollections(ctx context.Context) ([]*models.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, enabled, languages, maintainer_emails
		FROM collections ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []*models.Collection
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Enabled,
			pq.Array(&c.Languages), pq.Array(&c.MaintainerEmails)); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Postgres) FindCollection(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	return s.findCollection(ctx, `WHERE id = $1`, id)
}

func (s *Postgres) FindCollectionByName(ctx context.Context, name string) (*models.Collection, error) {
	return s.findCollection(ctx, `WHERE lower(name) = lower($1)`, name)
}

func (s *Postgres) findCollection(ctx context.Context, where string, arg any) (*models.Collection, error) {
	var c models.Collection
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, enabled, languages, maintainer_emails
		FROM collections `+where, arg).
		Scan(&c.ID, &c.Name, &c.Description, &c.Enabled,
			pq.Array(&c.Languages), pq.Array(&c.MaintainerEmails))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find collection: %w", err)
	}
	return &c, nil
}

const slotDetailQuery = `
	SELECT pc.id, c.id, c.name, c.enabled, p.name, p.description
	FROM period_collections pc
	JOIN collections c ON c.id = pc.collection_id
	JOIN periods p ON p.id = pc.period_id
`

func (s *Postgres) ListSlots(ctx context.Context, collectionID uuid.UUID) ([]*models.SlotDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		slotDetailQuery+` WHERE pc.collection_id = $1 ORDER BY p.name`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var out []*models.SlotDetail
	for rows.Next() {
		detail, err := scanSlotDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, detail)
	}
	return out, rows.Err()
}

func (s *Postgres) FindSlot(ctx context.Context, slotID uuid.UUID) (*models.SlotDetail, error) {
	row := s.db.QueryRowContext(ctx, slotDetailQuery+` WHERE pc.id = $1`, slotID)
	detail, err := scanSlotDetail(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return detail, nil
}

func scanSlotDetail(scan func(...any) error) (*models.SlotDetail, error) {
	var d models.SlotDetail
	if err := scan(&d.SlotID, &d.CollectionID, &d.CollectionName,
		&d.CollectionEnabled, &d.PeriodName, &d.PeriodDescription); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan slot: %w", err)
	}
	return &d, nil
}

func translateWrite(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return sentinel.ErrConflict
		case "23503": // foreign key violation
			return sentinel.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
