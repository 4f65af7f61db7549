package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"adoro/internal/assignment/models"
	"adoro/pkg/platform/sentinel"
)

// Schema is the assignments table DDL. Applied by deployment tooling and by
// the integration test harness.
const Schema = `
CREATE TABLE IF NOT EXISTS assignments (
	id UUID PRIMARY KEY,
	collection_ref TEXT NOT NULL,
	slot_ref TEXT NOT NULL,
	email_hash BYTEA NOT NULL,
	email_salt BYTEA NOT NULL,
	email_lookup BYTEA NOT NULL DEFAULT ''::bytea,
	algorithm TEXT NOT NULL,
	iterations INTEGER NOT NULL DEFAULT 0,
	deletion_token_hash BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT assignments_slot_email_hash_unique UNIQUE (slot_ref, email_hash),
	CONSTRAINT assignments_token_hash_unique UNIQUE (deletion_token_hash)
);
CREATE UNIQUE INDEX IF NOT EXISTS assignments_slot_email_lookup_unique
	ON assignments (slot_ref, email_lookup) WHERE octet_length(email_lookup) > 0;
`

// uniqueViolation is the PostgreSQL error code for constraint 23505.
const uniqueViolation = "23505"

// Postgres persists assignment records in PostgreSQL. The schema's unique
// constraints are the registration concurrency control; no pre-read is ever
// performed before an insert.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed assignment store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, rec *models.Assignment) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO assignments (
			id, collection_ref, slot_ref, email_hash, email_salt, email_lookup,
			algorithm, iterations, deletion_token_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	// Legacy records carry no salt or lookup digest; write empty bytes, not
	// NULL, so the NOT NULL columns and the partial index behave.
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.CollectionRef, rec.SlotRef, rec.EmailHash, orEmpty(rec.EmailSalt),
		orEmpty(rec.EmailLookup), string(rec.Algorithm), rec.Iterations, rec.TokenHash,
		rec.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

const selectColumns = `
	id, collection_ref, slot_ref, email_hash, email_salt, email_lookup,
	algorithm, iterations, deletion_token_hash, created_at
`

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM assignments WHERE id = $1`, id)
	return scanAssignment(row)
}

func (s *Postgres) FindByTokenHash(ctx context.Context, tokenHash []byte) (*models.Assignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM assignments WHERE deletion_token_hash = $1`, tokenHash)
	return scanAssignment(row)
}

func (s *Postgres) DeleteMatching(ctx context.Context, id uuid.UUID, tokenHash []byte) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM assignments WHERE id = $1 AND deletion_token_hash = $2`,
		id, tokenHash)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) UpgradeAlgorithm(ctx context.Context, id uuid.UUID, emailHash, emailSalt, emailLookup []byte, iterations int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE assignments
		SET email_hash = $2, email_salt = $3, email_lookup = $4,
			algorithm = $5, iterations = $6
		WHERE id = $1 AND algorithm = $7
	`, id, emailHash, emailSalt, emailLookup,
		string(models.AlgorithmPBKDF2), iterations, string(models.AlgorithmLegacy))
	if err != nil {
		return fmt.Errorf("upgrade assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upgrade assignment: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing matched: either the record is gone or a concurrent verified
	// read already upgraded it. The latter is success.
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return nil
}

func (s *Postgres) CountForSlot(ctx context.Context, slotRef string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignments WHERE slot_ref = $1`, slotRef).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}

func orEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func scanAssignment(row *sql.Row) (*models.Assignment, error) {
	var rec models.Assignment
	var algorithm string
	err := row.Scan(
		&rec.ID, &rec.CollectionRef, &rec.SlotRef, &rec.EmailHash, &rec.EmailSalt,
		&rec.EmailLookup, &algorithm, &rec.Iterations, &rec.TokenHash, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	rec.Algorithm = models.Algorithm(algorithm)
	return &rec, nil
}
