// Package store persists assignment records. Implementations come in pairs:
// an in-memory store for tests and single-node development and a PostgreSQL
// store for production. Both enforce the same contract: the uniqueness
// constraint on (slot_ref, email_lookup) is evaluated at write time and is
// the sole concurrency control for registration races; the conditional
// single-row delete is the sole concurrency control for deletion races.
package store

import (
	"context"

	"github.com/google/uuid"

	"adoro/internal/assignment/models"
)

// Store is the persistence contract for assignment records.
//
// Errors are pkg/platform/sentinel values: Create returns ErrConflict when a
// uniqueness constraint rejects the write, lookups return ErrNotFound, and
// DeleteMatching returns ErrNotFound when no row matched both id and token
// digest (absent and already-deleted are indistinguishable on purpose).
type Store interface {
	// Create inserts a new record atomically. Either the full record exists
	// afterwards or nothing does; a constraint rejection leaves no partial row.
	Create(ctx context.Context, rec *models.Assignment) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)

	// FindByTokenHash resolves the record committed to a deletion token.
	FindByTokenHash(ctx context.Context, tokenHash []byte) (*models.Assignment, error)

	// DeleteMatching removes the record only if both id and token digest still
	// match, in one atomic step. Of two concurrent calls with the same valid
	// token, exactly one succeeds; the other sees ErrNotFound.
	DeleteMatching(ctx context.Context, id uuid.UUID, tokenHash []byte) error

	// UpgradeAlgorithm rewrites a legacy record's email digest fields to the
	// current generation. The write is conditional on the record still being
	// legacy; an already-upgraded record is left untouched and reported as
	// success so concurrent verified reads don't race each other.
	UpgradeAlgorithm(ctx context.Context, id uuid.UUID, emailHash, emailSalt, emailLookup []byte, iterations int) error

	// CountForSlot reports how many active records exist for a slot.
	CountForSlot(ctx context.Context, slotRef string) (int, error)
}
