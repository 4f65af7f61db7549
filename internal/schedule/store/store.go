// Package store persists the schedule catalog: collections, periods, and the
// slots linking them. Registration writes never touch these tables; the
// catalog is read-mostly reference data.
package store

import (
	"context"

	"github.com/google/uuid"

	"adoro/internal/schedule/models"
)

// Store is the persistence contract for the schedule catalog. Lookups return
// pkg/platform/sentinel.ErrNotFound; creates return sentinel.ErrConflict on a
// uniqueness violation.
type Store interface {
	CreateCollection(ctx context.Context, c *models.Collection) error
	CreatePeriod(ctx context.Context, p *models.Period) error
	CreateSlot(ctx context.Context, s *models.Slot) error

	ListCollections(ctx context.Context) ([]*models.Collection, error)
	FindCollection(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	FindCollectionByName(ctx context.Context, name string) (*models.Collection, error)

	// ListSlots returns the slots of a collection with their period details.
	ListSlots(ctx context.Context, collectionID uuid.UUID) ([]*models.SlotDetail, error)
	FindSlot(ctx context.Context, slotID uuid.UUID) (*models.SlotDetail, error)
}
