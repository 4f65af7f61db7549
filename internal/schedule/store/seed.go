package store

import (
	"context"

	"github.com/google/uuid"

	"adoro/internal/schedule/models"
)

// SeedDevCatalog creates a small catalog for local development so the
// registration flow works out of the box. Returns the seeded slot refs.
func SeedDevCatalog(s Store) []string {
	ctx := context.Background()

	collection := &models.Collection{
		ID:               uuid.New(),
		Name:             "default",
		Description:      "Development collection",
		Enabled:          true,
		Languages:        []string{"en"},
		MaintainerEmails: []string{"maintainer@localhost"},
	}
	_ = s.CreateCollection(ctx, collection)

	periods := []*models.Period{
		{ID: uuid.New(), Name: "Monday 14:00-15:00"},
		{ID: uuid.New(), Name: "Tuesday 09:00-10:00"},
	}

	var slotRefs []string
	for _, p := range periods {
		_ = s.CreatePeriod(ctx, p)
		slot := &models.Slot{ID: uuid.New(), CollectionID: collection.ID, PeriodID: p.ID}
		_ = s.CreateSlot(ctx, slot)
		slotRefs = append(slotRefs, slot.ID.String())
	}
	return slotRefs
}
