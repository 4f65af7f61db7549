// Package service exposes the schedule catalog read operations and the
// directory lookups other subsystems need (slot descriptions for
// notifications, maintainer addresses for mail).
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"adoro/internal/schedule/models"
	"adoro/internal/schedule/store"
	dErrors "adoro/pkg/domain-errors"
	"adoro/pkg/platform/sentinel"
)

// AssignmentCounter reports how many active records a slot holds. Implemented
// by the assignment store; injected so the catalog stays decoupled from
// registration persistence.
type AssignmentCounter interface {
	CountForSlot(ctx context.Context, slotRef string) (int, error)
}

// Service serves catalog reads.
type Service struct {
	catalog store.Store
	counter AssignmentCounter
}

// New constructs a schedule service. counter may be nil, in which case slot
// listings report zero occupancy.
func New(catalog store.Store, counter AssignmentCounter) *Service {
	return &Service{catalog: catalog, counter: counter}
}

// ListCollections returns the enabled collections, optionally filtered to
// those offered in lang.
func (s *Service) ListCollections(ctx context.Context, lang string) ([]*models.Collection, error) {
	all, err := s.catalog.ListCollections(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list collections")
	}

	out := make([]*models.Collection, 0, len(all))
	for _, c := range all {
		if !c.Enabled {
			continue
		}
		if lang != "" && !c.AvailableIn(lang) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// SlotListing is one slot of a collection with its current occupancy.
type SlotListing struct {
	SlotRef     string
	PeriodName  string
	Description string
	Registered  int
}

// ListSlots returns the slots of an enabled collection with registration
// counts.
func (s *Service) ListSlots(ctx context.Context, collectionID uuid.UUID, lang string) ([]*SlotListing, error) {
	collection, err := s.catalog.FindCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "collection not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load collection")
	}
	if !collection.Enabled || (lang != "" && !collection.AvailableIn(lang)) {
		return nil, dErrors.New(dErrors.CodeNotFound, "collection not found")
	}

	slots, err := s.catalog.ListSlots(ctx, collectionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list periods")
	}

	out := make([]*SlotListing, 0, len(slots))
	for _, slot := range slots {
		listing := &SlotListing{
			SlotRef:     slot.SlotID.String(),
			PeriodName:  slot.PeriodName,
			Description: slot.PeriodDescription,
		}
		if s.counter != nil {
			count, err := s.counter.CountForSlot(ctx, listing.SlotRef)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not count registrations")
			}
			listing.Registered = count
		}
		out = append(out, listing)
	}
	return out, nil
}

// SlotOpen reports whether a slot exists and belongs to an enabled
// collection. The registration endpoint gates on this before hashing.
func (s *Service) SlotOpen(ctx context.Context, slotRef string) error {
	slotID, err := uuid.Parse(slotRef)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown slot")
	}
	detail, err := s.catalog.FindSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeInvalidInput, "unknown slot")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not load slot")
	}
	if !detail.CollectionEnabled {
		return dErrors.New(dErrors.CodeInvalidInput, "collection is disabled")
	}
	return nil
}

// DescribeSlot resolves a slot ref to its collection and period names for
// notification rendering.
func (s *Service) DescribeSlot(ctx context.Context, slotRef string) (string, string, error) {
	slotID, err := uuid.Parse(slotRef)
	if err != nil {
		return "", "", fmt.Errorf("parse slot ref: %w", err)
	}
	detail, err := s.catalog.FindSlot(ctx, slotID)
	if err != nil {
		return "", "", err
	}
	return detail.CollectionName, detail.PeriodName, nil
}

// MaintainerEmails resolves the maintainer addresses for a collection by
// name. Missing collections yield an empty list, not an error; notification
// fan-out is best-effort.
func (s *Service) MaintainerEmails(ctx context.Context, collectionName string) ([]string, error) {
	collection, err := s.catalog.FindCollectionByName(ctx, collectionName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return collection.MaintainerEmails, nil
}
