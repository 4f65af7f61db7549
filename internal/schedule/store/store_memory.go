package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"adoro/internal/schedule/models"
	"adoro/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded catalog store for tests and single-node
// development.
type InMemory struct {
	mu          sync.RWMutex
	collections map[uuid.UUID]*models.Collection
	periods     map[uuid.UUID]*models.Period
	slots       map[uuid.UUID]*models.Slot
}

// NewInMemory builds an empty catalog store.
func NewInMemory() *InMemory {
	return &InMemory{
		collections: make(map[uuid.UUID]*models.Collection),
		periods:     make(map[uuid.UUID]*models.Period),
		slots:       make(map[uuid.UUID]*models.Slot),
	}
}

func (s *InMemory) CreateCollection(ctx context.Context, c *models.Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.collections {
		if strings.EqualFold(existing.Name, c.Name) {
			return sentinel.ErrConflict
		}
	}
	s.collections[c.ID] = cloneCollection(c)
	return nil
}

func (s *InMemory) CreatePeriod(ctx context.Context, p *models.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.periods {
		if strings.EqualFold(existing.Name, p.Name) {
			return sentinel.ErrConflict
		}
	}
	cp := *p
	s.periods[p.ID] = &cp
	return nil
}

func (s *InMemory) CreateSlot(ctx context.Context, slot *models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[slot.CollectionID]; !ok {
		return sentinel.ErrNotFound
	}
	if _, ok := s.periods[slot.PeriodID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.slots {
		if existing.CollectionID == slot.CollectionID && existing.PeriodID == slot.PeriodID {
			return sentinel.ErrConflict
		}
	}
	cp := *slot
	s.slots[slot.ID] = &cp
	return nil
}

func (s *InMemory) ListCollections(ctx context.Context) ([]*models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Collection, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, cloneCollection(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) FindCollection(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCollection(c), nil
}

func (s *InMemory) FindCollectionByName(ctx context.Context, name string) (*models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.collections {
		if strings.EqualFold(c.Name, name) {
			return cloneCollection(c), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListSlots(ctx context.Context, collectionID uuid.UUID) ([]*models.SlotDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.collections[collectionID]; !ok {
		return nil, sentinel.ErrNotFound
	}

	var out []*models.SlotDetail
	for _, slot := range s.slots {
		if slot.CollectionID != collectionID {
			continue
		}
		out = append(out, s.detail(slot))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodName < out[j].PeriodName })
	return out, nil
}

func (s *InMemory) FindSlot(ctx context.Context, slotID uuid.UUID) (*models.SlotDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[slotID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.detail(slot), nil
}

// detail must be called with at least the read lock held.
func (s *InMemory) detail(slot *models.Slot) *models.SlotDetail {
	collection := s.collections[slot.CollectionID]
	period := s.periods[slot.PeriodID]
	return &models.SlotDetail{
		SlotID:            slot.ID,
		CollectionID:      collection.ID,
		CollectionName:    collection.Name,
		CollectionEnabled: collection.Enabled,
		PeriodName:        period.Name,
		PeriodDescription: period.Description,
	}
}

func cloneCollection(c *models.Collection) *models.Collection {
	cp := *c
	cp.Languages = append([]string(nil), c.Languages...)
	cp.MaintainerEmails = append([]string(nil), c.MaintainerEmails...)
	return &cp
}
