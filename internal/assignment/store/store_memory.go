package store

import (
	"bytes"
	"context"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"

	"adoro/internal/assignment/models"
	"adoro/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded Store for tests and single-node development.
// It enforces the same uniqueness constraints the PostgreSQL schema declares.
type InMemory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*models.Assignment
	// byLookup mirrors the (slot_ref, email_lookup) unique index.
	byLookup map[string]uuid.UUID
	// byEmailHash mirrors the (slot_ref, email_hash) unique index; legacy
	// digests are deterministic so for those rows this index alone suffices.
	byEmailHash map[string]uuid.UUID
	byTokenHash map[string]uuid.UUID
}

// NewInMemory builds an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		records:     make(map[uuid.UUID]*models.Assignment),
		byLookup:    make(map[string]uuid.UUID),
		byEmailHash: make(map[string]uuid.UUID),
		byTokenHash: make(map[string]uuid.UUID),
	}
}

func slotKey(slotRef string, digest []byte) string {
	return slotRef + "\x00" + hex.EncodeToString(digest)
}

func (s *InMemory) Create(ctx context.Context, rec *models.Assignment) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return sentinel.ErrConflict
	}
	if len(rec.EmailLookup) > 0 {
		if _, exists := s.byLookup[slotKey(rec.SlotRef, rec.EmailLookup)]; exists {
			return sentinel.ErrConflict
		}
	}
	if _, exists := s.byEmailHash[slotKey(rec.SlotRef, rec.EmailHash)]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byTokenHash[hex.EncodeToString(rec.TokenHash)]; exists {
		return sentinel.ErrConflict
	}

	stored := rec.Clone()
	s.records[stored.ID] = stored
	s.index(stored)
	return nil
}

// index must be called with the write lock held.
func (s *InMemory) index(rec *models.Assignment) {
	if len(rec.EmailLookup) > 0 {
		s.byLookup[slotKey(rec.SlotRef, rec.EmailLookup)] = rec.ID
	}
	s.byEmailHash[slotKey(rec.SlotRef, rec.EmailHash)] = rec.ID
	s.byTokenHash[hex.EncodeToString(rec.TokenHash)] = rec.ID
}

// unindex must be called with the write lock held.
func (s *InMemory) unindex(rec *models.Assignment) {
	if len(rec.EmailLookup) > 0 {
		delete(s.byLookup, slotKey(rec.SlotRef, rec.EmailLookup))
	}
	delete(s.byEmailHash, slotKey(rec.SlotRef, rec.EmailHash))
	delete(s.byTokenHash, hex.EncodeToString(rec.TokenHash))
}

func (s *InMemory) FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemory) FindByTokenHash(ctx context.Context, tokenHash []byte) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTokenHash[hex.EncodeToString(tokenHash)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.records[id].Clone(), nil
}

func (s *InMemory) DeleteMatching(ctx context.Context, id uuid.UUID, tokenHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || !bytes.Equal(rec.TokenHash, tokenHash) {
		return sentinel.ErrNotFound
	}
	s.unindex(rec)
	delete(s.records, id)
	return nil
}

func (s *InMemory) UpgradeAlgorithm(ctx context.Context, id uuid.UUID, emailHash, emailSalt, emailLookup []byte, iterations int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.Algorithm != models.AlgorithmLegacy {
		// A concurrent verified read already upgraded it.
		return nil
	}

	s.unindex(rec)
	rec.EmailHash = append([]byte(nil), emailHash...)
	rec.EmailSalt = append([]byte(nil), emailSalt...)
	rec.EmailLookup = append([]byte(nil), emailLookup...)
	rec.Algorithm = models.AlgorithmPBKDF2
	rec.Iterations = iterations
	s.index(rec)
	return nil
}

func (s *InMemory) CountForSlot(ctx context.Context, slotRef string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.records {
		if rec.SlotRef == slotRef {
			count++
		}
	}
	return count, nil
}
