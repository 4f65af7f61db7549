//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"adoro/internal/assignment/hash"
	"adoro/internal/assignment/models"
	"adoro/internal/assignment/store"
	"adoro/internal/assignment/token"
	"adoro/pkg/platform/sentinel"
	"adoro/pkg/testutil/containers"
)

const testIterations = 1000

var lookupKey = []byte("test-lookup-key")

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), store.Schema)
	s.store = store.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "assignments"))
}

func (s *PostgresStoreSuite) newRecord(slotRef, email string) (*models.Assignment, string) {
	salt, err := hash.GenerateSalt(hash.DefaultSaltLength)
	s.Require().NoError(err)
	digest, err := hash.Digest(email, salt, testIterations, models.AlgorithmPBKDF2)
	s.Require().NoError(err)
	plaintext, tokenHash, err := token.Generate(token.DefaultLength)
	s.Require().NoError(err)

	return &models.Assignment{
		ID:            uuid.New(),
		CollectionRef: "default",
		SlotRef:       slotRef,
		EmailHash:     digest,
		EmailSalt:     salt,
		EmailLookup:   hash.LookupDigest(lookupKey, slotRef, email),
		Algorithm:     models.AlgorithmPBKDF2,
		Iterations:    testIterations,
		TokenHash:     tokenHash,
		CreatedAt:     time.Now().UTC(),
	}, plaintext
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	rec, plaintext := s.newRecord("slot-1", "anna@example.org")
	s.Require().NoError(s.store.Create(s.ctx, rec))

	byID, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.EmailHash, byID.EmailHash)
	s.Equal(rec.EmailLookup, byID.EmailLookup)
	s.Equal(models.AlgorithmPBKDF2, byID.Algorithm)
	s.Equal(testIterations, byID.Iterations)

	byToken, err := s.store.FindByTokenHash(s.ctx, token.Digest(plaintext))
	s.Require().NoError(err)
	s.Equal(rec.ID, byToken.ID)
}

func (s *PostgresStoreSuite) TestUniqueLookupIndex() {
	first, _ := s.newRecord("slot-1", "anna@example.org")
	s.Require().NoError(s.store.Create(s.ctx, first))

	// Fresh salt means a different email_hash, but the lookup digest collides.
	second, _ := s.newRecord("slot-1", "anna@example.org")
	s.Require().ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrConflict)

	// Same email on another slot is fine.
	third, _ := s.newRecord("slot-2", "anna@example.org")
	s.Require().NoError(s.store.Create(s.ctx, third))
}

func (s *PostgresStoreSuite) TestLegacyRowsSkipLookupIndex() {
	// Legacy rows store an empty lookup; the partial index must not treat two
	// empty lookups as a collision across different emails.
	mk := func(email string) *models.Assignment {
		digest, err := hash.Digest(email, nil, 0, models.AlgorithmLegacy)
		s.Require().NoError(err)
		_, tokenHash, err := token.Generate(token.DefaultLength)
		s.Require().NoError(err)
		return &models.Assignment{
			ID:        uuid.New(),
			SlotRef:   "slot-legacy",
			EmailHash: digest,
			Algorithm: models.AlgorithmLegacy,
			TokenHash: tokenHash,
			CreatedAt: time.Now().UTC(),
		}
	}

	s.Require().NoError(s.store.Create(s.ctx, mk("anna@example.org")))
	s.Require().NoError(s.store.Create(s.ctx, mk("bert@example.org")))

	// Legacy digests are deterministic, so the email_hash constraint still
	// catches a true duplicate.
	s.Require().ErrorIs(s.store.Create(s.ctx, mk("anna@example.org")), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestConcurrentDeletes() {
	rec, plaintext := s.newRecord("slot-1", "anna@example.org")
	s.Require().NoError(s.store.Create(s.ctx, rec))

	const goroutines = 10
	results := make(chan error, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.store.DeleteMatching(s.ctx, rec.ID, token.Digest(plaintext))
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.Require().ErrorIs(err, sentinel.ErrNotFound)
		}
	}
	s.Equal(1, succeeded)
}

func (s *PostgresStoreSuite) TestDeleteMatchingConditions() {
	rec, _ := s.newRecord("slot-1", "anna@example.org")
	s.Require().NoError(s.store.Create(s.ctx, rec))

	s.Require().ErrorIs(
		s.store.DeleteMatching(s.ctx, rec.ID, token.Digest("wrong")),
		sentinel.ErrNotFound,
	)
	s.Require().ErrorIs(
		s.store.DeleteMatching(s.ctx, uuid.New(), rec.TokenHash),
		sentinel.ErrNotFound,
	)

	_, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestUpgradeAlgorithm() {
	digest, err := hash.Digest("anna@example.org", nil, 0, models.AlgorithmLegacy)
	s.Require().NoError(err)
	_, tokenHash, err := token.Generate(token.DefaultLength)
	s.Require().NoError(err)
	rec := &models.Assignment{
		ID:        uuid.New(),
		SlotRef:   "slot-1",
		EmailHash: digest,
		Algorithm: models.AlgorithmLegacy,
		TokenHash: tokenHash,
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.Create(s.ctx, rec))

	salt, err := hash.GenerateSalt(hash.DefaultSaltLength)
	s.Require().NoError(err)
	newDigest, err := hash.Digest("anna@example.org", salt, testIterations, models.AlgorithmPBKDF2)
	s.Require().NoError(err)
	lookup := hash.LookupDigest(lookupKey, rec.SlotRef, "anna@example.org")

	s.Require().NoError(s.store.UpgradeAlgorithm(s.ctx, rec.ID, newDigest, salt, lookup, testIterations))

	upgraded, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(models.AlgorithmPBKDF2, upgraded.Algorithm)
	s.Equal(lookup, upgraded.EmailLookup)

	// Second upgrade attempt is a no-op, not an error.
	s.Require().NoError(s.store.UpgradeAlgorithm(s.ctx, rec.ID, newDigest, salt, lookup, testIterations))
}

func (s *PostgresStoreSuite) TestCountForSlot() {
	for _, email := range []string{"anna@example.org", "bert@example.org"} {
		rec, _ := s.newRecord("slot-count", email)
		s.Require().NoError(s.store.Create(s.ctx, rec))
	}
	other, _ := s.newRecord("slot-other", "carl@example.org")
	s.Require().NoError(s.store.Create(s.ctx, other))

	count, err := s.store.CountForSlot(s.ctx, "slot-count")
	s.Require().NoError(err)
	s.Equal(2, count)
}
