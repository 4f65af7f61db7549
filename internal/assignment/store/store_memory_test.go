package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"adoro/internal/assignment/hash"
	"adoro/internal/assignment/models"
	"adoro/internal/assignment/token"
	"adoro/pkg/platform/sentinel"
)

const testIterations = 1000

var lookupKey = []byte("test-lookup-key")

type AssignmentStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *AssignmentStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestAssignmentStoreSuite(t *testing.T) {
	suite.Run(t, new(AssignmentStoreSuite))
}

// newRecord builds a valid pbkdf2 record for email on slotRef, returning the
// record and the plaintext deletion token.
func (s *AssignmentStoreSuite) newRecord(slotRef, email string) (*models.Assignment, string) {
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
		CreatedAt:     time.Now(),
	}, plaintext
}

func (s *AssignmentStoreSuite) newLegacyRecord(slotRef, email string) *models.Assignment {
	digest, err := hash.Digest(email, nil, 0, models.AlgorithmLegacy)
	s.Require().NoError(err)
	_, tokenHash, err := token.Generate(token.DefaultLength)
	s.Require().NoError(err)

	return &models.Assignment{
		ID:            uuid.New(),
		CollectionRef: "default",
		SlotRef:       slotRef,
		EmailHash:     digest,
		Algorithm:     models.AlgorithmLegacy,
		TokenHash:     tokenHash,
		CreatedAt:     time.Now(),
	}
}

func (s *AssignmentStoreSuite) TestCreateAndLookups() {
	s.Run("creates and finds by id", func() {
		rec, _ := s.newRecord("slot-1", "anna@example.org")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		found, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(rec.EmailHash, found.EmailHash)
		s.Equal(models.AlgorithmPBKDF2, found.Algorithm)
	})

	s.Run("finds by token digest", func() {
		rec, plaintext := s.newRecord("slot-1", "bert@example.org")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		found, err := s.store.FindByTokenHash(s.ctx, token.Digest(plaintext))
		s.Require().NoError(err)
		s.Equal(rec.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound for unknown token digest", func() {
		_, err := s.store.FindByTokenHash(s.ctx, token.Digest("never-issued"))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects an invalid record before indexing", func() {
		rec, _ := s.newRecord("slot-1", "carl@example.org")
		rec.SlotRef = ""
		s.Require().Error(s.store.Create(s.ctx, rec))
	})

	s.Run("hands out copies, not aliases", func() {
		rec, _ := s.newRecord("slot-2", "dora@example.org")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		found, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		found.EmailHash[0] ^= 0xff

		again, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(rec.EmailHash, again.EmailHash)
	})
}

func (s *AssignmentStoreSuite) TestUniqueness() {
	s.Run("rejects the same email twice on one slot", func() {
		first, _ := s.newRecord("slot-1", "anna@example.org")
		second, _ := s.newRecord("slot-1", "anna@example.org")

		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrConflict)
	})

	s.Run("allows the same email on a different slot", func() {
		first, _ := s.newRecord("slot-1", "bert@example.org")
		second, _ := s.newRecord("slot-2", "bert@example.org")

		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().NoError(s.store.Create(s.ctx, second))
	})

	s.Run("legacy rows without lookup collide on the raw digest", func() {
		first := s.newLegacyRecord("slot-3", "carl@example.org")
		second := s.newLegacyRecord("slot-3", "carl@example.org")

		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrConflict)
	})

	s.Run("only one of two concurrent registrations wins", func() {
		const attempts = 16
		results := make(chan error, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			rec, _ := s.newRecord("slot-race", "eve@example.org")
			wg.Add(1)
			go func(rec *models.Assignment) {
				defer wg.Done()
				results <- s.store.Create(s.ctx, rec)
			}(rec)
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
			} else {
				s.Require().ErrorIs(err, sentinel.ErrConflict)
			}
		}
		s.Equal(1, succeeded)
	})
}

func (s *AssignmentStoreSuite) TestDeleteMatching() {
	s.Run("deletes when id and token digest match", func() {
		rec, plaintext := s.newRecord("slot-1", "anna@example.org")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		s.Require().NoError(s.store.DeleteMatching(s.ctx, rec.ID, token.Digest(plaintext)))

		_, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("refuses a mismatched token digest", func() {
		rec, _ := s.newRecord("slot-1", "bert@example.org")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		err := s.store.DeleteMatching(s.ctx, rec.ID, token.Digest("wrong"))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
	})

	s.Run("frees the slot for re-registration", func() {
		rec, plaintext := s.newRecord("slot-4", "carl@example.org")
		s.Require().NoError(s.store.Create(s.ctx, rec))
		s.Require().NoError(s.store.DeleteMatching(s.ctx, rec.ID, token.Digest(plaintext)))

		again, _ := s.newRecord("slot-4", "carl@example.org")
		s.Require().NoError(s.store.Create(s.ctx, again))
	})

	s.Run("exactly one of many concurrent deletes succeeds", func() {
		rec, plaintext := s.newRecord("slot-5", "dora@example.org")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		const attempts = 16
		results := make(chan error, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
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
	})
}

func (s *AssignmentStoreSuite) TestUpgradeAlgorithm() {
	s.Run("rewrites a legacy record in place", func() {
		rec := s.newLegacyRecord("slot-1", "anna@example.org")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		salt, err := hash.GenerateSalt(hash.DefaultSaltLength)
		s.Require().NoError(err)
		digest, err := hash.Digest("anna@example.org", salt, testIterations, models.AlgorithmPBKDF2)
		s.Require().NoError(err)
		lookup := hash.LookupDigest(lookupKey, rec.SlotRef, "anna@example.org")

		s.Require().NoError(s.store.UpgradeAlgorithm(s.ctx, rec.ID, digest, salt, lookup, testIterations))

		found, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(models.AlgorithmPBKDF2, found.Algorithm)
		s.Equal(testIterations, found.Iterations)
		s.Equal(digest, found.EmailHash)
		s.Equal(lookup, found.EmailLookup)
	})

	s.Run("upgraded record still resolves by its token digest", func() {
		digest, err := hash.Digest("bert@example.org", nil, 0, models.AlgorithmLegacy)
		s.Require().NoError(err)
		plaintext, tokenHash, err := token.Generate(token.DefaultLength)
		s.Require().NoError(err)
		rec := &models.Assignment{
			ID:        uuid.New(),
			SlotRef:   "slot-2",
			EmailHash: digest,
			Algorithm: models.AlgorithmLegacy,
			TokenHash: tokenHash,
			CreatedAt: time.Now(),
		}
		s.Require().NoError(s.store.Create(s.ctx, rec))

		salt, err := hash.GenerateSalt(hash.DefaultSaltLength)
		s.Require().NoError(err)
		newDigest, err := hash.Digest("bert@example.org", salt, testIterations, models.AlgorithmPBKDF2)
		s.Require().NoError(err)
		lookup := hash.LookupDigest(lookupKey, rec.SlotRef, "bert@example.org")
		s.Require().NoError(s.store.UpgradeAlgorithm(s.ctx, rec.ID, newDigest, salt, lookup, testIterations))

		found, err := s.store.FindByTokenHash(s.ctx, token.Digest(plaintext))
		s.Require().NoError(err)
		s.Equal(rec.ID, found.ID)
	})

	s.Run("leaves an already-upgraded record untouched", func() {
		rec, _ := s.newRecord("slot-3", "carl@example.org")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		err := s.store.UpgradeAlgorithm(s.ctx, rec.ID, []byte("other"), []byte("salt"), []byte("lookup"), testIterations)
		s.Require().NoError(err)

		found, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(rec.EmailHash, found.EmailHash)
	})

	s.Run("returns ErrNotFound for an unknown id", func() {
		err := s.store.UpgradeAlgorithm(s.ctx, uuid.New(), []byte("h"), []byte("s"), []byte("l"), testIterations)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *AssignmentStoreSuite) TestCountForSlot() {
	s.Run("counts only the requested slot", func() {
		a, _ := s.newRecord("slot-1", "anna@example.org")
		b, _ := s.newRecord("slot-1", "bert@example.org")
		c, _ := s.newRecord("slot-2", "carl@example.org")
		for _, rec := range []*models.Assignment{a, b, c} {
			s.Require().NoError(s.store.Create(s.ctx, rec))
		}

		count, err := s.store.CountForSlot(s.ctx, "slot-1")
		s.Require().NoError(err)
		s.Equal(2, count)
	})

	s.Run("reports zero for an empty slot", func() {
		count, err := s.store.CountForSlot(s.ctx, "slot-empty")
		s.Require().NoError(err)
		s.Equal(0, count)
	})
}
