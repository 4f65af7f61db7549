package verify

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"adoro/internal/assignment/hash"
	"adoro/internal/assignment/models"
	"adoro/internal/assignment/token"
)

const testIterations = 1000

type VerifySuite struct {
	suite.Suite
	engine *Engine
	ctx    context.Context
}

func (s *VerifySuite) SetupTest() {
	s.engine = NewEngine(hash.NewGate(0), testIterations)
	s.ctx = context.Background()
}

func TestVerifySuite(t *testing.T) {
	suite.Run(t, new(VerifySuite))
}

func (s *VerifySuite) record(email string, algorithm models.Algorithm) *models.Assignment {
	var salt []byte
	iterations := 0
	if algorithm == models.AlgorithmPBKDF2 {
		var err error
		salt, err = hash.GenerateSalt(hash.DefaultSaltLength)
		s.Require().NoError(err)
		iterations = testIterations
	}
	digest, err := hash.Digest(email, salt, iterations, algorithm)
	s.Require().NoError(err)

	_, tokenHash, err := token.Generate(token.DefaultLength)
	s.Require().NoError(err)

	return &models.Assignment{
		ID:            uuid.New(),
		CollectionRef: "default",
		SlotRef:       "slot-1",
		EmailHash:     digest,
		EmailSalt:     salt,
		Algorithm:     algorithm,
		Iterations:    iterations,
		TokenHash:     tokenHash,
	}
}

func (s *VerifySuite) TestEmail() {
	s.Run("matches a pbkdf2 record under its own salt", func() {
		rec := s.record("anna@example.org", models.AlgorithmPBKDF2)
		ok, err := s.engine.Email(s.ctx, "anna@example.org", rec)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("matching is normalization-invariant", func() {
		rec := s.record("anna@example.org", models.AlgorithmPBKDF2)
		ok, err := s.engine.Email(s.ctx, "  ANNA@Example.org ", rec)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("rejects a different address", func() {
		rec := s.record("anna@example.org", models.AlgorithmPBKDF2)
		ok, err := s.engine.Email(s.ctx, "bert@example.org", rec)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("matches a legacy record without salt", func() {
		rec := s.record("anna@example.org", models.AlgorithmLegacy)
		ok, err := s.engine.Email(s.ctx, "Anna@example.org", rec)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("fails on a corrupted algorithm tag", func() {
		rec := s.record("anna@example.org", models.AlgorithmPBKDF2)
		rec.Algorithm = models.Algorithm("md5")
		_, err := s.engine.Email(s.ctx, "anna@example.org", rec)
		s.Require().ErrorIs(err, hash.ErrUnsupportedAlgorithm)
	})
}

func (s *VerifySuite) TestEmailAbsent() {
	s.Run("burns a digest without error", func() {
		s.Require().NoError(s.engine.EmailAbsent(s.ctx, "anna@example.org"))
	})

	s.Run("respects context cancellation", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		s.Require().ErrorIs(s.engine.EmailAbsent(ctx, "anna@example.org"), context.Canceled)
	})
}

func (s *VerifySuite) TestToken() {
	plaintext, tokenHash, err := token.Generate(token.DefaultLength)
	s.Require().NoError(err)
	rec := &models.Assignment{TokenHash: tokenHash}

	s.Run("accepts the committed token", func() {
		s.True(s.engine.Token(plaintext, rec))
	})

	s.Run("rejects any other token", func() {
		s.False(s.engine.Token("not-the-token", rec))
	})
}
