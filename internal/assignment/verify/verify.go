// Package verify decides whether a claimed email or token matches a stored
// assignment record, in constant time and without leaking record existence.
package verify

import (
	"context"
	"crypto/subtle"

	"adoro/internal/assignment/hash"
	"adoro/internal/assignment/models"
	"adoro/internal/assignment/token"
)

// dummySalt is the fixed salt used when burning a digest for a record that
// does not exist. The value is irrelevant; only the cost matters.
var dummySalt = []byte("adoro.verify.dummy-salt.")

// Engine verifies claims against records using each record's own algorithm
// generation. All PBKDF2 work runs behind the shared gate.
type Engine struct {
	gate       *hash.Gate
	iterations int
}

// NewEngine builds an engine. iterations is the current default cost, used
// only to size the dummy computation for absent records.
func NewEngine(gate *hash.Gate, iterations int) *Engine {
	if iterations <= 0 {
		iterations = hash.DefaultIterations
	}
	return &Engine{gate: gate, iterations: iterations}
}

// Email reports whether claimed hashes to the record's stored digest under
// the record's own algorithm, salt, and iteration count. The comparison is
// constant time.
func (e *Engine) Email(ctx context.Context, claimed string, rec *models.Assignment) (bool, error) {
	digest, err := e.gate.Digest(ctx, claimed, rec.EmailSalt, rec.Iterations, rec.Algorithm)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(digest, rec.EmailHash) == 1, nil
}

// EmailAbsent burns a digest of equivalent cost against a dummy salt. Called
// when the record lookup failed, so a missing record takes as long to reject
// as a real mismatch and existence cannot be probed through timing.
func (e *Engine) EmailAbsent(ctx context.Context, claimed string) error {
	_, err := e.gate.Digest(ctx, claimed, dummySalt, e.iterations, models.AlgorithmPBKDF2)
	return err
}

// Token reports whether candidate matches the record's stored token digest.
func (e *Engine) Token(candidate string, rec *models.Assignment) bool {
	return token.Verify(candidate, rec.TokenHash)
}
