package hash

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"adoro/internal/assignment/models"
)

// Gate bounds concurrent PBKDF2 work. Each digest is a deliberately expensive
// CPU-bound unit; without a bound, a burst of registrations would stampede
// every core and starve request handling.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate builds a gate admitting at most n concurrent digests; n <= 0 uses
// GOMAXPROCS.
func NewGate(n int64) *Gate {
	if n <= 0 {
		n = int64(runtime.GOMAXPROCS(0))
	}
	return &Gate{sem: semaphore.NewWeighted(n)}
}

// Digest computes Digest behind the gate. Acquire respects ctx, so a caller's
// request timeout aborts before any hashing work starts.
func (g *Gate) Digest(ctx context.Context, email string, salt []byte, iterations int, algorithm models.Algorithm) ([]byte, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)
	return Digest(email, salt, iterations, algorithm)
}
