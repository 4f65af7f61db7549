// Package token generates and verifies the single-use deletion tokens mailed
// to registrants. Only the token's digest is ever persisted; the plaintext
// exists exactly once, in the cancellation link handed back at registration.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"adoro/internal/assignment/hash"
)

// DefaultLength is the number of random bytes in a token (256 bits).
const DefaultLength = 32

// Generate draws a high-entropy token and returns its URL-safe plaintext
// together with the digest to persist. Tokens are high-entropy and not
// attacker-chosen, so a fixed-cost digest suffices; the iterated construction
// is reserved for emails.
func Generate(length int) (plaintext string, digest []byte, err error) {
	if length <= 0 {
		length = DefaultLength
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("%w: %v", hash.ErrEntropySource, err)
	}
	plaintext = base64.RawURLEncoding.EncodeToString(buf)
	return plaintext, Digest(plaintext), nil
}

// Digest computes the deterministic one-way digest of a token.
func Digest(candidate string) []byte {
	sum := sha256.Sum256([]byte(candidate))
	return sum[:]
}

// Verify recomputes the candidate's digest and compares it to the stored hash
// in constant time regardless of where the bytes first differ.
func Verify(candidate string, storedHash []byte) bool {
	return subtle.ConstantTimeCompare(Digest(candidate), storedHash) == 1
}
