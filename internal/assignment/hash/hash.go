// Package hash computes the one-way email digests stored on assignment
// records. Two generations exist: the current salted PBKDF2 construction and
// the unsalted single-pass legacy digest kept for pre-migration records.
package hash

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"adoro/internal/assignment/models"
)

const (
	// DefaultIterations is the PBKDF2 cost for new records. Stored per record,
	// so it can be raised without invalidating anything already written.
	DefaultIterations = 320000
	// DefaultSaltLength is the per-record salt size in bytes.
	DefaultSaltLength = 16
)

var (
	// ErrUnsupportedAlgorithm means a stored record carries an algorithm tag
	// this build does not know. Treated as data corruption, never user-facing.
	ErrUnsupportedAlgorithm = errors.New("unsupported hashing algorithm")
	// ErrEntropySource means the secure random source failed. Callers must
	// abort rather than fall back to weaker randomness.
	ErrEntropySource = errors.New("entropy source unavailable")
)

// Normalize maps textually different but semantically identical addresses to
// one canonical form before hashing.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Digest computes the one-way digest of email under the given algorithm
// generation. The email is normalized first. Runtime depends only on the
// iteration count and input length, never on where inputs differ, so results
// are safe to feed into a constant-time comparison.
func Digest(email string, salt []byte, iterations int, algorithm models.Algorithm) ([]byte, error) {
	normalized := Normalize(email)

	switch algorithm {
	case models.AlgorithmPBKDF2:
		return pbkdf2.Key([]byte(normalized), salt, iterations, sha256.Size, sha256.New), nil
	case models.AlgorithmLegacy:
		sum := sha256.Sum256([]byte(normalized))
		return sum[:], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

// GenerateSalt draws length bytes from the secure random source.
func GenerateSalt(length int) ([]byte, error) {
	if length <= 0 {
		length = DefaultSaltLength
	}
	salt := make([]byte, length)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntropySource, err)
	}
	return salt, nil
}

// LookupDigest computes the deterministic keyed digest used for duplicate
// detection: HMAC-SHA256 over slotRef and the normalized email under a
// server-side key. Unlike the salted email digest it is stable per
// (slot, email), which is what lets the store enforce uniqueness at write time.
func LookupDigest(key []byte, slotRef, email string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(slotRef))
	mac.Write([]byte{0})
	mac.Write([]byte(Normalize(email)))
	return mac.Sum(nil)
}
