package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Algorithm tags the hashing generation a record was written under. Records
// are self-describing: verification always uses the record's own tag and
// iteration count, never the process-wide defaults.
type Algorithm string

const (
	// AlgorithmLegacy is a single-pass unsalted digest. Kept only so records
	// created before the PBKDF2 migration still verify; never used for new
	// records.
	AlgorithmLegacy Algorithm = "legacy"
	// AlgorithmPBKDF2 is the current generation: salted, iterated PBKDF2.
	AlgorithmPBKDF2 Algorithm = "pbkdf2"
)

// Valid reports whether a is one of the known algorithm tags.
func (a Algorithm) Valid() bool {
	return a == AlgorithmLegacy || a == AlgorithmPBKDF2
}

// Assignment is the persisted commitment for one registration: digests of the
// registrant's email and deletion token, never the plaintexts. CollectionRef
// and SlotRef are opaque keys owned by the schedule subsystem.
type Assignment struct {
	ID            uuid.UUID
	CollectionRef string
	SlotRef       string
	EmailHash     []byte
	EmailSalt     []byte
	// EmailLookup is a deterministic keyed digest of (slot, email) used only
	// for duplicate detection. The salted EmailHash differs between records
	// for the same email, so uniqueness needs a stable column. Empty on
	// legacy rows; backfilled when they are upgraded.
	EmailLookup []byte
	Algorithm   Algorithm
	Iterations  int
	TokenHash   []byte
	CreatedAt   time.Time
}

// Validate enforces the record invariants before a write is attempted.
func (a *Assignment) Validate() error {
	if a.ID == uuid.Nil {
		return fmt.Errorf("assignment id is required")
	}
	if a.SlotRef == "" {
		return fmt.Errorf("slot ref is required")
	}
	if !a.Algorithm.Valid() {
		return fmt.Errorf("unknown algorithm %q", a.Algorithm)
	}
	if len(a.EmailHash) == 0 {
		return fmt.Errorf("email hash is required")
	}
	if len(a.TokenHash) == 0 {
		return fmt.Errorf("token hash is required")
	}
	if a.Algorithm == AlgorithmPBKDF2 {
		if len(a.EmailSalt) == 0 {
			return fmt.Errorf("email salt is required for pbkdf2 records")
		}
		if a.Iterations <= 0 {
			return fmt.Errorf("iterations must be positive for pbkdf2 records")
		}
		if len(a.EmailLookup) == 0 {
			return fmt.Errorf("email lookup digest is required for pbkdf2 records")
		}
	}
	return nil
}

// Clone returns a deep copy so in-memory stores never hand out aliased slices.
func (a *Assignment) Clone() *Assignment {
	if a == nil {
		return nil
	}
	cp := *a
	cp.EmailHash = append([]byte(nil), a.EmailHash...)
	cp.EmailSalt = append([]byte(nil), a.EmailSalt...)
	cp.EmailLookup = append([]byte(nil), a.EmailLookup...)
	cp.TokenHash = append([]byte(nil), a.TokenHash...)
	return &cp
}
