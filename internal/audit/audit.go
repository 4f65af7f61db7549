// Package audit emits operational events for registration lifecycle changes.
// Events carry only opaque references and digest metadata, never personal
// data, so the stream is safe to retain indefinitely.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Actions recorded on the audit stream.
const (
	ActionRegistered    = "assignment.registered"
	ActionDeleted       = "assignment.deleted"
	ActionLegacyUpgrade = "assignment.legacy_upgraded"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"action"`
	RecordID      uuid.UUID `json:"record_id"`
	CollectionRef string    `json:"collection_ref"`
	SlotRef       string    `json:"slot_ref"`
	Algorithm     string    `json:"algorithm,omitempty"`
}

// Publisher delivers audit events. Emission is fail-open: callers log
// failures but never abort the business operation.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close()
}

// Nop is the default Publisher when no brokers are configured.
type Nop struct{}

func (Nop) Emit(ctx context.Context, event Event) error { return nil }
func (Nop) Close()                                      {}
