package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Collection groups the periods open for registration, e.g. one church's
// adoration week. Languages lists the UI languages the collection is offered
// in; MaintainerEmails receives registration traffic for the collection.
type Collection struct {
	ID               uuid.UUID
	Name             string
	Description      string
	Enabled          bool
	Languages        []string
	MaintainerEmails []string
}

// Validate enforces collection invariants before a write.
func (c *Collection) Validate() error {
	if c.ID == uuid.Nil {
		return fmt.Errorf("collection id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("collection must have at least one language")
	}
	if c.Enabled && len(c.MaintainerEmails) == 0 {
		return fmt.Errorf("enabled collection must have at least one maintainer")
	}
	return nil
}

// AvailableIn reports whether the collection is offered in the language.
func (c *Collection) AvailableIn(lang string) bool {
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Period is a recurring time window, e.g. "Monday 14:00-15:00".
type Period struct {
	ID          uuid.UUID
	Name        string
	Description string
}

// Slot is a period offered within a collection; its ID is the opaque
// slot_ref the assignment subsystem stores on records.
type Slot struct {
	ID           uuid.UUID
	CollectionID uuid.UUID
	PeriodID     uuid.UUID
}

// SlotDetail is the denormalized view used by listings and notifications.
type SlotDetail struct {
	SlotID            uuid.UUID
	CollectionID      uuid.UUID
	CollectionName    string
	CollectionEnabled bool
	PeriodName        string
	PeriodDescription string
}
