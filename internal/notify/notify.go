// Package notify delivers registration and cancellation mail. Delivery is
// best-effort: the registration and deletion transactions never fail because
// mail could not be sent.
package notify

import "context"

// Registration describes a completed registration. Name, Email, and Phone
// come straight from the request and exist only for the lifetime of this
// notification; nothing here is persisted.
type Registration struct {
	Name           string
	Email          string
	Phone          string
	CollectionName string
	PeriodName     string
	DeletionLink   string
}

// Cancellation describes a completed deletion. Email is the address the
// registrant confirmed with, or empty for a token-only cancellation.
type Cancellation struct {
	Email          string
	CollectionName string
	PeriodName     string
}

// Notifier delivers outbound mail for registration lifecycle events.
type Notifier interface {
	RegistrationConfirmed(ctx context.Context, reg Registration) error
	RegistrationCancelled(ctx context.Context, c Cancellation) error
}

// Nop is the default Notifier when no SMTP host is configured.
type Nop struct{}

func (Nop) RegistrationConfirmed(ctx context.Context, reg Registration) error { return nil }
func (Nop) RegistrationCancelled(ctx context.Context, c Cancellation) error   { return nil }
