// Package service orchestrates the registration and deletion transactions.
// It owns the privacy rules: plaintext emails and tokens exist only on the
// stack of the operation that received them.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"adoro/internal/assignment/hash"
	"adoro/internal/assignment/metrics"
	"adoro/internal/assignment/store"
	"adoro/internal/assignment/verify"
	"adoro/internal/audit"
	"adoro/internal/notify"
	dErrors "adoro/pkg/domain-errors"
)

// deletionFailureMessage is the single user-facing message for every deletion
// failure. Not-found and mismatch stay distinct internally but must be
// indistinguishable to callers so tokens cannot be enumerated.
const deletionFailureMessage = "link invalid or already used"

var (
	// ErrDuplicateRegistration is returned when the slot already holds a
	// record for the same normalized email.
	ErrDuplicateRegistration = dErrors.New(dErrors.CodeConflict, "already registered for this slot")

	// ErrTokenNotFound is returned when no record matches a deletion token
	// (including tokens already spent by a concurrent deletion).
	ErrTokenNotFound = dErrors.New(dErrors.CodeNotFound, deletionFailureMessage)

	// ErrTokenMismatch is returned when a record exists but the presented
	// credential does not verify. Same external shape as ErrTokenNotFound.
	ErrTokenMismatch = dErrors.New(dErrors.CodeNotFound, deletionFailureMessage)
)

// Config carries the hashing and link parameters for new registrations.
type Config struct {
	Iterations  int
	SaltLength  int
	TokenLength int
	LookupKey   []byte
	BaseURL     string
}

// ScheduleDirectory resolves opaque slot refs to human-readable names for
// notifications. The service treats refs as opaque everywhere else.
type ScheduleDirectory interface {
	DescribeSlot(ctx context.Context, slotRef string) (collectionName, periodName string, err error)
}

// Service implements the registration and deletion transactions.
type Service struct {
	records  store.Store
	gate     *hash.Gate
	engine   *verify.Engine
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier notify.Notifier
	audit    audit.Publisher
	schedule ScheduleDirectory
	tracer   trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics attaches the feature metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier attaches an outbound mail notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithAuditPublisher attaches the audit event publisher.
func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.audit = p
		}
	}
}

// WithScheduleDirectory attaches slot name resolution for notifications.
func WithScheduleDirectory(d ScheduleDirectory) Option {
	return func(s *Service) { s.schedule = d }
}

// New constructs the assignment service.
func New(records store.Store, logger *slog.Logger, cfg Config, opts ...Option) *Service {
	if cfg.Iterations <= 0 {
		cfg.Iterations = hash.DefaultIterations
	}
	if cfg.SaltLength <= 0 {
		cfg.SaltLength = hash.DefaultSaltLength
	}
	if logger == nil {
		logger = slog.Default()
	}

	gate := hash.NewGate(0)
	s := &Service{
		records:  records,
		gate:     gate,
		engine:   verify.NewEngine(gate, cfg.Iterations),
		cfg:      cfg,
		logger:   logger,
		notifier: notify.Nop{},
		audit:    audit.Nop{},
		tracer:   otel.Tracer("adoro/assignment"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// describeSlot falls back to the raw refs when no directory is wired.
func (s *Service) describeSlot(ctx context.Context, collectionRef, slotRef string) (string, string) {
	if s.schedule != nil {
		if collection, period, err := s.schedule.DescribeSlot(ctx, slotRef); err == nil {
			return collection, period
		}
	}
	return collectionRef, slotRef
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
