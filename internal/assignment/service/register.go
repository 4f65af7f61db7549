package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"adoro/internal/assignment/hash"
	"adoro/internal/assignment/models"
	"adoro/internal/assignment/token"
	"adoro/internal/audit"
	"adoro/internal/notify"
	dErrors "adoro/pkg/domain-errors"
	"adoro/pkg/platform/sentinel"
	"adoro/pkg/requestcontext"
)

// RegisterRequest carries one registration. Name and Phone are forwarded to
// the notifier and then discarded; only digests of Email are persisted.
type RegisterRequest struct {
	CollectionRef string
	SlotRef       string
	Email         string
	Name          string
	Phone         string
}

// Registration is the outcome of a successful registration. DeletionLink is
// the only place the plaintext token ever leaves the service.
type Registration struct {
	Record       *models.Assignment
	DeletionLink string
}

// Register creates a new assignment record atomically. The store's uniqueness
// constraint is the sole duplicate check; there is no read-before-write.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.Register")
	defer span.End()

	if req.SlotRef == "" || req.CollectionRef == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "collection and slot refs are required")
	}
	if req.Email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	normalized := hash.Normalize(req.Email)

	salt, err := hash.GenerateSalt(s.cfg.SaltLength)
	if err != nil {
		// No fallback randomness: abort.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate salt")
	}

	start := time.Now()
	digest, err := s.gate.Digest(ctx, normalized, salt, s.cfg.Iterations, models.AlgorithmPBKDF2)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not hash email")
	}
	s.observeHashDuration(time.Since(start))

	plaintext, tokenHash, err := token.Generate(s.cfg.TokenLength)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate deletion token")
	}

	rec := &models.Assignment{
		ID:            uuid.New(),
		CollectionRef: req.CollectionRef,
		SlotRef:       req.SlotRef,
		EmailHash:     digest,
		EmailSalt:     salt,
		EmailLookup:   hash.LookupDigest(s.cfg.LookupKey, req.SlotRef, normalized),
		Algorithm:     models.AlgorithmPBKDF2,
		Iterations:    s.cfg.Iterations,
		TokenHash:     tokenHash,
		CreatedAt:     requestcontext.Now(ctx),
	}

	if err := s.records.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.incDuplicates()
			return nil, ErrDuplicateRegistration
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not store registration")
	}

	link := s.cfg.BaseURL + "/delete/" + plaintext + "/"

	s.incRegistrations()
	s.logger.InfoContext(ctx, "registration created",
		"record_id", rec.ID,
		"collection_ref", rec.CollectionRef,
		"slot_ref", rec.SlotRef,
	)
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionRegistered,
		RecordID:      rec.ID,
		CollectionRef: rec.CollectionRef,
		SlotRef:       rec.SlotRef,
		Algorithm:     string(rec.Algorithm),
	})

	collection, period := s.describeSlot(ctx, req.CollectionRef, req.SlotRef)
	if err := s.notifier.RegistrationConfirmed(ctx, notify.Registration{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		CollectionName: collection,
		PeriodName:     period,
		DeletionLink:   link,
	}); err != nil {
		// Mail is best-effort; the record is already committed.
		s.logger.WarnContext(ctx, "registration notification failed",
			"record_id", rec.ID, "error", err)
	}

	return &Registration{Record: rec, DeletionLink: link}, nil
}

func (s *Service) incRegistrations() {
	if s.metrics != nil {
		s.metrics.RegistrationsCreated.Inc()
	}
}

func (s *Service) incDuplicates() {
	if s.metrics != nil {
		s.metrics.DuplicateRegistrations.Inc()
	}
}

func (s *Service) observeHashDuration(d time.Duration) {
	if s.metrics != nil {
		s.metrics.HashDuration.Observe(d.Seconds())
	}
}
