package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"adoro/internal/assignment/models"
	"adoro/internal/assignment/token"
	"adoro/internal/audit"
	"adoro/internal/notify"
	dErrors "adoro/pkg/domain-errors"
	"adoro/pkg/platform/sentinel"
)

// LookupByToken resolves a deletion token to its record without mutating
// anything. Used by the confirmation page before the actual deletion.
func (s *Service) LookupByToken(ctx context.Context, candidateToken string) (*models.Assignment, error) {
	rec, err := s.records.FindByTokenHash(ctx, token.Digest(candidateToken))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up registration")
	}
	return rec, nil
}

// Delete removes the record identified by recordID if candidateToken opens
// its commitment. Verification and removal are combined in one conditional
// store delete, so two concurrent attempts with the same valid token resolve
// to exactly one success and one ErrTokenNotFound.
func (s *Service) Delete(ctx context.Context, recordID uuid.UUID, candidateToken string) (*models.Assignment, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.Delete")
	defer span.End()

	rec, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.incTokenFailures()
			return nil, ErrTokenNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up registration")
	}

	if !s.engine.Token(candidateToken, rec) {
		s.incTokenFailures()
		return nil, ErrTokenMismatch
	}

	if err := s.records.DeleteMatching(ctx, rec.ID, rec.TokenHash); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// A concurrent deletion won the race.
			s.incTokenFailures()
			return nil, ErrTokenNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not delete registration")
	}

	s.finishDeletion(ctx, rec, "")
	return rec, nil
}

// DeleteByToken is the cancellation-link path: resolve the token to its
// record, optionally verify the registrant's email, then delete. When
// claimedEmail is non-empty it must verify against the record, mirroring the
// confirmation step of the original deletion form.
func (s *Service) DeleteByToken(ctx context.Context, candidateToken, claimedEmail string) (*models.Assignment, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.DeleteByToken")
	defer span.End()

	rec, err := s.records.FindByTokenHash(ctx, token.Digest(candidateToken))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			if claimedEmail != "" {
				// Burn the same hashing cost a real verification would take.
				if err := s.engine.EmailAbsent(ctx, claimedEmail); err != nil {
					return nil, dErrors.Wrap(err, dErrors.CodeInternal, "verification failed")
				}
			}
			s.incTokenFailures()
			return nil, ErrTokenNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up registration")
	}

	if claimedEmail != "" {
		ok, err := s.engine.Email(ctx, claimedEmail, rec)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "verification failed")
		}
		if !ok {
			s.incTokenFailures()
			return nil, ErrTokenMismatch
		}
	}

	if err := s.records.DeleteMatching(ctx, rec.ID, rec.TokenHash); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.incTokenFailures()
			return nil, ErrTokenNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not delete registration")
	}

	s.finishDeletion(ctx, rec, claimedEmail)
	return rec, nil
}

func (s *Service) finishDeletion(ctx context.Context, rec *models.Assignment, claimedEmail string) {
	s.incDeletions()
	s.logger.InfoContext(ctx, "registration deleted",
		"record_id", rec.ID,
		"collection_ref", rec.CollectionRef,
		"slot_ref", rec.SlotRef,
	)
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionDeleted,
		RecordID:      rec.ID,
		CollectionRef: rec.CollectionRef,
		SlotRef:       rec.SlotRef,
		Algorithm:     string(rec.Algorithm),
	})

	collection, period := s.describeSlot(ctx, rec.CollectionRef, rec.SlotRef)
	if err := s.notifier.RegistrationCancelled(ctx, notify.Cancellation{
		Email:          claimedEmail,
		CollectionName: collection,
		PeriodName:     period,
	}); err != nil {
		s.logger.WarnContext(ctx, "cancellation notification failed",
			"record_id", rec.ID, "error", err)
	}
}

func (s *Service) incDeletions() {
	if s.metrics != nil {
		s.metrics.DeletionsCompleted.Inc()
	}
}

func (s *Service) incTokenFailures() {
	if s.metrics != nil {
		s.metrics.TokenFailures.Inc()
	}
}
