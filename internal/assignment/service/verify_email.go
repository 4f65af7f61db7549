package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"adoro/internal/assignment/hash"
	"adoro/internal/assignment/models"
	"adoro/internal/audit"
	dErrors "adoro/pkg/domain-errors"
	"adoro/pkg/platform/sentinel"
)

// VerifyEmail reports whether claimed is the email the record was registered
// with. A missing record burns a digest of equivalent cost before reporting
// false, so timing never reveals whether an email is registered.
//
// When a legacy record verifies successfully it is rehashed to the current
// generation in place (fresh salt, current iterations, backfilled lookup
// digest). This is the adopted migration policy; legacy records disappear
// one by one as their owners interact with the system instead of being
// purged in bulk.
func (s *Service) VerifyEmail(ctx context.Context, recordID uuid.UUID, claimed string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.VerifyEmail")
	defer span.End()

	rec, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			if err := s.engine.EmailAbsent(ctx, claimed); err != nil {
				return false, dErrors.Wrap(err, dErrors.CodeInternal, "verification failed")
			}
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up registration")
	}

	ok, err := s.engine.Email(ctx, claimed, rec)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "verification failed")
	}
	if !ok {
		return false, nil
	}

	if rec.Algorithm == models.AlgorithmLegacy {
		s.upgradeLegacy(ctx, rec, claimed)
	}
	return true, nil
}

// upgradeLegacy rewrites a verified legacy record to PBKDF2. Failure is
// logged and swallowed: verification already succeeded, and the next
// verified read retries the upgrade.
func (s *Service) upgradeLegacy(ctx context.Context, rec *models.Assignment, claimed string) {
	salt, err := hash.GenerateSalt(s.cfg.SaltLength)
	if err != nil {
		s.logger.WarnContext(ctx, "legacy upgrade aborted", "record_id", rec.ID, "error", err)
		return
	}
	digest, err := s.gate.Digest(ctx, claimed, salt, s.cfg.Iterations, models.AlgorithmPBKDF2)
	if err != nil {
		s.logger.WarnContext(ctx, "legacy upgrade aborted", "record_id", rec.ID, "error", err)
		return
	}
	lookup := hash.LookupDigest(s.cfg.LookupKey, rec.SlotRef, claimed)

	if err := s.records.UpgradeAlgorithm(ctx, rec.ID, digest, salt, lookup, s.cfg.Iterations); err != nil {
		s.logger.WarnContext(ctx, "legacy upgrade failed", "record_id", rec.ID, "error", err)
		return
	}

	if s.metrics != nil {
		s.metrics.LegacyUpgrades.Inc()
	}
	s.logger.InfoContext(ctx, "legacy record upgraded", "record_id", rec.ID)
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionLegacyUpgrade,
		RecordID:      rec.ID,
		CollectionRef: rec.CollectionRef,
		SlotRef:       rec.SlotRef,
		Algorithm:     string(models.AlgorithmPBKDF2),
	})
}
