package service

import (
	"context"
	"errors"
	"time"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/pass"
	"gatepass-backend/internal/repository"
)

const (
	reasonMalformed = "malformed payload"
	reasonNotToday  = "not valid for today"
	reasonNotFound  = "visitor not found"
	reasonReplay    = "already used"
	reasonRevoked   = "pass is no longer valid"
	reasonApproved  = "visitor approved for entry"
)

type validatorService struct {
	visitRepo repository.VisitRepository
	now       func() time.Time
}

func NewValidatorService(visitRepo repository.VisitRepository) ValidatorService {
	return &validatorService{
		visitRepo: visitRepo,
		now:       time.Now,
	}
}

// Scan applies the checkpoint rules in order; the first matching rule wins.
func (s *validatorService) Scan(ctx context.Context, payload []byte, today string) (*domain.ScanResult, error) {
	claim, err := pass.DecodeClaim(payload)
	if err != nil {
		return &domain.ScanResult{Status: domain.ScanStatusDeclined, Reason: reasonMalformed}, nil
	}

	// Date check runs before the lookup: a forged payload must not learn
	// whether an id exists for a date it was never valid on.
	if claim.VisitDate != today {
		return &domain.ScanResult{Status: domain.ScanStatusExpired, Reason: reasonNotToday}, nil
	}

	v, err := s.visitRepo.GetByID(ctx, claim.VisitID)
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.ScanResult{Status: domain.ScanStatusDeclined, Reason: reasonNotFound}, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "look up visit", Err: err}
	}

	if v.Status != domain.VisitStatusPending {
		return s.replayResult(v), nil
	}

	updated, err := s.visitRepo.MarkUsed(ctx, v.ID, s.now().UTC())
	if errors.Is(err, repository.ErrConditionFailed) {
		// Lost a race with a concurrent scan. Re-read for the audit fields
		// and report it exactly like a replay discovered on lookup.
		cur, getErr := s.visitRepo.GetByID(ctx, v.ID)
		if getErr != nil {
			cur = v
		}
		return s.replayResult(cur), nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "mark visit used", Err: err}
	}

	return &domain.ScanResult{
		Status:  domain.ScanStatusApproved,
		Reason:  reasonApproved,
		Visitor: updated,
		UsedAt:  updated.UsedAt,
	}, nil
}

func (s *validatorService) replayResult(v *domain.VisitPass) *domain.ScanResult {
	if v.Status == domain.VisitStatusUsed {
		return &domain.ScanResult{
			Status:  domain.ScanStatusUsed,
			Reason:  reasonReplay,
			Visitor: v,
			UsedAt:  v.UsedAt,
		}
	}
	// Expired or declined records reaching this point were closed out by the
	// sweep or an admin; the checkpoint only needs a refusal.
	return &domain.ScanResult{Status: domain.ScanStatusDeclined, Reason: reasonRevoked}
}
