package service

import (
	"context"
	"strings"
	"time"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/logger"
	"gatepass-backend/internal/pass"
	"gatepass-backend/internal/repository"
)

type issuerService struct {
	visitRepo repository.VisitRepository
	emailSvc  EmailService // optional
	now       func() time.Time
}

func NewIssuerService(visitRepo repository.VisitRepository, emailSvc EmailService) IssuerService {
	return &issuerService{
		visitRepo: visitRepo,
		emailSvc:  emailSvc,
		now:       time.Now,
	}
}

func (s *issuerService) Issue(ctx context.Context, req IssueRequest) (*domain.VisitPass, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	v := &domain.VisitPass{
		VisitorName:  strings.TrimSpace(req.VisitorName),
		ResidentName: strings.TrimSpace(req.ResidentName),
		Phone:        strings.TrimSpace(req.Phone),
		Purpose:      strings.TrimSpace(req.Purpose),
		VisitDate:    req.VisitDate,
		VisitTime:    strings.TrimSpace(req.VisitTime),
		NotifyEmail:  strings.TrimSpace(req.NotifyEmail),
		Status:       domain.VisitStatusPending,
	}

	if err := s.visitRepo.Create(ctx, v); err != nil {
		return nil, &domain.StoreError{Op: "create visit", Err: err}
	}

	// Pass delivery is best-effort: the record is already stored and the
	// caller gets it back regardless.
	if s.emailSvc != nil && v.NotifyEmail != "" {
		if err := s.sendPass(ctx, v); err != nil {
			logger.Warn("failed to email pass", "visit_id", v.ID, "error", err)
		}
	}

	return v, nil
}

func (s *issuerService) sendPass(ctx context.Context, v *domain.VisitPass) error {
	payload, err := pass.Encode(v)
	if err != nil {
		return err
	}
	png, err := pass.Render(payload)
	if err != nil {
		return err
	}
	return s.emailSvc.SendPassIssued(ctx, v.NotifyEmail, v, png)
}

func (s *issuerService) validate(req IssueRequest) error {
	required := []struct {
		field, value string
	}{
		{"visitor_name", req.VisitorName},
		{"resident_name", req.ResidentName},
		{"phone", req.Phone},
		{"purpose", req.Purpose},
		{"visit_date", req.VisitDate},
		{"visit_time", req.VisitTime},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &domain.ValidationError{Field: f.field, Reason: "must not be empty"}
		}
	}

	if _, err := time.Parse(domain.VisitDateLayout, req.VisitDate); err != nil {
		return &domain.ValidationError{Field: "visit_date", Reason: "must be a calendar date in YYYY-MM-DD form"}
	}

	// Passes for past dates would be born unusable; reject them at the door.
	today := s.now().UTC().Format(domain.VisitDateLayout)
	if req.VisitDate < today {
		return &domain.ValidationError{Field: "visit_date", Reason: "must not be in the past"}
	}

	return nil
}
