package service

import (
	"context"
	"errors"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/repository"
)

// rosterService is a read-only view over the visit store. It never writes.
type rosterService struct {
	visitRepo repository.VisitRepository
}

func NewRosterService(visitRepo repository.VisitRepository) RosterService {
	return &rosterService{visitRepo: visitRepo}
}

func (s *rosterService) Get(ctx context.Context, id string) (*domain.VisitPass, error) {
	v, err := s.visitRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, &domain.StoreError{Op: "get visit", Err: err}
	}
	return v, nil
}

func (s *rosterService) List(ctx context.Context, filter repository.VisitFilter) ([]domain.VisitPass, error) {
	visits, err := s.visitRepo.List(ctx, filter)
	if err != nil {
		return nil, &domain.StoreError{Op: "list visits", Err: err}
	}
	return visits, nil
}

func (s *rosterService) Subscribe(ctx context.Context, filter repository.VisitFilter) (<-chan []domain.VisitPass, func(), error) {
	ch, cancel, err := s.visitRepo.Subscribe(ctx, filter)
	if err != nil {
		return nil, nil, &domain.StoreError{Op: "subscribe to visits", Err: err}
	}
	return ch, cancel, nil
}
