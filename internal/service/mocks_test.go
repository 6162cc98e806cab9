package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/repository"
)

// MockVisitRepository is a testify mock over repository.VisitRepository.
type MockVisitRepository struct {
	mock.Mock
}

func (m *MockVisitRepository) Create(ctx context.Context, v *domain.VisitPass) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockVisitRepository) GetByID(ctx context.Context, id string) (*domain.VisitPass, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VisitPass), args.Error(1)
}

func (m *MockVisitRepository) List(ctx context.Context, filter repository.VisitFilter) ([]domain.VisitPass, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VisitPass), args.Error(1)
}

func (m *MockVisitRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) (*domain.VisitPass, error) {
	args := m.Called(ctx, id, usedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VisitPass), args.Error(1)
}

func (m *MockVisitRepository) MarkExpired(ctx context.Context, before string) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVisitRepository) Subscribe(ctx context.Context, filter repository.VisitFilter) (<-chan []domain.VisitPass, func(), error) {
	args := m.Called(ctx, filter)
	var ch <-chan []domain.VisitPass
	if args.Get(0) != nil {
		ch = args.Get(0).(chan []domain.VisitPass)
	}
	var cancel func()
	if args.Get(1) != nil {
		cancel = args.Get(1).(func())
	}
	return ch, cancel, args.Error(2)
}

// MockEmailService is a testify mock over service.EmailService.
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendPassIssued(ctx context.Context, to string, visit *domain.VisitPass, qrPNG []byte) error {
	args := m.Called(ctx, to, visit, qrPNG)
	return args.Error(0)
}
