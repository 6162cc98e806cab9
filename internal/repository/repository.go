package repository

import (
	"context"
	"errors"
	"time"

	"gatepass-backend/internal/domain"
)

var (
	// ErrNotFound is returned when no visit exists for the given id.
	ErrNotFound = errors.New("visit not found")

	// ErrConditionFailed is returned by MarkUsed when the visit is no longer
	// pending. It is the expected signal of a lost race between two
	// concurrent scans, not a fault.
	ErrConditionFailed = errors.New("visit is no longer pending")
)

// VisitFilter narrows List and Subscribe. A zero filter matches everything.
type VisitFilter struct {
	VisitDate string
}

func (f VisitFilter) Matches(v *domain.VisitPass) bool {
	return f.VisitDate == "" || f.VisitDate == v.VisitDate
}

// VisitRepository is the record-store contract the pass core is built on.
// Implementations exist for postgres, firestore and an in-memory store; all
// three give MarkUsed compare-and-swap semantics so that at most one of two
// concurrent validators wins.
type VisitRepository interface {
	// Create stores a new visit, assigning ID and CreatedAt.
	Create(ctx context.Context, v *domain.VisitPass) error

	// GetByID returns the visit or ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.VisitPass, error)

	// List returns visits matching the filter, newest first.
	List(ctx context.Context, filter VisitFilter) ([]domain.VisitPass, error)

	// MarkUsed transitions the visit from pending to used, conditional on it
	// still being pending. Returns the updated record, ErrNotFound if the id
	// is unknown, or ErrConditionFailed if the visit already left pending.
	MarkUsed(ctx context.Context, id string, usedAt time.Time) (*domain.VisitPass, error)

	// MarkExpired transitions every pending visit dated strictly before the
	// given calendar date to expired and reports how many were touched.
	MarkExpired(ctx context.Context, before string) (int64, error)

	// Subscribe emits the current matching visits immediately, then re-emits
	// after every create or update touching a matching record. The cancel
	// func is idempotent and safe to call from a delivery callback.
	Subscribe(ctx context.Context, filter VisitFilter) (<-chan []domain.VisitPass, func(), error)
}
