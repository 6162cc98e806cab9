package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/repository"
)

// VisitRepository is an in-memory record store. It backs tests and local
// development and implements the same conditional-update semantics as the
// postgres and firestore backends.
type VisitRepository struct {
	mu     sync.RWMutex
	visits map[string]*domain.VisitPass
	subs   map[*subscriber]struct{}
}

type subscriber struct {
	filter repository.VisitFilter
	ch     chan []domain.VisitPass
	once   sync.Once
}

func NewVisitRepository() *VisitRepository {
	return &VisitRepository{
		visits: make(map[string]*domain.VisitPass),
		subs:   make(map[*subscriber]struct{}),
	}
}

func (r *VisitRepository) Create(_ context.Context, v *domain.VisitPass) error {
	r.mu.Lock()
	v.ID = uuid.NewString()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	stored := *v
	r.visits[v.ID] = &stored
	r.notifyLocked()
	r.mu.Unlock()
	return nil
}

func (r *VisitRepository) GetByID(_ context.Context, id string) (*domain.VisitPass, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.visits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *VisitRepository) List(_ context.Context, filter repository.VisitFilter) ([]domain.VisitPass, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(filter), nil
}

func (r *VisitRepository) listLocked(filter repository.VisitFilter) []domain.VisitPass {
	out := make([]domain.VisitPass, 0, len(r.visits))
	for _, v := range r.visits {
		if filter.Matches(v) {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *VisitRepository) MarkUsed(_ context.Context, id string, usedAt time.Time) (*domain.VisitPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if v.Status != domain.VisitStatusPending {
		return nil, repository.ErrConditionFailed
	}
	t := usedAt.UTC()
	v.Status = domain.VisitStatusUsed
	v.UsedAt = &t
	r.notifyLocked()
	cp := *v
	return &cp, nil
}

func (r *VisitRepository) MarkExpired(_ context.Context, before string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range r.visits {
		if v.Status == domain.VisitStatusPending && v.VisitDate < before {
			v.Status = domain.VisitStatusExpired
			n++
		}
	}
	if n > 0 {
		r.notifyLocked()
	}
	return n, nil
}

func (r *VisitRepository) Subscribe(ctx context.Context, filter repository.VisitFilter) (<-chan []domain.VisitPass, func(), error) {
	sub := &subscriber{
		filter: filter,
		ch:     make(chan []domain.VisitPass, 1),
	}

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	sub.ch <- r.listLocked(filter)
	r.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			r.mu.Lock()
			delete(r.subs, sub)
			r.mu.Unlock()
			close(sub.ch)
		})
	}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return sub.ch, cancel, nil
}

// notifyLocked re-emits the current matching list to every subscriber.
// Emissions coalesce: a subscriber that has not drained its channel sees the
// stale snapshot replaced by the fresh one, never an older state.
func (r *VisitRepository) notifyLocked() {
	for sub := range r.subs {
		list := r.listLocked(sub.filter)
		select {
		case sub.ch <- list:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- list:
			default:
			}
		}
	}
}
