package firestore

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/logger"
	"gatepass-backend/internal/repository"
)

// Collection holds scheduled visits, one document per pass.
const Collection = "scheduled_visits"

type visitDoc struct {
	VisitorName  string     `firestore:"visitorName"`
	ResidentName string     `firestore:"residentName"`
	Phone        string     `firestore:"phone"`
	Purpose      string     `firestore:"purpose"`
	VisitDate    string     `firestore:"visitDate"`
	VisitTime    string     `firestore:"visitTime"`
	NotifyEmail  string     `firestore:"notifyEmail"`
	Status       string     `firestore:"status"`
	CreatedAt    time.Time  `firestore:"createdAt"`
	UsedAt       *time.Time `firestore:"usedAt,omitempty"`
}

type visitRepository struct {
	client *firestore.Client
}

func NewVisitRepository(client *firestore.Client) repository.VisitRepository {
	return &visitRepository{client: client}
}

func (r *visitRepository) Create(ctx context.Context, v *domain.VisitPass) error {
	ref := r.client.Collection(Collection).NewDoc()
	v.ID = ref.ID
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := ref.Set(ctx, toDoc(v))
	return err
}

func (r *visitRepository) GetByID(ctx context.Context, id string) (*domain.VisitPass, error) {
	snap, err := r.client.Collection(Collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromSnap(snap)
}

func (r *visitRepository) List(ctx context.Context, filter repository.VisitFilter) ([]domain.VisitPass, error) {
	iter := r.query(filter).Documents(ctx)
	defer iter.Stop()

	snaps, err := iter.GetAll()
	if err != nil {
		return nil, err
	}
	visits := make([]domain.VisitPass, 0, len(snaps))
	for _, snap := range snaps {
		v, err := fromSnap(snap)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	return visits, nil
}

func (r *visitRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) (*domain.VisitPass, error) {
	ref := r.client.Collection(Collection).Doc(id)
	var updated *domain.VisitPass
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}
		v, err := fromSnap(snap)
		if err != nil {
			return err
		}
		if v.Status != domain.VisitStatusPending {
			return repository.ErrConditionFailed
		}
		t := usedAt.UTC()
		v.Status = domain.VisitStatusUsed
		v.UsedAt = &t
		updated = v
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(domain.VisitStatusUsed)},
			{Path: "usedAt", Value: t},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *visitRepository) MarkExpired(ctx context.Context, before string) (int64, error) {
	iter := r.client.Collection(Collection).
		Where("status", "==", string(domain.VisitStatusPending)).
		Where("visitDate", "<", before).
		Documents(ctx)
	defer iter.Stop()

	snaps, err := iter.GetAll()
	if err != nil {
		return 0, err
	}

	var n int64
	for _, snap := range snaps {
		ref := snap.Ref
		var touched bool
		// Re-check inside a transaction so a pass used between the query and
		// the write is never flipped back out of used.
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			touched = false
			cur, err := tx.Get(ref)
			if err != nil {
				return err
			}
			v, err := fromSnap(cur)
			if err != nil {
				return err
			}
			if v.Status != domain.VisitStatusPending || v.VisitDate >= before {
				return nil
			}
			touched = true
			return tx.Update(ref, []firestore.Update{
				{Path: "status", Value: string(domain.VisitStatusExpired)},
			})
		})
		if err != nil {
			return n, err
		}
		if touched {
			n++
		}
	}
	return n, nil
}

func (r *visitRepository) Subscribe(ctx context.Context, filter repository.VisitFilter) (<-chan []domain.VisitPass, func(), error) {
	snapCtx, stop := context.WithCancel(ctx)
	snaps := r.query(filter).Snapshots(snapCtx)

	out := make(chan []domain.VisitPass, 1)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			snaps.Stop()
		})
	}

	go func() {
		defer close(out)
		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logger.Error("visit snapshot stream failed", "error", err)
				}
				return
			}
			visits := make([]domain.VisitPass, 0, snap.Size)
			docs := snap.Documents
			for {
				doc, err := docs.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					logger.Error("visit snapshot iteration failed", "error", err)
					break
				}
				v, convErr := fromSnap(doc)
				if convErr != nil {
					logger.Warn("skipping malformed visit document", "id", doc.Ref.ID, "error", convErr)
					continue
				}
				visits = append(visits, *v)
			}
			select {
			case out <- visits:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- visits:
				default:
				}
			}
		}
	}()

	return out, cancel, nil
}

func (r *visitRepository) query(filter repository.VisitFilter) firestore.Query {
	return applyFilter(r.client.Collection(Collection).Query, filter)
}

func applyFilter(q firestore.Query, filter repository.VisitFilter) firestore.Query {
	if filter.VisitDate != "" {
		q = q.Where("visitDate", "==", filter.VisitDate)
	}
	return q.OrderBy("createdAt", firestore.Desc)
}

func toDoc(v *domain.VisitPass) *visitDoc {
	return &visitDoc{
		VisitorName:  v.VisitorName,
		ResidentName: v.ResidentName,
		Phone:        v.Phone,
		Purpose:      v.Purpose,
		VisitDate:    v.VisitDate,
		VisitTime:    v.VisitTime,
		NotifyEmail:  v.NotifyEmail,
		Status:       string(v.Status),
		CreatedAt:    v.CreatedAt,
		UsedAt:       v.UsedAt,
	}
}

func fromSnap(snap *firestore.DocumentSnapshot) (*domain.VisitPass, error) {
	var d visitDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return fromDoc(snap.Ref.ID, &d), nil
}

func fromDoc(id string, d *visitDoc) *domain.VisitPass {
	v := &domain.VisitPass{
		ID:           id,
		VisitorName:  d.VisitorName,
		ResidentName: d.ResidentName,
		Phone:        d.Phone,
		Purpose:      d.Purpose,
		VisitDate:    d.VisitDate,
		VisitTime:    d.VisitTime,
		NotifyEmail:  d.NotifyEmail,
		Status:       domain.VisitStatus(d.Status),
		CreatedAt:    d.CreatedAt,
	}
	if d.UsedAt != nil {
		t := d.UsedAt.UTC()
		v.UsedAt = &t
	}
	return v
}
