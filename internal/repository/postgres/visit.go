package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/lib/pq"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/logger"
	"gatepass-backend/internal/repository"
)

const visitColumns = `id, visitor_name, resident_name, phone, purpose,
	to_char(visit_date, 'YYYY-MM-DD'), visit_time, notify_email, status, created_at, used_at`

type visitRepository struct {
	db       *sql.DB
	conninfo string
}

// NewVisitRepository returns a postgres-backed visit store. conninfo is kept
// for the pq.Listener that Subscribe opens; it is a separate connection from
// the pool.
func NewVisitRepository(db *sql.DB, conninfo string) repository.VisitRepository {
	return &visitRepository{db: db, conninfo: conninfo}
}

func (r *visitRepository) Create(ctx context.Context, v *domain.VisitPass) error {
	query := `INSERT INTO visits (visitor_name, resident_name, phone, purpose, visit_date, visit_time, notify_email, status, created_at)
	          VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, now()) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		v.VisitorName, v.ResidentName, v.Phone, v.Purpose, v.VisitDate, v.VisitTime, v.NotifyEmail, domain.VisitStatusPending,
	).Scan(&v.ID, &v.CreatedAt)
}

func (r *visitRepository) GetByID(ctx context.Context, id string) (*domain.VisitPass, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`
	v, err := scanVisit(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return v, err
}

func (r *visitRepository) List(ctx context.Context, filter repository.VisitFilter) ([]domain.VisitPass, error) {
	query := `SELECT ` + visitColumns + ` FROM visits`
	args := []any{}
	if filter.VisitDate != "" {
		query += ` WHERE visit_date = $1::date`
		args = append(args, filter.VisitDate)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visits := []domain.VisitPass{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	return visits, rows.Err()
}

func (r *visitRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) (*domain.VisitPass, error) {
	// Conditional on status still being pending so that of two concurrent
	// scans exactly one row-update wins.
	query := `UPDATE visits SET status = $1, used_at = $2 WHERE id = $3 AND status = $4
	          RETURNING ` + visitColumns
	v, err := scanVisit(r.db.QueryRowContext(ctx, query, domain.VisitStatusUsed, usedAt.UTC(), id, domain.VisitStatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race or unknown id; disambiguate with a plain read.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, repository.ErrConditionFailed
	}
	return v, err
}

func (r *visitRepository) MarkExpired(ctx context.Context, before string) (int64, error) {
	query := `UPDATE visits SET status = $1 WHERE status = $2 AND visit_date < $3::date`
	res, err := r.db.ExecContext(ctx, query, domain.VisitStatusExpired, domain.VisitStatusPending, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *visitRepository) Subscribe(ctx context.Context, filter repository.VisitFilter) (<-chan []domain.VisitPass, func(), error) {
	listener := pq.NewListener(r.conninfo, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("visit listener event", "event", ev, "error", err)
		}
	})
	if err := listener.Listen("visit_events"); err != nil {
		listener.Close()
		return nil, nil, err
	}

	out := make(chan []domain.VisitPass, 1)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			listener.Close()
		})
	}

	go func() {
		defer close(out)
		emit := func() {
			visits, err := r.List(ctx, filter)
			if err != nil {
				logger.Error("failed to refresh roster after notification", "error", err)
				return
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
		emit()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				cancel()
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				// n is nil after a connection reset; re-query either way so
				// missed notifications cannot leave a stale roster.
				_ = n
				emit()
			case <-time.After(90 * time.Second):
				if err := listener.Ping(); err != nil {
					logger.Warn("visit listener ping failed", "error", err)
				}
			}
		}
	}()

	return out, cancel, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*domain.VisitPass, error) {
	v := &domain.VisitPass{}
	var usedAt sql.NullTime
	err := row.Scan(&v.ID, &v.VisitorName, &v.ResidentName, &v.Phone, &v.Purpose,
		&v.VisitDate, &v.VisitTime, &v.NotifyEmail, &v.Status, &v.CreatedAt, &usedAt)
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		t := usedAt.Time.UTC()
		v.UsedAt = &t
	}
	return v, nil
}
