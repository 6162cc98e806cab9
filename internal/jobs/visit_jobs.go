package jobs

import (
	"context"
	"time"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/logger"
)

// ExpireStalePasses closes out pending passes whose visit date has already
// gone by. Scan-time expiry never depends on this sweep; it only keeps the
// roster and the stored records truthful.
func (jr *JobRunner) ExpireStalePasses() {
	jr.runWithRecovery("expire-stale-passes", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		today := time.Now().UTC().Format(domain.VisitDateLayout)
		n, err := jr.visitRepo.MarkExpired(ctx, today)
		if err != nil {
			logger.Error("Failed to expire stale passes", "error", err)
			return
		}
		logger.Info("Expired stale passes", "count", n, "before", today)
	})
}
