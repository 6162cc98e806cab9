package jobs

import (
	"gatepass-backend/internal/config"
	"gatepass-backend/internal/logger"
	"gatepass-backend/internal/repository"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	visitRepo repository.VisitRepository
	config    *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(visitRepo repository.VisitRepository, cfg *config.Config) *JobRunner {
	return &JobRunner{
		visitRepo: visitRepo,
		config:    cfg,
	}
}

// Config returns the loaded configuration
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}
