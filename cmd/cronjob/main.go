package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"gatepass-backend/internal/config"
	"gatepass-backend/internal/jobs"
	"gatepass-backend/internal/logger"
	"gatepass-backend/internal/repository"
	firestorerepo "gatepass-backend/internal/repository/firestore"
	"gatepass-backend/internal/repository/memory"
	"gatepass-backend/internal/repository/postgres"
	"gatepass-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-stale-passes')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Gatepass Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize the record store
	visitRepo, cleanup, err := buildVisitRepository(cfg)
	if err != nil {
		logger.Error("Failed to initialize record store", "error", err)
		log.Fatalf("Failed to initialize record store: %v", err)
	}
	defer cleanup()

	jobRunner := jobs.NewJobRunner(visitRepo, cfg)

	// Run-once mode for manual execution and container jobs
	if *runOnce != "" {
		switch *runOnce {
		case "expire-stale-passes":
			jobRunner.ExpireStalePasses()
		default:
			log.Fatalf("Unknown job: %s", *runOnce)
		}
		return
	}

	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	sched.Stop()
}

// buildVisitRepository opens the configured record-store backend and returns
// it with a cleanup func for whatever connection it holds.
func buildVisitRepository(cfg *config.Config) (repository.VisitRepository, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		conninfo := cfg.GetDatabaseConnectionString()
		db, err := sql.Open("postgres", conninfo)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewVisitRepository(db, conninfo), func() { db.Close() }, nil

	case "firestore":
		ctx := context.Background()
		var opts []option.ClientOption
		if cfg.Firebase.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
		}
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
		if err != nil {
			return nil, nil, err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return firestorerepo.NewVisitRepository(client), func() { client.Close() }, nil

	default:
		// The sweep is pointless against a store that vanishes with the
		// process, but it keeps local testing uniform.
		return memory.NewVisitRepository(), func() {}, nil
	}
}
