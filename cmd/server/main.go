package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	httpapi "gatepass-backend/internal/api/http"
	"gatepass-backend/internal/api/ws"
	"gatepass-backend/internal/config"
	"gatepass-backend/internal/logger"
	"gatepass-backend/internal/repository"
	firestorerepo "gatepass-backend/internal/repository/firestore"
	"gatepass-backend/internal/repository/memory"
	"gatepass-backend/internal/repository/postgres"
	"gatepass-backend/internal/security"
	"gatepass-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Gatepass Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "store_backend", cfg.Store.Backend)

	// Initialize the record store
	visitRepo, cleanup, err := buildVisitRepository(cfg)
	if err != nil {
		logger.Error("Failed to initialize record store", "error", err)
		log.Fatalf("Failed to initialize record store: %v", err)
	}
	defer cleanup()

	// Initialize Email Service (optional: disabled without an API key)
	var emailSvc service.EmailService
	if cfg.SendGrid.APIKey != "" {
		emailSvc = service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
		logger.Info("Pass delivery email enabled", "from", cfg.SendGrid.FromEmail)
	} else {
		logger.Info("Pass delivery email disabled (no SendGrid API key)")
	}

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	operators := security.NewOperatorRegistry(operatorAccounts(cfg))

	// Initialize Services
	issuerSvc := service.NewIssuerService(visitRepo, emailSvc)
	validatorSvc := service.NewValidatorService(visitRepo)
	rosterSvc := service.NewRosterService(visitRepo)

	// Set up the HTTP server
	server := httpapi.NewServer(httpapi.Dependencies{
		Issuer:       issuerSvc,
		Validator:    validatorSvc,
		Roster:       rosterSvc,
		TokenManager: tokenManager,
		Operators:    operators,
		RosterWS:     ws.NewRosterHandler(rosterSvc, tokenManager),
	})

	httpServer := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
	logger.Info("Server stopped")
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
		logger.Info("Postgres record store ready", "host", cfg.Database.Host, "database", cfg.Database.Database)
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
		logger.Info("Firestore record store ready", "project_id", cfg.Firebase.ProjectID)
		return firestorerepo.NewVisitRepository(client), func() { client.Close() }, nil

	default:
		logger.Info("In-memory record store ready (data is not persisted)")
		return memory.NewVisitRepository(), func() {}, nil
	}
}

func operatorAccounts(cfg *config.Config) []security.Operator {
	ops := make([]security.Operator, 0, len(cfg.Operators))
	for _, op := range cfg.Operators {
		ops = append(ops, security.Operator{
			Username:     op.Username,
			PasswordHash: op.PasswordHash,
			Role:         op.Role,
		})
	}
	return ops
}
