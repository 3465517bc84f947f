package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"fiducia/internal/auth"
	"fiducia/internal/catalog"
	"fiducia/internal/config"
	"fiducia/internal/handler"
	"fiducia/internal/middleware"
	"fiducia/internal/repository/postgres"
	serviceDossier "fiducia/internal/service/dossier"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.Debug {
		logFile, err := config.SetupLogFile("logs", 10)
		if err != nil {
			log.Printf("warning: file logging disabled: %v", err)
		} else {
			defer logFile.Close()
			logOutput = io.MultiWriter(os.Stdout, logFile)
		}
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	dossierRepo := postgres.NewDossierRepository(repoConfig)
	batchRepo := postgres.NewBatchRepository(repoConfig)
	requestRepo := postgres.NewRequestRepository(repoConfig)
	uploadRepo := postgres.NewUploadRepository(repoConfig)
	documentRepo := postgres.NewDocumentRepository(repoConfig)
	notificationRepo := postgres.NewNotificationRepository(repoConfig)
	directoryRepo := postgres.NewDirectoryRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Load the document type catalog (embedded defaults)
	typeCatalog, err := catalog.New()
	if err != nil {
		log.Fatalf("Failed to load document type catalog: %v", err)
	}

	// Create services. The dossier service doubles as the refresher the
	// review and intake sides call after their commits.
	dossierService := serviceDossier.NewDossierService(
		dossierRepo,
		batchRepo,
		requestRepo,
		uploadRepo,
		notificationRepo,
		directoryRepo,
		txManager,
		logger,
	)
	reviewService := serviceDossier.NewReviewService(
		uploadRepo,
		notificationRepo,
		txManager,
		dossierService,
		logger,
	)
	intakeService := serviceDossier.NewIntakeService(
		dossierRepo,
		requestRepo,
		uploadRepo,
		documentRepo,
		notificationRepo,
		directoryRepo,
		txManager,
		dossierService,
		typeCatalog,
		logger,
	)
	notificationService := serviceDossier.NewNotificationService(notificationRepo, logger)

	// Create handlers
	dossierHandler := handler.NewDossierHandler(dossierService, logger)
	reviewHandler := handler.NewReviewHandler(reviewService, logger)
	clientHandler := handler.NewClientHandler(intakeService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)
	statsHandler := handler.NewStatsHandler(dossierService, intakeService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Comptable: dossier lifecycle
	mux.HandleFunc("POST /api/dossiers/batch", dossierHandler.CreateBatch)
	mux.HandleFunc("GET /api/dossiers/progress", dossierHandler.Progress) // Must come before {id} route
	mux.HandleFunc("GET /api/dossiers/{id}", dossierHandler.Details)
	mux.HandleFunc("POST /api/dossiers/{id}/duplicate", dossierHandler.Duplicate)
	mux.HandleFunc("POST /api/dossiers/{id}/validate", dossierHandler.Validate)
	mux.HandleFunc("POST /api/dossiers/{id}/archive", dossierHandler.Archive)
	mux.HandleFunc("GET /api/batches/{id}", dossierHandler.BatchSummary)

	// Comptable: upload review
	mux.HandleFunc("GET /api/uploads", reviewHandler.Queue)
	mux.HandleFunc("GET /api/uploads/pending", reviewHandler.Pending)
	mux.HandleFunc("POST /api/uploads/review", reviewHandler.BulkReview) // Must come before {id} route
	mux.HandleFunc("POST /api/uploads/{id}/review", reviewHandler.Review)

	// Dashboard statistics (role-dependent)
	mux.HandleFunc("GET /api/stats", statsHandler.Statistics)

	// Client portal
	mux.HandleFunc("GET /api/client/dossiers", clientHandler.Dossiers)
	mux.HandleFunc("GET /api/client/dossiers/{id}", clientHandler.DossierDetails)
	mux.HandleFunc("POST /api/client/dossiers/{id}/requests/{requestID}/uploads", clientHandler.Upload)
	mux.HandleFunc("GET /api/client/notifications", notificationHandler.List)
	mux.HandleFunc("POST /api/client/notifications/{id}/read", notificationHandler.MarkRead)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.AuthMiddleware(jwtVerifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
