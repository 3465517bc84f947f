package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"fiducia/internal/catalog"
	"fiducia/internal/config"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/services"
	"fiducia/internal/repository/postgres"
	serviceDossier "fiducia/internal/service/dossier"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Fixed demo identities so reruns stay idempotent
const (
	demoComptableID = "c0000000-0000-0000-0000-000000000001"
	demoClientOneID = "c1000000-0000-0000-0000-000000000001"
	demoClientTwoID = "c1000000-0000-0000-0000-000000000002"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed demo data")
	clearData := flag.Bool("clear-data", false, "Clear all dossier data (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		log.Println("🧹 Clearing dossier data...")
		if err := clearDossierData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Ensure demo accounts exist
	if err := ensureDemoAccounts(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure demo accounts: %v", err)
	}

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

	typeCatalog, err := catalog.New()
	if err != nil {
		log.Fatalf("Failed to load document type catalog: %v", err)
	}

	// Seed through the service layer so statuses and rollups come out consistent
	dossierService := serviceDossier.NewDossierService(
		dossierRepo, batchRepo, requestRepo, uploadRepo,
		notificationRepo, directoryRepo, txManager, logger,
	)
	intakeService := serviceDossier.NewIntakeService(
		dossierRepo, requestRepo, uploadRepo, documentRepo,
		notificationRepo, directoryRepo, txManager,
		dossierService, typeCatalog, logger,
	)

	log.Println("📝 Creating demo dossier batch...")
	batch, err := dossierService.CreateBatch(ctx, demoBatch())
	if err != nil {
		log.Fatalf("Failed to create demo batch: %v", err)
	}
	log.Printf("✅ Created batch %s with %d dossiers", batch.BatchID, batch.DossiersCreated)

	// Submit a sample upload against the first dossier's first request
	log.Println("📎 Submitting a sample client upload...")
	if err := seedSampleUpload(ctx, dossierService, intakeService, batch); err != nil {
		log.Printf("Warning: could not seed sample upload: %v", err)
	} else {
		log.Println("✅ Sample upload recorded (EN_REVISION, awaiting review)")
	}

	log.Println("🎉 Seeding complete!")
}

// ensureDemoAccounts creates the demo comptable and clients if missing
func ensureDemoAccounts(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	comptable := `
		INSERT INTO ` + tables.Comptables + ` (id, nom, email, cabinet)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := pool.Exec(ctx, comptable, demoComptableID, "Marie Durand", "m.durand@cabinet-durand.fr", "Cabinet Durand & Associés"); err != nil {
		return err
	}

	client := `
		INSERT INTO ` + tables.Clients + ` (id, raison_sociale, type_activite, regime_fiscal, comptable_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := pool.Exec(ctx, client, demoClientOneID, "Boulangerie Martin SARL", "Commerce de détail", "Réel simplifié", demoComptableID); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, client, demoClientTwoID, "Garage Petit SAS", "Réparation automobile", "Réel normal", demoComptableID); err != nil {
		return err
	}
	return nil
}

// demoBatch is an annual closing campaign for both demo clients
func demoBatch() *services.CreateBatchRequest {
	deadline := time.Now().AddDate(0, 1, 0)
	return &services.CreateBatchRequest{
		ComptableID:  demoComptableID,
		ClientIDs:    []string{demoClientOneID, demoClientTwoID},
		Nom:          "Bilan annuel 2025",
		Description:  stringPtr("Clôture de l'exercice 2025"),
		Periode:      models.PeriodeAnnuelle,
		DateEcheance: &deadline,
		Requests: []services.RequestTemplate{
			{
				Titre:        "Relevés bancaires",
				Description:  stringPtr("Tous les relevés de l'exercice"),
				TypeDocument: models.DocumentReleveBancaire,
				Obligatoire:  true,
				QuantiteMin:  12,
				QuantiteMax:  intPtr(14),
			},
			{
				Titre:        "Factures fournisseurs",
				TypeDocument: models.DocumentFacture,
				Obligatoire:  true,
				QuantiteMin:  1,
			},
			{
				Titre:        "Déclaration de TVA N-1",
				TypeDocument: models.DocumentDeclarationTVA,
				Obligatoire:  false,
				QuantiteMin:  1,
				QuantiteMax:  intPtr(1),
			},
		},
	}
}

// seedSampleUpload submits one file against the demo batch's first dossier
func seedSampleUpload(ctx context.Context, dossiers services.DossierService, intake services.IntakeService, batch *services.BatchResult) error {
	if len(batch.Dossiers) == 0 {
		return nil
	}
	first := batch.Dossiers[0]

	detail, err := dossiers.Details(ctx, first.ID, demoComptableID)
	if err != nil {
		return err
	}
	if len(detail.Requests) == 0 {
		return nil
	}

	_, err = intake.Upload(ctx, &services.IntakeRequest{
		DossierID: first.ID,
		RequestID: detail.Requests[0].Request.ID,
		ClientID:  first.ClientID,
		Files: []models.UploadedFile{
			{
				Filename:     "releve-janvier-2025.pdf",
				OriginalName: "Relevé janvier 2025.pdf",
				Size:         245_120,
				Mimetype:     "application/pdf",
				Path:         "uploads/demo/releve-janvier-2025.pdf",
			},
		},
	})
	return err
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Enable UUID extension
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\""); err != nil {
		return err
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Comptables + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			nom TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			cabinet TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Clients + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			raison_sociale TEXT NOT NULL,
			type_activite TEXT,
			regime_fiscal TEXT,
			comptable_id UUID NOT NULL REFERENCES ` + tables.Comptables + `(id),
			derniere_connexion TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.DossierBatches + ` (
			id UUID PRIMARY KEY,
			nom TEXT NOT NULL,
			description TEXT,
			periode TEXT NOT NULL,
			date_echeance TIMESTAMPTZ,
			comptable_id UUID NOT NULL REFERENCES ` + tables.Comptables + `(id),
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Dossiers + ` (
			id UUID PRIMARY KEY,
			nom TEXT NOT NULL,
			description TEXT,
			periode TEXT NOT NULL,
			date_echeance TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'EN_ATTENTE',
			pourcentage INTEGER NOT NULL DEFAULT 0,
			documents_upload INTEGER NOT NULL DEFAULT 0,
			documents_requis INTEGER NOT NULL DEFAULT 0,
			date_completion TIMESTAMPTZ,
			client_id UUID NOT NULL REFERENCES ` + tables.Clients + `(id),
			comptable_id UUID NOT NULL REFERENCES ` + tables.Comptables + `(id),
			batch_id UUID REFERENCES ` + tables.DossierBatches + `(id),
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.DocumentRequests + ` (
			id UUID PRIMARY KEY,
			titre TEXT NOT NULL,
			description TEXT,
			type_document TEXT NOT NULL,
			obligatoire BOOLEAN NOT NULL DEFAULT TRUE,
			quantite_min INTEGER NOT NULL DEFAULT 1,
			quantite_max INTEGER,
			format_accepte TEXT,
			taille_max_mo INTEGER,
			date_echeance TIMESTAMPTZ,
			instructions TEXT,
			status TEXT NOT NULL DEFAULT 'EN_ATTENTE',
			date_completion TIMESTAMPTZ,
			client_id UUID NOT NULL REFERENCES ` + tables.Clients + `(id),
			comptable_id UUID NOT NULL REFERENCES ` + tables.Comptables + `(id),
			dossier_id UUID NOT NULL REFERENCES ` + tables.Dossiers + `(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id UUID PRIMARY KEY,
			nom TEXT NOT NULL,
			nom_original TEXT NOT NULL,
			chemin TEXT NOT NULL,
			taille BIGINT NOT NULL DEFAULT 0,
			type_document TEXT NOT NULL,
			type_fichier TEXT,
			client_id UUID NOT NULL REFERENCES ` + tables.Clients + `(id),
			comptable_id UUID NOT NULL REFERENCES ` + tables.Comptables + `(id),
			date_upload TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.DocumentUploads + ` (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			request_id UUID NOT NULL REFERENCES ` + tables.DocumentRequests + `(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'EN_REVISION',
			commentaire TEXT,
			date_upload TIMESTAMPTZ DEFAULT NOW(),
			date_validation TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Notifications + ` (
			id UUID PRIMARY KEY,
			titre TEXT NOT NULL,
			message TEXT NOT NULL,
			type TEXT NOT NULL,
			client_id UUID REFERENCES ` + tables.Clients + `(id),
			comptable_id UUID REFERENCES ` + tables.Comptables + `(id),
			lu BOOLEAN NOT NULL DEFAULT FALSE,
			date_lecture TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `dossiers_comptable ON ` + tables.Dossiers + `(comptable_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `dossiers_client ON ` + tables.Dossiers + `(client_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `dossiers_batch ON ` + tables.Dossiers + `(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `requests_dossier ON ` + tables.DocumentRequests + `(dossier_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `uploads_request_status ON ` + tables.DocumentUploads + `(request_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `notifications_client ON ` + tables.Notifications + `(client_id, lu, created_at)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Notifications,
		tables.DocumentUploads,
		tables.Documents,
		tables.DocumentRequests,
		tables.Dossiers,
		tables.DossierBatches,
		tables.Clients,
		tables.Comptables,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearDossierData removes dossier data while keeping accounts and schema
func clearDossierData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Notifications,
		tables.DocumentUploads,
		tables.Documents,
		tables.DocumentRequests,
		tables.Dossiers,
		tables.DossierBatches,
	}

	for _, table := range tableNames {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// stringPtr returns a pointer to a string
func stringPtr(s string) *string {
	return &s
}

func intPtr(n int) *int {
	return &n
}
