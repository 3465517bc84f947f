package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/repositories"
)

// PostgresBatchRepository implements the BatchRepository interface
type PostgresBatchRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewBatchRepository creates a new dossier batch repository
func NewBatchRepository(config *RepositoryConfig) repositories.BatchRepository {
	return &PostgresBatchRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new batch
func (r *PostgresBatchRepository) Create(ctx context.Context, batch *models.DossierBatch) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		INSERT INTO %s (id, nom, description, periode, date_echeance, comptable_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.tables.DossierBatches)

	_, err := executor.Exec(ctx, query,
		batch.ID,
		batch.Nom,
		batch.Description,
		batch.Periode,
		batch.DateEcheance,
		batch.ComptableID,
		batch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	return nil
}

// GetOwned retrieves a batch scoped to its comptable
func (r *PostgresBatchRepository) GetOwned(ctx context.Context, id, comptableID string) (*models.DossierBatch, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT id, nom, description, periode, date_echeance, comptable_id, created_at
		FROM %s
		WHERE id = $1 AND comptable_id = $2
	`, r.tables.DossierBatches)

	var batch models.DossierBatch
	err := executor.QueryRow(ctx, query, id, comptableID).Scan(
		&batch.ID,
		&batch.Nom,
		&batch.Description,
		&batch.Periode,
		&batch.DateEcheance,
		&batch.ComptableID,
		&batch.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}

	return &batch, nil
}
