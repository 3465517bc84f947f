package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/repositories"
)

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDocumentRepository creates a new document metadata repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create records the metadata of one stored file
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		INSERT INTO %s (id, nom, nom_original, chemin, taille, type_document, type_fichier,
			client_id, comptable_id, date_upload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Documents)

	_, err := executor.Exec(ctx, query,
		doc.ID,
		doc.Nom,
		doc.NomOriginal,
		doc.Chemin,
		doc.Taille,
		doc.TypeDocument,
		doc.TypeFichier,
		doc.ClientID,
		doc.ComptableID,
		doc.DateUpload,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("document %s already exists: %w", doc.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}
