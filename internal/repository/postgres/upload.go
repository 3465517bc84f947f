package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/repositories"
)

// PostgresUploadRepository implements the UploadRepository interface
type PostgresUploadRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewUploadRepository creates a new document upload repository
func NewUploadRepository(config *RepositoryConfig) repositories.UploadRepository {
	return &PostgresUploadRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create records one submitted file against a request
func (r *PostgresUploadRepository) Create(ctx context.Context, upload *models.DocumentUpload) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, request_id, status, commentaire, date_upload, date_validation)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.tables.DocumentUploads)

	_, err := executor.Exec(ctx, query,
		upload.ID,
		upload.DocumentID,
		upload.RequestID,
		upload.Status,
		upload.Commentaire,
		upload.DateUpload,
		upload.DateValidation,
	)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("upload references a missing document or request: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create upload: %w", err)
	}

	return nil
}

// reviewQuery joins an upload with the display fields of the review queue.
func (r *PostgresUploadRepository) reviewQuery(where string) string {
	return fmt.Sprintf(`
		SELECT u.id, u.document_id, u.request_id, u.status, u.commentaire, u.date_upload, u.date_validation,
			doc.nom_original, doc.taille, doc.type_fichier,
			req.id, req.titre, req.client_id, c.raison_sociale, req.dossier_id, d.nom
		FROM %s u
		JOIN %s req ON req.id = u.request_id
		JOIN %s doc ON doc.id = u.document_id
		JOIN %s c ON c.id = req.client_id
		JOIN %s d ON d.id = req.dossier_id
		WHERE %s
	`, r.tables.DocumentUploads, r.tables.DocumentRequests, r.tables.Documents,
		r.tables.Clients, r.tables.Dossiers, where)
}

func scanReview(row pgx.Row) (*models.UploadReview, error) {
	var review models.UploadReview
	err := row.Scan(
		&review.Upload.ID,
		&review.Upload.DocumentID,
		&review.Upload.RequestID,
		&review.Upload.Status,
		&review.Upload.Commentaire,
		&review.Upload.DateUpload,
		&review.Upload.DateValidation,
		&review.DocumentName,
		&review.DocumentSize,
		&review.FileType,
		&review.RequestID,
		&review.RequestTitle,
		&review.ClientID,
		&review.ClientName,
		&review.DossierID,
		&review.DossierName,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// GetOwnedReview fetches one upload through its request's comptable scope
func (r *PostgresUploadRepository) GetOwnedReview(ctx context.Context, id, comptableID string) (*models.UploadReview, error) {
	executor := GetExecutor(ctx, r.pool)
	query := r.reviewQuery("u.id = $1 AND req.comptable_id = $2")

	review, err := scanReview(executor.QueryRow(ctx, query, id, comptableID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get upload review: %w", err)
	}
	return review, nil
}

// UpdateDecision applies the comptable's VALIDE/REFUSE decision
func (r *PostgresUploadRepository) UpdateDecision(ctx context.Context, id string, status models.StatusUpload, commentaire string, at time.Time) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		UPDATE %s SET status = $1, commentaire = $2, date_validation = $3 WHERE id = $4
	`, r.tables.DocumentUploads)

	result, err := executor.Exec(ctx, query, status, commentaire, at, id)
	if err != nil {
		return fmt.Errorf("update upload decision: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("upload %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByComptable returns the review queue, optionally filtered by status, newest first
func (r *PostgresUploadRepository) ListByComptable(ctx context.Context, comptableID string, status *models.StatusUpload, limit int) ([]models.UploadReview, error) {
	executor := GetExecutor(ctx, r.pool)

	where := "req.comptable_id = $1"
	args := []interface{}{comptableID}
	if status != nil {
		where += " AND u.status = $2"
		args = append(args, *status)
	}
	query := r.reviewQuery(where) + fmt.Sprintf(" ORDER BY u.date_upload DESC LIMIT %d", limit)

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	defer rows.Close()

	var reviews []models.UploadReview
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	if reviews == nil {
		reviews = []models.UploadReview{}
	}
	return reviews, nil
}

// CountValidByClient counts VALIDE+EN_REVISION uploads across a client's requests
func (r *PostgresUploadRepository) CountValidByClient(ctx context.Context, clientID string) (int, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s u
		JOIN %s req ON req.id = u.request_id
		WHERE req.client_id = $1 AND u.status <> $2
	`, r.tables.DocumentUploads, r.tables.DocumentRequests)

	var count int
	if err := executor.QueryRow(ctx, query, clientID, models.UploadRefuse).Scan(&count); err != nil {
		return 0, fmt.Errorf("count uploads: %w", err)
	}
	return count, nil
}
