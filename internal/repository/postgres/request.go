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

// PostgresRequestRepository implements the RequestRepository interface
type PostgresRequestRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewRequestRepository creates a new document request repository
func NewRequestRepository(config *RepositoryConfig) repositories.RequestRepository {
	return &PostgresRequestRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const requestColumns = `id, titre, description, type_document, obligatoire, quantite_min,
	quantite_max, format_accepte, taille_max_mo, date_echeance, instructions, status,
	date_completion, client_id, comptable_id, dossier_id, created_at`

func scanRequest(row pgx.Row) (*models.DocumentRequest, error) {
	var req models.DocumentRequest
	err := row.Scan(
		&req.ID,
		&req.Titre,
		&req.Description,
		&req.TypeDocument,
		&req.Obligatoire,
		&req.QuantiteMin,
		&req.QuantiteMax,
		&req.FormatAccepte,
		&req.TailleMaxMo,
		&req.DateEcheance,
		&req.Instructions,
		&req.Status,
		&req.DateCompletion,
		&req.ClientID,
		&req.ComptableID,
		&req.DossierID,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateMany inserts the cloned per-client request rows of one dossier
func (r *PostgresRequestRepository) CreateMany(ctx context.Context, requests []models.DocumentRequest) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		INSERT INTO %s (id, titre, description, type_document, obligatoire, quantite_min,
			quantite_max, format_accepte, taille_max_mo, date_echeance, instructions, status,
			client_id, comptable_id, dossier_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, r.tables.DocumentRequests)

	for _, req := range requests {
		_, err := executor.Exec(ctx, query,
			req.ID,
			req.Titre,
			req.Description,
			req.TypeDocument,
			req.Obligatoire,
			req.QuantiteMin,
			req.QuantiteMax,
			req.FormatAccepte,
			req.TailleMaxMo,
			req.DateEcheance,
			req.Instructions,
			req.Status,
			req.ClientID,
			req.ComptableID,
			req.DossierID,
			req.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("create request %q: %w", req.Titre, err)
		}
	}

	return nil
}

// GetForClient fetches a request scoped to both its dossier and its client
func (r *PostgresRequestRepository) GetForClient(ctx context.Context, id, dossierID, clientID string) (*models.DocumentRequest, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND dossier_id = $2 AND client_id = $3
	`, requestColumns, r.tables.DocumentRequests)

	req, err := scanRequest(executor.QueryRow(ctx, query, id, dossierID, clientID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// GetWithUploads loads one request with its full upload set
func (r *PostgresRequestRepository) GetWithUploads(ctx context.Context, id string) (*models.RequestWithUploads, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, requestColumns, r.tables.DocumentRequests)

	req, err := scanRequest(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}

	out := &models.RequestWithUploads{Request: *req}

	query = fmt.Sprintf(`
		SELECT id, document_id, request_id, status, commentaire, date_upload, date_validation
		FROM %s
		WHERE request_id = $1
		ORDER BY date_upload ASC
	`, r.tables.DocumentUploads)

	rows, err := executor.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.DocumentUpload
		err := rows.Scan(
			&u.ID,
			&u.DocumentID,
			&u.RequestID,
			&u.Status,
			&u.Commentaire,
			&u.DateUpload,
			&u.DateValidation,
		)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		out.Uploads = append(out.Uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}

	return out, nil
}

// ListByDossier lists a dossier's requests in creation order
func (r *PostgresRequestRepository) ListByDossier(ctx context.Context, dossierID string) ([]models.DocumentRequest, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE dossier_id = $1
		ORDER BY created_at ASC, id ASC
	`, requestColumns, r.tables.DocumentRequests)

	rows, err := executor.Query(ctx, query, dossierID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []models.DocumentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	if requests == nil {
		requests = []models.DocumentRequest{}
	}
	return requests, nil
}

// UpdateStatus writes a recomputed request status
func (r *PostgresRequestRepository) UpdateStatus(ctx context.Context, id string, status models.StatusRequest) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE id = $2`, r.tables.DocumentRequests)

	result, err := executor.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// MarkReceived sets RECU together with the completion timestamp of the intake
func (r *PostgresRequestRepository) MarkReceived(ctx context.Context, id string, at time.Time) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		UPDATE %s SET status = $1, date_completion = $2 WHERE id = $3
	`, r.tables.DocumentRequests)

	result, err := executor.Exec(ctx, query, models.RequestRecu, at, id)
	if err != nil {
		return fmt.Errorf("mark request received: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// CountPendingByClient counts a client's requests still waiting for documents
func (r *PostgresRequestRepository) CountPendingByClient(ctx context.Context, clientID string) (int, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE client_id = $1 AND status = $2
	`, r.tables.DocumentRequests)

	var count int
	if err := executor.QueryRow(ctx, query, clientID, models.RequestEnAttente).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return count, nil
}
