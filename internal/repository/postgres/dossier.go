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

// PostgresDossierRepository implements the DossierRepository interface
type PostgresDossierRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDossierRepository creates a new dossier repository
func NewDossierRepository(config *RepositoryConfig) repositories.DossierRepository {
	return &PostgresDossierRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const dossierColumns = `id, nom, description, periode, date_echeance, status, pourcentage,
	documents_upload, documents_requis, date_completion, client_id, comptable_id, batch_id,
	created_at, updated_at`

func scanDossier(row pgx.Row) (*models.Dossier, error) {
	var d models.Dossier
	err := row.Scan(
		&d.ID,
		&d.Nom,
		&d.Description,
		&d.Periode,
		&d.DateEcheance,
		&d.Status,
		&d.Pourcentage,
		&d.DocumentsUpload,
		&d.DocumentsRequis,
		&d.DateCompletion,
		&d.ClientID,
		&d.ComptableID,
		&d.BatchID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create creates a new dossier
func (r *PostgresDossierRepository) Create(ctx context.Context, dossier *models.Dossier) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		INSERT INTO %s (id, nom, description, periode, date_echeance, status, pourcentage,
			documents_upload, documents_requis, client_id, comptable_id, batch_id,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, r.tables.Dossiers)

	_, err := executor.Exec(ctx, query,
		dossier.ID,
		dossier.Nom,
		dossier.Description,
		dossier.Periode,
		dossier.DateEcheance,
		dossier.Status,
		dossier.Pourcentage,
		dossier.DocumentsUpload,
		dossier.DocumentsRequis,
		dossier.ClientID,
		dossier.ComptableID,
		dossier.BatchID,
		dossier.CreatedAt,
		dossier.UpdatedAt,
	)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("dossier references a missing client or batch: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create dossier: %w", err)
	}

	return nil
}

func (r *PostgresDossierRepository) getWhere(ctx context.Context, where string, args ...interface{}) (*models.Dossier, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`, dossierColumns, r.tables.Dossiers, where)

	d, err := scanDossier(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get dossier: %w", err)
	}
	return d, nil
}

// GetByID retrieves a dossier with no tenant scoping
func (r *PostgresDossierRepository) GetByID(ctx context.Context, id string) (*models.Dossier, error) {
	return r.getWhere(ctx, "id = $1", id)
}

// GetOwned retrieves a dossier scoped to its comptable
func (r *PostgresDossierRepository) GetOwned(ctx context.Context, id, comptableID string) (*models.Dossier, error) {
	return r.getWhere(ctx, "id = $1 AND comptable_id = $2", id, comptableID)
}

// GetOwnedWithStatus additionally filters on status, so a dossier in the wrong
// state reads as missing
func (r *PostgresDossierRepository) GetOwnedWithStatus(ctx context.Context, id, comptableID string, status models.StatusDossier) (*models.Dossier, error) {
	return r.getWhere(ctx, "id = $1 AND comptable_id = $2 AND status = $3", id, comptableID, status)
}

// GetForClient retrieves a dossier scoped to the owning client
func (r *PostgresDossierRepository) GetForClient(ctx context.Context, id, clientID string) (*models.Dossier, error) {
	return r.getWhere(ctx, "id = $1 AND client_id = $2", id, clientID)
}

// GetWithRequests loads the dossier and all its requests with uploads
func (r *PostgresDossierRepository) GetWithRequests(ctx context.Context, id string) (*models.DossierWithRequests, error) {
	d, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	withRequests, err := r.attachRequests(ctx, []models.Dossier{*d})
	if err != nil {
		return nil, err
	}
	return &withRequests[0], nil
}

// attachRequests loads the requests and uploads of the given dossiers in two
// queries and groups them in memory.
func (r *PostgresDossierRepository) attachRequests(ctx context.Context, dossiers []models.Dossier) ([]models.DossierWithRequests, error) {
	out := make([]models.DossierWithRequests, len(dossiers))
	ids := make([]string, len(dossiers))
	for i, d := range dossiers {
		out[i] = models.DossierWithRequests{Dossier: d}
		ids[i] = d.ID
	}
	if len(ids) == 0 {
		return out, nil
	}

	executor := GetExecutor(ctx, r.pool)

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE dossier_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`, requestColumns, r.tables.DocumentRequests)

	rows, err := executor.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	byDossier := make(map[string]int, len(out))
	for i, d := range out {
		byDossier[d.Dossier.ID] = i
	}
	byRequest := make(map[string][2]int)

	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		i := byDossier[req.DossierID]
		out[i].Requests = append(out[i].Requests, models.RequestWithUploads{Request: *req})
		byRequest[req.ID] = [2]int{i, len(out[i].Requests) - 1}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	query = fmt.Sprintf(`
		SELECT u.id, u.document_id, u.request_id, u.status, u.commentaire, u.date_upload, u.date_validation
		FROM %s u
		JOIN %s req ON req.id = u.request_id
		WHERE req.dossier_id = ANY($1)
		ORDER BY u.date_upload ASC
	`, r.tables.DocumentUploads, r.tables.DocumentRequests)

	uploadRows, err := executor.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer uploadRows.Close()

	for uploadRows.Next() {
		var u models.DocumentUpload
		err := uploadRows.Scan(
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
		pos, ok := byRequest[u.RequestID]
		if !ok {
			continue
		}
		rw := &out[pos[0]].Requests[pos[1]]
		rw.Uploads = append(rw.Uploads, u)
	}
	if err := uploadRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}

	return out, nil
}

func (r *PostgresDossierRepository) listWhere(ctx context.Context, where string, args ...interface{}) ([]models.DossierWithRequests, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at DESC
	`, dossierColumns, r.tables.Dossiers, where)

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dossiers: %w", err)
	}
	defer rows.Close()

	var dossiers []models.Dossier
	for rows.Next() {
		d, err := scanDossier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dossier: %w", err)
		}
		dossiers = append(dossiers, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dossiers: %w", err)
	}

	return r.attachRequests(ctx, dossiers)
}

// ListByComptable lists a comptable's dossiers with requests and uploads,
// optionally filtered to one batch
func (r *PostgresDossierRepository) ListByComptable(ctx context.Context, comptableID string, batchID *string) ([]models.DossierWithRequests, error) {
	if batchID != nil {
		return r.listWhere(ctx, "comptable_id = $1 AND batch_id = $2", comptableID, *batchID)
	}
	return r.listWhere(ctx, "comptable_id = $1", comptableID)
}

// ListByClient lists a client's dossiers with requests and uploads
func (r *PostgresDossierRepository) ListByClient(ctx context.Context, clientID string) ([]models.DossierWithRequests, error) {
	return r.listWhere(ctx, "client_id = $1", clientID)
}

// ListByBatch lists the dossiers created by one batch
func (r *PostgresDossierRepository) ListByBatch(ctx context.Context, batchID string) ([]models.DossierWithRequests, error) {
	return r.listWhere(ctx, "batch_id = $1", batchID)
}

// UpdateProgress writes the recomputed rollup columns
func (r *PostgresDossierRepository) UpdateProgress(ctx context.Context, id string, update *repositories.DossierProgressUpdate) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		UPDATE %s
		SET pourcentage = $1, documents_upload = $2, status = $3, date_completion = $4, updated_at = $5
		WHERE id = $6
	`, r.tables.Dossiers)

	result, err := executor.Exec(ctx, query,
		update.Pourcentage,
		update.DocumentsUpload,
		update.Status,
		update.DateCompletion,
		time.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update dossier progress: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("dossier %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// UpdateStatus performs an explicit transition (sign-off, archive)
func (r *PostgresDossierRepository) UpdateStatus(ctx context.Context, id string, status models.StatusDossier) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, updated_at = $2
		WHERE id = $3
	`, r.tables.Dossiers)

	result, err := executor.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update dossier status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("dossier %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresDossierRepository) countWhere(ctx context.Context, where string, args ...interface{}) (int, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, r.tables.Dossiers, where)

	var count int
	if err := executor.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count dossiers: %w", err)
	}
	return count, nil
}

// CountByComptable counts a comptable's dossiers, optionally by status
func (r *PostgresDossierRepository) CountByComptable(ctx context.Context, comptableID string, status *models.StatusDossier) (int, error) {
	if status != nil {
		return r.countWhere(ctx, "comptable_id = $1 AND status = $2", comptableID, *status)
	}
	return r.countWhere(ctx, "comptable_id = $1", comptableID)
}

// CountByClient counts a client's dossiers, optionally by status
func (r *PostgresDossierRepository) CountByClient(ctx context.Context, clientID string, status *models.StatusDossier) (int, error) {
	if status != nil {
		return r.countWhere(ctx, "client_id = $1 AND status = $2", clientID, *status)
	}
	return r.countWhere(ctx, "client_id = $1", clientID)
}

// CountUrgentByClient counts dossiers whose échéance falls before the deadline
func (r *PostgresDossierRepository) CountUrgentByClient(ctx context.Context, clientID string, deadline time.Time) (int, error) {
	return r.countWhere(ctx, "client_id = $1 AND date_echeance IS NOT NULL AND date_echeance <= $2", clientID, deadline)
}
