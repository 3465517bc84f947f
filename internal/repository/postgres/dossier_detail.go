package postgres

import (
	"context"
	"fmt"

	"fiducia/internal/domain/models"
)

// GetDetailOwned loads the full dossier view scoped to its comptable
func (r *PostgresDossierRepository) GetDetailOwned(ctx context.Context, id, comptableID string) (*models.DossierDetail, error) {
	d, err := r.GetOwned(ctx, id, comptableID)
	if err != nil {
		return nil, err
	}
	return r.detail(ctx, d)
}

// GetDetailForClient loads the full dossier view scoped to the owning client
func (r *PostgresDossierRepository) GetDetailForClient(ctx context.Context, id, clientID string) (*models.DossierDetail, error) {
	d, err := r.GetForClient(ctx, id, clientID)
	if err != nil {
		return nil, err
	}
	return r.detail(ctx, d)
}

func (r *PostgresDossierRepository) detail(ctx context.Context, d *models.Dossier) (*models.DossierDetail, error) {
	executor := GetExecutor(ctx, r.pool)
	out := &models.DossierDetail{Dossier: *d}

	query := fmt.Sprintf(`
		SELECT id, raison_sociale, type_activite, regime_fiscal, comptable_id, derniere_connexion
		FROM %s WHERE id = $1
	`, r.tables.Clients)
	var client models.Client
	err := executor.QueryRow(ctx, query, d.ClientID).Scan(
		&client.ID,
		&client.RaisonSociale,
		&client.TypeActivite,
		&client.RegimeFiscal,
		&client.ComptableID,
		&client.DerniereConnexion,
	)
	if err != nil && !IsPgNoRowsError(err) {
		return nil, fmt.Errorf("get dossier client: %w", err)
	}
	if err == nil {
		out.Client = &client
	}

	query = fmt.Sprintf(`SELECT id, nom, email, cabinet FROM %s WHERE id = $1`, r.tables.Comptables)
	var comptable models.Comptable
	err = executor.QueryRow(ctx, query, d.ComptableID).Scan(
		&comptable.ID,
		&comptable.Nom,
		&comptable.Email,
		&comptable.Cabinet,
	)
	if err != nil && !IsPgNoRowsError(err) {
		return nil, fmt.Errorf("get dossier comptable: %w", err)
	}
	if err == nil {
		out.Comptable = &comptable
	}

	if d.BatchID != nil {
		query = fmt.Sprintf(`
			SELECT id, nom, description, periode, date_echeance, comptable_id, created_at
			FROM %s WHERE id = $1
		`, r.tables.DossierBatches)
		var batch models.DossierBatch
		err = executor.QueryRow(ctx, query, *d.BatchID).Scan(
			&batch.ID,
			&batch.Nom,
			&batch.Description,
			&batch.Periode,
			&batch.DateEcheance,
			&batch.ComptableID,
			&batch.CreatedAt,
		)
		if err != nil && !IsPgNoRowsError(err) {
			return nil, fmt.Errorf("get dossier batch: %w", err)
		}
		if err == nil {
			out.Batch = &batch
		}
	}

	requests, err := r.detailRequests(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	out.Requests = requests

	return out, nil
}

// detailRequests loads a dossier's requests with their uploads and file metadata.
func (r *PostgresDossierRepository) detailRequests(ctx context.Context, dossierID string) ([]models.RequestDetail, error) {
	executor := GetExecutor(ctx, r.pool)

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE dossier_id = $1
		ORDER BY created_at ASC, id ASC
	`, requestColumns, r.tables.DocumentRequests)

	rows, err := executor.Query(ctx, query, dossierID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []models.RequestDetail
	byRequest := make(map[string]int)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, models.RequestDetail{Request: *req})
		byRequest[req.ID] = len(requests) - 1
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	query = fmt.Sprintf(`
		SELECT u.id, u.document_id, u.request_id, u.status, u.commentaire, u.date_upload, u.date_validation,
			doc.id, doc.nom, doc.nom_original, doc.chemin, doc.taille, doc.type_document,
			doc.type_fichier, doc.client_id, doc.comptable_id, doc.date_upload
		FROM %s u
		JOIN %s req ON req.id = u.request_id
		JOIN %s doc ON doc.id = u.document_id
		WHERE req.dossier_id = $1
		ORDER BY u.date_upload ASC
	`, r.tables.DocumentUploads, r.tables.DocumentRequests, r.tables.Documents)

	uploadRows, err := executor.Query(ctx, query, dossierID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer uploadRows.Close()

	for uploadRows.Next() {
		var detail models.UploadDetail
		err := uploadRows.Scan(
			&detail.Upload.ID,
			&detail.Upload.DocumentID,
			&detail.Upload.RequestID,
			&detail.Upload.Status,
			&detail.Upload.Commentaire,
			&detail.Upload.DateUpload,
			&detail.Upload.DateValidation,
			&detail.Document.ID,
			&detail.Document.Nom,
			&detail.Document.NomOriginal,
			&detail.Document.Chemin,
			&detail.Document.Taille,
			&detail.Document.TypeDocument,
			&detail.Document.TypeFichier,
			&detail.Document.ClientID,
			&detail.Document.ComptableID,
			&detail.Document.DateUpload,
		)
		if err != nil {
			return nil, fmt.Errorf("scan upload detail: %w", err)
		}
		if i, ok := byRequest[detail.Upload.RequestID]; ok {
			requests[i].Uploads = append(requests[i].Uploads, detail)
		}
	}
	if err := uploadRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upload details: %w", err)
	}

	if requests == nil {
		requests = []models.RequestDetail{}
	}
	return requests, nil
}
