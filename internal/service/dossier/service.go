package dossier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fiducia/internal/config"
	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/repositories"
	"fiducia/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// dossierService implements the DossierService interface
type dossierService struct {
	dossiers      repositories.DossierRepository
	batches       repositories.BatchRepository
	requests      repositories.RequestRepository
	uploads       repositories.UploadRepository
	notifications repositories.NotificationRepository
	directory     repositories.DirectoryRepository
	txManager     repositories.TransactionManager
	logger        *slog.Logger
}

// NewDossierService creates the lifecycle engine service.
func NewDossierService(
	dossiers repositories.DossierRepository,
	batches repositories.BatchRepository,
	requests repositories.RequestRepository,
	uploads repositories.UploadRepository,
	notifications repositories.NotificationRepository,
	directory repositories.DirectoryRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.DossierService {
	return &dossierService{
		dossiers:      dossiers,
		batches:       batches,
		requests:      requests,
		uploads:       uploads,
		notifications: notifications,
		directory:     directory,
		txManager:     txManager,
		logger:        logger,
	}
}

// CreateBatch creates one dossier per client from the request templates, all inside
// a single transaction.
func (s *dossierService) CreateBatch(ctx context.Context, req *services.CreateBatchRequest) (*services.BatchResult, error) {
	if err := s.validateCreateBatch(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.directory.GetComptable(ctx, req.ComptableID); err != nil {
		return nil, fmt.Errorf("comptable: %w", err)
	}

	clients, err := s.ownedClients(ctx, req.ComptableID, req.ClientIDs)
	if err != nil {
		return nil, err
	}

	result := &services.BatchResult{}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		now := time.Now()
		batch := &models.DossierBatch{
			ID:           uuid.NewString(),
			Nom:          req.Nom,
			Description:  req.Description,
			Periode:      req.Periode,
			DateEcheance: req.DateEcheance,
			ComptableID:  req.ComptableID,
			CreatedAt:    now,
		}
		if err := s.batches.Create(txCtx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		result.BatchID = batch.ID

		for _, client := range clients {
			d := &models.Dossier{
				ID:              uuid.NewString(),
				Nom:             fmt.Sprintf("%s - %s", req.Nom, client.RaisonSociale),
				Description:     req.Description,
				Periode:         req.Periode,
				DateEcheance:    req.DateEcheance,
				Status:          models.DossierEnAttente,
				Pourcentage:     0,
				DocumentsUpload: 0,
				DocumentsRequis: len(req.Requests),
				ClientID:        client.ID,
				ComptableID:     req.ComptableID,
				BatchID:         &batch.ID,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.dossiers.Create(txCtx, d); err != nil {
				return fmt.Errorf("create dossier for client %s: %w", client.ID, err)
			}

			rows := cloneTemplates(req.Requests, d.ID, client.ID, req.ComptableID, now)
			if err := s.requests.CreateMany(txCtx, rows); err != nil {
				return fmt.Errorf("create requests for dossier %s: %w", d.ID, err)
			}

			result.Dossiers = append(result.Dossiers, services.BatchDossier{
				ID:              d.ID,
				Nom:             d.Nom,
				ClientID:        client.ID,
				ClientName:      client.RaisonSociale,
				Status:          d.Status,
				DocumentsRequis: len(req.Requests),
			})
		}

		for _, client := range clients {
			clientID := client.ID
			n := &models.Notification{
				ID:        uuid.NewString(),
				Titre:     "Nouveau dossier documentaire",
				Message:   fmt.Sprintf("Un nouveau dossier %q a été créé et nécessite votre attention.", req.Nom),
				Type:      models.NotificationDocumentRecu,
				ClientID:  &clientID,
				CreatedAt: now,
			}
			if err := s.notifications.Create(txCtx, n); err != nil {
				return fmt.Errorf("create notification for client %s: %w", client.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result.DossiersCreated = len(result.Dossiers)

	s.logger.Info("dossier batch created",
		"batch_id", result.BatchID,
		"comptable_id", req.ComptableID,
		"dossiers", result.DossiersCreated,
		"requests_per_dossier", len(req.Requests),
	)

	return result, nil
}

// Duplicate clones a dossier's request structure to the target clients. Uploads are
// never copied; every new dossier starts over at EN_ATTENTE.
func (s *dossierService) Duplicate(ctx context.Context, req *services.DuplicateRequest) (*services.BatchResult, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.TargetClientIDs, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	original, err := s.dossiers.GetOwned(ctx, req.DossierID, req.ComptableID)
	if err != nil {
		return nil, fmt.Errorf("original dossier: %w", err)
	}

	templates, err := s.requests.ListByDossier(ctx, req.DossierID)
	if err != nil {
		return nil, fmt.Errorf("original requests: %w", err)
	}

	clients, err := s.ownedClients(ctx, req.ComptableID, req.TargetClientIDs)
	if err != nil {
		return nil, err
	}

	batchNom := original.Nom + " - Copie"
	if req.NewNom != nil && *req.NewNom != "" {
		batchNom = *req.NewNom
	}

	result := &services.BatchResult{}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		now := time.Now()
		batch := &models.DossierBatch{
			ID:           uuid.NewString(),
			Nom:          batchNom,
			Description:  original.Description,
			Periode:      original.Periode,
			DateEcheance: original.DateEcheance,
			ComptableID:  req.ComptableID,
			CreatedAt:    now,
		}
		if err := s.batches.Create(txCtx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		result.BatchID = batch.ID

		for _, client := range clients {
			d := &models.Dossier{
				ID:              uuid.NewString(),
				Nom:             fmt.Sprintf("%s - %s", batchNom, client.RaisonSociale),
				Description:     original.Description,
				Periode:         original.Periode,
				DateEcheance:    original.DateEcheance,
				Status:          models.DossierEnAttente,
				DocumentsRequis: len(templates),
				ClientID:        client.ID,
				ComptableID:     req.ComptableID,
				BatchID:         &batch.ID,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.dossiers.Create(txCtx, d); err != nil {
				return fmt.Errorf("create dossier for client %s: %w", client.ID, err)
			}

			rows := make([]models.DocumentRequest, len(templates))
			for i, t := range templates {
				rows[i] = models.DocumentRequest{
					ID:            uuid.NewString(),
					Titre:         t.Titre,
					Description:   t.Description,
					TypeDocument:  t.TypeDocument,
					Obligatoire:   t.Obligatoire,
					QuantiteMin:   t.QuantiteMin,
					QuantiteMax:   t.QuantiteMax,
					FormatAccepte: t.FormatAccepte,
					TailleMaxMo:   t.TailleMaxMo,
					DateEcheance:  t.DateEcheance,
					Instructions:  t.Instructions,
					Status:        models.RequestEnAttente,
					ClientID:      client.ID,
					ComptableID:   req.ComptableID,
					DossierID:     d.ID,
					CreatedAt:     now,
				}
			}
			if err := s.requests.CreateMany(txCtx, rows); err != nil {
				return fmt.Errorf("create requests for dossier %s: %w", d.ID, err)
			}

			result.Dossiers = append(result.Dossiers, services.BatchDossier{
				ID:              d.ID,
				Nom:             d.Nom,
				ClientID:        client.ID,
				ClientName:      client.RaisonSociale,
				Status:          d.Status,
				DocumentsRequis: len(templates),
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result.DossiersCreated = len(result.Dossiers)

	s.logger.Info("dossier duplicated",
		"original_id", req.DossierID,
		"batch_id", result.BatchID,
		"targets", len(clients),
	)

	return result, nil
}

// Refresh recomputes request statuses and the dossier rollup from upload facts and
// persists what changed. The re-upload notification fires only when a request
// actually transitions onto the refused-only branch, which keeps a repeated Refresh
// from re-notifying on unchanged state.
func (s *dossierService) Refresh(ctx context.Context, dossierID string) error {
	dw, err := s.dossiers.GetWithRequests(ctx, dossierID)
	if err != nil {
		return fmt.Errorf("dossier %s: %w", dossierID, err)
	}

	rollup := ComputeDossierRollup(dw.Requests)

	for i, rw := range dw.Requests {
		out := rollup.Outcomes[i]
		if out.Status == rw.Request.Status {
			continue
		}

		if err := s.requests.UpdateStatus(ctx, rw.Request.ID, out.Status); err != nil {
			// One stale request status must not abort the whole recomputation.
			s.logger.Warn("request status update failed",
				"request_id", rw.Request.ID,
				"status", out.Status,
				"error", err,
			)
			continue
		}

		if out.RefusedReset {
			clientID := dw.Dossier.ClientID
			n := &models.Notification{
				ID:        uuid.NewString(),
				Titre:     "Document refusé - Action requise",
				Message:   fmt.Sprintf("Votre document %q a été refusé. Veuillez uploader un nouveau document pour continuer.", rw.Request.Titre),
				Type:      models.NotificationDocumentRecu,
				ClientID:  &clientID,
				CreatedAt: time.Now(),
			}
			if err := s.notifications.Create(ctx, n); err != nil {
				s.logger.Warn("re-upload notification failed",
					"request_id", rw.Request.ID,
					"error", err,
				)
			}
		}
	}

	changed := dw.Dossier.Pourcentage != rollup.Pourcentage ||
		dw.Dossier.DocumentsUpload != rollup.ValidUploads ||
		dw.Dossier.Status != rollup.Status
	if !changed {
		return nil
	}

	dateCompletion := dw.Dossier.DateCompletion
	if rollup.Status == models.DossierComplet && dw.Dossier.Status != models.DossierComplet {
		now := time.Now()
		dateCompletion = &now
	}

	update := &repositories.DossierProgressUpdate{
		Pourcentage:     rollup.Pourcentage,
		DocumentsUpload: rollup.ValidUploads,
		Status:          rollup.Status,
		DateCompletion:  dateCompletion,
	}
	if err := s.dossiers.UpdateProgress(ctx, dossierID, update); err != nil {
		return fmt.Errorf("update dossier %s: %w", dossierID, err)
	}

	s.logger.Debug("dossier progress updated",
		"dossier_id", dossierID,
		"pourcentage", rollup.Pourcentage,
		"documents_upload", rollup.ValidUploads,
		"status", rollup.Status,
	)

	return nil
}

// Progress summarizes the comptable's dossiers, recomputing each percentage from
// the current uploads instead of trusting the cached column.
func (s *dossierService) Progress(ctx context.Context, comptableID string, batchID *string) (*services.ProgressSummary, error) {
	dossiers, err := s.dossiers.ListByComptable(ctx, comptableID, batchID)
	if err != nil {
		return nil, err
	}

	summary := &services.ProgressSummary{BatchID: batchID}
	totalProgress := 0

	for _, dw := range dossiers {
		rollup := ComputeDossierRollup(dw.Requests)
		clientName := ""
		if client, err := s.directory.GetClient(ctx, dw.Dossier.ClientID); err == nil {
			clientName = client.RaisonSociale
		}

		summary.Dossiers = append(summary.Dossiers, services.DossierProgress{
			ID:              dw.Dossier.ID,
			Nom:             dw.Dossier.Nom,
			ClientName:      clientName,
			Progress:        rollup.Pourcentage,
			DocumentsUpload: dw.Dossier.DocumentsUpload,
			DocumentsRequis: dw.Dossier.DocumentsRequis,
			Status:          dw.Dossier.Status,
		})
		totalProgress += rollup.Pourcentage

		switch dw.Dossier.Status {
		case models.DossierComplet:
			summary.CompletedDossiers++
		case models.DossierEnCours:
			summary.InProgressDossiers++
		case models.DossierEnAttente:
			summary.PendingDossiers++
		}
	}

	summary.TotalDossiers = len(summary.Dossiers)
	if summary.TotalDossiers > 0 {
		summary.OverallProgress = percent(totalProgress, summary.TotalDossiers*100) // average
	}

	return summary, nil
}

// BatchSummary returns a batch with per-dossier progress. Here progress is counted
// over fully validated requests, matching what the batch view promises ("done"
// means approved, not merely received).
func (s *dossierService) BatchSummary(ctx context.Context, batchID, comptableID string) (*services.BatchSummary, error) {
	batch, err := s.batches.GetOwned(ctx, batchID, comptableID)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", batchID, err)
	}

	dossiers, err := s.dossiers.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	out := &services.BatchSummary{Batch: *batch}
	totalProgress := 0

	for _, dw := range dossiers {
		completed := 0
		for _, rw := range dw.Requests {
			if rw.Request.Status == models.RequestValide {
				completed++
			}
		}
		progress := percent(completed, len(dw.Requests))
		totalProgress += progress

		clientName := ""
		if client, err := s.directory.GetClient(ctx, dw.Dossier.ClientID); err == nil {
			clientName = client.RaisonSociale
		}

		out.Dossiers = append(out.Dossiers, services.DossierProgress{
			ID:              dw.Dossier.ID,
			Nom:             dw.Dossier.Nom,
			ClientName:      clientName,
			Progress:        progress,
			DocumentsUpload: dw.Dossier.DocumentsUpload,
			DocumentsRequis: dw.Dossier.DocumentsRequis,
			Status:          dw.Dossier.Status,
		})

		switch dw.Dossier.Status {
		case models.DossierComplet:
			out.Summary.CompletedDossiers++
		case models.DossierEnCours:
			out.Summary.InProgressDossiers++
		case models.DossierEnAttente:
			out.Summary.PendingDossiers++
		}
	}

	out.Summary.TotalDossiers = len(out.Dossiers)
	if out.Summary.TotalDossiers > 0 {
		out.Summary.AverageProgress = percent(totalProgress, out.Summary.TotalDossiers*100)
	}

	return out, nil
}

// Details returns the full dossier view for its comptable.
func (s *dossierService) Details(ctx context.Context, dossierID, comptableID string) (*models.DossierDetail, error) {
	detail, err := s.dossiers.GetDetailOwned(ctx, dossierID, comptableID)
	if err != nil {
		return nil, fmt.Errorf("dossier %s: %w", dossierID, err)
	}
	return detail, nil
}

// ValidateComplete is the accountant sign-off: COMPLET -> VALIDE. The fetch filters
// on status, so a dossier in any other state is reported as not found.
func (s *dossierService) ValidateComplete(ctx context.Context, req *services.SignOffRequest) (*services.ActionResult, error) {
	d, err := s.dossiers.GetOwnedWithStatus(ctx, req.DossierID, req.ComptableID, models.DossierComplet)
	if err != nil {
		return nil, fmt.Errorf("complete dossier %s: %w", req.DossierID, err)
	}

	// Defensive re-check against a stale COMPLET read: every request must have its
	// minimum quantity of approved uploads.
	dw, err := s.dossiers.GetWithRequests(ctx, req.DossierID)
	if err != nil {
		return nil, err
	}
	for _, rw := range dw.Requests {
		if TallyUploads(rw.Uploads).Validated < rw.Request.QuantiteMin {
			return nil, fmt.Errorf("%w: not all document requirements are met", domain.ErrValidation)
		}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.dossiers.UpdateStatus(txCtx, req.DossierID, models.DossierValide); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		message := fmt.Sprintf("Félicitations ! Votre dossier %q a été validé et archivé par votre comptable.", d.Nom)
		if req.Commentaire != nil && *req.Commentaire != "" {
			message += " Commentaire: " + *req.Commentaire
		}
		clientID := d.ClientID
		return s.notifications.Create(txCtx, &models.Notification{
			ID:        uuid.NewString(),
			Titre:     "Dossier validé et archivé",
			Message:   message,
			Type:      models.NotificationDocumentRecu,
			ClientID:  &clientID,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dossier validated",
		"dossier_id", req.DossierID,
		"comptable_id", req.ComptableID,
	)

	return &services.ActionResult{
		Success: true,
		Message: "Dossier validé et archivé avec succès",
	}, nil
}

// Archive is the alternate entry point to the terminal transition.
func (s *dossierService) Archive(ctx context.Context, dossierID, comptableID string) (*services.ActionResult, error) {
	d, err := s.dossiers.GetOwnedWithStatus(ctx, dossierID, comptableID, models.DossierComplet)
	if err != nil {
		return nil, fmt.Errorf("complete dossier %s: %w", dossierID, err)
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.dossiers.UpdateStatus(txCtx, dossierID, models.DossierValide); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		clientID := d.ClientID
		return s.notifications.Create(txCtx, &models.Notification{
			ID:        uuid.NewString(),
			Titre:     "Dossier archivé",
			Message:   fmt.Sprintf("Votre dossier %q a été validé et archivé.", d.Nom),
			Type:      models.NotificationDocumentRecu,
			ClientID:  &clientID,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dossier archived", "dossier_id", dossierID)

	return &services.ActionResult{Success: true, Message: "Dossier archivé"}, nil
}

// Statistics feeds the comptable dashboard.
func (s *dossierService) Statistics(ctx context.Context, comptableID string) (*services.ComptableStatistics, error) {
	stats := &services.ComptableStatistics{}

	var err error
	if stats.TotalDossiers, err = s.dossiers.CountByComptable(ctx, comptableID, nil); err != nil {
		return nil, err
	}
	complet := models.DossierComplet
	if stats.CompletedDossiers, err = s.dossiers.CountByComptable(ctx, comptableID, &complet); err != nil {
		return nil, err
	}
	enCours := models.DossierEnCours
	if stats.InProgressDossiers, err = s.dossiers.CountByComptable(ctx, comptableID, &enCours); err != nil {
		return nil, err
	}
	enAttente := models.DossierEnAttente
	if stats.PendingDossiers, err = s.dossiers.CountByComptable(ctx, comptableID, &enAttente); err != nil {
		return nil, err
	}
	if stats.TotalClients, err = s.directory.CountClientsByComptable(ctx, comptableID); err != nil {
		return nil, err
	}
	if stats.TotalDossiers > 0 {
		stats.CompletionRate = percent(stats.CompletedDossiers, stats.TotalDossiers)
	}

	activity, err := s.uploads.ListByComptable(ctx, comptableID, nil, config.RecentActivityLimit)
	if err != nil {
		return nil, err
	}
	stats.RecentActivity = activity

	return stats, nil
}

// ownedClients resolves ids to clients of comptableID, failing with an
// AuthorizationError that lists every foreign or unknown id.
func (s *dossierService) ownedClients(ctx context.Context, comptableID string, ids []string) ([]models.Client, error) {
	clients, err := s.directory.ListClientsOwned(ctx, comptableID, ids)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]bool, len(clients))
	for _, c := range clients {
		owned[c.ID] = true
	}
	var invalid []string
	for _, id := range ids {
		if !owned[id] {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return nil, &domain.AuthorizationError{
			Message:    "invalid client ids",
			InvalidIDs: invalid,
		}
	}

	return clients, nil
}

func (s *dossierService) validateCreateBatch(req *services.CreateBatchRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ClientIDs, validation.Required),
		validation.Field(&req.Nom, validation.Required, validation.Length(1, config.MaxDossierNameLength)),
		validation.Field(&req.Requests, validation.Required),
	); err != nil {
		return err
	}

	seen := make(map[string]bool, len(req.Requests))
	for i, t := range req.Requests {
		if t.Titre == "" {
			return fmt.Errorf("document request %d: titre is required", i+1)
		}
		if t.QuantiteMin < 1 {
			return fmt.Errorf("document request %q: quantite_min must be at least 1", t.Titre)
		}
		if t.QuantiteMax != nil && *t.QuantiteMax < t.QuantiteMin {
			return fmt.Errorf("document request %q: quantite_max below quantite_min", t.Titre)
		}
		if seen[t.Titre] {
			return fmt.Errorf("duplicate document request title %q", t.Titre)
		}
		seen[t.Titre] = true
	}

	seenIDs := make(map[string]bool, len(req.ClientIDs))
	for _, id := range req.ClientIDs {
		if seenIDs[id] {
			return fmt.Errorf("duplicate client id %s", id)
		}
		seenIDs[id] = true
	}

	return nil
}

// cloneTemplates materializes the per-client request rows of one dossier.
func cloneTemplates(templates []services.RequestTemplate, dossierID, clientID, comptableID string, now time.Time) []models.DocumentRequest {
	rows := make([]models.DocumentRequest, len(templates))
	for i, t := range templates {
		rows[i] = models.DocumentRequest{
			ID:            uuid.NewString(),
			Titre:         t.Titre,
			Description:   t.Description,
			TypeDocument:  t.TypeDocument,
			Obligatoire:   t.Obligatoire,
			QuantiteMin:   t.QuantiteMin,
			QuantiteMax:   t.QuantiteMax,
			FormatAccepte: t.FormatAccepte,
			TailleMaxMo:   t.TailleMaxMo,
			DateEcheance:  t.DateEcheance,
			Instructions:  t.Instructions,
			Status:        models.RequestEnAttente,
			ClientID:      clientID,
			ComptableID:   comptableID,
			DossierID:     dossierID,
			CreatedAt:     now,
		}
	}
	return rows
}
