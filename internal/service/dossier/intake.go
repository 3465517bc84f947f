package dossier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fiducia/internal/catalog"
	"fiducia/internal/config"
	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/repositories"
	"fiducia/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// intakeService implements the IntakeService interface
type intakeService struct {
	dossiers      repositories.DossierRepository
	requests      repositories.RequestRepository
	uploads       repositories.UploadRepository
	documents     repositories.DocumentRepository
	notifications repositories.NotificationRepository
	directory     repositories.DirectoryRepository
	txManager     repositories.TransactionManager
	refresher     Refresher
	catalog       *catalog.Catalog
	logger        *slog.Logger
}

// NewIntakeService creates the client-facing intake service.
func NewIntakeService(
	dossiers repositories.DossierRepository,
	requests repositories.RequestRepository,
	uploads repositories.UploadRepository,
	documents repositories.DocumentRepository,
	notifications repositories.NotificationRepository,
	directory repositories.DirectoryRepository,
	txManager repositories.TransactionManager,
	refresher Refresher,
	cat *catalog.Catalog,
	logger *slog.Logger,
) services.IntakeService {
	return &intakeService{
		dossiers:      dossiers,
		requests:      requests,
		uploads:       uploads,
		documents:     documents,
		notifications: notifications,
		directory:     directory,
		txManager:     txManager,
		refresher:     refresher,
		catalog:       cat,
		logger:        logger,
	}
}

// Upload records submitted file metadata against a document request.
//
// The quantiteMax check counts only VALIDE and EN_REVISION uploads: a client is
// never penalized for slots consumed by refused documents. The check and the
// inserts run read-then-write inside one read-committed transaction; concurrent
// intakes on the same request can in principle both pass the check, a window the
// reference behavior accepts.
func (s *intakeService) Upload(ctx context.Context, req *services.IntakeRequest) (*services.IntakeResult, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Files, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	request, err := s.requests.GetForClient(ctx, req.RequestID, req.DossierID, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("document request %s: %w", req.RequestID, err)
	}

	rw, err := s.requests.GetWithUploads(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}

	tally := TallyUploads(rw.Uploads)
	if request.QuantiteMax != nil && tally.Valid()+len(req.Files) > *request.QuantiteMax {
		remaining := *request.QuantiteMax - tally.Valid()
		if remaining < 0 {
			remaining = 0
		}
		return nil, fmt.Errorf("%w: maximum %d document(s) autorisé(s), %d déjà uploadé(s), %d emplacement(s) restant(s)",
			domain.ErrValidation, *request.QuantiteMax, tally.Valid(), remaining)
	}

	maxMo := s.catalog.MaxSizeMo(request.TypeDocument, request.TailleMaxMo)
	for _, f := range req.Files {
		if !s.catalog.Accepts(request.TypeDocument, request.FormatAccepte, f.OriginalName) {
			return nil, fmt.Errorf("%w: format non accepté pour %q (formats: %v)",
				domain.ErrValidation, f.OriginalName, s.catalog.AcceptedFormats(request.TypeDocument, request.FormatAccepte))
		}
		if maxMo > 0 && f.Size > int64(maxMo)<<20 {
			return nil, fmt.Errorf("%w: %q dépasse la taille maximale de %d Mo",
				domain.ErrValidation, f.OriginalName, maxMo)
		}
	}

	dossier, err := s.dossiers.GetByID(ctx, req.DossierID)
	if err != nil {
		return nil, err
	}

	clientName := "Client"
	if client, err := s.directory.GetClient(ctx, req.ClientID); err == nil {
		clientName = client.RaisonSociale
	}

	result := &services.IntakeResult{}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		now := time.Now()

		for _, f := range req.Files {
			path := f.Path
			if path == "" {
				path = "/uploads/documents/" + f.Filename
			}
			doc := &models.Document{
				ID:           uuid.NewString(),
				Nom:          f.Filename,
				NomOriginal:  f.OriginalName,
				Chemin:       path,
				Taille:       f.Size,
				TypeDocument: request.TypeDocument,
				TypeFichier:  f.Mimetype,
				ClientID:     req.ClientID,
				ComptableID:  dossier.ComptableID,
				DateUpload:   now,
			}
			if err := s.documents.Create(txCtx, doc); err != nil {
				return fmt.Errorf("create document %q: %w", f.OriginalName, err)
			}

			commentaire := "Uploadé par le client le " + now.Format("02/01/2006 15:04")
			upload := &models.DocumentUpload{
				ID:          uuid.NewString(),
				DocumentID:  doc.ID,
				RequestID:   req.RequestID,
				Status:      models.UploadEnRevision,
				Commentaire: &commentaire,
				DateUpload:  now,
			}
			if err := s.uploads.Create(txCtx, upload); err != nil {
				return fmt.Errorf("create upload for %q: %w", f.OriginalName, err)
			}

			result.Uploads = append(result.Uploads, models.UploadDetail{
				Upload:   *upload,
				Document: *doc,
			})
		}

		if err := s.requests.MarkReceived(txCtx, req.RequestID, now); err != nil {
			return fmt.Errorf("mark request received: %w", err)
		}

		comptableID := dossier.ComptableID
		return s.notifications.Create(txCtx, &models.Notification{
			ID:    uuid.NewString(),
			Titre: "Nouveaux documents reçus",
			Message: fmt.Sprintf("%d nouveau(x) document(s) reçu(s) de %s pour %q dans le dossier %q",
				len(req.Files), clientName, request.Titre, dossier.Nom),
			Type:        models.NotificationDocumentRecu,
			ComptableID: &comptableID,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	result.Success = true
	result.UploadedCount = len(result.Uploads)
	result.Message = fmt.Sprintf("%d document(s) uploadé(s) avec succès et en cours de révision", result.UploadedCount)

	// Best-effort post-commit recomputation; the uploads are already durable.
	if err := s.refresher.Refresh(ctx, req.DossierID); err != nil {
		s.logger.Error("dossier refresh failed after intake",
			"dossier_id", req.DossierID,
			"request_id", req.RequestID,
			"error", err,
		)
		result.RefreshWarning = fmt.Sprintf("dossier progress refresh failed: %v", err)
	}

	s.logger.Info("documents received",
		"dossier_id", req.DossierID,
		"request_id", req.RequestID,
		"client_id", req.ClientID,
		"count", result.UploadedCount,
	)

	return result, nil
}

// Dossiers lists the client's dossiers with progress recomputed from uploads.
func (s *intakeService) Dossiers(ctx context.Context, clientID string) (*services.ClientDossierList, error) {
	if _, err := s.directory.GetClient(ctx, clientID); err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	dossiers, err := s.dossiers.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	out := &services.ClientDossierList{}
	now := time.Now()

	for _, dw := range dossiers {
		rollup := ComputeDossierRollup(dw.Requests)
		urgent := isUrgent(dw.Dossier.DateEcheance, now)

		out.Dossiers = append(out.Dossiers, services.ClientDossier{
			Dossier:         dw.Dossier,
			Progress:        rollup.Pourcentage,
			DocumentsUpload: rollup.ValidUploads,
			IsUrgent:        urgent,
		})

		out.Summary.Total++
		switch dw.Dossier.Status {
		case models.DossierEnCours:
			out.Summary.EnCours++
		case models.DossierEnAttente:
			out.Summary.EnAttente++
		case models.DossierComplet:
			out.Summary.Complets++
		case models.DossierValide:
			out.Summary.Valides++
		}
		if urgent {
			out.Summary.Urgents++
		}
	}

	return out, nil
}

// DossierDetails is the client view of one dossier, with progress recomputed.
func (s *intakeService) DossierDetails(ctx context.Context, dossierID, clientID string) (*services.ClientDossierDetail, error) {
	detail, err := s.dossiers.GetDetailForClient(ctx, dossierID, clientID)
	if err != nil {
		return nil, fmt.Errorf("dossier %s: %w", dossierID, err)
	}

	out := &services.ClientDossierDetail{Detail: *detail}
	out.Summary.TotalRequests = len(detail.Requests)

	completed := 0
	validUploads := 0
	for _, rd := range detail.Requests {
		t := UploadTally{}
		for _, u := range rd.Uploads {
			switch u.Upload.Status {
			case models.UploadValide:
				t.Validated++
			case models.UploadEnRevision:
				t.InReview++
			case models.UploadRefuse:
				t.Refused++
			}
		}
		validUploads += t.Valid()
		switch {
		case t.Valid() >= rd.Request.QuantiteMin:
			completed++
		case t.Total() == 0:
			out.Summary.PendingRequests++
		}
	}

	out.Progress = percent(completed, len(detail.Requests))
	out.DocumentsUpload = validUploads
	out.IsUrgent = isUrgent(detail.Dossier.DateEcheance, time.Now())
	out.Summary.CompletedRequests = completed
	out.Summary.TotalUploads = validUploads

	return out, nil
}

// Statistics feeds the client dashboard.
func (s *intakeService) Statistics(ctx context.Context, clientID string) (*services.ClientStatistics, error) {
	stats := &services.ClientStatistics{}

	var err error
	if stats.TotalDossiers, err = s.dossiers.CountByClient(ctx, clientID, nil); err != nil {
		return nil, err
	}
	complet := models.DossierComplet
	if stats.CompletedDossiers, err = s.dossiers.CountByClient(ctx, clientID, &complet); err != nil {
		return nil, err
	}
	enCours := models.DossierEnCours
	if stats.InProgressDossiers, err = s.dossiers.CountByClient(ctx, clientID, &enCours); err != nil {
		return nil, err
	}
	enAttente := models.DossierEnAttente
	if stats.PendingDossiers, err = s.dossiers.CountByClient(ctx, clientID, &enAttente); err != nil {
		return nil, err
	}
	if stats.TotalDocumentUploads, err = s.uploads.CountValidByClient(ctx, clientID); err != nil {
		return nil, err
	}
	if stats.PendingDocumentRequests, err = s.requests.CountPendingByClient(ctx, clientID); err != nil {
		return nil, err
	}
	if stats.UrgentDossiers, err = s.dossiers.CountUrgentByClient(ctx, clientID, time.Now().Add(models.UrgencyWindow)); err != nil {
		return nil, err
	}
	if stats.TotalDossiers > 0 {
		stats.CompletionRate = percent(stats.CompletedDossiers, stats.TotalDossiers)
	}

	recent, err := s.notifications.ListByClient(ctx, clientID, config.RecentNotificationsLimit, 0)
	if err != nil {
		return nil, err
	}
	stats.RecentNotifications = recent

	return stats, nil
}

// isUrgent reports whether an échéance falls inside the urgency window.
func isUrgent(echeance *time.Time, now time.Time) bool {
	return echeance != nil && !echeance.After(now.Add(models.UrgencyWindow))
}
