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

// Refresher recomputes one dossier's rollup. Satisfied by the dossier service;
// kept narrow so the review and intake services depend only on what they call.
type Refresher interface {
	Refresh(ctx context.Context, dossierID string) error
}

// reviewService implements the ReviewService interface
type reviewService struct {
	uploads       repositories.UploadRepository
	notifications repositories.NotificationRepository
	txManager     repositories.TransactionManager
	refresher     Refresher
	logger        *slog.Logger
}

// NewReviewService creates the upload validation workflow service.
func NewReviewService(
	uploads repositories.UploadRepository,
	notifications repositories.NotificationRepository,
	txManager repositories.TransactionManager,
	refresher Refresher,
	logger *slog.Logger,
) services.ReviewService {
	return &reviewService{
		uploads:       uploads,
		notifications: notifications,
		txManager:     txManager,
		refresher:     refresher,
		logger:        logger,
	}
}

// ReviewUpload applies a VALIDE/REFUSE decision. The decision and the client
// notification commit together; the dossier recompute runs after the commit and
// its failure surfaces as a warning on the result, never as a failure of the
// review itself - the authoritative status change must not be lost to a derived
// aggregation error.
func (s *reviewService) ReviewUpload(ctx context.Context, req *services.ReviewUploadRequest) (*services.ActionResult, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Action, validation.Required, validation.In(models.UploadValide, models.UploadRefuse)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	review, err := s.uploads.GetOwnedReview(ctx, req.UploadID, req.ComptableID)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", req.UploadID, err)
	}

	verdict := "validé"
	if req.Action == models.UploadRefuse {
		verdict = "refusé"
	}

	now := time.Now()
	commentaire := fmt.Sprintf("%s par le comptable le %s", verdict, now.Format("02/01/2006 15:04"))
	if req.Commentaire != nil && *req.Commentaire != "" {
		commentaire = *req.Commentaire
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.uploads.UpdateDecision(txCtx, req.UploadID, req.Action, commentaire, now); err != nil {
			return fmt.Errorf("update decision: %w", err)
		}

		message := fmt.Sprintf("Votre document %q a été %s par votre comptable.", review.DocumentName, verdict)
		if req.Commentaire != nil && *req.Commentaire != "" {
			message += " Commentaire: " + *req.Commentaire
		}
		clientID := review.ClientID
		return s.notifications.Create(txCtx, &models.Notification{
			ID:        uuid.NewString(),
			Titre:     "Document " + verdict,
			Message:   message,
			Type:      models.NotificationDocumentRecu,
			ClientID:  &clientID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	result := &services.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Document %s avec succès", verdict),
	}

	// Best-effort post-commit recomputation. The decision is already durable.
	if err := s.refresher.Refresh(ctx, review.DossierID); err != nil {
		s.logger.Error("dossier refresh failed after review",
			"dossier_id", review.DossierID,
			"upload_id", req.UploadID,
			"error", err,
		)
		result.RefreshWarning = fmt.Sprintf("dossier progress refresh failed: %v", err)
	}

	s.logger.Info("upload reviewed",
		"upload_id", req.UploadID,
		"action", req.Action,
		"comptable_id", req.ComptableID,
	)

	return result, nil
}

// BulkReview applies the same decision to several uploads, isolating per-id
// failures so one bad id does not abort the rest.
func (s *reviewService) BulkReview(ctx context.Context, req *services.BulkReviewRequest) (*services.BulkReviewResult, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.UploadIDs, validation.Required),
		validation.Field(&req.Action, validation.Required, validation.In(models.UploadValide, models.UploadRefuse)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	result := &services.BulkReviewResult{Success: true}

	for _, id := range req.UploadIDs {
		_, err := s.ReviewUpload(ctx, &services.ReviewUploadRequest{
			UploadID:    id,
			ComptableID: req.ComptableID,
			Action:      req.Action,
			Commentaire: req.Commentaire,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("upload %s: %v", id, err))
			continue
		}
		result.Validated++
	}

	if len(result.Errors) > 0 {
		result.Success = false
	}

	return result, nil
}

// UploadsByStatus returns the comptable's review queue, newest first.
func (s *reviewService) UploadsByStatus(ctx context.Context, comptableID string, status *models.StatusUpload) ([]models.UploadReview, error) {
	return s.uploads.ListByComptable(ctx, comptableID, status, config.ReviewQueueLimit)
}

// PendingReviews lists uploads awaiting a decision.
func (s *reviewService) PendingReviews(ctx context.Context, comptableID string) ([]models.UploadReview, error) {
	pending := models.UploadEnRevision
	return s.UploadsByStatus(ctx, comptableID, &pending)
}
