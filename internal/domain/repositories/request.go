package repositories

import (
	"context"
	"time"

	"fiducia/internal/domain/models"
)

// RequestRepository persists document requests.
type RequestRepository interface {
	// CreateMany inserts the cloned per-client request rows of one dossier.
	CreateMany(ctx context.Context, requests []models.DocumentRequest) error

	// GetForClient fetches a request scoped to both its dossier and its client;
	// a miss on any filter is domain.ErrNotFound.
	GetForClient(ctx context.Context, id, dossierID, clientID string) (*models.DocumentRequest, error)

	// GetWithUploads loads one request with its full upload set.
	GetWithUploads(ctx context.Context, id string) (*models.RequestWithUploads, error)

	ListByDossier(ctx context.Context, dossierID string) ([]models.DocumentRequest, error)

	UpdateStatus(ctx context.Context, id string, status models.StatusRequest) error

	// MarkReceived sets RECU together with the completion timestamp of the intake.
	MarkReceived(ctx context.Context, id string, at time.Time) error

	CountPendingByClient(ctx context.Context, clientID string) (int, error)
}

// UploadRepository persists document uploads and the review-queue projections.
type UploadRepository interface {
	Create(ctx context.Context, upload *models.DocumentUpload) error

	// GetOwnedReview fetches one upload through its request's comptable scope,
	// joined with the display fields the review workflow needs.
	GetOwnedReview(ctx context.Context, id, comptableID string) (*models.UploadReview, error)

	// UpdateDecision applies the comptable's VALIDE/REFUSE decision.
	UpdateDecision(ctx context.Context, id string, status models.StatusUpload, commentaire string, at time.Time) error

	// ListByComptable returns the review queue, optionally filtered by status,
	// newest first.
	ListByComptable(ctx context.Context, comptableID string, status *models.StatusUpload, limit int) ([]models.UploadReview, error)

	// CountValidByClient counts VALIDE+EN_REVISION uploads across a client's requests.
	CountValidByClient(ctx context.Context, clientID string) (int, error)
}

// DocumentRepository persists file metadata rows.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
}
