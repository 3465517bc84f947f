package repositories

import (
	"context"
	"time"

	"fiducia/internal/domain/models"
)

// DossierProgressUpdate is the denormalized rollup the engine persists on a dossier.
// Applied only when something actually changed.
type DossierProgressUpdate struct {
	Pourcentage     int
	DocumentsUpload int
	Status          models.StatusDossier
	DateCompletion  *time.Time
}

// DossierRepository persists dossiers and their denormalized progress columns.
type DossierRepository interface {
	Create(ctx context.Context, dossier *models.Dossier) error

	// GetByID fetches a dossier with no tenant scoping. Callers are responsible
	// for authorization.
	GetByID(ctx context.Context, id string) (*models.Dossier, error)

	// GetOwned fetches a dossier scoped to its comptable; a miss on either filter
	// is domain.ErrNotFound.
	GetOwned(ctx context.Context, id, comptableID string) (*models.Dossier, error)

	// GetOwnedWithStatus additionally filters on status, so a dossier in the wrong
	// state is indistinguishable from a missing one (deliberate, see sign-off).
	GetOwnedWithStatus(ctx context.Context, id, comptableID string, status models.StatusDossier) (*models.Dossier, error)

	// GetForClient fetches a dossier scoped to the owning client.
	GetForClient(ctx context.Context, id, clientID string) (*models.Dossier, error)

	// GetWithRequests loads the dossier and all its requests with uploads, the
	// input of a recomputation.
	GetWithRequests(ctx context.Context, id string) (*models.DossierWithRequests, error)

	// GetDetailOwned / GetDetailForClient load the full detail view (requests,
	// uploads, file metadata, related parties) scoped to the respective owner.
	GetDetailOwned(ctx context.Context, id, comptableID string) (*models.DossierDetail, error)
	GetDetailForClient(ctx context.Context, id, clientID string) (*models.DossierDetail, error)

	ListByComptable(ctx context.Context, comptableID string, batchID *string) ([]models.DossierWithRequests, error)
	ListByClient(ctx context.Context, clientID string) ([]models.DossierWithRequests, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.DossierWithRequests, error)

	// UpdateProgress writes the recomputed rollup.
	UpdateProgress(ctx context.Context, id string, update *DossierProgressUpdate) error

	// UpdateStatus performs an explicit transition (sign-off, archive).
	UpdateStatus(ctx context.Context, id string, status models.StatusDossier) error

	CountByComptable(ctx context.Context, comptableID string, status *models.StatusDossier) (int, error)
	CountByClient(ctx context.Context, clientID string, status *models.StatusDossier) (int, error)
	CountUrgentByClient(ctx context.Context, clientID string, deadline time.Time) (int, error)
}

// BatchRepository persists dossier batches.
type BatchRepository interface {
	Create(ctx context.Context, batch *models.DossierBatch) error
	GetOwned(ctx context.Context, id, comptableID string) (*models.DossierBatch, error)
}
