package services

import (
	"context"
	"time"

	"fiducia/internal/domain/models"
)

// DossierService is the comptable-facing side of the lifecycle engine: batch
// creation, duplication, progress rollups and the explicit terminal transitions.
type DossierService interface {
	// CreateBatch creates one dossier per client from the given request templates,
	// atomically with the batch row and the client notifications.
	CreateBatch(ctx context.Context, req *CreateBatchRequest) (*BatchResult, error)

	// Duplicate clones a dossier's request structure (never its uploads) to the
	// target clients under a new batch.
	Duplicate(ctx context.Context, req *DuplicateRequest) (*BatchResult, error)

	// Refresh recomputes request statuses and the dossier rollup from upload facts.
	// Idempotent; persists only when something changed.
	Refresh(ctx context.Context, dossierID string) error

	// Progress summarizes all the comptable's dossiers, optionally one batch.
	Progress(ctx context.Context, comptableID string, batchID *string) (*ProgressSummary, error)

	// BatchSummary returns a batch with per-dossier progress and aggregates.
	BatchSummary(ctx context.Context, batchID, comptableID string) (*BatchSummary, error)

	// Details returns the full dossier view for its comptable.
	Details(ctx context.Context, dossierID, comptableID string) (*models.DossierDetail, error)

	// ValidateComplete is the accountant sign-off: COMPLET -> VALIDE. A dossier in
	// any other state is reported as not found, because the fetch filters on status.
	ValidateComplete(ctx context.Context, req *SignOffRequest) (*ActionResult, error)

	// Archive is the alternate entry point to the same terminal transition.
	Archive(ctx context.Context, dossierID, comptableID string) (*ActionResult, error)

	// Statistics feeds the comptable dashboard.
	Statistics(ctx context.Context, comptableID string) (*ComptableStatistics, error)
}

// RequestTemplate is one document requirement to clone into each created dossier.
type RequestTemplate struct {
	Titre         string              `json:"titre"`
	Description   *string             `json:"description,omitempty"`
	TypeDocument  models.TypeDocument `json:"type_document"`
	Obligatoire   bool                `json:"obligatoire"`
	QuantiteMin   int                 `json:"quantite_min"`
	QuantiteMax   *int                `json:"quantite_max,omitempty"`
	FormatAccepte *string             `json:"format_accepte,omitempty"`
	TailleMaxMo   *int                `json:"taille_max_mo,omitempty"`
	DateEcheance  *time.Time          `json:"date_echeance,omitempty"`
	Instructions  *string             `json:"instructions,omitempty"`
}

// CreateBatchRequest creates dossiers for several clients at once.
type CreateBatchRequest struct {
	ComptableID  string                `json:"-"` // from auth context
	ClientIDs    []string              `json:"client_ids"`
	Nom          string                `json:"nom"`
	Description  *string               `json:"description,omitempty"`
	Periode      models.PeriodeDossier `json:"periode"`
	DateEcheance *time.Time            `json:"date_echeance,omitempty"`
	Requests     []RequestTemplate     `json:"document_requests"`
}

// DuplicateRequest clones an existing dossier to other clients.
type DuplicateRequest struct {
	DossierID       string   `json:"-"`
	ComptableID     string   `json:"-"`
	TargetClientIDs []string `json:"target_client_ids"`
	NewNom          *string  `json:"new_nom,omitempty"`
}

// BatchDossier summarizes one dossier created by a batch operation.
type BatchDossier struct {
	ID              string               `json:"id"`
	Nom             string               `json:"nom"`
	ClientID        string               `json:"client_id"`
	ClientName      string               `json:"client_name"`
	Status          models.StatusDossier `json:"status"`
	DocumentsRequis int                  `json:"documents_requis"`
}

// BatchResult reports one batch creation or duplication.
type BatchResult struct {
	BatchID         string         `json:"batch_id"`
	DossiersCreated int            `json:"dossiers_created"`
	Dossiers        []BatchDossier `json:"dossiers"`
}

// SignOffRequest is the accountant's final validation of a complete dossier.
type SignOffRequest struct {
	DossierID   string  `json:"-"`
	ComptableID string  `json:"-"`
	Commentaire *string `json:"commentaire,omitempty"`
}

// ActionResult reports an explicit transition. RefreshWarning carries a failed
// best-effort post-commit recomputation without failing the action itself.
type ActionResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RefreshWarning string `json:"refresh_warning,omitempty"`
}

// DossierProgress is one row of a progress summary, recomputed from uploads.
type DossierProgress struct {
	ID              string               `json:"id"`
	Nom             string               `json:"nom"`
	ClientName      string               `json:"client_name"`
	Progress        int                  `json:"progress"`
	DocumentsUpload int                  `json:"documents_upload"`
	DocumentsRequis int                  `json:"documents_requis"`
	Status          models.StatusDossier `json:"status"`
}

// ProgressSummary aggregates a comptable's dossiers.
type ProgressSummary struct {
	BatchID            *string           `json:"batch_id,omitempty"`
	TotalDossiers      int               `json:"total_dossiers"`
	CompletedDossiers  int               `json:"completed_dossiers"`
	InProgressDossiers int               `json:"in_progress_dossiers"`
	PendingDossiers    int               `json:"pending_dossiers"`
	OverallProgress    int               `json:"overall_progress"`
	Dossiers           []DossierProgress `json:"dossiers"`
}

// BatchSummary is a batch with its dossiers' progress.
type BatchSummary struct {
	Batch    models.DossierBatch `json:"batch"`
	Dossiers []DossierProgress   `json:"dossiers"`
	Summary  BatchAggregate      `json:"summary"`
}

// BatchAggregate is the footer of a batch summary.
type BatchAggregate struct {
	TotalDossiers      int `json:"total_dossiers"`
	CompletedDossiers  int `json:"completed_dossiers"`
	InProgressDossiers int `json:"in_progress_dossiers"`
	PendingDossiers    int `json:"pending_dossiers"`
	AverageProgress    int `json:"average_progress"`
}

// ComptableStatistics feeds the comptable dashboard.
type ComptableStatistics struct {
	TotalDossiers      int                   `json:"total_dossiers"`
	CompletedDossiers  int                   `json:"completed_dossiers"`
	InProgressDossiers int                   `json:"in_progress_dossiers"`
	PendingDossiers    int                   `json:"pending_dossiers"`
	TotalClients       int                   `json:"total_clients"`
	CompletionRate     int                   `json:"completion_rate"`
	RecentActivity     []models.UploadReview `json:"recent_activity"`
}
