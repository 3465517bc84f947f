package services

import (
	"context"

	"fiducia/internal/domain/models"
)

// ReviewService is the comptable's validation workflow over individual uploads.
type ReviewService interface {
	// ReviewUpload applies a VALIDE/REFUSE decision. The decision and the client
	// notification commit together; the dossier recompute runs after the commit
	// and its failure is reported as a warning, never as a failure of the review.
	ReviewUpload(ctx context.Context, req *ReviewUploadRequest) (*ActionResult, error)

	// BulkReview applies the same decision to several uploads, isolating per-id
	// failures.
	BulkReview(ctx context.Context, req *BulkReviewRequest) (*BulkReviewResult, error)

	// UploadsByStatus returns the comptable's review queue, newest first.
	UploadsByStatus(ctx context.Context, comptableID string, status *models.StatusUpload) ([]models.UploadReview, error)

	// PendingReviews is UploadsByStatus filtered to EN_REVISION.
	PendingReviews(ctx context.Context, comptableID string) ([]models.UploadReview, error)
}

// ReviewUploadRequest carries one validation decision.
type ReviewUploadRequest struct {
	UploadID    string              `json:"-"`
	ComptableID string              `json:"-"`
	Action      models.StatusUpload `json:"action"` // VALIDE or REFUSE
	Commentaire *string             `json:"commentaire,omitempty"`
}

// BulkReviewRequest applies one decision to many uploads.
type BulkReviewRequest struct {
	ComptableID string              `json:"-"`
	UploadIDs   []string            `json:"upload_ids"`
	Action      models.StatusUpload `json:"action"`
	Commentaire *string             `json:"commentaire,omitempty"`
}

// BulkReviewResult reports how many decisions landed and which ids failed.
type BulkReviewResult struct {
	Success   bool     `json:"success"`
	Validated int      `json:"validated"`
	Errors    []string `json:"errors"`
}
