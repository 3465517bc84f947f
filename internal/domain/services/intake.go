package services

import (
	"context"

	"fiducia/internal/domain/models"
)

// IntakeService is the client-facing side: submitting documents against a request
// and reading back dossier progress.
type IntakeService interface {
	// Upload records already-stored file metadata as EN_REVISION uploads, enforcing
	// the quantiteMax slot rule (refused uploads never count against the max).
	Upload(ctx context.Context, req *IntakeRequest) (*IntakeResult, error)

	// Dossiers lists the client's dossiers with progress recomputed from uploads.
	Dossiers(ctx context.Context, clientID string) (*ClientDossierList, error)

	// DossierDetails is the client view of one dossier.
	DossierDetails(ctx context.Context, dossierID, clientID string) (*ClientDossierDetail, error)

	// Statistics feeds the client dashboard.
	Statistics(ctx context.Context, clientID string) (*ClientStatistics, error)
}

// IntakeRequest is one batch of submitted files for a document request.
type IntakeRequest struct {
	DossierID string                `json:"-"`
	RequestID string                `json:"-"`
	ClientID  string                `json:"-"`
	Files     []models.UploadedFile `json:"files"`
}

// IntakeResult reports a successful intake. RefreshWarning carries a failed
// post-commit recompute.
type IntakeResult struct {
	Success        bool                  `json:"success"`
	UploadedCount  int                   `json:"uploaded_count"`
	Uploads        []models.UploadDetail `json:"uploads"`
	Message        string                `json:"message"`
	RefreshWarning string                `json:"refresh_warning,omitempty"`
}

// ClientDossier is a dossier row on the client portal, progress recomputed.
type ClientDossier struct {
	Dossier         models.Dossier `json:"dossier"`
	Progress        int            `json:"progress"`
	DocumentsUpload int            `json:"documents_upload"`
	IsUrgent        bool           `json:"is_urgent"`
}

// ClientDossierList is the client's dossier listing with a status summary.
type ClientDossierList struct {
	Dossiers []ClientDossier    `json:"dossiers"`
	Summary  ClientDossierTally `json:"summary"`
}

// ClientDossierTally counts the client's dossiers by state.
type ClientDossierTally struct {
	Total     int `json:"total"`
	EnCours   int `json:"en_cours"`
	EnAttente int `json:"en_attente"`
	Complets  int `json:"complets"`
	Valides   int `json:"valides"`
	Urgents   int `json:"urgents"`
}

// ClientDossierDetail is the full client view of one dossier.
type ClientDossierDetail struct {
	Detail          models.DossierDetail `json:"detail"`
	Progress        int                  `json:"progress"`
	DocumentsUpload int                  `json:"documents_upload"`
	IsUrgent        bool                 `json:"is_urgent"`
	Summary         RequestTally         `json:"summary"`
}

// RequestTally counts a dossier's requests by completion.
type RequestTally struct {
	TotalRequests     int `json:"total_requests"`
	CompletedRequests int `json:"completed_requests"`
	PendingRequests   int `json:"pending_requests"`
	TotalUploads      int `json:"total_uploads"`
}

// ClientStatistics feeds the client dashboard.
type ClientStatistics struct {
	TotalDossiers           int                   `json:"total_dossiers"`
	CompletedDossiers       int                   `json:"completed_dossiers"`
	InProgressDossiers      int                   `json:"in_progress_dossiers"`
	PendingDossiers         int                   `json:"pending_dossiers"`
	TotalDocumentUploads    int                   `json:"total_document_uploads"`
	PendingDocumentRequests int                   `json:"pending_document_requests"`
	UrgentDossiers          int                   `json:"urgent_dossiers"`
	CompletionRate          int                   `json:"completion_rate"`
	RecentNotifications     []models.Notification `json:"recent_notifications"`
}
