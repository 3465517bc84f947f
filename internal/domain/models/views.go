package models

import "time"

// RequestWithUploads is a document request joined with its full upload set, the
// unit the lifecycle engine recomputes from.
type RequestWithUploads struct {
	Request DocumentRequest  `json:"request"`
	Uploads []DocumentUpload `json:"uploads"`
}

// DossierWithRequests is a dossier with everything needed to recompute it.
type DossierWithRequests struct {
	Dossier  Dossier              `json:"dossier"`
	Requests []RequestWithUploads `json:"requests"`
}

// UploadReview is one upload enriched for the comptable's review queue: the file,
// the request it answers and where it came from.
type UploadReview struct {
	Upload       DocumentUpload `json:"upload"`
	DocumentName string         `json:"document_name"`
	DocumentSize int64          `json:"document_size"`
	FileType     string         `json:"file_type"`
	RequestID    string         `json:"request_id"`
	RequestTitle string         `json:"request_title"`
	ClientID     string         `json:"client_id"`
	ClientName   string         `json:"client_name"`
	DossierID    string         `json:"dossier_id"`
	DossierName  string         `json:"dossier_name"`
}

// UploadDetail is an upload plus the file metadata shown on dossier detail views.
type UploadDetail struct {
	Upload   DocumentUpload `json:"upload"`
	Document Document       `json:"document"`
}

// RequestDetail is a request with its uploads and their file metadata.
type RequestDetail struct {
	Request DocumentRequest `json:"request"`
	Uploads []UploadDetail  `json:"uploads"`
}

// DossierDetail is the full comptable- or client-facing view of one dossier.
type DossierDetail struct {
	Dossier   Dossier         `json:"dossier"`
	Client    *Client         `json:"client,omitempty"`
	Comptable *Comptable      `json:"comptable,omitempty"`
	Batch     *DossierBatch   `json:"batch,omitempty"`
	Requests  []RequestDetail `json:"requests"`
}

// UrgencyWindow is how close an échéance must be for a dossier to count as urgent.
const UrgencyWindow = 3 * 24 * time.Hour
