package models

import "time"

// StatusRequest is the derived state of a single document request.
// EN_ATTENTE = nothing usable submitted, RECU = submissions under review or partial,
// VALIDE = minimum quantity approved by the comptable.
type StatusRequest string

const (
	RequestEnAttente StatusRequest = "EN_ATTENTE"
	RequestRecu      StatusRequest = "RECU"
	RequestValide    StatusRequest = "VALIDE"
)

// StatusUpload is the review state of one submitted file.
type StatusUpload string

const (
	UploadEnRevision StatusUpload = "EN_REVISION"
	UploadValide     StatusUpload = "VALIDE"
	UploadRefuse     StatusUpload = "REFUSE"
)

// TypeDocument classifies what kind of piece a request asks for. The catalogue
// (internal/catalog) carries per-type format and size defaults.
type TypeDocument string

const (
	DocumentBilan          TypeDocument = "BILAN"
	DocumentFacture        TypeDocument = "FACTURE"
	DocumentReleveBancaire TypeDocument = "RELEVE_BANCAIRE"
	DocumentFichePaie      TypeDocument = "FICHE_PAIE"
	DocumentDeclarationTVA TypeDocument = "DECLARATION_TVA"
	DocumentStatuts        TypeDocument = "STATUTS"
	DocumentAutre          TypeDocument = "AUTRE"
)

// DocumentRequest is one requirement inside a dossier ("provide the last 3 payslips").
// Status is a pure function of the uploads, recomputed by the lifecycle engine.
type DocumentRequest struct {
	ID             string        `json:"id" db:"id"`
	Titre          string        `json:"titre" db:"titre"`
	Description    *string       `json:"description,omitempty" db:"description"`
	TypeDocument   TypeDocument  `json:"type_document" db:"type_document"`
	Obligatoire    bool          `json:"obligatoire" db:"obligatoire"`
	QuantiteMin    int           `json:"quantite_min" db:"quantite_min"`
	QuantiteMax    *int          `json:"quantite_max,omitempty" db:"quantite_max"`
	FormatAccepte  *string       `json:"format_accepte,omitempty" db:"format_accepte"`
	TailleMaxMo    *int          `json:"taille_max_mo,omitempty" db:"taille_max_mo"`
	DateEcheance   *time.Time    `json:"date_echeance,omitempty" db:"date_echeance"`
	Instructions   *string       `json:"instructions,omitempty" db:"instructions"`
	Status         StatusRequest `json:"status" db:"status"`
	DateCompletion *time.Time    `json:"date_completion,omitempty" db:"date_completion"`
	ClientID       string        `json:"client_id" db:"client_id"`
	ComptableID    string        `json:"comptable_id" db:"comptable_id"`
	DossierID      string        `json:"dossier_id" db:"dossier_id"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// DocumentUpload records one file submission against a request. Immutable after a
// VALIDE/REFUSE decision except for re-validation overwrite.
type DocumentUpload struct {
	ID             string       `json:"id" db:"id"`
	DocumentID     string       `json:"document_id" db:"document_id"`
	RequestID      string       `json:"request_id" db:"request_id"`
	Status         StatusUpload `json:"status" db:"status"`
	Commentaire    *string      `json:"commentaire,omitempty" db:"commentaire"`
	DateUpload     time.Time    `json:"date_upload" db:"date_upload"`
	DateValidation *time.Time   `json:"date_validation,omitempty" db:"date_validation"`
}
