package models

import "time"

// StatusDossier is the aggregate state of a dossier, derived from its document
// requests and their uploads. The persisted value is a cache of ComputeDossierRollup,
// never an input to another decision.
type StatusDossier string

const (
	DossierEnAttente StatusDossier = "EN_ATTENTE"
	DossierEnCours   StatusDossier = "EN_COURS"
	DossierComplet   StatusDossier = "COMPLET"
	DossierValide    StatusDossier = "VALIDE"
)

// PeriodeDossier identifies the accounting period a dossier covers.
type PeriodeDossier string

const (
	PeriodeMensuelle     PeriodeDossier = "MENSUELLE"
	PeriodeTrimestrielle PeriodeDossier = "TRIMESTRIELLE"
	PeriodeAnnuelle      PeriodeDossier = "ANNUELLE"
	PeriodePonctuelle    PeriodeDossier = "PONCTUELLE"
)

// Dossier is a case file for one client: a set of document requests whose statuses
// roll up into pourcentage/documentsUpload/status.
type Dossier struct {
	ID              string         `json:"id" db:"id"`
	Nom             string         `json:"nom" db:"nom"`
	Description     *string        `json:"description,omitempty" db:"description"`
	Periode         PeriodeDossier `json:"periode" db:"periode"`
	DateEcheance    *time.Time     `json:"date_echeance,omitempty" db:"date_echeance"`
	Status          StatusDossier  `json:"status" db:"status"`
	Pourcentage     int            `json:"pourcentage" db:"pourcentage"`
	DocumentsUpload int            `json:"documents_upload" db:"documents_upload"`
	DocumentsRequis int            `json:"documents_requis" db:"documents_requis"`
	DateCompletion  *time.Time     `json:"date_completion,omitempty" db:"date_completion"`
	ClientID        string         `json:"client_id" db:"client_id"`
	ComptableID     string         `json:"comptable_id" db:"comptable_id"`
	BatchID         *string        `json:"batch_id,omitempty" db:"batch_id"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// DossierBatch groups the dossiers created together by one multi-client creation
// or duplication. Immutable after creation.
type DossierBatch struct {
	ID           string         `json:"id" db:"id"`
	Nom          string         `json:"nom" db:"nom"`
	Description  *string        `json:"description,omitempty" db:"description"`
	Periode      PeriodeDossier `json:"periode" db:"periode"`
	DateEcheance *time.Time     `json:"date_echeance,omitempty" db:"date_echeance"`
	ComptableID  string         `json:"comptable_id" db:"comptable_id"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}
