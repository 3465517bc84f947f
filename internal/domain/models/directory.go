package models

import "time"

// Client is the read-side view of a client business. The client CRUD itself lives
// in another subsystem; the lifecycle engine only reads these rows for ownership
// checks and display names.
type Client struct {
	ID                string     `json:"id" db:"id"`
	RaisonSociale     string     `json:"raison_sociale" db:"raison_sociale"`
	TypeActivite      *string    `json:"type_activite,omitempty" db:"type_activite"`
	RegimeFiscal      *string    `json:"regime_fiscal,omitempty" db:"regime_fiscal"`
	ComptableID       string     `json:"comptable_id" db:"comptable_id"`
	DerniereConnexion *time.Time `json:"derniere_connexion,omitempty" db:"derniere_connexion"`
}

// Comptable is the read-side view of an accountant.
type Comptable struct {
	ID      string  `json:"id" db:"id"`
	Nom     string  `json:"nom" db:"nom"`
	Email   string  `json:"email" db:"email"`
	Cabinet *string `json:"cabinet,omitempty" db:"cabinet"`
}
