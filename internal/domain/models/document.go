package models

import "time"

// Document is the metadata of one stored file. The bytes themselves live with the
// file-storage collaborator; this core only records what was received.
type Document struct {
	ID           string       `json:"id" db:"id"`
	Nom          string       `json:"nom" db:"nom"`
	NomOriginal  string       `json:"nom_original" db:"nom_original"`
	Chemin       string       `json:"chemin" db:"chemin"`
	Taille       int64        `json:"taille" db:"taille"`
	TypeDocument TypeDocument `json:"type_document" db:"type_document"`
	TypeFichier  string       `json:"type_fichier" db:"type_fichier"`
	ClientID     string       `json:"client_id" db:"client_id"`
	ComptableID  string       `json:"comptable_id" db:"comptable_id"`
	DateUpload   time.Time    `json:"date_upload" db:"date_upload"`
}

// UploadedFile is the already-persisted file metadata handed over by the storage
// collaborator for one intake call.
type UploadedFile struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	Mimetype     string `json:"mimetype"`
	Path         string `json:"path,omitempty"`
}
