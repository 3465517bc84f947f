package repositories

import (
	"context"

	"fiducia/internal/domain/models"
)

// DirectoryRepository is the read-only view of the client/comptable CRUD subsystem:
// display names and ownership, nothing else.
type DirectoryRepository interface {
	GetComptable(ctx context.Context, id string) (*models.Comptable, error)
	GetClient(ctx context.Context, id string) (*models.Client, error)

	// ListClientsOwned returns, among ids, the clients that belong to comptableID.
	// Callers compare the result against ids to detect foreign ones.
	ListClientsOwned(ctx context.Context, comptableID string, ids []string) ([]models.Client, error)

	ListClientsByComptable(ctx context.Context, comptableID string) ([]models.Client, error)
	CountClientsByComptable(ctx context.Context, comptableID string) (int, error)
}
