package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/repositories"
)

// PostgresDirectoryRepository implements the DirectoryRepository interface
type PostgresDirectoryRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDirectoryRepository creates the read-only client/comptable directory
func NewDirectoryRepository(config *RepositoryConfig) repositories.DirectoryRepository {
	return &PostgresDirectoryRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const clientColumns = `id, raison_sociale, type_activite, regime_fiscal, comptable_id, derniere_connexion`

// GetComptable retrieves an accountant by id
func (r *PostgresDirectoryRepository) GetComptable(ctx context.Context, id string) (*models.Comptable, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT id, nom, email, cabinet FROM %s WHERE id = $1`, r.tables.Comptables)

	var c models.Comptable
	err := executor.QueryRow(ctx, query, id).Scan(&c.ID, &c.Nom, &c.Email, &c.Cabinet)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("comptable %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get comptable: %w", err)
	}

	return &c, nil
}

// GetClient retrieves a client by id
func (r *PostgresDirectoryRepository) GetClient(ctx context.Context, id string) (*models.Client, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, clientColumns, r.tables.Clients)

	var c models.Client
	err := executor.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.RaisonSociale,
		&c.TypeActivite,
		&c.RegimeFiscal,
		&c.ComptableID,
		&c.DerniereConnexion,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	return &c, nil
}

// ListClientsOwned returns, among ids, the clients that belong to comptableID
func (r *PostgresDirectoryRepository) ListClientsOwned(ctx context.Context, comptableID string, ids []string) ([]models.Client, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE comptable_id = $1 AND id = ANY($2)
	`, clientColumns, r.tables.Clients)

	rows, err := executor.Query(ctx, query, comptableID, ids)
	if err != nil {
		return nil, fmt.Errorf("list owned clients: %w", err)
	}
	defer rows.Close()

	return scanClients(rows)
}

// ListClientsByComptable lists all of a comptable's clients
func (r *PostgresDirectoryRepository) ListClientsByComptable(ctx context.Context, comptableID string) ([]models.Client, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE comptable_id = $1
		ORDER BY raison_sociale ASC
	`, clientColumns, r.tables.Clients)

	rows, err := executor.Query(ctx, query, comptableID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	return scanClients(rows)
}

// CountClientsByComptable counts a comptable's clients
func (r *PostgresDirectoryRepository) CountClientsByComptable(ctx context.Context, comptableID string) (int, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE comptable_id = $1`, r.tables.Clients)

	var count int
	if err := executor.QueryRow(ctx, query, comptableID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return count, nil
}

func scanClients(rows pgx.Rows) ([]models.Client, error) {
	var clients []models.Client
	for rows.Next() {
		var c models.Client
		err := rows.Scan(
			&c.ID,
			&c.RaisonSociale,
			&c.TypeActivite,
			&c.RegimeFiscal,
			&c.ComptableID,
			&c.DerniereConnexion,
		)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}

	if clients == nil {
		clients = []models.Client{}
	}
	return clients, nil
}
