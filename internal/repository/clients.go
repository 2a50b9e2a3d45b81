package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/google/uuid"
)

const clientColumns = `id, name, address, city, state, zip_code, country, coordinates,
	description, images, created_at, updated_at, industry, partnership_since`

func scanClient(row scanner) (models.Client, error) {
	var (
		client models.Client
		coords []float64
	)
	err := row.Scan(
		&client.ID, &client.Name, &client.Address, &client.City, &client.State, &client.ZipCode,
		&client.Country, &coords, &client.Description, &client.Images, &client.CreatedAt,
		&client.UpdatedAt, &client.Industry, &client.PartnershipSince,
	)
	client.Coordinates = coords
	client.Images = orEmpty(client.Images)
	return client, err
}

// ListClients returns every client, newest first.
func (r *Repository) ListClients(ctx context.Context) ([]models.Client, error) {
	return r.queryClients(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC`)
}

func (r *Repository) queryClients(ctx context.Context, query string, args ...any) ([]models.Client, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		client, errScan := scanClient(rows)
		if errScan != nil {
			return nil, fmt.Errorf("failed to scan client: %w", errScan)
		}
		clients = append(clients, client)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return clients, nil
}

// GetClient returns the client with the given id or ErrNotFound.
func (r *Repository) GetClient(ctx context.Context, id string) (models.Client, error) {
	client, err := scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		return models.Client{}, fmt.Errorf("failed to get client %s: %w", id, notFound(err))
	}
	return client, nil
}

// CreateClient assigns an id and timestamps to client and stores it.
func (r *Repository) CreateClient(ctx context.Context, client *models.Client) error {
	now := time.Now().UTC()
	client.ID = uuid.NewString()
	client.CreatedAt, client.UpdatedAt = now, now
	client.Images = orEmpty(client.Images)

	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.db.Exec(ctx, query,
		client.ID, client.Name, client.Address, client.City, client.State, client.ZipCode, client.Country,
		[]float64(client.Coordinates), client.Description, client.Images, client.CreatedAt, client.UpdatedAt,
		client.Industry, client.PartnershipSince,
	)
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}

	r.log.DebugContext(ctx, "Client created", "id", client.ID, "name", client.Name)
	return nil
}

// UpdateClient replaces every mutable field of the stored client.
func (r *Repository) UpdateClient(ctx context.Context, client *models.Client) error {
	client.UpdatedAt = time.Now().UTC()
	client.Images = orEmpty(client.Images)

	query := `
		UPDATE clients
		SET
			name = $2, address = $3, city = $4, state = $5, zip_code = $6, country = $7,
			coordinates = $8, description = $9, images = $10, updated_at = $11,
			industry = $12, partnership_since = $13
		WHERE id = $1
		RETURNING created_at;
	`
	err := r.db.QueryRow(ctx, query,
		client.ID, client.Name, client.Address, client.City, client.State, client.ZipCode, client.Country,
		[]float64(client.Coordinates), client.Description, client.Images, client.UpdatedAt,
		client.Industry, client.PartnershipSince,
	).Scan(&client.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to update client %s: %w", client.ID, notFound(err))
	}

	return nil
}

// DeleteClient removes the client and, through the foreign key, its visits.
func (r *Repository) DeleteClient(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete client %s: %w", id, ErrNotFound)
	}
	return nil
}

// ClientDetail returns the client with the offices it visited, latest visit first.
func (r *Repository) ClientDetail(ctx context.Context, id string) (models.ClientDetail, error) {
	client, err := r.GetClient(ctx, id)
	if err != nil {
		return models.ClientDetail{}, err
	}

	visits, err := r.queryVisits(ctx, `WHERE client_id = $1 ORDER BY visit_date DESC`, id)
	if err != nil {
		return models.ClientDetail{}, err
	}
	offices, err := r.officesByID(ctx, collect(visits, func(v models.Visit) string { return v.OfficeID }))
	if err != nil {
		return models.ClientDetail{}, err
	}

	detail := models.ClientDetail{Client: client, Visits: make([]models.VisitEntry, 0, len(visits))}
	for _, visit := range visits {
		entry := visitEntry(visit)
		if office, ok := offices[visit.OfficeID]; ok {
			entry.Office = &office
		}
		detail.Visits = append(detail.Visits, entry)
	}

	return detail, nil
}

func (r *Repository) clientsByID(ctx context.Context, ids []string) (map[string]models.Client, error) {
	byID := make(map[string]models.Client, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	clients, err := r.queryClients(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, client := range clients {
		byID[client.ID] = client
	}
	return byID, nil
}
