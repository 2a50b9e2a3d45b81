package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/google/uuid"
)

const officeColumns = `id, name, address, city, state, zip_code, country, coordinates,
	description, images, created_at, updated_at, employees, established`

func scanOffice(row scanner) (models.Office, error) {
	var (
		office models.Office
		coords []float64
	)
	err := row.Scan(
		&office.ID, &office.Name, &office.Address, &office.City, &office.State, &office.ZipCode,
		&office.Country, &coords, &office.Description, &office.Images, &office.CreatedAt,
		&office.UpdatedAt, &office.Employees, &office.Established,
	)
	office.Coordinates = coords
	office.Images = orEmpty(office.Images)
	return office, err
}

// ListOffices returns every office, newest first.
func (r *Repository) ListOffices(ctx context.Context) ([]models.Office, error) {
	return r.queryOffices(ctx, `SELECT `+officeColumns+` FROM offices ORDER BY created_at DESC`)
}

func (r *Repository) queryOffices(ctx context.Context, query string, args ...any) ([]models.Office, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query offices: %w", err)
	}
	defer rows.Close()

	offices := []models.Office{}
	for rows.Next() {
		office, errScan := scanOffice(rows)
		if errScan != nil {
			return nil, fmt.Errorf("failed to scan office: %w", errScan)
		}
		offices = append(offices, office)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return offices, nil
}

// GetOffice returns the office with the given id or ErrNotFound.
func (r *Repository) GetOffice(ctx context.Context, id string) (models.Office, error) {
	office, err := scanOffice(r.db.QueryRow(ctx, `SELECT `+officeColumns+` FROM offices WHERE id = $1`, id))
	if err != nil {
		return models.Office{}, fmt.Errorf("failed to get office %s: %w", id, notFound(err))
	}
	return office, nil
}

// CreateOffice assigns an id and timestamps to office and stores it.
func (r *Repository) CreateOffice(ctx context.Context, office *models.Office) error {
	now := time.Now().UTC()
	office.ID = uuid.NewString()
	office.CreatedAt, office.UpdatedAt = now, now
	office.Images = orEmpty(office.Images)

	query := `
		INSERT INTO offices (` + officeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.db.Exec(ctx, query,
		office.ID, office.Name, office.Address, office.City, office.State, office.ZipCode, office.Country,
		[]float64(office.Coordinates), office.Description, office.Images, office.CreatedAt, office.UpdatedAt,
		office.Employees, office.Established,
	)
	if err != nil {
		return fmt.Errorf("failed to insert office: %w", err)
	}

	r.log.DebugContext(ctx, "Office created", "id", office.ID, "name", office.Name)
	return nil
}

// UpdateOffice replaces every mutable field of the stored office.
func (r *Repository) UpdateOffice(ctx context.Context, office *models.Office) error {
	office.UpdatedAt = time.Now().UTC()
	office.Images = orEmpty(office.Images)

	query := `
		UPDATE offices
		SET
			name = $2, address = $3, city = $4, state = $5, zip_code = $6, country = $7,
			coordinates = $8, description = $9, images = $10, updated_at = $11,
			employees = $12, established = $13
		WHERE id = $1
		RETURNING created_at;
	`
	err := r.db.QueryRow(ctx, query,
		office.ID, office.Name, office.Address, office.City, office.State, office.ZipCode, office.Country,
		[]float64(office.Coordinates), office.Description, office.Images, office.UpdatedAt,
		office.Employees, office.Established,
	).Scan(&office.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to update office %s: %w", office.ID, notFound(err))
	}

	return nil
}

// DeleteOffice removes the office and, through the foreign key, its visits.
func (r *Repository) DeleteOffice(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM offices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete office %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete office %s: %w", id, ErrNotFound)
	}
	return nil
}

// OfficeDetail returns the office with the clients that visited it, latest visit first.
func (r *Repository) OfficeDetail(ctx context.Context, id string) (models.OfficeDetail, error) {
	office, err := r.GetOffice(ctx, id)
	if err != nil {
		return models.OfficeDetail{}, err
	}

	visits, err := r.queryVisits(ctx, `WHERE office_id = $1 ORDER BY visit_date DESC`, id)
	if err != nil {
		return models.OfficeDetail{}, err
	}
	clients, err := r.clientsByID(ctx, collect(visits, func(v models.Visit) string { return v.ClientID }))
	if err != nil {
		return models.OfficeDetail{}, err
	}

	detail := models.OfficeDetail{Office: office, Visits: make([]models.VisitEntry, 0, len(visits))}
	for _, visit := range visits {
		entry := visitEntry(visit)
		if client, ok := clients[visit.ClientID]; ok {
			entry.Client = &client
		}
		detail.Visits = append(detail.Visits, entry)
	}

	return detail, nil
}

func (r *Repository) officesByID(ctx context.Context, ids []string) (map[string]models.Office, error) {
	byID := make(map[string]models.Office, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	offices, err := r.queryOffices(ctx, `SELECT `+officeColumns+` FROM offices WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, office := range offices {
		byID[office.ID] = office
	}
	return byID, nil
}
