package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/google/uuid"
)

const visitColumns = `id, office_id, client_id, visit_date, purpose, notes, attendees, images, created_at`

func scanVisit(row scanner) (models.Visit, error) {
	var visit models.Visit
	err := row.Scan(
		&visit.ID, &visit.OfficeID, &visit.ClientID, &visit.VisitDate, &visit.Purpose,
		&visit.Notes, &visit.Attendees, &visit.Images, &visit.CreatedAt,
	)
	visit.Attendees = orEmpty(visit.Attendees)
	visit.Images = orEmpty(visit.Images)
	return visit, err
}

func (r *Repository) queryVisits(ctx context.Context, clause string, args ...any) ([]models.Visit, error) {
	rows, err := r.db.Query(ctx, `SELECT `+visitColumns+` FROM visits `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	visits := []models.Visit{}
	for rows.Next() {
		visit, errScan := scanVisit(rows)
		if errScan != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", errScan)
		}
		visits = append(visits, visit)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return visits, nil
}

// ListVisits returns every visit with its office and client, latest first.
func (r *Repository) ListVisits(ctx context.Context) ([]models.PopulatedVisit, error) {
	visits, err := r.queryVisits(ctx, `ORDER BY visit_date DESC`)
	if err != nil {
		return nil, err
	}
	return r.populate(ctx, visits)
}

// GetVisit returns the visit with the given id, populated, or ErrNotFound.
func (r *Repository) GetVisit(ctx context.Context, id string) (models.PopulatedVisit, error) {
	visit, err := scanVisit(r.db.QueryRow(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id))
	if err != nil {
		return models.PopulatedVisit{}, fmt.Errorf("failed to get visit %s: %w", id, notFound(err))
	}

	populated, err := r.populate(ctx, []models.Visit{visit})
	if err != nil {
		return models.PopulatedVisit{}, err
	}
	return populated[0], nil
}

// CreateVisit assigns an id to visit and stores it. Unknown office or client
// ids fail with ErrUnknownReference.
func (r *Repository) CreateVisit(ctx context.Context, visit *models.Visit) error {
	visit.ID = uuid.NewString()
	visit.CreatedAt = time.Now().UTC()
	visit.Attendees = orEmpty(visit.Attendees)
	visit.Images = orEmpty(visit.Images)

	query := `
		INSERT INTO visits (` + visitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.db.Exec(ctx, query,
		visit.ID, visit.OfficeID, visit.ClientID, visit.VisitDate, visit.Purpose,
		visit.Notes, visit.Attendees, visit.Images, visit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", referenceError(err))
	}

	return nil
}

// UpdateVisit replaces every mutable field of the stored visit.
func (r *Repository) UpdateVisit(ctx context.Context, visit *models.Visit) error {
	visit.Attendees = orEmpty(visit.Attendees)
	visit.Images = orEmpty(visit.Images)

	query := `
		UPDATE visits
		SET
			office_id = $2, client_id = $3, visit_date = $4, purpose = $5,
			notes = $6, attendees = $7, images = $8
		WHERE id = $1
		RETURNING created_at;
	`
	err := r.db.QueryRow(ctx, query,
		visit.ID, visit.OfficeID, visit.ClientID, visit.VisitDate, visit.Purpose,
		visit.Notes, visit.Attendees, visit.Images,
	).Scan(&visit.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to update visit %s: %w", visit.ID, referenceError(notFound(err)))
	}

	return nil
}

// DeleteVisit removes a visit.
func (r *Repository) DeleteVisit(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM visits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete visit %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete visit %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *Repository) populate(ctx context.Context, visits []models.Visit) ([]models.PopulatedVisit, error) {
	offices, err := r.officesByID(ctx, collect(visits, func(v models.Visit) string { return v.OfficeID }))
	if err != nil {
		return nil, err
	}
	clients, err := r.clientsByID(ctx, collect(visits, func(v models.Visit) string { return v.ClientID }))
	if err != nil {
		return nil, err
	}

	populated := make([]models.PopulatedVisit, 0, len(visits))
	for _, visit := range visits {
		pv := models.PopulatedVisit{Visit: visit}
		if office, ok := offices[visit.OfficeID]; ok {
			pv.Office = &office
		}
		if client, ok := clients[visit.ClientID]; ok {
			pv.Client = &client
		}
		populated = append(populated, pv)
	}
	return populated, nil
}

func visitEntry(visit models.Visit) models.VisitEntry {
	return models.VisitEntry{
		VisitDate: visit.VisitDate,
		Purpose:   visit.Purpose,
		Notes:     visit.Notes,
		Attendees: visit.Attendees,
		Images:    visit.Images,
	}
}

// collect returns the distinct non-empty keys of visits in first-seen order.
func collect(visits []models.Visit, key func(models.Visit) string) []string {
	seen := make(map[string]struct{}, len(visits))
	ids := make([]string, 0, len(visits))
	for _, visit := range visits {
		id := key(visit)
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
