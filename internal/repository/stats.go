package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/meridian/internal/models"
)

const recentVisitsLimit = 5

// Stats returns record counts and the most recent visits for the admin dashboard.
func (r *Repository) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats

	query := `
		SELECT
			(SELECT count(*) FROM offices),
			(SELECT count(*) FROM clients),
			(SELECT count(*) FROM visits);
	`
	if err := r.db.QueryRow(ctx, query).Scan(&stats.Offices, &stats.Clients, &stats.Visits); err != nil {
		return models.Stats{}, fmt.Errorf("failed to count records: %w", err)
	}

	visits, err := r.queryVisits(ctx, `ORDER BY visit_date DESC LIMIT $1`, recentVisitsLimit)
	if err != nil {
		return models.Stats{}, err
	}
	stats.RecentVisits, err = r.populate(ctx, visits)
	if err != nil {
		return models.Stats{}, err
	}

	return stats, nil
}
