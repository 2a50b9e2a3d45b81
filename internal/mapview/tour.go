package mapview

import (
	"sort"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// SortForTour returns a copy of locations ordered by country and then city,
// comparing the raw strings. The input slice is left untouched.
func SortForTour(locations []models.Location) []models.Location {
	tour := make([]models.Location, len(locations))
	copy(tour, locations)
	sort.SliceStable(tour, func(i, j int) bool {
		if tour[i].Country != tour[j].Country {
			return tour[i].Country < tour[j].Country
		}
		return tour[i].City < tour[j].City
	})
	return tour
}
