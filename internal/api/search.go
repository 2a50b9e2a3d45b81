package api

import (
	"strings"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// matches reports whether q fuzzily matches any of the targets, ignoring case and accents.
func matches(q string, targets ...string) bool {
	for _, target := range targets {
		if target != "" && fuzzy.MatchNormalizedFold(q, target) {
			return true
		}
	}
	return false
}

func filterOffices(offices []models.Office, q string) []models.Office {
	out := []models.Office{}
	for _, office := range offices {
		if matches(q, office.Name, office.City) {
			out = append(out, office)
		}
	}
	return out
}

func filterClients(clients []models.Client, q string) []models.Client {
	out := []models.Client{}
	for _, client := range clients {
		if matches(q, client.Name, client.City, client.Industry) {
			out = append(out, client)
		}
	}
	return out
}

func filterVisits(visits []models.PopulatedVisit, q string) []models.PopulatedVisit {
	out := []models.PopulatedVisit{}
	for _, visit := range visits {
		var officeName, clientName string
		if visit.Office != nil {
			officeName = visit.Office.Name
		}
		if visit.Client != nil {
			clientName = visit.Client.Name
		}
		if matches(q, clientName, officeName, visit.Purpose) {
			out = append(out, visit)
		}
	}
	return out
}

func searchQuery(raw string) string {
	return strings.TrimSpace(raw)
}
