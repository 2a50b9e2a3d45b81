package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/meridian/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleAPIClient is the part of *maps.Client the provider uses.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when the Google Maps API finds nothing.
var ErrEmptyResponse = errors.New("get empty response from Google Maps API")

// GoogleProvider resolves queries with the Google Maps geocoding API.
type GoogleProvider struct {
	client GoogleAPIClient
	log    *slog.Logger
}

func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode returns the location of the first result for query.
func (gp *GoogleProvider) Geocode(ctx context.Context, query string) (models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "query", query)

	results, err := gp.client.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}

	best := results[0].Geometry.Location
	coords := models.NewCoordinates(best.Lng, best.Lat)
	if err = coords.Validate(); err != nil {
		return nil, fmt.Errorf("google returned an unusable location: %w", err)
	}
	return coords, nil
}
