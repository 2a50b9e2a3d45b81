package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/UnknownOlympus/meridian/internal/cache"
	"github.com/UnknownOlympus/meridian/internal/geocoding"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
)

var (
	// ErrMissingQuery is returned when neither an address nor a city is given.
	ErrMissingQuery = errors.New("address or city is required")
	// ErrLocationNotFound is returned when the provider has no result for the query.
	ErrLocationNotFound = errors.New("location not found")
)

const cachePrefix = "geocode:"

// GeocodingService resolves the address fields of a record to coordinates.
type GeocodingService struct {
	log          *slog.Logger
	provider     geocoding.Provider
	providerName string // providerName labels metrics
	metrics      *metrics.Metrics
	cache        cache.Cache
}

// NewGeocodingService creates a new instance of GeocodingService.
// Results are kept in c, pass cache.Nop{} to disable it.
func NewGeocodingService(
	log *slog.Logger,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	c cache.Cache,
) *GeocodingService {
	return &GeocodingService{
		log:          log,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
		cache:        c,
	}
}

// Query builds the provider query: the address when set, otherwise
// "city, country" or just the city.
func Query(address, city, country string) (string, error) {
	address, city, country = strings.TrimSpace(address), strings.TrimSpace(city), strings.TrimSpace(country)
	switch {
	case address != "":
		return address, nil
	case city == "":
		return "", ErrMissingQuery
	case country != "":
		return city + ", " + country, nil
	default:
		return city, nil
	}
}

// Lookup returns the coordinates of the record location.
func (gs *GeocodingService) Lookup(ctx context.Context, address, city, country string) (models.Coordinates, error) {
	query, err := Query(address, city, country)
	if err != nil {
		return nil, err
	}

	var cached models.Coordinates
	found, err := gs.cache.Get(ctx, cachePrefix+query, &cached)
	if err != nil {
		gs.log.WarnContext(ctx, "Geocoding cache unavailable", "error", err)
	}
	if found && cached.Validate() == nil {
		return cached, nil
	}

	startTime := time.Now()
	coords, err := gs.provider.Geocode(ctx, query)
	gs.metrics.GeocodingSeconds.WithLabelValues(gs.providerName).Observe(time.Since(startTime).Seconds())

	if errors.Is(err, geocoding.ErrEmptyResponse) || errors.Is(err, geocoding.ErrNominatimEmptyResponse) {
		gs.metrics.GeocodingRequests.WithLabelValues(gs.providerName, "not_found").Inc()
		gs.log.InfoContext(ctx, "Location not found", "query", query)
		return nil, ErrLocationNotFound
	}
	if err != nil {
		gs.metrics.GeocodingRequests.WithLabelValues(gs.providerName, "failure").Inc()
		gs.log.ErrorContext(ctx, "Failed to geocode", "query", query, "error", err)
		return nil, fmt.Errorf("failed to geocode %q: %w", query, err)
	}
	gs.metrics.GeocodingRequests.WithLabelValues(gs.providerName, "success").Inc()

	if err = gs.cache.Set(ctx, cachePrefix+query, coords); err != nil {
		gs.log.WarnContext(ctx, "Failed to cache geocoding result", "query", query, "error", err)
	}
	return coords, nil
}
