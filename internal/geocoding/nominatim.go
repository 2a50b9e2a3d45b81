package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/meridian/internal/models"
	"golang.org/x/time/rate"
)

const (
	nominatimURL       = "https://nominatim.openstreetmap.org/search"
	nominatimUserAgent = "Meridian-Geocoding-Service/1.0 (https://github.com/UnknownOlympus/meridian)"
	nominatimTimeout   = 10 * time.Second
)

// NominatimProvider resolves queries with OpenStreetMap's Nominatim search API.
// All requests share one limiter; the public instance allows 1 request/second.
type NominatimProvider struct {
	client    HTTPClient
	limiter   *rate.Limiter
	endpoint  string
	userAgent string
	log       *slog.Logger
}

// HTTPClient is the part of *http.Client the providers use.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

// NewNominatimProvider creates a provider for the public Nominatim instance.
func NewNominatimProvider(log *slog.Logger) *NominatimProvider {
	return NewNominatimProviderWithClient(
		&http.Client{Timeout: nominatimTimeout},
		rate.NewLimiter(rate.Every(time.Second), 1),
		log,
	)
}

// NewNominatimProviderWithClient creates a provider with its own HTTP client and limiter.
func NewNominatimProviderWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		client:    client,
		limiter:   limiter,
		endpoint:  nominatimURL,
		userAgent: nominatimUserAgent,
		log:       log,
	}
}

// SetEndpoint points the provider at a self-hosted search endpoint.
func (np *NominatimProvider) SetEndpoint(endpoint string) {
	np.endpoint = endpoint
}

// Geocode returns the coordinates of the best match for query.
//
// An empty result retries with the leading component dropped
// ("Unit 9, 221B Baker Street, London, UK" -> "221B Baker Street, London, UK")
// while at least two components remain. Any other failure ends the search.
func (np *NominatimProvider) Geocode(ctx context.Context, query string) (models.Coordinates, error) {
	candidates := queryFallbacks(query)
	for level, candidate := range candidates {
		np.log.DebugContext(ctx, "Geocoding using Nominatim", "query", candidate, "fallback_level", level)

		coords, err := np.search(ctx, candidate)
		switch {
		case err == nil:
			if level > 0 {
				np.log.InfoContext(ctx, "Geocoded using fallback query", "original", query, "fallback", candidate)
			}
			return coords, nil
		case !errors.Is(err, ErrNominatimEmptyResponse):
			return nil, err
		}
	}

	np.log.WarnContext(ctx, "No Nominatim match", "query", query, "attempts", len(candidates))
	return nil, ErrNominatimEmptyResponse
}

// queryFallbacks lists query and its shorter variants, longest first.
func queryFallbacks(query string) []string {
	var parts []string
	for _, part := range strings.Split(query, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) < 2 {
		return []string{strings.Join(parts, "")}
	}

	out := make([]string, 0, len(parts)-1)
	for start := 0; len(parts)-start >= 2; start++ {
		out = append(out, strings.Join(parts[start:], ", "))
	}
	return out
}

func (np *NominatimProvider) search(ctx context.Context, query string) (models.Coordinates, error) {
	if err := np.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	req, err := np.newRequest(ctx, query)
	if err != nil {
		return nil, err
	}

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	return decodePlaces(body)
}

func (np *NominatimProvider) newRequest(ctx context.Context, query string) (*http.Request, error) {
	target, err := url.Parse(np.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint: %w", err)
	}
	target.RawQuery = url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func decodePlaces(body []byte) (models.Coordinates, error) {
	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(places) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, places[0].Lat)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, places[0].Lon)
	}

	coords := models.NewCoordinates(lon, lat)
	if err = coords.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNominatimInvalidCoords, err)
	}
	return coords, nil
}
