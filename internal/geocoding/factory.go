package geocoding

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"googlemaps.github.io/maps"
)

// ProviderType names a geocoding backend in configuration.
type ProviderType string

const (
	ProviderTypeGoogle    ProviderType = "google"
	ProviderTypeNominatim ProviderType = "nominatim"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported geocoding provider")
	ErrMissingAPIKey       = errors.New("API key is required for Google provider")
)

// ProviderConfig selects and tunes a provider.
type ProviderConfig struct {
	Type      ProviderType
	APIKey    string // APIKey authenticates against Google.
	RateLimit int    // RateLimit caps Google requests per second; zero leaves the client default.
	BaseURL   string // BaseURL points Nominatim at a self-hosted instance.
	Logger    *slog.Logger
}

// NewProvider builds the provider named by cfg.Type, compared case-insensitively.
// Nominatim needs no key and always keeps its 1 request/second limit.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	switch ProviderType(strings.ToLower(strings.TrimSpace(string(cfg.Type)))) {
	case ProviderTypeGoogle:
		return newGoogleProvider(cfg)
	case ProviderTypeNominatim:
		provider := NewNominatimProvider(cfg.Logger)
		if cfg.BaseURL != "" {
			provider.SetEndpoint(cfg.BaseURL)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Type)
	}
}

func newGoogleProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []maps.ClientOption{maps.WithAPIKey(cfg.APIKey)}
	if cfg.RateLimit > 0 {
		opts = append(opts, maps.WithRateLimit(cfg.RateLimit))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, cfg.Logger), nil
}
