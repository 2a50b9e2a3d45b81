package geocoding

import (
	"context"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and a free-form query as input,
// and returns the corresponding [longitude, latitude] pair or an error.
type Provider interface {
	Geocode(ctx context.Context, query string) (models.Coordinates, error)
}
