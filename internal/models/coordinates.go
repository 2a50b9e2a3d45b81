package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidCoordinates is returned when a coordinates value is not a finite
// [longitude, latitude] pair inside WGS84 bounds.
var ErrInvalidCoordinates = errors.New("coordinates must be [longitude, latitude]")

// Coordinates represents a geographical point as the [longitude, latitude] pair
// used on the wire and in storage.
type Coordinates []float64

// NewCoordinates builds a coordinates pair from longitude and latitude.
func NewCoordinates(lon, lat float64) Coordinates {
	return Coordinates{lon, lat}
}

// Longitude of the geographical point. Zero for malformed values.
func (c Coordinates) Longitude() float64 {
	if len(c) != 2 {
		return 0
	}
	return c[0]
}

// Latitude of the geographical point. Zero for malformed values.
func (c Coordinates) Latitude() float64 {
	if len(c) != 2 {
		return 0
	}
	return c[1]
}

// Validate reports whether c is a finite 2-element pair with lon in [-180,180]
// and lat in [-90,90].
func (c Coordinates) Validate() error {
	if len(c) != 2 {
		return fmt.Errorf("%w: got %d values", ErrInvalidCoordinates, len(c))
	}
	lon, lat := c[0], c[1]
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return fmt.Errorf("%w: non-finite value", ErrInvalidCoordinates)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinates, lon)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinates, lat)
	}
	return nil
}

// Point converts the pair into an orb.Point after validating it.
func (c Coordinates) Point() (orb.Point, error) {
	if err := c.Validate(); err != nil {
		return orb.Point{}, err
	}
	return orb.Point{c[0], c[1]}, nil
}
