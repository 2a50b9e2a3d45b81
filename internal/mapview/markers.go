package mapview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/paulmach/orb"
)

// ActivateFunc handles a marker activation.
type ActivateFunc func(ctx context.Context, loc models.Location) error

// Marker is an interactive point for one location. Its handler is fixed when
// the marker is added.
type Marker struct {
	Location models.Location
	Point    orb.Point
	Color    string

	onActivate ActivateFunc
}

// MarkerLayer holds the markers drawn above the base map.
type MarkerLayer struct {
	mu      sync.RWMutex
	markers []Marker
	log     *slog.Logger
}

// NewMarkerLayer creates an empty layer.
func NewMarkerLayer(log *slog.Logger) *MarkerLayer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &MarkerLayer{log: log}
}

// MarkerColor returns the marker color for a location kind.
func MarkerColor(kind models.Kind) string {
	if kind == models.KindClient {
		return ClientColor
	}
	return OfficeColor
}

// Add places a marker for loc. Locations with malformed coordinates are rejected.
func (l *MarkerLayer) Add(loc models.Location, onActivate ActivateFunc) error {
	point, err := loc.Coordinates.Point()
	if err != nil {
		return fmt.Errorf("failed to add marker %q: %w", loc.ID, err)
	}

	l.mu.Lock()
	l.markers = append(l.markers, Marker{
		Location:   loc,
		Point:      point,
		Color:      MarkerColor(loc.Kind),
		onActivate: onActivate,
	})
	l.mu.Unlock()
	return nil
}

// Reset replaces all markers. Locations that cannot be placed are logged and skipped.
func (l *MarkerLayer) Reset(locations []models.Location, onActivate ActivateFunc) {
	l.mu.Lock()
	l.markers = nil
	l.mu.Unlock()

	for _, loc := range locations {
		if err := l.Add(loc, onActivate); err != nil {
			l.log.Warn("Skipping marker", "id", loc.ID, "name", loc.Name, "error", err)
		}
	}
}

// Markers returns a copy of the markers in insertion order.
func (l *MarkerLayer) Markers() []Marker {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Marker(nil), l.markers...)
}

// HitTest returns the marker nearest to sp within radius container units.
func (l *MarkerLayer) HitTest(proj Projection, sp ScreenPoint, radius float64) (Marker, bool) {
	var (
		best  Marker
		found bool
		dist  = math.Inf(1)
	)
	for _, m := range l.Markers() {
		at, err := proj.Project(m.Point)
		if err != nil {
			return Marker{}, false
		}
		d := math.Hypot(at.X-sp.X, at.Y-sp.Y)
		if d <= radius && d < dist {
			best, found, dist = m, true, d
		}
	}
	return best, found
}

// Activate runs the marker's handler.
func (l *MarkerLayer) Activate(ctx context.Context, m Marker) error {
	if m.onActivate == nil {
		return nil
	}
	return m.onActivate(ctx, m.Location)
}
