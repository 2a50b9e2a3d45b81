package locations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
	"golang.org/x/sync/errgroup"
)

// Source fetches the records shown on the map.
type Source interface {
	Offices(ctx context.Context) ([]models.Office, error)
	Clients(ctx context.Context) ([]models.Client, error)
}

// Store is the in-memory snapshot of offices and clients read by the map view.
// It also holds the per-phase toggles of the ambient loop.
type Store struct {
	source  Source
	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	byKind  map[models.Kind][]models.Location
	enabled map[models.Kind]bool
}

// NewStore creates an empty store. Both phases start enabled; metrics may be nil.
func NewStore(source Source, log *slog.Logger, m *metrics.Metrics) *Store {
	return &Store{
		source:  source,
		log:     log,
		metrics: m,
		byKind:  map[models.Kind][]models.Location{},
		enabled: map[models.Kind]bool{models.KindOffice: true, models.KindClient: true},
	}
}

// Refresh replaces the snapshot with the current records of the source.
// On failure the previous snapshot is kept.
func (s *Store) Refresh(ctx context.Context) error {
	var (
		offices []models.Office
		clients []models.Client
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		offices, err = s.source.Offices(gctx)
		return err
	})
	group.Go(func() error {
		var err error
		clients, err = s.source.Clients(gctx)
		return err
	})
	if err := group.Wait(); err != nil {
		return fmt.Errorf("failed to refresh locations: %w", err)
	}

	officeLocations := make([]models.Location, 0, len(offices))
	for _, office := range offices {
		officeLocations = s.appendValid(ctx, officeLocations, office.Location())
	}
	clientLocations := make([]models.Location, 0, len(clients))
	for _, client := range clients {
		clientLocations = s.appendValid(ctx, clientLocations, client.Location())
	}

	s.mu.Lock()
	s.byKind[models.KindOffice] = officeLocations
	s.byKind[models.KindClient] = clientLocations
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.LocationsOnDisplay.WithLabelValues(string(models.KindOffice)).Set(float64(len(officeLocations)))
		s.metrics.LocationsOnDisplay.WithLabelValues(string(models.KindClient)).Set(float64(len(clientLocations)))
	}
	s.log.InfoContext(ctx, "Locations refreshed", "offices", len(officeLocations), "clients", len(clientLocations))
	return nil
}

func (s *Store) appendValid(ctx context.Context, out []models.Location, loc models.Location) []models.Location {
	if err := loc.Coordinates.Validate(); err != nil {
		s.log.WarnContext(ctx, "Skipping location with invalid coordinates", "id", loc.ID, "name", loc.Name, "error", err)
		return out
	}
	return append(out, loc)
}

// List returns a copy of the locations of kind in source order.
func (s *Store) List(kind models.Kind) []models.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Location(nil), s.byKind[kind]...)
}

// All returns offices followed by clients.
func (s *Store) All() []models.Location {
	return append(s.List(models.KindOffice), s.List(models.KindClient)...)
}

func (s *Store) Enabled(kind models.Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[kind]
}

func (s *Store) SetEnabled(kind models.Kind, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[kind] = on
}

// Toggle flips the phase of kind and returns the new value.
func (s *Store) Toggle(kind models.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[kind] = !s.enabled[kind]
	return s.enabled[kind]
}
