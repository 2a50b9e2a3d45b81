package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/repository"
	"github.com/UnknownOlympus/meridian/internal/service"
	"github.com/google/uuid"
)

// memoryRepo is an in-memory repository.Interface.
type memoryRepo struct {
	mu          sync.Mutex
	offices     map[string]models.Office
	clients     map[string]models.Client
	visits      map[string]models.Visit
	listOffices int
	panicStats  bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		offices: map[string]models.Office{},
		clients: map[string]models.Client{},
		visits:  map[string]models.Visit{},
	}
}

func (m *memoryRepo) ListOffices(context.Context) ([]models.Office, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listOffices++
	out := make([]models.Office, 0, len(m.offices))
	for _, office := range m.offices {
		out = append(out, office)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) GetOffice(_ context.Context, id string) (models.Office, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	office, ok := m.offices[id]
	if !ok {
		return models.Office{}, fmt.Errorf("failed to get office %s: %w", id, repository.ErrNotFound)
	}
	return office, nil
}

func (m *memoryRepo) CreateOffice(_ context.Context, office *models.Office) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	office.ID = uuid.NewString()
	office.CreatedAt = time.Now().UTC()
	office.UpdatedAt = office.CreatedAt
	if office.Images == nil {
		office.Images = []string{}
	}
	m.offices[office.ID] = *office
	return nil
}

func (m *memoryRepo) UpdateOffice(_ context.Context, office *models.Office) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.offices[office.ID]; !ok {
		return repository.ErrNotFound
	}
	office.UpdatedAt = time.Now().UTC()
	m.offices[office.ID] = *office
	return nil
}

func (m *memoryRepo) DeleteOffice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.offices[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.offices, id)
	for visitID, visit := range m.visits {
		if visit.OfficeID == id {
			delete(m.visits, visitID)
		}
	}
	return nil
}

func (m *memoryRepo) OfficeDetail(ctx context.Context, id string) (models.OfficeDetail, error) {
	office, err := m.GetOffice(ctx, id)
	if err != nil {
		return models.OfficeDetail{}, err
	}
	visits, _ := m.ListVisits(ctx)
	detail := models.OfficeDetail{Office: office, Visits: []models.VisitEntry{}}
	for _, visit := range visits {
		if visit.OfficeID == id {
			detail.Visits = append(detail.Visits, models.VisitEntry{
				Client: visit.Client, VisitDate: visit.VisitDate, Purpose: visit.Purpose,
				Attendees: visit.Attendees, Images: visit.Images,
			})
		}
	}
	return detail, nil
}

func (m *memoryRepo) ListClients(context.Context) ([]models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Client, 0, len(m.clients))
	for _, client := range m.clients {
		out = append(out, client)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) GetClient(_ context.Context, id string) (models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client, ok := m.clients[id]
	if !ok {
		return models.Client{}, repository.ErrNotFound
	}
	return client, nil
}

func (m *memoryRepo) CreateClient(_ context.Context, client *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	client.ID = uuid.NewString()
	client.CreatedAt = time.Now().UTC()
	if client.Images == nil {
		client.Images = []string{}
	}
	m.clients[client.ID] = *client
	return nil
}

func (m *memoryRepo) UpdateClient(_ context.Context, client *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[client.ID]; !ok {
		return repository.ErrNotFound
	}
	m.clients[client.ID] = *client
	return nil
}

func (m *memoryRepo) DeleteClient(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.clients, id)
	for visitID, visit := range m.visits {
		if visit.ClientID == id {
			delete(m.visits, visitID)
		}
	}
	return nil
}

func (m *memoryRepo) ClientDetail(ctx context.Context, id string) (models.ClientDetail, error) {
	client, err := m.GetClient(ctx, id)
	if err != nil {
		return models.ClientDetail{}, err
	}
	visits, _ := m.ListVisits(ctx)
	detail := models.ClientDetail{Client: client, Visits: []models.VisitEntry{}}
	for _, visit := range visits {
		if visit.ClientID == id {
			detail.Visits = append(detail.Visits, models.VisitEntry{
				Office: visit.Office, VisitDate: visit.VisitDate, Purpose: visit.Purpose,
				Attendees: visit.Attendees, Images: visit.Images,
			})
		}
	}
	return detail, nil
}

func (m *memoryRepo) ListVisits(context.Context) ([]models.PopulatedVisit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PopulatedVisit, 0, len(m.visits))
	for _, visit := range m.visits {
		out = append(out, m.populate(visit))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitDate.After(out[j].VisitDate) })
	return out, nil
}

func (m *memoryRepo) GetVisit(_ context.Context, id string) (models.PopulatedVisit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	visit, ok := m.visits[id]
	if !ok {
		return models.PopulatedVisit{}, repository.ErrNotFound
	}
	return m.populate(visit), nil
}

func (m *memoryRepo) populate(visit models.Visit) models.PopulatedVisit {
	populated := models.PopulatedVisit{Visit: visit}
	if office, ok := m.offices[visit.OfficeID]; ok {
		populated.Office = &office
	}
	if client, ok := m.clients[visit.ClientID]; ok {
		populated.Client = &client
	}
	return populated
}

func (m *memoryRepo) CreateVisit(_ context.Context, visit *models.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, officeOK := m.offices[visit.OfficeID]
	_, clientOK := m.clients[visit.ClientID]
	if !officeOK || !clientOK {
		return fmt.Errorf("failed to insert visit: %w", repository.ErrUnknownReference)
	}
	visit.ID = uuid.NewString()
	visit.CreatedAt = time.Now().UTC()
	if visit.Images == nil {
		visit.Images = []string{}
	}
	m.visits[visit.ID] = *visit
	return nil
}

func (m *memoryRepo) UpdateVisit(_ context.Context, visit *models.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.visits[visit.ID]; !ok {
		return repository.ErrNotFound
	}
	m.visits[visit.ID] = *visit
	return nil
}

func (m *memoryRepo) DeleteVisit(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.visits[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.visits, id)
	return nil
}

func (m *memoryRepo) Stats(ctx context.Context) (models.Stats, error) {
	if m.panicStats {
		panic("stats exploded")
	}
	visits, _ := m.ListVisits(ctx)
	if len(visits) > 5 {
		visits = visits[:5]
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.Stats{Offices: len(m.offices), Clients: len(m.clients), Visits: len(m.visits), RecentVisits: visits}, nil
}

// memoryCache keeps JSON encoded values like the redis cache does.
type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *memoryCache) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

type stubGeocoder struct {
	coords models.Coordinates
	err    error
}

func (g stubGeocoder) Lookup(_ context.Context, address, city, country string) (models.Coordinates, error) {
	if _, err := service.Query(address, city, country); err != nil {
		return nil, err
	}
	return g.coords, g.err
}
