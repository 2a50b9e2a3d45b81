package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/meridian/internal/api"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/service"
	"github.com/UnknownOlympus/meridian/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fixture struct {
	handler http.Handler
	repo    *memoryRepo
	cache   *memoryCache
	root    string
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, geocoder api.Geocoder) *fixture {
	t.Helper()
	t.Cleanup(func() { filet.CleanUp(t) })

	root := filet.TmpDir(t, "")
	disk, err := storage.NewDisk(root)
	require.NoError(t, err)

	repo := newMemoryRepo()
	c := newMemoryCache()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := api.NewServer(logger, repo, disk, geocoder, c, m)

	return &fixture{handler: server.Handler(), repo: repo, cache: c, root: root, metrics: m}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) doJSON(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return f.do(t, req)
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...[]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for i, data := range files {
		part, err := writer.CreateFormFile("images", fmt.Sprintf("photo-%d.png", i))
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func officeForm(name, city string) map[string]string {
	return map[string]string{
		"name":        name,
		"address":     "1 Market St",
		"city":        city,
		"state":       "CA",
		"zipCode":     "94105",
		"country":     "USA",
		"coordinates": "[-122.4194, 37.7749]",
		"employees":   "120",
		"established": "2010",
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func seedOffice(t *testing.T, f *fixture, name, city string) models.Office {
	t.Helper()
	rec := f.do(t, multipartRequest(t, http.MethodPost, "/api/offices", officeForm(name, city)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Office](t, rec)
}

func seedClient(t *testing.T, f *fixture, name, industry string) models.Client {
	t.Helper()
	rec := f.doJSON(t, http.MethodPost, "/api/clients", map[string]any{
		"name":        name,
		"address":     "5th Avenue 1",
		"city":        "New York",
		"state":       "NY",
		"zipCode":     "10001",
		"country":     "United States",
		"coordinates": []float64{-74.006, 40.7128},
		"industry":    industry,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Client](t, rec)
}

func TestOffices(t *testing.T) {
	t.Run("success - create with image and serve it", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})

		rec := f.do(t, multipartRequest(t, http.MethodPost, "/api/offices", officeForm("  HQ  ", "San Francisco"), pngImage))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		office := decode[models.Office](t, rec)
		assert.NotEmpty(t, office.ID)
		assert.Equal(t, "HQ", office.Name)
		assert.Equal(t, models.Coordinates{-122.4194, 37.7749}, office.Coordinates)
		require.NotNil(t, office.Employees)
		assert.Equal(t, 120, *office.Employees)
		require.Len(t, office.Images, 1)
		assert.True(t, strings.HasPrefix(office.Images[0], "/uploads/offices/office-"))

		image := f.do(t, httptest.NewRequest(http.MethodGet, office.Images[0], nil))
		require.Equal(t, http.StatusOK, image.Code)
		assert.Equal(t, "image/png", image.Header().Get("Content-Type"))
		assert.Equal(t, pngImage, image.Body.Bytes())
	})

	t.Run("error - validation", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})
		form := officeForm("", "London")
		form["coordinates"] = "[200, 10]"

		rec := f.do(t, multipartRequest(t, http.MethodPost, "/api/offices", form))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		msg := errorMessage(t, rec)
		assert.Contains(t, msg, "name is required")
		assert.Contains(t, msg, "coordinates must be [longitude, latitude]")
		assert.Empty(t, f.repo.offices)
	})

	t.Run("error - future founding year", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})
		form := officeForm("HQ", "London")
		form["established"] = "3000"

		rec := f.do(t, multipartRequest(t, http.MethodPost, "/api/offices", form))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "established cannot be in the future")
	})

	t.Run("error - non image upload is rejected", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})

		rec := f.do(t, multipartRequest(t, http.MethodPost, "/api/offices",
			officeForm("HQ", "London"), []byte("plain text pretending to be a photo")))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "only image files are allowed")
		assert.Empty(t, f.repo.offices)
	})

	t.Run("error - too many images", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})
		images := [][]byte{pngImage, pngImage, pngImage, pngImage, pngImage, pngImage}

		rec := f.do(t, multipartRequest(t, http.MethodPost, "/api/offices", officeForm("HQ", "London"), images...))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		entries, err := os.ReadDir(filepath.Join(f.root, "offices"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("error - not found", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})

		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/offices/missing", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Office not found", errorMessage(t, rec))
	})

	t.Run("success - list is cached until a write", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})
		seedOffice(t, f, "HQ", "San Francisco")

		for range 2 {
			rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/offices", nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, decode[[]models.Office](t, rec), 1)
		}
		assert.Equal(t, 1, f.repo.listOffices)
		assert.True(t, f.cache.has("offices"))

		seedOffice(t, f, "London Hub", "London")
		assert.False(t, f.cache.has("offices"))

		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/offices", nil))
		assert.Len(t, decode[[]models.Office](t, rec), 2)
		assert.Equal(t, 2, f.repo.listOffices)
	})

	t.Run("success - fuzzy search", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})
		seedOffice(t, f, "HQ", "San Francisco")
		seedOffice(t, f, "Hub", "London")

		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/offices?q=lndn", nil))

		offices := decode[[]models.Office](t, rec)
		require.Len(t, offices, 1)
		assert.Equal(t, "London", offices[0].City)
		assert.False(t, f.cache.has("offices"))
	})

	t.Run("success - update keeps listed images and removes the rest", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})
		rec := f.do(t, multipartRequest(t, http.MethodPost, "/api/offices", officeForm("HQ", "San Francisco"), pngImage, pngImage))
		require.Equal(t, http.StatusCreated, rec.Code)
		office := decode[models.Office](t, rec)
		require.Len(t, office.Images, 2)

		kept, _ := json.Marshal([]string{office.Images[1], "/uploads/offices/not-ours.png"})
		rec = f.do(t, multipartRequest(t, http.MethodPut, "/api/offices/"+office.ID,
			map[string]string{"name": "Headquarters", "existingImages": string(kept)}, pngImage))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		updated := decode[models.Office](t, rec)
		assert.Equal(t, "Headquarters", updated.Name)
		assert.Equal(t, "San Francisco", updated.City)
		require.Len(t, updated.Images, 2)
		assert.Equal(t, office.Images[1], updated.Images[0])

		removed := f.do(t, httptest.NewRequest(http.MethodGet, office.Images[0], nil))
		assert.Equal(t, http.StatusNotFound, removed.Code)
	})

	t.Run("success - delete cascades visits and their images", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})
		office := seedOffice(t, f, "HQ", "San Francisco")
		client := seedClient(t, f, "Acme", "Retail")
		image := seedVisitImage(t, f, office.ID, client.ID)

		rec := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/offices/"+office.ID, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Office deleted successfully", decode[map[string]string](t, rec)["message"])
		assert.Empty(t, f.repo.visits)

		removed := f.do(t, httptest.NewRequest(http.MethodGet, image, nil))
		assert.Equal(t, http.StatusNotFound, removed.Code)
	})
}

// seedVisitImage creates a visit with one photo and returns the photo URL.
func seedVisitImage(t *testing.T, f *fixture, officeID, clientID string) string {
	t.Helper()
	rec := f.do(t, multipartRequest(t, http.MethodPost, "/api/visits", map[string]string{
		"officeId":  officeID,
		"clientId":  clientID,
		"visitDate": "2024-03-15",
	}, pngImage))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	visit := decode[models.PopulatedVisit](t, rec)
	require.Len(t, visit.Images, 1)
	stored := f.do(t, httptest.NewRequest(http.MethodGet, visit.Images[0], nil))
	require.Equal(t, http.StatusOK, stored.Code)
	return visit.Images[0]
}

func TestClients(t *testing.T) {
	f := newFixture(t, stubGeocoder{})
	client := seedClient(t, f, " Acme Corp ", " Retail ")
	assert.Equal(t, "Acme Corp", client.Name)
	assert.Equal(t, "Retail", client.Industry)

	seedClient(t, f, "Globex", "Energy")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/clients?q=ENERGY", nil))
	clients := decode[[]models.Client](t, rec)
	require.Len(t, clients, 1)
	assert.Equal(t, "Globex", clients[0].Name)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/clients/"+client.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, client.ID, decode[models.ClientDetail](t, rec).Client.ID)

	rec = f.doJSON(t, http.MethodPut, "/api/clients/"+client.ID, map[string]any{"partnershipSince": 1850})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "partnershipSince must be at least 1900")

	office := seedOffice(t, f, "HQ", "San Francisco")
	image := seedVisitImage(t, f, office.ID, client.ID)

	rec = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/clients/"+client.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Client deleted successfully", decode[map[string]string](t, rec)["message"])
	assert.Empty(t, f.repo.visits)

	removed := f.do(t, httptest.NewRequest(http.MethodGet, image, nil))
	assert.Equal(t, http.StatusNotFound, removed.Code)
}

func TestVisits(t *testing.T) {
	f := newFixture(t, stubGeocoder{})
	office := seedOffice(t, f, "HQ", "San Francisco")
	client := seedClient(t, f, "Acme", "Retail")

	t.Run("success - create from form", func(t *testing.T) {
		rec := f.do(t, multipartRequest(t, http.MethodPost, "/api/visits", map[string]string{
			"officeId":  office.ID,
			"clientId":  client.ID,
			"visitDate": "2024-03-15",
			"purpose":   "Quarterly review",
			"attendees": `["Ann", " ", "Bob"]`,
		}, pngImage))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		visit := decode[models.PopulatedVisit](t, rec)
		assert.Equal(t, "2024-03-15", visit.VisitDate.Format("2006-01-02"))
		assert.Equal(t, []string{"Ann", "Bob"}, visit.Attendees)
		require.NotNil(t, visit.Office)
		require.NotNil(t, visit.Client)
		assert.Equal(t, "HQ", visit.Office.Name)
		require.Len(t, visit.Images, 1)
		assert.True(t, strings.HasPrefix(visit.Images[0], "/uploads/visits/visit-"))
	})

	t.Run("error - unknown office", func(t *testing.T) {
		rec := f.doJSON(t, http.MethodPost, "/api/visits", map[string]any{
			"officeId": "missing", "clientId": client.ID, "visitDate": "2024-03-15",
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("error - bad date", func(t *testing.T) {
		rec := f.doJSON(t, http.MethodPost, "/api/visits", map[string]any{
			"officeId": office.ID, "clientId": client.ID, "visitDate": "15/03/2024",
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "visitDate must be a date")
	})

	t.Run("success - search by client name", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/visits?q=acm", nil))

		visits := decode[[]models.PopulatedVisit](t, rec)
		assert.Len(t, visits, 1)

		rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/visits?q=zzz", nil))
		assert.Empty(t, decode[[]models.PopulatedVisit](t, rec))
	})

	t.Run("success - office detail lists visits", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/offices/"+office.ID, nil))

		detail := decode[models.OfficeDetail](t, rec)
		require.Len(t, detail.Visits, 1)
		assert.Equal(t, "Acme", detail.Visits[0].Client.Name)
	})
}

func TestGeocode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{coords: models.NewCoordinates(103.8607, 1.2834)})

		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/geocode?city=Singapore", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]float64](t, rec)
		assert.InDelta(t, 103.8607, body["longitude"], 1e-9)
		assert.InDelta(t, 1.2834, body["latitude"], 1e-9)
	})

	t.Run("error - no address or city", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})

		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/geocode?country=France", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("error - not found", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{err: service.ErrLocationNotFound})

		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/geocode?city=Atlantis", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Location not found", errorMessage(t, rec))
	})
}

func TestStats(t *testing.T) {
	f := newFixture(t, stubGeocoder{})
	seedOffice(t, f, "HQ", "San Francisco")
	seedClient(t, f, "Acme", "Retail")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[models.Stats](t, rec)
	assert.Equal(t, 1, stats.Offices)
	assert.Equal(t, 1, stats.Clients)
	assert.Equal(t, 0, stats.Visits)
}

func TestMiddleware(t *testing.T) {
	t.Run("panics become 500", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})
		f.repo.panicStats = true

		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Something went wrong!", errorMessage(t, rec))
	})

	t.Run("requests are counted by route", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})

		f.do(t, httptest.NewRequest(http.MethodGet, "/api/offices/a", nil))
		f.do(t, httptest.NewRequest(http.MethodGet, "/api/offices/b", nil))

		var metric dto.Metric
		require.NoError(t, f.metrics.HTTPRequests.WithLabelValues("/api/offices/{id}", http.MethodGet, "404").Write(&metric))
		assert.InDelta(t, 2, metric.GetCounter().GetValue(), 0)
	})

	t.Run("cors", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})
		req := httptest.NewRequest(http.MethodGet, "/api/offices", nil)
		req.Header.Set("Origin", "http://admin.example.com")

		rec := f.do(t, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown image", func(t *testing.T) {
		f := newFixture(t, stubGeocoder{})

		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/uploads/offices/passwd", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
