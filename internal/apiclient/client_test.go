package apiclient_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/meridian/internal/apiclient"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func respond(status int, body string) (*http.Response, error) {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(body))}, nil
}

func TestClient_Lists(t *testing.T) {
	ctx := context.Background()
	var paths []string
	client := apiclient.NewWithClient(&mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			paths = append(paths, req.URL.Path)
			switch req.URL.Path {
			case "/api/offices":
				return respond(http.StatusOK, `[{"id":"o1","name":"HQ","country":"USA","coordinates":[-122.4,37.7]}]`)
			case "/api/clients":
				return respond(http.StatusOK, `[{"id":"c1","name":"Acme","industry":"Retail","coordinates":[2.35,48.85]}]`)
			}
			return respond(http.StatusNotFound, `{"error":"Not found"}`)
		},
	}, "http://localhost:3000/api/", slog.Default())

	offices, err := client.Offices(ctx)
	require.NoError(t, err)
	require.Len(t, offices, 1)
	assert.Equal(t, "HQ", offices[0].Name)
	assert.Equal(t, models.Coordinates{-122.4, 37.7}, offices[0].Coordinates)

	clients, err := client.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Retail", clients[0].Industry)

	assert.Equal(t, []string{"/api/offices", "/api/clients"}, paths)
}

func TestClient_Detail(t *testing.T) {
	ctx := context.Background()
	client := apiclient.NewWithClient(&mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			switch req.URL.Path {
			case "/api/offices/o1":
				return respond(http.StatusOK, `{
					"office": {"id":"o1","name":"HQ","country":"U.S.A.","coordinates":[-122.4,37.7],"images":["/uploads/offices/a.png"]},
					"visits": [{"client":{"id":"c1","name":"Acme"},"visitDate":"2024-03-15T00:00:00Z","purpose":"Review","attendees":["Ann"],"images":[]}]
				}`)
			case "/api/clients/c1":
				return respond(http.StatusOK, `{"client":{"id":"c1","name":"Acme","industry":"Retail","coordinates":[2.35,48.85]},"visits":[]}`)
			case "/api/clients/gone":
				return respond(http.StatusNotFound, `{"error":"Client not found"}`)
			}
			return respond(http.StatusInternalServerError, `{"error":"Something went wrong!"}`)
		},
	}, "http://localhost:3000/api", slog.Default())

	t.Run("office", func(t *testing.T) {
		detail, err := client.Detail(ctx, models.KindOffice, "o1")

		require.NoError(t, err)
		assert.Equal(t, models.KindOffice, detail.Location.Kind)
		assert.Equal(t, "United States", detail.Location.Country)
		assert.Equal(t, []string{"/uploads/offices/a.png"}, detail.Location.Images)
		require.Len(t, detail.Visits, 1)
		assert.Equal(t, "Acme", detail.Visits[0].Client.Name)
	})

	t.Run("client", func(t *testing.T) {
		detail, err := client.Detail(ctx, models.KindClient, "c1")

		require.NoError(t, err)
		assert.Equal(t, "Retail", detail.Location.Industry)
		assert.Empty(t, detail.Visits)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.Detail(ctx, models.KindClient, "gone")

		require.ErrorIs(t, err, apiclient.ErrNotFound)
		assert.Contains(t, err.Error(), "Client not found")
	})

	t.Run("server error", func(t *testing.T) {
		_, err := client.Detail(ctx, models.KindOffice, "boom")

		require.ErrorIs(t, err, apiclient.ErrUnexpectedStatus)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := client.Detail(ctx, models.Kind("planet"), "x")

		require.Error(t, err)
	})
}

func TestClient_Image(t *testing.T) {
	client := apiclient.NewWithClient(&mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "http://localhost:3000/uploads/offices/a.png", req.URL.String())
			return respond(http.StatusOK, "png-bytes")
		},
	}, "http://localhost:3000/api", slog.Default())

	data, err := client.Image(context.Background(), "/uploads/offices/a.png")

	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestClient_TransportError(t *testing.T) {
	client := apiclient.NewWithClient(&mockHTTPClient{
		doFunc: func(*http.Request) (*http.Response, error) { return nil, assert.AnError },
	}, "http://localhost:3000/api", slog.Default())

	_, err := client.Offices(context.Background())

	require.ErrorIs(t, err, assert.AnError)
}
