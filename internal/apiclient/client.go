package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/meridian/internal/mapview"
	"github.com/UnknownOlympus/meridian/internal/models"
)

var (
	// ErrNotFound is returned when the API answers 404.
	ErrNotFound = errors.New("resource not found")
	// ErrUnexpectedStatus is returned for any other non-200 answer.
	ErrUnexpectedStatus = errors.New("unexpected API status")
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads offices and clients from the REST API.
type Client struct {
	http HTTPClient
	base string
	log  *slog.Logger
}

// New creates a client for the API rooted at base, e.g. http://localhost:3000/api.
func New(base string, log *slog.Logger) *Client {
	const timeout = 10
	return NewWithClient(&http.Client{Timeout: timeout * time.Second}, base, log)
}

func NewWithClient(client HTTPClient, base string, log *slog.Logger) *Client {
	return &Client{http: client, base: strings.TrimRight(base, "/"), log: log}
}

func (c *Client) Offices(ctx context.Context) ([]models.Office, error) {
	var offices []models.Office
	if err := c.get(ctx, "/offices", &offices); err != nil {
		return nil, err
	}
	return offices, nil
}

func (c *Client) Clients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := c.get(ctx, "/clients", &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// Detail returns a location with its visit history.
func (c *Client) Detail(ctx context.Context, kind models.Kind, id string) (mapview.Detail, error) {
	switch kind {
	case models.KindOffice:
		var detail models.OfficeDetail
		if err := c.get(ctx, "/offices/"+url.PathEscape(id), &detail); err != nil {
			return mapview.Detail{}, err
		}
		return mapview.Detail{Location: detail.Office.Location(), Visits: detail.Visits}, nil
	case models.KindClient:
		var detail models.ClientDetail
		if err := c.get(ctx, "/clients/"+url.PathEscape(id), &detail); err != nil {
			return mapview.Detail{}, err
		}
		return mapview.Detail{Location: detail.Client.Location(), Visits: detail.Visits}, nil
	default:
		return mapview.Detail{}, fmt.Errorf("unknown location kind %q", kind)
	}
}

// Image downloads an image referenced by a record ("/uploads/...").
func (c *Client) Image(ctx context.Context, path string) ([]byte, error) {
	origin, err := url.Parse(c.base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	target, err := origin.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image URL: %w", err)
	}

	resp, err := c.do(ctx, target.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	resp, err := c.do(ctx, c.base+path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err = json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.DebugContext(ctx, "API request", "url", target)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, body.Error)
	}
	return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, body.Error)
}
