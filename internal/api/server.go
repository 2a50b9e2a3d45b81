package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/UnknownOlympus/meridian/internal/cache"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/repository"
	"github.com/UnknownOlympus/meridian/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// List cache keys.
const (
	officesKey = "offices"
	clientsKey = "clients"
	visitsKey  = "visits"
)

// Geocoder resolves record address fields to coordinates.
type Geocoder interface {
	Lookup(ctx context.Context, address, city, country string) (models.Coordinates, error)
}

// Server serves the REST API used by the admin front end and the map view.
type Server struct {
	log      *slog.Logger
	repo     repository.Interface
	images   storage.Store
	geocoder Geocoder
	cache    cache.Cache
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func NewServer(
	log *slog.Logger,
	repo repository.Interface,
	images storage.Store,
	geocoder Geocoder,
	c cache.Cache,
	metrics *metrics.Metrics,
) *Server {
	return &Server{
		log:      log,
		repo:     repo,
		images:   images,
		geocoder: geocoder,
		cache:    c,
		metrics:  metrics,
		validate: newValidator(),
	}
}

// Handler returns the routed API with CORS, access log, recovery and metrics applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.recoverer, s.accessLog, s.instrument)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/offices", s.listOffices).Methods(http.MethodGet)
	api.HandleFunc("/offices", s.createOffice).Methods(http.MethodPost)
	api.HandleFunc("/offices/{id}", s.getOffice).Methods(http.MethodGet)
	api.HandleFunc("/offices/{id}", s.updateOffice).Methods(http.MethodPut)
	api.HandleFunc("/offices/{id}", s.deleteOffice).Methods(http.MethodDelete)

	api.HandleFunc("/clients", s.listClients).Methods(http.MethodGet)
	api.HandleFunc("/clients", s.createClient).Methods(http.MethodPost)
	api.HandleFunc("/clients/{id}", s.getClient).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}", s.updateClient).Methods(http.MethodPut)
	api.HandleFunc("/clients/{id}", s.deleteClient).Methods(http.MethodDelete)

	api.HandleFunc("/visits", s.listVisits).Methods(http.MethodGet)
	api.HandleFunc("/visits", s.createVisit).Methods(http.MethodPost)
	api.HandleFunc("/visits/{id}", s.getVisit).Methods(http.MethodGet)
	api.HandleFunc("/visits/{id}", s.updateVisit).Methods(http.MethodPut)
	api.HandleFunc("/visits/{id}", s.deleteVisit).Methods(http.MethodDelete)

	api.HandleFunc("/geocode", s.geocode).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.stats).Methods(http.MethodGet)

	router.HandleFunc("/uploads/{kind}/{name}", s.serveImage).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(router)
}

func (s *Server) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.WarnContext(ctx, "Failed to invalidate list cache", "keys", keys, "error", err)
	}
}
