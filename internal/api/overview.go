package api

import (
	"net/http"
)

type geocodeResponse struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

func (s *Server) geocode(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	coords, err := s.geocoder.Lookup(r.Context(), query.Get("address"), query.Get("city"), query.Get("country"))
	if err != nil {
		s.fail(w, r, err, "Location")
		return
	}
	writeJSON(w, http.StatusOK, geocodeResponse{Longitude: coords.Longitude(), Latitude: coords.Latitude()})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err, "Stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
