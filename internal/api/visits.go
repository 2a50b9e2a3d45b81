package api

import (
	"net/http"
	"strings"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/gorilla/mux"
)

const visitEntity = "Visit"

func (s *Server) listVisits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := searchQuery(r.URL.Query().Get("q"))

	var visits []models.PopulatedVisit
	if q == "" {
		found, err := s.cache.Get(ctx, visitsKey, &visits)
		if err != nil {
			s.log.WarnContext(ctx, "List cache unavailable", "error", err)
		}
		if found {
			writeJSON(w, http.StatusOK, visits)
			return
		}
	}

	visits, err := s.repo.ListVisits(ctx)
	if err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	if q != "" {
		writeJSON(w, http.StatusOK, filterVisits(visits, q))
		return
	}
	if err = s.cache.Set(ctx, visitsKey, visits); err != nil {
		s.log.WarnContext(ctx, "Failed to cache visits", "error", err)
	}
	writeJSON(w, http.StatusOK, visits)
}

func (s *Server) getVisit(w http.ResponseWriter, r *http.Request) {
	visit, err := s.repo.GetVisit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	writeJSON(w, http.StatusOK, visit)
}

func (s *Server) createVisit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := readPayload(w, r, visitFields)
	if err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}

	var visit models.Visit
	if err = s.decodeVisit(p, &visit); err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	if visit.Images, err = s.storeImages(ctx, "visits", p.files); err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	if err = s.repo.CreateVisit(ctx, &visit); err != nil {
		s.removeImages(ctx, visit.Images)
		s.fail(w, r, err, visitEntity)
		return
	}
	s.invalidate(ctx, visitsKey)

	populated, err := s.repo.GetVisit(ctx, visit.ID)
	if err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	writeJSON(w, http.StatusCreated, populated)
}

func (s *Server) updateVisit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, err := s.repo.GetVisit(ctx, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	p, err := readPayload(w, r, visitFields)
	if err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}

	visit := current.Visit
	before := visit.Images
	if err = s.decodeVisit(p, &visit); err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	added, err := s.storeImages(ctx, "visits", p.files)
	if err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	visit.Images = append(p.keep(before), added...)

	if err = s.repo.UpdateVisit(ctx, &visit); err != nil {
		s.removeImages(ctx, added)
		s.fail(w, r, err, visitEntity)
		return
	}
	s.removeImages(ctx, dropped(before, visit.Images))
	s.invalidate(ctx, visitsKey)

	populated, err := s.repo.GetVisit(ctx, visit.ID)
	if err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	writeJSON(w, http.StatusOK, populated)
}

func (s *Server) deleteVisit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	visit, err := s.repo.GetVisit(ctx, id)
	if err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	if err = s.repo.DeleteVisit(ctx, id); err != nil {
		s.fail(w, r, err, visitEntity)
		return
	}
	s.removeImages(ctx, visit.Images)

	s.invalidate(ctx, visitsKey)
	writeJSON(w, http.StatusOK, messageBody{Message: "Visit deleted successfully"})
}

func (s *Server) decodeVisit(p payload, visit *models.Visit) error {
	if err := p.apply(visit); err != nil {
		return err
	}
	visit.OfficeID = strings.TrimSpace(visit.OfficeID)
	visit.ClientID = strings.TrimSpace(visit.ClientID)
	visit.Purpose = strings.TrimSpace(visit.Purpose)
	visit.Notes = strings.TrimSpace(visit.Notes)

	attendees := make([]string, 0, len(visit.Attendees))
	for _, name := range visit.Attendees {
		if name = strings.TrimSpace(name); name != "" {
			attendees = append(attendees, name)
		}
	}
	visit.Attendees = attendees
	return s.validate.Struct(visit)
}
