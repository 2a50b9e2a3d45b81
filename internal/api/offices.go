package api

import (
	"net/http"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/gorilla/mux"
)

const officeEntity = "Office"

func (s *Server) listOffices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := searchQuery(r.URL.Query().Get("q"))

	var offices []models.Office
	if q == "" {
		found, err := s.cache.Get(ctx, officesKey, &offices)
		if err != nil {
			s.log.WarnContext(ctx, "List cache unavailable", "error", err)
		}
		if found {
			writeJSON(w, http.StatusOK, offices)
			return
		}
	}

	offices, err := s.repo.ListOffices(ctx)
	if err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}
	if q != "" {
		writeJSON(w, http.StatusOK, filterOffices(offices, q))
		return
	}
	if err = s.cache.Set(ctx, officesKey, offices); err != nil {
		s.log.WarnContext(ctx, "Failed to cache offices", "error", err)
	}
	writeJSON(w, http.StatusOK, offices)
}

func (s *Server) getOffice(w http.ResponseWriter, r *http.Request) {
	detail, err := s.repo.OfficeDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) createOffice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := readPayload(w, r, officeFields)
	if err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}

	var office models.Office
	if err = s.decodeOffice(p, &office); err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}
	if office.Images, err = s.storeImages(ctx, "offices", p.files); err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}
	if err = s.repo.CreateOffice(ctx, &office); err != nil {
		s.removeImages(ctx, office.Images)
		s.fail(w, r, err, officeEntity)
		return
	}

	s.invalidate(ctx, officesKey)
	s.log.InfoContext(ctx, "Office created", "id", office.ID, "name", office.Name)
	writeJSON(w, http.StatusCreated, office)
}

func (s *Server) updateOffice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	office, err := s.repo.GetOffice(ctx, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}
	p, err := readPayload(w, r, officeFields)
	if err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}

	before := office.Images
	if err = s.decodeOffice(p, &office); err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}
	added, err := s.storeImages(ctx, "offices", p.files)
	if err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}
	office.Images = append(p.keep(before), added...)

	if err = s.repo.UpdateOffice(ctx, &office); err != nil {
		s.removeImages(ctx, added)
		s.fail(w, r, err, officeEntity)
		return
	}
	s.removeImages(ctx, dropped(before, office.Images))

	s.invalidate(ctx, officesKey, visitsKey)
	writeJSON(w, http.StatusOK, office)
}

func (s *Server) deleteOffice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	detail, err := s.repo.OfficeDetail(ctx, id)
	if err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}
	if err = s.repo.DeleteOffice(ctx, id); err != nil {
		s.fail(w, r, err, officeEntity)
		return
	}
	s.removeImages(ctx, detail.Office.Images)
	s.removeImages(ctx, visitImages(detail.Visits))

	s.invalidate(ctx, officesKey, visitsKey)
	s.log.InfoContext(ctx, "Office deleted", "id", id)
	writeJSON(w, http.StatusOK, messageBody{Message: "Office deleted successfully"})
}

func (s *Server) decodeOffice(p payload, office *models.Office) error {
	if err := p.apply(office); err != nil {
		return err
	}
	trimSite(&office.Site)
	return s.validate.Struct(office)
}
