package api

import (
	"net/http"
	"strings"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/gorilla/mux"
)

const clientEntity = "Client"

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := searchQuery(r.URL.Query().Get("q"))

	var clients []models.Client
	if q == "" {
		found, err := s.cache.Get(ctx, clientsKey, &clients)
		if err != nil {
			s.log.WarnContext(ctx, "List cache unavailable", "error", err)
		}
		if found {
			writeJSON(w, http.StatusOK, clients)
			return
		}
	}

	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}
	if q != "" {
		writeJSON(w, http.StatusOK, filterClients(clients, q))
		return
	}
	if err = s.cache.Set(ctx, clientsKey, clients); err != nil {
		s.log.WarnContext(ctx, "Failed to cache clients", "error", err)
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	detail, err := s.repo.ClientDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := readPayload(w, r, clientFields)
	if err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}

	var client models.Client
	if err = s.decodeClient(p, &client); err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}
	if client.Images, err = s.storeImages(ctx, "clients", p.files); err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}
	if err = s.repo.CreateClient(ctx, &client); err != nil {
		s.removeImages(ctx, client.Images)
		s.fail(w, r, err, clientEntity)
		return
	}

	s.invalidate(ctx, clientsKey)
	s.log.InfoContext(ctx, "Client created", "id", client.ID, "name", client.Name)
	writeJSON(w, http.StatusCreated, client)
}

func (s *Server) updateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client, err := s.repo.GetClient(ctx, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}
	p, err := readPayload(w, r, clientFields)
	if err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}

	before := client.Images
	if err = s.decodeClient(p, &client); err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}
	added, err := s.storeImages(ctx, "clients", p.files)
	if err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}
	client.Images = append(p.keep(before), added...)

	if err = s.repo.UpdateClient(ctx, &client); err != nil {
		s.removeImages(ctx, added)
		s.fail(w, r, err, clientEntity)
		return
	}
	s.removeImages(ctx, dropped(before, client.Images))

	s.invalidate(ctx, clientsKey, visitsKey)
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) deleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	detail, err := s.repo.ClientDetail(ctx, id)
	if err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}
	if err = s.repo.DeleteClient(ctx, id); err != nil {
		s.fail(w, r, err, clientEntity)
		return
	}
	s.removeImages(ctx, detail.Client.Images)
	s.removeImages(ctx, visitImages(detail.Visits))

	s.invalidate(ctx, clientsKey, visitsKey)
	s.log.InfoContext(ctx, "Client deleted", "id", id)
	writeJSON(w, http.StatusOK, messageBody{Message: "Client deleted successfully"})
}

func (s *Server) decodeClient(p payload, client *models.Client) error {
	if err := p.apply(client); err != nil {
		return err
	}
	trimSite(&client.Site)
	client.Industry = strings.TrimSpace(client.Industry)
	return s.validate.Struct(client)
}
