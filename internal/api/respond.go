package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/repository"
	"github.com/UnknownOlympus/meridian/internal/service"
	"github.com/UnknownOlympus/meridian/internal/storage"
	"github.com/go-playground/validator/v10"
)

const internalMessage = "Something went wrong!"

// requestError is a client mistake reported as 400 with its message.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps err to a status code. entity names the record in not found messages.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, entity string) {
	var (
		reqErr        *requestError
		validationErr validator.ValidationErrors
	)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, service.ErrLocationNotFound):
		writeError(w, http.StatusNotFound, "Location not found")
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationMessage(validationErr))
	case errors.As(err, &reqErr),
		errors.Is(err, repository.ErrUnknownReference),
		errors.Is(err, models.ErrInvalidCoordinates),
		errors.Is(err, service.ErrMissingQuery),
		errors.Is(err, storage.ErrUnsupportedType),
		errors.Is(err, storage.ErrTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, internalMessage)
	}
}
