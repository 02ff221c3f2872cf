// Package handler exposes the checkout services over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"checkout-core/internal/middleware"
	"checkout-core/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindConflict, model.KindInsufficientStock:
		return http.StatusConflict
	case model.KindExpired, model.KindUsageExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already sent; an encode failure only truncates the body.
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps a service error onto the error response.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	kind := model.KindOf(err)
	status := statusFor(kind)

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("kind", string(kind)).
		Int("status", status).
		Msg("request failed")

	writeJSON(w, status, model.ErrorResponse{
		Error:         model.CodeOf(err),
		Message:       model.MessageOf(err),
		CorrelationID: chimw.GetReqID(r.Context()),
	})
}

// writeBadRequest rejects a malformed request before it reaches a service.
func writeBadRequest(w http.ResponseWriter, r *http.Request, code, message string, logger zerolog.Logger) {
	logger.Warn().
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("code", code).
		Msg(message)
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: chimw.GetReqID(r.Context()),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func actorOf(r *http.Request) model.Actor {
	actor, _ := middleware.ActorFrom(r.Context())
	return actor
}

func uuidParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// queryInt reads an integer query parameter, falling back to def when absent.
func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}
