package handler

import (
	"net/http"

	"checkout-core/internal/model"
	"checkout-core/internal/service"

	"github.com/rs/zerolog"
)

// AddressHandler manages the caller's saved addresses.
type AddressHandler struct {
	service service.AddressService
	logger  zerolog.Logger
}

func NewAddressHandler(service service.AddressService, logger zerolog.Logger) *AddressHandler {
	return &AddressHandler{
		service: service,
		logger:  logger.With().Str("handler", "address").Logger(),
	}
}

// Create handles POST /api/addresses.
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	var addr model.Address
	if err := decodeJSON(r, &addr); err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	saved, err := h.service.SaveAddress(r.Context(), actorOf(r).UserID, &addr)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}
