package handler

import (
	"net/http"
	"testing"

	"checkout-core/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAddressHandler_Create(t *testing.T) {
	body := `{"line1":"1 Main St","city":"Springfield","postalCode":"12345","country":"US"}`

	t.Run("Saved", func(t *testing.T) {
		svc := new(MockAddressService)
		saved := &model.SavedAddress{ID: uuid.New(), UserID: customer.UserID}
		svc.On("SaveAddress", mock.Anything, customer.UserID, mock.MatchedBy(func(a *model.Address) bool {
			return a.City == "Springfield" && a.Country == "US"
		})).Return(saved, nil)
		h := NewAddressHandler(svc, zerolog.Nop())

		w := serve(http.MethodPost, "/api/addresses", "/api/addresses", body, customer, h.Create)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), saved.ID.String())
		svc.AssertExpectations(t)
	})

	t.Run("Invalid address", func(t *testing.T) {
		svc := new(MockAddressService)
		svc.On("SaveAddress", mock.Anything, customer.UserID, mock.Anything).
			Return(nil, model.ValidationError("address.save", "City is required"))
		h := NewAddressHandler(svc, zerolog.Nop())

		w := serve(http.MethodPost, "/api/addresses", "/api/addresses", `{"line1":"x"}`, customer, h.Create)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		svc := new(MockAddressService)
		h := NewAddressHandler(svc, zerolog.Nop())

		w := serve(http.MethodPost, "/api/addresses", "/api/addresses", `{`, customer, h.Create)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeInvalidJSON, errorCode(t, w))
		svc.AssertNotCalled(t, "SaveAddress", mock.Anything, mock.Anything, mock.Anything)
	})
}
