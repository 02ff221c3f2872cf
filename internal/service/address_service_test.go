package service

import (
	"context"
	"errors"
	"testing"

	"checkout-core/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAddressService_SaveAddress(t *testing.T) {
	ctx := context.Background()
	valid := model.Address{Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}

	t.Run("stores a valid address", func(t *testing.T) {
		book := new(MockAddressBook)
		saved := &model.SavedAddress{ID: uuid.New(), UserID: "user-1", Address: valid}
		book.On("SaveAddress", ctx, "user-1", valid).Return(saved, nil)
		svc := NewAddressService(book, zerolog.Nop())

		got, err := svc.SaveAddress(ctx, "user-1", &valid)

		require.NoError(t, err)
		assert.Equal(t, saved.ID, got.ID)
		book.AssertExpectations(t)
	})

	t.Run("rejects an incomplete address", func(t *testing.T) {
		book := new(MockAddressBook)
		svc := NewAddressService(book, zerolog.Nop())

		_, err := svc.SaveAddress(ctx, "user-1", &model.Address{Line1: "1 Main St", Country: "USA"})

		require.Error(t, err)
		assert.Equal(t, model.KindValidation, model.KindOf(err))
		assert.Contains(t, model.MessageOf(err), "City is required")
		book.AssertNotCalled(t, "SaveAddress", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing body", func(t *testing.T) {
		svc := NewAddressService(new(MockAddressBook), zerolog.Nop())

		_, err := svc.SaveAddress(ctx, "user-1", nil)

		assert.Equal(t, model.KindValidation, model.KindOf(err))
	})

	t.Run("storage failure", func(t *testing.T) {
		book := new(MockAddressBook)
		book.On("SaveAddress", ctx, "user-1", valid).Return(nil, errors.New("connection reset"))
		svc := NewAddressService(book, zerolog.Nop())

		_, err := svc.SaveAddress(ctx, "user-1", &valid)

		assert.Equal(t, model.KindInternal, model.KindOf(err))
	})
}
