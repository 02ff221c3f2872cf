package service

import (
	"context"

	"checkout-core/internal/model"
	"checkout-core/internal/repository"

	"github.com/rs/zerolog"
)

type addressService struct {
	book   repository.AddressBook
	logger zerolog.Logger
}

// NewAddressService creates a new address book service.
func NewAddressService(book repository.AddressBook, logger zerolog.Logger) AddressService {
	return &addressService{
		book:   book,
		logger: logger.With().Str("service", "address").Logger(),
	}
}

func (s *addressService) SaveAddress(ctx context.Context, userID string, addr *model.Address) (*model.SavedAddress, error) {
	const op = "address.save"

	if addr == nil {
		return nil, model.ValidationError(op, "address is required")
	}
	if err := validateStruct(op, addr); err != nil {
		return nil, err
	}

	saved, err := s.book.SaveAddress(ctx, userID, *addr)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to save address")
		return nil, model.InternalError(op, err)
	}

	s.logger.Info().Str("user_id", userID).Str("address_id", saved.ID.String()).Msg("address saved")
	return saved, nil
}
