package model

import (
	"time"

	"github.com/google/uuid"
)

// Address is a postal address value object embedded in orders.
type Address struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state,omitempty" validate:"max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,len=2"`
}

// SavedAddress is an address stored in a user's address book.
type SavedAddress struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Address   Address   `json:"address"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
