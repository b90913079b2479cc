package crypto

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewTransactionID generates a time-ordered UUID v7 for a request receipt.
func NewTransactionID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewEventID generates a ULID for a published notification.
func NewEventID() string {
	return ulid.Make().String()
}
