package model

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID string for use as a bot/meeting identifier.
func NewID() string {
	return ulid.Make().String()
}

// NewCorrelationID generates the UUID carried in backend labels and
// annotations for cross-system correlation.
func NewCorrelationID() string {
	return uuid.NewString()
}
