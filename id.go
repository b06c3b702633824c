package llmbatch

import "github.com/google/uuid"

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
// Suitable as a CustomID when the caller has no natural key.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
