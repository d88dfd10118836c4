package engine

import "github.com/google/uuid"

// newID returns a time-sortable UUIDv7 string. Movement, order, and sync job
// ids all come from here so their lexical order tracks creation time.
//
// Panics if UUID generation fails (should never happen in practice).
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
