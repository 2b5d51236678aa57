package engine

import "github.com/google/uuid"

// newSessionID creates a random ID for a narration session.
func newSessionID() string {
	return uuid.NewString()
}
