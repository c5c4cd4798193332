package diag

import "github.com/google/uuid"

// NewSession returns a fresh session ID. Parsers and decode runs stamp
// it on every event they emit so a log file can be filtered down to one
// run.
func NewSession() string {
	return uuid.New().String()
}
