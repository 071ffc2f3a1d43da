package testutil

import (
	"io"
	"log/slog"
)

// DefaultSessionID is used when a fixed generator is created with no ID.
const DefaultSessionID = "test-session-default"

// FixedSessionGenerator returns the same session ID every time, so repeated
// scenario runs journal byte-identical entries.
//
// Unlike journal.FixedGenerator, which hands out a list of IDs once each,
// it never runs out.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id, or DefaultSessionID
// when id is empty.
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = DefaultSessionID
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session ID.
//
// Implements journal.SessionGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
