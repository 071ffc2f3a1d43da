package ir

// Version constants recorded alongside journaled sessions.
const (
	// IRVersion is the payload schema version.
	IRVersion = "1"

	// EngineVersion is the statecell engine version.
	EngineVersion = "0.1.0"
)
