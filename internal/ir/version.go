package ir

const (
	// IRVersion is the schema version of logged records.
	IRVersion = "1"

	// EngineVersion is recorded on every invocation so a replay can tell
	// which rules produced a completion.
	EngineVersion = "0.3.0"
)
