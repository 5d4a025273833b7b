package types

// Event represents a typed event emitted during a ledger state transition.
// Attributes are flat string pairs so downstream indexers can consume them
// without knowing the concrete payload type.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
