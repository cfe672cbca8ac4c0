package api

import "time"

// LoadRequest asks the server to load an ELF image from a path already
// reachable on the server's filesystem. There is no upload endpoint: the
// server trusts whatever path it is given, matching the CLI's own loading
// path rather than adding a second validation surface.
type LoadRequest struct {
	Path      string `json:"path"`
	MaxCycles uint64 `json:"maxCycles,omitempty"`
}

// LoadResponse returns the new session's identifier.
type LoadResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// StepRequest steps a session by n instructions (default 1).
type StepRequest struct {
	Count int `json:"count,omitempty"`
}

// MemoryQuery requests a byte range dump.
type MemoryQuery struct {
	Address uint64 `json:"address"`
	Length  int    `json:"length"`
}

// MemoryResponse is a hex-encoded byte range.
type MemoryResponse struct {
	Address uint64 `json:"address"`
	HexData string `json:"hexData"`
}

// ErrorResponse is the body returned on any 4xx/5xx.
type ErrorResponse struct {
	Error string `json:"error"`
}
