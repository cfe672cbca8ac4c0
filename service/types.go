// Package service wraps a core.Driver in a session type that the api
// package can manage concurrently, following the shape of the teacher's
// service.DebuggerService (a VM plus an event sink, addressed by session ID
// from the HTTP layer) retargeted to the AArch64 core.
package service

import "time"

// State mirrors the driver's run state for JSON responses.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateHalted  State = "halted"
)

// StatusReport is a point-in-time snapshot of a session suitable for
// serialization to API clients.
type StatusReport struct {
	SessionID string    `json:"sessionId"`
	State     State     `json:"state"`
	PC        uint64    `json:"pc"`
	Cycles    uint64    `json:"cycles"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RegisterReport is the general-purpose register file plus flags.
type RegisterReport struct {
	X      [31]uint64 `json:"x"`
	SP     uint64     `json:"sp"`
	PC     uint64     `json:"pc"`
	N      bool       `json:"n"`
	Z      bool       `json:"z"`
	C      bool       `json:"c"`
	V      bool       `json:"v"`
	Cycles uint64     `json:"cycles"`
}
