package core

import "fmt"

// FaultKind classifies the core-reported error conditions of the
// fetch-decode-execute loop. Only OutOfRangeMemory is fatal; the rest are
// returned by Driver.Step without halting the core (and kept in
// Driver.LastFault) and either leave the destination register unchanged or
// fall through to the next cycle.
type FaultKind int

const (
	// UnknownInstruction means no decoder rule matched the instruction word.
	UnknownInstruction FaultKind = iota
	// UnimplementedVariant means a matched opcode used an operand mode the
	// executor does not implement.
	UnimplementedVariant
	// MalformedImmediate means bitmask-immediate decoding failed.
	MalformedImmediate
	// OutOfRangeMemory means an access fell outside the image buffer. Fatal.
	OutOfRangeMemory
	// BadSize means sf/sizebits produced an unsupported operand width.
	BadSize
)

func (k FaultKind) String() string {
	switch k {
	case UnknownInstruction:
		return "UnknownInstruction"
	case UnimplementedVariant:
		return "UnimplementedVariant"
	case MalformedImmediate:
		return "MalformedImmediate"
	case OutOfRangeMemory:
		return "OutOfRangeMemory"
	case BadSize:
		return "BadSize"
	default:
		return "Unknown"
	}
}

// Fault is the error type produced by the decoder, executor and memory
// interface. Its Kind determines whether the driver treats it as fatal
// (OutOfRangeMemory, per spec invariant I4) or as a recoverable, logged
// event that leaves architectural state otherwise unmodified.
type Fault struct {
	Kind    FaultKind
	Msg     string
	Wrapped error
}

func (f *Fault) Error() string {
	if f.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Msg, f.Wrapped)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
}

func (f *Fault) Unwrap() error {
	return f.Wrapped
}

// Fatal reports whether the driver must transition to HALTED on this fault.
func (f *Fault) Fatal() bool {
	return f.Kind == OutOfRangeMemory
}

func newFault(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
