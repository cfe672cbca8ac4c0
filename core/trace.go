package core

import (
	"fmt"
	"io"
	"strings"
)

// TraceEntry is one recorded fetch-decode-execute cycle, adapted from the
// teacher's vm/trace.go TraceEntry to the AArch64 register set.
type TraceEntry struct {
	Sequence        uint64
	Address         uint64
	Opcode          uint32
	Mnemonic        string
	RegisterChanges map[string]uint64
	Flags           APSR
	Fault           string
}

// Trace records a bounded window of execution history, written to Writer
// a line at a time as entries are recorded, mirroring the teacher's
// ExecutionTrace shape (Enabled/FilterRegs/MaxEntries) but without the
// timing instrumentation, which this simulator's driver does not need.
type Trace struct {
	Enabled    bool
	Writer     io.Writer
	FilterRegs map[string]bool
	MaxEntries int

	entries      []TraceEntry
	lastSnapshot map[string]uint64
}

// NewTrace returns an enabled trace writing to w.
func NewTrace(w io.Writer) *Trace {
	return &Trace{
		Enabled:      true,
		Writer:       w,
		FilterRegs:   make(map[string]bool),
		MaxEntries:   100000,
		entries:      make([]TraceEntry, 0, 1024),
		lastSnapshot: make(map[string]uint64),
	}
}

// SetFilterRegisters restricts change tracking to the named registers
// (e.g. "X0", "SP"); an empty list tracks everything.
func (t *Trace) SetFilterRegisters(regs []string) {
	t.FilterRegs = make(map[string]bool)
	for _, r := range regs {
		t.FilterRegs[strings.ToUpper(r)] = true
	}
}

func registerSnapshot(c *CPU) map[string]uint64 {
	snap := make(map[string]uint64, 33)
	for i := 0; i < 31; i++ {
		snap[fmt.Sprintf("X%d", i)] = c.X[i]
	}
	snap["SP"] = c.SP
	snap["PC"] = c.PC
	return snap
}

// RecordStep appends a trace entry for the instruction that just executed
// at addr, diffing the register file against the previous snapshot.
func (t *Trace) RecordStep(addr uint64, d *Decoded, c *CPU) {
	if !t.Enabled || (t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries) {
		return
	}

	entry := TraceEntry{
		Sequence:        c.Cycles,
		Address:         addr,
		Opcode:          d.Raw,
		Mnemonic:        d.Op.String(),
		RegisterChanges: make(map[string]uint64),
		Flags:           c.APSR,
	}

	current := registerSnapshot(c)
	for name, value := range current {
		if len(t.FilterRegs) > 0 && !t.FilterRegs[name] {
			continue
		}
		if old, ok := t.lastSnapshot[name]; !ok || old != value {
			entry.RegisterChanges[name] = value
		}
	}
	t.lastSnapshot = current

	t.entries = append(t.entries, entry)
	if t.Writer != nil {
		_ = t.writeEntry(entry)
	}
}

// RecordFault appends a trace entry describing a non-fatal fault raised
// while decoding or executing the instruction at addr.
func (t *Trace) RecordFault(addr uint64, err error) {
	if !t.Enabled {
		return
	}
	entry := TraceEntry{Address: addr, Fault: err.Error()}
	t.entries = append(t.entries, entry)
	if t.Writer != nil {
		_ = t.writeEntry(entry)
	}
}

func (t *Trace) writeEntry(entry TraceEntry) error {
	if entry.Fault != "" {
		_, err := fmt.Fprintf(t.Writer, "[%06d] 0x%08X: FAULT %s\n", entry.Sequence, entry.Address, entry.Fault)
		return err
	}

	line := fmt.Sprintf("[%06d] 0x%08X: %-16s", entry.Sequence, entry.Address, entry.Mnemonic)
	if len(entry.RegisterChanges) > 0 {
		changes := make([]string, 0, len(entry.RegisterChanges))
		for name, value := range entry.RegisterChanges {
			changes = append(changes, fmt.Sprintf("%s=0x%X", name, value))
		}
		line += " | " + strings.Join(changes, " ")
	} else {
		line += " | (no changes)"
	}
	line += " | " + flagString(entry.Flags) + "\n"
	_, err := t.Writer.Write([]byte(line))
	return err
}

func flagString(a APSR) string {
	flag := func(set bool, letter string) string {
		if set {
			return letter
		}
		return "-"
	}
	return flag(a.N, "N") + flag(a.Z, "Z") + flag(a.C, "C") + flag(a.V, "V")
}

// Entries returns all recorded trace entries.
func (t *Trace) Entries() []TraceEntry {
	return t.entries
}

// Clear discards all recorded entries and resets change tracking.
func (t *Trace) Clear() {
	t.entries = t.entries[:0]
	t.lastSnapshot = make(map[string]uint64)
}
