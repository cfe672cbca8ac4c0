package core

import (
	"encoding/json"
	"sort"
)

// CoverageEntry records how many times, and when, an address was
// executed, adapted from the teacher's vm/coverage.go CoverageEntry.
type CoverageEntry struct {
	Address        uint64
	ExecutionCount uint64
	FirstExecution uint64
	LastExecution  uint64
}

// Coverage tracks which instruction addresses a run reached, over a known
// code range, for the CLI's -coverage report.
type Coverage struct {
	Enabled bool

	executed  map[uint64]*CoverageEntry
	codeStart uint64
	codeEnd   uint64
}

// NewCoverage returns an enabled coverage tracker over [start, end).
func NewCoverage(start, end uint64) *Coverage {
	return &Coverage{
		Enabled:   true,
		executed:  make(map[uint64]*CoverageEntry),
		codeStart: start,
		codeEnd:   end,
	}
}

// RecordExecution records one execution of the instruction at addr on the
// given cycle count.
func (c *Coverage) RecordExecution(addr, cycle uint64) {
	if !c.Enabled {
		return
	}
	if e, ok := c.executed[addr]; ok {
		e.ExecutionCount++
		e.LastExecution = cycle
		return
	}
	c.executed[addr] = &CoverageEntry{
		Address:        addr,
		ExecutionCount: 1,
		FirstExecution: cycle,
		LastExecution:  cycle,
	}
}

// Percent returns the fraction of 4-byte-aligned addresses in the code
// range that were executed at least once, in [0, 100].
func (c *Coverage) Percent() float64 {
	if c.codeEnd <= c.codeStart {
		return 0
	}
	total := (c.codeEnd - c.codeStart) / 4
	if total == 0 {
		return 0
	}
	var hit uint64
	for addr := range c.executed {
		if addr >= c.codeStart && addr < c.codeEnd {
			hit++
		}
	}
	return float64(hit) / float64(total) * 100
}

// Unexecuted returns the addresses in the code range never recorded,
// ascending, for a "dead code" report.
func (c *Coverage) Unexecuted() []uint64 {
	var missed []uint64
	for addr := c.codeStart; addr < c.codeEnd; addr += 4 {
		if _, ok := c.executed[addr]; !ok {
			missed = append(missed, addr)
		}
	}
	sort.Slice(missed, func(i, j int) bool { return missed[i] < missed[j] })
	return missed
}

// MarshalJSON renders a coverage summary report.
func (c *Coverage) MarshalJSON() ([]byte, error) {
	entries := make([]*CoverageEntry, 0, len(c.executed))
	for _, e := range c.executed {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Address < entries[j].Address })

	type report struct {
		Percent    float64          `json:"percent"`
		CodeStart  uint64           `json:"code_start"`
		CodeEnd    uint64           `json:"code_end"`
		Executed   []*CoverageEntry `json:"executed"`
		Unexecuted []uint64         `json:"unexecuted"`
	}
	return json.Marshal(report{
		Percent:    c.Percent(),
		CodeStart:  c.codeStart,
		CodeEnd:    c.codeEnd,
		Executed:   entries,
		Unexecuted: c.Unexecuted(),
	})
}
