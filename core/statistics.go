package core

import (
	"encoding/json"
	"sort"
)

// PerformanceStatistics accumulates execution counters over a run,
// adapted from the teacher's vm/statistics.go InstructionCounts/HotPath
// tracking to this simulator's opcode tags and 64-bit addresses.
type PerformanceStatistics struct {
	Enabled bool

	TotalInstructions uint64
	TotalCycles       uint64

	InstructionCounts map[string]uint64

	BranchCount      uint64
	BranchTakenCount uint64

	HotPath map[uint64]uint64

	MemoryReads  uint64
	MemoryWrites uint64
}

// NewPerformanceStatistics returns an enabled, zeroed statistics tracker.
func NewPerformanceStatistics() *PerformanceStatistics {
	return &PerformanceStatistics{
		Enabled:           true,
		InstructionCounts: make(map[string]uint64),
		HotPath:           make(map[uint64]uint64),
	}
}

var branchOps = map[Op]bool{
	OpB: true, OpBL: true, OpRet: true, OpBCond: true, OpCbz: true, OpCbnz: true,
}

// RecordStep folds one executed instruction into the running statistics.
func (s *PerformanceStatistics) RecordStep(addr uint64, d *Decoded, taken bool) {
	if !s.Enabled {
		return
	}
	s.TotalInstructions++
	s.InstructionCounts[d.Op.String()]++
	s.HotPath[addr]++

	if branchOps[d.Op] {
		s.BranchCount++
		if taken {
			s.BranchTakenCount++
		}
	}
}

// HotPathEntry pairs an address with its execution count, for ranked
// reporting.
type HotPathEntry struct {
	Address uint64
	Count   uint64
}

// TopHotPath returns up to n addresses by descending execution count.
func (s *PerformanceStatistics) TopHotPath(n int) []HotPathEntry {
	entries := make([]HotPathEntry, 0, len(s.HotPath))
	for addr, count := range s.HotPath {
		entries = append(entries, HotPathEntry{Address: addr, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Address < entries[j].Address
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// MarshalJSON renders the statistics as a JSON report, for the CLI's
// -stats output.
func (s *PerformanceStatistics) MarshalJSON() ([]byte, error) {
	type report struct {
		TotalInstructions uint64            `json:"total_instructions"`
		TotalCycles       uint64            `json:"total_cycles"`
		InstructionCounts map[string]uint64 `json:"instruction_counts"`
		BranchCount       uint64            `json:"branch_count"`
		BranchTakenCount  uint64            `json:"branch_taken_count"`
		MemoryReads       uint64            `json:"memory_reads"`
		MemoryWrites      uint64            `json:"memory_writes"`
		HotPath           []HotPathEntry    `json:"hot_path"`
	}
	return json.Marshal(report{
		TotalInstructions: s.TotalInstructions,
		TotalCycles:       s.TotalCycles,
		InstructionCounts: s.InstructionCounts,
		BranchCount:       s.BranchCount,
		BranchTakenCount:  s.BranchTakenCount,
		MemoryReads:       s.MemoryReads,
		MemoryWrites:      s.MemoryWrites,
		HotPath:           s.TopHotPath(20),
	})
}
