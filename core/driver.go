package core

import (
	"io"
	"os"
)

// RunState is the driver's coarse execution phase, per spec.md §4.5.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateHalted
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateHalted:
		return "HALTED"
	}
	return "?"
}

// Driver owns the fetch-decode-execute loop over a CPU and Memory,
// grounded on the teacher's vm/executor.go Step/Run state-machine shape
// but operating on the AArch64 register file and opcode set instead.
type Driver struct {
	CPU    *CPU
	Memory *Memory

	State     RunState
	LastFault error

	Stdin  io.Reader
	Stdout io.Writer

	Trace    *Trace                 // optional; nil disables tracing
	Stats    *PerformanceStatistics // optional; nil disables statistics
	Coverage *Coverage              // optional; nil disables coverage
}

// NewDriver wires a CPU and Memory into an idle driver, defaulting its
// syscall IO to the process's own stdin/stdout.
func NewDriver(cpu *CPU, mem *Memory) *Driver {
	return &Driver{
		CPU:    cpu,
		Memory: mem,
		State:  StateIdle,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
}

// Start transitions an idle driver into RUNNING at the image's entry
// point, per spec.md §4.5.
func (dr *Driver) Start() {
	dr.CPU.PC = dr.Memory.Entry
	dr.CPU.Running = true
	dr.State = StateRunning
}

// Step performs one fetch-decode-execute cycle. It returns false once the
// core has halted (either by SVC exit or a fatal fault), at which point
// the caller should stop calling Step. A non-fatal fault (for example an
// unknown instruction) is returned together with true: the core has moved
// past the faulting instruction and keeps running.
func (dr *Driver) Step() (bool, error) {
	if dr.State != StateRunning {
		return false, nil
	}

	if !dr.Memory.InRange(dr.CPU.PC) {
		f := newFault(OutOfRangeMemory, "PC 0x%X left the mapped image", dr.CPU.PC)
		dr.halt(f)
		return false, f
	}

	word, err := dr.Memory.ReadUint32(dr.CPU.PC)
	if err != nil {
		dr.halt(err)
		return false, err
	}

	decoded, derr := Decode(word)
	if derr != nil {
		if dr.Trace != nil {
			dr.Trace.RecordFault(dr.CPU.PC, derr)
		}
		dr.LastFault = derr
		dr.CPU.PC += 4
		dr.CPU.Cycles++
		return true, derr
	}

	prevPC := dr.CPU.PC
	branched, xerr := dr.execute(decoded)
	if xerr != nil {
		if f, ok := xerr.(*Fault); ok && f.Fatal() {
			dr.halt(f)
			return false, f
		}
		if dr.Trace != nil {
			dr.Trace.RecordFault(prevPC, xerr)
		}
		dr.LastFault = xerr
	}

	if !dr.CPU.Running {
		dr.State = StateHalted
		if dr.Trace != nil {
			dr.Trace.RecordStep(prevPC, decoded, dr.CPU)
		}
		return false, nil
	}

	if !branched {
		dr.CPU.PC += 4
	}
	dr.CPU.Cycles++
	dr.CPU.ClearXZRShadow()

	if dr.Trace != nil {
		dr.Trace.RecordStep(prevPC, decoded, dr.CPU)
	}
	if dr.Stats != nil {
		dr.Stats.RecordStep(prevPC, decoded, branched)
		dr.Stats.TotalCycles = dr.CPU.Cycles
		dr.Stats.MemoryReads = dr.Memory.ReadCount
		dr.Stats.MemoryWrites = dr.Memory.WriteCount
	}
	if dr.Coverage != nil {
		dr.Coverage.RecordExecution(prevPC, dr.CPU.Cycles)
	}
	return true, xerr
}

// Run steps until the core halts or maxCycles is exhausted (0 means
// unbounded), returning the final error if execution stopped on a fault.
// Non-fatal faults do not stop it; the latest one stays in LastFault.
func (dr *Driver) Run(maxCycles uint64) error {
	for maxCycles == 0 || dr.CPU.Cycles < maxCycles {
		cont, err := dr.Step()
		if !cont {
			return err
		}
	}
	return nil
}

func (dr *Driver) halt(err error) {
	dr.CPU.Running = false
	dr.State = StateHalted
	dr.LastFault = err
}

// execute dispatches on the decoded opcode tag. It returns branched=true
// when the instruction itself updated PC, so Step knows not to also
// advance it by 4.
func (dr *Driver) execute(d *Decoded) (branched bool, err error) {
	c, m := dr.CPU, dr.Memory

	switch d.Op {
	case OpNOP:
		return false, nil

	case OpAddImm:
		execAddSubImm(c, d, false, false)
	case OpSubImm:
		execAddSubImm(c, d, true, false)
	case OpSubsImm:
		execAddSubImm(c, d, true, true)
	case OpAddReg:
		execAddSubReg(c, d, false)
	case OpSubReg:
		execAddSubReg(c, d, true)
	case OpSubShifted:
		err = execAddSubShiftedReg(c, d, true, false)
	case OpSubsShifted:
		err = execAddSubShiftedReg(c, d, true, true)

	case OpAndImm:
		err = execAndOrrImm(c, d, false)
	case OpOrrImm:
		err = execAndOrrImm(c, d, true)
	case OpOrrReg:
		err = execOrrReg(c, d)

	case OpUBFM:
		err = execUBFM(c, d)

	case OpMadd:
		execMadd(c, d)
	case OpMul32, OpMul64:
		execMul(c, d)
	case OpUdiv32, OpUdiv64:
		execUdiv(c, d)
	case OpSdiv32, OpSdiv64:
		execSdiv(c, d)

	case OpMovz:
		execMovz(c, d)
	case OpMovk:
		execMovk(c, d)

	case OpLdrbImm:
		err = execLdrbImm(c, m, d)
	case OpStrbImm:
		err = execStrbImm(c, m, d)
	case OpLdrbReg:
		err = execLdrbReg(c, m, d)
	case OpStrbReg:
		err = execStrbReg(c, m, d)
	case OpLdrImm:
		err = execLdrImm(c, m, d)
	case OpLdrRegIndirect:
		err = execLdrRegIndirect(c, m, d)
	case OpStrImm:
		err = execStrImm(c, m, d)
	case OpStrPre:
		err = execStrIndexed(c, m, d, true)
	case OpStrPost:
		err = execStrIndexed(c, m, d, false)
	case OpLdrReg:
		err = execLdrReg(c, m, d)
	case OpStrReg:
		err = execStrReg(c, m, d)
	case OpLdrPc32:
		err = execLdrPc(c, m, d, false, false)
	case OpLdrPc32s:
		err = execLdrPc(c, m, d, false, true)
	case OpLdrPc64:
		err = execLdrPc(c, m, d, true, false)
	case OpLdp:
		err = execLdp(c, m, d)
	case OpStp:
		err = execStp(c, m, d)

	case OpB:
		execB(c, d)
		branched = true
	case OpBL:
		execBL(c, d)
		branched = true
	case OpRet:
		execRet(c, d)
		branched = true
	case OpBCond:
		execBCond(c, d)
		branched = true
	case OpCbz:
		execCbz(c, d, false)
		branched = true
	case OpCbnz:
		execCbz(c, d, true)
		branched = true

	case OpSVC:
		err = execSVC(c, m, dr.Stdin, dr.Stdout)

	default:
		err = newFault(UnimplementedVariant, "opcode %s has no executor", d.Op)
	}

	return branched, err
}
