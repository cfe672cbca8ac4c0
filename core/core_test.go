package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// newTestDriver builds a driver over a fresh image of size bytes starting
// at programStart, with the given code words placed at the start of the
// buffer.
func newTestDriver(t *testing.T, programStart uint64, size int, words ...uint32) *Driver {
	t.Helper()
	mem := NewMemory(size, programStart)
	mem.Entry = programStart
	for i, w := range words {
		if err := mem.WriteUint32(programStart+uint64(i*4), w); err != nil {
			t.Fatalf("seeding word %d: %v", i, err)
		}
	}
	cpu := NewCPU()
	dr := NewDriver(cpu, mem)
	dr.Start()
	cpu.SP = programStart + uint64(size)
	return dr
}

func runN(t *testing.T, dr *Driver, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		cont, err := dr.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if !cont {
			return
		}
	}
}

// E1: MOVZ/MOVK build an arbitrary 64-bit constant.
func TestMovzMovkBuildsConstant(t *testing.T) {
	// movz x0, #0x1234
	// movk x0, #0xabcd, lsl #16
	movz := uint32(0xD2824680)
	movk := uint32(0xF2B579A0)
	dr := newTestDriver(t, 0x1000, 256, movz, movk)
	runN(t, dr, 2)
	got := dr.CPU.X[0]
	want := uint64(0xabcd1234)
	if got != want {
		t.Fatalf("X0 = 0x%X, want 0x%X", got, want)
	}
}

// E2: ADD (immediate) with optional LSL #12.
func TestAddImmShifted(t *testing.T) {
	// movz x1, #1
	// add x0, x1, #1, lsl #12   ; x0 = 1 + 0x1000
	movz := uint32(0xD2800021)
	add := uint32(0x91400420)
	dr := newTestDriver(t, 0x1000, 256, movz, add)
	runN(t, dr, 2)
	if dr.CPU.X[0] != 0x1001 {
		t.Fatalf("X0 = 0x%X, want 0x1001", dr.CPU.X[0])
	}
}

// E3: SUBS sets flags and a conditional branch follows them.
func TestSubsAndCondBranch(t *testing.T) {
	// movz x0, #5
	// subs x0, x0, #5   ; result 0, Z set
	// b.eq #8           ; taken, skip next instruction
	// movz x1, #0xdead  ; skipped
	// movz x1, #1       ; landed on
	movz0 := uint32(0xD28000A0)
	subsImm := uint32(0xF1001400)
	beq := uint32(0x54000040)
	deadEnd := uint32(0xD29BD5A1)
	landed := uint32(0xD2800021)
	dr := newTestDriver(t, 0x1000, 256, movz0, subsImm, beq, deadEnd, landed)
	runN(t, dr, 4)
	if !dr.CPU.APSR.Z {
		t.Fatalf("expected Z flag set after subs to zero")
	}
	if dr.CPU.X[1] != 1 {
		t.Fatalf("X1 = %d, want 1 (branch should have skipped the dead-end movz)", dr.CPU.X[1])
	}
}

// E4: a byte store/load round trip through memory.
func TestStrbLdrbRoundTrip(t *testing.T) {
	// movz x0, #0x42
	// movz x1, #0x2000   ; target address (within image)
	// strb w0, [x1]
	// ldrb w2, [x1]
	movzVal := uint32(0xD2800840)
	movzAddr := uint32(0xD2840001)
	strb := uint32(0x39000020)
	ldrb := uint32(0x39400022)
	dr := newTestDriver(t, 0x1000, 0x3000, movzVal, movzAddr, strb, ldrb)
	runN(t, dr, 4)
	if dr.CPU.X[2] != 0x42 {
		t.Fatalf("X2 = 0x%X, want 0x42", dr.CPU.X[2])
	}
}

// E5: an out-of-range memory access halts the core fatally.
func TestOutOfRangeAccessHalts(t *testing.T) {
	// ldr x0, [x1]  with x1 pointing far outside the image
	ldr := uint32(0xF9400020)
	dr := newTestDriver(t, 0x1000, 64, ldr)
	dr.CPU.X[1] = 0xFFFFFFFFFFFF0000
	_, err := dr.Step()
	if err == nil {
		t.Fatalf("expected an out-of-range fault")
	}
	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected *Fault, got %T: %v", err, err)
	}
	if !f.Fatal() {
		t.Fatalf("expected a fatal fault")
	}
	if dr.State != StateHalted {
		t.Fatalf("driver state = %v, want HALTED", dr.State)
	}
}

// E6: SVC exit halts the core cleanly, without an error.
func TestSvcExitHalts(t *testing.T) {
	// movz x8, #93   ; exit syscall number
	// svc #0
	movz := uint32(0xD2800BA8)
	svc := uint32(0xD4000001)
	dr := newTestDriver(t, 0x1000, 64, movz, svc)
	runN(t, dr, 2)
	if dr.State != StateHalted {
		t.Fatalf("driver state = %v, want HALTED", dr.State)
	}
	if dr.LastFault != nil {
		t.Fatalf("unexpected fault on clean exit: %v", dr.LastFault)
	}
}

// SVC write(1, buf, n) copies from the image to the configured stdout.
func TestSvcWriteToStdout(t *testing.T) {
	var out bytes.Buffer
	mem := NewMemory(0x2000, 0x1000)
	mem.Entry = 0x1000
	msg := []byte("hi\n")
	if err := mem.WriteBytes(0x1500, msg); err != nil {
		t.Fatal(err)
	}
	cpu := NewCPU()
	dr := NewDriver(cpu, mem)
	dr.Stdout = &out
	dr.Start()

	cpu.X[0] = 1
	cpu.X[1] = 0x1500
	cpu.X[2] = uint64(len(msg))
	cpu.X[8] = SyscallWrite
	if err := mem.WriteUint32(0x1000, 0xD4000001); err != nil {
		t.Fatal(err)
	}
	runN(t, dr, 1)
	if out.String() != "hi\n" {
		t.Fatalf("stdout = %q, want %q", out.String(), "hi\n")
	}
	if cpu.X[0] != uint64(len(msg)) {
		t.Fatalf("X0 = %d, want %d", cpu.X[0], len(msg))
	}
}

// An unrecognized instruction word is a non-fatal fault: the core logs it
// and advances past it rather than halting.
func TestUnknownInstructionIsNonFatal(t *testing.T) {
	dr := newTestDriver(t, 0x1000, 64, 0xFFFFFFFF, 0xD503201F)
	cont, err := dr.Step()
	if err == nil {
		t.Fatalf("expected a fault for an unknown word")
	}
	if !cont {
		t.Fatalf("unknown instruction should not halt the core")
	}
	if dr.State != StateRunning {
		t.Fatalf("state = %v, want RUNNING after a non-fatal fault", dr.State)
	}
	if !strings.Contains(err.Error(), "UnknownInstruction") {
		t.Fatalf("error %q does not mention UnknownInstruction", err)
	}
}

// Register 31 as XZR always reads zero in register-form contexts,
// invariant I1.
func TestXZRReadsZero(t *testing.T) {
	cpu := NewCPU()
	cpu.X[5] = 0xDEADBEEF
	if got := cpu.ReadZR(31); got != 0 {
		t.Fatalf("XZR read = 0x%X, want 0", got)
	}
	cpu.WriteZR(31, 0xFF)
	if got := cpu.ReadZR(31); got != 0 {
		t.Fatalf("XZR still reads 0x%X after a discarded write", got)
	}
}

// A 32-bit result zero-extends into the full 64-bit register, invariant I2.
func TestThirtyTwoBitWriteZeroExtends(t *testing.T) {
	cpu := NewCPU()
	cpu.X[0] = 0xFFFFFFFFFFFFFFFF
	cpu.WriteWidth(0, 0xFFFFFFFF, false)
	if cpu.X[0] != 0x00000000FFFFFFFF {
		t.Fatalf("X0 = 0x%X, want the upper 32 bits cleared", cpu.X[0])
	}
}
