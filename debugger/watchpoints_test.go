package debugger

import "github.com/aarch64sim/aarch64sim/core"
import "testing"

func TestWatchpointOnRegisterTriggersOnChange(t *testing.T) {
	cpu := core.NewCPU()
	mem := core.NewMemory(64, 0)

	wm := NewWatchpointManager()
	wp := wm.AddWatchpoint(WatchReadWrite, "x0", 0, true, 0)
	if err := wm.InitializeWatchpoint(wp.ID, cpu, mem); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, hit := wm.CheckWatchpoints(cpu, mem); hit {
		t.Fatalf("watchpoint should not trigger before the register changes")
	}

	cpu.X[0] = 42
	got, hit := wm.CheckWatchpoints(cpu, mem)
	if !hit {
		t.Fatalf("expected the watchpoint to trigger after X0 changed")
	}
	if got.LastValue != 42 {
		t.Fatalf("LastValue = %d, want 42", got.LastValue)
	}
}

func TestWatchpointOnMemoryTriggersOnChange(t *testing.T) {
	cpu := core.NewCPU()
	mem := core.NewMemory(64, 0)

	wm := NewWatchpointManager()
	wp := wm.AddWatchpoint(WatchReadWrite, "[0x10]", 0x10, false, 0)
	if err := wm.InitializeWatchpoint(wp.ID, cpu, mem); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mem.WriteUint64(0x10, 7); err != nil {
		t.Fatal(err)
	}
	if _, hit := wm.CheckWatchpoints(cpu, mem); !hit {
		t.Fatalf("expected the watchpoint to trigger after the memory word changed")
	}
}

func TestDeleteWatchpoint(t *testing.T) {
	wm := NewWatchpointManager()
	wp := wm.AddWatchpoint(WatchWrite, "x1", 0, true, 1)
	if err := wm.DeleteWatchpoint(wp.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wm.Count() != 0 {
		t.Fatalf("Count = %d, want 0", wm.Count())
	}
}
