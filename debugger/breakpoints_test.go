package debugger

import "testing"

func TestBreakpointAddAndHit(t *testing.T) {
	bm := NewBreakpointManager()
	bp := bm.AddBreakpoint(0x401000, false, "")
	if bp.ID != 1 {
		t.Fatalf("ID = %d, want 1", bp.ID)
	}
	if !bm.HasBreakpoint(0x401000) {
		t.Fatalf("expected a breakpoint at 0x401000")
	}

	hit := bm.ProcessHit(0x401000)
	if hit.HitCount != 1 {
		t.Fatalf("HitCount = %d, want 1", hit.HitCount)
	}
	if !bm.HasBreakpoint(0x401000) {
		t.Fatalf("non-temporary breakpoint should survive a hit")
	}
}

func TestTemporaryBreakpointDeletesAfterHit(t *testing.T) {
	bm := NewBreakpointManager()
	bm.AddBreakpoint(0x2000, true, "")
	bm.ProcessHit(0x2000)
	if bm.HasBreakpoint(0x2000) {
		t.Fatalf("temporary breakpoint should be removed after its hit")
	}
}

func TestDeleteBreakpointByID(t *testing.T) {
	bm := NewBreakpointManager()
	bp := bm.AddBreakpoint(0x1000, false, "")
	if err := bm.DeleteBreakpoint(bp.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bm.Count() != 0 {
		t.Fatalf("Count = %d, want 0", bm.Count())
	}
	if err := bm.DeleteBreakpoint(bp.ID); err == nil {
		t.Fatalf("expected an error deleting an already-removed breakpoint")
	}
}

func TestEnableDisableBreakpoint(t *testing.T) {
	bm := NewBreakpointManager()
	bp := bm.AddBreakpoint(0x3000, false, "")
	if err := bm.DisableBreakpoint(bp.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bm.GetBreakpoint(0x3000).Enabled {
		t.Fatalf("breakpoint should be disabled")
	}
	if err := bm.EnableBreakpoint(bp.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bm.GetBreakpoint(0x3000).Enabled {
		t.Fatalf("breakpoint should be re-enabled")
	}
}
