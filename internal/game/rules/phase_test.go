package rules

import "testing"

func TestPhaseSequence(t *testing.T) {
	pt := NewPhaseTracker(SeatSouth)

	want := []Phase{PhaseStart, PhaseControl, PhaseCompile, PhaseAction, PhaseHandLimit, PhaseEnd}
	for i, phase := range want {
		if pt.Current() != phase {
			t.Fatalf("step %d: expected %s, got %s", i, phase, pt.Current())
		}
		pt.Advance()
	}

	if pt.Current() != PhaseStart {
		t.Fatalf("expected wrap to START, got %s", pt.Current())
	}
	if pt.Active != SeatNorth {
		t.Fatalf("expected turn handoff to NORTH, got %s", pt.Active)
	}
	if pt.TurnNumber != 2 {
		t.Fatalf("expected turn 2, got %d", pt.TurnNumber)
	}
}

func TestPhaseCompileSkipsAction(t *testing.T) {
	pt := NewPhaseTracker(SeatSouth)
	pt.Advance() // control
	pt.Advance() // compile
	if pt.Current() != PhaseCompile {
		t.Fatalf("expected COMPILE, got %s", pt.Current())
	}

	pt.CompiledThisTurn = true
	pt.Advance()
	if pt.Current() != PhaseHandLimit {
		t.Fatalf("compiling must skip ACTION, got %s", pt.Current())
	}
}

func TestPhaseHandoffResetsFlags(t *testing.T) {
	pt := NewPhaseTracker(SeatNorth)
	pt.CompiledThisTurn = true
	pt.ActionTaken = true
	for pt.Current() != PhaseEnd {
		pt.Advance()
	}
	pt.Advance()

	if pt.CompiledThisTurn || pt.ActionTaken {
		t.Fatalf("per-turn flags must reset on handoff")
	}
	if pt.Active != SeatSouth {
		t.Fatalf("expected SOUTH active, got %s", pt.Active)
	}
}
