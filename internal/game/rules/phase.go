package rules

import "fmt"

// Phase represents one of the six phases of a Compile turn.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseControl
	PhaseCompile
	PhaseAction
	PhaseHandLimit
	PhaseEnd
)

var phaseNames = map[Phase]string{
	PhaseStart:     "START",
	PhaseControl:   "CONTROL",
	PhaseCompile:   "COMPILE",
	PhaseAction:    "ACTION",
	PhaseHandLimit: "HAND_LIMIT",
	PhaseEnd:       "END",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// phaseSequence is the fixed order phases are visited within one turn.
var phaseSequence = []Phase{
	PhaseStart,
	PhaseControl,
	PhaseCompile,
	PhaseAction,
	PhaseHandLimit,
	PhaseEnd,
}

// PhaseTracker tracks turn progression for the acting player. Fields are
// exported so a tracker survives snapshot serialization.
type PhaseTracker struct {
	Index            int
	TurnNumber       int
	Active           Seat
	CompiledThisTurn bool
	ActionTaken      bool
}

// NewPhaseTracker creates a tracker positioned at the given seat's start
// phase, turn 1.
func NewPhaseTracker(active Seat) PhaseTracker {
	return PhaseTracker{Index: 0, TurnNumber: 1, Active: active}
}

// Current returns the phase currently in progress.
func (pt *PhaseTracker) Current() Phase {
	return phaseSequence[pt.Index]
}

// Advance moves to the next phase. Leaving the compile phase after a compile
// skips the action phase: compiling replaces the player's action for the
// turn. Advancing past the end phase hands the turn to the other seat and
// resets per-turn flags.
func (pt *PhaseTracker) Advance() Phase {
	if pt.Current() == PhaseCompile && pt.CompiledThisTurn {
		pt.Index = indexOf(PhaseHandLimit)
		return pt.Current()
	}

	pt.Index++
	if pt.Index >= len(phaseSequence) {
		pt.Index = 0
		pt.TurnNumber++
		pt.Active = pt.Active.Other()
		pt.CompiledThisTurn = false
		pt.ActionTaken = false
	}
	return pt.Current()
}

func indexOf(p Phase) int {
	for i, candidate := range phaseSequence {
		if candidate == p {
			return i
		}
	}
	return 0
}
