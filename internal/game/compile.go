package game

import (
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// laneQualifies reports whether the seat's lane meets the compile thresholds:
// value of ten or more and strictly ahead of the opposing stack.
func (s *GameState) laneQualifies(seat rules.Seat, lane int) bool {
	return s.Player(seat).LaneValues[lane] >= CompileThreshold &&
		s.Player(seat).LaneValues[lane] > s.Opponent(seat).LaneValues[lane]
}

// CompilableLanes returns the lanes the seat is obliged to compile this
// turn: value thresholds met and the lane's protocol not yet compiled.
// Qualifying lanes whose protocol is already compiled are voluntary
// re-compiles and are not part of the mandatory set.
func (s *GameState) CompilableLanes(seat rules.Seat) []int {
	var out []int
	for lane := 0; lane < LaneCount; lane++ {
		if s.laneQualifies(seat, lane) && !s.Player(seat).Compiled[lane] {
			out = append(out, lane)
		}
	}
	return out
}

// recompilableLanes returns qualifying lanes already compiled; compiling one
// again awards a draw from the opponent's deck.
func (s *GameState) recompilableLanes(seat rules.Seat) []int {
	var out []int
	for lane := 0; lane < LaneCount; lane++ {
		if s.laneQualifies(seat, lane) && s.Player(seat).Compiled[lane] {
			out = append(out, lane)
		}
	}
	return out
}

// checkCompile validates a concrete compile intent: mandatory compiles and
// voluntary re-compiles are both legal, anything below threshold is not.
func (s *GameState) checkCompile(seat rules.Seat, lane int) rules.LegalityResult {
	if lane < 0 || lane >= LaneCount {
		return rules.IllegalResult("lane out of range")
	}
	if !s.laneQualifies(seat, lane) {
		return rules.IllegalResult("lane does not meet compile thresholds", "lane", laneName(lane))
	}
	return rules.LegalResult()
}

// performCompile executes the compile transition: both players' stacks in
// the lane are discarded, the protocol flips to compiled, and a protocol the
// seat had compiled before awards one card drawn from the opponent's deck.
func (e *Engine) performCompile(s *GameState, seat rules.Seat, lane int) {
	protocol := s.Player(seat).Protocols[lane]
	alreadyCompiled := s.Player(seat).CompiledProtocols[protocol] > 0

	for pi := range s.Players {
		p := &s.Players[pi]
		for _, c := range p.Lanes[lane].Cards {
			c.FaceUp = false
			c.Revealed = false
			p.Discard = append(p.Discard, c)
		}
		p.Lanes[lane].Cards = nil
	}
	s.Player(seat).Compiled[lane] = true
	s.Player(seat).CompiledProtocols[protocol]++
	s.Player(seat).Stats.LanesCompiled++
	s.Phase.CompiledThisTurn = true
	s.RecomputeLaneValues()

	ev := rules.NewEvent(rules.EventLaneCompiled, seat, "", "")
	ev.Lane = lane
	ev.Data = protocol
	s.logEvent(ev)

	if alreadyCompiled {
		s.drawFromOpponent(seat)
	}

	if s.Player(seat).HasCompiledAll() {
		winner := seat
		s.Winner = &winner
		s.logEvent(rules.NewEvent(rules.EventGameOver, seat, "", ""))
		return
	}

	e.controlTrigger(s, rules.ActionRearrangeProtocols)
}

// updateControlMarker recomputes the control marker during the control
// phase: a player leading in two or more lanes takes it; a tie leaves it
// with the current holder.
func (s *GameState) updateControlMarker() {
	if !s.UseControl {
		return
	}
	var leads [2]int
	for lane := 0; lane < LaneCount; lane++ {
		south := s.Player(rules.SeatSouth).LaneValues[lane]
		north := s.Player(rules.SeatNorth).LaneValues[lane]
		if south > north {
			leads[rules.SeatSouth]++
		} else if north > south {
			leads[rules.SeatNorth]++
		}
	}
	for seat := rules.SeatSouth; seat <= rules.SeatNorth; seat++ {
		if leads[seat] >= 2 && (s.ControlHolder == nil || *s.ControlHolder != seat) {
			holder := seat
			s.ControlHolder = &holder
			s.logEvent(rules.NewEvent(rules.EventControlGained, seat, "", ""))
		}
	}
}

// controlTrigger offers the control-marker holder an optional protocol
// rearrangement on the opposing side. Compiles offer a full reordering,
// hand refreshes a two-protocol swap.
func (e *Engine) controlTrigger(s *GameState, variant rules.ActionType) {
	if !s.UseControl || s.ControlHolder == nil {
		return
	}
	holder := *s.ControlHolder
	base := rules.Base{ActorSeat: holder, Optional: true}
	switch variant {
	case rules.ActionSwapProtocols:
		s.Actions.Issue(rules.SwapProtocols{Base: base, Target: holder.Other()})
	default:
		s.Actions.Issue(rules.RearrangeProtocols{Base: base, Target: holder.Other()})
	}
	s.logEvent(rules.NewEvent(rules.EventActionRequired, holder, "", ""))
}

// applyProtocolOrder permutes the target side's protocols to the given
// order. Compiled flags travel with their protocol; lane stacks stay put.
func (s *GameState) applyProtocolOrder(target rules.Seat, order [LaneCount]string) rules.LegalityResult {
	p := s.Player(target)

	var perm [LaneCount]int
	used := [LaneCount]bool{}
	for i, name := range order {
		found := -1
		for j, existing := range p.Protocols {
			if existing == name && !used[j] {
				found = j
				break
			}
		}
		if found < 0 {
			return rules.IllegalResult("order is not a permutation of the target's protocols", "protocol", name)
		}
		used[found] = true
		perm[i] = found
	}

	var protocols [LaneCount]string
	var compiled [LaneCount]bool
	for i, j := range perm {
		protocols[i] = p.Protocols[j]
		compiled[i] = p.Compiled[j]
	}
	p.Protocols = protocols
	p.Compiled = compiled
	s.logEvent(rules.NewEvent(rules.EventProtocolsRearranged, target, "", ""))
	return rules.LegalResult()
}

// applyProtocolSwap exchanges two lane protocols on the target side.
func (s *GameState) applyProtocolSwap(target rules.Seat, a, b int) rules.LegalityResult {
	if a < 0 || a >= LaneCount || b < 0 || b >= LaneCount || a == b {
		return rules.IllegalResult("invalid lane pair")
	}
	p := s.Player(target)
	p.Protocols[a], p.Protocols[b] = p.Protocols[b], p.Protocols[a]
	p.Compiled[a], p.Compiled[b] = p.Compiled[b], p.Compiled[a]
	s.logEvent(rules.NewEvent(rules.EventProtocolsRearranged, target, "", ""))
	return rules.LegalResult()
}
