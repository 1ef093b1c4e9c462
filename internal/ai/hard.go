package ai

import (
	"sort"

	"github.com/compiledigital/compile-server-go/internal/game"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// hardStrategy scores every legal option with weighted heuristics and plays
// the best one. Pending actions get per-variant selection rules; anything it
// has no rule for drops to the greedy tier.
type hardStrategy struct {
	tuning   Tuning
	fallback normalStrategy
}

func (h *hardStrategy) ChooseTurnMove(s *game.GameState, seat rules.Seat) Move {
	t := h.tuning
	p := s.Player(seat)
	opp := s.Opponent(seat)

	fillScore := t.FillHandBase + t.HandDeficitWeight*float64(game.HandLimit-len(p.Hand))

	best := Move{Kind: MoveFillHand}
	bestScore := fillScore
	for _, o := range playOptions(s, seat) {
		v := playedValue(s, o.card, o.lane, o.faceUp)
		score := t.IntrinsicWeight*cardPower(o.card) + t.LeadGainWeight*float64(v)

		newOwn := p.LaneValues[o.lane] + v
		if !p.Compiled[o.lane] && newOwn >= game.CompileThreshold && newOwn > opp.LaneValues[o.lane] {
			score += t.CompileSetupBonus
		}
		if o.faceUp && isDisruptive(o.card) {
			score += t.DefenseWeight * float64(laneThreat(s, seat, o.lane))
		}
		if !o.faceUp {
			score -= t.FaceDownPenalty * float64(len(o.card.Keywords))
		}
		if score <= t.PlayThreshold {
			continue
		}
		if score > bestScore {
			best = Move{Kind: MovePlayCard, CardID: o.cardID, Lane: o.lane, FaceUp: o.faceUp}
			bestScore = score
		}
	}
	return best
}

func (h *hardStrategy) ResolveAction(s *game.GameState) Move {
	act := s.Actions.Active
	if act == nil {
		return Move{Kind: MoveSkip}
	}
	switch a := act.(type) {
	case rules.DiscardCards, rules.SelectCardToReveal:
		return h.pickWeakestHandCard(s)
	case rules.SelectCardToDelete, rules.SelectCardToReturn,
		rules.SelectCardToFlip, rules.SelectCardToShift:
		return h.pickBoardTarget(s, act.Actor())
	case rules.SelectPhaseEffect:
		return h.pickStrongestCandidate(s, a.Candidates)
	case rules.PromptOptionalEffect:
		return Move{Kind: MoveAccept}
	case rules.SelectLaneForShift:
		return h.pickShiftLane(s, a)
	case rules.SelectLaneForCompile:
		return h.pickCompileLane(s, a)
	case rules.RearrangeProtocols:
		return h.rearrangeToStall(s, a.Target)
	case rules.SwapProtocols:
		return h.swapToStall(s, a)
	default:
		return h.fallback.ResolveAction(s)
	}
}

// pickWeakestHandCard gives up the hand card with the least intrinsic power.
func (h *hardStrategy) pickWeakestHandCard(s *game.GameState) Move {
	targets := game.PendingTargets(s)
	if len(targets) == 0 {
		return h.fallback.ResolveAction(s)
	}
	best := targets[0]
	bestPower := 0.0
	for i, id := range targets {
		card, _, ok := s.FindCard(id)
		if !ok {
			continue
		}
		if p := cardPower(card.Card); i == 0 || p < bestPower {
			best, bestPower = id, p
		}
	}
	return Move{Kind: MoveResolveCard, CardID: best}
}

// pickBoardTarget hits the opponent's most valuable legal card; when only
// own cards are legal it sacrifices the cheapest.
func (h *hardStrategy) pickBoardTarget(s *game.GameState, actor rules.Seat) Move {
	targets := game.PendingTargets(s)
	if len(targets) == 0 {
		return h.fallback.ResolveAction(s)
	}
	type scored struct {
		id     string
		theirs bool
		value  int
	}
	var ranked []scored
	for _, id := range targets {
		card, loc, ok := s.FindCard(id)
		if !ok || loc.Zone != game.ZoneLane {
			continue
		}
		ranked = append(ranked, scored{
			id:     id,
			theirs: loc.Seat == actor.Other(),
			value:  s.EffectiveValue(*card, loc.Lane),
		})
	}
	if len(ranked) == 0 {
		return Move{Kind: MoveResolveCard, CardID: targets[0]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].theirs != ranked[j].theirs {
			return ranked[i].theirs
		}
		if ranked[i].theirs {
			return ranked[i].value > ranked[j].value
		}
		return ranked[i].value < ranked[j].value
	})
	return Move{Kind: MoveResolveCard, CardID: ranked[0].id}
}

func (h *hardStrategy) pickStrongestCandidate(s *game.GameState, candidates []string) Move {
	if len(candidates) == 0 {
		return Move{Kind: MoveSkip}
	}
	best := candidates[0]
	bestPower := -1.0
	for _, id := range candidates {
		card, _, ok := s.FindCard(id)
		if !ok {
			continue
		}
		if p := cardPower(card.Card); p > bestPower {
			best, bestPower = id, p
		}
	}
	return Move{Kind: MoveResolveCard, CardID: best}
}

// pickShiftLane routes a shifted card. Own cards shore up the weakest lane
// (or close out a compile); cards landing on the opposing side go where the
// actor's lead is widest, and never where they would hand over a compile.
func (h *hardStrategy) pickShiftLane(s *game.GameState, a rules.SelectLaneForShift) Move {
	lanes := game.PendingLanes(s)
	if len(lanes) == 0 {
		return Move{Kind: MoveSkip}
	}
	actor := a.Actor()
	card, loc, found := s.FindCard(a.CardID)

	destSeat := actor
	if found && loc.Zone == game.ZoneLane {
		destSeat = loc.Seat
	}
	if a.PlaceOnOpponent {
		destSeat = actor.Other()
	}

	bestLane := lanes[0]
	bestScore := 0.0
	for i, lane := range lanes {
		v := 0
		if found {
			pc := *card
			if loc.Zone != game.ZoneLane {
				pc.FaceUp = false
			}
			v = s.EffectiveValue(pc, lane)
		}
		own := s.Player(actor).LaneValues[lane]
		opp := s.Opponent(actor).LaneValues[lane]

		var score float64
		if destSeat == actor {
			score = -float64(own - opp)
			newOwn := own + v
			if !s.Player(actor).Compiled[lane] && newOwn >= game.CompileThreshold && newOwn > opp {
				score += 100
			}
		} else {
			newOpp := opp + v
			score = float64(own - newOpp)
			if newOpp >= game.CompileThreshold && newOpp > own {
				score -= 100
			}
		}
		if i == 0 || score > bestScore {
			bestLane, bestScore = lane, score
		}
	}
	return Move{Kind: MoveResolveLane, Lane: bestLane}
}

// pickCompileLane takes the qualifying lane holding the most value.
func (h *hardStrategy) pickCompileLane(s *game.GameState, a rules.SelectLaneForCompile) Move {
	actor := a.Actor()
	best := a.Lanes[0]
	for _, lane := range a.Lanes[1:] {
		if s.Player(actor).LaneValues[lane] > s.Player(actor).LaneValues[best] {
			best = lane
		}
	}
	return Move{Kind: MoveResolveLane, Lane: best}
}

// rearrangeToStall parks the target's already-compiled protocols on their
// highest-value lanes, so the points they have built stop counting toward a
// fresh compile.
func (h *hardStrategy) rearrangeToStall(s *game.GameState, target rules.Seat) Move {
	p := s.Player(target)

	laneOrder := []int{0, 1, 2}
	sort.SliceStable(laneOrder, func(i, j int) bool {
		return p.LaneValues[laneOrder[i]] > p.LaneValues[laneOrder[j]]
	})

	var compiled, open []string
	for i, proto := range p.Protocols {
		if p.Compiled[i] {
			compiled = append(compiled, proto)
		} else {
			open = append(open, proto)
		}
	}

	var order [game.LaneCount]string
	for _, lane := range laneOrder {
		if len(compiled) > 0 {
			order[lane], compiled = compiled[0], compiled[1:]
		} else {
			order[lane], open = open[0], open[1:]
		}
	}
	return Move{Kind: MoveResolveOrder, Order: order}
}

// swapToStall picks the protocol swap that parks the most compiled value on
// the target's side, or declines when no swap improves on the board as it
// stands.
func (h *hardStrategy) swapToStall(s *game.GameState, act rules.SwapProtocols) Move {
	p := s.Player(act.Target)

	stalled := func(compiled [game.LaneCount]bool) int {
		total := 0
		for i, c := range compiled {
			if c {
				total += p.LaneValues[i]
			}
		}
		return total
	}

	current := stalled(p.Compiled)
	bestA, bestB, bestGain := 0, 1, 0
	pairs := [][2]int{{0, 1}, {0, 2}, {1, 2}}
	for _, pair := range pairs {
		swapped := p.Compiled
		swapped[pair[0]], swapped[pair[1]] = swapped[pair[1]], swapped[pair[0]]
		if gain := stalled(swapped) - current; gain > bestGain {
			bestA, bestB, bestGain = pair[0], pair[1], gain
		}
	}
	if bestGain <= 0 {
		return Move{Kind: MoveSkip}
	}
	return Move{Kind: MoveResolveLanePair, Lane: bestA, LaneB: bestB}
}
