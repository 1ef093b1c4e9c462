package ai

import (
	"github.com/compiledigital/compile-server-go/internal/game"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// normalStrategy is locally greedy: it grabs the biggest immediate lane
// lead, prefers hitting the opponent when answering prompts, and otherwise
// takes the first legal choice. It never looks a move ahead.
type normalStrategy struct{}

func (n *normalStrategy) ChooseTurnMove(s *game.GameState, seat rules.Seat) Move {
	opts := playOptions(s, seat)
	if len(opts) == 0 {
		return Move{Kind: MoveFillHand}
	}

	best := -1
	bestGain := -1
	for i, o := range opts {
		gain := playedValue(s, o.card, o.lane, o.faceUp)
		// Face-up plays keep the effect box live.
		if o.faceUp {
			gain++
		}
		if gain > bestGain {
			best, bestGain = i, gain
		}
	}
	if bestGain <= 0 {
		return Move{Kind: MoveFillHand}
	}
	o := opts[best]
	return Move{Kind: MovePlayCard, CardID: o.cardID, Lane: o.lane, FaceUp: o.faceUp}
}

func (n *normalStrategy) ResolveAction(s *game.GameState) Move {
	act := s.Actions.Active
	if act == nil {
		return Move{Kind: MoveSkip}
	}
	switch a := act.(type) {
	case rules.PromptOptionalEffect:
		return Move{Kind: MoveAccept}
	case rules.RearrangeProtocols:
		// Keeping the current order is a legal answer.
		return Move{Kind: MoveResolveOrder, Order: s.Player(a.Target).Protocols}
	case rules.SwapProtocols:
		return Move{Kind: MoveResolveLanePair, Lane: 0, LaneB: 1}
	}
	if targets := game.PendingTargets(s); len(targets) > 0 {
		actor := act.Actor()
		for _, id := range targets {
			if _, loc, ok := s.FindCard(id); ok && loc.Seat == actor.Other() {
				return Move{Kind: MoveResolveCard, CardID: id}
			}
		}
		return Move{Kind: MoveResolveCard, CardID: targets[0]}
	}
	if lanes := game.PendingLanes(s); len(lanes) > 0 {
		return Move{Kind: MoveResolveLane, Lane: lanes[0]}
	}
	return Move{Kind: MoveSkip}
}
