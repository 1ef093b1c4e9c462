package ai

import (
	"math/rand"

	"github.com/compiledigital/compile-server-go/internal/game"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// easyStrategy picks uniformly among legal options. It exists so new players
// have an opponent that is legal but not clever.
type easyStrategy struct {
	rng *rand.Rand
}

func (e *easyStrategy) ChooseTurnMove(s *game.GameState, seat rules.Seat) Move {
	opts := playOptions(s, seat)
	// The refill is one more face in the lineup.
	pick := e.rng.Intn(len(opts) + 1)
	if pick == len(opts) {
		return Move{Kind: MoveFillHand}
	}
	o := opts[pick]
	return Move{Kind: MovePlayCard, CardID: o.cardID, Lane: o.lane, FaceUp: o.faceUp}
}

func (e *easyStrategy) ResolveAction(s *game.GameState) Move {
	act := s.Actions.Active
	if act == nil {
		return Move{Kind: MoveSkip}
	}
	switch a := act.(type) {
	case rules.RearrangeProtocols:
		order := s.Player(a.Target).Protocols
		e.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		return Move{Kind: MoveResolveOrder, Order: order}
	case rules.SwapProtocols:
		laneA := e.rng.Intn(game.LaneCount)
		laneB := (laneA + 1 + e.rng.Intn(game.LaneCount-1)) % game.LaneCount
		return Move{Kind: MoveResolveLanePair, Lane: laneA, LaneB: laneB}
	case rules.PromptOptionalEffect:
		if e.rng.Intn(2) == 0 {
			return Move{Kind: MoveAccept}
		}
		return Move{Kind: MoveSkip}
	}
	if targets := game.PendingTargets(s); len(targets) > 0 {
		return Move{Kind: MoveResolveCard, CardID: targets[e.rng.Intn(len(targets))]}
	}
	if lanes := game.PendingLanes(s); len(lanes) > 0 {
		return Move{Kind: MoveResolveLane, Lane: lanes[e.rng.Intn(len(lanes))]}
	}
	return Move{Kind: MoveSkip}
}
