// Package ai provides the three interchangeable computer opponents. Each
// strategy is a pure decision function over a GameState: it returns the Move
// it wants to make and never mutates the state. The caller (the match server
// or a test harness) applies the Move through the engine facade.
package ai

import (
	"fmt"
	"math/rand"

	"github.com/compiledigital/compile-server-go/internal/catalog"
	"github.com/compiledigital/compile-server-go/internal/game"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// Difficulty selects the strategy tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// MoveKind discriminates what the caller should do with a Move.
type MoveKind string

const (
	// MovePlayCard plays CardID into Lane, FaceUp or face-down.
	MovePlayCard MoveKind = "PLAY_CARD"
	// MoveFillHand draws back up to the hand limit.
	MoveFillHand MoveKind = "FILL_HAND"
	// MoveResolveCard answers the pending action with CardID.
	MoveResolveCard MoveKind = "RESOLVE_CARD"
	// MoveResolveLane answers the pending action with Lane.
	MoveResolveLane MoveKind = "RESOLVE_LANE"
	// MoveResolveOrder answers a rearrange action with Order.
	MoveResolveOrder MoveKind = "RESOLVE_ORDER"
	// MoveResolveLanePair answers a swap action with Lane and LaneB.
	MoveResolveLanePair MoveKind = "RESOLVE_LANE_PAIR"
	// MoveAccept accepts a yes/no optional-effect prompt.
	MoveAccept MoveKind = "ACCEPT"
	// MoveSkip declines the pending optional action.
	MoveSkip MoveKind = "SKIP"
)

// Move is one decision. Only the fields relevant to Kind are set.
type Move struct {
	Kind   MoveKind
	CardID string
	Lane   int
	FaceUp bool
	LaneB  int
	Order  [game.LaneCount]string
}

// Strategy is the contract every difficulty tier implements.
type Strategy interface {
	// ChooseTurnMove picks the seat's action-phase move: a card play or a
	// hand refill. Called only when no action is pending.
	ChooseTurnMove(s *game.GameState, seat rules.Seat) Move
	// ResolveAction answers the pending ActionRequired for its actor.
	ResolveAction(s *game.GameState) Move
}

// NewStrategy creates the strategy for a difficulty tier. The rng feeds the
// tiers that randomize; pass a seeded source for reproducible games.
func NewStrategy(d Difficulty, rng *rand.Rand) (Strategy, error) {
	switch d {
	case DifficultyEasy:
		return &easyStrategy{rng: rng}, nil
	case DifficultyNormal:
		return &normalStrategy{}, nil
	case DifficultyHard:
		return &hardStrategy{tuning: DefaultTuning}, nil
	default:
		return nil, fmt.Errorf("unknown difficulty: %q", d)
	}
}

// RunTurn decides the active seat's action-phase move.
func RunTurn(s *game.GameState, d Difficulty) (Move, error) {
	if s.Actions.Pending() {
		return Move{}, fmt.Errorf("action pending, resolve it first")
	}
	strat, err := NewStrategy(d, newRNG())
	if err != nil {
		return Move{}, err
	}
	return strat.ChooseTurnMove(s, s.ActiveSeat()), nil
}

// ResolvePendingAction decides the answer to the pending action, on behalf
// of whichever seat the action names as its actor.
func ResolvePendingAction(s *game.GameState, d Difficulty) (Move, error) {
	if !s.Actions.Pending() {
		return Move{}, fmt.Errorf("no action pending")
	}
	strat, err := NewStrategy(d, newRNG())
	if err != nil {
		return Move{}, err
	}
	return strat.ResolveAction(s), nil
}

// newRNG seeds from the process-global source, which is safe for concurrent
// matches; a *rand.Rand itself is not.
func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(rand.Int63()))
}

// playOption is one legal card play the tiers choose between.
type playOption struct {
	cardID string
	card   catalog.Card
	lane   int
	faceUp bool
}

// playOptions enumerates every legal play for the seat's hand: one face-up
// option per matching lane and one face-down option per open lane.
func playOptions(s *game.GameState, seat rules.Seat) []playOption {
	var opts []playOption
	for _, held := range s.Player(seat).Hand {
		playability := s.GetLanePlayability(seat, held.Card)
		for lane := 0; lane < game.LaneCount; lane++ {
			if !playability[lane].IsPlayable {
				continue
			}
			if playability[lane].FaceUp {
				opts = append(opts, playOption{held.ID, held.Card, lane, true})
			}
			opts = append(opts, playOption{held.ID, held.Card, lane, false})
		}
	}
	return opts
}

var disruptiveKeywords = []catalog.Keyword{
	catalog.KeywordDelete,
	catalog.KeywordFlip,
	catalog.KeywordShift,
	catalog.KeywordReturn,
	catalog.KeywordDiscard,
}

func isDisruptive(c catalog.Card) bool {
	for _, k := range disruptiveKeywords {
		if c.HasKeyword(k) {
			return true
		}
	}
	return false
}

// cardPower is the intrinsic-strength ranking shared by the tiers: effect
// density plus a preference for cheap bodies, since a low printed value
// usually buys a stronger effect box.
func cardPower(c catalog.Card) float64 {
	return float64(len(c.Keywords)) + float64(4-c.Value)*0.5
}

// laneThreat grades how close the opposing side of a lane is to compiling.
func laneThreat(s *game.GameState, seat rules.Seat, lane int) int {
	opp := s.Opponent(seat).LaneValues[lane]
	switch {
	case opp >= 10:
		return 3
	case opp >= 8:
		return 2
	case opp >= 6:
		return 1
	default:
		return 0
	}
}

// playedValue is the value a hand card would contribute once placed.
func playedValue(s *game.GameState, c catalog.Card, lane int, faceUp bool) int {
	return s.EffectiveValue(game.PlayedCard{Card: c, FaceUp: faceUp}, lane)
}
