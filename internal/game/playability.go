package game

import (
	"github.com/compiledigital/compile-server-go/internal/catalog"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// LanePlayability reports whether a lane accepts a given card, and in which
// orientation. Face-down play is always legal unless the lane is blocked.
type LanePlayability struct {
	Lane       int
	IsPlayable bool
	FaceUp     bool
	Reason     string
}

// passiveActive reports whether a card with the given passive kind is face-up
// anywhere on the board.
func (s *GameState) passiveActive(kind catalog.PassiveKind) bool {
	for pi := range s.Players {
		for li := range s.Players[pi].Lanes {
			for _, c := range s.Players[pi].Lanes[li].Cards {
				if c.FaceUp && c.Card.HasPassive(kind) {
					return true
				}
			}
		}
	}
	return false
}

// laneBlockedFor reports whether the seat is barred from playing into the
// lane: the opposing uncovered card carries the lane-block passive face-up.
func (s *GameState) laneBlockedFor(seat rules.Seat, lane int) bool {
	top := s.Opponent(seat).Lanes[lane].Top()
	return top != nil && top.FaceUp && top.Card.HasPassive(catalog.PassiveLaneBlock)
}

// laneProtocols returns the two protocols assigned to a shared lane: the
// seat's own and the opposing one.
func (s *GameState) laneProtocols(seat rules.Seat, lane int) (string, string) {
	return s.Player(seat).Protocols[lane], s.Opponent(seat).Protocols[lane]
}

// protocolMatches reports whether the card's protocol equals either protocol
// assigned to the lane.
func (s *GameState) protocolMatches(seat rules.Seat, lane int, card catalog.Card) bool {
	own, opp := s.laneProtocols(seat, lane)
	return card.Protocol == own || card.Protocol == opp
}

// canPlayFaceUp evaluates the face-up matching precedence for one lane:
// a card with the self-any-lane passive bypasses matching for itself; an
// active inverted-matching rule allows face-up play only where the card does
// NOT match; an active any-face-up rule allows it anywhere; otherwise the
// baseline protocol match applies.
func (s *GameState) canPlayFaceUp(seat rules.Seat, lane int, card catalog.Card) bool {
	if card.HasPassive(catalog.PassiveSelfAnyLane) {
		return true
	}
	if s.passiveActive(catalog.PassiveInvertMatching) {
		return !s.protocolMatches(seat, lane, card)
	}
	if s.passiveActive(catalog.PassiveAnyFaceUp) {
		return true
	}
	return s.protocolMatches(seat, lane, card)
}

// GetLanePlayability evaluates every lane for the seat playing the given
// card. Pure: no state is modified.
func (s *GameState) GetLanePlayability(seat rules.Seat, card catalog.Card) [LaneCount]LanePlayability {
	var out [LaneCount]LanePlayability
	for lane := 0; lane < LaneCount; lane++ {
		out[lane] = LanePlayability{Lane: lane}
		if s.laneBlockedFor(seat, lane) {
			out[lane].Reason = "lane blocked by opposing card"
			continue
		}
		out[lane].IsPlayable = true
		out[lane].FaceUp = s.canPlayFaceUp(seat, lane, card)
		if !out[lane].FaceUp {
			out[lane].Reason = "protocol mismatch"
		}
	}
	return out
}

// checkPlay validates one concrete play intent.
func (s *GameState) checkPlay(seat rules.Seat, card catalog.Card, lane int, faceUp bool) rules.LegalityResult {
	if lane < 0 || lane >= LaneCount {
		return rules.IllegalResult("lane out of range")
	}
	if s.laneBlockedFor(seat, lane) {
		return rules.IllegalResult("lane blocked by opposing card", "lane", laneName(lane))
	}
	if faceUp && !s.canPlayFaceUp(seat, lane, card) {
		return rules.IllegalResult("protocol mismatch", "protocol", card.Protocol)
	}
	return rules.LegalResult()
}

func laneName(lane int) string {
	return string(rune('0' + lane))
}
