package game

import (
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// IsCardTargetable reports whether the card is a legal choice for the
// currently pending action. Pure: any UI can call it repeatedly to highlight
// legal targets without side effects.
func (e *Engine) IsCardTargetable(cardID string, s *GameState) bool {
	act := s.Actions.Active
	if act == nil {
		return false
	}
	switch a := act.(type) {
	case rules.DiscardCards:
		return s.Player(a.Actor()).handIndex(cardID) >= 0
	case rules.SelectCardToDelete:
		return contains(e.legalTargets(s, a.Actor(), a.Filter, a.Source()), cardID)
	case rules.SelectCardToFlip:
		return contains(e.legalTargets(s, a.Actor(), a.Filter, a.Source()), cardID)
	case rules.SelectCardToReturn:
		return contains(e.legalTargets(s, a.Actor(), a.Filter, a.Source()), cardID)
	case rules.SelectCardToShift:
		return contains(e.legalTargets(s, a.Actor(), a.Filter, a.Source()), cardID)
	case rules.SelectCardToReveal:
		return contains(e.legalTargets(s, a.Actor(), a.Filter, a.Source()), cardID)
	case rules.SelectPhaseEffect:
		return contains(a.Candidates, cardID)
	default:
		return false
	}
}

// PendingTargets enumerates the legal card choices for the pending action.
// Callers that pick targets programmatically (the AI driver) use it instead
// of probing IsCardTargetable card by card.
func PendingTargets(s *GameState) []string {
	act := s.Actions.Active
	if act == nil {
		return nil
	}
	switch a := act.(type) {
	case rules.DiscardCards:
		hand := s.Player(a.Actor()).Hand
		ids := make([]string, len(hand))
		for i, c := range hand {
			ids[i] = c.ID
		}
		return ids
	case rules.SelectCardToDelete:
		return legalTargets(s, a.Actor(), a.Filter, a.Source())
	case rules.SelectCardToFlip:
		return legalTargets(s, a.Actor(), a.Filter, a.Source())
	case rules.SelectCardToReturn:
		return legalTargets(s, a.Actor(), a.Filter, a.Source())
	case rules.SelectCardToShift:
		return legalTargets(s, a.Actor(), a.Filter, a.Source())
	case rules.SelectCardToReveal:
		return legalTargets(s, a.Actor(), a.Filter, a.Source())
	case rules.SelectPhaseEffect:
		return append([]string(nil), a.Candidates...)
	default:
		return nil
	}
}

// PendingLanes enumerates the legal lane choices for the pending action.
func PendingLanes(s *GameState) []int {
	act := s.Actions.Active
	if act == nil {
		return nil
	}
	switch a := act.(type) {
	case rules.SelectLaneForShift:
		var lanes []int
		card, loc, found := s.FindCard(a.CardID)
		for lane := 0; lane < LaneCount; lane++ {
			if containsInt(a.DisallowedLanes, lane) {
				continue
			}
			if found && a.MustChangeProtocol && s.protocolMatches(loc.Seat, lane, card.Card) {
				continue
			}
			lanes = append(lanes, lane)
		}
		return lanes
	case rules.SelectLaneForCompile:
		return append([]int(nil), a.Lanes...)
	default:
		return nil
	}
}
