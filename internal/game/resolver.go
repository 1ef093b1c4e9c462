package game

import (
	"fmt"

	"github.com/compiledigital/compile-server-go/internal/catalog"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
	"github.com/compiledigital/compile-server-go/internal/game/targeting"
)

// runTrigger executes one of a card's effect programs against the current
// board. owner is the seat resolving the effect (the card's controller).
func (e *Engine) runTrigger(s *GameState, owner rules.Seat, sourceID, cardKey string, trigger catalog.Trigger) {
	card, ok := e.catalog.Card(cardKey)
	if !ok {
		return
	}
	if _, ok := card.EffectFor(trigger); !ok {
		return
	}
	s.logEvent(rules.NewEvent(rules.EventEffectResolved, owner, "", sourceID))
	e.runProgram(s, owner, sourceID, cardKey, trigger, 0)
}

// runProgram executes an effect's instructions in order, starting at `from`.
// An instruction that needs a player choice issues an action and suspends the
// remainder onto the follow-up queue as a RunEffectStep.
func (e *Engine) runProgram(s *GameState, owner rules.Seat, sourceID, cardKey string, trigger catalog.Trigger, from int) {
	card, ok := e.catalog.Card(cardKey)
	if !ok {
		return
	}
	effect, ok := card.EffectFor(trigger)
	if !ok {
		return
	}
	for i := from; i < len(effect.Instructions); i++ {
		applied := e.runInstruction(s, owner, sourceID, cardKey, trigger, i, effect.Instructions[i])
		// An instruction that auto-applied may still have raised an interrupt
		// through a nested cover/uncover trigger; the rest of the program
		// waits until that resolves, same as a choice the step itself emitted.
		if !applied || s.Actions.Pending() {
			if i+1 < len(effect.Instructions) {
				s.Actions.Enqueue(rules.RunEffectStep{
					Base:      rules.Base{ActorSeat: owner, SourceCardID: sourceID},
					CardKey:   cardKey,
					Trigger:   string(trigger),
					StepIndex: i + 1,
				})
			}
			return
		}
	}
}

// runInstruction applies one instruction. It returns true when the step fully
// applied (or auto-skipped) and the program may continue, false when a player
// choice was issued.
func (e *Engine) runInstruction(s *GameState, owner rules.Seat, sourceID, cardKey string, trigger catalog.Trigger, step int, ins catalog.Instruction) bool {
	actor := owner
	if ins.Who == catalog.WhoOpponent {
		actor = owner.Other()
	}
	base := rules.Base{ActorSeat: owner, SourceCardID: sourceID, Optional: ins.Optional}

	switch ins.Op {
	case catalog.OpDraw:
		if ins.Optional {
			s.Actions.Issue(rules.PromptOptionalEffect{
				Base:        rules.Base{ActorSeat: actor, SourceCardID: sourceID, Optional: true},
				Description: effectText(e.catalog, cardKey, trigger),
				EffectKey:   stepKey(cardKey, trigger, step),
			})
			s.logEvent(rules.NewEvent(rules.EventActionRequired, actor, "", sourceID))
			return false
		}
		for i := 0; i < ins.Count; i++ {
			s.draw(actor, e.rng)
		}
		s.RecomputeLaneValues()
		return true

	case catalog.OpDiscard:
		hand := s.Player(actor).Hand
		if len(hand) == 0 {
			return true
		}
		if len(hand) <= ins.Count {
			for len(s.Player(actor).Hand) > 0 {
				e.discardCard(s, actor, s.Player(actor).Hand[0].ID)
			}
			return true
		}
		s.Actions.Issue(rules.DiscardCards{
			Base:  rules.Base{ActorSeat: actor, SourceCardID: sourceID},
			Count: ins.Count,
		})
		s.logEvent(rules.NewEvent(rules.EventActionRequired, actor, "", sourceID))
		return false

	case catalog.OpDelete, catalog.OpFlip, catalog.OpReturn, catalog.OpShift:
		return e.runTargetedOp(s, owner, sourceID, cardKey, trigger, step, ins, base)

	case catalog.OpReveal:
		return e.runReveal(s, actor, sourceID, ins)

	case catalog.OpShiftRevealed:
		if s.PendingRevealID == "" {
			return true
		}
		s.Actions.Issue(rules.SelectLaneForShift{
			Base:            base,
			CardID:          s.PendingRevealID,
			PlaceOnOpponent: true,
		})
		s.logEvent(rules.NewEvent(rules.EventActionRequired, owner, s.PendingRevealID, sourceID))
		return false

	case catalog.OpPlayTopDeck:
		return e.runPlayTopDeck(s, actor, sourceID, ins, base)
	}
	return true
}

// runTargetedOp handles the four single-target operations.
func (e *Engine) runTargetedOp(s *GameState, owner rules.Seat, sourceID, cardKey string, trigger catalog.Trigger, step int, ins catalog.Instruction, base rules.Base) bool {
	if ins.Self {
		return e.runSelfOp(s, owner, sourceID, ins, base)
	}

	filter, ok := e.boundFilter(s, sourceID, ins)
	if !ok {
		return true
	}
	candidates := e.legalTargets(s, owner, filter, sourceID)
	if len(candidates) == 0 {
		return true
	}
	if len(candidates) == 1 && !ins.Optional {
		e.applyTargetOp(s, owner, sourceID, ins, candidates[0])
		return true
	}

	switch ins.Op {
	case catalog.OpDelete:
		s.Actions.Issue(rules.SelectCardToDelete{Base: base, Filter: filter})
	case catalog.OpFlip:
		s.Actions.Issue(rules.SelectCardToFlip{Base: base, Filter: filter})
	case catalog.OpReturn:
		s.Actions.Issue(rules.SelectCardToReturn{Base: base, Filter: filter})
	case catalog.OpShift:
		srcLane := e.sourceLane(s, sourceID)
		s.Actions.Issue(rules.SelectCardToShift{
			Base:               base,
			Filter:             filter,
			MustChangeProtocol: ins.MustChangeProtocol,
			DestSameLane:       ins.Dest == catalog.DestSameLane,
			DestLane:           srcLane,
		})
	}
	s.logEvent(rules.NewEvent(rules.EventActionRequired, base.ActorSeat, "", sourceID))
	return false
}

// runSelfOp applies a self-targeting operation to the source card.
func (e *Engine) runSelfOp(s *GameState, owner rules.Seat, sourceID string, ins catalog.Instruction, base rules.Base) bool {
	_, loc, found := s.FindCard(sourceID)
	if !found || loc.Zone != ZoneLane {
		return true
	}
	switch ins.Op {
	case catalog.OpFlip:
		e.flipCard(s, sourceID, ins.FlipTo)
		return true
	case catalog.OpReturn:
		e.returnCard(s, sourceID)
		return true
	case catalog.OpDelete:
		e.deleteCard(s, sourceID)
		return true
	case catalog.OpShift:
		s.Actions.Issue(rules.SelectLaneForShift{
			Base:            base,
			CardID:          sourceID,
			DisallowedLanes: []int{loc.Lane},
		})
		s.logEvent(rules.NewEvent(rules.EventActionRequired, base.ActorSeat, sourceID, sourceID))
		return false
	}
	return true
}

func (e *Engine) runReveal(s *GameState, actor rules.Seat, sourceID string, ins catalog.Instruction) bool {
	hand := s.Player(actor).Hand
	if len(hand) == 0 {
		return true
	}
	if len(hand) == 1 {
		e.revealCard(s, actor, hand[0].ID)
		return true
	}
	filter := targeting.NewFilter()
	if ins.Target != nil {
		filter = *ins.Target
	}
	s.Actions.Issue(rules.SelectCardToReveal{
		Base:   rules.Base{ActorSeat: actor, SourceCardID: sourceID},
		Filter: filter,
	})
	s.logEvent(rules.NewEvent(rules.EventActionRequired, actor, "", sourceID))
	return false
}

func (e *Engine) runPlayTopDeck(s *GameState, actor rules.Seat, sourceID string, ins catalog.Instruction, base rules.Base) bool {
	p := s.Player(actor)
	if len(p.Deck) == 0 && len(p.Discard) > 0 {
		p.Deck = p.Discard
		p.Discard = nil
		e.rng.Shuffle(len(p.Deck), func(i, j int) {
			p.Deck[i], p.Deck[j] = p.Deck[j], p.Deck[i]
		})
		s.logEvent(rules.NewEvent(rules.EventDeckReshuffled, actor, "", sourceID))
	}
	if len(p.Deck) == 0 {
		return true
	}
	top := p.Deck[0]

	if ins.Dest == catalog.DestSameLane {
		lane := e.sourceLane(s, sourceID)
		if lane < 0 {
			return true
		}
		e.placeFromContainer(s, top.ID, actor, lane, false)
		return true
	}

	act := rules.SelectLaneForShift{Base: rules.Base{ActorSeat: actor, SourceCardID: sourceID, Optional: ins.Optional}, CardID: top.ID}
	if ins.Dest == catalog.DestOtherLane {
		if lane := e.sourceLane(s, sourceID); lane >= 0 {
			act.DisallowedLanes = []int{lane}
		}
	}
	s.Actions.Issue(act)
	s.logEvent(rules.NewEvent(rules.EventActionRequired, actor, top.ID, sourceID))
	return false
}

// boundFilter copies the instruction's filter and pins runtime constraints:
// a same-lane restriction resolves to the source card's current lane. The
// second return is false when the constraint can no longer bind (source left
// the board), meaning the step auto-skips.
func (e *Engine) boundFilter(s *GameState, sourceID string, ins catalog.Instruction) (targeting.Filter, bool) {
	filter := targeting.NewFilter()
	if ins.Target != nil {
		filter = *ins.Target
	}
	if ins.SameLane {
		lane := e.sourceLane(s, sourceID)
		if lane < 0 {
			return filter, false
		}
		filter.Lane = lane
	}
	return filter, true
}

// sourceLane returns the lane the source card currently occupies, or -1.
func (e *Engine) sourceLane(s *GameState, sourceID string) int {
	_, loc, found := s.FindCard(sourceID)
	if !found || loc.Zone != ZoneLane {
		return -1
	}
	return loc.Lane
}

// legalTargets enumerates card IDs matching a filter, from the perspective of
// the resolving seat. Lane cards always participate; hand cards only when the
// filter asks for them.
func (e *Engine) legalTargets(s *GameState, perspective rules.Seat, filter targeting.Filter, sourceID string) []string {
	return legalTargets(s, perspective, filter, sourceID)
}

func legalTargets(s *GameState, perspective rules.Seat, filter targeting.Filter, sourceID string) []string {
	var out []string
	for pi := range s.Players {
		seat := rules.Seat(pi)
		owned := targeting.OwnerOwn
		if seat != perspective {
			owned = targeting.OwnerOpponent
		}
		p := &s.Players[pi]
		for li := range p.Lanes {
			cards := p.Lanes[li].Cards
			for ci, c := range cards {
				info := targeting.CardInfo{
					ID:       c.ID,
					Protocol: c.Card.Protocol,
					Value:    s.EffectiveValue(c, li),
					FaceUp:   c.FaceUp,
					Covered:  ci != len(cards)-1,
					InLane:   true,
					Lane:     li,
					OwnedBy:  owned,
					SourceID: sourceID,
				}
				if filter.Matches(info) {
					out = append(out, c.ID)
				}
			}
		}
		if filter.Location == targeting.LocationHand || filter.Location == targeting.LocationAny {
			for _, c := range p.Hand {
				info := targeting.CardInfo{
					ID:       c.ID,
					Protocol: c.Card.Protocol,
					Value:    c.Card.Value,
					FaceUp:   false,
					InHand:   true,
					Lane:     -1,
					OwnedBy:  owned,
					SourceID: sourceID,
				}
				if filter.Matches(info) {
					out = append(out, c.ID)
				}
			}
		}
	}
	return out
}

// applyTargetOp applies a resolved single-target operation to the chosen
// card.
func (e *Engine) applyTargetOp(s *GameState, owner rules.Seat, sourceID string, ins catalog.Instruction, targetID string) {
	switch ins.Op {
	case catalog.OpDelete:
		e.deleteCard(s, targetID)
	case catalog.OpFlip:
		e.flipCard(s, targetID, ins.FlipTo)
	case catalog.OpReturn:
		e.returnCard(s, targetID)
	case catalog.OpShift:
		_, loc, found := s.FindCard(targetID)
		if !found || loc.Zone != ZoneLane {
			return
		}
		if ins.Dest == catalog.DestSameLane {
			if lane := e.sourceLane(s, sourceID); lane >= 0 {
				e.shiftCard(s, targetID, lane)
			}
			return
		}
		s.Actions.Issue(rules.SelectLaneForShift{
			Base:               rules.Base{ActorSeat: owner, SourceCardID: sourceID, Optional: false},
			CardID:             targetID,
			DisallowedLanes:    []int{loc.Lane},
			MustChangeProtocol: ins.MustChangeProtocol,
		})
		s.logEvent(rules.NewEvent(rules.EventActionRequired, owner, targetID, sourceID))
	}
}

// ----------------------------------------------------------------------
// Board mutation primitives. Each recomputes lane value caches and fires
// the board-event triggers (cover, uncover, flip) it causes.

// discardCard moves a hand card to its owner's discard pile.
func (e *Engine) discardCard(s *GameState, seat rules.Seat, cardID string) bool {
	p := s.Player(seat)
	idx := p.handIndex(cardID)
	if idx < 0 {
		return false
	}
	card := p.Hand[idx]
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	card.FaceUp = false
	card.Revealed = false
	p.Discard = append(p.Discard, card)
	p.Stats.CardsDiscarded++
	if s.PendingRevealID == cardID {
		s.PendingRevealID = ""
	}
	s.logEvent(rules.NewEvent(rules.EventCardDiscarded, seat, cardID, ""))
	return true
}

// deleteCard removes a lane card to its owner's discard pile and processes
// the uncover this exposes.
func (e *Engine) deleteCard(s *GameState, cardID string) {
	_, loc, found := s.FindCard(cardID)
	if !found || loc.Zone != ZoneLane {
		return
	}
	p := s.Player(loc.Seat)
	wasTop := p.Lanes[loc.Lane].Top() != nil && p.Lanes[loc.Lane].Top().ID == cardID
	card, _ := p.Lanes[loc.Lane].Remove(cardID)
	card.FaceUp = false
	card.Revealed = false
	p.Discard = append(p.Discard, card)
	p.Stats.CardsDeleted++
	s.RecomputeLaneValues()
	s.logEvent(rules.NewEvent(rules.EventCardDeleted, loc.Seat, cardID, ""))
	if wasTop {
		e.processUncover(s, loc.Seat, loc.Lane)
	}
}

// returnCard moves a lane card back to its owner's hand.
func (e *Engine) returnCard(s *GameState, cardID string) {
	_, loc, found := s.FindCard(cardID)
	if !found || loc.Zone != ZoneLane {
		return
	}
	p := s.Player(loc.Seat)
	wasTop := p.Lanes[loc.Lane].Top() != nil && p.Lanes[loc.Lane].Top().ID == cardID
	card, _ := p.Lanes[loc.Lane].Remove(cardID)
	card.FaceUp = false
	card.Revealed = false
	p.Hand = append(p.Hand, card)
	s.RecomputeLaneValues()
	s.logEvent(rules.NewEvent(rules.EventCardReturned, loc.Seat, cardID, ""))
	if wasTop {
		e.processUncover(s, loc.Seat, loc.Lane)
	}
}

// flipCard changes a lane card's orientation. A card that ends face-up fires
// its on-flip effect.
func (e *Engine) flipCard(s *GameState, cardID string, to catalog.FlipTo) {
	card, loc, found := s.FindCard(cardID)
	if !found || loc.Zone != ZoneLane {
		return
	}
	switch to {
	case catalog.FlipUp:
		if card.FaceUp {
			return
		}
		card.FaceUp = true
	case catalog.FlipDown:
		if !card.FaceUp {
			return
		}
		card.FaceUp = false
	default:
		card.FaceUp = !card.FaceUp
	}
	s.RecomputeLaneValues()
	s.logEvent(rules.NewEvent(rules.EventCardFlipped, loc.Seat, cardID, ""))
	if card.FaceUp {
		e.runTrigger(s, loc.Seat, cardID, card.Card.Key(), catalog.TriggerOnFlip)
	}
}

// shiftCard moves a lane card to another lane on the same side, processing
// the uncover at the origin and the cover at the destination.
func (e *Engine) shiftCard(s *GameState, cardID string, destLane int) {
	_, loc, found := s.FindCard(cardID)
	if !found || loc.Zone != ZoneLane || destLane < 0 || destLane >= LaneCount {
		return
	}
	p := s.Player(loc.Seat)
	wasTop := p.Lanes[loc.Lane].Top() != nil && p.Lanes[loc.Lane].Top().ID == cardID
	card, _ := p.Lanes[loc.Lane].Remove(cardID)

	covered := p.Lanes[destLane].Top()
	var coveredID, coveredKey string
	var coveredFaceUp bool
	if covered != nil {
		coveredID, coveredKey, coveredFaceUp = covered.ID, covered.Card.Key(), covered.FaceUp
	}
	p.Lanes[destLane].Cards = append(p.Lanes[destLane].Cards, card)
	s.RecomputeLaneValues()
	s.logEvent(rules.NewEvent(rules.EventCardShifted, loc.Seat, cardID, ""))

	if wasTop && loc.Lane != destLane {
		e.processUncover(s, loc.Seat, loc.Lane)
	}
	if covered != nil && coveredFaceUp {
		s.logEvent(rules.NewEvent(rules.EventCardCovered, loc.Seat, coveredID, cardID))
		e.runTrigger(s, loc.Seat, coveredID, coveredKey, catalog.TriggerOnCover)
	}
}

// revealCard marks a hand card revealed and remembers it for a follow-up
// shift step.
func (e *Engine) revealCard(s *GameState, seat rules.Seat, cardID string) {
	p := s.Player(seat)
	idx := p.handIndex(cardID)
	if idx < 0 {
		return
	}
	p.Hand[idx].Revealed = true
	s.PendingRevealID = cardID
	s.logEvent(rules.NewEvent(rules.EventCardRevealed, seat, cardID, ""))
}

// placeFromContainer moves a card out of a hand or deck onto the top of the
// holder's stack in the given lane, and fires the cover this causes. The
// on-play trigger is the caller's concern.
func (e *Engine) placeFromContainer(s *GameState, cardID string, holder rules.Seat, lane int, faceUp bool) bool {
	p := s.Player(holder)
	var card PlayedCard
	if idx := p.handIndex(cardID); idx >= 0 {
		card = p.Hand[idx]
		p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	} else if len(p.Deck) > 0 && p.Deck[0].ID == cardID {
		card = p.Deck[0]
		p.Deck = p.Deck[1:]
	} else {
		return false
	}
	card.FaceUp = faceUp
	card.Revealed = false
	if s.PendingRevealID == cardID {
		s.PendingRevealID = ""
	}

	covered := p.Lanes[lane].Top()
	var coveredID, coveredKey string
	var coveredFaceUp bool
	if covered != nil {
		coveredID, coveredKey, coveredFaceUp = covered.ID, covered.Card.Key(), covered.FaceUp
	}
	p.Lanes[lane].Cards = append(p.Lanes[lane].Cards, card)
	p.Stats.CardsPlayed++
	s.RecomputeLaneValues()
	s.logEvent(rules.NewEvent(rules.EventCardPlayed, holder, cardID, ""))

	if covered != nil && coveredFaceUp {
		s.logEvent(rules.NewEvent(rules.EventCardCovered, holder, coveredID, cardID))
		e.runTrigger(s, holder, coveredID, coveredKey, catalog.TriggerOnCover)
	}
	return true
}

// processUncover fires the on-uncover effect of the card newly exposed at
// the top of a stack. Each exposure fires at most once per resolution pass.
func (e *Engine) processUncover(s *GameState, seat rules.Seat, lane int) {
	top := s.Player(seat).Lanes[lane].Top()
	if top == nil || !top.FaceUp {
		return
	}
	if _, ok := top.Card.EffectFor(catalog.TriggerOnUncover); !ok {
		return
	}
	if s.ProcessedUncover[top.ID] {
		return
	}
	s.ProcessedUncover[top.ID] = true
	s.logEvent(rules.NewEvent(rules.EventCardUncovered, seat, top.ID, ""))
	e.runTrigger(s, seat, top.ID, top.Card.Key(), catalog.TriggerOnUncover)
}

// ----------------------------------------------------------------------

func stepKey(cardKey string, trigger catalog.Trigger, step int) string {
	return fmt.Sprintf("%s|%s|%d", cardKey, trigger, step)
}

func effectText(cat catalog.Provider, cardKey string, trigger catalog.Trigger) string {
	card, ok := cat.Card(cardKey)
	if !ok {
		return ""
	}
	if effect, ok := card.EffectFor(trigger); ok {
		return effect.Text
	}
	return ""
}
