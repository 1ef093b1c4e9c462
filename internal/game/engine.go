package game

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/compiledigital/compile-server-go/internal/catalog"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// Engine is the rules engine facade. Every public operation is a pure state
// transition: the input state is cloned, the clone transitioned and returned;
// the input is never modified. The engine is synchronous and single-caller;
// the surrounding layer serializes access per match.
type Engine struct {
	logger  *zap.Logger
	catalog catalog.Provider
	bus     *rules.EventBus
	rng     *rand.Rand
}

// NewEngine creates an engine over a card catalog.
func NewEngine(cat catalog.Provider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:  logger,
		catalog: cat,
		bus:     rules.NewEventBus(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Bus exposes the event bus the engine publishes transitions on.
func (e *Engine) Bus() *rules.EventBus { return e.bus }

// Catalog exposes the card catalog the engine plays with.
func (e *Engine) Catalog() catalog.Provider { return e.catalog }

// Seed fixes the random source, for deterministic tests and replays.
func (e *Engine) Seed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

// CreateInitialState deals a fresh game: each player's deck is the fifteen
// cards of their three protocols, shuffled, with an opening hand of five.
func (e *Engine) CreateInitialState(playerProtocols, opponentProtocols [LaneCount]string, useControl bool, starting rules.Seat) (*GameState, error) {
	if !starting.Valid() {
		return nil, fmt.Errorf("invalid starting seat %d", int(starting))
	}
	seen := make(map[string]bool)
	for _, name := range append(playerProtocols[:], opponentProtocols[:]...) {
		if _, ok := e.catalog.ProtocolCards(name); !ok {
			return nil, fmt.Errorf("unknown protocol %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("protocol %q picked twice", name)
		}
		seen[name] = true
	}

	s := &GameState{
		ID:               uuid.NewString(),
		Phase:            rules.NewPhaseTracker(starting),
		UseControl:       useControl,
		ProcessedStart:   make(map[string]bool),
		ProcessedEnd:     make(map[string]bool),
		ProcessedUncover: make(map[string]bool),
	}
	s.Players[rules.SeatSouth] = e.dealPlayer(playerProtocols)
	s.Players[rules.SeatNorth] = e.dealPlayer(opponentProtocols)
	for seat := rules.SeatSouth; seat <= rules.SeatNorth; seat++ {
		for i := 0; i < HandLimit; i++ {
			s.draw(seat, e.rng)
		}
	}
	s.logEvent(rules.NewEvent(rules.EventGameCreated, starting, "", ""))

	e.logger.Info("game created",
		zap.String("game_id", s.ID),
		zap.String("starting", starting.String()),
		zap.Bool("control", useControl))

	e.progress(s)
	e.publish(s, 0)
	return s, nil
}

func (e *Engine) dealPlayer(protocols [LaneCount]string) PlayerState {
	p := PlayerState{
		Protocols:         protocols,
		CompiledProtocols: make(map[string]int),
	}
	for _, name := range protocols {
		cards, _ := e.catalog.ProtocolCards(name)
		for _, card := range cards {
			p.Deck = append(p.Deck, PlayedCard{ID: uuid.NewString(), Card: card})
		}
	}
	e.rng.Shuffle(len(p.Deck), func(i, j int) {
		p.Deck[i], p.Deck[j] = p.Deck[j], p.Deck[i]
	})
	return p
}

// PlayCard plays a hand card of the active player into a lane. It is the
// action-phase move; a face-up play fires the card's on-play effect.
func (e *Engine) PlayCard(state *GameState, cardID string, lane int, faceUp bool) (*GameState, []rules.Event, error) {
	s := state.Clone()
	mark := len(s.Log)

	if err := e.checkTurnMove(s); err != nil {
		return state, nil, err
	}
	seat := s.ActiveSeat()
	card, loc, found := s.FindCard(cardID)
	if !found || loc.Zone != ZoneHand || loc.Seat != seat {
		return state, nil, rules.Illegal("card is not in the active player's hand", "card", cardID)
	}
	if res := s.checkPlay(seat, card.Card, lane, faceUp); !res.Legal {
		return state, nil, rules.Illegal(res.Reason)
	}

	key := card.Card.Key()
	e.placeFromContainer(s, cardID, seat, lane, faceUp)
	if faceUp {
		e.runTrigger(s, seat, cardID, key, catalog.TriggerOnPlay)
	}
	s.Phase.ActionTaken = true

	e.logger.Debug("card played",
		zap.String("game_id", s.ID),
		zap.String("card", key),
		zap.Int("lane", lane),
		zap.Bool("face_up", faceUp))

	e.settle(s)
	e.publish(s, mark)
	return s, s.Log[mark:], nil
}

// FillHand is the alternative action-phase move: draw up to the hand limit.
func (e *Engine) FillHand(state *GameState) (*GameState, error) {
	s := state.Clone()
	mark := len(s.Log)

	if err := e.checkTurnMove(s); err != nil {
		return state, err
	}
	seat := s.ActiveSeat()
	for len(s.Player(seat).Hand) < HandLimit {
		if !s.draw(seat, e.rng) {
			break
		}
	}
	s.logEvent(rules.NewEvent(rules.EventHandRefreshed, seat, "", ""))
	s.Phase.ActionTaken = true
	e.controlTrigger(s, rules.ActionSwapProtocols)

	e.settle(s)
	e.publish(s, mark)
	return s, nil
}

// checkTurnMove gates the two action-phase moves.
func (e *Engine) checkTurnMove(s *GameState) error {
	if s.Winner != nil {
		return rules.Illegal("game is over")
	}
	if s.Actions.Pending() {
		return rules.Illegal("an action is pending", "action", string(s.Actions.Active.Type()))
	}
	if s.Phase.Current() != rules.PhaseAction {
		return rules.Illegal("not in the action phase", "phase", s.Phase.Current().String())
	}
	if s.Phase.ActionTaken {
		return rules.Illegal("action already taken this turn")
	}
	return nil
}

// CompileLane resolves a pending compile choice with the chosen lane.
func (e *Engine) CompileLane(state *GameState, lane int) (*GameState, error) {
	if state.Actions.Active == nil {
		return state, rules.Illegal("no compile choice pending")
	}
	next, _, err := e.ResolveActionWithLane(state, state.Actions.Active.Actor(), lane)
	return next, err
}

// PerformCompile compiles a qualifying lane for the active player directly,
// outside a pending compile choice. It is gated like the other turn moves:
// compiling this way replaces the player's action for the turn. onEndGame is
// invoked with the winner if the compile ends the game.
func (e *Engine) PerformCompile(state *GameState, lane int, onEndGame func(rules.Seat)) (*GameState, error) {
	s := state.Clone()
	mark := len(s.Log)

	if err := e.checkTurnMove(s); err != nil {
		return state, err
	}
	seat := s.ActiveSeat()
	if res := s.checkCompile(seat, lane); !res.Legal {
		return state, rules.Illegal(res.Reason, "lane", laneName(lane))
	}
	e.performCompile(s, seat, lane)
	s.Phase.ActionTaken = true
	if s.Winner != nil && onEndGame != nil {
		onEndGame(*s.Winner)
	}

	e.settle(s)
	e.publish(s, mark)
	return s, nil
}

// ----------------------------------------------------------------------
// Intent resolution

// pendingFor fetches the active action, checking the intent's actor.
func pendingFor(s *GameState, as rules.Seat) (rules.Action, error) {
	act := s.Actions.Active
	if act == nil {
		return nil, rules.Illegal("no action pending")
	}
	if act.Actor() != as {
		return nil, rules.Illegal("intent from the wrong actor",
			"expected", act.Actor().String(), "got", as.String())
	}
	switch act.(type) {
	case rules.RearrangeProtocols, rules.SwapProtocols:
	default:
		// An action resolved by the non-active seat means the turn was
		// interrupted; resuming it is a control-marker trigger.
		if as != s.ActiveSeat() {
			s.TurnInterrupted = true
		}
	}
	return act, nil
}

// ResolveActionWithCard resolves the pending action with a chosen card. The
// returned bool reports whether a follow-up action is still pending.
func (e *Engine) ResolveActionWithCard(state *GameState, as rules.Seat, cardID string) (*GameState, bool, error) {
	s := state.Clone()
	mark := len(s.Log)

	act, err := pendingFor(s, as)
	if err != nil {
		return state, state.Actions.Pending(), err
	}

	switch a := act.(type) {
	case rules.DiscardCards:
		if idx := s.Player(as).handIndex(cardID); idx < 0 {
			return state, true, rules.Illegal("card is not in the actor's hand", "card", cardID)
		}
		s.Actions.Active = nil
		e.discardCard(s, as, cardID)
		if a.Count > 1 {
			s.Actions.Issue(rules.DiscardCards{Base: a.Base, Count: a.Count - 1})
		}

	case rules.SelectCardToDelete:
		if !contains(e.legalTargets(s, as, a.Filter, a.Source()), cardID) {
			return state, true, rules.Illegal("card is not a legal target", "card", cardID)
		}
		s.Actions.Active = nil
		e.deleteCard(s, cardID)

	case rules.SelectCardToFlip:
		if !contains(e.legalTargets(s, as, a.Filter, a.Source()), cardID) {
			return state, true, rules.Illegal("card is not a legal target", "card", cardID)
		}
		s.Actions.Active = nil
		e.flipCard(s, cardID, catalog.FlipToggle)

	case rules.SelectCardToReturn:
		if !contains(e.legalTargets(s, as, a.Filter, a.Source()), cardID) {
			return state, true, rules.Illegal("card is not a legal target", "card", cardID)
		}
		s.Actions.Active = nil
		e.returnCard(s, cardID)

	case rules.SelectCardToShift:
		if !contains(e.legalTargets(s, as, a.Filter, a.Source()), cardID) {
			return state, true, rules.Illegal("card is not a legal target", "card", cardID)
		}
		s.Actions.Active = nil
		if a.DestSameLane {
			e.shiftCard(s, cardID, a.DestLane)
		} else {
			_, loc, _ := s.FindCard(cardID)
			s.Actions.Issue(rules.SelectLaneForShift{
				Base:               rules.Base{ActorSeat: as, SourceCardID: a.Source()},
				CardID:             cardID,
				DisallowedLanes:    []int{loc.Lane},
				MustChangeProtocol: a.MustChangeProtocol,
			})
		}

	case rules.SelectCardToReveal:
		if !contains(e.legalTargets(s, as, a.Filter, a.Source()), cardID) {
			return state, true, rules.Illegal("card is not a legal target", "card", cardID)
		}
		s.Actions.Active = nil
		e.revealCard(s, as, cardID)

	case rules.SelectPhaseEffect:
		if !contains(a.Candidates, cardID) {
			return state, true, rules.Illegal("card is not an unresolved phase effect", "card", cardID)
		}
		s.Actions.Active = nil
		e.runPhaseEffect(s, as, cardID, a.Phase)

	default:
		return state, true, rules.Illegal("action expects a different intent",
			"action", string(act.Type()))
	}

	e.settle(s)
	e.publish(s, mark)
	return s, s.Actions.Pending(), nil
}

// ResolveActionWithLane resolves the pending action with a chosen lane.
func (e *Engine) ResolveActionWithLane(state *GameState, as rules.Seat, lane int) (*GameState, bool, error) {
	s := state.Clone()
	mark := len(s.Log)

	act, err := pendingFor(s, as)
	if err != nil {
		return state, state.Actions.Pending(), err
	}
	if lane < 0 || lane >= LaneCount {
		return state, true, rules.Illegal("lane out of range")
	}

	switch a := act.(type) {
	case rules.SelectLaneForShift:
		for _, banned := range a.DisallowedLanes {
			if lane == banned {
				return state, true, rules.Illegal("lane not allowed for this shift", "lane", laneName(lane))
			}
		}
		card, loc, found := s.FindCard(a.CardID)
		if !found {
			return state, true, rules.Illegal("shifted card left the table", "card", a.CardID)
		}
		holder := loc.Seat
		if a.MustChangeProtocol && s.protocolMatches(holder, lane, card.Card) {
			return state, true, rules.Illegal("destination protocol matches the shifted card", "lane", laneName(lane))
		}
		s.Actions.Active = nil
		if loc.Zone == ZoneLane {
			e.shiftCard(s, a.CardID, lane)
		} else {
			e.placeFromContainer(s, a.CardID, holder, lane, false)
		}

	case rules.SelectLaneForCompile:
		if !containsInt(a.Lanes, lane) {
			return state, true, rules.Illegal("lane does not qualify for compiling", "lane", laneName(lane))
		}
		s.Actions.Active = nil
		e.performCompile(s, as, lane)

	default:
		return state, true, rules.Illegal("action expects a different intent",
			"action", string(act.Type()))
	}

	e.settle(s)
	e.publish(s, mark)
	return s, s.Actions.Pending(), nil
}

// ResolveActionWithProtocolOrder resolves a pending rearrange with a full
// ordering of the target side's protocols.
func (e *Engine) ResolveActionWithProtocolOrder(state *GameState, as rules.Seat, order [LaneCount]string) (*GameState, bool, error) {
	s := state.Clone()
	mark := len(s.Log)

	act, err := pendingFor(s, as)
	if err != nil {
		return state, state.Actions.Pending(), err
	}
	a, ok := act.(rules.RearrangeProtocols)
	if !ok {
		return state, true, rules.Illegal("action expects a different intent", "action", string(act.Type()))
	}
	if res := s.applyProtocolOrder(a.Target, order); !res.Legal {
		return state, true, rules.Illegal(res.Reason)
	}
	s.Actions.Active = nil

	e.settle(s)
	e.publish(s, mark)
	return s, s.Actions.Pending(), nil
}

// ResolveActionWithLanePair resolves a pending protocol swap with the two
// lanes to exchange.
func (e *Engine) ResolveActionWithLanePair(state *GameState, as rules.Seat, a, b int) (*GameState, bool, error) {
	s := state.Clone()
	mark := len(s.Log)

	act, err := pendingFor(s, as)
	if err != nil {
		return state, state.Actions.Pending(), err
	}
	swap, ok := act.(rules.SwapProtocols)
	if !ok {
		return state, true, rules.Illegal("action expects a different intent", "action", string(act.Type()))
	}
	if res := s.applyProtocolSwap(swap.Target, a, b); !res.Legal {
		return state, true, rules.Illegal(res.Reason)
	}
	s.Actions.Active = nil

	e.settle(s)
	e.publish(s, mark)
	return s, s.Actions.Pending(), nil
}

// AcceptAction answers a pending optional-effect prompt with yes, executing
// the deferred instruction.
func (e *Engine) AcceptAction(state *GameState, as rules.Seat) (*GameState, bool, error) {
	s := state.Clone()
	mark := len(s.Log)

	act, err := pendingFor(s, as)
	if err != nil {
		return state, state.Actions.Pending(), err
	}
	prompt, ok := act.(rules.PromptOptionalEffect)
	if !ok {
		return state, true, rules.Illegal("action expects a different intent", "action", string(act.Type()))
	}
	cardKey, trigger, step, err := parseStepKey(prompt.EffectKey)
	if err != nil {
		return state, true, fmt.Errorf("corrupt effect key: %w", err)
	}
	s.Actions.Active = nil

	card, ok := e.catalog.Card(cardKey)
	if ok {
		if effect, ok := card.EffectFor(trigger); ok && step < len(effect.Instructions) {
			ins := effect.Instructions[step]
			ins.Optional = false
			// The prompt went to the instruction's acting seat; recover the
			// effect owner so the accepted step applies to that same seat.
			owner := as
			if ins.Who == catalog.WhoOpponent {
				owner = as.Other()
			}
			e.runInstruction(s, owner, prompt.Source(), cardKey, trigger, step, ins)
		}
	}

	e.settle(s)
	e.publish(s, mark)
	return s, s.Actions.Pending(), nil
}

// SkipAction declines the pending action. Only optional actions may be
// skipped.
func (e *Engine) SkipAction(state *GameState, as rules.Seat) (*GameState, error) {
	s := state.Clone()
	mark := len(s.Log)

	act, err := pendingFor(s, as)
	if err != nil {
		return state, err
	}
	if !act.IsOptional() {
		return state, rules.Illegal("action is mandatory", "action", string(act.Type()))
	}
	s.Actions.Active = nil
	s.logEvent(rules.NewEvent(rules.EventActionSkipped, as, "", act.Source()))

	// Declining the compile choice ends the compile phase.
	if act.Type() == rules.ActionSelectLaneForCompile && s.Phase.Current() == rules.PhaseCompile {
		e.advancePhase(s)
	}

	e.settle(s)
	e.publish(s, mark)
	return s, nil
}

// ----------------------------------------------------------------------
// Internal progression

// settle drains deferred effect steps and, once no action is owed, advances
// the phase machine until player input is needed again.
func (e *Engine) settle(s *GameState) {
	for {
		if s.Actions.Active == nil && s.Actions.Complete() == nil {
			break
		}
		act := s.Actions.Active
		if step, ok := act.(rules.RunEffectStep); ok {
			s.Actions.Active = nil
			e.runProgram(s, step.ActorSeat, step.SourceCardID, step.CardKey, catalog.Trigger(step.Trigger), step.StepIndex)
			continue
		}
		if e.actionStillRequired(s, act) {
			// A suspended interrupt or queued choice waits on player input.
			return
		}
		// Interrupts emptied the action's remaining choices while it waited;
		// it resolves without input.
		s.Actions.Active = nil
	}
	if s.TurnInterrupted {
		s.TurnInterrupted = false
		if s.Winner == nil {
			e.controlTrigger(s, rules.ActionRearrangeProtocols)
		}
	}
	if !s.Actions.Pending() {
		// A full resolution pass has completed.
		clearSet(s.ProcessedUncover)
		e.progress(s)
	}
}

// actionStillRequired re-checks an action against the current board. An
// interrupt resolved while the action was suspended may have removed every
// legal choice it had; a mandatory action with nothing left to pick is
// satisfied vacuously, not wedged. A discard whose count now covers the whole
// hand drains it on the spot.
func (e *Engine) actionStillRequired(s *GameState, act rules.Action) bool {
	switch a := act.(type) {
	case rules.DiscardCards:
		hand := len(s.Player(a.Actor()).Hand)
		if hand == 0 {
			return false
		}
		if hand <= a.Count {
			for len(s.Player(a.Actor()).Hand) > 0 {
				e.discardCard(s, a.Actor(), s.Player(a.Actor()).Hand[0].ID)
			}
			return false
		}
	case rules.SelectCardToDelete:
		return len(legalTargets(s, a.Actor(), a.Filter, a.Source())) > 0
	case rules.SelectCardToFlip:
		return len(legalTargets(s, a.Actor(), a.Filter, a.Source())) > 0
	case rules.SelectCardToReturn:
		return len(legalTargets(s, a.Actor(), a.Filter, a.Source())) > 0
	case rules.SelectCardToShift:
		return len(legalTargets(s, a.Actor(), a.Filter, a.Source())) > 0
	case rules.SelectCardToReveal:
		return len(legalTargets(s, a.Actor(), a.Filter, a.Source())) > 0
	case rules.SelectLaneForShift:
		_, _, found := s.FindCard(a.CardID)
		return found
	}
	return true
}

// progress advances the phase machine until the game is over, an action is
// pending, or the active player must act.
func (e *Engine) progress(s *GameState) {
	for s.Winner == nil && !s.Actions.Pending() {
		seat := s.ActiveSeat()
		switch s.Phase.Current() {
		case rules.PhaseStart:
			if e.stepPhaseEffects(s, seat, catalog.TriggerStart, s.ProcessedStart) {
				continue
			}
			clearSet(s.ProcessedStart)
			e.advancePhase(s)

		case rules.PhaseControl:
			s.updateControlMarker()
			e.advancePhase(s)

		case rules.PhaseCompile:
			if s.Phase.CompiledThisTurn {
				e.advancePhase(s)
				continue
			}
			mandatory := s.CompilableLanes(seat)
			voluntary := s.recompilableLanes(seat)
			if len(mandatory) == 0 && len(voluntary) == 0 {
				e.advancePhase(s)
				continue
			}
			s.Actions.Issue(rules.SelectLaneForCompile{
				Base:  rules.Base{ActorSeat: seat, Optional: len(mandatory) == 0},
				Lanes: append(mandatory, voluntary...),
			})
			s.logEvent(rules.NewEvent(rules.EventActionRequired, seat, "", ""))

		case rules.PhaseAction:
			if !s.Phase.ActionTaken {
				return
			}
			e.advancePhase(s)

		case rules.PhaseHandLimit:
			over := len(s.Player(seat).Hand) - HandLimit
			if over > 0 {
				s.Actions.Issue(rules.DiscardCards{
					Base:  rules.Base{ActorSeat: seat},
					Count: over,
				})
				s.logEvent(rules.NewEvent(rules.EventActionRequired, seat, "", ""))
				continue
			}
			e.advancePhase(s)

		case rules.PhaseEnd:
			if e.stepPhaseEffects(s, seat, catalog.TriggerEnd, s.ProcessedEnd) {
				continue
			}
			clearSet(s.ProcessedEnd)
			e.advancePhase(s)
			s.logEvent(rules.NewEvent(rules.EventTurnChanged, s.ActiveSeat(), "", ""))
		}
	}
}

// stepPhaseEffects runs the next start/end phase effect of the acting
// player's face-up uncovered cards. With several unresolved candidates the
// player orders them via a SelectPhaseEffect action; a lone candidate runs
// directly. Returns false when the phase pass is finished.
func (e *Engine) stepPhaseEffects(s *GameState, seat rules.Seat, trigger catalog.Trigger, processed map[string]bool) bool {
	var candidates []string
	for li := range s.Player(seat).Lanes {
		top := s.Player(seat).Lanes[li].Top()
		if top == nil || !top.FaceUp || processed[top.ID] {
			continue
		}
		if _, ok := top.Card.EffectFor(trigger); ok {
			candidates = append(candidates, top.ID)
		}
	}
	if len(candidates) == 0 {
		return false
	}
	if len(candidates) == 1 {
		processed[candidates[0]] = true
		card, _, _ := s.FindCard(candidates[0])
		e.runTrigger(s, seat, candidates[0], card.Card.Key(), trigger)
		return true
	}
	s.Actions.Issue(rules.SelectPhaseEffect{
		Base:       rules.Base{ActorSeat: seat},
		Phase:      s.Phase.Current(),
		Candidates: candidates,
	})
	s.logEvent(rules.NewEvent(rules.EventActionRequired, seat, "", ""))
	return true
}

// runPhaseEffect resolves one chosen start/end effect and marks it
// processed for this phase pass.
func (e *Engine) runPhaseEffect(s *GameState, seat rules.Seat, cardID string, phase rules.Phase) {
	processed := s.ProcessedStart
	trigger := catalog.TriggerStart
	if phase == rules.PhaseEnd {
		processed = s.ProcessedEnd
		trigger = catalog.TriggerEnd
	}
	processed[cardID] = true
	card, _, found := s.FindCard(cardID)
	if !found {
		return
	}
	e.runTrigger(s, seat, cardID, card.Card.Key(), trigger)
}

func (e *Engine) advancePhase(s *GameState) {
	s.Phase.Advance()
	ev := rules.NewEvent(rules.EventPhaseChanged, s.ActiveSeat(), "", "")
	ev.Data = s.Phase.Current().String()
	s.logEvent(ev)
}

// publish delivers the events appended since mark to bus subscribers.
func (e *Engine) publish(s *GameState, mark int) {
	if mark < len(s.Log) {
		e.bus.PublishBatch(s.Log[mark:])
	}
}

// ----------------------------------------------------------------------

func clearSet(m map[string]bool) {
	for k := range m {
		delete(m, k)
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func containsInt(list []int, want int) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func parseStepKey(key string) (string, catalog.Trigger, int, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 3 {
		return "", "", 0, fmt.Errorf("malformed step key %q", key)
	}
	step, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", "", 0, fmt.Errorf("malformed step index in %q", key)
	}
	return parts[0], catalog.Trigger(parts[1]), step, nil
}
