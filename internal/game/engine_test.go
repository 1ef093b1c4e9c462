package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/compiledigital/compile-server-go/internal/catalog"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

func testEngine() *Engine {
	e := NewEngine(catalog.NewDefault(), zap.NewNop())
	e.Seed(42)
	return e
}

// bareState builds an empty board with the given protocol assignments,
// positioned at the start of the given seat's turn.
func bareState(south, north [LaneCount]string, active rules.Seat) *GameState {
	s := &GameState{
		ID:               "test-game",
		Phase:            rules.NewPhaseTracker(active),
		ProcessedStart:   make(map[string]bool),
		ProcessedEnd:     make(map[string]bool),
		ProcessedUncover: make(map[string]bool),
	}
	s.Players[rules.SeatSouth] = PlayerState{Protocols: south, CompiledProtocols: make(map[string]int)}
	s.Players[rules.SeatNorth] = PlayerState{Protocols: north, CompiledProtocols: make(map[string]int)}
	return s
}

// toActionPhase positions the tracker in the active seat's action phase.
func toActionPhase(s *GameState) {
	s.Phase.Index = 3
}

func mustCard(t *testing.T, e *Engine, key string) catalog.Card {
	t.Helper()
	card, ok := e.catalog.Card(key)
	require.True(t, ok, "catalog card %s", key)
	return card
}

func putLane(t *testing.T, e *Engine, s *GameState, seat rules.Seat, lane int, key string, faceUp bool) string {
	t.Helper()
	id := uuid.NewString()
	s.Player(seat).Lanes[lane].Cards = append(s.Player(seat).Lanes[lane].Cards,
		PlayedCard{ID: id, Card: mustCard(t, e, key), FaceUp: faceUp})
	s.RecomputeLaneValues()
	return id
}

func putHand(t *testing.T, e *Engine, s *GameState, seat rules.Seat, key string) string {
	t.Helper()
	id := uuid.NewString()
	s.Player(seat).Hand = append(s.Player(seat).Hand, PlayedCard{ID: id, Card: mustCard(t, e, key)})
	return id
}

func putDeck(t *testing.T, e *Engine, s *GameState, seat rules.Seat, key string) string {
	t.Helper()
	id := uuid.NewString()
	s.Player(seat).Deck = append(s.Player(seat).Deck, PlayedCard{ID: id, Card: mustCard(t, e, key)})
	return id
}

func putDiscard(t *testing.T, e *Engine, s *GameState, seat rules.Seat, key string) string {
	t.Helper()
	id := uuid.NewString()
	s.Player(seat).Discard = append(s.Player(seat).Discard, PlayedCard{ID: id, Card: mustCard(t, e, key)})
	return id
}

func TestCreateInitialState(t *testing.T) {
	e := testEngine()
	s, err := e.CreateInitialState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		false, rules.SeatSouth)
	require.NoError(t, err)

	for seat := rules.SeatSouth; seat <= rules.SeatNorth; seat++ {
		assert.Len(t, s.Player(seat).Hand, HandLimit)
		assert.Len(t, s.Player(seat).Deck, 10)
	}
	assert.Len(t, s.CardIDs(), 30)
	assert.NoError(t, s.VerifyIntegrity())
	// Empty board: the opening phases auto-advance to the action decision.
	assert.Equal(t, rules.PhaseAction, s.Phase.Current())
	assert.Equal(t, rules.SeatSouth, s.ActiveSeat())
	assert.False(t, s.Actions.Pending())
}

func TestCreateInitialStateRejectsBadInput(t *testing.T) {
	e := testEngine()
	_, err := e.CreateInitialState(
		[LaneCount]string{"Speed", "Life", "Nonsense"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		false, rules.SeatSouth)
	assert.Error(t, err)

	_, err = e.CreateInitialState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Speed", "Death", "Hate"},
		false, rules.SeatSouth)
	assert.Error(t, err, "a protocol cannot be picked by both players")
}

// Scenario: the opponent plays Metal-0 onto a lane holding the player's
// face-down Speed-0. The forced flip turns Speed-0 face-up, whose shift
// effect interrupts before the opponent's turn may complete.
func TestFlipInterruptSuspendsTurn(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatNorth)
	toActionPhase(s)

	speed0 := putLane(t, e, s, rules.SeatSouth, 0, "Speed-0", false)
	metal0 := putHand(t, e, s, rules.SeatNorth, "Metal-0")

	s2, _, err := e.PlayCard(s, metal0, 0, true)
	require.NoError(t, err)
	require.NoError(t, s2.VerifyIntegrity())

	require.True(t, s2.Actions.Pending())
	act, ok := s2.Actions.Active.(rules.SelectLaneForShift)
	require.True(t, ok, "expected a shift interrupt, got %s", s2.Actions.Active.Type())
	assert.Equal(t, rules.SeatSouth, act.Actor())
	assert.Equal(t, speed0, act.CardID)
	assert.Equal(t, []int{0}, act.DisallowedLanes)

	// The flip itself landed before the interrupt.
	card, loc, found := s2.FindCard(speed0)
	require.True(t, found)
	assert.True(t, card.FaceUp)
	assert.Equal(t, 0, loc.Lane)

	// Resolving the interrupt lets the turn run to completion.
	s3, _, err := e.ResolveActionWithLane(s2, rules.SeatSouth, 1)
	require.NoError(t, err)
	require.NoError(t, s3.VerifyIntegrity())
	_, loc, _ = s3.FindCard(speed0)
	assert.Equal(t, 1, loc.Lane)
	assert.Equal(t, rules.SeatSouth, s3.ActiveSeat())
	assert.Equal(t, rules.PhaseAction, s3.Phase.Current())
}

func TestInterruptRejectsWrongActor(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatNorth)
	toActionPhase(s)
	putLane(t, e, s, rules.SeatSouth, 0, "Speed-0", false)
	metal0 := putHand(t, e, s, rules.SeatNorth, "Metal-0")

	s2, _, err := e.PlayCard(s, metal0, 0, true)
	require.NoError(t, err)

	_, _, err = e.ResolveActionWithLane(s2, rules.SeatNorth, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, rules.ErrIllegalIntent)
}

// Scenario: a lane at 10 against 7 must be offered for compiling when the
// compile phase is entered, and compiling clears both stacks.
func TestCompilePhaseOffersQualifyingLane(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatNorth)
	toActionPhase(s)

	putLane(t, e, s, rules.SeatSouth, 1, "Life-3", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-2", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-1", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-4", true)
	putLane(t, e, s, rules.SeatNorth, 1, "Hate-3", true)
	putLane(t, e, s, rules.SeatNorth, 1, "Hate-4", true)

	require.Equal(t, 10, s.Player(rules.SeatSouth).LaneValues[1])
	require.Equal(t, 7, s.Player(rules.SeatNorth).LaneValues[1])
	assert.Equal(t, []int{1}, s.CompilableLanes(rules.SeatSouth))

	// North ends their turn; progression enters South's compile phase.
	s2, err := e.FillHand(s)
	require.NoError(t, err)
	require.Equal(t, rules.PhaseCompile, s2.Phase.Current())
	act, ok := s2.Actions.Active.(rules.SelectLaneForCompile)
	require.True(t, ok)
	assert.Equal(t, rules.SeatSouth, act.Actor())
	assert.Equal(t, []int{1}, act.Lanes)
	assert.False(t, act.IsOptional(), "compiling is mandatory when a fresh lane qualifies")

	s3, err := e.CompileLane(s2, 1)
	require.NoError(t, err)
	require.NoError(t, s3.VerifyIntegrity())
	assert.True(t, s3.Player(rules.SeatSouth).Compiled[1])
	assert.Empty(t, s3.Player(rules.SeatSouth).Lanes[1].Cards)
	assert.Empty(t, s3.Player(rules.SeatNorth).Lanes[1].Cards)
	assert.Len(t, s3.Player(rules.SeatSouth).Discard, 4)
	assert.Len(t, s3.Player(rules.SeatNorth).Discard, 2)
	assert.Equal(t, 1, s3.Player(rules.SeatSouth).CompiledProtocols["Life"])
	// Compiling replaced the action for the turn.
	assert.Nil(t, s3.Winner)
	assert.Equal(t, rules.SeatNorth, s3.ActiveSeat())
}

func TestRecompileAwardsOpponentDeckDraw(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatNorth)
	toActionPhase(s)

	s.Player(rules.SeatSouth).Compiled[1] = true
	s.Player(rules.SeatSouth).CompiledProtocols["Life"] = 1
	putLane(t, e, s, rules.SeatSouth, 1, "Life-3", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-2", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-1", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-4", true)
	stolen := putDeck(t, e, s, rules.SeatNorth, "Hate-4")
	for _, key := range []string{"Metal-4", "Death-4", "Hate-3", "Metal-3", "Death-3"} {
		putHand(t, e, s, rules.SeatNorth, key)
	}

	assert.Empty(t, s.CompilableLanes(rules.SeatSouth), "a compiled lane is never mandatory")

	s2, err := e.FillHand(s)
	require.NoError(t, err)
	act, ok := s2.Actions.Active.(rules.SelectLaneForCompile)
	require.True(t, ok)
	assert.True(t, act.IsOptional(), "re-compiling is voluntary")

	s3, err := e.CompileLane(s2, 1)
	require.NoError(t, err)
	require.NoError(t, s3.VerifyIntegrity())
	assert.Equal(t, 2, s3.Player(rules.SeatSouth).CompiledProtocols["Life"])
	assert.GreaterOrEqual(t, s3.Player(rules.SeatSouth).handIndex(stolen), 0,
		"the re-compile award draws from the opponent's deck")
	assert.Empty(t, s3.Player(rules.SeatNorth).Deck)
}

func TestSkippingVoluntaryCompileAdvances(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatNorth)
	toActionPhase(s)

	s.Player(rules.SeatSouth).Compiled[1] = true
	s.Player(rules.SeatSouth).CompiledProtocols["Life"] = 1
	putLane(t, e, s, rules.SeatSouth, 1, "Life-3", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-2", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-1", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-4", true)

	s2, err := e.FillHand(s)
	require.NoError(t, err)
	require.True(t, s2.Actions.Pending())

	s3, err := e.SkipAction(s2, rules.SeatSouth)
	require.NoError(t, err)
	assert.False(t, s3.Actions.Pending())
	assert.Equal(t, rules.PhaseAction, s3.Phase.Current())
	assert.Len(t, s3.Player(rules.SeatSouth).Lanes[1].Cards, 4, "skipping leaves the lane intact")
}

// Scenario: an over-limit hand forces a mandatory discard before the turn
// may end.
func TestHandLimitForcesDiscard(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)

	life0 := putHand(t, e, s, rules.SeatSouth, "Life-0")
	putHand(t, e, s, rules.SeatSouth, "Speed-4")
	putHand(t, e, s, rules.SeatSouth, "Water-4")
	putHand(t, e, s, rules.SeatSouth, "Life-4")
	putHand(t, e, s, rules.SeatSouth, "Speed-2")
	putDeck(t, e, s, rules.SeatSouth, "Water-1")
	putDeck(t, e, s, rules.SeatSouth, "Speed-1")
	putDeck(t, e, s, rules.SeatSouth, "Life-1")

	// Life-0: draw 3, then discard 1. Hand goes 4+3=7, the effect discard
	// brings it to 6.
	s2, _, err := e.PlayCard(s, life0, 1, true)
	require.NoError(t, err)
	act, ok := s2.Actions.Active.(rules.DiscardCards)
	require.True(t, ok)
	assert.Equal(t, 1, act.Count)

	s3, _, err := e.ResolveActionWithCard(s2, rules.SeatSouth, s2.Player(rules.SeatSouth).Hand[0].ID)
	require.NoError(t, err)
	require.NoError(t, s3.VerifyIntegrity())

	// Six cards at the hand-limit phase: one more mandatory discard.
	require.Equal(t, rules.PhaseHandLimit, s3.Phase.Current())
	act, ok = s3.Actions.Active.(rules.DiscardCards)
	require.True(t, ok)
	assert.Equal(t, 1, act.Count)
	assert.False(t, act.IsOptional())

	_, err = e.SkipAction(s3, rules.SeatSouth)
	assert.ErrorIs(t, err, rules.ErrIllegalIntent, "the hand-limit discard cannot be skipped")

	s4, _, err := e.ResolveActionWithCard(s3, rules.SeatSouth, s3.Player(rules.SeatSouth).Hand[0].ID)
	require.NoError(t, err)
	require.NoError(t, s4.VerifyIntegrity())
	assert.Len(t, s4.Player(rules.SeatSouth).Hand, HandLimit)
	assert.Equal(t, rules.SeatNorth, s4.ActiveSeat())
}

// Water-0 returns a card, then flips itself via a deferred follow-up step.
func TestDeferredSelfFlipRunsAfterChoice(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Water", "Life", "Speed"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)

	target1 := putLane(t, e, s, rules.SeatNorth, 1, "Death-4", true)
	putLane(t, e, s, rules.SeatNorth, 2, "Hate-4", true)
	water0 := putHand(t, e, s, rules.SeatSouth, "Water-0")

	s2, _, err := e.PlayCard(s, water0, 0, true)
	require.NoError(t, err)
	_, ok := s2.Actions.Active.(rules.SelectCardToReturn)
	require.True(t, ok)
	require.Len(t, s2.Actions.Queue, 1, "the self-flip waits on the follow-up queue")

	s3, pending, err := e.ResolveActionWithCard(s2, rules.SeatSouth, target1)
	require.NoError(t, err)
	require.NoError(t, s3.VerifyIntegrity())
	assert.False(t, pending)

	_, loc, found := s3.FindCard(target1)
	require.True(t, found)
	assert.Equal(t, ZoneHand, loc.Zone)
	assert.Equal(t, rules.SeatNorth, loc.Seat)

	card, _, found := s3.FindCard(water0)
	require.True(t, found)
	assert.False(t, card.FaceUp, "the queued step flipped the card face-down")
}

func TestStartPhaseEffectsArePlayerOrdered(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Life", "Death", "Water"},
		[LaneCount]string{"Metal", "Speed", "Hate"},
		rules.SeatNorth)
	toActionPhase(s)

	life3 := putLane(t, e, s, rules.SeatSouth, 0, "Life-3", true)
	death2 := putLane(t, e, s, rules.SeatSouth, 1, "Death-2", true)
	ownFaceDown := putLane(t, e, s, rules.SeatSouth, 2, "Water-4", false)
	putDeck(t, e, s, rules.SeatSouth, "Life-1")

	// North passes the turn; South's start phase holds two unresolved
	// effects, so the player chooses the order.
	s2, err := e.FillHand(s)
	require.NoError(t, err)
	require.Equal(t, rules.PhaseStart, s2.Phase.Current())
	act, ok := s2.Actions.Active.(rules.SelectPhaseEffect)
	require.True(t, ok)
	assert.Equal(t, rules.SeatSouth, act.Actor())
	assert.ElementsMatch(t, []string{life3, death2}, act.Candidates)

	// Death-2 first: an optional delete of an own face-down card.
	s3, _, err := e.ResolveActionWithCard(s2, rules.SeatSouth, death2)
	require.NoError(t, err)
	del, ok := s3.Actions.Active.(rules.SelectCardToDelete)
	require.True(t, ok)
	assert.True(t, del.IsOptional())

	s4, _, err := e.ResolveActionWithCard(s3, rules.SeatSouth, ownFaceDown)
	require.NoError(t, err)
	require.NoError(t, s4.VerifyIntegrity())

	// Life-3 remains: a lone candidate runs without an ordering prompt,
	// surfacing its optional draw directly.
	prompt, ok := s4.Actions.Active.(rules.PromptOptionalEffect)
	require.True(t, ok, "expected the optional draw prompt, got %T", s4.Actions.Active)
	assert.Equal(t, rules.SeatSouth, prompt.Actor())

	before := len(s4.Player(rules.SeatSouth).Hand)
	s5, _, err := e.AcceptAction(s4, rules.SeatSouth)
	require.NoError(t, err)
	assert.Len(t, s5.Player(rules.SeatSouth).Hand, before+1)
	assert.Equal(t, rules.PhaseAction, s5.Phase.Current())
}

func TestFillHandReshufflesDiscard(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)

	putHand(t, e, s, rules.SeatSouth, "Speed-4")
	putHand(t, e, s, rules.SeatSouth, "Life-4")
	for _, key := range []string{"Water-4", "Water-3", "Water-2", "Water-1", "Speed-2"} {
		putDiscard(t, e, s, rules.SeatSouth, key)
	}

	s2, err := e.FillHand(s)
	require.NoError(t, err)
	require.NoError(t, s2.VerifyIntegrity())
	assert.Len(t, s2.Player(rules.SeatSouth).Hand, HandLimit)
	assert.Empty(t, s2.Player(rules.SeatSouth).Discard)
	assert.Len(t, s2.Player(rules.SeatSouth).Deck, 2)

	reshuffled := false
	for _, ev := range s2.Log {
		if ev.Type == rules.EventDeckReshuffled {
			reshuffled = true
		}
	}
	assert.True(t, reshuffled)
}

func TestPlayCardRejectsIllegalIntents(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)
	speed4 := putHand(t, e, s, rules.SeatSouth, "Speed-4")
	northCard := putHand(t, e, s, rules.SeatNorth, "Hate-4")

	// Face-up protocol mismatch.
	_, _, err := e.PlayCard(s, speed4, 1, true)
	assert.ErrorIs(t, err, rules.ErrIllegalIntent)

	// Not the active player's card.
	_, _, err = e.PlayCard(s, northCard, 0, true)
	assert.ErrorIs(t, err, rules.ErrIllegalIntent)

	// The rejected state is unchanged.
	assert.Equal(t, 1, len(s.Player(rules.SeatSouth).Hand))
	assert.NoError(t, s.VerifyIntegrity())

	// Face-down play into a mismatched lane is fine.
	s2, _, err := e.PlayCard(s, speed4, 1, false)
	require.NoError(t, err)
	assert.Len(t, s2.Player(rules.SeatSouth).Lanes[1].Cards, 1)
	assert.Equal(t, faceDownValue, s2.Player(rules.SeatSouth).LaneValues[1])
}

func TestTargetabilityIsPure(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)

	victim := putLane(t, e, s, rules.SeatNorth, 0, "Hate-4", false)
	putLane(t, e, s, rules.SeatNorth, 1, "Death-4", true)
	metal1 := putHand(t, e, s, rules.SeatSouth, "Metal-1")
	putLane(t, e, s, rules.SeatNorth, 2, "Hate-3", false)

	// Metal-1 deletes a face-down card; two candidates force a choice.
	s2, _, err := e.PlayCard(s, metal1, 0, true)
	require.NoError(t, err)
	require.True(t, s2.Actions.Pending())

	sum := s2.ComputeChecksum()
	for i := 0; i < 3; i++ {
		assert.True(t, e.IsCardTargetable(victim, s2))
	}
	assert.Equal(t, sum.Hash, s2.ComputeChecksum().Hash)
}

func TestControlMarkerAndRearrange(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatNorth)
	s.UseControl = true
	toActionPhase(s)

	// South leads two lanes; the control phase of the next turn is North's,
	// but marker recomputation happens on every pass.
	putLane(t, e, s, rules.SeatSouth, 0, "Speed-4", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-4", true)

	// North refreshes; with no marker holder yet there is no swap offer.
	s2, err := e.FillHand(s)
	require.NoError(t, err)
	require.NotNil(t, s2.ControlHolder, "South leads two lanes after the control phase pass")
	assert.Equal(t, rules.SeatSouth, *s2.ControlHolder)

	// South refreshes; the marker holder is South, so South is offered a
	// protocol swap on North's side.
	s3, err := e.FillHand(s2)
	require.NoError(t, err)
	swap, ok := s3.Actions.Active.(rules.SwapProtocols)
	require.True(t, ok)
	assert.Equal(t, rules.SeatSouth, swap.Actor())
	assert.Equal(t, rules.SeatNorth, swap.Target)
	assert.True(t, swap.IsOptional())

	before := s3.Player(rules.SeatNorth).Protocols
	s4, _, err := e.ResolveActionWithLanePair(s3, rules.SeatSouth, 0, 2)
	require.NoError(t, err)
	after := s4.Player(rules.SeatNorth).Protocols
	assert.Equal(t, before[0], after[2])
	assert.Equal(t, before[2], after[0])
	assert.Equal(t, before[1], after[1])
}

// Water-0's return can uncover a card whose effect demands input; the queued
// self-flip must wait for that demand instead of running over it.
func TestUncoverInterruptDefersQueuedSelfFlip(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Water", "Life", "Speed"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)

	putLane(t, e, s, rules.SeatNorth, 1, "Plague-2", true)
	hate4 := putLane(t, e, s, rules.SeatNorth, 1, "Hate-4", true)
	water0 := putHand(t, e, s, rules.SeatSouth, "Water-0")
	for _, key := range []string{"Life-4", "Life-3", "Speed-4"} {
		putHand(t, e, s, rules.SeatSouth, key)
	}

	// The return auto-applies on its lone target (Hate-4), uncovering
	// Plague-2, whose discard demand arrives mid-program.
	s2, _, err := e.PlayCard(s, water0, 0, true)
	require.NoError(t, err)
	require.NoError(t, s2.VerifyIntegrity())

	act, ok := s2.Actions.Active.(rules.DiscardCards)
	require.True(t, ok, "expected the uncover discard, got %T", s2.Actions.Active)
	assert.Equal(t, rules.SeatSouth, act.Actor())
	assert.Equal(t, 2, act.Count)

	_, loc, found := s2.FindCard(hate4)
	require.True(t, found)
	assert.Equal(t, ZoneHand, loc.Zone)

	card, _, found := s2.FindCard(water0)
	require.True(t, found)
	assert.True(t, card.FaceUp, "the self-flip waits while the discard is pending")
	require.Len(t, s2.Actions.Queue, 1, "the rest of the program is deferred")

	s3, _, err := e.ResolveActionWithCard(s2, rules.SeatSouth, s2.Player(rules.SeatSouth).Hand[0].ID)
	require.NoError(t, err)
	s4, _, err := e.ResolveActionWithCard(s3, rules.SeatSouth, s3.Player(rules.SeatSouth).Hand[0].ID)
	require.NoError(t, err)
	require.NoError(t, s4.VerifyIntegrity())

	card, _, found = s4.FindCard(water0)
	require.True(t, found)
	assert.False(t, card.FaceUp, "the deferred step ran once the discard resolved")
}

// Hate-1's own-play text can empty the opponent's hand while the cover
// discard it cut in on is still owed; that discard resolves vacuously
// instead of wedging the game on an unanswerable demand.
func TestEmptiedHandReleasesPendingDiscard(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Hate", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Speed"},
		rules.SeatSouth)
	toActionPhase(s)

	putLane(t, e, s, rules.SeatSouth, 0, "Hate-3", true)
	hate1 := putHand(t, e, s, rules.SeatSouth, "Hate-1")
	for _, key := range []string{"Life-4", "Life-3", "Water-4"} {
		putHand(t, e, s, rules.SeatSouth, key)
	}
	putHand(t, e, s, rules.SeatNorth, "Metal-4")
	putHand(t, e, s, rules.SeatNorth, "Death-4")

	s2, _, err := e.PlayCard(s, hate1, 0, true)
	require.NoError(t, err)
	require.NoError(t, s2.VerifyIntegrity())

	// Covering Hate-3 demanded one discard from North; Hate-1's own text then
	// drained North's whole hand, so only South's discard is still owed.
	assert.Empty(t, s2.Player(rules.SeatNorth).Hand)
	assert.Len(t, s2.Player(rules.SeatNorth).Discard, 2)
	act, ok := s2.Actions.Active.(rules.DiscardCards)
	require.True(t, ok, "expected South's discard, got %T", s2.Actions.Active)
	assert.Equal(t, rules.SeatSouth, act.Actor())
	assert.Equal(t, 1, act.Count)

	s3, _, err := e.ResolveActionWithCard(s2, rules.SeatSouth, s2.Player(rules.SeatSouth).Hand[0].ID)
	require.NoError(t, err)
	require.NoError(t, s3.VerifyIntegrity())
	assert.False(t, s3.Actions.Pending())
}

// An optional effect aimed at the opponent prompts that opponent; accepting
// applies the step to the prompted seat, not to the card's owner.
func TestAcceptedOpponentPromptAppliesToPromptedSeat(t *testing.T) {
	custom := []catalog.Card{{
		Protocol: "Virus", Value: 0,
		Middle:   "Your opponent may draw 1 card.",
		Keywords: []catalog.Keyword{catalog.KeywordDraw},
		Effects: []catalog.Effect{
			{Trigger: catalog.TriggerOnPlay, Text: "Your opponent may draw 1 card.", Instructions: []catalog.Instruction{
				{Op: catalog.OpDraw, Count: 1, Who: catalog.WhoOpponent, Optional: true},
			}},
		},
	}}
	cat, err := catalog.NewWithCustom(custom)
	require.NoError(t, err)
	e := NewEngine(cat, zap.NewNop())
	e.Seed(42)

	s := bareState(
		[LaneCount]string{"Virus", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)
	virus0 := putHand(t, e, s, rules.SeatSouth, "Virus-0")
	putDeck(t, e, s, rules.SeatNorth, "Metal-4")

	s2, _, err := e.PlayCard(s, virus0, 0, true)
	require.NoError(t, err)
	prompt, ok := s2.Actions.Active.(rules.PromptOptionalEffect)
	require.True(t, ok, "expected the draw prompt, got %T", s2.Actions.Active)
	require.Equal(t, rules.SeatNorth, prompt.Actor())

	s3, _, err := e.AcceptAction(s2, rules.SeatNorth)
	require.NoError(t, err)
	require.NoError(t, s3.VerifyIntegrity())
	assert.Len(t, s3.Player(rules.SeatNorth).Hand, 1, "the draw lands with the prompted seat")
	assert.Empty(t, s3.Player(rules.SeatSouth).Hand)
}

func TestDirectCompileRespectsTurnGates(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-3", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-2", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-1", true)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-4", true)
	require.Equal(t, 10, s.Player(rules.SeatSouth).LaneValues[1])

	// Mid-resolution: a pending action blocks the direct compile.
	withPending := s.Clone()
	withPending.Actions.Issue(rules.DiscardCards{
		Base:  rules.Base{ActorSeat: rules.SeatSouth},
		Count: 1,
	})
	_, err := e.PerformCompile(withPending, 1, nil)
	assert.ErrorIs(t, err, rules.ErrIllegalIntent)

	// Outside the action phase the direct compile is refused as well.
	wrongPhase := s.Clone()
	wrongPhase.Phase.Index = 0
	_, err = e.PerformCompile(wrongPhase, 1, nil)
	assert.ErrorIs(t, err, rules.ErrIllegalIntent)

	// As the turn action it goes through, and replaces the card play.
	s2, err := e.PerformCompile(s, 1, nil)
	require.NoError(t, err)
	require.NoError(t, s2.VerifyIntegrity())
	assert.True(t, s2.Player(rules.SeatSouth).Compiled[1])
	assert.Empty(t, s2.Player(rules.SeatSouth).Lanes[1].Cards)
	assert.Equal(t, rules.SeatNorth, s2.ActiveSeat())
}

// Resolving an interrupt during the opponent's turn hands the control-marker
// holder a protocol rearrangement when the turn resumes.
func TestResumedTurnTriggersControlRearrange(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatNorth)
	s.UseControl = true
	holder := rules.SeatSouth
	s.ControlHolder = &holder
	toActionPhase(s)

	putLane(t, e, s, rules.SeatSouth, 0, "Speed-0", false)
	metal0 := putHand(t, e, s, rules.SeatNorth, "Metal-0")

	s2, _, err := e.PlayCard(s, metal0, 0, true)
	require.NoError(t, err)
	_, ok := s2.Actions.Active.(rules.SelectLaneForShift)
	require.True(t, ok, "expected the shift interrupt, got %T", s2.Actions.Active)

	s3, _, err := e.ResolveActionWithLane(s2, rules.SeatSouth, 1)
	require.NoError(t, err)
	rearrange, ok := s3.Actions.Active.(rules.RearrangeProtocols)
	require.True(t, ok, "resuming the turn offers the marker holder a rearrange, got %T", s3.Actions.Active)
	assert.Equal(t, rules.SeatSouth, rearrange.Actor())
	assert.Equal(t, rules.SeatNorth, rearrange.Target)
	assert.True(t, rearrange.IsOptional())

	// Declining resumes the turn without a second offer.
	s4, err := e.SkipAction(s3, rules.SeatSouth)
	require.NoError(t, err)
	require.NoError(t, s4.VerifyIntegrity())
	assert.False(t, s4.Actions.Pending())
	assert.Equal(t, rules.SeatSouth, s4.ActiveSeat(), "North's turn completed after the declined offer")
}

// A revealed hand card placed into a lane sheds its revealed flag.
func TestLanePlacementClearsRevealedFlag(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)

	shown := putHand(t, e, s, rules.SeatNorth, "Hate-4")
	s.Player(rules.SeatNorth).Hand[0].Revealed = true
	s.PendingRevealID = shown
	s.Actions.Issue(rules.SelectLaneForShift{
		Base:            rules.Base{ActorSeat: rules.SeatSouth},
		CardID:          shown,
		PlaceOnOpponent: true,
	})

	s2, _, err := e.ResolveActionWithLane(s, rules.SeatSouth, 1)
	require.NoError(t, err)
	require.NoError(t, s2.VerifyIntegrity())

	card, loc, found := s2.FindCard(shown)
	require.True(t, found)
	assert.Equal(t, ZoneLane, loc.Zone)
	assert.Equal(t, rules.SeatNorth, loc.Seat)
	assert.False(t, card.FaceUp)
	assert.False(t, card.Revealed, "placement clears the reveal")
	assert.Empty(t, s2.PendingRevealID)
}

func TestCardConservationAcrossScriptedGame(t *testing.T) {
	e := testEngine()
	s, err := e.CreateInitialState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		false, rules.SeatSouth)
	require.NoError(t, err)
	initial := len(s.CardIDs())

	// Both players alternate refreshing for a few turns; every intermediate
	// state conserves card identities and lane-value caches.
	for turn := 0; turn < 6; turn++ {
		for s.Actions.Pending() {
			act := s.Actions.Active
			if act.IsOptional() {
				s, err = e.SkipAction(s, act.Actor())
				require.NoError(t, err)
				continue
			}
			switch a := act.(type) {
			case rules.DiscardCards:
				s, _, err = e.ResolveActionWithCard(s, a.Actor(), s.Player(a.Actor()).Hand[0].ID)
				require.NoError(t, err)
			case rules.SelectLaneForCompile:
				s, err = e.CompileLane(s, a.Lanes[0])
				require.NoError(t, err)
			default:
				t.Fatalf("unexpected action %s in refresh-only game", act.Type())
			}
		}
		if s.Winner != nil {
			break
		}
		s, err = e.FillHand(s)
		require.NoError(t, err)
		require.NoError(t, s.VerifyIntegrity())
		assert.Len(t, s.CardIDs(), initial)
	}
}
