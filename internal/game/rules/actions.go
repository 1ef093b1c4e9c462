package rules

import (
	"github.com/compiledigital/compile-server-go/internal/game/targeting"
)

// ActionType discriminates the closed set of ActionRequired variants.
type ActionType string

const (
	ActionDiscardCards        ActionType = "DISCARD_CARDS"
	ActionSelectCardToDelete  ActionType = "SELECT_CARD_TO_DELETE"
	ActionSelectCardToFlip    ActionType = "SELECT_CARD_TO_FLIP"
	ActionSelectCardToReturn  ActionType = "SELECT_CARD_TO_RETURN"
	ActionSelectCardToShift   ActionType = "SELECT_CARD_TO_SHIFT"
	ActionSelectCardToReveal  ActionType = "SELECT_CARD_TO_REVEAL"
	ActionSelectLaneForShift  ActionType = "SELECT_LANE_FOR_SHIFT"
	ActionSelectLaneForCompile ActionType = "SELECT_LANE_FOR_COMPILE"
	ActionSelectPhaseEffect   ActionType = "SELECT_PHASE_EFFECT"
	ActionPromptOptionalEffect ActionType = "PROMPT_OPTIONAL_EFFECT"
	ActionRearrangeProtocols  ActionType = "REARRANGE_PROTOCOLS"
	ActionSwapProtocols       ActionType = "SWAP_PROTOCOLS"
	ActionRunEffectStep       ActionType = "RUN_EFFECT_STEP"
)

// Action is the ActionRequired contract: exactly one action is active at a
// time and only intents from its actor may resolve it. The interface is
// sealed; the variant set below is closed.
type Action interface {
	Type() ActionType
	Actor() Seat
	Source() string
	IsOptional() bool
	isAction()
}

// Base carries the fields every ActionRequired variant shares.
type Base struct {
	ActorSeat    Seat
	SourceCardID string
	Optional     bool
}

func (b Base) Actor() Seat      { return b.ActorSeat }
func (b Base) Source() string   { return b.SourceCardID }
func (b Base) IsOptional() bool { return b.Optional }
func (b Base) isAction()        {}

// DiscardCards requires the actor to discard Count cards from hand, one
// intent per card.
type DiscardCards struct {
	Base
	Count int
}

func (DiscardCards) Type() ActionType { return ActionDiscardCards }

// SelectCardToDelete requires the actor to pick a lane card matching Filter;
// the chosen card is deleted to its owner's discard pile.
type SelectCardToDelete struct {
	Base
	Filter targeting.Filter
}

func (SelectCardToDelete) Type() ActionType { return ActionSelectCardToDelete }

// SelectCardToFlip requires the actor to pick a lane card matching Filter;
// the chosen card's orientation is toggled.
type SelectCardToFlip struct {
	Base
	Filter targeting.Filter
}

func (SelectCardToFlip) Type() ActionType { return ActionSelectCardToFlip }

// SelectCardToReturn requires the actor to pick a lane card matching Filter;
// the chosen card returns to its owner's hand.
type SelectCardToReturn struct {
	Base
	Filter targeting.Filter
}

func (SelectCardToReturn) Type() ActionType { return ActionSelectCardToReturn }

// SelectCardToShift requires the actor to pick the lane card that will be
// shifted; a SelectLaneForShift follow-up chooses the destination.
type SelectCardToShift struct {
	Base
	Filter targeting.Filter
	// MustChangeProtocol forbids destinations whose protocol matches the
	// shifted card.
	MustChangeProtocol bool
	// DestSameLane pins the destination to the effect source's lane instead
	// of emitting a lane choice.
	DestSameLane bool
	DestLane     int
}

func (SelectCardToShift) Type() ActionType { return ActionSelectCardToShift }

// SelectCardToReveal requires the actor to reveal a card from their own hand.
type SelectCardToReveal struct {
	Base
	Filter targeting.Filter
}

func (SelectCardToReveal) Type() ActionType { return ActionSelectCardToReveal }

// SelectLaneForShift requires the actor to choose the destination lane for
// CardID, excluding DisallowedLanes.
type SelectLaneForShift struct {
	Base
	CardID             string
	DisallowedLanes    []int
	MustChangeProtocol bool
	// PlaceOnOpponent places the card on the opposing side of the chosen
	// lane (used when shifting an opponent-owned card).
	PlaceOnOpponent bool
}

func (SelectLaneForShift) Type() ActionType { return ActionSelectLaneForShift }

// SelectLaneForCompile requires the actor to choose which qualifying lane to
// compile when more than one qualifies.
type SelectLaneForCompile struct {
	Base
	Lanes []int
}

func (SelectLaneForCompile) Type() ActionType { return ActionSelectLaneForCompile }

// SelectPhaseEffect lets the acting player order their own start/end phase
// effects: Candidates lists source card IDs whose effect has not resolved in
// this phase pass.
type SelectPhaseEffect struct {
	Base
	Phase      Phase
	Candidates []string
}

func (SelectPhaseEffect) Type() ActionType { return ActionSelectPhaseEffect }

// PromptOptionalEffect asks the actor whether an optional effect fires. It is
// always skippable.
type PromptOptionalEffect struct {
	Base
	Description string
	EffectKey   string
}

func (PromptOptionalEffect) Type() ActionType { return ActionPromptOptionalEffect }

// RearrangeProtocols requires the actor to supply a full ordering of the
// Target seat's three protocols. Emitted by the control mechanic.
type RearrangeProtocols struct {
	Base
	Target Seat
}

func (RearrangeProtocols) Type() ActionType { return ActionRearrangeProtocols }

// SwapProtocols requires the actor to pick two lane indices on the Target
// seat's side whose protocols swap places.
type SwapProtocols struct {
	Base
	Target Seat
}

func (SwapProtocols) Type() ActionType { return ActionSwapProtocols }

// RunEffectStep is a deferred instruction of a partially resolved effect.
// The engine executes it when it drains from the follow-up queue; steps that
// need no player choice resolve without a prompt (e.g. Water-0's self-flip).
type RunEffectStep struct {
	Base
	CardKey   string
	Trigger   string
	StepIndex int
}

func (RunEffectStep) Type() ActionType { return ActionRunEffectStep }
