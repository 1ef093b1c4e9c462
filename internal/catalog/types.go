package catalog

import (
	"fmt"

	"github.com/compiledigital/compile-server-go/internal/game/targeting"
)

// SchemaVersion is the effect-instruction format accepted by the loader.
// Definitions are validated at load time, never at trigger time.
const SchemaVersion = 1

// Keyword flags the disruptive capability classes a card's effects carry.
// The AI weighs keywords when scoring candidate plays.
type Keyword string

const (
	KeywordDelete  Keyword = "delete"
	KeywordFlip    Keyword = "flip"
	KeywordShift   Keyword = "shift"
	KeywordReturn  Keyword = "return"
	KeywordDraw    Keyword = "draw"
	KeywordPlay    Keyword = "play"
	KeywordDiscard Keyword = "discard"
)

// Trigger names the moment an effect definition fires.
type Trigger string

const (
	TriggerOnPlay    Trigger = "ON_PLAY"
	TriggerOnFlip    Trigger = "ON_FLIP"
	TriggerOnCover   Trigger = "ON_COVER"
	TriggerOnUncover Trigger = "ON_UNCOVER"
	TriggerStart     Trigger = "START"
	TriggerEnd       Trigger = "END"
)

// OpCode is the closed instruction set of the effect AST.
type OpCode string

const (
	OpDraw    OpCode = "DRAW"
	OpDiscard OpCode = "DISCARD"
	OpDelete  OpCode = "DELETE"
	OpFlip    OpCode = "FLIP"
	OpShift   OpCode = "SHIFT"
	OpReturn  OpCode = "RETURN"
	OpReveal  OpCode = "REVEAL"
	// OpPlayTopDeck plays the top card of the actor's deck face-down.
	OpPlayTopDeck OpCode = "PLAY_TOP_DECK"
	// OpShiftRevealed shifts the card revealed earlier in the same effect.
	OpShiftRevealed OpCode = "SHIFT_REVEALED"
)

// Who selects the player an instruction acts for, relative to the card's
// owner.
type Who string

const (
	WhoSelf     Who = "SELF"
	WhoOpponent Who = "OPPONENT"
)

// FlipTo controls the resulting orientation of a flip instruction.
type FlipTo string

const (
	FlipToggle FlipTo = "TOGGLE"
	FlipUp     FlipTo = "UP"
	FlipDown   FlipTo = "DOWN"
)

// Dest controls where shift and play instructions place their card.
type Dest string

const (
	// DestChoose emits a lane choice to the instruction's actor.
	DestChoose Dest = "CHOOSE"
	// DestSameLane pins the destination to the source card's lane.
	DestSameLane Dest = "SAME_LANE"
	// DestOtherLane emits a lane choice excluding the card's current lane.
	DestOtherLane Dest = "OTHER_LANE"
)

// Instruction is one step of an effect program. Steps execute in order; a
// step that needs a player choice suspends the remainder onto the engine's
// follow-up queue.
type Instruction struct {
	Op       OpCode            `json:"op"`
	Count    int               `json:"count,omitempty"`
	Who      Who               `json:"who,omitempty"`
	Target   *targeting.Filter `json:"target,omitempty"`
	Self     bool              `json:"self,omitempty"`
	FlipTo   FlipTo            `json:"flipTo,omitempty"`
	Dest     Dest              `json:"dest,omitempty"`
	Optional bool              `json:"optional,omitempty"`
	// MustChangeProtocol forbids shift destinations whose protocol matches
	// the shifted card.
	MustChangeProtocol bool `json:"mustChangeProtocol,omitempty"`
	// SameLane restricts the target filter to the source card's lane
	// ("in this line" on the printed card).
	SameLane bool `json:"sameLane,omitempty"`
}

// Effect binds a trigger to its program.
type Effect struct {
	Trigger      Trigger       `json:"trigger"`
	Text         string        `json:"text"`
	Instructions []Instruction `json:"instructions"`
}

// PassiveKind names the board-wide or self rules a face-up card imposes
// without resolving a program.
type PassiveKind string

const (
	// PassiveLaneBlock: while face-up and uncovered, the opponent cannot
	// play cards into this lane.
	PassiveLaneBlock PassiveKind = "LANE_BLOCK"
	// PassiveInvertMatching: while face-up anywhere, cards may be played
	// face-up only into lanes whose protocols they do NOT match.
	PassiveInvertMatching PassiveKind = "INVERT_MATCHING"
	// PassiveAnyFaceUp: while face-up anywhere, any card may be played
	// face-up into any lane.
	PassiveAnyFaceUp PassiveKind = "ANY_FACE_UP"
	// PassiveFaceDownValue: while face-up in a lane, face-down cards in
	// that lane count as Amount instead of 2.
	PassiveFaceDownValue PassiveKind = "FACE_DOWN_VALUE"
	// PassiveSelfAnyLane: this card itself ignores protocol matching when
	// played face-up.
	PassiveSelfAnyLane PassiveKind = "SELF_ANY_LANE"
)

// Passive is one top-box rule of a card.
type Passive struct {
	Kind   PassiveKind `json:"kind"`
	Text   string      `json:"text"`
	Amount int         `json:"amount,omitempty"`
}

// Card is an immutable catalog entry: a protocol name, a printed value, the
// three effect-text boxes, keyword flags, and the machine-readable passive
// and effect definitions interpreted by the resolver.
type Card struct {
	Protocol string    `json:"protocol"`
	Value    int       `json:"value"`
	Top      string    `json:"top,omitempty"`
	Middle   string    `json:"middle,omitempty"`
	Bottom   string    `json:"bottom,omitempty"`
	Keywords []Keyword `json:"keywords,omitempty"`
	Passives []Passive `json:"passives,omitempty"`
	Effects  []Effect  `json:"effects,omitempty"`
}

// Key returns the canonical catalog key, e.g. "Speed-0".
func (c Card) Key() string {
	return fmt.Sprintf("%s-%d", c.Protocol, c.Value)
}

// HasKeyword reports whether the card carries the keyword flag.
func (c Card) HasKeyword(k Keyword) bool {
	for _, kw := range c.Keywords {
		if kw == k {
			return true
		}
	}
	return false
}

// HasPassive reports whether the card carries a passive of the given kind.
func (c Card) HasPassive(kind PassiveKind) bool {
	for _, p := range c.Passives {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

// EffectFor returns the card's effect for a trigger, if any.
func (c Card) EffectFor(trigger Trigger) (Effect, bool) {
	for _, e := range c.Effects {
		if e.Trigger == trigger {
			return e, true
		}
	}
	return Effect{}, false
}

// Provider supplies card definitions to the engine. Injected at game
// creation so alternative catalogs (including validated custom protocols)
// can replace the built-in set.
type Provider interface {
	Protocols() []string
	ProtocolCards(protocol string) ([]Card, bool)
	Card(key string) (Card, bool)
}
