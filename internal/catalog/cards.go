package catalog

import (
	"sort"

	"github.com/compiledigital/compile-server-go/internal/game/targeting"
)

// Filter construction helpers for the built-in set.

func pick(owner targeting.Owner, face targeting.FaceState, pos targeting.Position) *targeting.Filter {
	f := targeting.NewFilter()
	f.Owner = owner
	f.Face = face
	f.Position = pos
	return &f
}

func maxValue(f *targeting.Filter, max int) *targeting.Filter {
	f.HasValueRange = true
	f.MinValue = 0
	f.MaxValue = max
	return f
}

func notSelf(f *targeting.Filter) *targeting.Filter {
	f.ExcludeSelf = true
	return f
}

func ownHand() *targeting.Filter {
	f := targeting.NewFilter()
	f.Owner = targeting.OwnerOwn
	f.Location = targeting.LocationHand
	return &f
}

// defaultCards is the built-in protocol set. Per protocol: five cards,
// values 0 through 4. The Top box holds passives, the Middle box the
// on-play effect, the Bottom box triggered effects.
var defaultCards = []Card{
	// ------------------------------------------------------------- Speed
	{
		Protocol: "Speed", Value: 0,
		Middle:   "Draw 2 cards.",
		Bottom:   "When this card is flipped face-up: shift this card.",
		Keywords: []Keyword{KeywordDraw, KeywordShift},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Draw 2 cards.", Instructions: []Instruction{
				{Op: OpDraw, Count: 2},
			}},
			{Trigger: TriggerOnFlip, Text: "Shift this card.", Instructions: []Instruction{
				{Op: OpShift, Self: true, Dest: DestOtherLane},
			}},
		},
	},
	{
		Protocol: "Speed", Value: 1,
		Middle:   "Shift 1 of your cards.",
		Keywords: []Keyword{KeywordShift},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Shift 1 of your cards.", Instructions: []Instruction{
				{Op: OpShift, Target: notSelf(pick(targeting.OwnerOwn, targeting.FaceAny, targeting.PositionUncovered)), Dest: DestOtherLane},
			}},
		},
	},
	{
		Protocol: "Speed", Value: 2,
		Middle:   "Draw 1 card.",
		Keywords: []Keyword{KeywordDraw},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Draw 1 card.", Instructions: []Instruction{
				{Op: OpDraw, Count: 1},
			}},
		},
	},
	{
		Protocol: "Speed", Value: 3,
		Bottom:   "End: You may shift this card.",
		Keywords: []Keyword{KeywordShift},
		Effects: []Effect{
			{Trigger: TriggerEnd, Text: "You may shift this card.", Instructions: []Instruction{
				{Op: OpShift, Self: true, Dest: DestOtherLane, Optional: true},
			}},
		},
	},
	{Protocol: "Speed", Value: 4},

	// -------------------------------------------------------------- Life
	{
		Protocol: "Life", Value: 0,
		Middle:   "Draw 3 cards. Then discard 1 card.",
		Keywords: []Keyword{KeywordDraw, KeywordDiscard},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Draw 3 cards. Then discard 1 card.", Instructions: []Instruction{
				{Op: OpDraw, Count: 3},
				{Op: OpDiscard, Count: 1},
			}},
		},
	},
	{
		Protocol: "Life", Value: 1,
		Bottom:   "When this card is covered: draw 1 card.",
		Keywords: []Keyword{KeywordDraw},
		Effects: []Effect{
			{Trigger: TriggerOnCover, Text: "Draw 1 card.", Instructions: []Instruction{
				{Op: OpDraw, Count: 1},
			}},
		},
	},
	{
		Protocol: "Life", Value: 2,
		Middle:   "Play the top card of your deck face-down in another line.",
		Keywords: []Keyword{KeywordPlay},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Play the top card of your deck face-down in another line.", Instructions: []Instruction{
				{Op: OpPlayTopDeck, Dest: DestOtherLane},
			}},
		},
	},
	{
		Protocol: "Life", Value: 3,
		Bottom:   "Start: You may draw 1 card.",
		Keywords: []Keyword{KeywordDraw},
		Effects: []Effect{
			{Trigger: TriggerStart, Text: "You may draw 1 card.", Instructions: []Instruction{
				{Op: OpDraw, Count: 1, Optional: true},
			}},
		},
	},
	{Protocol: "Life", Value: 4},

	// ------------------------------------------------------------- Water
	{
		Protocol: "Water", Value: 0,
		Middle:   "Return 1 card. Then flip this card.",
		Keywords: []Keyword{KeywordReturn, KeywordFlip},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Return 1 card. Then flip this card.", Instructions: []Instruction{
				{Op: OpReturn, Target: notSelf(pick(targeting.OwnerAny, targeting.FaceAny, targeting.PositionUncovered))},
				{Op: OpFlip, Self: true, FlipTo: FlipToggle},
			}},
		},
	},
	{
		Protocol: "Water", Value: 1,
		Middle:   "Return 1 face-down card.",
		Keywords: []Keyword{KeywordReturn},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Return 1 face-down card.", Instructions: []Instruction{
				{Op: OpReturn, Target: notSelf(pick(targeting.OwnerAny, targeting.FaceDown, targeting.PositionAny))},
			}},
		},
	},
	{
		Protocol: "Water", Value: 2,
		Bottom:   "When this card is flipped face-up: return this card.",
		Keywords: []Keyword{KeywordReturn},
		Effects: []Effect{
			{Trigger: TriggerOnFlip, Text: "Return this card.", Instructions: []Instruction{
				{Op: OpReturn, Self: true},
			}},
		},
	},
	{
		Protocol: "Water", Value: 3,
		Bottom:   "End: You may return 1 of your opponent's cards of value 2 or less.",
		Keywords: []Keyword{KeywordReturn},
		Effects: []Effect{
			{Trigger: TriggerEnd, Text: "You may return 1 of your opponent's cards of value 2 or less.", Instructions: []Instruction{
				{Op: OpReturn, Target: maxValue(pick(targeting.OwnerOpponent, targeting.FaceAny, targeting.PositionUncovered), 2), Optional: true},
			}},
		},
	},
	{Protocol: "Water", Value: 4},

	// ------------------------------------------------------------- Metal
	{
		Protocol: "Metal", Value: 0,
		Middle:   "Flip your opponent's uncovered card in this line.",
		Keywords: []Keyword{KeywordFlip},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Flip your opponent's uncovered card in this line.", Instructions: []Instruction{
				{Op: OpFlip, Target: pick(targeting.OwnerOpponent, targeting.FaceAny, targeting.PositionUncovered), SameLane: true, FlipTo: FlipToggle},
			}},
		},
	},
	{
		Protocol: "Metal", Value: 1,
		Middle:   "Delete 1 face-down card.",
		Keywords: []Keyword{KeywordDelete},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Delete 1 face-down card.", Instructions: []Instruction{
				{Op: OpDelete, Target: pick(targeting.OwnerAny, targeting.FaceDown, targeting.PositionAny)},
			}},
		},
	},
	{
		Protocol: "Metal", Value: 2,
		Middle:   "Delete your opponent's uncovered card of value 1 or less in this line.",
		Keywords: []Keyword{KeywordDelete},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Delete your opponent's uncovered card of value 1 or less in this line.", Instructions: []Instruction{
				{Op: OpDelete, Target: maxValue(pick(targeting.OwnerOpponent, targeting.FaceAny, targeting.PositionUncovered), 1), SameLane: true},
			}},
		},
	},
	{
		Protocol: "Metal", Value: 3,
		Bottom:   "When this card is uncovered: delete 1 card of value 1 or less.",
		Keywords: []Keyword{KeywordDelete},
		Effects: []Effect{
			{Trigger: TriggerOnUncover, Text: "Delete 1 card of value 1 or less.", Instructions: []Instruction{
				{Op: OpDelete, Target: notSelf(maxValue(pick(targeting.OwnerAny, targeting.FaceAny, targeting.PositionUncovered), 1))},
			}},
		},
	},
	{Protocol: "Metal", Value: 4},

	// ------------------------------------------------------------- Death
	{
		Protocol: "Death", Value: 0,
		Middle:   "Delete 1 card of value 1 or less.",
		Keywords: []Keyword{KeywordDelete},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Delete 1 card of value 1 or less.", Instructions: []Instruction{
				{Op: OpDelete, Target: notSelf(maxValue(pick(targeting.OwnerAny, targeting.FaceAny, targeting.PositionUncovered), 1))},
			}},
		},
	},
	{
		Protocol: "Death", Value: 1,
		Middle:   "Delete 1 uncovered card in this line.",
		Keywords: []Keyword{KeywordDelete},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Delete 1 uncovered card in this line.", Instructions: []Instruction{
				{Op: OpDelete, Target: notSelf(pick(targeting.OwnerAny, targeting.FaceAny, targeting.PositionUncovered)), SameLane: true},
			}},
		},
	},
	{
		Protocol: "Death", Value: 2,
		Bottom:   "Start: You may delete 1 of your face-down cards.",
		Keywords: []Keyword{KeywordDelete},
		Effects: []Effect{
			{Trigger: TriggerStart, Text: "You may delete 1 of your face-down cards.", Instructions: []Instruction{
				{Op: OpDelete, Target: pick(targeting.OwnerOwn, targeting.FaceDown, targeting.PositionAny), Optional: true},
			}},
		},
	},
	{
		Protocol: "Death", Value: 3,
		Bottom:   "When this card is uncovered: delete your opponent's uncovered card in this line.",
		Keywords: []Keyword{KeywordDelete},
		Effects: []Effect{
			{Trigger: TriggerOnUncover, Text: "Delete your opponent's uncovered card in this line.", Instructions: []Instruction{
				{Op: OpDelete, Target: pick(targeting.OwnerOpponent, targeting.FaceAny, targeting.PositionUncovered), SameLane: true},
			}},
		},
	},
	{Protocol: "Death", Value: 4},

	// -------------------------------------------------------------- Hate
	{
		Protocol: "Hate", Value: 0,
		Middle:   "Your opponent discards 1 card.",
		Keywords: []Keyword{KeywordDiscard},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Your opponent discards 1 card.", Instructions: []Instruction{
				{Op: OpDiscard, Who: WhoOpponent, Count: 1},
			}},
		},
	},
	{
		Protocol: "Hate", Value: 1,
		Middle:   "Your opponent discards 2 cards. Discard 1 card.",
		Keywords: []Keyword{KeywordDiscard},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Your opponent discards 2 cards. Discard 1 card.", Instructions: []Instruction{
				{Op: OpDiscard, Who: WhoOpponent, Count: 2},
				{Op: OpDiscard, Count: 1},
			}},
		},
	},
	{
		Protocol: "Hate", Value: 2,
		Bottom:   "When this card is flipped face-up: your opponent discards 1 card.",
		Keywords: []Keyword{KeywordDiscard},
		Effects: []Effect{
			{Trigger: TriggerOnFlip, Text: "Your opponent discards 1 card.", Instructions: []Instruction{
				{Op: OpDiscard, Who: WhoOpponent, Count: 1},
			}},
		},
	},
	{
		Protocol: "Hate", Value: 3,
		Bottom:   "When this card is covered: your opponent discards 1 card.",
		Keywords: []Keyword{KeywordDiscard},
		Effects: []Effect{
			{Trigger: TriggerOnCover, Text: "Your opponent discards 1 card.", Instructions: []Instruction{
				{Op: OpDiscard, Who: WhoOpponent, Count: 1},
			}},
		},
	},
	{Protocol: "Hate", Value: 4},

	// ------------------------------------------------------------ Plague
	{
		Protocol: "Plague", Value: 0,
		Top:      "Your opponent cannot play cards in this line.",
		Passives: []Passive{{Kind: PassiveLaneBlock, Text: "Your opponent cannot play cards in this line."}},
	},
	{
		Protocol: "Plague", Value: 1,
		Middle:   "Your opponent discards 1 card.",
		Keywords: []Keyword{KeywordDiscard},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Your opponent discards 1 card.", Instructions: []Instruction{
				{Op: OpDiscard, Who: WhoOpponent, Count: 1},
			}},
		},
	},
	{
		Protocol: "Plague", Value: 2,
		Bottom:   "When this card is uncovered: your opponent discards 2 cards.",
		Keywords: []Keyword{KeywordDiscard},
		Effects: []Effect{
			{Trigger: TriggerOnUncover, Text: "Your opponent discards 2 cards.", Instructions: []Instruction{
				{Op: OpDiscard, Who: WhoOpponent, Count: 2},
			}},
		},
	},
	{
		Protocol: "Plague", Value: 3,
		Middle:   "Delete 1 of your face-down cards. Draw 2 cards.",
		Keywords: []Keyword{KeywordDelete, KeywordDraw},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Delete 1 of your face-down cards. Draw 2 cards.", Instructions: []Instruction{
				{Op: OpDelete, Target: pick(targeting.OwnerOwn, targeting.FaceDown, targeting.PositionAny)},
				{Op: OpDraw, Count: 2},
			}},
		},
	},
	{Protocol: "Plague", Value: 4},

	// -------------------------------------------------------------- Fire
	{
		Protocol: "Fire", Value: 0,
		Middle:   "Delete 1 uncovered card of value 2 or less.",
		Keywords: []Keyword{KeywordDelete},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Delete 1 uncovered card of value 2 or less.", Instructions: []Instruction{
				{Op: OpDelete, Target: notSelf(maxValue(pick(targeting.OwnerAny, targeting.FaceAny, targeting.PositionUncovered), 2))},
			}},
		},
	},
	{
		Protocol: "Fire", Value: 1,
		Bottom:   "When this card is flipped face-up: delete 1 face-down card.",
		Keywords: []Keyword{KeywordDelete},
		Effects: []Effect{
			{Trigger: TriggerOnFlip, Text: "Delete 1 face-down card.", Instructions: []Instruction{
				{Op: OpDelete, Target: pick(targeting.OwnerAny, targeting.FaceDown, targeting.PositionAny)},
			}},
		},
	},
	{
		Protocol: "Fire", Value: 2,
		Middle:   "Discard 1 card. Draw 2 cards.",
		Keywords: []Keyword{KeywordDiscard, KeywordDraw},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Discard 1 card. Draw 2 cards.", Instructions: []Instruction{
				{Op: OpDiscard, Count: 1},
				{Op: OpDraw, Count: 2},
			}},
		},
	},
	{
		Protocol: "Fire", Value: 3,
		Bottom:   "Start: You may flip 1 of your opponent's face-up cards face-down.",
		Keywords: []Keyword{KeywordFlip},
		Effects: []Effect{
			{Trigger: TriggerStart, Text: "You may flip 1 of your opponent's face-up cards face-down.", Instructions: []Instruction{
				{Op: OpFlip, Target: pick(targeting.OwnerOpponent, targeting.FaceUp, targeting.PositionAny), FlipTo: FlipDown, Optional: true},
			}},
		},
	},
	{Protocol: "Fire", Value: 4},

	// ------------------------------------------------------------- Light
	{
		Protocol: "Light", Value: 0,
		Middle:   "Flip 1 face-down card face-up.",
		Keywords: []Keyword{KeywordFlip},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Flip 1 face-down card face-up.", Instructions: []Instruction{
				{Op: OpFlip, Target: pick(targeting.OwnerAny, targeting.FaceDown, targeting.PositionAny), FlipTo: FlipUp},
			}},
		},
	},
	{
		Protocol: "Light", Value: 1,
		Bottom:   "When this card is flipped face-up: draw 1 card.",
		Keywords: []Keyword{KeywordDraw},
		Effects: []Effect{
			{Trigger: TriggerOnFlip, Text: "Draw 1 card.", Instructions: []Instruction{
				{Op: OpDraw, Count: 1},
			}},
		},
	},
	{
		Protocol: "Light", Value: 2,
		Middle:   "Your opponent reveals 1 card from their hand. Shift it into a line of your choice.",
		Keywords: []Keyword{KeywordShift},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Your opponent reveals 1 card from their hand. Shift it into a line of your choice.", Instructions: []Instruction{
				{Op: OpReveal, Who: WhoOpponent, Target: ownHand()},
				{Op: OpShiftRevealed, Dest: DestChoose},
			}},
		},
	},
	{
		Protocol: "Light", Value: 3,
		Bottom:   "End: You may flip 1 of your face-down cards face-up.",
		Keywords: []Keyword{KeywordFlip},
		Effects: []Effect{
			{Trigger: TriggerEnd, Text: "You may flip 1 of your face-down cards face-up.", Instructions: []Instruction{
				{Op: OpFlip, Target: pick(targeting.OwnerOwn, targeting.FaceDown, targeting.PositionAny), FlipTo: FlipUp, Optional: true},
			}},
		},
	},
	{Protocol: "Light", Value: 4},

	// ---------------------------------------------------------- Darkness
	{
		Protocol: "Darkness", Value: 0,
		Top:      "Cards may only be played face-up into lines where they do not match a protocol.",
		Passives: []Passive{{Kind: PassiveInvertMatching, Text: "Cards may only be played face-up into lines where they do not match a protocol."}},
	},
	{
		Protocol: "Darkness", Value: 1,
		Middle:   "Flip 1 face-up card face-down.",
		Keywords: []Keyword{KeywordFlip},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Flip 1 face-up card face-down.", Instructions: []Instruction{
				{Op: OpFlip, Target: notSelf(pick(targeting.OwnerAny, targeting.FaceUp, targeting.PositionAny)), FlipTo: FlipDown},
			}},
		},
	},
	{
		Protocol: "Darkness", Value: 2,
		Middle:   "Flip your opponent's uncovered card in this line face-down.",
		Keywords: []Keyword{KeywordFlip},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Flip your opponent's uncovered card in this line face-down.", Instructions: []Instruction{
				{Op: OpFlip, Target: pick(targeting.OwnerOpponent, targeting.FaceUp, targeting.PositionUncovered), SameLane: true, FlipTo: FlipDown},
			}},
		},
	},
	{
		Protocol: "Darkness", Value: 3,
		Bottom:   "End: You may flip 1 of your opponent's face-up uncovered cards face-down.",
		Keywords: []Keyword{KeywordFlip},
		Effects: []Effect{
			{Trigger: TriggerEnd, Text: "You may flip 1 of your opponent's face-up uncovered cards face-down.", Instructions: []Instruction{
				{Op: OpFlip, Target: pick(targeting.OwnerOpponent, targeting.FaceUp, targeting.PositionUncovered), FlipTo: FlipDown, Optional: true},
			}},
		},
	},
	{Protocol: "Darkness", Value: 4},

	// ----------------------------------------------------------- Gravity
	{
		Protocol: "Gravity", Value: 0,
		Middle:   "Shift 1 card to this line.",
		Keywords: []Keyword{KeywordShift},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Shift 1 card to this line.", Instructions: []Instruction{
				{Op: OpShift, Target: notSelf(pick(targeting.OwnerAny, targeting.FaceAny, targeting.PositionUncovered)), Dest: DestSameLane},
			}},
		},
	},
	{
		Protocol: "Gravity", Value: 1,
		Top:      "Face-down cards in this line count as 4.",
		Passives: []Passive{{Kind: PassiveFaceDownValue, Text: "Face-down cards in this line count as 4.", Amount: 4}},
	},
	{
		Protocol: "Gravity", Value: 2,
		Middle:   "Shift your opponent's uncovered card in this line to another line.",
		Keywords: []Keyword{KeywordShift},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Shift your opponent's uncovered card in this line to another line.", Instructions: []Instruction{
				{Op: OpShift, Target: pick(targeting.OwnerOpponent, targeting.FaceAny, targeting.PositionUncovered), SameLane: true, Dest: DestOtherLane},
			}},
		},
	},
	{
		Protocol: "Gravity", Value: 3,
		Bottom:   "When this card is covered: you may shift this card.",
		Keywords: []Keyword{KeywordShift},
		Effects: []Effect{
			{Trigger: TriggerOnCover, Text: "You may shift this card.", Instructions: []Instruction{
				{Op: OpShift, Self: true, Dest: DestOtherLane, Optional: true},
			}},
		},
	},
	{Protocol: "Gravity", Value: 4},

	// -------------------------------------------------------------- Love
	{
		Protocol: "Love", Value: 0,
		Middle:   "Both players draw 1 card.",
		Keywords: []Keyword{KeywordDraw},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Both players draw 1 card.", Instructions: []Instruction{
				{Op: OpDraw, Count: 1},
				{Op: OpDraw, Who: WhoOpponent, Count: 1},
			}},
		},
	},
	{
		Protocol: "Love", Value: 1,
		Top:      "All cards may be played face-up in any line.",
		Passives: []Passive{{Kind: PassiveAnyFaceUp, Text: "All cards may be played face-up in any line."}},
	},
	{
		Protocol: "Love", Value: 2,
		Middle:   "Draw 2 cards.",
		Keywords: []Keyword{KeywordDraw},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Draw 2 cards.", Instructions: []Instruction{
				{Op: OpDraw, Count: 2},
			}},
		},
	},
	{
		Protocol: "Love", Value: 3,
		Bottom:   "When this card is uncovered: draw 1 card.",
		Keywords: []Keyword{KeywordDraw},
		Effects: []Effect{
			{Trigger: TriggerOnUncover, Text: "Draw 1 card.", Instructions: []Instruction{
				{Op: OpDraw, Count: 1},
			}},
		},
	},
	{Protocol: "Love", Value: 4},

	// ------------------------------------------------------------ Spirit
	{
		Protocol: "Spirit", Value: 0,
		Middle:   "Play the top card of your deck face-down in this line.",
		Keywords: []Keyword{KeywordPlay},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Play the top card of your deck face-down in this line.", Instructions: []Instruction{
				{Op: OpPlayTopDeck, Dest: DestSameLane},
			}},
		},
	},
	{
		Protocol: "Spirit", Value: 1,
		Bottom:   "Start: You may play the top card of your deck face-down in another line.",
		Keywords: []Keyword{KeywordPlay},
		Effects: []Effect{
			{Trigger: TriggerStart, Text: "You may play the top card of your deck face-down in another line.", Instructions: []Instruction{
				{Op: OpPlayTopDeck, Dest: DestOtherLane, Optional: true},
			}},
		},
	},
	{
		Protocol: "Spirit", Value: 2,
		Middle:   "Draw 1 card.",
		Keywords: []Keyword{KeywordDraw},
		Effects: []Effect{
			{Trigger: TriggerOnPlay, Text: "Draw 1 card.", Instructions: []Instruction{
				{Op: OpDraw, Count: 1},
			}},
		},
	},
	{
		Protocol: "Spirit", Value: 3,
		Top:      "This card may be played face-up in any line.",
		Passives: []Passive{{Kind: PassiveSelfAnyLane, Text: "This card may be played face-up in any line."}},
	},
	{Protocol: "Spirit", Value: 4},
}

// StaticCatalog is an immutable Provider over a fixed card list.
type StaticCatalog struct {
	cards     map[string]Card
	byProto   map[string][]Card
	protocols []string
}

// NewStaticCatalog builds a catalog from the given cards. The card list must
// already be validated; use the loader for untrusted input.
func NewStaticCatalog(cards []Card) *StaticCatalog {
	c := &StaticCatalog{
		cards:   make(map[string]Card, len(cards)),
		byProto: make(map[string][]Card),
	}
	for _, card := range cards {
		c.cards[card.Key()] = card
		c.byProto[card.Protocol] = append(c.byProto[card.Protocol], card)
	}
	for proto := range c.byProto {
		sort.Slice(c.byProto[proto], func(i, j int) bool {
			return c.byProto[proto][i].Value < c.byProto[proto][j].Value
		})
		c.protocols = append(c.protocols, proto)
	}
	sort.Strings(c.protocols)
	return c
}

// NewDefault returns the built-in protocol set.
func NewDefault() *StaticCatalog {
	return NewStaticCatalog(defaultCards)
}

// Protocols lists the protocol names in the catalog, sorted.
func (c *StaticCatalog) Protocols() []string {
	out := make([]string, len(c.protocols))
	copy(out, c.protocols)
	return out
}

// ProtocolCards returns the cards of one protocol, lowest value first.
func (c *StaticCatalog) ProtocolCards(protocol string) ([]Card, bool) {
	cards, ok := c.byProto[protocol]
	if !ok {
		return nil, false
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out, true
}

// Card looks up a card by its canonical key, e.g. "Water-0".
func (c *StaticCatalog) Card(key string) (Card, bool) {
	card, ok := c.cards[key]
	return card, ok
}
