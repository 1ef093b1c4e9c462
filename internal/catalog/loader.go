package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// cardsPerProtocol is the number of cards in one protocol, values 0 through 4.
const cardsPerProtocol = 5

// ProtocolFile is the on-disk format for custom protocol sets. Definitions
// are fully validated here so the resolver never sees a malformed
// instruction.
type ProtocolFile struct {
	SchemaVersion int           `json:"schemaVersion"`
	Protocols     []ProtocolDef `json:"protocols"`
}

// ProtocolDef is one custom protocol and its five cards.
type ProtocolDef struct {
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
}

// LoadProtocolFile parses and validates a custom protocol set.
func LoadProtocolFile(r io.Reader) ([]Card, error) {
	var file ProtocolFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding protocol file: %w", err)
	}
	if file.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d, want %d", file.SchemaVersion, SchemaVersion)
	}
	if len(file.Protocols) == 0 {
		return nil, fmt.Errorf("protocol file contains no protocols")
	}

	var cards []Card
	seen := make(map[string]bool)
	for _, def := range file.Protocols {
		if def.Name == "" {
			return nil, fmt.Errorf("protocol with empty name")
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("duplicate protocol %q", def.Name)
		}
		seen[def.Name] = true
		if err := validateProtocol(def); err != nil {
			return nil, fmt.Errorf("protocol %q: %w", def.Name, err)
		}
		cards = append(cards, def.Cards...)
	}
	return cards, nil
}

// LoadProtocolPath loads a custom protocol set from a file on disk.
func LoadProtocolPath(path string) ([]Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening protocol file: %w", err)
	}
	defer f.Close()
	return LoadProtocolFile(f)
}

// NewWithCustom returns the built-in set extended with custom protocols.
// Custom protocols may not shadow built-in names.
func NewWithCustom(custom []Card) (*StaticCatalog, error) {
	base := make(map[string]bool)
	for _, c := range defaultCards {
		base[c.Protocol] = true
	}
	for _, c := range custom {
		if base[c.Protocol] {
			return nil, fmt.Errorf("custom protocol %q shadows a built-in protocol", c.Protocol)
		}
	}
	all := make([]Card, 0, len(defaultCards)+len(custom))
	all = append(all, defaultCards...)
	all = append(all, custom...)
	return NewStaticCatalog(all), nil
}

func validateProtocol(def ProtocolDef) error {
	if len(def.Cards) != cardsPerProtocol {
		return fmt.Errorf("expected %d cards, got %d", cardsPerProtocol, len(def.Cards))
	}
	values := make(map[int]bool)
	for _, card := range def.Cards {
		if card.Protocol != def.Name {
			return fmt.Errorf("card %q does not belong to protocol", card.Key())
		}
		if card.Value < 0 || card.Value >= cardsPerProtocol {
			return fmt.Errorf("card value %d out of range", card.Value)
		}
		if values[card.Value] {
			return fmt.Errorf("duplicate value %d", card.Value)
		}
		values[card.Value] = true
		if err := ValidateCard(card); err != nil {
			return fmt.Errorf("card %q: %w", card.Key(), err)
		}
	}
	return nil
}

// ValidateCard checks a card's machine-readable definitions against the
// closed instruction set.
func ValidateCard(card Card) error {
	for _, kw := range card.Keywords {
		switch kw {
		case KeywordDelete, KeywordFlip, KeywordShift, KeywordReturn, KeywordDraw, KeywordPlay, KeywordDiscard:
		default:
			return fmt.Errorf("unknown keyword %q", kw)
		}
	}

	for _, p := range card.Passives {
		switch p.Kind {
		case PassiveLaneBlock, PassiveInvertMatching, PassiveAnyFaceUp, PassiveSelfAnyLane:
		case PassiveFaceDownValue:
			if p.Amount <= 0 {
				return fmt.Errorf("passive %s requires a positive amount", p.Kind)
			}
		default:
			return fmt.Errorf("unknown passive kind %q", p.Kind)
		}
	}

	triggers := make(map[Trigger]bool)
	for _, e := range card.Effects {
		switch e.Trigger {
		case TriggerOnPlay, TriggerOnFlip, TriggerOnCover, TriggerOnUncover, TriggerStart, TriggerEnd:
		default:
			return fmt.Errorf("unknown trigger %q", e.Trigger)
		}
		if triggers[e.Trigger] {
			return fmt.Errorf("duplicate trigger %s", e.Trigger)
		}
		triggers[e.Trigger] = true
		if len(e.Instructions) == 0 {
			return fmt.Errorf("trigger %s has no instructions", e.Trigger)
		}
		if err := validateProgram(e.Instructions); err != nil {
			return fmt.Errorf("trigger %s: %w", e.Trigger, err)
		}
	}
	return nil
}

func validateProgram(instructions []Instruction) error {
	revealed := false
	for i, in := range instructions {
		if err := validateInstruction(in, revealed); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if in.Op == OpReveal {
			revealed = true
		}
	}
	return nil
}

func validateInstruction(in Instruction, revealed bool) error {
	if in.Who != "" && in.Who != WhoSelf && in.Who != WhoOpponent {
		return fmt.Errorf("unknown actor %q", in.Who)
	}
	if in.Target != nil && !in.Target.Validate() {
		return fmt.Errorf("invalid target filter")
	}

	switch in.Op {
	case OpDraw, OpDiscard:
		if in.Count < 1 {
			return fmt.Errorf("%s requires a positive count", in.Op)
		}
		if in.Target != nil || in.Self {
			return fmt.Errorf("%s takes no target", in.Op)
		}
	case OpDelete, OpReturn:
		if err := needsOneTarget(in); err != nil {
			return err
		}
	case OpFlip:
		if err := needsOneTarget(in); err != nil {
			return err
		}
		switch in.FlipTo {
		case "", FlipToggle, FlipUp, FlipDown:
		default:
			return fmt.Errorf("unknown flip orientation %q", in.FlipTo)
		}
	case OpShift:
		if err := needsOneTarget(in); err != nil {
			return err
		}
		if err := validDest(in.Dest); err != nil {
			return err
		}
	case OpReveal:
		if in.Target == nil {
			return fmt.Errorf("REVEAL requires a target filter")
		}
	case OpPlayTopDeck:
		if in.Target != nil || in.Self {
			return fmt.Errorf("PLAY_TOP_DECK takes no target")
		}
		if err := validDest(in.Dest); err != nil {
			return err
		}
	case OpShiftRevealed:
		if !revealed {
			return fmt.Errorf("SHIFT_REVEALED without a preceding REVEAL")
		}
		if err := validDest(in.Dest); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown op %q", in.Op)
	}
	return nil
}

func needsOneTarget(in Instruction) error {
	if in.Self == (in.Target != nil) {
		return fmt.Errorf("%s requires exactly one of self or a target filter", in.Op)
	}
	return nil
}

func validDest(d Dest) error {
	switch d {
	case "", DestChoose, DestSameLane, DestOtherLane:
		return nil
	default:
		return fmt.Errorf("unknown destination %q", d)
	}
}
