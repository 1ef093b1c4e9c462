package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

func init() {
	// Action interface values inside the snapshot need their concrete
	// variants registered for gob.
	gob.Register(rules.DiscardCards{})
	gob.Register(rules.SelectCardToDelete{})
	gob.Register(rules.SelectCardToFlip{})
	gob.Register(rules.SelectCardToReturn{})
	gob.Register(rules.SelectCardToShift{})
	gob.Register(rules.SelectCardToReveal{})
	gob.Register(rules.SelectLaneForShift{})
	gob.Register(rules.SelectLaneForCompile{})
	gob.Register(rules.SelectPhaseEffect{})
	gob.Register(rules.PromptOptionalEffect{})
	gob.Register(rules.RearrangeProtocols{})
	gob.Register(rules.SwapProtocols{})
	gob.Register(rules.RunEffectStep{})
}

// Checksum is a deterministic digest of a game state, used to detect
// divergence between replayed and live states.
type Checksum struct {
	Hash    string
	Version int
}

// ComputeChecksum hashes a canonical representation of the state. The
// representation is independent of map iteration order; the event log and
// its timestamps are excluded.
func (s *GameState) ComputeChecksum() Checksum {
	data := s.canonicalString()
	sum := sha256.Sum256([]byte(data))
	return Checksum{Hash: hex.EncodeToString(sum[:]), Version: 1}
}

func (s *GameState) canonicalString() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%d|%s|%d|%t\n",
		s.ID, s.Phase.TurnNumber, s.Phase.Current(), int(s.Phase.Active), s.UseControl)
	if s.Winner != nil {
		fmt.Fprintf(&buf, "WINNER:%s\n", s.Winner)
	}
	if s.ControlHolder != nil {
		fmt.Fprintf(&buf, "CONTROL:%s\n", s.ControlHolder)
	}
	if s.PendingRevealID != "" {
		fmt.Fprintf(&buf, "REVEAL:%s\n", s.PendingRevealID)
	}

	for pi := range s.Players {
		p := &s.Players[pi]
		fmt.Fprintf(&buf, "PLAYER:%d|%s|%v\n", pi, strings.Join(p.Protocols[:], ","), p.Compiled)
		for li := range p.Lanes {
			buf.WriteString(fmt.Sprintf("  LANE:%d=%d:", li, p.LaneValues[li]))
			for _, c := range p.Lanes[li].Cards {
				fmt.Fprintf(&buf, "%s/%s/%t,", c.ID, c.Card.Key(), c.FaceUp)
			}
			buf.WriteString("\n")
		}
		// Hand and discard are order-insensitive for the digest; deck order
		// matters for replay equivalence.
		writeSortedZone(&buf, "  HAND", p.Hand)
		writeSortedZone(&buf, "  DISCARD", p.Discard)
		buf.WriteString("  DECK:")
		for _, c := range p.Deck {
			buf.WriteString(c.ID)
			buf.WriteString(",")
		}
		buf.WriteString("\n")
		compiled := make([]string, 0, len(p.CompiledProtocols))
		for name, count := range p.CompiledProtocols {
			compiled = append(compiled, fmt.Sprintf("%s=%d", name, count))
		}
		sort.Strings(compiled)
		fmt.Fprintf(&buf, "  COMPILED:%s\n", strings.Join(compiled, ","))
	}

	// Pending actions, in stack order.
	if s.Actions.Active != nil {
		fmt.Fprintf(&buf, "ACTIVE:%s|%s\n", s.Actions.Active.Type(), s.Actions.Active.Actor())
	}
	for i, a := range s.Actions.Interrupts {
		fmt.Fprintf(&buf, "INTERRUPT:%d:%s|%s\n", i, a.Type(), a.Actor())
	}
	for i, a := range s.Actions.Queue {
		fmt.Fprintf(&buf, "QUEUED:%d:%s|%s\n", i, a.Type(), a.Actor())
	}

	return buf.String()
}

func writeSortedZone(buf *bytes.Buffer, label string, cards []PlayedCard) {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	sort.Strings(ids)
	buf.WriteString(label)
	buf.WriteString(":")
	buf.WriteString(strings.Join(ids, ","))
	buf.WriteString("\n")
}

// Serialize encodes the state with gob, for save files and replays.
func (s *GameState) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("encoding game state: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a state produced by Serialize.
func Deserialize(data []byte) (*GameState, error) {
	var s GameState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding game state: %w", err)
	}
	return &s, nil
}

// ValidateRoundtrip checks that a state survives serialization unchanged,
// by checksum comparison.
func ValidateRoundtrip(s *GameState) error {
	original := s.ComputeChecksum()
	data, err := s.Serialize()
	if err != nil {
		return err
	}
	restored, err := Deserialize(data)
	if err != nil {
		return err
	}
	if got := restored.ComputeChecksum(); got.Hash != original.Hash {
		return fmt.Errorf("checksum mismatch after roundtrip: %s != %s", got.Hash, original.Hash)
	}
	return nil
}
