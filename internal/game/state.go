package game

import (
	"fmt"
	"math/rand"

	"github.com/compiledigital/compile-server-go/internal/catalog"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

const (
	// LaneCount is the number of shared lanes on the board.
	LaneCount = 3
	// HandLimit is the maximum hand size at the end of a turn, and the size
	// fillHand draws up to.
	HandLimit = 5
	// CompileThreshold is the lane value required to compile.
	CompileThreshold = 10
	// faceDownValue is the default value of a face-down lane card.
	faceDownValue = 2
)

// PlayedCard is a catalog card bound to a table identity. Identity is stable
// across moves, shifts and flips; only orientation and container change.
type PlayedCard struct {
	ID       string
	Card     catalog.Card
	FaceUp   bool
	Revealed bool
}

// Lane is one player's stack in a shared lane, ordered bottom to top. Only
// the top card is uncovered.
type Lane struct {
	Cards []PlayedCard
}

// Top returns the uncovered card of the stack, or nil when empty.
func (l *Lane) Top() *PlayedCard {
	if len(l.Cards) == 0 {
		return nil
	}
	return &l.Cards[len(l.Cards)-1]
}

// Remove detaches the card with the given identity, preserving stack order.
func (l *Lane) Remove(id string) (PlayedCard, bool) {
	for i := range l.Cards {
		if l.Cards[i].ID == id {
			card := l.Cards[i]
			l.Cards = append(l.Cards[:i], l.Cards[i+1:]...)
			return card, true
		}
	}
	return PlayedCard{}, false
}

// PlayerStats tracks per-game counters surfaced to the statistics sink.
type PlayerStats struct {
	CardsPlayed    int
	CardsDrawn     int
	CardsDiscarded int
	CardsDeleted   int
	LanesCompiled  int
}

// PlayerState is one seat's side of the board.
type PlayerState struct {
	Protocols [LaneCount]string
	// Compiled marks per-lane compiled state; it is permuted together with
	// Protocols when protocols are rearranged.
	Compiled [LaneCount]bool
	// CompiledProtocols counts how many times this player has compiled each
	// protocol by name, for the re-compile draw award.
	CompiledProtocols map[string]int
	Lanes             [LaneCount]Lane
	Hand              []PlayedCard
	Deck              []PlayedCard // draw from front
	Discard           []PlayedCard
	// LaneValues caches the sum of effective card values per lane. It is
	// recomputed after every board mutation.
	LaneValues [LaneCount]int
	Stats      PlayerStats
}

// HasCompiledAll reports whether every protocol on this side is compiled.
func (p *PlayerState) HasCompiledAll() bool {
	return p.Compiled[0] && p.Compiled[1] && p.Compiled[2]
}

// handIndex returns the position of a card in the hand, or -1.
func (p *PlayerState) handIndex(id string) int {
	for i := range p.Hand {
		if p.Hand[i].ID == id {
			return i
		}
	}
	return -1
}

// Zone identifies a card container.
type Zone int

const (
	ZoneHand Zone = iota
	ZoneDeck
	ZoneDiscard
	ZoneLane
)

// CardLocation pinpoints a card on the table.
type CardLocation struct {
	Seat rules.Seat
	Zone Zone
	Lane int // -1 outside lanes
}

// GameState is the canonical board snapshot. Every engine operation clones
// the state, transitions the clone and returns it; a state value is never
// mutated after being handed to a caller.
type GameState struct {
	ID      string
	Phase   rules.PhaseTracker
	Players [2]PlayerState
	Actions rules.ActionStack
	Winner  *rules.Seat

	UseControl    bool
	ControlHolder *rules.Seat

	// PendingRevealID carries a revealed hand card between the reveal step
	// and the shift step of the same effect.
	PendingRevealID string

	// TurnInterrupted records that the non-active seat had to resolve an
	// action during this turn; consumed when the turn resumes, where it
	// triggers the control marker.
	TurnInterrupted bool

	// Processed effect-source IDs for the current phase pass or resolution
	// pass, preventing duplicate re-triggering.
	ProcessedStart   map[string]bool
	ProcessedEnd     map[string]bool
	ProcessedUncover map[string]bool

	// Log is the move/effect log; it doubles as the post-transition event
	// list a presentation scheduler consumes.
	Log []rules.Event
}

// Player returns the seat's side.
func (s *GameState) Player(seat rules.Seat) *PlayerState {
	return &s.Players[int(seat)]
}

// Opponent returns the opposing side.
func (s *GameState) Opponent(seat rules.Seat) *PlayerState {
	return &s.Players[int(seat.Other())]
}

// ActiveSeat returns the seat whose turn is in progress.
func (s *GameState) ActiveSeat() rules.Seat {
	return s.Phase.Active
}

// Clone returns a deep copy sharing no mutable storage with the receiver.
func (s *GameState) Clone() *GameState {
	out := &GameState{
		ID:              s.ID,
		Phase:           s.Phase,
		Actions:         s.Actions.Clone(),
		UseControl:      s.UseControl,
		PendingRevealID: s.PendingRevealID,
		TurnInterrupted: s.TurnInterrupted,
	}
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	if s.ControlHolder != nil {
		h := *s.ControlHolder
		out.ControlHolder = &h
	}
	for i := range s.Players {
		out.Players[i] = clonePlayer(&s.Players[i])
	}
	out.ProcessedStart = cloneSet(s.ProcessedStart)
	out.ProcessedEnd = cloneSet(s.ProcessedEnd)
	out.ProcessedUncover = cloneSet(s.ProcessedUncover)
	if len(s.Log) > 0 {
		out.Log = make([]rules.Event, len(s.Log))
		copy(out.Log, s.Log)
	}
	return out
}

func clonePlayer(p *PlayerState) PlayerState {
	out := PlayerState{
		Protocols:  p.Protocols,
		Compiled:   p.Compiled,
		LaneValues: p.LaneValues,
		Stats:      p.Stats,
	}
	out.CompiledProtocols = make(map[string]int, len(p.CompiledProtocols))
	for k, v := range p.CompiledProtocols {
		out.CompiledProtocols[k] = v
	}
	for i := range p.Lanes {
		if len(p.Lanes[i].Cards) > 0 {
			out.Lanes[i].Cards = make([]PlayedCard, len(p.Lanes[i].Cards))
			copy(out.Lanes[i].Cards, p.Lanes[i].Cards)
		}
	}
	out.Hand = append([]PlayedCard(nil), p.Hand...)
	out.Deck = append([]PlayedCard(nil), p.Deck...)
	out.Discard = append([]PlayedCard(nil), p.Discard...)
	return out
}

func cloneSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k := range in {
		out[k] = true
	}
	return out
}

// FindCard locates a card identity anywhere on the table.
func (s *GameState) FindCard(id string) (*PlayedCard, CardLocation, bool) {
	for pi := range s.Players {
		seat := rules.Seat(pi)
		p := &s.Players[pi]
		for li := range p.Lanes {
			for ci := range p.Lanes[li].Cards {
				if p.Lanes[li].Cards[ci].ID == id {
					return &p.Lanes[li].Cards[ci], CardLocation{Seat: seat, Zone: ZoneLane, Lane: li}, true
				}
			}
		}
		for ci := range p.Hand {
			if p.Hand[ci].ID == id {
				return &p.Hand[ci], CardLocation{Seat: seat, Zone: ZoneHand, Lane: -1}, true
			}
		}
		for ci := range p.Deck {
			if p.Deck[ci].ID == id {
				return &p.Deck[ci], CardLocation{Seat: seat, Zone: ZoneDeck, Lane: -1}, true
			}
		}
		for ci := range p.Discard {
			if p.Discard[ci].ID == id {
				return &p.Discard[ci], CardLocation{Seat: seat, Zone: ZoneDiscard, Lane: -1}, true
			}
		}
	}
	return nil, CardLocation{Lane: -1}, false
}

// laneFaceDownValue returns the value a face-down card contributes in the
// given lane: 2 by default, raised lane-wide while a face-up card with the
// face-down-value passive sits in that lane on either side.
func (s *GameState) laneFaceDownValue(lane int) int {
	for pi := range s.Players {
		for _, c := range s.Players[pi].Lanes[lane].Cards {
			if !c.FaceUp {
				continue
			}
			for _, p := range c.Card.Passives {
				if p.Kind == catalog.PassiveFaceDownValue {
					return p.Amount
				}
			}
		}
	}
	return faceDownValue
}

// EffectiveValue returns the value a lane card contributes: its printed value
// when face-up, the lane's face-down value otherwise.
func (s *GameState) EffectiveValue(c PlayedCard, lane int) int {
	if c.FaceUp {
		return c.Card.Value
	}
	return s.laneFaceDownValue(lane)
}

// RecomputeLaneValues refreshes both players' lane value caches. Called after
// every board mutation.
func (s *GameState) RecomputeLaneValues() {
	for pi := range s.Players {
		p := &s.Players[pi]
		for li := range p.Lanes {
			sum := 0
			for _, c := range p.Lanes[li].Cards {
				sum += s.EffectiveValue(c, li)
			}
			p.LaneValues[li] = sum
		}
	}
}

// logEvent appends to the move/effect log.
func (s *GameState) logEvent(ev rules.Event) {
	s.Log = append(s.Log, ev)
}

// draw moves one card from the seat's deck to its hand, reshuffling the
// discard pile into a fresh deck when the deck is empty. A draw with both
// empty is a no-op, not an error.
func (s *GameState) draw(seat rules.Seat, rng *rand.Rand) bool {
	p := s.Player(seat)
	if len(p.Deck) == 0 && len(p.Discard) > 0 {
		p.Deck = p.Discard
		p.Discard = nil
		rng.Shuffle(len(p.Deck), func(i, j int) {
			p.Deck[i], p.Deck[j] = p.Deck[j], p.Deck[i]
		})
		s.logEvent(rules.NewEvent(rules.EventDeckReshuffled, seat, "", ""))
	}
	if len(p.Deck) == 0 {
		return false
	}
	card := p.Deck[0]
	p.Deck = p.Deck[1:]
	card.FaceUp = false
	card.Revealed = false
	p.Hand = append(p.Hand, card)
	p.Stats.CardsDrawn++
	s.logEvent(rules.NewEvent(rules.EventCardDrawn, seat, card.ID, ""))
	return true
}

// drawFromOpponent moves the top card of the opposing deck into the seat's
// hand. Used by the re-compile award.
func (s *GameState) drawFromOpponent(seat rules.Seat) bool {
	opp := s.Opponent(seat)
	if len(opp.Deck) == 0 {
		return false
	}
	card := opp.Deck[0]
	opp.Deck = opp.Deck[1:]
	card.FaceUp = false
	card.Revealed = false
	s.Player(seat).Hand = append(s.Player(seat).Hand, card)
	s.Player(seat).Stats.CardsDrawn++
	s.logEvent(rules.NewEvent(rules.EventCardDrawn, seat, card.ID, ""))
	return true
}

// CardIDs returns every card identity on the table, in container order.
// Tests use it to check card conservation.
func (s *GameState) CardIDs() []string {
	var ids []string
	for pi := range s.Players {
		p := &s.Players[pi]
		for li := range p.Lanes {
			for _, c := range p.Lanes[li].Cards {
				ids = append(ids, c.ID)
			}
		}
		for _, c := range p.Hand {
			ids = append(ids, c.ID)
		}
		for _, c := range p.Deck {
			ids = append(ids, c.ID)
		}
		for _, c := range p.Discard {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// VerifyIntegrity checks the internal invariants: unique card identities and
// lane value caches matching their derived sums. Violations are programming
// faults, surfaced as errors so tests can fail loudly.
func (s *GameState) VerifyIntegrity() error {
	seen := make(map[string]bool)
	for _, id := range s.CardIDs() {
		if seen[id] {
			return fmt.Errorf("card %s present in two containers", id)
		}
		seen[id] = true
	}
	for pi := range s.Players {
		p := &s.Players[pi]
		for li := range p.Lanes {
			sum := 0
			for _, c := range p.Lanes[li].Cards {
				sum += s.EffectiveValue(c, li)
			}
			if sum != p.LaneValues[li] {
				return fmt.Errorf("lane value cache drift: seat %d lane %d cached %d derived %d",
					pi, li, p.LaneValues[li], sum)
			}
		}
	}
	return nil
}
