package server

import (
	"github.com/compiledigital/compile-server-go/internal/game"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// CardView is one card as a given seat is allowed to see it. Face-down lane
// cards and the opponent's unrevealed hand hide the printed card; the stable
// ID stays visible so animations can track identities.
type CardView struct {
	ID       string `json:"id"`
	Protocol string `json:"protocol,omitempty"`
	Value    int    `json:"value"`
	Key      string `json:"key,omitempty"`
	FaceUp   bool   `json:"face_up"`
	Revealed bool   `json:"revealed,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// SideView is one player's side of the board as seen by the viewer.
type SideView struct {
	Name       string                       `json:"name"`
	Protocols  [game.LaneCount]string       `json:"protocols"`
	Compiled   [game.LaneCount]bool         `json:"compiled"`
	LaneValues [game.LaneCount]int          `json:"lane_values"`
	Lanes      [game.LaneCount][]CardView   `json:"lanes"`
	Hand       []CardView                   `json:"hand,omitempty"`
	HandCount  int                          `json:"hand_count"`
	DeckCount  int                          `json:"deck_count"`
	Discard    []CardView                   `json:"discard"`
}

// ActionView describes the pending action to its actor, including the legal
// choices so clients can highlight them without re-deriving rules.
type ActionView struct {
	Type     string   `json:"type"`
	Actor    string   `json:"actor"`
	SourceID string   `json:"source_id,omitempty"`
	Optional bool     `json:"optional"`
	Targets  []string `json:"targets,omitempty"`
	Lanes    []int    `json:"lanes,omitempty"`
}

// StateView is the redacted snapshot streamed to one seat.
type StateView struct {
	MatchID       string      `json:"match_id"`
	Seat          string      `json:"seat"`
	Phase         string      `json:"phase"`
	Turn          int         `json:"turn"`
	ActiveSeat    string      `json:"active_seat"`
	Winner        string      `json:"winner,omitempty"`
	UseControl    bool        `json:"use_control"`
	ControlHolder string      `json:"control_holder,omitempty"`
	You           SideView    `json:"you"`
	Opponent      SideView    `json:"opponent"`
	Pending       *ActionView `json:"pending,omitempty"`
	// CompilableLanes lists the viewer's lanes currently at compile
	// strength, for UI affordances only; the engine re-checks on intent.
	CompilableLanes []int `json:"compilable_lanes,omitempty"`
}

func cardView(pc game.PlayedCard, visible bool) CardView {
	v := CardView{
		ID:       pc.ID,
		FaceUp:   pc.FaceUp,
		Revealed: pc.Revealed,
	}
	if visible {
		v.Protocol = pc.Card.Protocol
		v.Value = pc.Card.Value
		v.Key = pc.Card.Key()
	} else {
		v.Hidden = true
	}
	return v
}

func sideView(s *game.GameState, owner rules.Seat, viewer rules.Seat, name string) SideView {
	p := s.Player(owner)
	mine := owner == viewer

	out := SideView{
		Name:       name,
		Protocols:  p.Protocols,
		Compiled:   p.Compiled,
		LaneValues: p.LaneValues,
		HandCount:  len(p.Hand),
		DeckCount:  len(p.Deck),
	}

	for lane := range p.Lanes {
		for _, pc := range p.Lanes[lane].Cards {
			// Face-down lane cards stay hidden from the opponent.
			out.Lanes[lane] = append(out.Lanes[lane], cardView(pc, mine || pc.FaceUp))
		}
	}
	for _, pc := range p.Hand {
		if mine {
			out.Hand = append(out.Hand, cardView(pc, true))
		} else if pc.Revealed {
			out.Hand = append(out.Hand, cardView(pc, true))
		}
	}
	// Discard piles are public knowledge.
	for _, pc := range p.Discard {
		out.Discard = append(out.Discard, cardView(pc, true))
	}
	return out
}

// BuildView renders the state for one seat.
func BuildView(matchID string, s *game.GameState, viewer rules.Seat, names [2]string) StateView {
	view := StateView{
		MatchID:    matchID,
		Seat:       viewer.String(),
		Phase:      s.Phase.Current().String(),
		Turn:       s.Phase.TurnNumber,
		ActiveSeat: s.ActiveSeat().String(),
		UseControl: s.UseControl,
		You:        sideView(s, viewer, viewer, names[int(viewer)]),
		Opponent:   sideView(s, viewer.Other(), viewer, names[int(viewer.Other())]),
	}
	if s.Winner != nil {
		view.Winner = s.Winner.String()
	}
	if s.ControlHolder != nil {
		view.ControlHolder = s.ControlHolder.String()
	}
	if act := s.Actions.Active; act != nil {
		av := &ActionView{
			Type:     string(act.Type()),
			Actor:    act.Actor().String(),
			SourceID: act.Source(),
			Optional: act.IsOptional(),
		}
		// Legal choices are only the actor's business.
		if act.Actor() == viewer {
			av.Targets = game.PendingTargets(s)
			av.Lanes = game.PendingLanes(s)
		}
		view.Pending = av
	}
	if s.Winner == nil {
		view.CompilableLanes = s.CompilableLanes(viewer)
	}
	return view
}

// EventView is the JSON shape of one engine event.
type EventView struct {
	Type   string `json:"type"`
	Seat   string `json:"seat"`
	CardID string `json:"card_id,omitempty"`
	Source string `json:"source_id,omitempty"`
	Lane   int    `json:"lane"`
	Amount int    `json:"amount,omitempty"`
	Data   string `json:"data,omitempty"`
}

func eventViews(events []rules.Event) []EventView {
	out := make([]EventView, 0, len(events))
	for _, ev := range events {
		out = append(out, EventView{
			Type:   string(ev.Type),
			Seat:   ev.Seat.String(),
			CardID: ev.CardID,
			Source: ev.SourceID,
			Lane:   ev.Lane,
			Amount: ev.Amount,
			Data:   ev.Data,
		})
	}
	return out
}
