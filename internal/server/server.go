// Package server exposes the match engine over WebSocket. Each connection
// binds to one seat of one match; every frame is validated and applied under
// the match lock, so the engine always sees a single caller.
package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/compiledigital/compile-server-go/internal/ai"
	"github.com/compiledigital/compile-server-go/internal/catalog"
	"github.com/compiledigital/compile-server-go/internal/config"
	"github.com/compiledigital/compile-server-go/internal/game"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
	"github.com/compiledigital/compile-server-go/internal/repository"
)

// Server routes WebSocket clients to matches.
type Server struct {
	logger  *zap.Logger
	cfg     config.GameConfig
	catalog catalog.Provider
	sink    repository.StatisticsSink

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	matches map[string]*Match
	waiting map[string]*pendingMatch
}

// pendingMatch is a created match waiting for its second player.
type pendingMatch struct {
	match          *Match
	southProtocols [game.LaneCount]string
	useControl     bool
}

// New creates the match server.
func New(cfg config.GameConfig, cat catalog.Provider, sink repository.StatisticsSink, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:  logger,
		cfg:     cfg,
		catalog: cat,
		sink:    sink,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		matches: make(map[string]*Match),
		waiting: make(map[string]*pendingMatch),
	}
}

// Handler returns the HTTP routes: the WebSocket endpoint and a health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		server: s,
		conn:   conn,
		send:   make(chan []byte, 64),
	}
	go c.writePump()
	go c.readPump()
}

// client is one WebSocket connection.
type client struct {
	server *Server
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	match  *Match
	closed bool
}

func (c *client) enqueue(payload []byte) {
	if payload == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		// Slow consumer; drop the frame rather than block the match.
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) sendError(matchID, reason string) {
	c.enqueue(envelope(MsgError, matchID, ErrorResponse{Reason: reason}))
}

func (c *client) currentMatch() *Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.match
}

func (c *client) setMatch(m *Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.match = m
}

func (c *client) readPump() {
	defer func() {
		c.conn.Close()
		c.close()
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("", "malformed frame")
			continue
		}
		c.server.handleMessage(c, msg)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (s *Server) handleMessage(c *client, msg WSMessage) {
	switch msg.Type {
	case MsgCreateMatch:
		s.handleCreate(c, msg)
	case MsgJoinMatch:
		s.handleJoin(c, msg)
	default:
		s.handleIntent(c, msg)
	}
}

func (s *Server) handleCreate(c *client, msg WSMessage) {
	var req CreateMatchRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.sendError("", "malformed create request")
		return
	}

	engine := game.NewEngine(s.catalog, s.logger.Named("engine"))
	match := NewMatch(engine, s.sink, s.logger.Named("match"))
	match.BindHuman(rules.SeatSouth, c, req.Name)
	c.setMatch(match)

	s.mu.Lock()
	s.matches[match.ID] = match
	s.mu.Unlock()

	useControl := s.cfg.UseControl
	if req.UseControl != nil {
		useControl = *req.UseControl
	}

	if !req.VsAI {
		s.mu.Lock()
		s.waiting[match.ID] = &pendingMatch{
			match:          match,
			southProtocols: req.Protocols,
			useControl:     useControl,
		}
		s.mu.Unlock()
		c.enqueue(envelope(MsgMatchCreated, match.ID, MatchCreatedResponse{
			MatchID: match.ID,
			Seat:    rules.SeatSouth.String(),
		}))
		return
	}

	difficulty := ai.Difficulty(req.AIDifficulty)
	if difficulty == "" {
		difficulty = ai.Difficulty(s.cfg.AIDifficulty)
	}
	match.BindAI(rules.SeatNorth, difficulty)

	aiProtocols := req.AIProtocols
	if aiProtocols == [game.LaneCount]string{} {
		var err error
		aiProtocols, err = s.pickProtocols(req.Protocols)
		if err != nil {
			c.sendError(match.ID, err.Error())
			return
		}
	}

	c.enqueue(envelope(MsgMatchCreated, match.ID, MatchCreatedResponse{
		MatchID: match.ID,
		Seat:    rules.SeatSouth.String(),
	}))
	if err := match.Start(req.Protocols, aiProtocols, useControl, coinFlip()); err != nil {
		c.sendError(match.ID, err.Error())
		return
	}
	s.logger.Info("match started",
		zap.String("match_id", match.ID),
		zap.String("ai", string(difficulty)))
}

func (s *Server) handleJoin(c *client, msg WSMessage) {
	var req JoinMatchRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.sendError(msg.MatchID, "malformed join request")
		return
	}

	s.mu.Lock()
	pending, ok := s.waiting[msg.MatchID]
	if ok {
		delete(s.waiting, msg.MatchID)
	}
	s.mu.Unlock()
	if !ok {
		c.sendError(msg.MatchID, "no such open match")
		return
	}

	match := pending.match
	match.BindHuman(rules.SeatNorth, c, req.Name)
	c.setMatch(match)
	c.enqueue(envelope(MsgMatchJoined, match.ID, MatchCreatedResponse{
		MatchID: match.ID,
		Seat:    rules.SeatNorth.String(),
	}))

	if err := match.Start(pending.southProtocols, req.Protocols, pending.useControl, coinFlip()); err != nil {
		c.sendError(match.ID, err.Error())
		return
	}
	s.logger.Info("match started", zap.String("match_id", match.ID))
}

func (s *Server) handleIntent(c *client, msg WSMessage) {
	match := c.currentMatch()
	if match == nil {
		c.sendError(msg.MatchID, "not in a match")
		return
	}
	seat, ok := match.HumanSeat(c)
	if !ok {
		c.sendError(match.ID, "not seated")
		return
	}

	apply, err := buildIntent(seat, msg)
	if err != nil {
		c.sendError(match.ID, err.Error())
		return
	}
	if err := match.Intent(seat, apply); err != nil {
		c.sendError(match.ID, err.Error())
	}
}

// buildIntent translates one frame into an engine transition.
func buildIntent(seat rules.Seat, msg WSMessage) (func(*game.Engine, *game.GameState) (*game.GameState, error), error) {
	switch msg.Type {
	case MsgPlayCard:
		var req PlayCardRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, fmt.Errorf("malformed play request")
		}
		return func(e *game.Engine, st *game.GameState) (*game.GameState, error) {
			if st.ActiveSeat() != seat {
				return nil, rules.Illegal("not your turn")
			}
			next, _, err := e.PlayCard(st, req.CardID, req.Lane, req.FaceUp)
			return next, err
		}, nil
	case MsgFillHand:
		return func(e *game.Engine, st *game.GameState) (*game.GameState, error) {
			if st.ActiveSeat() != seat {
				return nil, rules.Illegal("not your turn")
			}
			return e.FillHand(st)
		}, nil
	case MsgResolveCard:
		var req ResolveCardRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, fmt.Errorf("malformed resolve request")
		}
		return func(e *game.Engine, st *game.GameState) (*game.GameState, error) {
			next, _, err := e.ResolveActionWithCard(st, seat, req.CardID)
			return next, err
		}, nil
	case MsgResolveLane:
		var req ResolveLaneRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, fmt.Errorf("malformed resolve request")
		}
		return func(e *game.Engine, st *game.GameState) (*game.GameState, error) {
			next, _, err := e.ResolveActionWithLane(st, seat, req.Lane)
			return next, err
		}, nil
	case MsgResolveOrder:
		var req ResolveOrderRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, fmt.Errorf("malformed resolve request")
		}
		return func(e *game.Engine, st *game.GameState) (*game.GameState, error) {
			next, _, err := e.ResolveActionWithProtocolOrder(st, seat, req.Order)
			return next, err
		}, nil
	case MsgResolveSwap:
		var req ResolveSwapRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, fmt.Errorf("malformed resolve request")
		}
		return func(e *game.Engine, st *game.GameState) (*game.GameState, error) {
			next, _, err := e.ResolveActionWithLanePair(st, seat, req.LaneA, req.LaneB)
			return next, err
		}, nil
	case MsgAccept:
		return func(e *game.Engine, st *game.GameState) (*game.GameState, error) {
			next, _, err := e.AcceptAction(st, seat)
			return next, err
		}, nil
	case MsgSkip:
		return func(e *game.Engine, st *game.GameState) (*game.GameState, error) {
			return e.SkipAction(st, seat)
		}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// pickProtocols assembles an AI protocol spread from whatever the player
// did not take.
func (s *Server) pickProtocols(taken [game.LaneCount]string) ([game.LaneCount]string, error) {
	used := make(map[string]bool, game.LaneCount)
	for _, name := range taken {
		used[name] = true
	}
	var out [game.LaneCount]string
	n := 0
	for _, name := range s.catalog.Protocols() {
		if used[name] {
			continue
		}
		out[n] = name
		n++
		if n == game.LaneCount {
			return out, nil
		}
	}
	return out, fmt.Errorf("catalog too small for two players")
}

func coinFlip() rules.Seat {
	if rand.Intn(2) == 0 {
		return rules.SeatSouth
	}
	return rules.SeatNorth
}
