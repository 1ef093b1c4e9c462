package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/compiledigital/compile-server-go/internal/ai"
	"github.com/compiledigital/compile-server-go/internal/game"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
	"github.com/compiledigital/compile-server-go/internal/repository"
)

// aiDriveLimit bounds consecutive AI decisions per advance, so a stuck
// strategy cannot wedge the match goroutine.
const aiDriveLimit = 256

// Match is one running game: the engine, the authoritative state and the
// seat bindings. All access goes through mu; the engine itself is
// single-caller by contract.
type Match struct {
	ID string

	engine *game.Engine
	logger *zap.Logger
	sink   repository.StatisticsSink

	mu        sync.Mutex
	state     *game.GameState
	names     [2]string
	clients   [2]*client
	aiSeats   map[rules.Seat]ai.Difficulty
	started   bool
	startedAt time.Time
	recorded  bool
	// streamed marks how much of the state log has been sent out already.
	streamed int
}

// NewMatch creates a match shell; the game is dealt when both seats are
// bound (Start).
func NewMatch(engine *game.Engine, sink repository.StatisticsSink, logger *zap.Logger) *Match {
	return &Match{
		ID:      uuid.NewString(),
		engine:  engine,
		logger:  logger,
		sink:    sink,
		aiSeats: make(map[rules.Seat]ai.Difficulty),
	}
}

// BindHuman attaches a connected client to a seat.
func (m *Match) BindHuman(seat rules.Seat, c *client, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[int(seat)] = c
	m.names[int(seat)] = name
}

// BindAI marks a seat as server-driven.
func (m *Match) BindAI(seat rules.Seat, difficulty ai.Difficulty) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aiSeats[seat] = difficulty
	m.names[int(seat)] = "AI (" + string(difficulty) + ")"
}

// Start deals the initial state and drives any AI opening.
func (m *Match) Start(south, north [game.LaneCount]string, useControl bool, starting rules.Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("match %s already started", m.ID)
	}

	s, err := m.engine.CreateInitialState(south, north, useControl, starting)
	if err != nil {
		return err
	}
	m.state = s
	m.started = true
	m.startedAt = time.Now()

	m.driveAI()
	m.afterTransition()
	return nil
}

// Started reports whether the game has been dealt.
func (m *Match) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// HumanSeat returns the seat a client is bound to.
func (m *Match) HumanSeat(c *client) (rules.Seat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, bound := range m.clients {
		if bound == c {
			return rules.Seat(i), true
		}
	}
	return 0, false
}

// Intent applies one human frame. Illegal intents return an error and leave
// the state untouched; legal ones advance the game, let the AI respond and
// stream fresh views.
func (m *Match) Intent(seat rules.Seat, apply func(*game.Engine, *game.GameState) (*game.GameState, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return fmt.Errorf("match not started")
	}

	next, err := apply(m.engine, m.state)
	if err != nil {
		return err
	}
	m.state = next

	m.driveAI()
	m.afterTransition()
	return nil
}

// driveAI lets AI seats act until a human must decide or the game ends.
// Callers hold mu.
func (m *Match) driveAI() {
	for guard := 0; guard < aiDriveLimit; guard++ {
		s := m.state
		if s.Winner != nil {
			return
		}

		if act := s.Actions.Active; act != nil {
			difficulty, isAI := m.aiSeats[act.Actor()]
			if !isAI {
				return
			}
			move, err := ai.ResolvePendingAction(s, difficulty)
			if err != nil {
				m.logger.Error("ai resolution failed", zap.Error(err))
				return
			}
			if err := m.applyAIMove(act.Actor(), move); err != nil {
				// A skippable action the AI answered badly is declined
				// rather than wedging the match.
				if act.IsOptional() {
					if next, skipErr := m.engine.SkipAction(s, act.Actor()); skipErr == nil {
						m.state = next
						continue
					}
				}
				m.logger.Error("ai move rejected",
					zap.String("match_id", m.ID),
					zap.String("action", string(act.Type())),
					zap.Error(err))
				return
			}
			continue
		}

		if s.Phase.Current() == rules.PhaseAction && !s.Phase.ActionTaken {
			seat := s.ActiveSeat()
			difficulty, isAI := m.aiSeats[seat]
			if !isAI {
				return
			}
			move, err := ai.RunTurn(s, difficulty)
			if err != nil {
				m.logger.Error("ai turn failed", zap.Error(err))
				return
			}
			if err := m.applyAIMove(seat, move); err != nil {
				m.logger.Error("ai move rejected",
					zap.String("match_id", m.ID),
					zap.Error(err))
				return
			}
			continue
		}
		return
	}
	m.logger.Warn("ai drive limit reached", zap.String("match_id", m.ID))
}

func (m *Match) applyAIMove(seat rules.Seat, move ai.Move) error {
	var next *game.GameState
	var err error
	switch move.Kind {
	case ai.MovePlayCard:
		next, _, err = m.engine.PlayCard(m.state, move.CardID, move.Lane, move.FaceUp)
	case ai.MoveFillHand:
		next, err = m.engine.FillHand(m.state)
	case ai.MoveResolveCard:
		next, _, err = m.engine.ResolveActionWithCard(m.state, seat, move.CardID)
	case ai.MoveResolveLane:
		next, _, err = m.engine.ResolveActionWithLane(m.state, seat, move.Lane)
	case ai.MoveResolveOrder:
		next, _, err = m.engine.ResolveActionWithProtocolOrder(m.state, seat, move.Order)
	case ai.MoveResolveLanePair:
		next, _, err = m.engine.ResolveActionWithLanePair(m.state, seat, move.Lane, move.LaneB)
	case ai.MoveAccept:
		next, _, err = m.engine.AcceptAction(m.state, seat)
	case ai.MoveSkip:
		next, err = m.engine.SkipAction(m.state, seat)
	default:
		return fmt.Errorf("unknown ai move kind %q", move.Kind)
	}
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

// afterTransition streams fresh events and views and records a finished
// match. Callers hold mu.
func (m *Match) afterTransition() {
	if events := m.state.Log[m.streamed:]; len(events) > 0 {
		payload := envelope(MsgEvents, m.ID, eventViews(events))
		for _, c := range m.clients {
			if c != nil {
				c.enqueue(payload)
			}
		}
		m.streamed = len(m.state.Log)
	}

	for i, c := range m.clients {
		if c == nil {
			continue
		}
		view := BuildView(m.ID, m.state, rules.Seat(i), m.names)
		c.enqueue(envelope(MsgStateView, m.ID, view))
	}

	if m.state.Winner != nil && !m.recorded {
		m.recorded = true
		result := repository.NewMatchResult(m.ID, m.state, m.names, m.startedAt)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.sink.RecordMatch(ctx, result); err != nil {
			m.logger.Error("failed to record match", zap.String("match_id", m.ID), zap.Error(err))
		}
		m.logger.Info("match finished",
			zap.String("match_id", m.ID),
			zap.String("winner", result.Winner),
			zap.Int("turns", result.Turns))
	}
}

// Advance lets AI seats continue playing. Used when the drive limit cut a
// long AI exchange short, and by AI-versus-AI matches.
func (m *Match) Advance() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.driveAI()
	m.afterTransition()
}

// View renders the redacted snapshot for one seat.
func (m *Match) View(seat rules.Seat) StateView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return BuildView(m.ID, m.state, seat, m.names)
}

// State returns the live state for inspection in tests.
func (m *Match) State() *game.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
