// Package repository persists match results. The match server depends only
// on the StatisticsSink interface; the Postgres implementation is optional
// and the server falls back to a no-op sink when the database is disabled.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/compiledigital/compile-server-go/internal/config"
	"github.com/compiledigital/compile-server-go/internal/game"
	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// MatchResult is the record written when a match finishes.
type MatchResult struct {
	MatchID    string
	Winner     string
	Turns      int
	UseControl bool
	StartedAt  time.Time
	FinishedAt time.Time

	South PlayerResult
	North PlayerResult
}

// PlayerResult is one seat's slice of a finished match.
type PlayerResult struct {
	Name      string
	Protocols [game.LaneCount]string
	Stats     game.PlayerStats
}

// NewMatchResult assembles the record for a finished game. The state must
// carry a winner.
func NewMatchResult(matchID string, s *game.GameState, names [2]string, startedAt time.Time) MatchResult {
	winner := ""
	if s.Winner != nil {
		winner = s.Winner.String()
	}
	side := func(seat rules.Seat) PlayerResult {
		p := s.Player(seat)
		return PlayerResult{
			Name:      names[int(seat)],
			Protocols: p.Protocols,
			Stats:     p.Stats,
		}
	}
	return MatchResult{
		MatchID:    matchID,
		Winner:     winner,
		Turns:      s.Phase.TurnNumber,
		UseControl: s.UseControl,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		South:      side(rules.SeatSouth),
		North:      side(rules.SeatNorth),
	}
}

// StatisticsSink records finished matches.
type StatisticsSink interface {
	RecordMatch(ctx context.Context, result MatchResult) error
	Close()
}

// NoopSink discards every record. Used when no database is configured.
type NoopSink struct{}

func (NoopSink) RecordMatch(context.Context, MatchResult) error { return nil }
func (NoopSink) Close()                                         {}

// DB wraps the pgx connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB connects to Postgres and verifies the connection.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Stats exposes pool statistics for startup logging.
func (db *DB) Stats() *pgxpool.Stat {
	return db.pool.Stat()
}

// EnsureSchema creates the statistics tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS match_results (
			match_id      TEXT PRIMARY KEY,
			winner        TEXT NOT NULL,
			turns         INT NOT NULL,
			use_control   BOOLEAN NOT NULL,
			started_at    TIMESTAMPTZ NOT NULL,
			finished_at   TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS match_players (
			match_id        TEXT NOT NULL REFERENCES match_results(match_id),
			seat            TEXT NOT NULL,
			name            TEXT NOT NULL,
			protocols       TEXT[] NOT NULL,
			cards_played    INT NOT NULL,
			cards_drawn     INT NOT NULL,
			cards_discarded INT NOT NULL,
			cards_deleted   INT NOT NULL,
			lanes_compiled  INT NOT NULL,
			PRIMARY KEY (match_id, seat)
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// StatsRepository writes match results to Postgres.
type StatsRepository struct {
	db *DB
}

// NewStatsRepository creates the Postgres-backed sink.
func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// RecordMatch stores the result and both player rows in one transaction.
func (r *StatsRepository) RecordMatch(ctx context.Context, result MatchResult) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO match_results (match_id, winner, turns, use_control, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		result.MatchID, result.Winner, result.Turns, result.UseControl,
		result.StartedAt, result.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	for seat, pr := range map[string]PlayerResult{"south": result.South, "north": result.North} {
		_, err = tx.Exec(ctx, `
			INSERT INTO match_players (match_id, seat, name, protocols,
				cards_played, cards_drawn, cards_discarded, cards_deleted, lanes_compiled)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			result.MatchID, seat, pr.Name, pr.Protocols[:],
			pr.Stats.CardsPlayed, pr.Stats.CardsDrawn, pr.Stats.CardsDiscarded,
			pr.Stats.CardsDeleted, pr.Stats.LanesCompiled)
		if err != nil {
			return fmt.Errorf("insert player %s: %w", seat, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.db.logger.Debug("match recorded",
		zap.String("match_id", result.MatchID),
		zap.String("winner", result.Winner))
	return nil
}

// Close satisfies StatisticsSink; the pool is owned by DB and closed there.
func (r *StatsRepository) Close() {}
