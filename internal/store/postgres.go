package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clickmart/internal/game"
)

const sessionsDDL = `
CREATE TABLE IF NOT EXISTS game_sessions (
    session_id TEXT PRIMARY KEY,
    state      JSONB NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS game_sessions_updated_at_idx ON game_sessions (updated_at);
`

// Postgres stores session state as one JSONB row per session. Row locks give
// per-session serialization across server instances.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, sessionsDDL); err != nil {
		return nil, fmt.Errorf("migrate game_sessions: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) LoadOrCreate(ctx context.Context, sessionID string, initial game.GameState) (game.GameState, error) {
	raw, err := json.Marshal(initial)
	if err != nil {
		return game.GameState{}, err
	}
	var stored []byte
	err = p.pool.QueryRow(ctx, `
		INSERT INTO game_sessions (session_id, state)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
		RETURNING state
	`, sessionID, raw).Scan(&stored)
	if err != nil {
		return game.GameState{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	var st game.GameState
	if err := json.Unmarshal(stored, &st); err != nil {
		return game.GameState{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return st, nil
}

func (p *Postgres) Update(ctx context.Context, sessionID string, initial game.GameState, fn func(game.GameState) (game.GameState, error)) (game.GameState, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return game.GameState{}, err
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, `
		SELECT state
		FROM game_sessions
		WHERE session_id = $1
		FOR UPDATE
	`, sessionID).Scan(&raw)
	st := initial
	switch err {
	case nil:
		if err := json.Unmarshal(raw, &st); err != nil {
			return game.GameState{}, fmt.Errorf("decode session %s: %w", sessionID, err)
		}
	case pgx.ErrNoRows:
		seed, err := json.Marshal(initial)
		if err != nil {
			return game.GameState{}, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO game_sessions (session_id, state) VALUES ($1, $2)
		`, sessionID, seed); err != nil {
			return game.GameState{}, fmt.Errorf("create session %s: %w", sessionID, err)
		}
	default:
		return game.GameState{}, fmt.Errorf("lock session %s: %w", sessionID, err)
	}

	next, err := fn(st)
	if err != nil {
		return game.GameState{}, err
	}
	out, err := json.Marshal(next)
	if err != nil {
		return game.GameState{}, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game_sessions
		SET state = $1, version = version + 1, updated_at = now()
		WHERE session_id = $2
	`, out, sessionID); err != nil {
		return game.GameState{}, fmt.Errorf("persist session %s: %w", sessionID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return game.GameState{}, err
	}
	return next, nil
}

func (p *Postgres) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]StaleSession, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT session_id, updated_at
		FROM game_sessions
		WHERE updated_at < $1
		ORDER BY updated_at
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaleSession
	for rows.Next() {
		var s StaleSession
		if err := rows.Scan(&s.ID, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() {
	p.pool.Close()
}

var _ Store = (*Postgres)(nil)
