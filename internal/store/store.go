package store

import (
	"context"
	"errors"
	"time"

	"clickmart/internal/game"
)

var ErrSessionNotFound = errors.New("session not found")

// StaleSession identifies a session the background worker should tick.
type StaleSession struct {
	ID        string
	UpdatedAt time.Time
}

// Store persists one authoritative GameState per session. Update runs its
// callback under the session lock so concurrent writers for the same session
// serialize; the callback receives the current state and returns the state to
// persist. Sessions are created lazily with the provided initial state.
type Store interface {
	LoadOrCreate(ctx context.Context, sessionID string, initial game.GameState) (game.GameState, error)
	Update(ctx context.Context, sessionID string, initial game.GameState, fn func(game.GameState) (game.GameState, error)) (game.GameState, error)
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]StaleSession, error)
	Close()
}
