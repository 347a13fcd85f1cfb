package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"clickmart/internal/game"
)

type memoryEntry struct {
	state     game.GameState
	updatedAt time.Time
}

// Memory is the in-process store used when no database is configured, and by
// tests. Single coarse lock; session counts are small.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

// NewMemoryWithNow pins the store clock, for tests exercising staleness.
func NewMemoryWithNow(now func() time.Time) *Memory {
	m := NewMemory()
	m.now = now
	return m
}

func (m *Memory) LoadOrCreate(_ context.Context, sessionID string, initial game.GameState) (game.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		e = &memoryEntry{state: initial.Clone(), updatedAt: m.now()}
		m.sessions[sessionID] = e
	}
	return e.state.Clone(), nil
}

func (m *Memory) Update(_ context.Context, sessionID string, initial game.GameState, fn func(game.GameState) (game.GameState, error)) (game.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		e = &memoryEntry{state: initial.Clone()}
		m.sessions[sessionID] = e
	}
	next, err := fn(e.state.Clone())
	if err != nil {
		return game.GameState{}, err
	}
	e.state = next.Clone()
	e.updatedAt = m.now()
	return next, nil
}

func (m *Memory) ListStale(_ context.Context, olderThan time.Time, limit int) ([]StaleSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StaleSession
	for id, e := range m.sessions {
		if e.updatedAt.Before(olderThan) {
			out = append(out, StaleSession{ID: id, UpdatedAt: e.updatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() {}

var _ Store = (*Memory)(nil)
