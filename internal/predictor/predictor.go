// Package predictor is the client-side mirror of the game engine. It applies
// actions optimistically for instant feedback, coalesces them into batches,
// and reconciles against the server's authoritative state. The server always
// wins; local prediction only papers over network latency.
package predictor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clickmart/internal/game"
)

// SyncResult is the server's answer to a flushed batch.
type SyncResult struct {
	State    game.GameState
	Rejected []game.Rejection
}

// SyncFunc ships an ordered batch to the server. A non-nil error means the
// exchange failed in transport; the server did not apply the batch.
type SyncFunc func(ctx context.Context, batch []game.BatchAction) (SyncResult, error)

type pendingAction struct {
	id       string
	action   game.Action
	snapshot game.GameState // state before this action applied locally
}

// Predictor holds the local optimistic state and the pending-sync queue.
// At most one sync exchange is in flight at a time; actions arriving while
// one is out queue behind it.
type Predictor struct {
	engine   *game.Engine
	syncFn   SyncFunc
	debounce time.Duration

	mu       sync.Mutex
	state    game.GameState
	pending  []pendingAction
	inflight bool
	timer    *time.Timer
}

// New builds a predictor over the given engine mirror. A debounce of zero
// disables the automatic flush timer; the caller drives Flush itself.
func New(engine *game.Engine, syncFn SyncFunc, debounce time.Duration) *Predictor {
	return &Predictor{
		engine:   engine,
		syncFn:   syncFn,
		debounce: debounce,
		state:    engine.Initialize(),
	}
}

// Seed replaces the local state with a server-fetched baseline. Call once
// after the initial state fetch, before any optimistic action.
func (p *Predictor) Seed(st game.GameState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = st.Clone()
	p.pending = nil
}

// State returns the current optimistic state.
func (p *Predictor) State() game.GameState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// PendingCount reports how many actions await acknowledgement.
func (p *Predictor) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Do applies an action optimistically and queues it for sync. A local
// rejection surfaces immediately and queues nothing; the server never sees
// actions the mirror already knows are invalid.
func (p *Predictor) Do(action game.Action) (game.GameState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := p.engine.Apply(p.state, action)
	if err != nil {
		return p.state.Clone(), err
	}
	p.pending = append(p.pending, pendingAction{
		id:       uuid.NewString(),
		action:   action,
		snapshot: p.state.Clone(),
	})
	p.state = next
	p.scheduleLocked()
	return next.Clone(), nil
}

// Tick advances passive production on the local mirror only. Authoritative
// tick submission is the transport's business; its response comes back via
// Reconcile.
func (p *Predictor) Tick(elapsedMs int64) game.GameState {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = p.engine.Tick(p.state, elapsedMs)
	return p.state.Clone()
}

// Reconcile accepts an authoritative state push and rebases any still-pending
// actions on top of it. Pending actions the new state can no longer afford
// are dropped.
func (p *Predictor) Reconcile(st game.GameState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebaseLocked(st, p.pending)
}

// Flush sends the whole pending queue in one exchange. It returns nil without
// doing anything when the queue is empty or another exchange is in flight.
// On transport failure the local state rolls back to the snapshot before the
// earliest pending action and the queue is kept for the next window.
func (p *Predictor) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.inflight || len(p.pending) == 0 {
		p.mu.Unlock()
		return nil
	}
	p.inflight = true
	sent := len(p.pending)
	batch := make([]game.BatchAction, sent)
	for i, pa := range p.pending[:sent] {
		batch[i] = game.BatchAction{ID: pa.id, Action: pa.action}
	}
	p.mu.Unlock()

	res, err := p.syncFn(ctx, batch)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight = false

	if err != nil {
		// A reconcile racing the failed exchange may have emptied the queue.
		if len(p.pending) > 0 {
			p.state = p.pending[0].snapshot.Clone()
			p.scheduleLocked()
		}
		return err
	}

	var unacked []pendingAction
	if sent <= len(p.pending) {
		unacked = p.pending[sent:]
	}
	p.rebaseLocked(res.State, unacked)
	if len(p.pending) > 0 {
		p.scheduleLocked()
	}
	return nil
}

// rebaseLocked makes base the new truth and replays still-unacked actions on
// top of it, refreshing their snapshots.
func (p *Predictor) rebaseLocked(base game.GameState, unacked []pendingAction) {
	p.state = base.Clone()
	p.pending = nil
	for _, pa := range unacked {
		next, err := p.engine.Apply(p.state, pa.action)
		if err != nil {
			continue
		}
		pa.snapshot = p.state.Clone()
		p.pending = append(p.pending, pa)
		p.state = next
	}
}

func (p *Predictor) scheduleLocked() {
	if p.debounce <= 0 {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounce, func() {
		_ = p.Flush(context.Background())
	})
}
