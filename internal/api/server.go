package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clickmart/internal/config"
	"clickmart/internal/game"
	"clickmart/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	engine *game.Engine
	store  store.Store
	hub    *Hub
	mux    *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, engine *game.Engine, st store.Store, hub *Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		engine: engine,
		store:  st,
		hub:    hub,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/actions", s.handleActions)
		r.Post("/tick", s.handleTick)
		r.Post("/reset", s.handleReset)
		r.Get("/ws", s.handleWS)
	})
}

// sessionID returns the caller's session, minting a fresh one when the header
// is absent. The id always echoes back in the response header so first-time
// callers can keep it.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get("X-Session-ID"))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Session-ID", id)
	return id
}

type rulesPayload struct {
	Formulas  game.Formulas   `json:"formulas"`
	Buildings []game.Building `json:"buildings"`
	Verticals []game.Vertical `json:"verticals"`
}

type stateResponse struct {
	SessionID string           `json:"session_id"`
	State     game.GameState   `json:"state"`
	Derived   game.Derived     `json:"derived"`
	Rejected  []game.Rejection `json:"rejected,omitempty"`
	Rules     *rulesPayload    `json:"rules,omitempty"`
}

func (s *Server) stateResponse(sessionID string, st game.GameState, rejected []game.Rejection) stateResponse {
	return stateResponse{
		SessionID: sessionID,
		State:     st,
		Derived:   s.engine.Derive(st),
		Rejected:  rejected,
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	st, err := s.store.LoadOrCreate(r.Context(), sid, s.engine.Initialize())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := s.stateResponse(sid, st, nil)
	cat := s.engine.Catalog()
	out.Rules = &rulesPayload{
		Formulas:  s.engine.Formulas(),
		Buildings: cat.Buildings,
		Verticals: cat.Verticals,
	}
	writeJSON(w, http.StatusOK, out)
}

// wireAction is the JSON form of one batch entry. Unknown types and malformed
// payloads become bad_payload rejections rather than failing the batch.
type wireAction struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Count  int    `json:"count,omitempty"`
	ItemID string `json:"item_id,omitempty"`
}

func decodeAction(in wireAction) (game.Action, bool) {
	switch in.Type {
	case "click":
		return game.Click{Count: game.ClampClickCount(in.Count)}, true
	case "buy_building":
		if in.ItemID == "" {
			return nil, false
		}
		return game.BuyBuilding{ID: in.ItemID}, true
	case "upgrade_vertical":
		if in.ItemID == "" {
			return nil, false
		}
		return game.UpgradeVertical{ID: in.ItemID}, true
	default:
		return nil, false
	}
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	var in struct {
		Actions []wireAction `json:"actions"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.Actions) == 0 {
		writeError(w, http.StatusBadRequest, "actions must not be empty")
		return
	}

	batch := make([]game.BatchAction, 0, len(in.Actions))
	malformed := make([]game.Rejection, 0)
	for _, wa := range in.Actions {
		action, ok := decodeAction(wa)
		if !ok {
			malformed = append(malformed, game.Rejection{ActionID: wa.ID, Code: game.RejectBadPayload})
			continue
		}
		batch = append(batch, game.BatchAction{ID: wa.ID, Action: action})
	}

	var rejected []game.Rejection
	st, err := s.store.Update(r.Context(), sid, s.engine.Initialize(), func(cur game.GameState) (game.GameState, error) {
		next, rej := s.engine.ApplyBatch(cur, batch)
		rejected = rej
		return next, nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rejected = append(malformed, rejected...)

	out := s.stateResponse(sid, st, rejected)
	s.hub.Push(sid, out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	var in struct {
		ElapsedMs int64 `json:"elapsed_ms"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := s.store.Update(r.Context(), sid, s.engine.Initialize(), func(cur game.GameState) (game.GameState, error) {
		// Out-of-range elapsed values are dropped, not rejected; clients with
		// skewed clocks should not error their way out of the game.
		if !game.ValidTickElapsed(in.ElapsedMs) {
			return cur, nil
		}
		return s.engine.Tick(cur, in.ElapsedMs), nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := s.stateResponse(sid, st, nil)
	s.hub.Push(sid, out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	st, err := s.store.Update(r.Context(), sid, s.engine.Initialize(), func(game.GameState) (game.GameState, error) {
		return s.engine.Initialize(), nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := s.stateResponse(sid, st, nil)
	s.hub.Push(sid, out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sid := strings.TrimSpace(r.Header.Get("X-Session-ID"))
	if sid == "" {
		sid = strings.TrimSpace(r.URL.Query().Get("session_id"))
	}
	if sid == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	s.hub.ServeWS(sid, w, r)
}
