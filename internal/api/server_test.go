package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickmart/internal/config"
	"clickmart/internal/game"
	"clickmart/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	formulas := game.Formulas{
		StartingMoney:             10_000,
		CostGrowthRate:            1.15,
		VisitorsPerClick:          1,
		SaleTriggerThreshold:      100,
		ConversionRate:            0.10,
		BaseCommissionRate:        0.10,
		VerticalUpgradeGrowthRate: 1.25,
		TickIntervalMs:            1000,
	}
	catalog := game.NewCatalog(
		[]game.Building{
			{ID: "newsletter", Name: "Email Newsletter", BaseCost: 1000, Production: 0.5},
		},
		[]game.Vertical{
			{ID: "electronics", Name: "Electronics", BasePrice: 15_000, Attractivity: 100, MarginGrowthFactor: 1.08, UnlockCost: 0},
			{ID: "fashion", Name: "Fashion", BasePrice: 9_000, Attractivity: 150, MarginGrowthFactor: 1.10, UnlockCost: 10_000},
		},
	)
	engine := game.NewEngine(catalog, formulas)
	return New(config.APIConfig{}, nil, engine, store.NewMemory(), NewHub(nil))
}

func doJSON(t *testing.T, s *Server, method, path, sessionID string, body any) (*httptest.ResponseRecorder, stateResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out stateResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	}
	return rec, out
}

func TestHealthz(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStateMintsSession(t *testing.T) {
	s := testServer(t)
	rec, out := doJSON(t, s, http.MethodGet, "/v1/state", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	sid := rec.Header().Get("X-Session-ID")
	assert.NotEmpty(t, sid)
	assert.Equal(t, sid, out.SessionID)
	assert.Equal(t, int64(10_000), out.State.Money)
	require.NotNil(t, out.Rules, "state response must carry the rules snapshot")
	assert.Equal(t, 0.10, out.Rules.Formulas.ConversionRate)
	assert.Len(t, out.Rules.Verticals, 2)
}

func TestActionsBatch(t *testing.T) {
	s := testServer(t)
	rec, out := doJSON(t, s, http.MethodPost, "/v1/actions", "sess-1", map[string]any{
		"actions": []map[string]any{
			{"id": "a1", "type": "click", "count": 30},
			{"id": "a2", "type": "buy_building", "item_id": "newsletter"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, out.Rejected)
	assert.Equal(t, int64(30), out.State.TotalVisitors)
	assert.Equal(t, int64(9000), out.State.Money)

	// State persists across requests for the same session.
	_, out = doJSON(t, s, http.MethodGet, "/v1/state", "sess-1", nil)
	assert.Equal(t, int64(9000), out.State.Money)
}

func TestActionsRejections(t *testing.T) {
	s := testServer(t)
	rec, out := doJSON(t, s, http.MethodPost, "/v1/actions", "sess-1", map[string]any{
		"actions": []map[string]any{
			{"id": "a1", "type": "upgrade_vertical", "item_id": "fashion"}, // 10000, drains the wallet
			{"id": "a2", "type": "buy_building", "item_id": "newsletter"},
			{"id": "a3", "type": "buy_building", "item_id": "moon_base"},
			{"id": "a4", "type": "teleport"},
			{"id": "a5", "type": "click", "count": 5},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	codes := map[string]string{}
	for _, rej := range out.Rejected {
		codes[rej.ActionID] = rej.Code
	}
	assert.Equal(t, map[string]string{
		"a2": game.RejectInsufficientFunds,
		"a3": game.RejectUnknownItem,
		"a4": game.RejectBadPayload,
	}, codes)
	assert.Equal(t, int64(5), out.State.TotalVisitors, "actions after rejections still apply")
	assert.Equal(t, 1, out.State.Verticals["fashion"])
}

func TestActionsClampsClickCount(t *testing.T) {
	s := testServer(t)
	rec, out := doJSON(t, s, http.MethodPost, "/v1/actions", "sess-1", map[string]any{
		"actions": []map[string]any{
			{"id": "a1", "type": "click", "count": 5000},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(100), out.State.TotalVisitors)
}

func TestActionsEmptyBatch(t *testing.T) {
	s := testServer(t)
	rec, _ := doJSON(t, s, http.MethodPost, "/v1/actions", "sess-1", map[string]any{
		"actions": []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTick(t *testing.T) {
	s := testServer(t)
	_, _ = doJSON(t, s, http.MethodPost, "/v1/actions", "sess-1", map[string]any{
		"actions": []map[string]any{
			{"id": "a1", "type": "buy_building", "item_id": "newsletter"},
		},
	})

	rec, out := doJSON(t, s, http.MethodPost, "/v1/tick", "sess-1", map[string]any{"elapsed_ms": 4000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), out.State.TotalVisitors, "0.5/s over 4s")
}

func TestTickIgnoresOutOfRangeElapsed(t *testing.T) {
	s := testServer(t)
	_, before := doJSON(t, s, http.MethodGet, "/v1/state", "sess-1", nil)

	for _, elapsed := range []int64{-50, 0, 600_000} {
		rec, out := doJSON(t, s, http.MethodPost, "/v1/tick", "sess-1", map[string]any{"elapsed_ms": elapsed})
		require.Equal(t, http.StatusOK, rec.Code, "bad elapsed is dropped, not an error")
		assert.Equal(t, before.State.TotalVisitors, out.State.TotalVisitors)
	}
}

func TestReset(t *testing.T) {
	s := testServer(t)
	_, _ = doJSON(t, s, http.MethodPost, "/v1/actions", "sess-1", map[string]any{
		"actions": []map[string]any{
			{"id": "a1", "type": "buy_building", "item_id": "newsletter"},
		},
	})

	rec, out := doJSON(t, s, http.MethodPost, "/v1/reset", "sess-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(10_000), out.State.Money)
	assert.Empty(t, out.State.Buildings)
}

func TestWSRequiresSession(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
