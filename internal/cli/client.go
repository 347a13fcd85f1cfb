package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clickmart/internal/game"
)

// WireAction is one entry of a POST /v1/actions batch.
type WireAction struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Count  int    `json:"count,omitempty"`
	ItemID string `json:"item_id,omitempty"`
}

// Rules is the server's config snapshot, returned with GET /v1/state so the
// client mirror runs the exact same math as the server.
type Rules struct {
	Formulas  game.Formulas   `json:"formulas"`
	Buildings []game.Building `json:"buildings"`
	Verticals []game.Vertical `json:"verticals"`
}

// StateResponse is the common shape of every game endpoint's reply.
type StateResponse struct {
	SessionID string           `json:"session_id"`
	State     game.GameState   `json:"state"`
	Derived   game.Derived     `json:"derived"`
	Rejected  []game.Rejection `json:"rejected,omitempty"`
	Rules     *Rules           `json:"rules,omitempty"`
}

type Client struct {
	BaseURL   string
	SessionID string
	HTTP      *http.Client
}

func NewClient(baseURL, sessionID string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SessionID: sessionID,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) State(ctx context.Context) (StateResponse, error) {
	var out StateResponse
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/state", nil, &out)
	return out, err
}

func (c *Client) Actions(ctx context.Context, actions []WireAction) (StateResponse, error) {
	var out StateResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/actions", map[string]any{
		"actions": actions,
	}, &out)
	return out, err
}

func (c *Client) Tick(ctx context.Context, elapsedMs int64) (StateResponse, error) {
	var out StateResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/tick", map[string]any{
		"elapsed_ms": elapsedMs,
	}, &out)
	return out, err
}

func (c *Client) Reset(ctx context.Context) (StateResponse, error) {
	var out StateResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/reset", map[string]any{}, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out *StateResponse) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.SessionID != "" {
		req.Header.Set("X-Session-ID", c.SessionID)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	// The server mints a session on first contact; adopt it.
	if sid := resp.Header.Get("X-Session-ID"); sid != "" {
		c.SessionID = sid
	}
	return nil
}
