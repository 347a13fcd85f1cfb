package game

import "errors"

// Rejection codes returned to clients. Stable strings, part of the API.
const (
	RejectInsufficientFunds = "insufficient_funds"
	RejectUnknownItem       = "unknown_item"
	RejectBadPayload        = "bad_payload"
)

// BatchAction pairs an action with the client-chosen id used to report its
// outcome.
type BatchAction struct {
	ID     string
	Action Action
}

// Rejection identifies one batch entry that did not apply and why.
type Rejection struct {
	ActionID string `json:"action_id"`
	Code     string `json:"code"`
}

// RejectCode maps a domain rejection to its wire code.
func RejectCode(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return RejectInsufficientFunds
	case errors.Is(err, ErrUnknownItem):
		return RejectUnknownItem
	default:
		return RejectBadPayload
	}
}

// ApplyBatch runs an ordered batch atomically with respect to the caller:
// each action applies against the result of the previous accepted one, a
// rejected action is recorded and skipped, and the batch always yields a
// final state. There is no partial-batch rollback; each rejection is
// self-contained.
func (e *Engine) ApplyBatch(st GameState, batch []BatchAction) (GameState, []Rejection) {
	rejected := make([]Rejection, 0)
	for _, entry := range batch {
		next, err := e.Apply(st, entry.Action)
		if err != nil {
			rejected = append(rejected, Rejection{ActionID: entry.ID, Code: RejectCode(err)})
			continue
		}
		st = next
	}
	return st, rejected
}
