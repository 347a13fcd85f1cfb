package game

import "errors"

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownItem       = errors.New("unknown item")
)

// ClampClickCount bounds a click burst to what a human can plausibly produce
// between two sync windows. Applied at the API boundary, never inside the
// engine.
func ClampClickCount(count int) int {
	if count < 1 {
		return 1
	}
	if count > MaxClickCount {
		return MaxClickCount
	}
	return count
}

const (
	MaxClickCount = 100

	// MaxTickMs caps a single client-reported elapsed interval. Anything
	// above it is treated as clock tampering and dropped at the boundary.
	MaxTickMs = int64(10_000)
)

// ValidTickElapsed reports whether a client-submitted elapsed interval is
// acceptable. Out-of-range ticks are silently ignored, not rejected.
func ValidTickElapsed(elapsedMs int64) bool {
	return elapsedMs > 0 && elapsedMs <= MaxTickMs
}
