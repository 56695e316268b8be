package store

import (
	"math/rand/v2"
	"time"
)

// ConnState represents the remote store's connection state.
type ConnState int

const (
	// StateDisconnected means no connection is live.
	StateDisconnected ConnState = iota
	// StateConnecting means a connection attempt is in flight.
	StateConnecting
	// StateConnected means a connection is live and serving operations.
	StateConnected
	// StateShutDown is terminal: the store was shut down and never
	// reconnects.
	StateShutDown
)

// String returns the string representation of the state.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateShutDown:
		return "shut-down"
	default:
		return "unknown"
	}
}

// nextDelay computes the retry delay for the next connection attempt.
// While the current delay is below half the maximum it is scaled by a
// random factor in [1.0, 2.0); beyond that it stays where it is, which
// caps growth near the maximum. The result never decreases and never
// exceeds max.
func nextDelay(current, max time.Duration) time.Duration {
	if current >= max/2 {
		return current
	}
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	scaled := time.Duration(float64(current) * (1.0 + rand.Float64()))
	if scaled > max {
		scaled = max
	}
	return scaled
}
