package store

import (
	"testing"
	"time"
)

func TestConnState_String(t *testing.T) {
	tests := []struct {
		state ConnState
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateShutDown, "shut-down"},
		{ConnState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("ConnState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestNextDelay_MonotonicBound(t *testing.T) {
	const max = 60 * time.Second

	delay := DefaultBaseRetryDelay
	for i := 0; i < 100; i++ {
		next := nextDelay(delay, max)
		if next < delay {
			t.Fatalf("attempt %d: delay decreased from %v to %v", i, delay, next)
		}
		if next > max {
			t.Fatalf("attempt %d: delay %v exceeds max %v", i, next, max)
		}
		delay = next
	}

	// After enough failures the delay must have escalated well past the base.
	if delay < max/2 {
		t.Errorf("delay after 100 failures = %v, expected at least %v", delay, max/2)
	}
}

func TestNextDelay_CapsNearMax(t *testing.T) {
	const max = 60 * time.Second

	// At or beyond half the maximum the delay stops growing.
	at := nextDelay(max/2, max)
	if at != max/2 {
		t.Errorf("nextDelay(max/2) = %v, want %v", at, max/2)
	}
	over := nextDelay(max, max)
	if over != max {
		t.Errorf("nextDelay(max) = %v, want %v", over, max)
	}
}

func TestNextDelay_EscalatesFromBase(t *testing.T) {
	const max = 60 * time.Second

	// Below half the maximum the delay always grows: the jitter factor is
	// in [1.0, 2.0) but the scaled value is at least the current delay.
	for i := 0; i < 50; i++ {
		next := nextDelay(DefaultBaseRetryDelay, max)
		if next < DefaultBaseRetryDelay {
			t.Fatalf("nextDelay returned %v, below base %v", next, DefaultBaseRetryDelay)
		}
		if next >= 2*DefaultBaseRetryDelay {
			t.Fatalf("nextDelay returned %v, at or above double the base %v", next, DefaultBaseRetryDelay)
		}
	}
}
