package orchestrate

import (
	"testing"
	"time"

	"github.com/jonwraymond/engineops/engine"
)

func TestSupervisor_FatalExitEscalates(t *testing.T) {
	fired := make(chan engine.ExitStatus, 1)
	h := newHarness(t, func(cfg *Config) {
		cfg.OnFatalExit = func(status engine.ExitStatus) { fired <- status }
	})

	h.factory.engineAt(0).exited <- engine.ExitStatus{Code: 255}

	select {
	case status := <-fired:
		if status.Code != 255 {
			t.Errorf("hook received code %d, want 255", status.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fatal exit hook never invoked")
	}
}

func TestSupervisor_CleanExitIgnored(t *testing.T) {
	fired := make(chan engine.ExitStatus, 1)
	h := newHarness(t, func(cfg *Config) {
		cfg.OnFatalExit = func(status engine.ExitStatus) { fired <- status }
	})

	h.factory.engineAt(0).exited <- engine.ExitStatus{Code: 0}

	select {
	case <-fired:
		t.Fatal("hook invoked for a clean exit")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSupervisor_RequestedExitIgnored(t *testing.T) {
	fired := make(chan engine.ExitStatus, 1)
	h := newHarness(t, func(cfg *Config) {
		cfg.OnFatalExit = func(status engine.ExitStatus) { fired <- status }
	})

	h.factory.engineAt(0).exited <- engine.ExitStatus{Code: 143, Requested: true}

	select {
	case <-fired:
		t.Fatal("hook invoked for a requested exit")
	case <-time.After(100 * time.Millisecond):
	}
}
