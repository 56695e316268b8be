package orchestrate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonwraymond/engineops/engine"
)

// supervised runs fn against the current engine inside the crash-recovery
// boundary. Domain diagnostics pass through untouched, as does a
// cancellation or deadline surfaced for the caller's own context: the
// engine honoring a withdrawn request is not an engine failure. Any other
// failure triggers a full engine+cache restart before the original error
// is returned: the caller always receives the failure that hit it, the
// restart is a side effect.
func supervised[T any](o *Orchestrator, ctx context.Context, op string, fn func(context.Context, engine.Engine) (T, error)) (T, error) {
	eng := o.currentEngine()
	out, err := fn(ctx, eng)
	if err == nil || engine.IsDomain(err) {
		return out, err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		var zero T
		return zero, err
	}

	o.log.Error("orchestrate: unexpected engine failure",
		zap.String("op", op),
		zap.Error(err))
	o.restart(ctx, eng)

	var zero T
	return zero, err
}

// restart tears down the failed engine and the cache and rebuilds both via
// the configured factories, including warmup. Only one restart runs at a
// time: a failure arriving mid-restart, or against an engine that was
// already replaced, is re-raised without a second teardown.
func (o *Orchestrator) restart(ctx context.Context, failed engine.Engine) {
	o.mu.Lock()
	if o.restarting || o.engine != failed {
		o.mu.Unlock()
		o.log.Warn("orchestrate: skipping restart, one already ran or is running")
		return
	}
	o.restarting = true
	oldStore := o.store
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.restarting = false
		o.mu.Unlock()
	}()

	// The restart must finish even if the triggering request is canceled.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restartTimeout)
	defer cancel()

	o.log.Warn("orchestrate: restarting engine and cache")

	if err := failed.Shutdown(rctx); err != nil {
		o.log.Warn("orchestrate: failed engine did not shut down cleanly", zap.Error(err))
	}
	if err := oldStore.Shutdown(rctx); err != nil {
		o.log.Warn("orchestrate: store did not shut down cleanly", zap.Error(err))
	}

	eng, err := o.startEngine(rctx)
	if err != nil {
		// Degraded: the old references stay in place and the next
		// unexpected failure retries the restart.
		o.log.Error("orchestrate: restart failed", zap.Error(err))
		return
	}
	st := o.cfg.NewStore()

	o.mu.Lock()
	o.engine = eng
	o.store = st
	o.mu.Unlock()

	o.log.Info("orchestrate: restart complete")
}

// startEngine builds an engine via the factory, runs init and warmup, and
// begins watching for an abnormal process exit.
func (o *Orchestrator) startEngine(ctx context.Context) (engine.Engine, error) {
	eng, err := o.cfg.NewEngine(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrate: engine construction failed: %w", err)
	}
	if err := eng.Init(ctx); err != nil {
		return nil, fmt.Errorf("orchestrate: engine init failed: %w", err)
	}
	if err := eng.Warmup(ctx); err != nil {
		return nil, fmt.Errorf("orchestrate: engine warmup failed: %w", err)
	}
	o.watchExit(eng)
	return eng, nil
}

// watchExit escalates an abnormal engine process exit. A requested or
// clean exit is ignored; anything else terminates the service through the
// configured hook.
func (o *Orchestrator) watchExit(eng engine.Engine) {
	go func() {
		status, ok := <-eng.Exited()
		if !ok || !status.Abnormal() {
			return
		}
		o.log.Error("orchestrate: engine exited abnormally",
			zap.Int("code", status.Code))
		o.cfg.OnFatalExit(status)
	}()
}
