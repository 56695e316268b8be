package orchestrate

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
)

// dispatch runs fn as a detached background task with panic recovery. This
// is the accepted-loss path: cache writes and counter increments that fail
// here are logged and dropped, never surfaced to the request that spawned
// them.
func (o *Orchestrator) dispatch(task string, fn func(context.Context)) {
	o.dispatchWG.Add(1)
	go func() {
		defer o.dispatchWG.Done()
		defer func() {
			if rec := recover(); rec != nil {
				o.log.Error("orchestrate: background task panicked",
					zap.String("task", task),
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// drain waits for every dispatched task to finish. Tests use it to observe
// fire-and-forget side effects deterministically.
func (o *Orchestrator) drain() {
	o.dispatchWG.Wait()
}
