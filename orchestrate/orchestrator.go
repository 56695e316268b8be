package orchestrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/engineops/counter"
	"github.com/jonwraymond/engineops/engine"
	"github.com/jonwraymond/engineops/store"
)

// Operation tags used in cache keys and logs.
const (
	opAnalyze    = "analyze"
	opCompile    = "compile"
	opComplete   = "complete"
	opFixes      = "fixes"
	opFormat     = "format"
	opDocumentAt = "document"
)

// Counter names incremented on every engine-served compile.
const (
	// CounterCompilations counts compile requests served by the engine.
	CounterCompilations = "compilations"

	// CounterLines counts source lines processed by those compiles.
	CounterLines = "lines"
)

const (
	// dispatchTimeout bounds each fire-and-forget background task.
	dispatchTimeout = 10 * time.Second

	// restartTimeout bounds the whole engine+cache restart sequence.
	restartTimeout = 30 * time.Second
)

// Config configures the orchestrator.
type Config struct {
	// NewEngine constructs the engine. Called at startup and again on
	// every crash restart. Required.
	NewEngine func(ctx context.Context) (engine.Engine, error)

	// NewStore constructs the cache store, called at startup and on every
	// crash restart. Default: a bounded in-memory store.
	NewStore func() store.Store

	// Counters receives usage increments. Default: an in-memory sink.
	Counters counter.Sink

	// Keyer builds content-addressed cache keys. Default: SHA1Keyer.
	Keyer Keyer

	// CacheExpiry bounds the life of cached compile results. Zero means
	// no expiration.
	CacheExpiry time.Duration

	// OnFatalExit is invoked when the engine process exits abnormally
	// outside of a requested shutdown. Default: terminate the process.
	OnFatalExit func(status engine.ExitStatus)

	// Logger receives request and recovery logs. Default: zap.NewNop()
	Logger *zap.Logger
}

// Orchestrator serves engine operations with cache-aside caching, usage
// counters, and crash supervision.
type Orchestrator struct {
	cfg      Config
	log      *zap.Logger
	keyer    Keyer
	counters counter.Sink
	flight   singleflight.Group

	dispatchWG sync.WaitGroup

	mu         sync.Mutex
	engine     engine.Engine
	store      store.Store
	restarting bool
}

// New constructs the orchestrator: it builds the engine via the factory,
// runs init and warmup, and builds the cache store.
func New(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if cfg.NewEngine == nil {
		return nil, ErrMissingEngineFactory
	}
	if cfg.NewStore == nil {
		cfg.NewStore = func() store.Store { return store.NewMemoryStore(0) }
	}
	if cfg.Counters == nil {
		cfg.Counters = counter.NewMemorySink()
	}
	if cfg.Keyer == nil {
		cfg.Keyer = NewSHA1Keyer()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	o := &Orchestrator{
		cfg:      cfg,
		log:      cfg.Logger,
		keyer:    cfg.Keyer,
		counters: cfg.Counters,
	}
	if o.cfg.OnFatalExit == nil {
		o.cfg.OnFatalExit = func(engine.ExitStatus) { os.Exit(1) }
	}

	eng, err := o.startEngine(ctx)
	if err != nil {
		return nil, err
	}
	o.engine = eng
	o.store = cfg.NewStore()

	return o, nil
}

// Compile serves a compilation, cache-aside. On a hit the engine is never
// invoked; on a miss the result is written back and counters are
// incremented, both fire-and-forget. A source ending with NoCacheMarker
// always reaches the engine.
func (o *Orchestrator) Compile(ctx context.Context, req engine.CompileRequest) (*engine.CompileResult, error) {
	if strings.TrimSpace(req.Source) == "" {
		return nil, ErrMissingSource
	}

	key := o.keyer.Key(opCompile, compileFlags(req), req.Source)
	st := o.currentStore()

	if CacheSuppressed(req.Source) {
		return o.compileEngine(ctx, st, key, req)
	}

	if raw, ok := st.Get(ctx, key); ok {
		res, err := decodeCompileResult(raw)
		if err == nil {
			o.log.Debug("orchestrate: compile served from cache", zap.String("key", key))
			return res, nil
		}
		o.log.Warn("orchestrate: discarding undecodable cache entry",
			zap.String("key", key),
			zap.Error(err))
		o.dispatch("cache remove", func(ctx context.Context) { st.Remove(ctx, key) })
	}

	// Concurrent identical compiles share one engine invocation.
	v, err, _ := o.flight.Do(key, func() (any, error) {
		return o.compileEngine(ctx, st, key, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*engine.CompileResult), nil
}

// Analyze runs analysis. Uncached.
func (o *Orchestrator) Analyze(ctx context.Context, req engine.SourceRequest) (*engine.AnalysisResult, error) {
	if strings.TrimSpace(req.Source) == "" {
		return nil, ErrMissingSource
	}
	return supervised(o, ctx, opAnalyze, func(ctx context.Context, eng engine.Engine) (*engine.AnalysisResult, error) {
		return eng.Analyze(ctx, req)
	})
}

// Complete runs code completion at the request offset. Uncached.
func (o *Orchestrator) Complete(ctx context.Context, req engine.SourceRequest) (*engine.CompletionResult, error) {
	if err := validatePositioned(req); err != nil {
		return nil, err
	}
	return supervised(o, ctx, opComplete, func(ctx context.Context, eng engine.Engine) (*engine.CompletionResult, error) {
		return eng.Complete(ctx, req)
	})
}

// Fixes returns suggested repairs at the request offset. Uncached.
func (o *Orchestrator) Fixes(ctx context.Context, req engine.SourceRequest) (*engine.FixesResult, error) {
	if err := validatePositioned(req); err != nil {
		return nil, err
	}
	return supervised(o, ctx, opFixes, func(ctx context.Context, eng engine.Engine) (*engine.FixesResult, error) {
		return eng.Fixes(ctx, req)
	})
}

// Format formats the source, mapping the cursor into the result. Uncached.
func (o *Orchestrator) Format(ctx context.Context, req engine.SourceRequest) (*engine.FormatResult, error) {
	if err := validatePositioned(req); err != nil {
		return nil, err
	}
	return supervised(o, ctx, opFormat, func(ctx context.Context, eng engine.Engine) (*engine.FormatResult, error) {
		return eng.Format(ctx, req)
	})
}

// DocumentAt describes the element at the request offset. Uncached.
func (o *Orchestrator) DocumentAt(ctx context.Context, req engine.SourceRequest) (*engine.Documentation, error) {
	if err := validatePositioned(req); err != nil {
		return nil, err
	}
	return supervised(o, ctx, opDocumentAt, func(ctx context.Context, eng engine.Engine) (*engine.Documentation, error) {
		return eng.DocumentAt(ctx, req)
	})
}

// Counters exposes the usage counter sink.
func (o *Orchestrator) Counters() counter.Sink {
	return o.counters
}

// Shutdown releases the engine and the store.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	eng, st := o.engine, o.store
	o.mu.Unlock()

	var engErr, stErr error
	if eng != nil {
		engErr = eng.Shutdown(ctx)
	}
	if st != nil {
		stErr = st.Shutdown(ctx)
	}
	return errors.Join(engErr, stErr)
}

// compileEngine runs the supervised compile and the post-success side
// effects: the cache write and the counter increments, both dispatched
// fire-and-forget.
func (o *Orchestrator) compileEngine(ctx context.Context, st store.Store, key string, req engine.CompileRequest) (*engine.CompileResult, error) {
	start := time.Now()
	res, err := supervised(o, ctx, opCompile, func(ctx context.Context, eng engine.Engine) (*engine.CompileResult, error) {
		return eng.Compile(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	o.log.Info("orchestrate: compiled",
		zap.String("key", key),
		zap.Duration("elapsed", time.Since(start)))

	if raw, encErr := encodeCompileResult(res); encErr != nil {
		o.log.Warn("orchestrate: compile result not cacheable", zap.Error(encErr))
	} else {
		o.dispatch("cache write", func(ctx context.Context) {
			st.Set(ctx, key, raw, o.cfg.CacheExpiry)
		})
	}

	lines := int64(strings.Count(req.Source, "\n") + 1)
	o.dispatch("counter increments", func(ctx context.Context) {
		o.counters.Increment(ctx, CounterCompilations, 1)
		o.counters.Increment(ctx, CounterLines, lines)
	})

	return res, nil
}

func (o *Orchestrator) currentEngine() engine.Engine {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.engine
}

func (o *Orchestrator) currentStore() store.Store {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store
}

// validatePositioned rejects requests missing source or carrying an offset
// outside it before the engine or the cache is touched.
func validatePositioned(req engine.SourceRequest) error {
	if strings.TrimSpace(req.Source) == "" {
		return ErrMissingSource
	}
	if req.Offset < 0 || req.Offset > len(req.Source) {
		return ErrInvalidOffset
	}
	return nil
}

// compileFlags is the flags signature embedded in compile cache keys.
func compileFlags(req engine.CompileRequest) string {
	return fmt.Sprintf("sourcemap=%t", req.SourceMap)
}

func encodeCompileResult(res *engine.CompileResult) (string, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeCompileResult(raw string) (*engine.CompileResult, error) {
	var res engine.CompileResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, err
	}
	return &res, nil
}
