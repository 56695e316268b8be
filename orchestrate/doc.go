// Package orchestrate is the request layer in front of the analysis
// engine.
//
// For cacheable operations it applies cache-aside: a content-addressed key
// is derived from the request, the store is consulted first, and on a miss
// the engine runs and the result is written back without blocking the
// response. Every engine-backed operation runs inside a crash-recovery
// boundary that restarts the engine and the cache on unexpected failures
// while re-raising the original error to the caller.
package orchestrate
