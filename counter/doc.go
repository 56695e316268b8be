// Package counter provides named, monotonically increasing usage counters.
//
// The orchestrator issues fire-and-forget increments against a Sink;
// durability and aggregation are the sink's concern. A mutex-guarded
// in-memory sink is provided for tests and single-process use, and an
// OpenTelemetry sink mirrors increments to a metric instrument while
// keeping locally queryable totals.
package counter
