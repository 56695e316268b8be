// Package store provides the key-value store used to cache engine results.
//
// It defines a minimal Store contract with two implementations: a bounded
// in-memory LRU store with no external dependencies, and a Redis-backed
// store that holds a single logical connection, reconnects forever with
// jittered backoff, and degrades to cache misses whenever the connection
// is down. Callers never block on store availability and never see store
// errors; every failure path is logged and converted to a soft result.
package store
