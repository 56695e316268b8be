// Package engine defines the contract of the analysis engine this serving
// layer sits in front of.
//
// The engine itself is an external collaborator: this package carries only
// the interface, the structured request/result types, and the split between
// domain diagnostics (well-formed findings about the user's input) and
// unexpected failures (engine malfunctions the orchestrator recovers from).
package engine
