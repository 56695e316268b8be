package engine

import (
	"context"
	"errors"
	"fmt"
)

// SourceRequest is the input for operations that work on a single source
// text, optionally at a position.
type SourceRequest struct {
	// Source is the program text to operate on.
	Source string

	// Offset is a zero-based position into Source, used by operations that
	// are position-sensitive (complete, fixes, documentAt, and format when
	// a cursor is supplied).
	Offset int
}

// CompileRequest is the input for a compilation.
type CompileRequest struct {
	// Source is the program text to compile.
	Source string

	// SourceMap requests a source map alongside the compiled output.
	SourceMap bool
}

// CompileResult is the output of a successful compilation.
type CompileResult struct {
	// Output is the compiled artifact.
	Output string `json:"output"`

	// SourceMap is the source map, present only when requested.
	SourceMap string `json:"sourceMap,omitempty"`
}

// Issue is a single finding the engine reports about the user's source.
type Issue struct {
	Kind       string `json:"kind"` // error|warning|info
	Message    string `json:"message"`
	Line       int    `json:"line"`
	CharStart  int    `json:"charStart"`
	CharLength int    `json:"charLength"`
}

// AnalysisResult is the output of an analysis.
type AnalysisResult struct {
	Issues []Issue `json:"issues"`
}

// Suggestion is a single code completion.
type Suggestion struct {
	Kind       string `json:"kind"`
	Completion string `json:"completion"`
}

// CompletionResult is the output of a completion request.
type CompletionResult struct {
	ReplaceOffset int          `json:"replaceOffset"`
	ReplaceLength int          `json:"replaceLength"`
	Suggestions   []Suggestion `json:"suggestions"`
}

// Edit is a single text replacement.
type Edit struct {
	Offset      int    `json:"offset"`
	Length      int    `json:"length"`
	Replacement string `json:"replacement"`
}

// Fix is a suggested repair for an issue.
type Fix struct {
	Message string `json:"message"`
	Edits   []Edit `json:"edits"`
}

// FixesResult is the output of a fixes request.
type FixesResult struct {
	Fixes []Fix `json:"fixes"`
}

// FormatResult is the formatted source plus the caller's cursor position
// mapped into it.
type FormatResult struct {
	Source string `json:"source"`
	Offset int    `json:"offset"`
}

// Documentation describes the element at a position.
type Documentation struct {
	Info map[string]string `json:"info"`
}

// ExitStatus describes an engine process exit.
type ExitStatus struct {
	// Code is the process exit code.
	Code int

	// Requested is true when the exit followed an explicit Shutdown.
	Requested bool
}

// Abnormal reports whether the exit should escalate: a non-zero status
// outside of a requested shutdown.
func (s ExitStatus) Abnormal() bool {
	return !s.Requested && s.Code != 0
}

// Engine is the expensive, stateful analysis/compilation collaborator.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use; callers
//   queue naturally behind a single-instance engine.
// - Errors: findings about the user's input are returned as *DomainError;
//   any other error is an unexpected failure the caller may recover from
//   by restarting the engine.
// - Lifecycle: Init must be called before operations, Warmup after Init;
//   Shutdown releases the engine and triggers a requested exit.
type Engine interface {
	Analyze(ctx context.Context, req SourceRequest) (*AnalysisResult, error)
	Compile(ctx context.Context, req CompileRequest) (*CompileResult, error)
	Complete(ctx context.Context, req SourceRequest) (*CompletionResult, error)
	Fixes(ctx context.Context, req SourceRequest) (*FixesResult, error)
	Format(ctx context.Context, req SourceRequest) (*FormatResult, error)
	DocumentAt(ctx context.Context, req SourceRequest) (*Documentation, error)

	Init(ctx context.Context) error
	Warmup(ctx context.Context) error
	Shutdown(ctx context.Context) error

	// Exited delivers the engine's exit status when its process
	// terminates. An abnormal exit must be escalated by the supervisor.
	Exited() <-chan ExitStatus
}

// DomainError is a well-formed failure the engine reports about the user's
// input, e.g. compile errors. It is not a system fault: the orchestrator
// surfaces it to the caller unchanged and performs no recovery.
type DomainError struct {
	// Op is the operation that produced the diagnostics.
	Op string

	// Message summarizes the findings.
	Message string

	// Issues carries the individual findings, when available.
	Issues []Issue
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("engine: %s: %s", e.Op, e.Message)
}

// IsDomain reports whether err is (or wraps) a domain diagnostic.
func IsDomain(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
