package cypher

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ---------------------------------------------------------------------------
// Error taxonomy (spec §7). The teacher's graphdb.go favors plain sentinel
// errors (ErrReadOnlyReplica) and wrapped fmt.Errorf chains; the pipeline
// here instead needs a small closed set of typed errors so callers can
// errors.As() their way to "where in the pipeline did this fail" (syntax,
// semantic, runtime type, arithmetic, or the backend), so each stage gets
// its own struct type carrying a position/detail, in the same spirit as the
// teacher wrapping storage failures with %w but one level more structured.
// ---------------------------------------------------------------------------

// SyntaxError is returned by the lexer and parser.
type SyntaxError struct {
	Msg string
	Pos int
}

func newSyntaxError(msg string, pos int) *SyntaxError { return &SyntaxError{Msg: msg, Pos: pos} }

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// SemanticError is returned by the analyser: unresolved variables, clause
// ordering violations, misplaced aggregates, and similar.
type SemanticError struct {
	Msg string
}

func newSemanticError(format string, args ...any) *SemanticError {
	return &SemanticError{Msg: fmt.Sprintf(format, args...)}
}

func (e *SemanticError) Error() string { return "semantic error: " + e.Msg }

// TypeError is raised during evaluation when an operator or function is
// applied to an operand kind it does not accept (spec §4.5 typing rules).
type TypeError struct {
	Msg string
}

func newTypeError(format string, args ...any) *TypeError {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

func (e *TypeError) Error() string { return "type error: " + e.Msg }

// ArithmeticError is raised for division by zero and other numeric failures
// that are not type mismatches.
type ArithmeticError struct {
	Msg string
}

func newArithmeticError(format string, args ...any) *ArithmeticError {
	return &ArithmeticError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ArithmeticError) Error() string { return "arithmetic error: " + e.Msg }

// BackendError wraps a failure returned by a Backend implementation,
// classifying it as transient or permanent via grpc's status/codes package
// (the same classification vocabulary the teacher's go.mod already pulls in
// for its cluster RPC layer) so the engine knows whether a retry is sane.
type BackendError struct {
	Op   string
	Code codes.Code
	Err  error
}

func newBackendError(op string, code codes.Code, err error) *BackendError {
	return &BackendError{Op: op, Code: code, Err: err}
}

// NewBackendNotFound builds a non-transient BackendError for a Backend
// implementation reporting a missing node or relationship.
func NewBackendNotFound(op, msg string) *BackendError {
	return &BackendError{Op: op, Code: codes.NotFound, Err: errors.New(msg)}
}

// NewBackendUnavailable builds a transient BackendError for a Backend
// implementation reporting a retryable storage failure.
func NewBackendUnavailable(op string, err error) *BackendError {
	return &BackendError{Op: op, Code: codes.Unavailable, Err: err}
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error during %s: %s", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying: Unavailable,
// DeadlineExceeded, and ResourceExhausted are the codes a caller can expect
// to clear up on their own; everything else (NotFound, InvalidArgument,
// AlreadyExists, ...) is permanent given the same inputs.
func (e *BackendError) Transient() bool {
	switch e.Code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// GRPCStatus lets errors.As(err, *status.Status)-style helpers in callers
// that already speak grpc/status extract a *status.Status directly.
func (e *BackendError) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Error())
}

// ErrCancelled is returned by Engine.Run when the caller's context is
// cancelled or its deadline expires between rows (spec §5.2).
var ErrCancelled = &CancelledError{}

// CancelledError marks cooperative cancellation distinctly from a backend
// DeadlineExceeded: it is raised by the engine's own row-boundary check,
// not by a failed Backend call.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "query cancelled" }

// ErrQueryPanic marks an error produced by recovering a panic inside planning
// or execution, per the teacher's ErrQueryPanic (governor.go); the engine
// keeps running for subsequent queries rather than propagating the panic.
var ErrQueryPanic = errors.New("cypher: query panicked")
