package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrInvalidInput - invalid input (400 over HTTP, usage error on the CLI)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found
	ErrNotFound = errors.New("not found")

	// ErrConflict - resource already exists or is owned by another process
	ErrConflict = errors.New("conflict")

	// ErrTransient - transient error (timeouts, rate limits, connection resets)
	ErrTransient = errors.New("transient error")

	// ErrInvalidModelOutput - model returned a malformed reply
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)

// Agent loop taxonomy.
var (
	// ErrModelBackend - model call failed; fatal to the run, never retried
	ErrModelBackend = errors.New("model backend error")

	// ErrUnknownTool - lookup of an unregistered tool name
	ErrUnknownTool = errors.New("unknown tool")

	// ErrDuplicateTool - a tool name was registered twice
	ErrDuplicateTool = errors.New("duplicate tool")

	// ErrToolValidation - tool arguments did not match the declared schema; surfaced as data
	ErrToolValidation = errors.New("tool validation failed")

	// ErrToolExecution - tool ran and failed; surfaced as data
	ErrToolExecution = errors.New("tool execution failed")

	// ErrRoundCeiling - the model kept requesting tools past the round limit
	ErrRoundCeiling = errors.New("round ceiling exceeded")

	// ErrBudgetExceeded - the wall-clock budget for a run elapsed
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrPersistence - the session record could not be saved
	ErrPersistence = errors.New("persistence error")
)
