// Package errors defines the error kinds reported at the command boundary.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable identifier for a failure mode
type ErrorCode string

const (
	// StoreUnavailable indicates the store file cannot be opened, created or written
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// StoreCorrupt indicates the store file failed an integrity check
	StoreCorrupt ErrorCode = "STORE_CORRUPT"
	// NoMatch indicates a search found no candidate
	NoMatch ErrorCode = "NO_MATCH"
	// InvalidPath indicates a path that cannot be canonicalized
	InvalidPath ErrorCode = "INVALID_PATH"
	// InvalidConfig indicates a configuration value out of range
	InvalidConfig ErrorCode = "INVALID_CONFIG"
	// Internal indicates an unexpected failure
	Internal ErrorCode = "INTERNAL_ERROR"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitNoMatch     = 1
	ExitUsage       = 2
	ExitUnavailable = 3
	ExitCorrupt     = 4
)

// ErrNoMatch is returned by searches that found nothing.
var ErrNoMatch = &HopError{Code: NoMatch, Message: "no match found"}

// HopError carries an error code, a human readable message and,
// when relevant, the file or directory the user should look at.
type HopError struct {
	Code    ErrorCode
	Message string
	Path    string
	cause   error
}

// New creates a HopError
func New(code ErrorCode, message string, cause error) *HopError {
	return &HopError{Code: code, Message: message, cause: cause}
}

// WithPath attaches the offending path
func (e *HopError) WithPath(path string) *HopError {
	e.Path = path
	return e
}

func (e *HopError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *HopError) Unwrap() error {
	return e.cause
}

// Is matches any HopError carrying the same code.
func (e *HopError) Is(target error) bool {
	t, ok := target.(*HopError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first HopError in err's chain,
// or Internal when there is none.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var he *HopError
	if errors.As(err, &he) {
		return he.Code
	}
	return Internal
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch CodeOf(err) {
	case "":
		return ExitOK
	case NoMatch:
		return ExitNoMatch
	case InvalidPath, InvalidConfig:
		return ExitUsage
	case StoreUnavailable:
		return ExitUnavailable
	case StoreCorrupt:
		return ExitCorrupt
	default:
		return ExitUsage
	}
}

// Hint returns advice to print next to an error, if any.
func Hint(err error) string {
	var he *HopError
	if !errors.As(err, &he) {
		return ""
	}
	switch he.Code {
	case StoreCorrupt:
		if he.Path != "" {
			return fmt.Sprintf("inspect or remove %s to start a fresh history", he.Path)
		}
	case StoreUnavailable:
		return "check that the data directory exists and is writable (see --data-dir)"
	}
	return ""
}
