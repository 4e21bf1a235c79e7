package store

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures across the drive session layer. Every
// operation on the daemon surface either succeeds or fails with exactly one
// of these codes wrapped in an *Error.
type ErrorCode int

const (
	// ErrNotFound indicates an unknown drive handle or subscription.
	ErrNotFound ErrorCode = iota + 1

	// ErrAlreadyClosed indicates a second close of the same drive handle.
	ErrAlreadyClosed

	// ErrInvalidPath indicates a malformed path, a path escaping the drive
	// root, or a mount path collision.
	ErrInvalidPath

	// ErrCycleDetected indicates a mount that would make a drive reachable
	// from its own subtree.
	ErrCycleDetected

	// ErrMountTooDeep indicates resolution exceeded the nesting bound.
	ErrMountTooDeep

	// ErrStaleMount indicates a mount target drive could not be reopened.
	ErrStaleMount

	// ErrNotExist indicates no entry at the resolved path.
	ErrNotExist

	// ErrIsDirectory indicates the operation requires a regular file.
	ErrIsDirectory

	// ErrWriteAborted indicates a stream finalize after a failed chunk write
	// or an explicit abort.
	ErrWriteAborted

	// ErrDriveClosed indicates the operation raced with a drive close.
	ErrDriveClosed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyClosed:
		return "AlreadyClosed"
	case ErrInvalidPath:
		return "InvalidPath"
	case ErrCycleDetected:
		return "CycleDetected"
	case ErrMountTooDeep:
		return "MountTooDeep"
	case ErrStaleMount:
		return "StaleMount"
	case ErrNotExist:
		return "NotExist"
	case ErrIsDirectory:
		return "IsDirectory"
	case ErrWriteAborted:
		return "WriteAborted"
	case ErrDriveClosed:
		return "DriveClosed"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error is the error type surfaced by the session layer and by storage
// primitive implementations. Path is optional context.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path %q)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports code equality so that errors.Is(err, &Error{Code: c}) works
// across wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewError builds an *Error with a formatted message.
func NewError(code ErrorCode, path, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Path: path}
}

// CodeOf extracts the ErrorCode from err, or 0 if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsNotExist reports whether err indicates a missing entry.
func IsNotExist(err error) bool { return IsCode(err, ErrNotExist) }

// IsNotFound reports whether err indicates an unknown handle or subscription.
func IsNotFound(err error) bool { return IsCode(err, ErrNotFound) }

// IsDriveClosed reports whether err indicates a race with close.
func IsDriveClosed(err error) bool { return IsCode(err, ErrDriveClosed) }
