package imaging

import (
	"errors"
	"fmt"
)

var (
	// ErrArgument is returned when a required input is absent (e.g. a nil buffer).
	ErrArgument = errors.New("imaging: invalid argument")

	// ErrValidation is returned when a value is outside its allowed range.
	ErrValidation = errors.New("imaging: validation failed")

	// ErrNotFound is returned when a file or directory does not exist.
	ErrNotFound = errors.New("imaging: not found")

	// ErrDecode is returned when bytes are not a supported raster image.
	ErrDecode = errors.New("imaging: decode failed")

	// ErrBackendCapability is returned when the backend lacks a required codec.
	ErrBackendCapability = errors.New("imaging: backend capability unavailable")

	// ErrIO is returned for read and write failures.
	ErrIO = errors.New("imaging: i/o failure")
)

// Error describes a failed operation. It matches its Kind with errors.Is and
// unwraps to the underlying cause, so both
//
//	errors.Is(err, imaging.ErrNotFound)
//	errors.Is(err, fs.ErrNotExist)
//
// hold for a missing file.
type Error struct {
	Kind error  // One of the Err* sentinels
	Op   string // Operation that failed, e.g. "load"
	Path string // File path involved, if any
	Err  error  // Underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel this error was raised as.
func (e *Error) Is(target error) bool { return e.Kind == target }

func newError(kind error, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func argumentError(op, format string, args ...interface{}) error {
	return newError(ErrArgument, op, "", fmt.Errorf(format, args...))
}
