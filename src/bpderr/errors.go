// Package bpderr is the shared error taxonomy for the page file and buffer
// pool packages. It intentionally has no dependency on either so that both
// can import it without a cycle.
package bpderr

import "errors"

// Code is one of a small, closed set of outcome codes. Names are illustrative
// and stable: callers are expected to compare against the exported sentinel
// errors (via errors.Is), not against Code values directly.
type Code int

const (
	// OK is never wrapped into an Error; it exists so Code has a zero value
	// that doesn't alias a real failure.
	OK Code = iota
	FileNotFound
	FileHandleNotInit
	ReadNonExistingPage
	WriteFailed
	NotImplemented
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case FileNotFound:
		return "FILE_NOT_FOUND"
	case FileHandleNotInit:
		return "FILE_HANDLE_NOT_INIT"
	case ReadNonExistingPage:
		return "READ_NON_EXISTING_PAGE"
	case WriteFailed:
		return "WRITE_FAILED"
	case NotImplemented:
		return "NOT_IMPLEMENTED"
	default:
		return "UNKNOWN"
	}
}

// Sentinel errors, one per Code. Wrap them with New to attach operation
// context; compare against them with errors.Is.
var (
	ErrFileNotFound        = errors.New("file not found")
	ErrFileHandleNotInit   = errors.New("file handle not initialized")
	ErrReadNonExistingPage = errors.New("read of non-existing page")
	ErrWriteFailed         = errors.New("write failed")
	ErrNotImplemented      = errors.New("replacement strategy not implemented")
)

func sentinelFor(code Code) error {
	switch code {
	case FileNotFound:
		return ErrFileNotFound
	case FileHandleNotInit:
		return ErrFileHandleNotInit
	case ReadNonExistingPage:
		return ErrReadNonExistingPage
	case WriteFailed:
		return ErrWriteFailed
	case NotImplemented:
		return ErrNotImplemented
	default:
		return nil
	}
}

// Error pairs an outcome Code with the operation that produced it and,
// optionally, the underlying I/O error that caused it. Op should read like
// "open mydb.page" or "pin page 5" so the message is useful without a
// debugger attached.
type Error struct {
	Op   string
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Code.String() + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Code.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Code, so errors.Is matches
// on the taxonomy regardless of whether e.Err is that sentinel or some other
// underlying cause (an *fs.PathError from the OS, say).
func (e *Error) Is(target error) bool {
	return target == sentinelFor(e.Code)
}

// New builds an *Error for code, wrapping cause if non-nil or the code's own
// sentinel otherwise. errors.Is(New(...), ErrFileNotFound) succeeds either way.
func New(op string, code Code, cause error) error {
	if cause == nil {
		cause = sentinelFor(code)
	}
	return &Error{Op: op, Code: code, Err: cause}
}
