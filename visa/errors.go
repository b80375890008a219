package visa

import "errors"

var (
	// ErrInvalidAddress indicates that a resource address does not follow the resource string grammar.
	ErrInvalidAddress = errors.New("invalid resource address")

	// ErrUnrecognizedInterface indicates that no registered backend handles the address scheme.
	ErrUnrecognizedInterface = errors.New("unrecognized interface")

	// ErrUnreachable indicates that the backend recognizes the address but cannot reach the device.
	ErrUnreachable = errors.New("device unreachable")

	// ErrManagerClosed indicates that the resource manager is closed.
	ErrManagerClosed = errors.New("resource manager closed")
)

var (
	// ErrInvalidSession indicates that the session handle is no longer usable.
	// The session must be closed and opened again.
	ErrInvalidSession = errors.New("invalid session")

	// ErrIO indicates a transient I/O failure, the session stays usable.
	ErrIO = errors.New("i/o error")

	// ErrTimeout indicates that an I/O operation did not complete within the session timeout.
	// It is always reported together with ErrIO.
	ErrTimeout = errors.New("i/o timeout")
)
