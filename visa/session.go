package visa

import (
	"context"
	"time"

	"github.com/arloliu/go-testbench/transfer"
)

// Session is an open, message based link to one resource.
//
// A Session is not safe for concurrent use, a device answers one request at a time.
type Session interface {
	// ID returns the unique session id used to correlate log records.
	ID() string
	// Resource returns the address the session was opened with.
	Resource() Address
	// InterfaceType returns the hardware interface of the session.
	InterfaceType() InterfaceType
	// Valid reports whether the session handle is still usable.
	Valid() bool

	// Write sends a command followed by the write terminator.
	Write(command string) error
	// Query writes a request and reads one reply, the read terminator is stripped.
	Query(request string) (string, error)
	// QueryTextValues writes a request and converts the text reply.
	QueryTextValues(request string, format transfer.TextFormat) (transfer.Data, error)
	// QueryBinaryValues writes a request and decodes the binary block reply.
	QueryBinaryValues(request string, format transfer.BinaryFormat) (transfer.Data, error)

	ReadTermination() transfer.Terminator
	SetReadTermination(term transfer.Terminator)
	WriteTermination() transfer.Terminator
	SetWriteTermination(term transfer.Terminator)
	Timeout() time.Duration
	SetTimeout(timeout time.Duration) error

	// Close releases the session. Closing a closed session is a no-op.
	Close() error
}

// QuietCloser is implemented by sessions that can be closed without logging.
type QuietCloser interface {
	CloseQuietly() error
}

// CloseQuietly closes sess without logging when sess implements QuietCloser,
// otherwise it calls Close. Teardown from a cleanup uses it.
func CloseQuietly(sess Session) error {
	if q, ok := sess.(QuietCloser); ok {
		return q.CloseQuietly()
	}

	return sess.Close()
}

// ResourceManager opens sessions and lists the reachable resources.
type ResourceManager interface {
	// Open opens a session to the resource at address.
	//
	// It fails with ErrInvalidAddress, ErrUnrecognizedInterface or ErrUnreachable.
	Open(ctx context.Context, address string) (Session, error)
	// ListResources returns the addresses of the reachable resources, it may be empty.
	ListResources(ctx context.Context) ([]string, error)
	// Close releases the manager and its backends.
	Close() error
}

// Backend opens sessions for one or more interface schemes.
type Backend interface {
	// Schemes returns the upper-case address schemes served by the backend.
	Schemes() []string
	// Open opens a session, failures to reach the device wrap ErrUnreachable.
	Open(ctx context.Context, addr Address) (Session, error)
	// List returns the addresses of the resources the backend can reach.
	List(ctx context.Context) ([]string, error)
	// Close releases backend resources.
	Close() error
}
