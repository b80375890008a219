package instrument

import "errors"

// identification and dispatch errors
var (
	// ErrNoResponse indicates that the device did not answer the identification query.
	ErrNoResponse = errors.New("no response to identification query")

	// ErrMalformedIdentity indicates that the identification reply does not have exactly four fields.
	ErrMalformedIdentity = errors.New("malformed identity")

	// ErrUnknownManufacturer indicates that no builder is registered for the manufacturer.
	ErrUnknownManufacturer = errors.New("unknown manufacturer")

	// ErrUnknownModel indicates that the manufacturer is known but the model is not.
	ErrUnknownModel = errors.New("unknown model")
)

// session lifecycle errors
var (
	// ErrUnattached indicates an I/O operation on an instrument without a session.
	ErrUnattached = errors.New("instrument is not attached")

	// ErrNotAttachable indicates that the instrument already has a session.
	ErrNotAttachable = errors.New("instrument already has a session")

	// ErrInvalidSession indicates that the session handle is missing or no longer usable.
	ErrInvalidSession = errors.New("invalid session")

	// ErrIO indicates a transient transport failure, the session stays attached.
	ErrIO = errors.New("instrument i/o error")
)

// data transfer errors
var (
	// ErrNoFormatSelected indicates a data query before a transfer format is activated.
	ErrNoFormatSelected = errors.New("no transfer format activated")

	// ErrUnsupportedFormat indicates an activated format the instrument cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported transfer format")
)

var (
	// ErrLockDenied indicates that the device refused the remote lock request.
	ErrLockDenied = errors.New("remote lock denied")

	// ErrNotImplemented indicates an operation the instrument family does not provide.
	ErrNotImplemented = errors.New("not implemented")
)
