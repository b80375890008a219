package transfer

import "errors"

var (
	// ErrInvalidArgument indicates an unrecognized configuration alias or an out of range setting.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedBlock indicates that a binary reply does not match the configured framing.
	ErrMalformedBlock = errors.New("malformed binary block")

	// ErrMalformedText indicates that a text reply cannot be converted with the configured converter.
	ErrMalformedText = errors.New("malformed text data")

	// ErrValueRange indicates that a value cannot be represented by the target element type.
	ErrValueRange = errors.New("value out of range for element type")
)
