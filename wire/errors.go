package wire

import (
	"errors"
)

// Wire-level decoding errors. Message-level decoding wraps these with
// field context; use errors.Is to test for them.
var (
	// ErrMalformedVarint is returned when a varint has no terminating
	// byte within the 10-byte limit of a 64-bit value.
	ErrMalformedVarint = errors.New("malformed varint")

	// ErrTruncated is returned when a field's declared or implied size
	// runs past the end of the buffer.
	ErrTruncated = errors.New("truncated input")

	// ErrUnknownWireType is returned for wire types 3, 4, 6 and 7,
	// which cannot be decoded or skipped.
	ErrUnknownWireType = errors.New("unknown wire type")
)
