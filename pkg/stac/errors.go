package stac

import "errors"

var (
	// ErrUnreachableEndpoint reports that the STAC endpoint did not respond
	// or answered with a non-success status.
	ErrUnreachableEndpoint = errors.New("stac: unreachable endpoint")

	// ErrInvalidQuery reports a malformed caller-supplied query, such as a
	// bounding box with the wrong arity or inverted bounds. No network call
	// is made for an invalid query.
	ErrInvalidQuery = errors.New("stac: invalid query")

	// ErrIndexOutOfRange reports that a search returned fewer items than the
	// requested index.
	ErrIndexOutOfRange = errors.New("stac: item index out of range")
)
