package storage

import "errors"

var (
	// ErrNoLocalNode is returned by node operations when no local IPFS
	// node is configured.
	ErrNoLocalNode = errors.New("storage: no local node configured")

	// ErrInvalidParameters is returned when an operation's arguments are
	// missing or cannot be combined, such as a mutable-filesystem path
	// given without a file name.
	ErrInvalidParameters = errors.New("storage: invalid parameters")

	// ErrFileNotFound is returned when a local path slated for upload
	// does not exist.
	ErrFileNotFound = errors.New("storage: file not found")

	// ErrUnreachableGateway is returned when a gateway could not be
	// consulted at all. A gateway answering that it does not hold the
	// content is not an error; Fetch reports that through its found
	// result instead.
	ErrUnreachableGateway = errors.New("storage: gateway unreachable")
)
