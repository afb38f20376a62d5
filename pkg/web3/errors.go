package web3

import "errors"

var (
	// ErrAssetNotFound is returned when an item does not carry an asset
	// under the requested name, or the asset has no content identifier.
	ErrAssetNotFound = errors.New("web3: asset not found")

	// ErrFetchFailed is returned when no configured gateway could deliver
	// the requested content.
	ErrFetchFailed = errors.New("web3: fetch failed")

	// ErrDataNotFetched is returned by accessors that need asset bytes
	// before Fetch has succeeded.
	ErrDataNotFetched = errors.New("web3: asset data not fetched")

	// ErrDecodeFailed is returned when fetched bytes cannot be decoded
	// into the requested representation.
	ErrDecodeFailed = errors.New("web3: decode failed")

	// ErrPublishFailed is returned when content could not be placed into
	// the node's mutable filesystem.
	ErrPublishFailed = errors.New("web3: publish failed")
)
