// Package storage provides the two transport layers under the client: HTTP
// gateway retrieval for reading content from anywhere, and the kubo RPC
// control API for operations that need a local node.
//
// # Gateway Retrieval
//
// Any gateway speaking the standard /ipfs/<cid> path layout works:
//
//	fetcher := storage.NewFetcher(2 * time.Minute)
//
//	data, found, err := fetcher.Fetch(ctx, "https://ipfs.io", cid)
//	if err != nil {
//		// gateway could not be consulted (network, timeout, 5xx)
//	}
//	if !found {
//		// gateway answered, but does not hold the content
//	}
//
// Fetch keeps three outcomes apart so callers can fall back to the next
// gateway on unreachability while treating a definitive "not here" as a
// miss. Raw-codec identifiers are re-hashed after download and a mismatch
// is logged.
//
// # Local Node Operations
//
// Pinning, importing and the mutable filesystem go through the node's
// control API:
//
//	node, err := storage.NewNodeClient("http://127.0.0.1:5001", 30*time.Second)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cid, err := node.Add(ctx, data, storage.AddOptions{
//		FileName: "scene.tif",
//		Pin:      true,
//		MFSPath:  "/landsat",
//	})
//
// A NodeClient built from an empty address is detached: Available reports
// false and every operation returns ErrNoLocalNode without touching the
// network. This lets gateway-only configurations share the same wiring.
//
// # Pin Listings
//
// PinList filters by pin record type:
//
//	cids, err := node.PinList(ctx, storage.PinRecursive)
//	named, err := node.PinListNamed(ctx, storage.PinAll)
//
// Valid types are direct, indirect, recursive and all. Results are sorted
// by identifier.
//
// # Identifier Hygiene
//
// NormalizeCID strips the usual decorations before an identifier hits the
// wire:
//
//	storage.NormalizeCID("ipfs://bafy...")                 // "bafy..."
//	storage.NormalizeCID("https://ipfs.io/ipfs/bafy.../")  // "bafy..."
//
// # Error Handling
//
// Failures map to package sentinels checked with errors.Is:
//
//   - ErrNoLocalNode: node operation on a detached client
//   - ErrInvalidParameters: bad argument combination, caught before any
//     network traffic
//   - ErrFileNotFound: AddFile path does not exist
//   - ErrUnreachableGateway: gateway transport failure or non-content
//     status
//
// # See Also
//
//   - config package for gateway and node addresses
//   - web3 package for the facade combining both transports
package storage
