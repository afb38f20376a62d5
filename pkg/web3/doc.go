// Package web3 is the primary entry point for bridging STAC catalog search
// with IPFS content retrieval. It combines four concerns behind one facade:
// catalog queries, gateway fetches, local node operations and daemon
// lifecycle control.
//
// # Quick Start
//
//	import (
//		"github.com/easierdata/ipfs-stac/pkg/config"
//		"github.com/easierdata/ipfs-stac/pkg/web3"
//	)
//
//	client, err := web3.New(&config.Config{
//		LocalGateway: "127.0.0.1",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// Construction validates the configuration and wires the transports; it
// performs no network traffic. Without a LocalGateway the client runs in
// gateway-only mode: search and fetch work, node-bound operations return
// storage.ErrNoLocalNode.
//
// # Searching the Catalog
//
//	items, err := client.SearchByBox(ctx, []float64{-71.1, 42.2, -70.8, 42.4}, "landsat-c2l1")
//	item, err := client.SearchByBoxIndex(ctx, bbox, 0)
//	names := client.AssetNames(item)
//
// Collections are cached after the first listing; RefreshCollections
// re-reads them on demand.
//
// # Working With Assets
//
// Assets are lazy: resolving one moves no bytes until Fetch.
//
//	asset, err := client.GetAssetFromItem(ctx, item, "B4", false)
//	if err := asset.Fetch(ctx); err != nil {
//		log.Fatal(err)
//	}
//	raster, err := asset.ToArray()
//
// Fetch walks the gateway chain in order, the local node's gateway first,
// then the configured public gateways. Unreachable gateways are skipped.
// GetAssetsFromItem downloads several assets concurrently. For content known
// by address alone, AssetFromCID builds an Asset without a catalog item.
//
// # Local Node Operations
//
//	cid, err := client.Upload(ctx, data, storage.AddOptions{Pin: true})
//	err = client.AddToMFS(ctx, cid, "scene.tif", "/landsat")
//	pins, err := client.Pins(ctx, storage.PinAll)
//
// # Daemon Control
//
// The daemon never starts implicitly. StartDaemon launches the configured
// binary and blocks until the node API answers; ShutdownProcess terminates
// it. Both are idempotent.
//
// # Error Handling
//
// Failures map to sentinels checked with errors.Is:
//
//   - ErrAssetNotFound: item has no asset under the requested name
//   - ErrFetchFailed: no gateway delivered the content
//   - ErrDataNotFetched: asset bytes used before Fetch
//   - ErrDecodeFailed: content not decodable as raster or CSV
//   - ErrPublishFailed: mutable-filesystem placement failed
//   - storage.ErrNoLocalNode: node-bound call without a local node
//   - storage.ErrInvalidParameters: malformed content identifier
//   - stac.ErrInvalidQuery, stac.ErrIndexOutOfRange: malformed searches
//
// # See Also
//
//   - config package for all settings and defaults
//   - stac package for direct catalog access
//   - storage package for direct gateway and node access
//   - examples/ directory for complete programs
package web3
