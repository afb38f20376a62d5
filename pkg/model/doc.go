// Package model defines data structures representing STAC catalog objects
// and search parameters.
//
// This package contains the core data models that represent:
//   - Items (GeoJSON features with declared assets)
//   - Item collections (search result pages)
//   - Collections (catalog groupings)
//   - Asset descriptors with alternate IPFS locations
//   - Item-search request parameters
//
// These structures are populated from STAC API responses, providing a
// Go-native view of the catalog that the rest of the client resolves into
// content-addressed payloads.
//
// # Items and Assets
//
// Item is a single catalog entry. Its Assets map declares every payload the
// item offers, keyed by asset name:
//
//	type Item struct {
//		ID         string               // Unique identifier
//		Collection string               // Parent collection id
//		BBox       []float64            // Spatial extent
//		Properties map[string]any       // Datetime, platform, band info...
//		Assets     map[string]*AssetRef // Declared payloads by name
//	}
//
// AssetRef carries the asset's locations. Items indexed on IPFS publish the
// content identifier as an alternate location:
//
//	"assets": {
//		"nir08": {
//			"href": "https://example.com/LC09_nir08.tif",
//			"alternate": {
//				"IPFS": {"href": "ipfs://bafybeialq..."}
//			}
//		}
//	}
//
// AssetRef.CID and Item.AssetCID resolve that reference:
//
//	cid, ok := item.AssetCID("nir08")
//
// # Enumerating Assets
//
// AssetContainer is the shared capability for "what asset names does this
// object declare". It is implemented by *Item, Items, *ItemCollection and
// *Collection, so callers can enumerate assets over whatever a search
// returned without type switching:
//
//	names := results.AssetNames() // sorted, unique, nil when none
//
// # Search Parameters
//
// SearchParams mirrors the STAC item-search request body. Every field is
// optional on the wire, so the one struct covers bounding-box searches and
// free-form queries:
//
//	params := &model.SearchParams{
//		Collections: []string{"landsat-c2l1"},
//		BBox:        []float64{-77, 39, -76, 40},
//		Datetime:    "2023-01-01T00:00:00Z/..",
//		Limit:       100,
//	}
//
// # JSON Serialization
//
// All types carry JSON tags matching the STAC API wire format and can be
// marshaled and unmarshaled directly:
//
//	var ic model.ItemCollection
//	err := json.Unmarshal(body, &ic)
//
// # Thread Safety
//
// Model instances are created by catalog queries and then used read-only.
// If you mutate them, synchronize access yourself.
//
// # See Also
//
//   - stac package for the queries that populate these types
//   - web3 package for resolving assets into fetched payloads
package model
