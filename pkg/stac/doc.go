// Package stac provides the catalog client for STAC API endpoints.
//
// The client covers the catalog interactions the library needs: listing
// collections and searching items, by bounding box or with free-form
// parameters. It deliberately does not model the whole STAC protocol; the
// endpoint owns the wire format and this package constrains only what it
// sends and how failures are classified.
//
// # Searching
//
// Bounding-box searches validate the box locally before touching the
// network. A box is [minLon, minLat, maxLon, maxLat] with min <= max on
// each axis:
//
//	c := stac.NewClient("https://stac.easierdata.info", 30*time.Second)
//	ic, err := c.SearchByBox(ctx, []float64{-77, 39, -76, 40}, "landsat-c2l1")
//
// Free-form searches forward parameters unmodified:
//
//	ic, err := c.Search(ctx, &model.SearchParams{
//		Collections: []string{"landsat-c2l1"},
//		Datetime:    "2023-01-01T00:00:00Z/..",
//		Limit:       100,
//	})
//
// SearchByBoxIndex picks one item out of the result:
//
//	item, err := c.SearchByBoxIndex(ctx, bbox, 0, "landsat-c2l1")
//
// # Error Classification
//
// Three sentinel errors cover the failure modes, matched with errors.Is:
//
//	stac.ErrInvalidQuery       caller input violates a precondition; no
//	                           network call was made
//	stac.ErrIndexOutOfRange    the search returned fewer items than asked for
//	stac.ErrUnreachableEndpoint the endpoint did not respond or answered with
//	                           a non-success status
//
// # See Also
//
//   - model package for the item/collection documents
//   - web3 package for the facade that caches collection ids and resolves
//     assets into fetched payloads
package stac
