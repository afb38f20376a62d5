// Package model defines data structures for STAC catalog metadata used by the
// client: collections, items, asset descriptors, search parameters, and the
// shared asset-enumeration capability. These structs mirror the JSON documents
// returned by STAC API endpoints.
package model

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// AlternateIPFS is the alternate-asset key under which STAC items publish
// their IPFS location.
const AlternateIPFS = "IPFS"

// AssetContainer is implemented by catalog objects that declare assets: a
// single Item, a slice of Items, an ItemCollection, or a Collection. It is
// the dispatch point for enumerating asset names across heterogeneous
// search results.
type AssetContainer interface {
	// AssetNames returns the sorted set of unique asset names the object
	// declares, or nil when it declares none.
	AssetNames() []string
}

// Item is a single STAC item (a GeoJSON feature with assets).
type Item struct {
	ID         string               `json:"id"`
	Type       string               `json:"type,omitempty"`
	Collection string               `json:"collection,omitempty"`
	Geometry   json.RawMessage      `json:"geometry,omitempty"`
	BBox       []float64            `json:"bbox,omitempty"`
	Properties map[string]any       `json:"properties,omitempty"`
	Assets     map[string]*AssetRef `json:"assets,omitempty"`
	Links      []Link               `json:"links,omitempty"`
}

// AssetRef describes a declared (not yet fetched) asset of an item or
// collection: its primary location plus any alternate locations, of which
// the IPFS alternate carries the content identifier.
type AssetRef struct {
	Href      string               `json:"href"`
	Title     string               `json:"title,omitempty"`
	Type      string               `json:"type,omitempty"`
	Roles     []string             `json:"roles,omitempty"`
	Alternate map[string]Alternate `json:"alternate,omitempty"`
}

// Alternate is an alternate location of an asset, keyed by network name in
// AssetRef.Alternate.
type Alternate struct {
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// Link is a STAC hypermedia link.
type Link struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// ItemCollection is the GeoJSON feature collection returned by item search.
type ItemCollection struct {
	Type           string  `json:"type,omitempty"`
	Features       []*Item `json:"features"`
	Links          []Link  `json:"links,omitempty"`
	NumberMatched  int64   `json:"numberMatched,omitempty"`
	NumberReturned int64   `json:"numberReturned,omitempty"`
}

// Collection is a STAC collection descriptor. Collection-level assets are
// rare but allowed by the STAC spec, so Collection participates in asset
// enumeration too.
type Collection struct {
	ID          string               `json:"id"`
	StacVersion string               `json:"stac_version,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	License     string               `json:"license,omitempty"`
	Assets      map[string]*AssetRef `json:"assets,omitempty"`
	Links       []Link               `json:"links,omitempty"`
}

// CollectionList is the response of the collections listing endpoint.
type CollectionList struct {
	Collections []*Collection `json:"collections"`
	Links       []Link        `json:"links,omitempty"`
}

// SortField orders search results by a property.
type SortField struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"`
}

// SearchParams is the body of a STAC item-search request. Zero fields are
// omitted from the wire document, so the same struct serves bounding-box
// searches and free-form queries alike.
type SearchParams struct {
	BBox        []float64       `json:"bbox,omitempty"`
	Collections []string        `json:"collections,omitempty"`
	IDs         []string        `json:"ids,omitempty"`
	Datetime    string          `json:"datetime,omitempty"`
	Intersects  json.RawMessage `json:"intersects,omitempty"`
	Query       map[string]any  `json:"query,omitempty"`
	Filter      map[string]any  `json:"filter,omitempty"`
	SortBy      []SortField     `json:"sortby,omitempty"`
	Limit       int             `json:"limit,omitempty"`
}

// Items is a slice of items addressable as one asset container.
type Items []*Item

// AssetNames returns the sorted unique asset names declared by the item,
// or nil when it declares none.
func (i *Item) AssetNames() []string {
	return sortedNames(i.Assets)
}

// AssetNames returns the sorted unique asset names declared across all
// items in the slice, or nil when none declare any.
func (its Items) AssetNames() []string {
	set := make(map[string]struct{})
	for _, it := range its {
		if it == nil {
			continue
		}
		for name := range it.Assets {
			set[name] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(set))
}

// AssetNames returns the sorted unique asset names declared across the
// collection's features, or nil when none declare any.
func (ic *ItemCollection) AssetNames() []string {
	return Items(ic.Features).AssetNames()
}

// AssetNames returns the sorted unique asset names declared by the
// collection itself, or nil when it declares none.
func (c *Collection) AssetNames() []string {
	return sortedNames(c.Assets)
}

func sortedNames(assets map[string]*AssetRef) []string {
	if len(assets) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(assets))
}

// AssetCID returns the content identifier of the named asset. Returns false
// when the item does not declare the asset or no CID can be derived from its
// locations.
func (i *Item) AssetCID(name string) (string, bool) {
	ref, ok := i.Assets[name]
	if !ok || ref == nil {
		return "", false
	}
	return ref.CID()
}

// CID extracts the content identifier referenced by the asset. The IPFS
// alternate location takes precedence; the primary href is used when it is
// itself content-addressed. Returns false when neither yields a CID.
func (a *AssetRef) CID() (string, bool) {
	if alt, ok := a.Alternate[AlternateIPFS]; ok && alt.Href != "" {
		return cidFromHref(alt.Href), true
	}
	if strings.HasPrefix(a.Href, "ipfs://") || strings.Contains(a.Href, "/ipfs/") {
		return cidFromHref(a.Href), true
	}
	return "", false
}

// cidFromHref takes the last path segment of an asset location, accepting
// both gateway URLs and ipfs:// URIs.
func cidFromHref(href string) string {
	href = strings.TrimPrefix(href, "ipfs://")
	href = strings.TrimSuffix(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}
