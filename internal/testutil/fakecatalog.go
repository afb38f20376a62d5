package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/easierdata/ipfs-stac/pkg/model"
)

// FakeCatalog is a canned STAC endpoint answering /collections and /search.
type FakeCatalog struct {
	mu          sync.Mutex
	collections []*model.Collection
	features    []*model.Item

	collectionHits atomic.Int64
	searchHits     atomic.Int64
	lastSearch     atomic.Pointer[model.SearchParams]

	Server *httptest.Server
}

// StartFakeCatalog brings up the catalog with the given collection IDs.
// Close is registered with t.Cleanup.
func StartFakeCatalog(t *testing.T, collectionIDs ...string) *FakeCatalog {
	t.Helper()
	c := &FakeCatalog{}
	for _, id := range collectionIDs {
		c.collections = append(c.collections, &model.Collection{
			ID:          id,
			Description: "test collection " + id,
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/collections", c.handleCollections)
	mux.HandleFunc("/search", c.handleSearch)
	c.Server = StartServer(t, mux)
	t.Cleanup(c.Server.Close)
	return c
}

// URL returns the catalog base address.
func (c *FakeCatalog) URL() string { return c.Server.URL }

// AddItem appends a feature to the canned search result.
func (c *FakeCatalog) AddItem(items ...*model.Item) {
	c.mu.Lock()
	c.features = append(c.features, items...)
	c.mu.Unlock()
}

// CollectionHits returns how many times /collections was served.
func (c *FakeCatalog) CollectionHits() int64 { return c.collectionHits.Load() }

// SearchHits returns how many times /search was served.
func (c *FakeCatalog) SearchHits() int64 { return c.searchHits.Load() }

// LastSearch returns the most recent decoded search request body.
func (c *FakeCatalog) LastSearch() *model.SearchParams { return c.lastSearch.Load() }

func (c *FakeCatalog) handleCollections(w http.ResponseWriter, r *http.Request) {
	c.collectionHits.Add(1)
	c.mu.Lock()
	out := map[string]any{"collections": c.collections}
	c.mu.Unlock()
	writeJSON(w, out)
}

func (c *FakeCatalog) handleSearch(w http.ResponseWriter, r *http.Request) {
	c.searchHits.Add(1)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var params model.SearchParams
	if err := json.Unmarshal(body, &params); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.lastSearch.Store(&params)

	c.mu.Lock()
	features := c.features
	c.mu.Unlock()

	writeJSON(w, map[string]any{
		"type":     "FeatureCollection",
		"features": features,
	})
}
