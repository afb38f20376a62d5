// Package testutil hosts in-process doubles of the client's external
// collaborators: a kubo-style node control API with its content gateway, a
// standalone public gateway, and a minimal STAC catalog. Tests drive real
// HTTP clients against them and inspect captured requests afterwards.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CID computes the identifier the fake node assigns to data: CIDv1, raw
// codec, sha2-256, base32. This matches kubo's `add --cid-version=1` for
// single-block content, so round-trip properties hold against genuine
// content addressing.
func CID(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		panic(err)
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// StartServer wraps httptest.NewServer and skips the test when the sandbox
// forbids opening listeners.
func StartServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			if strings.Contains(msg, "operation not permitted") {
				t.Skip("network operations not permitted in sandbox")
			}
			panic(r)
		}
	}()
	return httptest.NewServer(handler)
}

// PinEntry is one pin record of the fake node.
type PinEntry struct {
	Type string
	Name string
}

// FakeNode is an in-memory stand-in for one local IPFS node: its control
// API (/api/v0/...) and its content gateway (/ipfs/<cid>).
type FakeNode struct {
	mu    sync.Mutex
	blobs map[string][]byte
	pins  map[string]PinEntry
	mfs   map[string]string
	dirs  map[string]bool

	lastChunker string

	hits   sync.Map // control route suffix -> *atomic.Int64
	gwHits atomic.Int64
	online atomic.Bool

	API     *httptest.Server
	Gateway *httptest.Server
}

// StartFakeNode brings up the control API and gateway servers. The node
// starts online; Close is registered with t.Cleanup.
func StartFakeNode(t *testing.T) *FakeNode {
	t.Helper()
	n := &FakeNode{
		blobs: make(map[string][]byte),
		pins:  make(map[string]PinEntry),
		mfs:   make(map[string]string),
		dirs:  make(map[string]bool),
	}
	n.online.Store(true)

	n.API = StartServer(t, http.HandlerFunc(n.handleAPI))
	n.Gateway = StartServer(t, http.HandlerFunc(n.handleGateway))
	t.Cleanup(func() {
		n.API.Close()
		n.Gateway.Close()
	})
	return n
}

// APIURL returns the control API base address.
func (n *FakeNode) APIURL() string { return n.API.URL }

// GatewayURL returns the content gateway base address.
func (n *FakeNode) GatewayURL() string { return n.Gateway.URL }

// SetOnline toggles the control API between ready and failing, for daemon
// readiness tests.
func (n *FakeNode) SetOnline(v bool) { n.online.Store(v) }

// Put stores data and returns its CID, making it available on the gateway.
func (n *FakeNode) Put(data []byte) string {
	id := CID(data)
	n.mu.Lock()
	n.blobs[id] = data
	n.mu.Unlock()
	return id
}

// SeedPin records a pin without going through the API.
func (n *FakeNode) SeedPin(id, pinType, name string) {
	n.mu.Lock()
	n.pins[id] = PinEntry{Type: pinType, Name: name}
	n.mu.Unlock()
}

// Pinned reports the pin record for id.
func (n *FakeNode) Pinned(id string) (PinEntry, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.pins[id]
	return e, ok
}

// Blob returns the stored content for id.
func (n *FakeNode) Blob(id string) ([]byte, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, ok := n.blobs[id]
	return b, ok
}

// MFS returns the CID registered under the mutable-namespace path.
func (n *FakeNode) MFS(path string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, ok := n.mfs[path]
	return id, ok
}

// LastChunker returns the chunker option of the most recent add.
func (n *FakeNode) LastChunker() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastChunker
}

// Hits returns how many times the control route ("add", "pin/ls", ...) was
// called.
func (n *FakeNode) Hits(route string) int64 {
	if v, ok := n.hits.Load(route); ok {
		return v.(*atomic.Int64).Load()
	}
	return 0
}

// GatewayHits returns how many content requests the gateway served.
func (n *FakeNode) GatewayHits() int64 { return n.gwHits.Load() }

func (n *FakeNode) count(route string) {
	v, _ := n.hits.LoadOrStore(route, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

func (n *FakeNode) handleGateway(w http.ResponseWriter, r *http.Request) {
	n.gwHits.Add(1)
	id := strings.TrimPrefix(r.URL.Path, "/ipfs/")
	id = strings.TrimSuffix(id, "/")
	n.mu.Lock()
	data, ok := n.blobs[id]
	n.mu.Unlock()
	if !ok {
		http.Error(w, "ipfs resolve: not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (n *FakeNode) handleAPI(w http.ResponseWriter, r *http.Request) {
	route := strings.TrimPrefix(r.URL.Path, "/api/v0/")
	n.count(route)

	if !n.online.Load() {
		apiError(w, http.StatusServiceUnavailable, "node offline")
		return
	}

	switch route {
	case "id":
		writeJSON(w, map[string]any{"ID": "fake-node", "AgentVersion": "testutil/0.1"})
	case "add":
		n.handleAdd(w, r)
	case "pin/add":
		n.handlePinAdd(w, r)
	case "pin/ls":
		n.handlePinLs(w, r)
	case "files/mkdir":
		n.handleMkdir(w, r)
	case "files/cp":
		n.handleFilesCp(w, r)
	default:
		apiError(w, http.StatusNotFound, "unknown command: "+route)
	}
}

func (n *FakeNode) handleAdd(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		apiError(w, http.StatusBadRequest, "file argument was not provided")
		return
	}
	part, err := mr.NextPart()
	if err != nil {
		apiError(w, http.StatusBadRequest, "file argument was not provided")
		return
	}
	data, err := io.ReadAll(part)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error())
		return
	}

	id := CID(data)
	q := r.URL.Query()

	n.mu.Lock()
	n.blobs[id] = data
	n.lastChunker = q.Get("chunker")
	if q.Get("pin") == "true" {
		n.pins[id] = PinEntry{Type: "recursive"}
	}
	n.mu.Unlock()

	writeJSON(w, map[string]string{
		"Name": part.FileName(),
		"Hash": id,
		"Size": strconv.Itoa(len(data)),
	})
}

func (n *FakeNode) handlePinAdd(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("arg")
	if id == "" {
		apiError(w, http.StatusBadRequest, "argument \"ipfs-path\" is required")
		return
	}
	name := r.URL.Query().Get("name")
	n.mu.Lock()
	n.pins[id] = PinEntry{Type: "recursive", Name: name}
	n.mu.Unlock()
	writeJSON(w, map[string]any{"Pins": []string{id}})
}

func (n *FakeNode) handlePinLs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pinType := q.Get("type")
	if pinType == "" {
		pinType = "all"
	}
	withNames := q.Get("names") == "true"

	type key struct {
		Type string `json:"Type"`
		Name string `json:"Name,omitempty"`
	}
	keys := make(map[string]key)
	n.mu.Lock()
	for id, e := range n.pins {
		if pinType != "all" && e.Type != pinType {
			continue
		}
		k := key{Type: e.Type}
		if withNames {
			k.Name = e.Name
		}
		keys[id] = k
	}
	n.mu.Unlock()

	writeJSON(w, map[string]any{"Keys": keys})
}

func (n *FakeNode) handleMkdir(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("arg")
	if path == "" {
		apiError(w, http.StatusBadRequest, "argument \"path\" is required")
		return
	}
	n.mu.Lock()
	n.dirs[path] = true
	n.mu.Unlock()
	writeJSON(w, map[string]any{})
}

func (n *FakeNode) handleFilesCp(w http.ResponseWriter, r *http.Request) {
	args := r.URL.Query()["arg"]
	if len(args) != 2 {
		apiError(w, http.StatusBadRequest, "expected source and destination arguments")
		return
	}
	src, dst := args[0], args[1]
	id := strings.TrimPrefix(src, "/ipfs/")

	n.mu.Lock()
	_, known := n.blobs[id]
	if !known {
		n.mu.Unlock()
		apiError(w, http.StatusInternalServerError, "cp: cannot resolve "+src)
		return
	}
	n.mfs[dst] = id
	n.mu.Unlock()
	writeJSON(w, map[string]any{})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// apiError answers in kubo's error envelope so RPC clients surface Message.
func apiError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"Message": msg,
		"Code":    0,
		"Type":    "error",
	})
}

// FakeGateway is a standalone public-gateway double serving /ipfs/<cid>
// from its own blob set.
type FakeGateway struct {
	mu    sync.Mutex
	blobs map[string][]byte
	hits  atomic.Int64

	Server *httptest.Server
}

// StartFakeGateway brings up an empty gateway. Close is registered with
// t.Cleanup.
func StartFakeGateway(t *testing.T) *FakeGateway {
	t.Helper()
	g := &FakeGateway{blobs: make(map[string][]byte)}
	g.Server = StartServer(t, http.HandlerFunc(g.handle))
	t.Cleanup(g.Server.Close)
	return g
}

// URL returns the gateway base address.
func (g *FakeGateway) URL() string { return g.Server.URL }

// Put stores data and returns its CID.
func (g *FakeGateway) Put(data []byte) string {
	id := CID(data)
	g.mu.Lock()
	g.blobs[id] = data
	g.mu.Unlock()
	return id
}

// Hits returns how many content requests the gateway served.
func (g *FakeGateway) Hits() int64 { return g.hits.Load() }

func (g *FakeGateway) handle(w http.ResponseWriter, r *http.Request) {
	g.hits.Add(1)
	id := strings.TrimPrefix(r.URL.Path, "/ipfs/")
	id = strings.TrimSuffix(id, "/")
	g.mu.Lock()
	data, ok := g.blobs[id]
	g.mu.Unlock()
	if !ok {
		http.Error(w, "ipfs resolve: not found", http.StatusNotFound)
		return
	}
	_, _ = w.Write(data)
}
