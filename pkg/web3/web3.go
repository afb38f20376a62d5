// Package web3 exposes the high-level client entry points. It wires together
// STAC catalog search, gateway content retrieval, local node operations and
// daemon lifecycle control.
package web3

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/easierdata/ipfs-stac/pkg/config"
	"github.com/easierdata/ipfs-stac/pkg/daemon"
	"github.com/easierdata/ipfs-stac/pkg/model"
	"github.com/easierdata/ipfs-stac/pkg/stac"
	"github.com/easierdata/ipfs-stac/pkg/storage"
	"github.com/go-gota/gota/dataframe"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Web3 is the public interface bridging a STAC catalog and the IPFS network.
// Catalog queries work anywhere; operations marked as node-bound need a
// local IPFS node and return storage.ErrNoLocalNode without one.
type Web3 interface {
	// ListCollections returns the catalog's collections. The first call
	// hits the network; subsequent calls are served from cache.
	ListCollections(ctx context.Context) ([]*model.Collection, error)

	// RefreshCollections re-reads the collections from the catalog and
	// replaces the cache.
	RefreshCollections(ctx context.Context) ([]*model.Collection, error)

	// CollectionIDs returns the cached collections' identifiers, sorted.
	CollectionIDs(ctx context.Context) ([]string, error)

	// Search sends the parameters to the catalog's search endpoint as-is.
	Search(ctx context.Context, params *model.SearchParams) (*model.ItemCollection, error)

	// SearchByBox queries items intersecting the bounding box
	// [west, south, east, north], optionally restricted to collections.
	// A malformed box fails with stac.ErrInvalidQuery before any network
	// traffic.
	SearchByBox(ctx context.Context, bbox []float64, collections ...string) (*model.ItemCollection, error)

	// SearchByBoxIndex runs SearchByBox and selects the result at index,
	// failing with stac.ErrIndexOutOfRange when the position does not
	// exist.
	SearchByBoxIndex(ctx context.Context, bbox []float64, index int, collections ...string) (*model.Item, error)

	// AssetNames returns the sorted distinct asset names of an item, an
	// item sequence or a collection. A nil source yields nil.
	AssetNames(source model.AssetContainer) []string

	// GetAssetFromItem resolves the named asset of item. With fetchData
	// the content is downloaded immediately, otherwise lazily on
	// Asset.Fetch.
	GetAssetFromItem(ctx context.Context, item *model.Item, name string, fetchData bool) (*Asset, error)

	// GetAssetsFromItem resolves several assets of item. With fetchData
	// the contents are downloaded concurrently before returning.
	GetAssetsFromItem(ctx context.Context, item *model.Item, names []string, fetchData bool) ([]*Asset, error)

	// AssetFromCID builds an Asset directly from a content identifier,
	// for content known by address rather than through a catalog item.
	AssetFromCID(contentID, name string) (*Asset, error)

	// GetFromCID fetches raw content by identifier through the gateway
	// fallback chain. The identifier may carry an ipfs:// scheme or a
	// gateway path prefix.
	GetFromCID(ctx context.Context, contentID string) ([]byte, error)

	// WriteToFile fetches content by identifier and writes it to path.
	WriteToFile(ctx context.Context, contentID, path string) error

	// CSVDataFrameFromCID fetches CSV content by identifier and parses it
	// into a dataframe.
	CSVDataFrameFromCID(ctx context.Context, contentID string) (dataframe.DataFrame, error)

	// Upload imports content into the local node. Node-bound.
	Upload(ctx context.Context, content []byte, opts storage.AddOptions) (string, error)

	// UploadFile imports the file at path into the local node. Node-bound.
	UploadFile(ctx context.Context, path string, opts storage.AddOptions) (string, error)

	// Pin keeps the identified content in the local node's pin set.
	// Node-bound.
	Pin(ctx context.Context, contentID string) error

	// Pins lists pinned identifiers of the given type, sorted. Node-bound.
	Pins(ctx context.Context, pinType storage.PinType) ([]string, error)

	// PinsNamed lists pinned identifiers with their pin names. Node-bound.
	PinsNamed(ctx context.Context, pinType storage.PinType) (map[string]string, error)

	// AddToMFS links identified content into the node's mutable
	// filesystem under mfsPath/filename. Node-bound; failures map to
	// ErrPublishFailed.
	AddToMFS(ctx context.Context, contentID, filename, mfsPath string) error

	// NodeAvailable reports whether a local node is configured.
	NodeAvailable() bool

	// StartDaemon launches the local node daemon and blocks until its API
	// answers. Idempotent on a running daemon. Node-bound.
	StartDaemon(ctx context.Context) error

	// ShutdownProcess terminates the daemon process started (or adopted)
	// by StartDaemon.
	ShutdownProcess(ctx context.Context) error

	// DaemonState reports the daemon lifecycle state.
	DaemonState() daemon.State

	// Close releases client resources. It does not stop a running daemon;
	// that stays under the caller's control.
	Close()
}

// init configures a default global zap logger for the client. Applications
// may replace it with zap.ReplaceGlobals(...) if they need custom logging.
func init() {
	logger, err := newLogger(zap.InfoLevel)
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	c := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return c.Build()
}

// Client is the concrete implementation of Web3. It embeds the validated
// runtime configuration.
type Client struct {
	*config.Config

	catalog *stac.Client
	fetcher storage.ContentFetcher
	node    *storage.NodeClient
	ctrl    *daemon.Controller

	mu          sync.RWMutex
	collections []*model.Collection
}

// New initializes the client with a validated configuration and wired
// catalog, gateway and node transports. Construction performs no network
// traffic; a missing local node only disables node-bound operations.
func New(cfg *config.Config) (Web3, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("web3: invalid config: %w", err)
	}
	cfg.Timeouts = cfg.Timeouts.WithDefaults()

	if cfg.Debug {
		logger, err := newLogger(zap.DebugLevel)
		if err != nil {
			return nil, fmt.Errorf("web3: build debug logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
	}

	node, err := storage.NewNodeClient(cfg.NodeAPIAddr(), cfg.Timeouts.NodeAPI)
	if err != nil {
		return nil, fmt.Errorf("web3: %w", err)
	}

	probe := func(ctx context.Context) error {
		_, err := node.ID(ctx)
		return err
	}

	c := &Client{
		Config:  cfg,
		catalog: stac.NewClient(cfg.StacEndpoint, cfg.Timeouts.Search),
		fetcher: storage.NewFetcher(cfg.Timeouts.Fetch),
		node:    node,
		ctrl:    daemon.New(cfg, probe),
	}

	zap.L().Debug("client initialized",
		zap.String("catalog", cfg.StacEndpoint),
		zap.Bool("local_node", node.Available()),
		zap.Strings("gateways", cfg.Gateways()))
	return c, nil
}

// Node returns the local node client for advanced operations beyond the
// facade surface.
func (c *Client) Node() *storage.NodeClient {
	return c.node
}

// Catalog returns the STAC client for advanced operations beyond the
// facade surface.
func (c *Client) Catalog() *stac.Client {
	return c.catalog
}

// ListCollections returns the catalog's collections, cached after the first
// successful call.
func (c *Client) ListCollections(ctx context.Context) ([]*model.Collection, error) {
	c.mu.RLock()
	cached := c.collections
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return c.RefreshCollections(ctx)
}

// RefreshCollections re-reads the collections from the catalog and replaces
// the cache.
func (c *Client) RefreshCollections(ctx context.Context) ([]*model.Collection, error) {
	collections, err := c.catalog.Collections(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.collections = collections
	c.mu.Unlock()
	return collections, nil
}

// CollectionIDs returns the cached collections' identifiers, sorted.
func (c *Client) CollectionIDs(ctx context.Context) ([]string, error) {
	collections, err := c.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(collections))
	for _, col := range collections {
		ids = append(ids, col.ID)
	}
	slices.Sort(ids)
	return ids, nil
}

// Search sends params to the catalog's search endpoint unchanged.
func (c *Client) Search(ctx context.Context, params *model.SearchParams) (*model.ItemCollection, error) {
	return c.catalog.Search(ctx, params)
}

// SearchByBox queries items intersecting bbox, optionally restricted to
// collections.
func (c *Client) SearchByBox(ctx context.Context, bbox []float64, collections ...string) (*model.ItemCollection, error) {
	return c.catalog.SearchByBox(ctx, bbox, collections...)
}

// SearchByBoxIndex runs SearchByBox and selects the result at index.
func (c *Client) SearchByBoxIndex(ctx context.Context, bbox []float64, index int, collections ...string) (*model.Item, error) {
	return c.catalog.SearchByBoxIndex(ctx, bbox, index, collections...)
}

// AssetNames returns the sorted distinct asset names carried by source.
func (c *Client) AssetNames(source model.AssetContainer) []string {
	if source == nil {
		return nil
	}
	return source.AssetNames()
}

// GetFromCID fetches raw content by identifier through the gateway fallback
// chain.
func (c *Client) GetFromCID(ctx context.Context, contentID string) ([]byte, error) {
	id := storage.NormalizeCID(contentID)
	if id == "" {
		return nil, fmt.Errorf("%w: empty content identifier", ErrFetchFailed)
	}
	return fetchFromGateways(ctx, c.fetcher, c.Gateways(), id)
}

// WriteToFile fetches content by identifier and writes it to path.
func (c *Client) WriteToFile(ctx context.Context, contentID, path string) error {
	data, err := c.GetFromCID(ctx, contentID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("web3: write %s: %w", path, err)
	}
	zap.L().Debug("wrote content to file",
		zap.String("cid", storage.NormalizeCID(contentID)),
		zap.String("path", path),
		zap.Int("bytes", len(data)))
	return nil
}

// CSVDataFrameFromCID fetches CSV content by identifier and parses it into
// a dataframe.
func (c *Client) CSVDataFrameFromCID(ctx context.Context, contentID string) (dataframe.DataFrame, error) {
	data, err := c.GetFromCID(ctx, contentID)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	df := dataframe.ReadCSV(bytes.NewReader(data))
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrDecodeFailed, df.Err)
	}
	return df, nil
}

// Upload imports content into the local node.
func (c *Client) Upload(ctx context.Context, content []byte, opts storage.AddOptions) (string, error) {
	return c.node.Add(ctx, content, opts)
}

// UploadFile imports the file at path into the local node.
func (c *Client) UploadFile(ctx context.Context, path string, opts storage.AddOptions) (string, error) {
	return c.node.AddFile(ctx, path, opts)
}

// Pin keeps the identified content in the local node's pin set.
func (c *Client) Pin(ctx context.Context, contentID string) error {
	return c.node.Pin(ctx, storage.NormalizeCID(contentID))
}

// Pins lists pinned identifiers of the given type, sorted.
func (c *Client) Pins(ctx context.Context, pinType storage.PinType) ([]string, error) {
	return c.node.PinList(ctx, pinType)
}

// PinsNamed lists pinned identifiers with their pin names.
func (c *Client) PinsNamed(ctx context.Context, pinType storage.PinType) (map[string]string, error) {
	return c.node.PinListNamed(ctx, pinType)
}

// AddToMFS links identified content into the node's mutable filesystem.
func (c *Client) AddToMFS(ctx context.Context, contentID, filename, mfsPath string) error {
	if err := c.node.CopyToMFS(ctx, storage.NormalizeCID(contentID), filename, mfsPath); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// NodeAvailable reports whether a local node is configured.
func (c *Client) NodeAvailable() bool {
	return c.node.Available()
}

// StartDaemon launches the local node daemon and blocks until its API
// answers the readiness probe.
func (c *Client) StartDaemon(ctx context.Context) error {
	if !c.node.Available() {
		return storage.ErrNoLocalNode
	}
	return c.ctrl.Start(ctx)
}

// ShutdownProcess terminates the daemon process.
func (c *Client) ShutdownProcess(ctx context.Context) error {
	return c.ctrl.Shutdown(ctx)
}

// DaemonState reports the daemon lifecycle state.
func (c *Client) DaemonState() daemon.State {
	return c.ctrl.State()
}

// Close flushes buffered log entries. A running daemon is left alone; use
// ShutdownProcess to stop it.
func (c *Client) Close() {
	_ = zap.L().Sync()
}
