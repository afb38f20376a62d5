package web3

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/easierdata/ipfs-stac/internal/testutil"
	"github.com/easierdata/ipfs-stac/pkg/config"
	"github.com/easierdata/ipfs-stac/pkg/daemon"
	"github.com/easierdata/ipfs-stac/pkg/model"
	"github.com/easierdata/ipfs-stac/pkg/stac"
	"github.com/easierdata/ipfs-stac/pkg/storage"
)

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %s: %v", rawURL, err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse port of %s: %v", rawURL, err)
	}
	return u.Scheme + "://" + u.Hostname(), port
}

// newTestClient wires a client against fake catalog, node and public
// gateway servers.
func newTestClient(t *testing.T) (*Client, *testutil.FakeCatalog, *testutil.FakeNode, *testutil.FakeGateway) {
	t.Helper()
	catalog := testutil.StartFakeCatalog(t, "landsat-c2l1", "sentinel-2")
	node := testutil.StartFakeNode(t)
	public := testutil.StartFakeGateway(t)

	host, apiPort := splitHostPort(t, node.APIURL())
	_, gatewayPort := splitHostPort(t, node.GatewayURL())

	cfg := &config.Config{
		StacEndpoint:  catalog.URL(),
		LocalGateway:  host,
		APIPort:       apiPort,
		GatewayPort:   gatewayPort,
		PublicGateway: public.URL(),
		Timeouts: config.Timeouts{
			Search:      5 * time.Second,
			Fetch:       5 * time.Second,
			NodeAPI:     5 * time.Second,
			DaemonStart: 2 * time.Second,
			DaemonPoll:  20 * time.Millisecond,
		},
	}

	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c := w.(*Client)

	// Tests must not touch the host's process table.
	c.ctrl = daemon.New(cfg, func(ctx context.Context) error {
		_, err := c.node.ID(ctx)
		return err
	}, daemon.WithProcessDetection(false))

	return c, catalog, node, public
}

// itemWithAsset declares a catalog item carrying one IPFS-addressed asset.
func itemWithAsset(itemID, assetName, contentID string) *model.Item {
	return &model.Item{
		ID:         itemID,
		Type:       "Feature",
		Collection: "landsat-c2l1",
		Assets: map[string]*model.AssetRef{
			assetName: {
				Href: "https://landsat.example/" + itemID + "/" + assetName + ".TIF",
				Alternate: map[string]model.Alternate{
					model.AlternateIPFS: {Href: "ipfs://" + contentID},
				},
			},
		},
	}
}

func TestClientListCollections_Cached(t *testing.T) {
	c, catalog, _, _ := newTestClient(t)
	ctx := context.Background()

	first, err := c.ListCollections(ctx)
	if err != nil {
		t.Fatalf("ListCollections error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("got %d collections, want 2", len(first))
	}

	if _, err := c.ListCollections(ctx); err != nil {
		t.Fatalf("second ListCollections error: %v", err)
	}
	if hits := catalog.CollectionHits(); hits != 1 {
		t.Fatalf("catalog served %d collection requests, want 1", hits)
	}

	ids, err := c.CollectionIDs(ctx)
	if err != nil {
		t.Fatalf("CollectionIDs error: %v", err)
	}
	want := []string{"landsat-c2l1", "sentinel-2"}
	if !slices.Equal(ids, want) {
		t.Fatalf("CollectionIDs = %v, want %v", ids, want)
	}
	if hits := catalog.CollectionHits(); hits != 1 {
		t.Fatalf("catalog served %d collection requests after CollectionIDs, want 1", hits)
	}

	if _, err := c.RefreshCollections(ctx); err != nil {
		t.Fatalf("RefreshCollections error: %v", err)
	}
	if hits := catalog.CollectionHits(); hits != 2 {
		t.Fatalf("catalog served %d collection requests after refresh, want 2", hits)
	}
}

func TestClientSearchByBox(t *testing.T) {
	c, catalog, _, _ := newTestClient(t)
	catalog.AddItem(
		itemWithAsset("LC09_L1TP_011031", "B4", testutil.CID([]byte("b4"))),
		itemWithAsset("LC09_L1TP_011032", "B5", testutil.CID([]byte("b5"))),
	)
	ctx := context.Background()

	got, err := c.SearchByBox(ctx, []float64{-71.1, 42.2, -70.8, 42.4}, "landsat-c2l1")
	if err != nil {
		t.Fatalf("SearchByBox error: %v", err)
	}
	if len(got.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(got.Features))
	}
	if hits := catalog.SearchHits(); hits != 1 {
		t.Fatalf("catalog served %d search requests, want 1", hits)
	}
	last := catalog.LastSearch()
	if last == nil || !slices.Equal(last.Collections, []string{"landsat-c2l1"}) {
		t.Fatalf("unexpected search body: %+v", last)
	}
}

func TestClientSearchByBox_InvalidQueryNoTraffic(t *testing.T) {
	c, catalog, _, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.SearchByBox(ctx, []float64{10, 20, 5, 25})
	if !errors.Is(err, stac.ErrInvalidQuery) {
		t.Fatalf("error = %v, want stac.ErrInvalidQuery", err)
	}
	if hits := catalog.SearchHits(); hits != 0 {
		t.Fatalf("malformed query reached the catalog %d times", hits)
	}
}

func TestClientSearchByBoxIndex(t *testing.T) {
	c, catalog, _, _ := newTestClient(t)
	catalog.AddItem(
		itemWithAsset("item-zero", "B4", testutil.CID([]byte("b4"))),
		itemWithAsset("item-one", "B4", testutil.CID([]byte("b4"))),
	)
	ctx := context.Background()
	bbox := []float64{-71.1, 42.2, -70.8, 42.4}

	item, err := c.SearchByBoxIndex(ctx, bbox, 1)
	if err != nil {
		t.Fatalf("SearchByBoxIndex error: %v", err)
	}
	if item.ID != "item-one" {
		t.Fatalf("selected item %q, want item-one", item.ID)
	}

	if _, err := c.SearchByBoxIndex(ctx, bbox, 5); !errors.Is(err, stac.ErrIndexOutOfRange) {
		t.Fatalf("error = %v, want stac.ErrIndexOutOfRange", err)
	}
	if _, err := c.SearchByBoxIndex(ctx, bbox, -1); !errors.Is(err, stac.ErrIndexOutOfRange) {
		t.Fatalf("error = %v, want stac.ErrIndexOutOfRange", err)
	}
}

func TestClientAssetNames(t *testing.T) {
	c, _, _, _ := newTestClient(t)

	item := &model.Item{
		ID: "scene",
		Assets: map[string]*model.AssetRef{
			"B4":        {Href: "ipfs://x"},
			"B2":        {Href: "ipfs://y"},
			"thumbnail": {Href: "ipfs://z"},
		},
	}
	want := []string{"B2", "B4", "thumbnail"}
	if got := c.AssetNames(item); !slices.Equal(got, want) {
		t.Fatalf("AssetNames = %v, want %v", got, want)
	}
	if got := c.AssetNames(nil); got != nil {
		t.Fatalf("AssetNames(nil) = %v, want nil", got)
	}
}

func TestClientGetAssetFromItem(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	content := []byte("band four pixels")
	contentID := node.Put(content)
	item := itemWithAsset("LC09", "B4", contentID)

	a, err := c.GetAssetFromItem(ctx, item, "B4", true)
	if err != nil {
		t.Fatalf("GetAssetFromItem error: %v", err)
	}
	if !a.Fetched() {
		t.Fatal("asset not fetched despite fetchData")
	}
	data, err := a.Data()
	if err != nil {
		t.Fatalf("Data error: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("asset data = %q, want %q", data, content)
	}
	if a.String() != contentID {
		t.Fatalf("asset String() = %q, want %q", a.String(), contentID)
	}

	if _, err := c.GetAssetFromItem(ctx, item, "B9", false); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("error = %v, want ErrAssetNotFound", err)
	}
	if _, err := c.GetAssetFromItem(ctx, nil, "B4", false); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("error = %v, want ErrAssetNotFound", err)
	}
}

func TestClientGetAssetFromItem_Lazy(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	content := []byte("lazy band")
	item := itemWithAsset("LC09", "B4", node.Put(content))

	a, err := c.GetAssetFromItem(ctx, item, "B4", false)
	if err != nil {
		t.Fatalf("GetAssetFromItem error: %v", err)
	}
	if a.Fetched() {
		t.Fatal("asset fetched without being asked to")
	}
	if hits := node.GatewayHits(); hits != 0 {
		t.Fatalf("lazy construction caused %d gateway requests", hits)
	}
	if _, err := a.Data(); !errors.Is(err, ErrDataNotFetched) {
		t.Fatalf("Data error = %v, want ErrDataNotFetched", err)
	}

	if err := a.Fetch(ctx); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	data, err := a.Data()
	if err != nil {
		t.Fatalf("Data error: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("asset data = %q, want %q", data, content)
	}
}

func TestClientGetAssetsFromItem(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	contents := map[string][]byte{
		"B2": []byte("blue band"),
		"B3": []byte("green band"),
		"B4": []byte("red band"),
	}
	item := &model.Item{ID: "LC09", Assets: map[string]*model.AssetRef{}}
	for name, data := range contents {
		item.Assets[name] = &model.AssetRef{
			Alternate: map[string]model.Alternate{
				model.AlternateIPFS: {Href: "ipfs://" + node.Put(data)},
			},
		}
	}

	assets, err := c.GetAssetsFromItem(ctx, item, []string{"B2", "B3", "B4"}, true)
	if err != nil {
		t.Fatalf("GetAssetsFromItem error: %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("got %d assets, want 3", len(assets))
	}
	for _, a := range assets {
		data, err := a.Data()
		if err != nil {
			t.Fatalf("asset %s Data error: %v", a.Name(), err)
		}
		if string(data) != string(contents[a.Name()]) {
			t.Fatalf("asset %s data = %q", a.Name(), data)
		}
	}

	_, err = c.GetAssetsFromItem(ctx, item, []string{"B2", "B99"}, true)
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("error = %v, want ErrAssetNotFound", err)
	}
}

func TestClientGetFromCID(t *testing.T) {
	c, _, node, public := newTestClient(t)
	ctx := context.Background()

	// Content held only by the public gateway: the local node misses and
	// the chain falls through.
	content := []byte("public only bytes")
	contentID := public.Put(content)

	data, err := c.GetFromCID(ctx, "ipfs://"+contentID)
	if err != nil {
		t.Fatalf("GetFromCID error: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("data = %q, want %q", data, content)
	}
	if hits := node.GatewayHits(); hits == 0 {
		t.Fatal("local gateway was never consulted")
	}
	if hits := public.Hits(); hits == 0 {
		t.Fatal("public gateway was never consulted")
	}
}

func TestClientGetFromCID_Missing(t *testing.T) {
	c, _, _, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.GetFromCID(ctx, testutil.CID([]byte("nowhere")))
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error = %v, want ErrFetchFailed", err)
	}
	if _, err := c.GetFromCID(ctx, ""); !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error for empty id = %v, want ErrFetchFailed", err)
	}
}

func TestClientWriteToFile(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	content := []byte("file payload")
	contentID := node.Put(content)
	path := filepath.Join(t.TempDir(), "out.bin")

	if err := c.WriteToFile(ctx, contentID, path); err != nil {
		t.Fatalf("WriteToFile error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("file contents = %q, want %q", got, content)
	}
}

func TestClientCSVDataFrameFromCID(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	csv := "city,temp\nboston,21\nnew york,25\n"
	contentID := node.Put([]byte(csv))

	df, err := c.CSVDataFrameFromCID(ctx, contentID)
	if err != nil {
		t.Fatalf("CSVDataFrameFromCID error: %v", err)
	}
	if df.Nrow() != 2 {
		t.Fatalf("dataframe has %d rows, want 2", df.Nrow())
	}
	if names := df.Names(); !slices.Equal(names, []string{"city", "temp"}) {
		t.Fatalf("dataframe columns = %v", names)
	}

	bad := node.Put([]byte("a,b\n1\n"))
	if _, err := c.CSVDataFrameFromCID(ctx, bad); !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("error = %v, want ErrDecodeFailed", err)
	}
}

func TestClientUploadRoundTrip(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	content := []byte("hello worlds")
	contentID, err := c.Upload(ctx, content, storage.AddOptions{Pin: true})
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if want := testutil.CID(content); contentID != want {
		t.Fatalf("Upload returned %q, want %q", contentID, want)
	}

	pins, err := c.Pins(ctx, storage.PinAll)
	if err != nil {
		t.Fatalf("Pins error: %v", err)
	}
	if !slices.Contains(pins, contentID) {
		t.Fatalf("pin list %v does not contain %s", pins, contentID)
	}

	data, err := c.GetFromCID(ctx, contentID)
	if err != nil {
		t.Fatalf("GetFromCID error: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("round trip returned %q, want %q", data, content)
	}
	if hits := node.Hits("add"); hits != 1 {
		t.Fatalf("node served %d add requests, want 1", hits)
	}
}

func TestClientUploadFile(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "scene.tif")
	if err := os.WriteFile(path, []byte("tif payload"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	contentID, err := c.UploadFile(ctx, path, storage.AddOptions{MFSPath: "/scenes"})
	if err != nil {
		t.Fatalf("UploadFile error: %v", err)
	}
	if linked, ok := node.MFS("/scenes/scene.tif"); !ok || linked != contentID {
		t.Fatalf("mfs entry = %q, %v", linked, ok)
	}

	_, err = c.UploadFile(ctx, filepath.Join(t.TempDir(), "missing.tif"), storage.AddOptions{})
	if !errors.Is(err, storage.ErrFileNotFound) {
		t.Fatalf("error = %v, want storage.ErrFileNotFound", err)
	}
}

func TestClientAddToMFS(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	contentID := node.Put([]byte("publish me"))
	if err := c.AddToMFS(ctx, contentID, "pub.bin", "/public"); err != nil {
		t.Fatalf("AddToMFS error: %v", err)
	}
	if linked, ok := node.MFS("/public/pub.bin"); !ok || linked != contentID {
		t.Fatalf("mfs entry = %q, %v", linked, ok)
	}

	// Unknown content cannot be resolved by the node.
	err := c.AddToMFS(ctx, testutil.CID([]byte("unknown")), "x.bin", "/public")
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("error = %v, want ErrPublishFailed", err)
	}
}

func TestClientWithoutLocalNode(t *testing.T) {
	catalog := testutil.StartFakeCatalog(t, "landsat-c2l1")
	public := testutil.StartFakeGateway(t)

	cfg := &config.Config{
		StacEndpoint:  catalog.URL(),
		PublicGateway: public.URL(),
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer w.Close()

	if w.NodeAvailable() {
		t.Fatal("NodeAvailable = true without a local node")
	}

	ctx := context.Background()
	if _, err := w.Upload(ctx, []byte("x"), storage.AddOptions{}); !errors.Is(err, storage.ErrNoLocalNode) {
		t.Fatalf("Upload error = %v, want storage.ErrNoLocalNode", err)
	}
	if err := w.Pin(ctx, "bafyExample"); !errors.Is(err, storage.ErrNoLocalNode) {
		t.Fatalf("Pin error = %v, want storage.ErrNoLocalNode", err)
	}
	if _, err := w.Pins(ctx, storage.PinAll); !errors.Is(err, storage.ErrNoLocalNode) {
		t.Fatalf("Pins error = %v, want storage.ErrNoLocalNode", err)
	}
	err = w.AddToMFS(ctx, "bafyExample", "f", "/d")
	if !errors.Is(err, ErrPublishFailed) || !errors.Is(err, storage.ErrNoLocalNode) {
		t.Fatalf("AddToMFS error = %v, want ErrPublishFailed wrapping storage.ErrNoLocalNode", err)
	}
	if err := w.StartDaemon(ctx); !errors.Is(err, storage.ErrNoLocalNode) {
		t.Fatalf("StartDaemon error = %v, want storage.ErrNoLocalNode", err)
	}

	// Gateway-only retrieval still works.
	content := []byte("gateway only")
	contentID := public.Put(content)
	data, err := w.GetFromCID(ctx, contentID)
	if err != nil {
		t.Fatalf("GetFromCID error: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("data = %q, want %q", data, content)
	}
}

func TestClientDaemonLifecycle(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	if got := c.DaemonState(); got != daemon.StateStopped {
		t.Fatalf("initial daemon state = %s, want stopped", got)
	}

	if err := c.StartDaemon(ctx); err != nil {
		t.Fatalf("StartDaemon error: %v", err)
	}
	if got := c.DaemonState(); got != daemon.StateRunning {
		t.Fatalf("daemon state = %s, want running", got)
	}
	probes := node.Hits("id")

	// Starting again is a no-op and probes nothing.
	if err := c.StartDaemon(ctx); err != nil {
		t.Fatalf("second StartDaemon error: %v", err)
	}
	if got := node.Hits("id"); got != probes {
		t.Fatalf("idempotent StartDaemon probed the node (%d -> %d)", probes, got)
	}

	if err := c.ShutdownProcess(ctx); err != nil {
		t.Fatalf("ShutdownProcess error: %v", err)
	}
	if got := c.DaemonState(); got != daemon.StateStopped {
		t.Fatalf("daemon state after shutdown = %s, want stopped", got)
	}
}

func TestClientFullWorkflow(t *testing.T) {
	c, catalog, node, _ := newTestClient(t)
	ctx := context.Background()

	payload := []byte("near infrared band bytes")
	catalog.AddItem(itemWithAsset("LC09_L1TP_015033", "nir08", node.Put(payload)))

	results, err := c.SearchByBox(ctx, []float64{-77, 39, -76, 40}, "landsat-c2l1")
	if err != nil {
		t.Fatalf("SearchByBox error: %v", err)
	}
	if len(results.Features) == 0 {
		t.Fatal("search returned no items")
	}

	a, err := c.GetAssetFromItem(ctx, results.Features[0], "nir08", false)
	if err != nil {
		t.Fatalf("GetAssetFromItem error: %v", err)
	}
	if err := a.Fetch(ctx); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	data, err := a.Data()
	if err != nil {
		t.Fatalf("Data error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("fetched asset holds no data")
	}
	if string(data) != string(payload) {
		t.Fatalf("data = %q, want %q", data, payload)
	}
	if a.String() != testutil.CID(payload) {
		t.Fatalf("String() = %q, want %q", a.String(), testutil.CID(payload))
	}
}
