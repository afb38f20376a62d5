package web3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/easierdata/ipfs-stac/internal/testutil"
	"github.com/easierdata/ipfs-stac/pkg/storage"
	"golang.org/x/image/tiff"
)

// fetchedAsset stores content on the node and returns its fetched asset.
func fetchedAsset(t *testing.T, c *Client, node *testutil.FakeNode, name string, content []byte) *Asset {
	t.Helper()
	item := itemWithAsset("test-item", name, node.Put(content))
	a, err := c.GetAssetFromItem(context.Background(), item, name, true)
	if err != nil {
		t.Fatalf("GetAssetFromItem error: %v", err)
	}
	return a
}

func TestAssetFetch_PrefersLocalGateway(t *testing.T) {
	c, _, node, public := newTestClient(t)

	content := []byte("held by both")
	node.Put(content)
	public.Put(content)

	a := fetchedAsset(t, c, node, "B4", content)
	if !a.Fetched() {
		t.Fatal("asset not fetched")
	}
	if hits := public.Hits(); hits != 0 {
		t.Fatalf("public gateway consulted %d times although the local node held the content", hits)
	}
}

func TestAssetFetch_FallsBackToPublicGateway(t *testing.T) {
	c, _, node, public := newTestClient(t)
	ctx := context.Background()

	content := []byte("held by public only")
	contentID := public.Put(content)
	item := itemWithAsset("test-item", "B4", contentID)

	a, err := c.GetAssetFromItem(ctx, item, "B4", true)
	if err != nil {
		t.Fatalf("GetAssetFromItem error: %v", err)
	}
	data, err := a.Data()
	if err != nil {
		t.Fatalf("Data error: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("data = %q, want %q", data, content)
	}
	if hits := node.GatewayHits(); hits == 0 {
		t.Fatal("local gateway was skipped")
	}
	if hits := public.Hits(); hits == 0 {
		t.Fatal("public gateway was never consulted")
	}
}

func TestAssetFetch_Idempotent(t *testing.T) {
	c, _, node, public := newTestClient(t)
	ctx := context.Background()

	content := []byte("fetch once")
	a := fetchedAsset(t, c, node, "B4", content)

	localHits, publicHits := node.GatewayHits(), public.Hits()
	if err := a.Fetch(ctx); err != nil {
		t.Fatalf("second Fetch error: %v", err)
	}
	if node.GatewayHits() != localHits || public.Hits() != publicHits {
		t.Fatal("second Fetch caused network traffic")
	}
	data, err := a.Data()
	if err != nil {
		t.Fatalf("Data error: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("data = %q, want %q", data, content)
	}
}

func TestAssetFetch_SkipsUnreachableGateway(t *testing.T) {
	dead := testutil.StartFakeGateway(t)
	deadURL := dead.URL()
	dead.Server.Close()

	alive := testutil.StartFakeGateway(t)
	content := []byte("behind a flaky chain")
	contentID := alive.Put(content)

	node, err := storage.NewNodeClient("", time.Second)
	if err != nil {
		t.Fatalf("NewNodeClient error: %v", err)
	}
	a := &Asset{
		name:      "B4",
		contentID: contentID,
		fetcher:   storage.NewFetcher(2 * time.Second),
		node:      node,
		gateways:  []string{deadURL, alive.URL()},
	}

	if err := a.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	data, err := a.Data()
	if err != nil {
		t.Fatalf("Data error: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("data = %q, want %q", data, content)
	}
}

func TestAssetFetch_NoGatewayHoldsContent(t *testing.T) {
	c, _, _, _ := newTestClient(t)
	ctx := context.Background()

	item := itemWithAsset("test-item", "B4", testutil.CID([]byte("vanished")))
	a, err := c.GetAssetFromItem(ctx, item, "B4", false)
	if err != nil {
		t.Fatalf("GetAssetFromItem error: %v", err)
	}
	if err := a.Fetch(ctx); !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Fetch error = %v, want ErrFetchFailed", err)
	}
	if a.Fetched() {
		t.Fatal("failed fetch marked the asset as fetched")
	}
}

func TestAssetAccessors(t *testing.T) {
	c, _, node, _ := newTestClient(t)

	content := []byte("accessor bytes")
	a := fetchedAsset(t, c, node, "B4", content)

	wantID := testutil.CID(content)
	if a.CID() != wantID {
		t.Fatalf("CID() = %q, want %q", a.CID(), wantID)
	}
	if a.Name() != "B4" {
		t.Fatalf("Name() = %q, want B4", a.Name())
	}
	if got := fmt.Sprint(a); got != wantID {
		t.Fatalf("String() = %q, want %q", got, wantID)
	}
}

func TestAssetFromCID(t *testing.T) {
	c, _, _, _ := newTestClient(t)
	ctx := context.Background()

	content := []byte("hello worlds")
	contentID, err := c.Upload(ctx, content, storage.AddOptions{})
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	a, err := c.AssetFromCID("ipfs://"+contentID, "payload")
	if err != nil {
		t.Fatalf("AssetFromCID error: %v", err)
	}
	if a.CID() != contentID {
		t.Fatalf("CID() = %q, want %q", a.CID(), contentID)
	}
	if a.Fetched() {
		t.Fatal("asset marked fetched before Fetch")
	}
	if err := a.Fetch(ctx); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	data, err := a.Data()
	if err != nil {
		t.Fatalf("Data error: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("data = %q, want %q", data, content)
	}

	if _, err := c.AssetFromCID("not a cid", "junk"); !errors.Is(err, storage.ErrInvalidParameters) {
		t.Fatalf("error = %v, want storage.ErrInvalidParameters", err)
	}
}

func TestAssetIsPinned(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	a := fetchedAsset(t, c, node, "B4", []byte("pin state"))

	pinned, err := a.IsPinned(ctx)
	if err != nil {
		t.Fatalf("IsPinned error: %v", err)
	}
	if pinned {
		t.Fatal("asset reported pinned before Pin")
	}

	if err := a.Pin(ctx); err != nil {
		t.Fatalf("Pin error: %v", err)
	}
	pinned, err = a.IsPinned(ctx)
	if err != nil {
		t.Fatalf("IsPinned error: %v", err)
	}
	if !pinned {
		t.Fatal("asset not reported pinned after Pin")
	}
}

func TestAssetPinnedState(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	a := fetchedAsset(t, c, node, "B4", []byte("pin cache"))

	if _, observed := a.PinnedState(); observed {
		t.Fatal("fresh asset carries a pin observation")
	}

	if _, err := a.IsPinned(ctx); err != nil {
		t.Fatalf("IsPinned error: %v", err)
	}
	pinned, observed := a.PinnedState()
	if !observed {
		t.Fatal("IsPinned left no observation")
	}
	if pinned {
		t.Fatal("observation reports pinned before Pin")
	}

	if err := a.Pin(ctx); err != nil {
		t.Fatalf("Pin error: %v", err)
	}
	if pinned, observed := a.PinnedState(); !pinned || !observed {
		t.Fatalf("after Pin observation = (%v, %v), want (true, true)", pinned, observed)
	}
}

func TestAssetIsPinned_NoLocalNode(t *testing.T) {
	node, err := storage.NewNodeClient("", time.Second)
	if err != nil {
		t.Fatalf("NewNodeClient error: %v", err)
	}
	a := &Asset{
		contentID: testutil.CID([]byte("anything")),
		fetcher:   storage.NewFetcher(time.Second),
		node:      node,
	}

	pinned, err := a.IsPinned(context.Background())
	if err != nil {
		t.Fatalf("IsPinned error: %v", err)
	}
	if pinned {
		t.Fatal("asset reported pinned without a node")
	}
	if _, observed := a.PinnedState(); observed {
		t.Fatal("no-node check recorded a pin observation")
	}

	if err := a.Pin(context.Background()); !errors.Is(err, storage.ErrNoLocalNode) {
		t.Fatalf("Pin error = %v, want storage.ErrNoLocalNode", err)
	}
}

func TestAssetAddToMFS(t *testing.T) {
	c, _, node, _ := newTestClient(t)
	ctx := context.Background()

	a := fetchedAsset(t, c, node, "B4", []byte("mfs asset"))
	if err := a.AddToMFS(ctx, "b4.tif", "/bands"); err != nil {
		t.Fatalf("AddToMFS error: %v", err)
	}
	if linked, ok := node.MFS("/bands/b4.tif"); !ok || linked != a.CID() {
		t.Fatalf("mfs entry = %q, %v", linked, ok)
	}

	if err := a.AddToMFS(ctx, "", "/bands"); !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("error = %v, want ErrPublishFailed", err)
	}
}

// gradientTIFF encodes a 16-bit grayscale raster with deterministic values.
func gradientTIFF(t *testing.T, width, height int) ([]byte, [][]float32) {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, width, height))
	want := make([][]float32, height)
	for y := 0; y < height; y++ {
		want[y] = make([]float32, width)
		for x := 0; x < width; x++ {
			v := uint16(1000*y + 100*x)
			img.SetGray16(x, y, color.Gray16{Y: v})
			want[y][x] = float32(v)
		}
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	return buf.Bytes(), want
}

func TestAssetToArray(t *testing.T) {
	c, _, node, _ := newTestClient(t)

	raster, want := gradientTIFF(t, 3, 2)
	a := fetchedAsset(t, c, node, "B4", raster)

	got, err := a.ToArray()
	if err != nil {
		t.Fatalf("ToArray error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("ToArray returned %d rows, want %d", len(got), len(want))
	}
	for y := range want {
		for x := range want[y] {
			if got[y][x] != want[y][x] {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got[y][x], want[y][x])
			}
		}
	}
}

func TestAssetToArray_NotFetched(t *testing.T) {
	c, _, node, _ := newTestClient(t)

	item := itemWithAsset("test-item", "B4", node.Put([]byte("raster")))
	a, err := c.GetAssetFromItem(context.Background(), item, "B4", false)
	if err != nil {
		t.Fatalf("GetAssetFromItem error: %v", err)
	}
	if _, err := a.ToArray(); !errors.Is(err, ErrDataNotFetched) {
		t.Fatalf("ToArray error = %v, want ErrDataNotFetched", err)
	}
}

func TestAssetToArray_DecodeError(t *testing.T) {
	c, _, node, _ := newTestClient(t)

	a := fetchedAsset(t, c, node, "B4", []byte("this is not an image"))
	if _, err := a.ToArray(); !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("ToArray error = %v, want ErrDecodeFailed", err)
	}
}

func TestAssetToMatrix(t *testing.T) {
	c, _, node, _ := newTestClient(t)

	raster, want := gradientTIFF(t, 3, 2)
	a := fetchedAsset(t, c, node, "B4", raster)

	m, err := a.ToMatrix()
	if err != nil {
		t.Fatalf("ToMatrix error: %v", err)
	}
	r, cols := m.Dims()
	if r != 2 || cols != 3 {
		t.Fatalf("matrix dims = %dx%d, want 2x3", r, cols)
	}
	if got := m.At(1, 2); got != float64(want[1][2]) {
		t.Fatalf("matrix At(1,2) = %v, want %v", got, want[1][2])
	}
}

func TestAssetToDataFrame(t *testing.T) {
	c, _, node, _ := newTestClient(t)

	a := fetchedAsset(t, c, node, "data", []byte("station,reading\nalpha,17\nbeta,23\n"))
	df, err := a.ToDataFrame()
	if err != nil {
		t.Fatalf("ToDataFrame error: %v", err)
	}
	if df.Nrow() != 2 {
		t.Fatalf("dataframe has %d rows, want 2", df.Nrow())
	}
}
