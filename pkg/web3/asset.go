package web3

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/easierdata/ipfs-stac/pkg/model"
	"github.com/easierdata/ipfs-stac/pkg/storage"
	"github.com/go-gota/gota/dataframe"
	"github.com/ipfs/go-cid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// maxConcurrentFetches bounds the gateway parallelism of bulk asset
// downloads.
const maxConcurrentFetches = 4

// Asset is one downloadable product of a catalog item, addressed by its
// content identifier. Content is fetched lazily: construction and search
// never move asset bytes.
//
// An Asset is not safe for concurrent use; fetch each asset from one
// goroutine at a time.
type Asset struct {
	name      string
	contentID string

	data    []byte
	fetched bool

	// last pin observation; meaningful only once pinObserved is set.
	pinned      bool
	pinObserved bool

	fetcher  storage.ContentFetcher
	node     *storage.NodeClient
	gateways []string
}

// GetAssetFromItem resolves the named asset of item. With fetchData the
// content is downloaded before returning.
func (c *Client) GetAssetFromItem(ctx context.Context, item *model.Item, name string, fetchData bool) (*Asset, error) {
	if item == nil {
		return nil, fmt.Errorf("%w: nil item", ErrAssetNotFound)
	}
	contentID, ok := item.AssetCID(name)
	if !ok {
		return nil, fmt.Errorf("%w: item %s has no asset %q", ErrAssetNotFound, item.ID, name)
	}

	a := &Asset{
		name:      name,
		contentID: storage.NormalizeCID(contentID),
		fetcher:   c.fetcher,
		node:      c.node,
		gateways:  c.Gateways(),
	}
	if fetchData {
		if err := a.Fetch(ctx); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// AssetFromCID builds an Asset directly from a content identifier, for
// content known by address rather than through a catalog item. The
// identifier may carry an ipfs:// scheme or a gateway path prefix; anything
// that does not decode as a CID fails with storage.ErrInvalidParameters.
func (c *Client) AssetFromCID(contentID, name string) (*Asset, error) {
	id := storage.NormalizeCID(contentID)
	if _, err := cid.Decode(id); err != nil {
		return nil, fmt.Errorf("%w: content identifier %q: %v", storage.ErrInvalidParameters, contentID, err)
	}
	return &Asset{
		name:      name,
		contentID: id,
		fetcher:   c.fetcher,
		node:      c.node,
		gateways:  c.Gateways(),
	}, nil
}

// GetAssetsFromItem resolves several assets of item. Name resolution fails
// fast; with fetchData the contents are then downloaded concurrently.
func (c *Client) GetAssetsFromItem(ctx context.Context, item *model.Item, names []string, fetchData bool) ([]*Asset, error) {
	assets := make([]*Asset, 0, len(names))
	for _, name := range names {
		a, err := c.GetAssetFromItem(ctx, item, name, false)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}

	if fetchData {
		p := pool.New().
			WithMaxGoroutines(maxConcurrentFetches).
			WithContext(ctx).
			WithCancelOnError()
		for _, a := range assets {
			p.Go(a.Fetch)
		}
		if err := p.Wait(); err != nil {
			return nil, err
		}
	}
	return assets, nil
}

// fetchFromGateways walks the gateway chain in order and returns the first
// delivered content. Unreachable gateways are skipped; a gateway answering
// that it does not hold the content moves on to the next one.
func fetchFromGateways(ctx context.Context, f storage.ContentFetcher, gateways []string, contentID string) ([]byte, error) {
	var lastErr error
	for _, gw := range gateways {
		data, found, err := f.Fetch(ctx, gw, contentID)
		if err != nil {
			zap.L().Debug("gateway unreachable, trying next",
				zap.String("gateway", gw),
				zap.Error(err))
			lastErr = err
			continue
		}
		if !found {
			zap.L().Debug("content not on gateway",
				zap.String("gateway", gw),
				zap.String("cid", contentID))
			continue
		}
		return data, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, contentID, lastErr)
	}
	return nil, fmt.Errorf("%w: no gateway holds %s", ErrFetchFailed, contentID)
}

// String returns the asset's content identifier.
func (a *Asset) String() string {
	return a.contentID
}

// Name returns the asset name the item carries this asset under.
func (a *Asset) Name() string {
	return a.name
}

// CID returns the asset's content identifier.
func (a *Asset) CID() string {
	return a.contentID
}

// Fetched reports whether the asset's bytes are available locally.
func (a *Asset) Fetched() bool {
	return a.fetched
}

// Fetch downloads the asset's content through the gateway chain, the local
// node's gateway first when one is configured. Fetching an already fetched
// asset is a no-op.
func (a *Asset) Fetch(ctx context.Context) error {
	if a.fetched {
		return nil
	}
	data, err := fetchFromGateways(ctx, a.fetcher, a.gateways, a.contentID)
	if err != nil {
		return err
	}
	a.data = data
	a.fetched = true
	return nil
}

// Data returns the fetched bytes, or ErrDataNotFetched before Fetch.
func (a *Asset) Data() ([]byte, error) {
	if !a.fetched {
		return nil, ErrDataNotFetched
	}
	return a.data, nil
}

// IsPinned reports whether the asset is pinned on the local node and records
// the answer as the asset's last pin observation. Without a configured node
// it reports false without error and without any network traffic, and the
// observation stays unset.
func (a *Asset) IsPinned(ctx context.Context) (bool, error) {
	if !a.node.Available() {
		return false, nil
	}
	pins, err := a.node.PinList(ctx, storage.PinAll)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(pins, a.contentID)
	a.pinned = found
	a.pinObserved = true
	return found, nil
}

// PinnedState returns the pin state as of the last observation and whether
// one was made. IsPinned refreshes the observation; it can go stale the
// moment another process touches the pin set.
func (a *Asset) PinnedState() (pinned, observed bool) {
	return a.pinned, a.pinObserved
}

// Pin keeps the asset's content in the local node's pin set.
func (a *Asset) Pin(ctx context.Context) error {
	if err := a.node.Pin(ctx, a.contentID); err != nil {
		return err
	}
	a.pinned = true
	a.pinObserved = true
	return nil
}

// AddToMFS links the asset into the node's mutable filesystem under
// mfsPath/filename. Failures map to ErrPublishFailed.
func (a *Asset) AddToMFS(ctx context.Context, filename, mfsPath string) error {
	if err := a.node.CopyToMFS(ctx, a.contentID, filename, mfsPath); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// ToArray decodes the fetched content as a single-band raster and returns
// its pixel values row by row. Sixteen-bit grayscale rasters, the usual
// encoding of satellite bands, keep their exact sample values; other image
// types are converted to grayscale first.
func (a *Asset) ToArray() ([][]float32, error) {
	if !a.fetched {
		return nil, ErrDataNotFetched
	}
	img, err := imaging.Decode(bytes.NewReader(a.data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	b := img.Bounds()
	rows := make([][]float32, b.Dy())
	switch src := img.(type) {
	case *image.Gray16:
		for y := range rows {
			row := make([]float32, b.Dx())
			for x := range row {
				row[x] = float32(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
			rows[y] = row
		}
	default:
		for y := range rows {
			row := make([]float32, b.Dx())
			for x := range row {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				row[x] = float32(g.Y)
			}
			rows[y] = row
		}
	}
	return rows, nil
}

// ToMatrix decodes the fetched content like ToArray and returns the raster
// as a dense matrix for numeric work.
func (a *Asset) ToMatrix() (*mat.Dense, error) {
	rows, err := a.ToArray()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty raster", ErrDecodeFailed)
	}
	r, c := len(rows), len(rows[0])
	flat := make([]float64, 0, r*c)
	for _, row := range rows {
		for _, v := range row {
			flat = append(flat, float64(v))
		}
	}
	return mat.NewDense(r, c, flat), nil
}

// ToDataFrame parses the fetched content as CSV.
func (a *Asset) ToDataFrame() (dataframe.DataFrame, error) {
	if !a.fetched {
		return dataframe.DataFrame{}, ErrDataNotFetched
	}
	df := dataframe.ReadCSV(bytes.NewReader(a.data))
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", ErrDecodeFailed, df.Err)
	}
	return df, nil
}
