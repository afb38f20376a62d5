// Package stac implements the catalog side of the client: collection listing
// and item search against a STAC API endpoint. It constrains the parameters
// it passes and the errors it maps; the wire format is the STAC API's own.
package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/easierdata/ipfs-stac/pkg/model"
)

// Client queries a STAC API endpoint. It holds no item state; the
// collection-id cache lives on the facade that owns the session.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient constructs a catalog client for the given STAC API root.
// A zero timeout leaves the transport default in place.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the configured STAC API root.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Collections returns the catalog's collection descriptors.
func (c *Client) Collections(ctx context.Context) ([]*model.Collection, error) {
	var list model.CollectionList
	if err := c.getJSON(ctx, c.endpoint+"/collections", &list); err != nil {
		return nil, err
	}
	return list.Collections, nil
}

// CollectionIDs returns the identifiers of every collection the endpoint
// publishes.
func (c *Client) CollectionIDs(ctx context.Context) ([]string, error) {
	collections, err := c.Collections(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(collections))
	for _, coll := range collections {
		if coll != nil {
			ids = append(ids, coll.ID)
		}
	}
	return ids, nil
}

// Search executes an item search with the given parameters, passed through
// to the endpoint unmodified. Protocol errors surface as-is, wrapped only
// with the endpoint status context.
func (c *Client) Search(ctx context.Context, params *model.SearchParams) (*model.ItemCollection, error) {
	if params == nil {
		params = &model.SearchParams{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("stac: encode search params: %w", err)
	}

	var ic model.ItemCollection
	if err := c.postJSON(ctx, c.endpoint+"/search", body, &ic); err != nil {
		return nil, err
	}
	return &ic, nil
}

// SearchByBox searches the given collections within a bounding box of the
// form [minLon, minLat, maxLon, maxLat]. The box is validated locally and
// a malformed one fails with ErrInvalidQuery before any network call.
func (c *Client) SearchByBox(ctx context.Context, bbox []float64, collections ...string) (*model.ItemCollection, error) {
	if err := ValidateBBox(bbox); err != nil {
		return nil, err
	}
	return c.Search(ctx, &model.SearchParams{BBox: bbox, Collections: collections})
}

// SearchByBoxIndex searches like SearchByBox and returns the single item at
// position index in the result. Fails with ErrIndexOutOfRange when the
// result holds fewer than index+1 items.
func (c *Client) SearchByBoxIndex(ctx context.Context, bbox []float64, index int, collections ...string) (*model.Item, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	ic, err := c.SearchByBox(ctx, bbox, collections...)
	if err != nil {
		return nil, err
	}
	if index >= len(ic.Features) {
		return nil, fmt.Errorf("%w: %d of %d items", ErrIndexOutOfRange, index, len(ic.Features))
	}
	return ic.Features[index], nil
}

// ValidateBBox checks that bbox is [minLon, minLat, maxLon, maxLat]: exactly
// four finite bounds with min <= max on each axis. Returns ErrInvalidQuery
// otherwise.
func ValidateBBox(bbox []float64) error {
	if len(bbox) != 4 {
		return fmt.Errorf("%w: bounding box needs 4 bounds, got %d", ErrInvalidQuery, len(bbox))
	}
	for _, v := range bbox {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bounding box bound is not a finite number: %v", ErrInvalidQuery, bbox)
		}
	}
	if bbox[0] > bbox[2] || bbox[1] > bbox[3] {
		return fmt.Errorf("%w: bounding box min exceeds max: %v", ErrInvalidQuery, bbox)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("stac: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("stac: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	zap.L().Debug("stac request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachableEndpoint, err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			zap.L().Error("failed to close stac response", zap.Error(cerr))
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %s: %s",
			ErrUnreachableEndpoint, req.URL.Host, resp.Status, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("stac: decode response: %w", err)
	}
	return nil
}
