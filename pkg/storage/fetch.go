package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"go.uber.org/zap"
)

// ContentFetcher retrieves raw content from an IPFS HTTP gateway.
type ContentFetcher interface {
	// Fetch requests contentID from gateway. found is false when the
	// gateway answered authoritatively that it does not hold the
	// content; err is non-nil only when the gateway could not be
	// consulted at all.
	Fetch(ctx context.Context, gateway, contentID string) (data []byte, found bool, err error)
}

// Fetcher is the HTTP implementation of ContentFetcher.
type Fetcher struct {
	http *http.Client
}

// NewFetcher creates a gateway fetcher whose requests time out after the
// given duration.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{http: &http.Client{Timeout: timeout}}
}

// GatewayURL builds the content path for contentID on gateway.
func GatewayURL(gateway, contentID string) string {
	return strings.TrimSuffix(gateway, "/") + "/ipfs/" + contentID
}

// NormalizeCID strips URI schemes and gateway path prefixes from raw,
// leaving the bare content identifier.
func NormalizeCID(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "ipfs://")
	if i := strings.LastIndex(s, "/ipfs/"); i >= 0 {
		s = s[i+len("/ipfs/"):]
	}
	return strings.TrimSuffix(s, "/")
}

// Fetch implements ContentFetcher against a single gateway.
func (f *Fetcher) Fetch(ctx context.Context, gateway, contentID string) ([]byte, bool, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, GatewayURL(gateway, contentID), nil)
	if err != nil {
		return nil, false, fmt.Errorf("storage: build gateway request: %w", err)
	}

	zap.L().Debug("fetching content from gateway",
		zap.String("gateway", gateway),
		zap.String("cid", contentID))

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnreachableGateway, err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			zap.L().Error("failed to close gateway response body", zap.Error(err))
		}
	}(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %s returned status %d", ErrUnreachableGateway, gateway, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: read response: %v", ErrUnreachableGateway, err)
	}

	verifyContent(contentID, data)
	return data, true, nil
}

// verifyContent recomputes the multihash for raw-codec identifiers and warns
// on mismatch. Gateways reassemble DAG-encoded content, so only raw blocks
// can be checked byte for byte.
func verifyContent(contentID string, data []byte) {
	id, err := cid.Decode(contentID)
	if err != nil || id.Prefix().Codec != cid.Raw {
		return
	}
	sum, err := multihash.Sum(data, id.Prefix().MhType, -1)
	if err != nil {
		return
	}
	if got := cid.NewCidV1(cid.Raw, sum); !got.Equals(id) {
		zap.L().Warn("gateway returned content that does not match its identifier",
			zap.String("requested", contentID),
			zap.String("computed", got.String()))
	}
}
