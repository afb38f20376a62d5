package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ipfs/kubo/client/rpc"
	"go.uber.org/zap"
)

// PinType selects which pin records a listing returns.
type PinType string

const (
	PinDirect    PinType = "direct"
	PinIndirect  PinType = "indirect"
	PinRecursive PinType = "recursive"
	PinAll       PinType = "all"
)

// AddOptions controls how content is imported by the local node.
type AddOptions struct {
	// FileName names the file inside the mutable filesystem. Required
	// when MFSPath is set; AddFile defaults it to the file's base name.
	FileName string

	// Pin keeps the imported content in the node's pin set.
	Pin bool

	// MFSPath is the absolute mutable-filesystem directory the imported
	// file is linked under. Empty skips the link.
	MFSPath string

	// Chunker overrides the node's default chunking strategy, for
	// example "size-262144" or "rabin".
	Chunker string
}

func (o *AddOptions) validate() error {
	if o.MFSPath != "" && o.FileName == "" {
		return fmt.Errorf("%w: mfs path requires a file name", ErrInvalidParameters)
	}
	if o.MFSPath != "" && !strings.HasPrefix(o.MFSPath, "/") {
		return fmt.Errorf("%w: mfs path must be absolute", ErrInvalidParameters)
	}
	return nil
}

// NodeClient speaks to a local IPFS node over its RPC control API. The
// zero value has no node attached; every operation on it returns
// ErrNoLocalNode.
type NodeClient struct {
	api  *rpc.HttpApi
	addr string
}

// NewNodeClient connects the kubo RPC client to the node's control API at
// addr. An empty addr yields a detached client whose operations return
// ErrNoLocalNode. Construction performs no network traffic.
func NewNodeClient(addr string, timeout time.Duration) (*NodeClient, error) {
	if addr == "" {
		return &NodeClient{}, nil
	}
	api, err := rpc.NewURLApiWithClient(addr, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("storage: connect node api: %w", err)
	}
	return &NodeClient{api: api, addr: addr}, nil
}

// Available reports whether a local node is configured.
func (c *NodeClient) Available() bool {
	return c != nil && c.api != nil
}

func (c *NodeClient) available() error {
	if !c.Available() {
		return ErrNoLocalNode
	}
	return nil
}

// Addr returns the control API address the client was built with.
func (c *NodeClient) Addr() string {
	if c == nil {
		return ""
	}
	return c.addr
}

type nodeIdentity struct {
	ID           string
	AgentVersion string
}

// ID queries the node's identity. It doubles as a liveness probe: a nil
// error means the control API is up and answering.
func (c *NodeClient) ID(ctx context.Context) (string, error) {
	if err := c.available(); err != nil {
		return "", err
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
	}

	var out nodeIdentity
	if err := c.api.Request("id").Exec(ctx, &out); err != nil {
		return "", fmt.Errorf("storage: node id: %w", err)
	}
	return out.ID, nil
}

// Pin keeps contentID in the node's pin set.
func (c *NodeClient) Pin(ctx context.Context, contentID string) error {
	if err := c.available(); err != nil {
		return err
	}
	if contentID == "" {
		return fmt.Errorf("%w: empty content identifier", ErrInvalidParameters)
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
	}

	var out struct {
		Pins []string
	}
	if err := c.api.Request("pin/add", contentID).Exec(ctx, &out); err != nil {
		return fmt.Errorf("storage: pin %s: %w", contentID, err)
	}
	zap.L().Debug("pinned content", zap.String("cid", contentID))
	return nil
}

type pinInfo struct {
	Type string
	Name string
}

// PinList returns the identifiers pinned on the node, sorted, restricted to
// pinType. An empty pinType lists everything.
func (c *NodeClient) PinList(ctx context.Context, pinType PinType) ([]string, error) {
	keys, err := c.pinKeys(ctx, pinType, false)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(keys)), nil
}

// PinListNamed returns pinned identifiers together with the names recorded
// at pin time, restricted to pinType.
func (c *NodeClient) PinListNamed(ctx context.Context, pinType PinType) (map[string]string, error) {
	keys, err := c.pinKeys(ctx, pinType, true)
	if err != nil {
		return nil, err
	}
	named := make(map[string]string, len(keys))
	for id, info := range keys {
		named[id] = info.Name
	}
	return named, nil
}

func (c *NodeClient) pinKeys(ctx context.Context, pinType PinType, names bool) (map[string]pinInfo, error) {
	if err := c.available(); err != nil {
		return nil, err
	}
	switch pinType {
	case PinDirect, PinIndirect, PinRecursive, PinAll:
	case "":
		pinType = PinAll
	default:
		return nil, fmt.Errorf("%w: unknown pin type %q", ErrInvalidParameters, pinType)
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
	}

	req := c.api.Request("pin/ls").Option("type", string(pinType))
	if names {
		req = req.Option("names", true)
	}

	var out struct {
		Keys map[string]pinInfo
	}
	if err := req.Exec(ctx, &out); err != nil {
		return nil, fmt.Errorf("storage: list pins: %w", err)
	}
	return out.Keys, nil
}

type addEvent struct {
	Name string
	Hash string
	Size string
}

// Add imports content into the local node and returns its identifier.
// Content is imported with CIDv1 addressing so identifiers match what
// public gateways and the fetch path expect.
func (c *NodeClient) Add(ctx context.Context, content []byte, opts AddOptions) (string, error) {
	if err := c.available(); err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", fmt.Errorf("%w: empty content", ErrInvalidParameters)
	}
	if err := opts.validate(); err != nil {
		return "", err
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
	}

	req := c.api.Request("add").
		Option("cid-version", 1).
		Option("pin", opts.Pin)
	if opts.Chunker != "" {
		req = req.Option("chunker", opts.Chunker)
	}

	resp, err := req.FileBody(bytes.NewReader(content)).Send(ctx)
	if err != nil {
		return "", fmt.Errorf("storage: add content: %w", err)
	}
	defer func(resp *rpc.Response) {
		if err := resp.Close(); err != nil {
			zap.L().Error("failed to close add response", zap.Error(err))
		}
	}(resp)
	if resp.Error != nil {
		return "", fmt.Errorf("storage: add content: %w", resp.Error)
	}

	// The add endpoint streams one JSON event per imported entry; the
	// last one carrying a hash is the root.
	var added addEvent
	dec := json.NewDecoder(resp.Output)
	for {
		var ev addEvent
		if err := dec.Decode(&ev); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return "", fmt.Errorf("storage: decode add response: %w", err)
		}
		if ev.Hash != "" {
			added = ev
		}
	}
	if added.Hash == "" {
		return "", fmt.Errorf("storage: add response carried no identifier")
	}

	zap.L().Debug("added content to node",
		zap.String("cid", added.Hash),
		zap.String("size", added.Size),
		zap.Bool("pin", opts.Pin))

	if opts.MFSPath != "" {
		if err := c.CopyToMFS(ctx, added.Hash, opts.FileName, opts.MFSPath); err != nil {
			return added.Hash, err
		}
	}
	return added.Hash, nil
}

// AddFile imports the file at path. The file's base name is used when
// opts.FileName is empty.
func (c *NodeClient) AddFile(ctx context.Context, path string, opts AddOptions) (string, error) {
	if err := c.available(); err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("storage: read %s: %w", path, err)
	}
	if opts.FileName == "" {
		opts.FileName = filepath.Base(path)
	}
	return c.Add(ctx, content, opts)
}

// CopyToMFS links an already-imported identifier into the node's mutable
// filesystem under dir/filename, creating dir as needed.
func (c *NodeClient) CopyToMFS(ctx context.Context, contentID, filename, dir string) error {
	if err := c.available(); err != nil {
		return err
	}
	if contentID == "" || filename == "" || dir == "" {
		return fmt.Errorf("%w: content id, file name and mfs path are all required", ErrInvalidParameters)
	}
	if !strings.HasPrefix(dir, "/") {
		return fmt.Errorf("%w: mfs path must be absolute", ErrInvalidParameters)
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
	}

	if err := c.api.Request("files/mkdir", dir).Option("parents", true).Exec(ctx, nil); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}
	dst := strings.TrimSuffix(dir, "/") + "/" + filename
	if err := c.api.Request("files/cp", "/ipfs/"+contentID, dst).Exec(ctx, nil); err != nil {
		return fmt.Errorf("storage: copy %s to %s: %w", contentID, dst, err)
	}
	zap.L().Debug("linked content into mfs",
		zap.String("cid", contentID),
		zap.String("path", dst))
	return nil
}
