// Package config defines the runtime configuration for the client, including
// the STAC catalog endpoint, local IPFS node host and ports, public gateway
// fallbacks, debug mode, and operation timeouts. It also provides validation
// and defaulting helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultStacEndpoint is the STAC catalog queried when no endpoint is configured.
const DefaultStacEndpoint = "https://stac.easierdata.info"

// DefaultPublicGateway is the public content gateway used when none is configured.
const DefaultPublicGateway = "https://ipfs.io"

// Config holds all client settings required to initialize the catalog and
// storage clients. Use Validate to fill implicit defaults and to check for
// invalid fields.
type Config struct {
	// StacEndpoint is the STAC API root URL.
	// Default: https://stac.easierdata.info
	StacEndpoint string `json:"stac_endpoint" yaml:"stac_endpoint"`
	// LocalGateway is the host of a local IPFS node, with or without scheme
	// ("127.0.0.1" and "http://127.0.0.1" are both accepted). Leave empty
	// when no local node is available; node-bound operations then fail and
	// content is fetched from public gateways only.
	LocalGateway string `json:"local_gateway" yaml:"local_gateway"`
	// APIPort is the port of the local node control API. Default: 5001.
	APIPort int `json:"api_port" yaml:"api_port"`
	// GatewayPort is the port of the local node content gateway. Default: 8080.
	GatewayPort int `json:"gateway_port" yaml:"gateway_port"`
	// PublicGateway is the public HTTP gateway used when content cannot be
	// served by the local node. Default: https://ipfs.io
	PublicGateway string `json:"public_gateway" yaml:"public_gateway"`
	// FallbackGateways are extra public gateways tried in order after
	// PublicGateway when a fetch fails.
	FallbackGateways []string `json:"fallback_gateways" yaml:"fallback_gateways"`
	// DaemonBinary is the name or path of the node executable launched by
	// StartDaemon. Default: ipfs.
	DaemonBinary string `json:"daemon_binary" yaml:"daemon_binary"`
	// Debug enables verbose logging.
	Debug bool `json:"debug" yaml:"debug"`
	// Timeouts configures per-operation timeouts. See Timeouts.WithDefaults for defaults.
	Timeouts Timeouts `json:"timeouts" yaml:"timeouts"`
}

// Timeouts controls client operation deadlines.
// Zero values will be replaced by sane defaults in WithDefaults.
type Timeouts struct {
	Search      time.Duration // STAC collection and item queries
	Fetch       time.Duration // gateway content retrieval
	NodeAPI     time.Duration // local node control API calls
	DaemonStart time.Duration // wait for a started daemon to become ready
	DaemonPoll  time.Duration // readiness probe interval during startup
}

// Validate normalizes the configuration by applying implicit defaults for
// StacEndpoint, APIPort, GatewayPort, PublicGateway and DaemonBinary and
// verifies that the configured ports are in range. Returns an error when a
// port is out of range.
func (c *Config) Validate() error {

	if c.StacEndpoint == "" {
		c.StacEndpoint = DefaultStacEndpoint
	}

	if c.APIPort == 0 {
		c.APIPort = 5001
	}

	if c.GatewayPort == 0 {
		c.GatewayPort = 8080
	}

	if c.PublicGateway == "" {
		c.PublicGateway = DefaultPublicGateway
	}

	if c.DaemonBinary == "" {
		c.DaemonBinary = "ipfs"
	}

	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("api port out of range: %d", c.APIPort)
	}

	if c.GatewayPort < 0 || c.GatewayPort > 65535 {
		return fmt.Errorf("gateway port out of range: %d", c.GatewayPort)
	}

	return nil
}

// NodeAPIAddr returns the HTTP address of the local node control API, e.g.
// "http://127.0.0.1:5001". Returns the empty string when no local gateway
// is configured.
func (c *Config) NodeAPIAddr() string {
	if c.LocalGateway == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", withScheme(c.LocalGateway), c.APIPort)
}

// LocalGatewayAddr returns the HTTP address of the local node content
// gateway, e.g. "http://127.0.0.1:8080". Returns the empty string when no
// local gateway is configured.
func (c *Config) LocalGatewayAddr() string {
	if c.LocalGateway == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", withScheme(c.LocalGateway), c.GatewayPort)
}

// Gateways returns the content gateways in fallback order: the local node
// gateway when configured, then PublicGateway, then FallbackGateways.
func (c *Config) Gateways() []string {
	var out []string
	if addr := c.LocalGatewayAddr(); addr != "" {
		out = append(out, addr)
	}
	if c.PublicGateway != "" {
		out = append(out, c.PublicGateway)
	}
	out = append(out, c.FallbackGateways...)
	return out
}

func withScheme(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "http://" + host
}

// WithDefaults returns a copy of t with zero values replaced by defaults:
//
//	Search:      30s
//	Fetch:       120s
//	NodeAPI:     30s
//	DaemonStart: 10s
//	DaemonPoll:  500ms
func (t Timeouts) WithDefaults() Timeouts {
	tt := t
	if tt.Search == 0 {
		tt.Search = 30 * time.Second
	}
	if tt.Fetch == 0 {
		tt.Fetch = 120 * time.Second
	}
	if tt.NodeAPI == 0 {
		tt.NodeAPI = 30 * time.Second
	}
	if tt.DaemonStart == 0 {
		tt.DaemonStart = 10 * time.Second
	}
	if tt.DaemonPoll == 0 {
		tt.DaemonPoll = 500 * time.Millisecond
	}
	return tt
}
