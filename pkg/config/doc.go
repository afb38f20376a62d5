// Package config provides configuration management for the ipfs-stac client.
//
// This package defines the Config structure that controls all client behavior
// including the STAC catalog endpoint, local node connectivity, public gateway
// fallbacks, daemon control, and timeouts.
//
// # Basic Configuration
//
// The zero configuration is usable after validation; every field has a default:
//
//	cfg := &config.Config{}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// # Catalog Endpoint
//
// StacEndpoint selects the STAC API the client searches. When empty it
// defaults to the EASIER data catalog:
//
//	cfg.StacEndpoint = "https://stac.easierdata.info"
//
// Any STAC API root works:
//
//	cfg.StacEndpoint = "https://planetarycomputer.microsoft.com/api/stac/v1"
//
// # Local Node
//
// Content retrieval and all pin/publish operations can use a local IPFS node.
// Configure its host and ports:
//
//	cfg.LocalGateway = "127.0.0.1" // scheme optional
//	cfg.APIPort = 5001             // control API (pin, add, files)
//	cfg.GatewayPort = 8080         // content gateway (GET /ipfs/<cid>)
//
// When LocalGateway is empty the client runs gateway-only: fetches go to
// public gateways and node-bound operations (pin, upload, MFS) fail with a
// typed error.
//
// # Gateway Fallback
//
// Fetches try gateways in order: the local node gateway first when
// configured, then PublicGateway, then each entry of FallbackGateways.
//
//	cfg.PublicGateway = "https://ipfs.io"
//	cfg.FallbackGateways = []string{"https://dweb.link"}
//
// # Daemon Control
//
// StartDaemon launches DaemonBinary ("ipfs" by default) as a subprocess and
// waits up to Timeouts.DaemonStart for its control API to respond. Set a
// full path when the binary is not on PATH:
//
//	cfg.DaemonBinary = "/usr/local/bin/ipfs"
//
// # Timeouts
//
// All operations have configurable deadlines. Zero values are replaced with
// defaults via WithDefaults():
//
//	cfg.Timeouts = config.Timeouts{
//		Search:      30 * time.Second,        // catalog queries
//		Fetch:       120 * time.Second,       // gateway content retrieval
//		NodeAPI:     30 * time.Second,        // node control API calls
//		DaemonStart: 10 * time.Second,        // daemon readiness wait
//		DaemonPoll:  500 * time.Millisecond,  // readiness probe interval
//	}
//
// # Debug Mode
//
// Enable debug logging for troubleshooting:
//
//	cfg.Debug = true
//
// This enables verbose output about catalog queries, gateway fallback
// decisions, node API calls, and daemon lifecycle transitions.
//
// # Configuration Validation
//
// Always call Validate() to apply defaults and check fields:
//
//	cfg := &config.Config{LocalGateway: "127.0.0.1"}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// Validate() will:
//   - Set the default STAC endpoint, gateway URLs and daemon binary
//   - Set default API (5001) and gateway (8080) ports
//   - Return an error if a port is out of range
//
// # Thread Safety
//
// Config instances should be created once and not modified after passing to
// web3.New(). The Config is read-only during client operations.
//
// # See Also
//
//   - web3.New() for client initialization
//   - examples/quick-start for basic configuration
package config
