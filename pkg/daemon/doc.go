// Package daemon manages the lifecycle of a local IPFS node process on
// behalf of the client. Nothing here runs implicitly: the caller decides
// when the daemon starts and when it dies.
//
// # Lifecycle
//
// A Controller moves through three states:
//
//	Stopped -> Starting -> Running
//
// Start blocks until the node's control API answers a readiness probe or
// the start timeout elapses. On timeout the spawned process is cleaned up
// and the state returns to Stopped with ErrDaemonStart. Start on a Running
// controller returns immediately.
//
//	ctrl := daemon.New(cfg, func(ctx context.Context) error {
//		_, err := node.ID(ctx)
//		return err
//	})
//
//	if err := ctrl.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer ctrl.Shutdown(context.Background())
//
// # Adoption
//
// When the control API already answers, or a process with the daemon's
// executable name is already in the process table, Start adopts it instead
// of spawning a second instance. Shutdown then terminates through the
// process table rather than a child handle.
//
// # Attach-Only Mode
//
// With an empty DaemonBinary the controller never spawns anything and
// Start simply waits for an externally managed node to come up.
//
// # See Also
//
//   - config package for the daemon binary and startup timeouts
//   - web3 package, which exposes StartDaemon and ShutdownProcess on the
//     client facade
package daemon
