// Command ipfs-stac queries STAC catalogs and moves the referenced
// assets over IPFS gateways and a local node.
package main

import "github.com/easierdata/ipfs-stac/cmd/ipfs-stac/cmd"

func main() {
	cmd.Execute()
}
