package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the local node daemon",
	Long:  "Start the local IPFS daemon, wait until it answers, and keep it running until interrupted.",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartDaemon(context.Background()); err != nil {
		return fmt.Errorf("daemon start failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Daemon %s. Press Ctrl-C to stop.\n", client.DaemonState())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Fprintln(os.Stderr, "Shutting down...")
	return client.ShutdownProcess(context.Background())
}
