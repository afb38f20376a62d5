package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <cid>...",
	Short: "Fetch content by CID",
	Long:  "Fetch content from the configured gateways. A single CID is written to stdout; with --output, content is written into the directory named by CID.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringP("output", "o", "", "directory to write fetched content into")
	fetchCmd.Flags().Int("concurrency", 4, "maximum parallel downloads")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("output")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency < 1 {
		concurrency = 1
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if outDir == "" {
		if len(args) > 1 {
			return fmt.Errorf("fetching %d CIDs requires --output", len(args))
		}
		data, err := client.GetFromCID(context.Background(), args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	p := pool.New().WithMaxGoroutines(concurrency).WithContext(context.Background()).WithCancelOnError()
	for _, contentID := range args {
		p.Go(func(ctx context.Context) error {
			path := filepath.Join(outDir, filepath.Base(contentID))
			if err := client.WriteToFile(ctx, contentID, path); err != nil {
				return fmt.Errorf("fetch %s: %w", contentID, err)
			}
			fmt.Fprintf(os.Stderr, "Fetched %s\n", path)
			return nil
		})
	}
	return p.Wait()
}
