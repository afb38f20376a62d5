package cmd

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/easierdata/ipfs-stac/pkg/storage"
	"github.com/spf13/cobra"
)

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "List pinned content",
	Long:  "List the CIDs pinned on the local node, optionally filtered by pin type.",
	Args:  cobra.NoArgs,
	RunE:  runPins,
}

func init() {
	pinsCmd.Flags().String("type", string(storage.PinAll), "pin type: direct, indirect, recursive or all")
	pinsCmd.Flags().Bool("names", false, "include pin names")
	rootCmd.AddCommand(pinsCmd)
}

func runPins(cmd *cobra.Command, args []string) error {
	pinType, _ := cmd.Flags().GetString("type")
	withNames, _ := cmd.Flags().GetBool("names")

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if withNames {
		named, err := client.PinsNamed(context.Background(), storage.PinType(pinType))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, contentID := range slices.Sorted(maps.Keys(named)) {
			fmt.Fprintf(w, "%s\t%s\n", contentID, named[contentID])
		}
		return w.Flush()
	}

	pins, err := client.Pins(context.Background(), storage.PinType(pinType))
	if err != nil {
		return err
	}
	for _, contentID := range pins {
		fmt.Println(contentID)
	}
	if len(pins) == 0 {
		fmt.Println("(no pins)")
	}
	return nil
}
