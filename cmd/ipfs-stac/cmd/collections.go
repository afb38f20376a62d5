package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List catalog collections",
	Long:  "List the collections exposed by the configured STAC catalog.",
	Args:  cobra.NoArgs,
	RunE:  runCollections,
}

func init() {
	collectionsCmd.Flags().Bool("long", false, "include collection titles")
	rootCmd.AddCommand(collectionsCmd)
}

func runCollections(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	long, _ := cmd.Flags().GetBool("long")
	if !long {
		ids, err := client.CollectionIDs(context.Background())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	cols, err := client.ListCollections(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, col := range cols {
		fmt.Fprintf(w, "%s\t%s\n", col.ID, col.Title)
	}
	return w.Flush()
}
