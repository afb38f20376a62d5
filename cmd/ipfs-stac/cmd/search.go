package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/easierdata/ipfs-stac/pkg/model"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the catalog by bounding box",
	Long:  "Search catalog items intersecting a bounding box, optionally scoped to collections.",
	Args:  cobra.NoArgs,
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().String("bbox", "", "bounding box as minLon,minLat,maxLon,maxLat")
	searchCmd.Flags().StringSlice("collections", nil, "restrict results to these collections")
	searchCmd.Flags().Int("limit", 0, "maximum number of items returned")
	searchCmd.Flags().Bool("assets", false, "print the asset names of each item")
	searchCmd.MarkFlagRequired("bbox")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	rawBox, _ := cmd.Flags().GetString("bbox")
	bbox, err := parseBBox(rawBox)
	if err != nil {
		return err
	}
	collections, _ := cmd.Flags().GetStringSlice("collections")
	limit, _ := cmd.Flags().GetInt("limit")
	withAssets, _ := cmd.Flags().GetBool("assets")

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var items *model.ItemCollection
	if limit > 0 {
		items, err = client.Search(context.Background(), &model.SearchParams{
			BBox:        bbox,
			Collections: collections,
			Limit:       limit,
		})
	} else {
		items, err = client.SearchByBox(context.Background(), bbox, collections...)
	}
	if err != nil {
		return err
	}

	for _, item := range items.Features {
		if withAssets {
			fmt.Printf("%s\t%s\n", item.ID, strings.Join(client.AssetNames(item), ","))
			continue
		}
		fmt.Println(item.ID)
	}
	if len(items.Features) == 0 {
		fmt.Println("(no items)")
	}
	return nil
}

func parseBBox(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	box := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox value %q: %w", part, err)
		}
		box = append(box, v)
	}
	return box, nil
}
