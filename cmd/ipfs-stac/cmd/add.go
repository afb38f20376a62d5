package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/easierdata/ipfs-stac/pkg/storage"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Add a file to the local node",
	Long:  "Upload a file to the local IPFS node and print the resulting CID.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().Bool("pin", true, "pin the added content")
	addCmd.Flags().String("name", "", "file name used for MFS linking (default: the file's base name)")
	addCmd.Flags().String("mfs-path", "", "absolute MFS directory to link the file into")
	addCmd.Flags().String("chunker", "", "chunking algorithm, e.g. size-262144 or rabin")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	pin, _ := cmd.Flags().GetBool("pin")
	name, _ := cmd.Flags().GetString("name")
	mfsPath, _ := cmd.Flags().GetString("mfs-path")
	chunker, _ := cmd.Flags().GetString("chunker")

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Fprintf(os.Stderr, "Adding %s...\n", args[0])

	contentID, err := client.UploadFile(context.Background(), args[0], storage.AddOptions{
		FileName: name,
		Pin:      pin,
		MFSPath:  mfsPath,
		Chunker:  chunker,
	})
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}

	fmt.Println(contentID)
	return nil
}
