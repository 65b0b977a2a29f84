/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/mnistidx/pkg/dataset"
	"github.com/ssargent/mnistidx/pkg/storage"
)

func importSplit(store *storage.RecordStore, dir string, split dataset.Split) (storage.Manifest, error) {
	imagesPath, labelsPath, _, err := dataset.Locate(dir, split)
	if err != nil {
		return storage.Manifest{}, err
	}
	images, labels, err := openPair(imagesPath, labelsPath)
	if err != nil {
		return storage.Manifest{}, err
	}
	defer images.Close()
	defer labels.Close()

	return store.Import(split, images, labels)
}

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load records into the record store",
	Long: `Decode a split from the data directory, compressed or plain, and store
every record in the record store so it can be served by 'mnist serve'.
Importing a split again replaces the previous import.

Examples:
  mnist import
  mnist import --split=test --store-dir=./store`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContainer(cmd)
		if err != nil {
			return err
		}
		splits, err := splitsFlag(cmd)
		if err != nil {
			return err
		}

		store, err := c.OpenStore(stringFlag(cmd, "store-dir", c.Config().StoreDir))
		if err != nil {
			return err
		}
		defer store.Close()

		for _, split := range splits {
			m, err := importSplit(store, c.Config().DataDir, split)
			if err != nil {
				return fmt.Errorf("%s: %w", split, err)
			}
			cmd.Printf("Imported %d %s records (%dx%d), import %s\n", m.Count, split, m.Rows, m.Cols, m.ImportID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("split", "all", "Split to import: train, test or all")
	importCmd.Flags().String("store-dir", "", "Record store directory (overrides config)")
}
