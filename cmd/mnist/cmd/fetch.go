/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the compressed MNIST files",
	Long: `Download the compressed image and label files of a split into the data
directory. Each file is checked against its known SHA-256 digest, and files
already present with the right digest are not downloaded again.

Examples:
  mnist fetch
  mnist fetch --split=test --base-url=http://mirror.local/mnist/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContainer(cmd)
		if err != nil {
			return err
		}
		splits, err := splitsFlag(cmd)
		if err != nil {
			return err
		}
		c.Config().BaseURL = stringFlag(cmd, "base-url", c.Config().BaseURL)

		f := c.Fetcher()
		for _, split := range splits {
			paths, err := f.Download(cmd.Context(), c.Config().DataDir, split)
			if err != nil {
				return err
			}
			for _, p := range paths {
				cmd.Printf("%s: %s\n", split, p)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("split", "all", "Split to download: train, test or all")
	fetchCmd.Flags().String("base-url", "", "Mirror to download from (overrides config)")
}
