/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/mnistidx/pkg/codec"
)

// imageName returns the file name an exported record is written to.
func imageName(r codec.Record) string {
	return fmt.Sprintf("digit-%05d-label-%d.png", r.Index(), r.Label())
}

func writePNG(dir string, r codec.Record) (err error) {
	f, err := os.Create(filepath.Join(dir, imageName(r)))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, r.Image())
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save records as PNG images",
	Long: `Decode a split and save every record as a grayscale PNG image named
after its index and label, for example digit-00042-label-7.png. Images of
each split go to their own subdirectory of the output directory.

Examples:
  mnist export --out=./images
  mnist export --split=test --limit=100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContainer(cmd)
		if err != nil {
			return err
		}
		splits, err := splitsFlag(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		outDir := stringFlag(cmd, "out", c.Config().OutputDir)
		compressed := c.Config().Compressed
		if cmd.Flags().Changed("compressed") {
			compressed, _ = cmd.Flags().GetBool("compressed")
		}
		logger := c.Logger()

		for _, split := range splits {
			dir := filepath.Join(outDir, split.String())
			if err := os.MkdirAll(dir, 0750); err != nil {
				return err
			}

			cmd.Printf("Creating %s images in %s...\n", split, dir)
			written := 0
			err := c.Loader().Read(c.Config().DataDir, split, compressed, limited(limit, func(r codec.Record) error {
				if err := writePNG(dir, r); err != nil {
					return fmt.Errorf("record %d: %w", r.Index(), err)
				}
				logger.Debug("image written", "split", split.String(), "file", imageName(r))
				written++
				return nil
			}))
			if err := ignoreLimit(err); err != nil {
				return fmt.Errorf("%s: %w", split, err)
			}
			cmd.Printf("Wrote %d %s images\n", written, split)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("split", "all", "Split to export: train, test or all")
	exportCmd.Flags().String("out", "", "Output directory (overrides config)")
	exportCmd.Flags().Int("limit", 0, "Maximum number of images per split (0 exports all)")
	exportCmd.Flags().Bool("compressed", true, "Read the compressed files instead of the plain ones")
}
