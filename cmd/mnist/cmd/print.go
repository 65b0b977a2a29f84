/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/mnistidx/pkg/codec"
	"github.com/ssargent/mnistidx/pkg/dataset"
	"github.com/ssargent/mnistidx/pkg/di"
	"github.com/ssargent/mnistidx/pkg/fetch"
	"github.com/ssargent/mnistidx/pkg/idx"
)

// errLimit stops decoding once enough records were handled.
var errLimit = errors.New("record limit reached")

// limited wraps fn so that it stops decoding after limit records. A limit of
// zero or less means no limit.
func limited(limit int, fn idx.RecordFunc) idx.RecordFunc {
	n := 0
	return func(r codec.Record) error {
		if err := fn(r); err != nil {
			return err
		}
		n++
		if limit > 0 && n >= limit {
			return errLimit
		}
		return nil
	}
}

func ignoreLimit(err error) error {
	if errors.Is(err, errLimit) {
		return nil
	}
	return err
}

// printCmd represents the print command
var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print records as text",
	Long: `Decode a split and print each record with a coarse text preview of
its image. Records are read from the data directory, or streamed from the
download mirror with --remote.

Examples:
  mnist print --split=test --limit=3
  mnist print --split=train --compressed=false
  mnist print --remote --limit=10`,
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
		remote, _ := cmd.Flags().GetBool("remote")
		compressed := c.Config().Compressed
		if cmd.Flags().Changed("compressed") {
			compressed, _ = cmd.Flags().GetBool("compressed")
		}

		out := cmd.OutOrStdout()
		for _, split := range splits {
			fn := limited(limit, func(r codec.Record) error {
				_, err := fmt.Fprint(out, r.String())
				return err
			})

			if remote {
				err = readRemote(cmd.Context(), c, split, fn)
			} else {
				err = c.Loader().Read(c.Config().DataDir, split, compressed, fn)
			}
			if err := ignoreLimit(err); err != nil {
				return fmt.Errorf("%s: %w", split, err)
			}
		}
		return nil
	},
}

// readRemote streams both compressed files of a split from the mirror and
// decodes them without touching the disk.
func readRemote(ctx context.Context, c *di.Container, split dataset.Split, fn idx.RecordFunc) error {
	f := c.Fetcher()
	names := fetch.Files(split)

	images, err := f.Open(ctx, names[0])
	if err != nil {
		return err
	}
	defer images.Close()

	labels, err := f.Open(ctx, names[1])
	if err != nil {
		return err
	}
	defer labels.Close()

	return c.Loader().ReadCompressed(images, labels, fn)
}

func init() {
	rootCmd.AddCommand(printCmd)

	printCmd.Flags().String("split", "test", "Split to print: train, test or all")
	printCmd.Flags().Int("limit", 0, "Maximum number of records per split (0 prints all)")
	printCmd.Flags().Bool("compressed", true, "Read the compressed files instead of the plain ones")
	printCmd.Flags().Bool("remote", false, "Stream the files from the download mirror")
}
