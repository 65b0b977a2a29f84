/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/mnistidx/pkg/dataset"
	"github.com/ssargent/mnistidx/pkg/decompress"
	"github.com/ssargent/mnistidx/pkg/idx"
)

// sliceNames returns the output file names of a split written with format.
// gzip output carries the published archive names, so the result can be
// read back like a downloaded dataset.
func sliceNames(split dataset.Split, format decompress.Format) (images, labels string) {
	if format == decompress.FormatNone {
		return dataset.FileNames(split, false)
	}
	images, labels = dataset.FileNames(split, true)
	images = strings.TrimSuffix(images, ".gz") + format.Extension()
	labels = strings.TrimSuffix(labels, ".gz") + format.Extension()
	return images, labels
}

// sliceSplit copies up to count records starting at from out of the split
// stored in srcDir into a new file pair in dstDir. It returns the header of
// the written pair.
func sliceSplit(srcDir, dstDir string, split dataset.Split, from, count uint32, format decompress.Format) (h idx.Header, err error) {
	imagesPath, labelsPath, _, err := dataset.Locate(srcDir, split)
	if err != nil {
		return idx.Header{}, err
	}
	images, labels, err := openPair(imagesPath, labelsPath)
	if err != nil {
		return idx.Header{}, err
	}
	defer images.Close()
	defer labels.Close()

	r, err := idx.NewReader(images, labels)
	if err != nil {
		return idx.Header{}, err
	}
	src := r.Header()
	if from > src.Count {
		return idx.Header{}, fmt.Errorf("start %d is past the %d records of %s", from, src.Count, split)
	}
	h = idx.Header{Count: min(count, src.Count-from), Rows: src.Rows, Cols: src.Cols}

	for i := uint32(0); i < from; i++ {
		if _, err := r.Next(); err != nil {
			return idx.Header{}, err
		}
	}

	if err := os.MkdirAll(dstDir, 0750); err != nil {
		return idx.Header{}, err
	}
	imagesName, labelsName := sliceNames(split, format)
	imagesOut, err := createCompressed(filepath.Join(dstDir, imagesName), format)
	if err != nil {
		return idx.Header{}, err
	}
	defer func() { err = errors.Join(err, imagesOut.Close()) }()
	labelsOut, err := createCompressed(filepath.Join(dstDir, labelsName), format)
	if err != nil {
		return idx.Header{}, err
	}
	defer func() { err = errors.Join(err, labelsOut.Close()) }()

	w, err := idx.NewWriter(imagesOut, labelsOut, h)
	if err != nil {
		return idx.Header{}, err
	}
	for w.Written() < h.Count {
		rec, err := r.Next()
		if err != nil {
			return idx.Header{}, err
		}
		if err := w.WriteRecord(rec); err != nil {
			return idx.Header{}, err
		}
	}
	return h, w.Close()
}

// compressedFile closes the compressor before the file it writes to.
type compressedFile struct {
	io.WriteCloser
	f *os.File
}

func (c *compressedFile) Close() error {
	return errors.Join(c.WriteCloser.Close(), c.f.Close())
}

func createCompressed(path string, format decompress.Format) (*compressedFile, error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	w, err := decompress.NewWriter(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &compressedFile{WriteCloser: w, f: f}, nil
}

// sliceCmd represents the slice command
var sliceCmd = &cobra.Command{
	Use:   "slice",
	Short: "Write a range of records as a new IDX file pair",
	Long: `Copy a contiguous range of records of a split into a new image/label
file pair, optionally compressed. Useful for small fixtures and quick
experiments on a subset of the data.

Examples:
  mnist slice --split=train --from=0 --count=1000 --out=./small
  mnist slice --split=test --count=100 --compress=zstd --out=./tiny`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContainer(cmd)
		if err != nil {
			return err
		}
		splits, err := splitsFlag(cmd)
		if err != nil {
			return err
		}
		from, _ := cmd.Flags().GetUint32("from")
		count, _ := cmd.Flags().GetUint32("count")
		outDir, _ := cmd.Flags().GetString("out")
		formatName, _ := cmd.Flags().GetString("compress")
		format, err := decompress.ParseFormat(formatName)
		if err != nil {
			return err
		}

		for _, split := range splits {
			h, err := sliceSplit(c.Config().DataDir, outDir, split, from, count, format)
			if err != nil {
				return fmt.Errorf("%s: %w", split, err)
			}
			imagesName, labelsName := sliceNames(split, format)
			cmd.Printf("Wrote %d %s records (%dx%d) to %s and %s\n",
				h.Count, split, h.Rows, h.Cols,
				filepath.Join(outDir, imagesName), filepath.Join(outDir, labelsName))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sliceCmd)

	sliceCmd.Flags().String("split", "train", "Split to slice: train, test or all")
	sliceCmd.Flags().Uint32("from", 0, "Index of the first record to copy")
	sliceCmd.Flags().Uint32("count", 1000, "Maximum number of records to copy")
	sliceCmd.Flags().String("out", "", "Output directory (required)")
	sliceCmd.Flags().String("compress", "gzip", "Output compression: none, gzip, zstd, xz, lz4 or snappy")
	if err := sliceCmd.MarkFlagRequired("out"); err != nil {
		panic(err)
	}
}
