/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/mnistidx/pkg/decompress"
	"github.com/ssargent/mnistidx/pkg/idx"
)

// fileInfo summarizes one IDX file.
type fileInfo struct {
	Compression decompress.Format
	Magic       uint32
	Header      idx.Header
	Payload     uint64 // bytes after the header
	Expected    uint64 // bytes the header announces
}

func inspectFile(path string) (fileInfo, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fileInfo{}, err
	}
	defer f.Close()

	var info fileInfo
	raw := bufio.NewReader(f)
	prefix, err := raw.Peek(16)
	if err != nil && !errors.Is(err, io.EOF) {
		return fileInfo{}, err
	}
	info.Compression = decompress.Detect(prefix)

	plain, err := decompress.New(decompress.WithPassthrough()).Open(raw)
	if err != nil {
		return fileInfo{}, err
	}
	defer plain.Close()

	br := bufio.NewReader(plain)
	magic, err := br.Peek(4)
	if err != nil {
		return fileInfo{}, fmt.Errorf("reading magic number: %w", err)
	}
	info.Magic = binary.BigEndian.Uint32(magic)

	switch info.Magic {
	case idx.MagicImages:
		info.Header, err = idx.ReadImageHeader(br)
		info.Expected = uint64(info.Header.Count) * info.Header.ImageSize()
	case idx.MagicLabels:
		info.Header.Count, err = idx.ReadLabelHeader(br)
		info.Expected = uint64(info.Header.Count)
	default:
		return info, fmt.Errorf("magic number 0x%08x is neither images (0x%08x) nor labels (0x%08x)",
			info.Magic, idx.MagicImages, idx.MagicLabels)
	}
	if err != nil {
		return info, err
	}

	n, err := io.Copy(io.Discard, br)
	if err != nil {
		return info, err
	}
	info.Payload = uint64(n)
	return info, nil
}

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>...",
	Short: "Print the header of IDX files",
	Long: `Print the compression, kind, record count and image size of IDX files,
and check that the payload length matches the header.

Example:
  mnist inspect data/train-images-idx3-ubyte.gz data/train-labels-idx1-ubyte.gz`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var failed error
		for _, path := range args {
			info, err := inspectFile(path)
			if err != nil {
				failed = errors.Join(failed, fmt.Errorf("%s: %w", path, err))
				continue
			}

			fmt.Fprintf(out, "%s\n", path)
			fmt.Fprintf(out, "  compression: %s\n", info.Compression)
			if info.Magic == idx.MagicImages {
				fmt.Fprintf(out, "  kind:        images (0x%08x)\n", info.Magic)
				fmt.Fprintf(out, "  count:       %d\n", info.Header.Count)
				fmt.Fprintf(out, "  size:        %dx%d\n", info.Header.Rows, info.Header.Cols)
			} else {
				fmt.Fprintf(out, "  kind:        labels (0x%08x)\n", info.Magic)
				fmt.Fprintf(out, "  count:       %d\n", info.Header.Count)
			}

			switch {
			case info.Payload == info.Expected:
				fmt.Fprintf(out, "  payload:     %d bytes, ok\n", info.Payload)
			case info.Payload < info.Expected:
				fmt.Fprintf(out, "  payload:     %d bytes, truncated (want %d)\n", info.Payload, info.Expected)
			default:
				fmt.Fprintf(out, "  payload:     %d bytes, %d trailing\n", info.Payload, info.Payload-info.Expected)
			}
		}
		return failed
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
