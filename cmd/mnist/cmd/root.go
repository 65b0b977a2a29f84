/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/mnistidx/pkg/config"
	"github.com/ssargent/mnistidx/pkg/dataset"
	"github.com/ssargent/mnistidx/pkg/decompress"
	"github.com/ssargent/mnistidx/pkg/di"
)

type containerKey struct{}

// container overrides the one built from configuration (for testing)
var container *di.Container

// SetContainer injects a dependency container
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mnist",
	Short: "Read, convert and serve the MNIST handwritten digit dataset",
	Long: `mnist reads the MNIST dataset from its IDX image and label files,
plain or compressed, and turns the records into text, PNG images, smaller
IDX files or an indexed store that can be browsed over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c := container
		if c == nil {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c = di.NewContainer(cfg, config.NewLogger(cfg.Logging, cmd.ErrOrStderr()))
		}
		cmd.SetContext(context.WithValue(cmd.Context(), containerKey{}, c))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.GetDefaultConfigPath(), "Path to the configuration file")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Directory holding the MNIST files (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
}

// loadConfig reads the configuration file if it exists and applies flag
// overrides on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg := config.DefaultConfig()
	if config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		if _, err := config.ParseLevel(level); err != nil {
			return nil, err
		}
		cfg.Logging.Level = level
	}
	return cfg, nil
}

func getContainer(cmd *cobra.Command) (*di.Container, error) {
	c, ok := cmd.Context().Value(containerKey{}).(*di.Container)
	if !ok {
		return nil, errors.New("dependency container not initialized")
	}
	return c, nil
}

// splitsFlag parses a --split value; "all" selects both splits.
func splitsFlag(cmd *cobra.Command) ([]dataset.Split, error) {
	name, _ := cmd.Flags().GetString("split")
	if name == "all" {
		return dataset.Splits(), nil
	}
	split, err := dataset.ParseSplit(name)
	if err != nil {
		return nil, err
	}
	return []dataset.Split{split}, nil
}

// stringFlag returns the flag value when set, otherwise fallback.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

// openPair opens an image/label file pair, decompressing either file when it
// carries a known compression signature.
func openPair(imagesPath, labelsPath string) (images, labels *pairFile, err error) {
	images, err = openDecompressed(imagesPath)
	if err != nil {
		return nil, nil, err
	}
	labels, err = openDecompressed(labelsPath)
	if err != nil {
		images.Close()
		return nil, nil, err
	}
	return images, labels, nil
}

// pairFile is a possibly decompressed view of a file. Close releases both.
type pairFile struct {
	f *os.File
	r io.ReadCloser
}

func openDecompressed(path string) (*pairFile, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	r, err := decompress.New(decompress.WithPassthrough()).Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &pairFile{f: f, r: r}, nil
}

func (p *pairFile) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *pairFile) Close() error {
	return errors.Join(p.r.Close(), p.f.Close())
}
