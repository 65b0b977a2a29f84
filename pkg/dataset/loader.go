package dataset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ssargent/mnistidx/pkg/codec"
	"github.com/ssargent/mnistidx/pkg/decompress"
	"github.com/ssargent/mnistidx/pkg/idx"
)

// ErrNotFound is returned by Locate when neither the compressed nor the
// plain files of a split exist.
var ErrNotFound = errors.New("dataset files not found")

// Option configures a Loader.
type Option func(*Loader)

// WithDecompressor sets the strategy used for compressed files.
func WithDecompressor(d decompress.Decompressor) Option {
	return func(l *Loader) {
		if d != nil {
			l.decompressor = d
		}
	}
}

// WithLogger sets the logger. Loaders are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithReaderOptions passes options through to the IDX reader.
func WithReaderOptions(opts ...idx.Option) Option {
	return func(l *Loader) {
		l.readerOpts = append(l.readerOpts, opts...)
	}
}

// Loader reads MNIST datasets from files or streams.
type Loader struct {
	decompressor decompress.Decompressor
	logger       *slog.Logger
	readerOpts   []idx.Option
}

// NewLoader creates a Loader that auto-detects the compression format of
// compressed inputs.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		decompressor: decompress.New(),
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ReadCompressedTraining reads train-images-idx3-ubyte.gz and
// train-labels-idx1-ubyte.gz from dir.
func (l *Loader) ReadCompressedTraining(dir string, fn idx.RecordFunc) error {
	return l.Read(dir, Training, true, fn)
}

// ReadCompressedTesting reads t10k-images-idx3-ubyte.gz and
// t10k-labels-idx1-ubyte.gz from dir.
func (l *Loader) ReadCompressedTesting(dir string, fn idx.RecordFunc) error {
	return l.Read(dir, Testing, true, fn)
}

// ReadDecompressedTraining reads train-images.idx3-ubyte and
// train-labels.idx1-ubyte from dir.
func (l *Loader) ReadDecompressedTraining(dir string, fn idx.RecordFunc) error {
	return l.Read(dir, Training, false, fn)
}

// ReadDecompressedTesting reads t10k-images.idx3-ubyte and
// t10k-labels.idx1-ubyte from dir.
func (l *Loader) ReadDecompressedTesting(dir string, fn idx.RecordFunc) error {
	return l.Read(dir, Testing, false, fn)
}

// Read reads a split from dir using its default file names.
func (l *Loader) Read(dir string, split Split, compressed bool, fn idx.RecordFunc) error {
	images, labels := FileNames(split, compressed)
	images, labels = filepath.Join(dir, images), filepath.Join(dir, labels)
	if compressed {
		return l.ReadCompressedFiles(images, labels, fn)
	}
	return l.ReadDecompressedFiles(images, labels, fn)
}

// ReadCompressedFiles reads a compressed image/label file pair.
func (l *Loader) ReadCompressedFiles(imagesPath, labelsPath string, fn idx.RecordFunc) error {
	return l.readFiles(imagesPath, labelsPath, fn, l.ReadCompressed)
}

// ReadDecompressedFiles reads a plain image/label file pair.
func (l *Loader) ReadDecompressedFiles(imagesPath, labelsPath string, fn idx.RecordFunc) error {
	return l.readFiles(imagesPath, labelsPath, fn, l.ReadDecompressed)
}

func (l *Loader) readFiles(imagesPath, labelsPath string, fn idx.RecordFunc,
	read func(images, labels io.Reader, fn idx.RecordFunc) error) error {
	images, err := os.Open(imagesPath)
	if err != nil {
		return fmt.Errorf("failed to open images file: %w", err)
	}
	defer images.Close()

	labels, err := os.Open(labelsPath)
	if err != nil {
		return fmt.Errorf("failed to open labels file: %w", err)
	}
	defer labels.Close()

	l.logger.Debug("reading dataset", "images", imagesPath, "labels", labelsPath)

	var count int
	err = read(images, labels, func(r codec.Record) error {
		count++
		return fn(r)
	})
	if err != nil {
		return err
	}

	l.logger.Debug("dataset read", "images", imagesPath, "records", count)
	return nil
}

// ReadCompressed decompresses both streams and decodes them. The streams
// are not closed.
func (l *Loader) ReadCompressed(images, labels io.Reader, fn idx.RecordFunc) error {
	plainImages, err := l.decompressor.Open(images)
	if err != nil {
		return fmt.Errorf("images: %w", err)
	}
	defer plainImages.Close()

	plainLabels, err := l.decompressor.Open(labels)
	if err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	defer plainLabels.Close()

	return l.ReadDecompressed(plainImages, plainLabels, fn)
}

// ReadDecompressed decodes two plain streams. The streams are not closed.
func (l *Loader) ReadDecompressed(images, labels io.Reader, fn idx.RecordFunc) error {
	return idx.Decode(images, labels, fn, l.readerOpts...)
}

// Locate finds the files of a split in dir, preferring the compressed
// archives. It reports which variant was found.
func Locate(dir string, split Split) (images, labels string, compressed bool, err error) {
	for _, compressed := range []bool{true, false} {
		images, labels := FileNames(split, compressed)
		images, labels = filepath.Join(dir, images), filepath.Join(dir, labels)
		if fileExists(images) && fileExists(labels) {
			return images, labels, compressed, nil
		}
	}
	return "", "", false, fmt.Errorf("%w: %s split in %s", ErrNotFound, split, dir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
