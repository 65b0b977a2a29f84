// Package fetch downloads the published MNIST archives.
package fetch

import (
	"context"
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/mnistidx/pkg/dataset"
)

// DefaultBaseURL serves the original archives under their published names.
const DefaultBaseURL = "https://storage.googleapis.com/cvdf-datasets/mnist/"

var (
	// ErrDigestMismatch is returned when downloaded content does not match
	// its expected digest.
	ErrDigestMismatch = errors.New("digest mismatch")

	// ErrUnexpectedStatus is returned for non-200 HTTP responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

var knownDigests = map[string]digest.Digest{
	"train-images-idx3-ubyte.gz": "sha256:440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609",
	"train-labels-idx1-ubyte.gz": "sha256:3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c",
	"t10k-images-idx3-ubyte.gz":  "sha256:8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6",
	"t10k-labels-idx1-ubyte.gz":  "sha256:f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6",
}

// KnownDigest returns the sha256 digest of a published archive.
func KnownDigest(name string) (digest.Digest, bool) {
	d, ok := knownDigests[name]
	return d, ok
}

// Files returns the archive names of a split, images first.
func Files(split dataset.Split) []string {
	images, labels := dataset.FileNames(split, true)
	return []string{images, labels}
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBaseURL sets the URL the archive names are resolved against.
func WithBaseURL(u string) Option {
	return func(f *Fetcher) {
		if u != "" {
			f.baseURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithDigests replaces the expected digests, keyed by file name. Files
// without an entry are not verified.
func WithDigests(digests map[string]digest.Digest) Option {
	return func(f *Fetcher) {
		f.digests = digests
	}
}

// Fetcher retrieves dataset archives over HTTP.
type Fetcher struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	digests map[string]digest.Digest
}

// New creates a Fetcher for DefaultBaseURL that verifies the published
// archives against their known digests.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL: DefaultBaseURL,
		client:  http.DefaultClient,
		logger:  slog.New(slog.DiscardHandler),
		digests: knownDigests,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the remote location of a file.
func (f *Fetcher) URL(name string) (string, error) {
	return url.JoinPath(f.baseURL, name)
}

// Open streams a remote file. The caller must close the returned body.
// The content is not verified.
func (f *Fetcher) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	u, err := f.URL(name)
	if err != nil {
		return nil, fmt.Errorf("invalid URL for %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, u, resp.Status)
	}

	f.logger.Debug("opened remote file", "url", u, "size", resp.ContentLength)
	return resp.Body, nil
}

// Download fetches both archives of a split into dir in parallel and
// returns their local paths, images first.
func (f *Fetcher) Download(ctx context.Context, dir string, split dataset.Split) ([]string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	names := Files(split)
	paths := make([]string, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			path, err := f.DownloadFile(ctx, dir, name)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// DownloadFile fetches one file into dir unless a copy with the expected
// digest is already present. Content is written to a temporary file and
// renamed into place only after it has been verified.
func (f *Fetcher) DownloadFile(ctx context.Context, dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	expected, verify := f.digests[name]

	if verify && f.matches(path, expected) {
		f.logger.Info("file already present", "path", path, "digest", expected)
		return path, nil
	}

	body, err := f.Open(ctx, name)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(dir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	digester := digest.Canonical.Digester()
	n, err := io.Copy(io.MultiWriter(tmp, digester.Hash()), body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", name, err)
	}

	actual := digester.Digest()
	if verify && actual != expected {
		return "", fmt.Errorf("%w: %s is %s, expected %s", ErrDigestMismatch, name, actual, expected)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	f.logger.Info("downloaded file", "path", path, "bytes", n, "digest", actual, "verified", verify)
	return path, nil
}

func (f *Fetcher) matches(path string, expected digest.Digest) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	actual, err := expected.Algorithm().FromReader(file)
	return err == nil && actual == expected
}
