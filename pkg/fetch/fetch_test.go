package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/mnistidx/pkg/codec"
	"github.com/ssargent/mnistidx/pkg/dataset"
	"github.com/ssargent/mnistidx/pkg/decompress"
	"github.com/ssargent/mnistidx/pkg/idx"
)

// archives returns gzip-compressed files for the training split.
func archives(t *testing.T) map[string][]byte {
	t.Helper()
	var images, labels bytes.Buffer
	w, err := idx.NewWriter(&images, &labels, idx.Header{Count: 2, Rows: 2, Cols: 2})
	require.NoError(t, err)
	require.NoError(t, w.Write(7, []byte{1, 2, 3, 4}))
	require.NoError(t, w.Write(3, []byte{5, 6, 7, 8}))
	require.NoError(t, w.Close())

	gz := func(data []byte) []byte {
		var buf bytes.Buffer
		zw, err := decompress.NewWriter(&buf, decompress.FormatGzip)
		require.NoError(t, err)
		_, err = zw.Write(data)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		return buf.Bytes()
	}

	names := Files(dataset.Training)
	return map[string][]byte{
		names[0]: gz(images.Bytes()),
		names[1]: gz(labels.Bytes()),
	}
}

type server struct {
	*httptest.Server
	requests atomic.Int32
}

func newServer(t *testing.T, files map[string][]byte) *server {
	t.Helper()
	s := &server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		data, ok := files[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(s.Close)
	return s
}

func digestsOf(files map[string][]byte) map[string]digest.Digest {
	out := make(map[string]digest.Digest, len(files))
	for name, data := range files {
		out[name] = digest.FromBytes(data)
	}
	return out
}

func TestKnownDigest(t *testing.T) {
	for _, split := range dataset.Splits() {
		for _, name := range Files(split) {
			d, ok := KnownDigest(name)
			require.True(t, ok, name)
			assert.NoError(t, d.Validate())
		}
	}

	_, ok := KnownDigest("train-images.idx3-ubyte")
	assert.False(t, ok)
}

func TestFetcher_URL(t *testing.T) {
	u, err := New().URL("t10k-labels-idx1-ubyte.gz")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/cvdf-datasets/mnist/t10k-labels-idx1-ubyte.gz", u)

	u, err = New(WithBaseURL("http://mirror.local/data")).URL("a.gz")
	require.NoError(t, err)
	assert.Equal(t, "http://mirror.local/data/a.gz", u)
}

func TestFetcher_Download(t *testing.T) {
	files := archives(t)
	srv := newServer(t, files)
	dir := filepath.Join(t.TempDir(), "mnist")

	f := New(WithBaseURL(srv.URL), WithDigests(digestsOf(files)), WithHTTPClient(srv.Client()))

	paths, err := f.Download(context.Background(), dir, dataset.Training)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, int32(2), srv.requests.Load())

	for _, path := range paths {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, files[filepath.Base(path)], data)
	}

	// The downloaded files decode through the dataset loader.
	var labels []uint8
	err = dataset.NewLoader().ReadCompressedTraining(dir, func(r codec.Record) error {
		labels = append(labels, r.Label())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint8{7, 3}, labels)

	// A second download finds verified copies and skips the network.
	_, err = f.Download(context.Background(), dir, dataset.Training)
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.requests.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestFetcher_DigestMismatch(t *testing.T) {
	files := archives(t)
	srv := newServer(t, files)
	dir := t.TempDir()

	digests := digestsOf(files)
	name := Files(dataset.Training)[0]
	digests[name] = digest.FromString("something else")

	f := New(WithBaseURL(srv.URL), WithDigests(digests))
	_, err := f.DownloadFile(context.Background(), dir, name)
	assert.ErrorIs(t, err, ErrDigestMismatch)

	_, statErr := os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetcher_RedownloadsCorruptCopy(t *testing.T) {
	files := archives(t)
	srv := newServer(t, files)
	dir := t.TempDir()
	name := Files(dataset.Training)[1]

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("garbage"), 0600))

	f := New(WithBaseURL(srv.URL), WithDigests(digestsOf(files)))
	path, err := f.DownloadFile(context.Background(), dir, name)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.requests.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, files[name], data)
}

func TestFetcher_NotFound(t *testing.T) {
	srv := newServer(t, map[string][]byte{})

	_, err := New(WithBaseURL(srv.URL)).Download(context.Background(), t.TempDir(), dataset.Testing)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestFetcher_OpenStreamsIntoLoader(t *testing.T) {
	files := archives(t)
	srv := newServer(t, files)
	f := New(WithBaseURL(srv.URL))
	ctx := context.Background()

	names := Files(dataset.Training)
	images, err := f.Open(ctx, names[0])
	require.NoError(t, err)
	defer images.Close()

	labels, err := f.Open(ctx, names[1])
	require.NoError(t, err)
	defer labels.Close()

	var indexes []uint32
	err = dataset.NewLoader().ReadCompressed(images, labels, func(r codec.Record) error {
		indexes = append(indexes, r.Index())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, indexes)
}

func TestFetcher_CanceledContext(t *testing.T) {
	srv := newServer(t, archives(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithBaseURL(srv.URL)).Open(ctx, Files(dataset.Training)[0])
	assert.ErrorIs(t, err, context.Canceled)
}
