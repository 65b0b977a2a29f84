// Package storage keeps decoded MNIST records in a pebble database so they can
// be browsed by index without re-reading the IDX files.
//
// Keys are laid out per split:
//
//	m/<split>            -> JSON Manifest
//	r/<split>/<index>    -> codec.RecordCodec encoding, index big-endian
//
// Big-endian indexes make pebble's key order match dataset order, so range
// scans return records in the order the decoder produced them.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/mnistidx/pkg/codec"
	"github.com/ssargent/mnistidx/pkg/dataset"
	"github.com/ssargent/mnistidx/pkg/idx"
)

var (
	// ErrNotFound is returned when a split or record has not been imported.
	ErrNotFound = errors.New("storage: not found")
	// ErrIncomplete is returned by Batch.Commit when fewer records were put
	// than the header announced.
	ErrIncomplete = errors.New("storage: import incomplete")
	// ErrBatchClosed is returned when a committed or aborted batch is used.
	ErrBatchClosed = errors.New("storage: batch closed")
	// ErrOutOfOrder is returned when records are not put in index order.
	ErrOutOfOrder = errors.New("storage: record out of order")
)

// flushEvery bounds the number of records buffered in one pebble batch.
const flushEvery = 4096

// Manifest describes one imported split.
type Manifest struct {
	ImportID ksuid.KSUID `json:"import_id"`
	Split    string      `json:"split"`
	Count    uint32      `json:"count"`
	Rows     uint32      `json:"rows"`
	Cols     uint32      `json:"cols"`
	Created  time.Time   `json:"created"`
}

// Option configures a RecordStore.
type Option func(*RecordStore)

// WithLogger sets the logger used for import progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *RecordStore) {
		s.logger = logger
	}
}

// RecordStore is a pebble-backed store of decoded records.
type RecordStore struct {
	db     *pebble.DB
	codec  *codec.RecordCodec
	logger *slog.Logger

	// imports serializes Begin/Commit so two imports of one split cannot
	// interleave.
	imports sync.Mutex
}

// Open opens or creates a record store in dir.
func Open(dir string, opts ...Option) (*RecordStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	s := &RecordStore{
		db:     db,
		codec:  codec.NewRecordCodec(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

func manifestKey(split dataset.Split) []byte {
	return []byte("m/" + split.String())
}

func recordPrefix(split dataset.Split) []byte {
	return []byte("r/" + split.String() + "/")
}

func recordKey(split dataset.Split, index uint32) []byte {
	prefix := recordPrefix(split)
	key := make([]byte, len(prefix)+4)
	copy(key, prefix)
	binary.BigEndian.PutUint32(key[len(prefix):], index)
	return key
}

// prefixEnd returns the smallest key greater than every key with prefix.
// Prefixes here always end in '/', so incrementing the last byte suffices.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	end[len(end)-1]++
	return end
}

// Manifest returns the manifest of an imported split.
func (s *RecordStore) Manifest(split dataset.Split) (Manifest, error) {
	data, closer, err := s.db.Get(manifestKey(split))
	if errors.Is(err, pebble.ErrNotFound) {
		return Manifest{}, fmt.Errorf("%w: split %s", ErrNotFound, split)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	defer closer.Close()

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// Get returns the record at index in split.
func (s *RecordStore) Get(split dataset.Split, index uint32) (codec.Record, error) {
	data, closer, err := s.db.Get(recordKey(split, index))
	if errors.Is(err, pebble.ErrNotFound) {
		return codec.Record{}, fmt.Errorf("%w: %s record %d", ErrNotFound, split, index)
	}
	if err != nil {
		return codec.Record{}, fmt.Errorf("read record: %w", err)
	}
	defer closer.Close()

	// Decode copies, so the record outlives closer.
	return s.codec.Decode(data)
}

// Scan calls fn for up to limit records of split starting at index from, in
// index order. A limit of zero means no limit. An error from fn stops the scan
// and is returned unchanged.
func (s *RecordStore) Scan(split dataset.Split, from uint32, limit int, fn idx.RecordFunc) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: recordKey(split, from),
		UpperBound: prefixEnd(recordPrefix(split)),
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", split, err)
	}
	defer iter.Close()

	n := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		if limit > 0 && n >= limit {
			break
		}
		record, err := s.codec.Decode(iter.Value())
		if err != nil {
			return fmt.Errorf("scan %s: key %x: %w", split, iter.Key(), err)
		}
		if err := fn(record); err != nil {
			return err
		}
		n++
	}
	return iter.Error()
}

// Import decodes a plain image/label stream pair into split, replacing any
// previous import. The streams are not closed. Decode errors abort the import
// and are returned unchanged.
func (s *RecordStore) Import(split dataset.Split, images, labels io.Reader, opts ...idx.Option) (Manifest, error) {
	r, err := idx.NewReader(images, labels, opts...)
	if err != nil {
		return Manifest{}, err
	}

	b, err := s.Begin(split, r.Header())
	if err != nil {
		return Manifest{}, err
	}
	for record, err := range r.All() {
		if err != nil {
			b.Abort()
			return Manifest{}, err
		}
		if err := b.Put(record); err != nil {
			b.Abort()
			return Manifest{}, err
		}
	}
	return b.Commit()
}

// Batch is an in-progress import of one split. Records must be put in index
// order starting from zero.
type Batch struct {
	store  *RecordStore
	split  dataset.Split
	header idx.Header
	id     ksuid.KSUID
	batch  *pebble.Batch
	next   uint32
	closed bool
}

// Begin starts replacing split with header.Count records. The previous
// manifest is removed immediately so readers never see a manifest that does
// not match the stored records. Callers must Commit or Abort the batch.
func (s *RecordStore) Begin(split dataset.Split, header idx.Header) (*Batch, error) {
	s.imports.Lock()

	if err := s.drop(split); err != nil {
		s.imports.Unlock()
		return nil, fmt.Errorf("begin import: %w", err)
	}

	id := ksuid.New()
	s.logger.Info("import started", "split", split.String(), "import_id", id.String(), "count", header.Count)

	return &Batch{
		store:  s,
		split:  split,
		header: header,
		id:     id,
		batch:  s.db.NewBatch(),
	}, nil
}

// drop deletes the manifest and every record of split in one synced batch.
func (s *RecordStore) drop(split dataset.Split) error {
	prefix := recordPrefix(split)
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(manifestKey(split), nil); err != nil {
		return err
	}
	if err := b.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// Put stores one record. It has the idx.RecordFunc signature so a batch can
// consume a decoder directly.
func (b *Batch) Put(r codec.Record) error {
	if b.closed {
		return ErrBatchClosed
	}
	if r.Index() != b.next {
		return fmt.Errorf("%w: got index %d, want %d", ErrOutOfOrder, r.Index(), b.next)
	}
	if r.Rows() != b.header.Rows || r.Cols() != b.header.Cols {
		return fmt.Errorf("storage: record %d is %dx%d, import is %dx%d",
			r.Index(), r.Rows(), r.Cols(), b.header.Rows, b.header.Cols)
	}

	if err := b.batch.Set(recordKey(b.split, r.Index()), b.store.codec.Encode(r), nil); err != nil {
		return fmt.Errorf("put record %d: %w", r.Index(), err)
	}
	b.next++

	if b.next%flushEvery == 0 {
		return b.flush()
	}
	return nil
}

func (b *Batch) flush() error {
	if err := b.batch.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("flush import: %w", err)
	}
	b.batch.Close()
	b.batch = b.store.db.NewBatch()
	b.store.logger.Debug("import progress", "split", b.split.String(), "records", b.next)
	return nil
}

// Written reports how many records have been put.
func (b *Batch) Written() uint32 {
	return b.next
}

// Commit writes the remaining records and the manifest. It fails with
// ErrIncomplete if fewer records than the header count were put. On any
// failure the records already flushed are removed and the split is absent.
func (b *Batch) Commit() (m Manifest, err error) {
	if b.closed {
		return Manifest{}, ErrBatchClosed
	}
	defer func() { b.close(err != nil) }()

	if b.next != b.header.Count {
		return Manifest{}, fmt.Errorf("%w: %d of %d records", ErrIncomplete, b.next, b.header.Count)
	}

	m = Manifest{
		ImportID: b.id,
		Split:    b.split.String(),
		Count:    b.header.Count,
		Rows:     b.header.Rows,
		Cols:     b.header.Cols,
		Created:  time.Now().UTC(),
	}
	data, err := json.Marshal(m)
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if err := b.batch.Set(manifestKey(b.split), data, nil); err != nil {
		return Manifest{}, fmt.Errorf("commit import: %w", err)
	}
	if err := b.batch.Commit(pebble.Sync); err != nil {
		return Manifest{}, fmt.Errorf("commit import: %w", err)
	}

	b.store.logger.Info("import committed", "split", m.Split, "import_id", m.ImportID.String(), "count", m.Count)
	return m, nil
}

// Abort discards the import, including records already flushed, and
// releases the batch. The split is left absent.
func (b *Batch) Abort() {
	if b.closed {
		return
	}
	b.store.logger.Warn("import aborted", "split", b.split.String(), "records", b.next)
	b.close(true)
}

func (b *Batch) close(discard bool) {
	b.closed = true
	b.batch.Close()
	if discard {
		if err := b.store.drop(b.split); err != nil {
			b.store.logger.Error("discard import", "split", b.split.String(), "import_id", b.id.String(), "error", err)
		}
	}
	b.store.imports.Unlock()
}
