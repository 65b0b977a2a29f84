//go:build fuzz
// +build fuzz

package idx

import (
	"bytes"
	"testing"

	"github.com/ssargent/mnistidx/pkg/codec"
)

// FuzzDecode checks that arbitrary streams never panic and that every
// emitted record honours the pixel count invariant.
func FuzzDecode(f *testing.F) {
	images, labels := twoByTwo()
	f.Add(images, labels)
	f.Add(images[:ImageHeaderSize+3], labels)
	f.Add([]byte{}, []byte{})

	f.Fuzz(func(t *testing.T, images, labels []byte) {
		var next uint32
		_ = Decode(bytes.NewReader(images), bytes.NewReader(labels), func(r codec.Record) error {
			if r.Index() != next {
				t.Fatalf("index %d, want %d", r.Index(), next)
			}
			if uint64(r.Len()) != uint64(r.Rows())*uint64(r.Cols()) {
				t.Fatalf("record %d has %d pixels for %dx%d", r.Index(), r.Len(), r.Rows(), r.Cols())
			}
			next++
			return nil
		})
	})
}
