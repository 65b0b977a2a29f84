package idx_test

import (
	"bytes"
	"fmt"
	"log"

	"github.com/ssargent/mnistidx/pkg/codec"
	"github.com/ssargent/mnistidx/pkg/idx"
)

func ExampleDecode() {
	var images, labels bytes.Buffer
	w, err := idx.NewWriter(&images, &labels, idx.Header{Count: 2, Rows: 2, Cols: 2})
	if err != nil {
		log.Fatal(err)
	}
	_ = w.Write(7, []byte{1, 2, 3, 4})
	_ = w.Write(3, []byte{5, 6, 7, 8})
	if err := w.Close(); err != nil {
		log.Fatal(err)
	}

	err = idx.Decode(&images, &labels, func(r codec.Record) error {
		fmt.Printf("index=%d label=%d pixels=%v\n", r.Index(), r.Label(), r.Pixels())
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	// Output:
	// index=0 label=7 pixels=[1 2 3 4]
	// index=1 label=3 pixels=[5 6 7 8]
}
