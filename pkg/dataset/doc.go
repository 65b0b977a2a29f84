// Package dataset reads the MNIST training and testing sets by their
// published file names.
//
// A [Loader] resolves the default names inside a directory, opens both
// files, optionally interposes a decompressor, and hands the streams to
// [idx.Decode]. Files are closed when the call returns, whether or not it
// succeeded.
//
//	loader := dataset.NewLoader()
//	err := loader.ReadCompressedTraining("./data", func(r codec.Record) error {
//	    fmt.Println(r.Index(), r.Label())
//	    return nil
//	})
package dataset
