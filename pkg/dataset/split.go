package dataset

import (
	"fmt"
	"strings"
)

// Split selects one of the two MNIST file pairs.
type Split int

const (
	Training Split = iota
	Testing
)

// Splits lists every split in file order.
func Splits() []Split {
	return []Split{Training, Testing}
}

// String returns "train" or "test".
func (s Split) String() string {
	switch s {
	case Training:
		return "train"
	case Testing:
		return "test"
	default:
		return fmt.Sprintf("Split(%d)", int(s))
	}
}

// Prefix returns the file name prefix the published files use.
func (s Split) Prefix() string {
	if s == Testing {
		return "t10k"
	}
	return "train"
}

// ParseSplit parses a split name.
func ParseSplit(name string) (Split, error) {
	switch strings.ToLower(name) {
	case "train", "training":
		return Training, nil
	case "test", "testing", "t10k":
		return Testing, nil
	default:
		return 0, fmt.Errorf("unknown split %q (want train or test)", name)
	}
}

// FileNames returns the default image and label file names of a split.
// Compressed names are those of the published archives, plain names those
// the archives extract to.
func FileNames(split Split, compressed bool) (images, labels string) {
	if compressed {
		return split.Prefix() + "-images-idx3-ubyte.gz", split.Prefix() + "-labels-idx1-ubyte.gz"
	}
	return split.Prefix() + "-images.idx3-ubyte", split.Prefix() + "-labels.idx1-ubyte"
}
