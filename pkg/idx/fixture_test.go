package idx

import (
	"encoding/binary"
)

// fixture builds raw IDX bytes without going through Writer.
func fixture(rows, cols uint32, images [][]byte, labels []byte) ([]byte, []byte) {
	return fixtureCounts(uint32(len(images)), uint32(len(labels)), rows, cols, images, labels)
}

func fixtureCounts(imageCount, labelCount, rows, cols uint32, images [][]byte, labels []byte) ([]byte, []byte) {
	img := binary.BigEndian.AppendUint32(nil, MagicImages)
	img = binary.BigEndian.AppendUint32(img, imageCount)
	img = binary.BigEndian.AppendUint32(img, rows)
	img = binary.BigEndian.AppendUint32(img, cols)
	for _, pixels := range images {
		img = append(img, pixels...)
	}

	lbl := binary.BigEndian.AppendUint32(nil, MagicLabels)
	lbl = binary.BigEndian.AppendUint32(lbl, labelCount)
	lbl = append(lbl, labels...)
	return img, lbl
}

// twoByTwo is the two record 2x2 fixture.
func twoByTwo() ([]byte, []byte) {
	return fixture(2, 2, [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}}, []byte{7, 3})
}
