package uimf

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

const pairSize = 8 // uint32 bin + uint32 intensity

// encodeSpectrum packs (bin, intensity) pairs as little-endian uint32 pairs
// and compresses them with LZ4. Input that does not shrink is stored
// verbatim, so a blob of exactly count*pairSize bytes is never compressed.
func encodeSpectrum(bins, intensities []int) ([]byte, error) {
	if len(bins) != len(intensities) {
		return nil, fmt.Errorf("bins and intensities differ in length: %d != %d", len(bins), len(intensities))
	}

	raw := make([]byte, len(bins)*pairSize)
	for i := range bins {
		binary.LittleEndian.PutUint32(raw[i*pairSize:], uint32(bins[i]))
		binary.LittleEndian.PutUint32(raw[i*pairSize+4:], uint32(intensities[i]))
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compress spectrum: %w", err)
	}
	if n == 0 || n >= len(raw) {
		return raw, nil
	}
	return compressed[:n], nil
}

// sumSpectrum adds up the intensities of bins in [lo, hi].
// count is the number of stored pairs.
func sumSpectrum(blob []byte, count, lo, hi int) (float64, error) {
	if count == 0 || lo > hi {
		return 0, nil
	}

	size := count * pairSize
	raw := blob
	if len(blob) != size {
		raw = make([]byte, size)
		n, err := lz4.UncompressBlock(blob, raw)
		if err != nil {
			return 0, fmt.Errorf("failed to decompress spectrum: %w", err)
		}
		if n != size {
			return 0, fmt.Errorf("decompressed spectrum size mismatch: %d != %d", n, size)
		}
	}

	sum := 0.0
	for off := 0; off < size; off += pairSize {
		bin := int(binary.LittleEndian.Uint32(raw[off:]))
		if bin < lo || bin > hi {
			continue
		}
		sum += float64(binary.LittleEndian.Uint32(raw[off+4:]))
	}
	return sum, nil
}
