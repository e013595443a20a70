// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// FlatIndex is a brute-force nearest-neighbour index over fixed-dimension
// vectors, searched by squared L2 distance. Ordinal positions are stable:
// the i-th Add lands at ordinal i.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

// NewFlatIndex returns an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Dim returns the vector dimension.
func (ix *FlatIndex) Dim() int { return ix.dim }

// Size returns the number of stored vectors.
func (ix *FlatIndex) Size() int { return len(ix.vectors) }

// Add appends a vector to the index.
func (ix *FlatIndex) Add(vec []float32) error {
	if len(vec) != ix.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), ix.dim)
	}
	stored := make([]float32, ix.dim)
	copy(stored, vec)
	ix.vectors = append(ix.vectors, stored)
	return nil
}

// Search returns the ordinal of the nearest stored vector by L2 distance
// and the squared distance to it. An empty index or mismatched query
// dimension yields ordinal -1.
func (ix *FlatIndex) Search(vec []float32) (int, float32) {
	if len(ix.vectors) == 0 || len(vec) != ix.dim {
		return -1, 0
	}

	best := -1
	bestDist := float32(math.MaxFloat32)
	for i, stored := range ix.vectors {
		d := squaredL2(vec, stored)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}

func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

// Save writes the index to path as little-endian binary: uint32 dim,
// uint32 count, then count*dim float32 values. The write is atomic
// (temp file + rename).
func (ix *FlatIndex) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	buf := make([]byte, 8+len(ix.vectors)*ix.dim*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(ix.dim))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(ix.vectors)))
	off := 8
	for _, vec := range ix.vectors {
		for _, v := range vec {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
			off += 4
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadIndex reads an index written by Save. A truncated or otherwise
// malformed file is an error; callers treat that as a rebuild signal.
func LoadIndex(path string) (*FlatIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("index file %s too small", path)
	}

	dim := int(binary.LittleEndian.Uint32(data[0:4]))
	count := int(binary.LittleEndian.Uint32(data[4:8]))
	if dim <= 0 {
		return nil, fmt.Errorf("index file %s has invalid dimension %d", path, dim)
	}
	if len(data) != 8+count*dim*4 {
		return nil, fmt.Errorf("index file %s length mismatch", path)
	}

	ix := NewFlatIndex(dim)
	off := 8
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		ix.vectors = append(ix.vectors, vec)
	}
	return ix, nil
}
