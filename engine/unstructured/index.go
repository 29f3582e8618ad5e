// Package unstructured performs nearest-neighbor search over a
// precomputed chunk index: a binary matrix of L2-normalized float32
// vectors plus line-delimited chunk metadata, optionally backed by a
// prebuilt similarity index capability.
package unstructured

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

const (
	// MatrixFile is the binary embedding matrix inside an index dir.
	MatrixFile = "embeddings.bin"
	// MetaFile is the chunk metadata, one JSON object per line, in the
	// same row order as the matrix.
	MetaFile = "metadata.jsonl"
)

// Meta describes one indexed chunk.
type Meta struct {
	Doc      string `json:"doc"`
	Chunk    string `json:"chunk"`
	SourceID string `json:"source_id"`
}

// ReadMatrix loads a binary embedding matrix: a little-endian header of
// uint32 rows and uint32 dims, followed by row-major float32 values.
func ReadMatrix(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unstructured: open matrix: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var rows, dims uint32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, fmt.Errorf("unstructured: matrix header: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("unstructured: matrix header: %w", err)
	}

	out := make([][]float32, rows)
	for i := range out {
		row := make([]float32, dims)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("unstructured: matrix row %d: %w", i, err)
		}
		out[i] = row
	}
	return out, nil
}

// WriteMatrix writes vectors in the format ReadMatrix expects. All rows
// must share one dimensionality.
func WriteMatrix(path string, vectors [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unstructured: create matrix: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dims)); err != nil {
		return err
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("unstructured: row %d has %d dims, want %d", i, len(v), dims)
		}
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadMeta loads chunk metadata, one JSON object per line.
func ReadMeta(path string) ([]Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unstructured: open metadata: %w", err)
	}
	defer f.Close()

	var out []Meta
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<24)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var m Meta
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("unstructured: metadata line %d: %w", len(out)+1, err)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("unstructured: read metadata: %w", err)
	}
	return out, nil
}

// WriteMeta writes chunk metadata in the format ReadMeta expects.
func WriteMeta(path string, meta []Meta) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unstructured: create metadata: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, m := range meta {
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("unstructured: encode metadata: %w", err)
		}
	}
	return w.Flush()
}

// Normalize scales v to unit L2 length in place. Zero vectors stay zero.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
