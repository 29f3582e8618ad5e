package unstructured

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/movielake/movielake/engine/evidence"
)

// snippetLen is how much of a stored chunk is surfaced as evidence.
const snippetLen = 500

// Embedder encodes text into a fixed-length vector. Implementations are
// expected to be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Metric is the native metric of a similarity index.
type Metric int

const (
	// MetricInnerProduct means index values are already similarities.
	MetricInnerProduct Metric = iota
	// MetricDistance means index values are distances; similarity is
	// derived as 1 - distance.
	MetricDistance
)

// Neighbor is one raw nearest-neighbor result from an index capability.
type Neighbor struct {
	SourceID string
	Value    float64 // in the index's native metric
}

// VectorIndex is an optional prebuilt similarity index. When absent the
// retriever falls back to a brute-force scan of the stored matrix.
type VectorIndex interface {
	Metric() Metric
	Search(ctx context.Context, vector []float32, k int) ([]Neighbor, error)
}

// Options configures a Retriever beyond the index directory.
type Options struct {
	// Embedder builds the query encoder. It runs at most once, on the
	// first search, so an expensive encoder is never set up for
	// processes that only construct the retriever.
	Embedder func() (Embedder, error)
	// Index is the optional prebuilt similarity index.
	Index  VectorIndex
	Logger *slog.Logger
}

// Retriever answers queries over a chunk index built offline. The matrix
// and metadata must exist at construction; searching without them is not
// a degraded mode but a setup mistake.
type Retriever struct {
	matrix [][]float32
	meta   []Meta
	byID   map[string]Meta
	index  VectorIndex
	logger *slog.Logger

	newEmbedder func() (Embedder, error)
	encodeOnce  sync.Once
	encoder     Embedder
	encoderErr  error
}

// NewRetriever loads the chunk index from dir. A missing matrix or
// metadata file is a hard error: the offline build step must run first.
func NewRetriever(dir string, opts Options) (*Retriever, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("unstructured: no embedder configured")
	}

	matrix, err := ReadMatrix(filepath.Join(dir, MatrixFile))
	if err != nil {
		return nil, fmt.Errorf("unstructured: index dir %s (run the index build first): %w", dir, err)
	}
	for _, row := range matrix {
		Normalize(row)
	}

	meta, err := ReadMeta(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, fmt.Errorf("unstructured: index dir %s (run the index build first): %w", dir, err)
	}
	if len(meta) != len(matrix) {
		return nil, fmt.Errorf("unstructured: %d metadata rows for %d vectors in %s", len(meta), len(matrix), dir)
	}

	byID := make(map[string]Meta, len(meta))
	for _, m := range meta {
		byID[m.SourceID] = m
	}

	return &Retriever{
		matrix:      matrix,
		meta:        meta,
		byID:        byID,
		index:       opts.Index,
		logger:      logger,
		newEmbedder: opts.Embedder,
	}, nil
}

// Len returns the number of indexed chunks.
func (r *Retriever) Len() int { return len(r.meta) }

// Search encodes the query and returns the k most similar chunks, scores
// descending in [0,1]. A missing or failing encoder is a hard error; a
// failing index capability degrades to the brute-force scan.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]evidence.Evidence, error) {
	r.encodeOnce.Do(func() {
		r.encoder, r.encoderErr = r.newEmbedder()
	})
	if r.encoderErr != nil {
		return nil, fmt.Errorf("unstructured: init encoder: %w", r.encoderErr)
	}

	vec, err := r.encoder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("unstructured: encode query: %w", err)
	}
	Normalize(vec)

	if r.index != nil {
		hits, err := r.searchIndex(ctx, vec, k)
		if err == nil {
			return hits, nil
		}
		r.logger.Warn("similarity index failed, falling back to brute force", "err", err)
	}
	return r.searchBrute(vec, k), nil
}

func (r *Retriever) searchIndex(ctx context.Context, vec []float32, k int) ([]evidence.Evidence, error) {
	neighbors, err := r.index.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	hits := make([]evidence.Evidence, 0, len(neighbors))
	for _, n := range neighbors {
		m, ok := r.byID[n.SourceID]
		if !ok {
			// Index rows not present in local metadata are skipped.
			continue
		}
		score := n.Value
		if r.index.Metric() == MetricDistance {
			score = 1 - n.Value
		}
		hits = append(hits, evidence.NewDoc(m.SourceID, score, m.Doc, truncate(m.Chunk, snippetLen)))
	}
	return hits, nil
}

func (r *Retriever) searchBrute(vec []float32, k int) []evidence.Evidence {
	idx := make([]int, len(r.matrix))
	sims := make([]float64, len(r.matrix))
	for i, row := range r.matrix {
		idx[i] = i
		sims[i] = dot(row, vec)
	}
	sort.SliceStable(idx, func(a, b int) bool { return sims[idx[a]] > sims[idx[b]] })

	if k > len(idx) {
		k = len(idx)
	}
	hits := make([]evidence.Evidence, 0, k)
	for _, i := range idx[:k] {
		m := r.meta[i]
		hits = append(hits, evidence.NewDoc(m.SourceID, sims[i], m.Doc, truncate(m.Chunk, snippetLen)))
	}
	return hits
}

// truncate cuts s to at most n runes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
