package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/movielake/movielake/engine/unstructured"
	"github.com/movielake/movielake/pkg/vecstore"
)

// IndexDeps holds the external dependencies for index building.
type IndexDeps struct {
	Embedder unstructured.Embedder
	// Store mirrors the index into Qdrant when non-nil.
	Store  *vecstore.Store
	Logger *slog.Logger
}

// BuildIndex embeds every *.txt file under docsDir, one chunk per
// document, and writes the matrix and metadata sidecar into indexDir.
// Vectors are L2-normalized before writing so search reduces to an
// inner product. Returns the number of indexed documents.
func BuildIndex(ctx context.Context, docsDir, indexDir string, deps IndexDeps) (int, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Embedder == nil {
		return 0, fmt.Errorf("ingest: no embedder configured")
	}

	paths, err := filepath.Glob(filepath.Join(docsDir, "*.txt"))
	if err != nil {
		return 0, fmt.Errorf("ingest: glob docs: %w", err)
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("ingest: no *.txt documents in %s", docsDir)
	}
	sort.Strings(paths)

	vectors := make([][]float32, 0, len(paths))
	meta := make([]unstructured.Meta, 0, len(paths))
	dims := 0
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return 0, fmt.Errorf("ingest: read %s: %w", p, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			logger.Warn("skipping empty document", "path", p)
			continue
		}

		vec, err := deps.Embedder.Embed(ctx, text)
		if err != nil {
			return 0, fmt.Errorf("ingest: embed %s: %w", p, err)
		}
		if dims == 0 {
			dims = len(vec)
		} else if len(vec) != dims {
			return 0, fmt.Errorf("ingest: %s embedded to %d dims, want %d", p, len(vec), dims)
		}
		unstructured.Normalize(vec)

		name := strings.TrimSuffix(filepath.Base(p), ".txt")
		vectors = append(vectors, vec)
		meta = append(meta, unstructured.Meta{
			Doc:      name,
			Chunk:    text,
			SourceID: fmt.Sprintf("doc:%s:0", name),
		})
	}
	if len(vectors) == 0 {
		return 0, fmt.Errorf("ingest: all documents in %s were empty", docsDir)
	}

	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return 0, fmt.Errorf("ingest: create index dir: %w", err)
	}
	if err := unstructured.WriteMatrix(filepath.Join(indexDir, unstructured.MatrixFile), vectors); err != nil {
		return 0, err
	}
	if err := unstructured.WriteMeta(filepath.Join(indexDir, unstructured.MetaFile), meta); err != nil {
		return 0, err
	}

	if deps.Store != nil {
		if err := mirrorToStore(ctx, deps.Store, vectors, meta, dims); err != nil {
			return 0, err
		}
		logger.Info("index mirrored to vector store", "points", len(vectors))
	}

	logger.Info("index built", "docs", len(vectors), "dims", dims, "dir", indexDir)
	return len(vectors), nil
}

func mirrorToStore(ctx context.Context, store *vecstore.Store, vectors [][]float32, meta []unstructured.Meta, dims int) error {
	if err := store.EnsureCollection(ctx, dims); err != nil {
		return err
	}
	records := make([]vecstore.Record, len(vectors))
	for i, vec := range vectors {
		records[i] = vecstore.Record{
			ID:       uuid.NewString(),
			Vector:   vec,
			SourceID: meta[i].SourceID,
			Doc:      meta[i].Doc,
			Chunk:    meta[i].Chunk,
		}
	}
	return store.Upsert(ctx, records)
}
