package ingest

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/movielake/movielake/engine/unstructured"
)

type stubEmbedder struct {
	dims int
	err  error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	dims := s.dims
	if dims == 0 {
		dims = 4
	}
	vec := make([]float32, dims)
	// Deterministic, text-dependent, not normalized.
	vec[0] = float32(len(text))
	vec[1] = 2
	return vec, nil
}

func writeDocs(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestBuildIndex(t *testing.T) {
	docsDir := writeDocs(t, map[string]string{
		"inception_review.txt": "A heist inside layered dreams.",
		"matrix_essay.txt":     "Simulated reality and choice.",
		"notes.md":             "ignored, not a txt file",
	})
	indexDir := filepath.Join(t.TempDir(), "index")

	n, err := BuildIndex(context.Background(), docsDir, indexDir, IndexDeps{Embedder: &stubEmbedder{}})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 indexed docs, got %d", n)
	}

	vectors, err := unstructured.ReadMatrix(filepath.Join(indexDir, unstructured.MatrixFile))
	if err != nil {
		t.Fatalf("ReadMatrix: %v", err)
	}
	meta, err := unstructured.ReadMeta(filepath.Join(indexDir, unstructured.MetaFile))
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if len(vectors) != 2 || len(meta) != 2 {
		t.Fatalf("matrix/meta row mismatch: %d/%d", len(vectors), len(meta))
	}

	// Glob order is sorted, so inception comes first.
	if meta[0].Doc != "inception_review" || meta[0].SourceID != "doc:inception_review:0" {
		t.Fatalf("unexpected first meta: %+v", meta[0])
	}
	if meta[1].Chunk != "Simulated reality and choice." {
		t.Fatalf("unexpected chunk text: %q", meta[1].Chunk)
	}

	// Rows are written L2-normalized.
	for i, vec := range vectors {
		var sum float64
		for _, x := range vec {
			sum += float64(x) * float64(x)
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Fatalf("row %d not unit length: %g", i, sum)
		}
	}
}

func TestBuildIndexSkipsEmptyDocs(t *testing.T) {
	docsDir := writeDocs(t, map[string]string{
		"real.txt":  "Something to say.",
		"empty.txt": "   \n",
	})
	indexDir := filepath.Join(t.TempDir(), "index")

	n, err := BuildIndex(context.Background(), docsDir, indexDir, IndexDeps{Embedder: &stubEmbedder{}})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 indexed doc, got %d", n)
	}
}

func TestBuildIndexNoDocs(t *testing.T) {
	indexDir := filepath.Join(t.TempDir(), "index")
	if _, err := BuildIndex(context.Background(), t.TempDir(), indexDir, IndexDeps{Embedder: &stubEmbedder{}}); err == nil {
		t.Fatal("expected error for an empty docs dir")
	}
}

func TestBuildIndexEmbedError(t *testing.T) {
	docsDir := writeDocs(t, map[string]string{"a.txt": "text"})
	indexDir := filepath.Join(t.TempDir(), "index")
	deps := IndexDeps{Embedder: &stubEmbedder{err: errors.New("ollama down")}}
	if _, err := BuildIndex(context.Background(), docsDir, indexDir, deps); err == nil {
		t.Fatal("expected embed error to propagate")
	}
}

func TestBuildIndexNoEmbedder(t *testing.T) {
	if _, err := BuildIndex(context.Background(), t.TempDir(), t.TempDir(), IndexDeps{}); err == nil {
		t.Fatal("expected error without an embedder")
	}
}
