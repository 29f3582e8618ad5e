// Package evidence defines the result types shared across the retrieval
// pipeline: the per-hit Evidence record produced by the retrievers, the
// fused EvidencePack handed to answer synthesis, and the router's
// RouteDecision.
package evidence

// Origin identifies which modality produced a hit.
type Origin string

const (
	OriginDB  Origin = "DB"
	OriginCSV Origin = "CSV"
	OriginDOC Origin = "DOC"
)

// Evidence is one retrieved candidate. Structured hits (DB/CSV) carry a
// full row; document hits carry the originating doc name and a snippet.
// Instances are built once per search call and never mutated.
type Evidence struct {
	Origin   Origin
	SourceID string
	Score    float64 // always in [0,1], clamped at construction
	Row      map[string]any
	Doc      string
	Snippet  string
}

// NewStructured builds a DB or CSV hit, clamping score into [0,1].
func NewStructured(origin Origin, sourceID string, score float64, row map[string]any) Evidence {
	return Evidence{
		Origin:   origin,
		SourceID: sourceID,
		Score:    ClampScore(score),
		Row:      row,
	}
}

// NewDoc builds a document hit, clamping score into [0,1].
func NewDoc(sourceID string, score float64, doc, snippet string) Evidence {
	return Evidence{
		Origin:   OriginDOC,
		SourceID: sourceID,
		Score:    ClampScore(score),
		Doc:      doc,
		Snippet:  snippet,
	}
}

// ClampScore forces an unbounded similarity into [0,1].
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Raw groups the unfused hit sequences from one retrieval fan-out,
// keyed by modality. Modalities that were not searched stay empty.
type Raw struct {
	DB   []Evidence
	CSV  []Evidence
	Docs []Evidence
}
