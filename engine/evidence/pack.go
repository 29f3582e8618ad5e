package evidence

// Triple is one (subject, predicate, object) fact atom extracted from a
// structured row.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    any    `json:"object"`
}

// StructuredHit is a normalized DB or CSV hit inside a Pack.
type StructuredHit struct {
	SourceID    string         `json:"source_id"`
	Origin      Origin         `json:"origin"`
	Table       string         `json:"table,omitempty"`
	File        string         `json:"file,omitempty"`
	Row         map[string]any `json:"row"`
	Triples     []Triple       `json:"triples"`
	CanonicalID string         `json:"canonical_id"`
	Score       float64        `json:"score"`
}

// DocHit is a normalized document hit inside a Pack.
type DocHit struct {
	SourceID string  `json:"source_id"`
	Origin   Origin  `json:"origin"`
	Chunk    string  `json:"chunk"`
	Metadata DocMeta `json:"metadata"`
	Score    float64 `json:"score"`
}

// DocMeta carries the originating document name for a chunk.
type DocMeta struct {
	Doc string `json:"doc"`
}

// Retrieval holds the normalized hits per modality, in retrieval order.
type Retrieval struct {
	DB   []StructuredHit `json:"db"`
	CSV  []StructuredHit `json:"csv"`
	Docs []DocHit        `json:"docs"`
}

// Entities holds the entity canonicalization produced by fusion.
type Entities struct {
	// CanonicalMap maps a raw title string to its canonical identifier.
	// Entries are set on first sight per title; DB is authoritative.
	CanonicalMap map[string]string `json:"canonical_map"`
}

// Pack is the fused, query-scoped evidence snapshot handed to answer
// synthesis. Its JSON encoding is the wire contract between fusion and
// synthesis, and the persisted audit record of a query.
type Pack struct {
	Query     string    `json:"query"`
	Retrieval Retrieval `json:"retrieval"`
	Entities  Entities  `json:"entities"`
}

// Route is the retrieval route chosen for a query.
type Route string

const (
	RouteStructured   Route = "structured"
	RouteUnstructured Route = "unstructured"
	RouteBoth         Route = "both"
)

// Valid reports whether r is one of the three known routes.
func (r Route) Valid() bool {
	return r == RouteStructured || r == RouteUnstructured || r == RouteBoth
}

// RouteDecision is the router's output: the chosen route, a confidence
// in [0,1], and the named signals that produced the decision.
type RouteDecision struct {
	Route      Route           `json:"route"`
	Confidence float64         `json:"confidence"`
	Features   map[string]bool `json:"features"`
}
