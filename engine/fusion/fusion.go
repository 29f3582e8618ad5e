// Package fusion reshapes raw per-modality hits into the canonical
// evidence pack. It performs no ranking and no filtering: every hit in
// the input appears exactly once in the output with its source id and
// score unchanged.
package fusion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/movielake/movielake/engine/evidence"
)

// tripleSubject is the fixed subject hint for triples extracted from
// structured rows; the lake holds a single entity kind.
const tripleSubject = "movie"

// Normalize builds the evidence pack for one query. DB hits are folded
// into the canonical map before CSV hits, so DB-derived canonical ids
// win ties; within each group the first sighting of a title wins.
func Normalize(query string, raw evidence.Raw) *evidence.Pack {
	pack := &evidence.Pack{
		Query: query,
		Retrieval: evidence.Retrieval{
			DB:   make([]evidence.StructuredHit, 0, len(raw.DB)),
			CSV:  make([]evidence.StructuredHit, 0, len(raw.CSV)),
			Docs: make([]evidence.DocHit, 0, len(raw.Docs)),
		},
		Entities: evidence.Entities{CanonicalMap: make(map[string]string)},
	}

	for _, h := range raw.DB {
		hit := structuredHit(h)
		hit.Table = locatorSegment(h.SourceID)
		recordCanonical(pack.Entities.CanonicalMap, h.Row, hit.CanonicalID)
		pack.Retrieval.DB = append(pack.Retrieval.DB, hit)
	}

	for _, h := range raw.CSV {
		hit := structuredHit(h)
		hit.File = locatorSegment(h.SourceID)
		recordCanonical(pack.Entities.CanonicalMap, h.Row, hit.CanonicalID)
		pack.Retrieval.CSV = append(pack.Retrieval.CSV, hit)
	}

	for _, h := range raw.Docs {
		pack.Retrieval.Docs = append(pack.Retrieval.Docs, evidence.DocHit{
			SourceID: h.SourceID,
			Origin:   evidence.OriginDOC,
			Chunk:    h.Snippet,
			Metadata: evidence.DocMeta{Doc: h.Doc},
			Score:    h.Score,
		})
	}

	return pack
}

func structuredHit(h evidence.Evidence) evidence.StructuredHit {
	title, _ := evidence.AsString(h.Row["title"])
	return evidence.StructuredHit{
		SourceID:    h.SourceID,
		Origin:      h.Origin,
		Row:         h.Row,
		Triples:     rowTriples(h.Row),
		CanonicalID: CanonicalTitle(title, rowYear(h.Row)),
		Score:       h.Score,
	}
}

func recordCanonical(m map[string]string, row map[string]any, canonical string) {
	title, _ := evidence.AsString(row["title"])
	if title == "" || canonical == "" {
		return
	}
	if _, seen := m[title]; !seen {
		m[title] = canonical
	}
}

// CanonicalTitle derives the canonical entity id for a raw title:
// whitespace and case folded, surrounding quote characters stripped,
// with the release year appended when known. year <= 0 means unknown.
func CanonicalTitle(raw string, year int64) string {
	t := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	t = strings.Trim(t, `"'`)
	if t == "" {
		return ""
	}
	if year > 0 {
		return fmt.Sprintf("%s (%d)", t, year)
	}
	return t
}

// rowYear reads the release year when present as an integral value.
func rowYear(row map[string]any) int64 {
	for _, key := range []string{"release_year", "year"} {
		if v, ok := row[key]; ok {
			if y, ok := evidence.AsInt(v); ok {
				return y
			}
		}
	}
	return 0
}

// rowTriples emits one (movie, field, value) atom per non-empty field,
// ordered by predicate so pack encodings are stable.
func rowTriples(row map[string]any) []evidence.Triple {
	triples := make([]evidence.Triple, 0, len(row))
	for k, v := range row {
		if v == nil || v == "" {
			continue
		}
		triples = append(triples, evidence.Triple{Subject: tripleSubject, Predicate: k, Object: v})
	}
	sort.Slice(triples, func(i, j int) bool { return triples[i].Predicate < triples[j].Predicate })
	return triples
}

// locatorSegment returns the middle segment of a source id like
// "db:movies:Inception" or "csv:ratings.csv:Interstellar".
func locatorSegment(sourceID string) string {
	parts := strings.SplitN(sourceID, ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
