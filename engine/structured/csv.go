// Package structured searches the tabular and relational sources of the
// lake: delimited files scored with a fuzzy token-set match, and a sqlite
// table queried with a parameterized substring predicate.
package structured

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/movielake/movielake/engine/evidence"
)

// CSVSource searches one delimited file with a header row. The whole file
// is read into memory at construction.
type CSVSource struct {
	name      string // base file name, used in source ids
	keyColumn string
	header    []string
	rows      []map[string]any
}

// NewCSVSource loads the file at path. The key column is the field the
// fuzzy match runs against. A missing or malformed file is a
// construction-time error.
func NewCSVSource(path, keyColumn string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("structured: open csv: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("structured: read csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("structured: csv %s has no header row", path)
	}

	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = coerce(rec[i])
			}
		}
		rows = append(rows, row)
	}

	return &CSVSource{
		name:      filepath.Base(path),
		keyColumn: keyColumn,
		header:    header,
		rows:      rows,
	}, nil
}

// Search scores every row's key field against the query and returns the
// top k by descending score. Ties keep file order.
func (s *CSVSource) Search(query string, k int) []evidence.Evidence {
	type scored struct {
		score float64
		idx   int
	}
	ranked := make([]scored, len(s.rows))
	for i, row := range s.rows {
		key, _ := evidence.AsString(row[s.keyColumn])
		ranked[i] = scored{score: tokenSetRatio(query, key), idx: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	hits := make([]evidence.Evidence, 0, k)
	for _, r := range ranked[:k] {
		row := s.rows[r.idx]
		locator := fmt.Sprintf("row_%d", r.idx)
		if key, ok := evidence.AsString(row[s.keyColumn]); ok && key != "" {
			locator = key
		}
		sourceID := fmt.Sprintf("csv:%s:%s", s.name, locator)
		hits = append(hits, evidence.NewStructured(evidence.OriginCSV, sourceID, r.score, row))
	}
	return hits
}

// coerce parses a CSV cell into int64 or float64 when it is numeric, so
// downstream consumers see the same value shapes the sqlite driver
// produces.
func coerce(cell string) any {
	if cell == "" {
		return ""
	}
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}
