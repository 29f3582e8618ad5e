package structured

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/movielake/movielake/engine/evidence"
)

// Results holds the structured hit sequences per modality.
type Results struct {
	CSV []evidence.Evidence
	DB  []evidence.Evidence
}

// Retriever wraps the configured CSV files and the relational table and
// answers a free-text query with the combined top-k per modality.
type Retriever struct {
	csvSources []*CSVSource
	dbSource   *DBSource
	logger     *slog.Logger
}

// Config names the structured sources.
type Config struct {
	CSVPaths  []string
	DBPath    string
	Table     string
	KeyColumn string
}

// NewRetriever loads every configured source. Any missing file or
// unreachable database fails construction.
func NewRetriever(cfg Config, logger *slog.Logger) (*Retriever, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Table == "" {
		cfg.Table = "movies"
	}
	if cfg.KeyColumn == "" {
		cfg.KeyColumn = "title"
	}

	sources := make([]*CSVSource, 0, len(cfg.CSVPaths))
	for _, p := range cfg.CSVPaths {
		src, err := NewCSVSource(p, cfg.KeyColumn)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	db, err := NewDBSource(cfg.DBPath, cfg.Table, cfg.KeyColumn)
	if err != nil {
		return nil, err
	}

	return &Retriever{csvSources: sources, dbSource: db, logger: logger}, nil
}

// Close releases the relational connection.
func (r *Retriever) Close() error { return r.dbSource.Close() }

// Search gathers each CSV file's own top-k, merges them into a single
// cross-file top-k by score, and runs the relational substring search.
// Because each file is pre-limited to k before the merge, the merged
// sequence only approximates a true global top-k; that behavior is part
// of the contract.
func (r *Retriever) Search(ctx context.Context, query string, k int) (Results, error) {
	var csvHits []evidence.Evidence
	for _, src := range r.csvSources {
		csvHits = append(csvHits, src.Search(query, k)...)
	}
	sort.SliceStable(csvHits, func(i, j int) bool { return csvHits[i].Score > csvHits[j].Score })
	if len(csvHits) > k {
		csvHits = csvHits[:k]
	}

	dbHits, err := r.dbSource.Search(ctx, query, k)
	if err != nil {
		return Results{}, fmt.Errorf("structured: db search: %w", err)
	}

	r.logger.Debug("structured search done", "csv_hits", len(csvHits), "db_hits", len(dbHits))
	return Results{CSV: csvHits, DB: dbHits}, nil
}
