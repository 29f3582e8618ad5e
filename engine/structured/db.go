package structured

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/movielake/movielake/engine/evidence"
)

// DBSource searches one relational table with a case-insensitive
// substring match on the key column. Matches carry a fixed score of 1.0:
// substring membership is exact, there is no ranking among relational
// hits (a known asymmetry against CSV scores).
type DBSource struct {
	db        *sql.DB
	table     string
	keyColumn string
}

// NewDBSource opens the sqlite database at path. An absent file or
// unreachable database is a construction-time error; the driver would
// otherwise silently create an empty database.
func NewDBSource(path, table, keyColumn string) (*DBSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("structured: sqlite database: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("structured: open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("structured: ping sqlite %s: %w", path, err)
	}
	return &DBSource{db: db, table: table, keyColumn: keyColumn}, nil
}

// Close releases the underlying connection pool.
func (s *DBSource) Close() error { return s.db.Close() }

// Search returns up to k rows whose key column contains the query,
// case-insensitively. Each row is materialized as a full column map.
func (s *DBSource) Search(ctx context.Context, query string, k int) ([]evidence.Evidence, error) {
	// Table and column names come from configuration, not user input;
	// they still go through identifier quoting.
	q := fmt.Sprintf("SELECT * FROM %q WHERE %q LIKE ? LIMIT ?", s.table, s.keyColumn)
	rows, err := s.db.QueryContext(ctx, q, "%"+query+"%", k)
	if err != nil {
		return nil, fmt.Errorf("structured: query %s: %w", s.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("structured: columns: %w", err)
	}

	var hits []evidence.Evidence
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("structured: scan: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}

		locator := "row"
		if key, ok := evidence.AsString(row[s.keyColumn]); ok && key != "" {
			locator = key
		}
		sourceID := fmt.Sprintf("db:%s:%s", s.table, locator)
		hits = append(hits, evidence.NewStructured(evidence.OriginDB, sourceID, 1.0, row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("structured: rows: %w", err)
	}
	return hits, nil
}
