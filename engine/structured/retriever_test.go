package structured

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/movielake/movielake/engine/evidence"
)

func seedSQLite(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "movies.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE movies (title TEXT, release_year INTEGER, box_office_usd INTEGER)`,
		`INSERT INTO movies VALUES ('Inception', 2010, 829895144)`,
		`INSERT INTO movies VALUES ('Interstellar', 2014, 677471339)`,
		`INSERT INTO movies VALUES ('Dunkirk', 2017, 527015012)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestNewDBSourceMissingFile(t *testing.T) {
	if _, err := NewDBSource(filepath.Join(t.TempDir(), "absent.db"), "movies", "title"); err == nil {
		t.Fatal("expected error for missing database file")
	}
}

func TestDBSearch(t *testing.T) {
	path := seedSQLite(t, t.TempDir())
	src, err := NewDBSource(path, "movies", "title")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	hits, err := src.Search(context.Background(), "incep", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	h := hits[0]
	if h.SourceID != "db:movies:Inception" {
		t.Errorf("source_id = %q", h.SourceID)
	}
	if h.Score != 1.0 {
		t.Errorf("score = %v, want fixed 1.0", h.Score)
	}
	if y, ok := evidence.AsInt(h.Row["release_year"]); !ok || y != 2010 {
		t.Errorf("release_year = %#v", h.Row["release_year"])
	}
}

func TestDBSearchEmptyResult(t *testing.T) {
	path := seedSQLite(t, t.TempDir())
	src, err := NewDBSource(path, "movies", "title")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	hits, err := src.Search(context.Background(), "no such movie", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("got %d hits, want 0", len(hits))
	}
}

// The cross-file merge pre-limits each file to k before the global sort,
// so one rich file cannot supply more than k candidates even when its
// k+1th row outscores another file's best. That approximation is pinned
// here on purpose.
func TestRetrieverCrossFileMerge(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", "title\nInception\nInception Part Two\nInception Part Three\n")
	writeCSV(t, dir, "b.csv", "title\nDunkirk\n")
	dbPath := seedSQLite(t, dir)

	r, err := NewRetriever(Config{
		CSVPaths: []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")},
		DBPath:   dbPath,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	res, err := r.Search(context.Background(), "Inception", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.CSV) != 2 {
		t.Fatalf("got %d csv hits, want 2", len(res.CSV))
	}
	// a.csv was truncated to its own top-2 before the merge; both merged
	// hits come from a.csv because b.csv's best scores 0.
	for _, h := range res.CSV {
		if h.Score < res.CSV[len(res.CSV)-1].Score {
			t.Error("csv hits not sorted descending")
		}
	}
	if res.CSV[0].SourceID != "csv:a.csv:Inception" {
		t.Errorf("top hit = %q", res.CSV[0].SourceID)
	}
	if len(res.DB) != 1 {
		t.Fatalf("got %d db hits, want 1", len(res.DB))
	}
}

func TestRetrieverMissingCSVFailsConstruction(t *testing.T) {
	dir := t.TempDir()
	dbPath := seedSQLite(t, dir)
	_, err := NewRetriever(Config{
		CSVPaths: []string{filepath.Join(dir, "absent.csv")},
		DBPath:   dbPath,
	}, nil)
	if err == nil {
		t.Fatal("expected construction error")
	}
}
