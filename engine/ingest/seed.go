// Package ingest builds the data lake: it seeds the relational movie
// table from a SQL script and turns the plain-text document folder into
// an embedding index the document retriever can load.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// SeedDB executes the statements in scriptPath against the SQLite
// database at dbPath, creating the file if needed. It returns the number
// of statements executed.
func SeedDB(ctx context.Context, dbPath, scriptPath string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return 0, fmt.Errorf("ingest: read seed script: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("ingest: open db %s: %w", dbPath, err)
	}
	defer db.Close()

	stmts := splitStatements(string(script))
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ingest: begin: %w", err)
	}
	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("ingest: statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ingest: commit: %w", err)
	}

	logger.Info("database seeded", "db", dbPath, "statements", len(stmts))
	return len(stmts), nil
}

// splitStatements splits a SQL script on semicolons, skipping blank
// pieces and full-line comments. Semicolons inside string literals are
// not supported; seed scripts must avoid them.
func splitStatements(script string) []string {
	var out []string
	for _, piece := range strings.Split(script, ";") {
		var kept []string
		for _, line := range strings.Split(piece, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			kept = append(kept, line)
		}
		stmt := strings.TrimSpace(strings.Join(kept, "\n"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
