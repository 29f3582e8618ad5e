// Package main implements the movielake CLI: querying the lake, serving
// the HTTP API, and running the offline ETL steps.
package main

import (
	"log/slog"
	"os"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}
