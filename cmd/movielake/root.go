package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/movielake/movielake/pkg/config"
)

var (
	configPath string
	dataDir    string
)

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "movielake",
		Short: "Question answering over a movie data lake",
		Long: `movielake answers natural-language questions over three sources:
a relational movie table, rating CSV files, and embedded text documents.
Runtime services (Ollama, OpenAI, Qdrant, NATS) are configured through
the environment.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "lake layout YAML (overrides --data)")
	root.PersistentFlags().StringVar(&dataDir, "data", "data", "lake root directory")

	root.AddCommand(newQueryCmd(logger))
	root.AddCommand(newServeCmd(logger))
	root.AddCommand(newSeedDBCmd(logger))
	root.AddCommand(newBuildIndexCmd(logger))
	return root
}

// loadLake resolves the lake layout from --config or the --data defaults.
func loadLake() (config.Lake, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.Default(dataDir), nil
}
