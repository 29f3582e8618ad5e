package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/movielake/movielake/engine/ingest"
	"github.com/movielake/movielake/engine/unstructured"
	"github.com/movielake/movielake/pkg/config"
	"github.com/movielake/movielake/pkg/ollama"
	"github.com/movielake/movielake/pkg/vecstore"
)

func newSeedDBCmd(logger *slog.Logger) *cobra.Command {
	var script string

	cmd := &cobra.Command{
		Use:   "seed-db",
		Short: "Create and seed the relational movie table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lake, err := loadLake()
			if err != nil {
				return err
			}
			if script == "" {
				script = filepath.Join(filepath.Dir(lake.DB), "seed.sql")
			}

			n, err := ingest.SeedDB(cmd.Context(), lake.DB, script, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "executed %d statements into %s\n", n, lake.DB)
			return nil
		},
	}

	cmd.Flags().StringVar(&script, "script", "", "seed SQL script (default: seed.sql next to the db)")
	return cmd
}

func newBuildIndexCmd(logger *slog.Logger) *cobra.Command {
	var mirror bool

	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Embed the document folder into a searchable index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lake, err := loadLake()
			if err != nil {
				return err
			}
			rt := config.FromEnv()

			deps := ingest.IndexDeps{
				Embedder: ollama.NewEmbedClient(rt.OllamaURL, rt.EmbedModel),
				Logger:   logger,
			}
			if mirror {
				if rt.QdrantURL == "" {
					return fmt.Errorf("--mirror requires QDRANT_URL")
				}
				store, err := vecstore.New(rt.QdrantURL, rt.QdrantColl)
				if err != nil {
					return err
				}
				defer store.Close()
				deps.Store = store
			}

			n, err := ingest.BuildIndex(cmd.Context(), lake.DocsDir, lake.IndexDir, deps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents into %s\n",
				n, filepath.Join(lake.IndexDir, unstructured.MatrixFile))
			return nil
		},
	}

	cmd.Flags().BoolVar(&mirror, "mirror", false, "also upsert the index into Qdrant")
	return cmd
}
