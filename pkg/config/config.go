// Package config loads the lake layout from a YAML file and fills in
// runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Lake describes where the data lives on disk.
type Lake struct {
	// CSV files searched by the structured retriever.
	CSV []string `yaml:"csv"`
	// DB is the SQLite database path.
	DB string `yaml:"db"`
	// Table and KeyColumn select what the DB retriever searches.
	Table     string `yaml:"table"`
	KeyColumn string `yaml:"key_column"`
	// DocsDir holds the plain-text documents to index.
	DocsDir string `yaml:"docs_dir"`
	// IndexDir holds the embedding matrix and metadata sidecar.
	IndexDir string `yaml:"index_dir"`
	// OutputsDir receives answer JSON files.
	OutputsDir string `yaml:"outputs_dir"`
}

// Runtime holds settings read from the environment.
type Runtime struct {
	OpenAIKey string
	OpenAIURL string
	OllamaURL string
	// ChatProvider selects the chat backend: "openai" or "ollama".
	ChatProvider string
	EmbedModel   string
	ChatModel    string
	QdrantURL    string
	QdrantColl   string
	NATSURL      string
}

// Default returns the conventional lake layout rooted at dir.
func Default(dir string) Lake {
	return Lake{
		CSV: []string{
			filepath.Join(dir, "movies_ratings.csv"),
			filepath.Join(dir, "movies_extra.csv"),
		},
		DB:         filepath.Join(dir, "movies.db"),
		Table:      "movies",
		KeyColumn:  "title",
		DocsDir:    filepath.Join(dir, "docs"),
		IndexDir:   filepath.Join(dir, "index"),
		OutputsDir: filepath.Join(dir, "outputs"),
	}
}

// Load reads a Lake from a YAML file. Relative paths in the file are kept
// as written.
func Load(path string) (Lake, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lake{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var lake Lake
	if err := yaml.Unmarshal(data, &lake); err != nil {
		return Lake{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if lake.Table == "" {
		lake.Table = "movies"
	}
	if lake.KeyColumn == "" {
		lake.KeyColumn = "title"
	}
	return lake, nil
}

// FromEnv reads runtime settings, applying defaults for local services.
func FromEnv() Runtime {
	return Runtime{
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIURL:    envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		ChatProvider: envOr("CHAT_PROVIDER", "openai"),
		EmbedModel:   envOr("EMBED_MODEL", "nomic-embed-text"),
		ChatModel:    envOr("CHAT_MODEL", "gpt-4o-mini"),
		QdrantURL:    os.Getenv("QDRANT_URL"),
		QdrantColl:   envOr("QDRANT_COLLECTION", "movielake"),
		NATSURL:      os.Getenv("NATS_URL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
