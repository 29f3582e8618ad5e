package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/movielake/movielake/engine/answer"
	"github.com/movielake/movielake/engine/query"
	"github.com/movielake/movielake/engine/router"
	"github.com/movielake/movielake/engine/structured"
	"github.com/movielake/movielake/engine/unstructured"
	"github.com/movielake/movielake/pkg/config"
	"github.com/movielake/movielake/pkg/llm"
	"github.com/movielake/movielake/pkg/metrics"
	"github.com/movielake/movielake/pkg/ollama"
	"github.com/movielake/movielake/pkg/vecstore"
)

// app bundles the wired pipeline with the resources it owns.
type app struct {
	svc     *query.Service
	reg     *metrics.Registry
	nc      *nats.Conn // nil when NATS_URL is unset
	closers []func() error
	logger  *slog.Logger
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "err", err)
		}
	}
}

// buildApp wires the retrievers, router, and synthesizer from the lake
// layout and environment. Both the database and the document index must
// already exist; seed-db and build-index create them.
func buildApp(logger *slog.Logger) (*app, error) {
	lake, err := loadLake()
	if err != nil {
		return nil, err
	}
	rt := config.FromEnv()

	a := &app{reg: metrics.New(), logger: logger}

	str, err := structured.NewRetriever(structured.Config{
		CSVPaths:  lake.CSV,
		DBPath:    lake.DB,
		Table:     lake.Table,
		KeyColumn: lake.KeyColumn,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, str.Close)

	var index unstructured.VectorIndex
	if rt.QdrantURL != "" {
		store, err := vecstore.New(rt.QdrantURL, rt.QdrantColl)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		index = &qdrantIndex{store: store}
		logger.Info("qdrant index enabled", "url", rt.QdrantURL, "collection", rt.QdrantColl)
	}

	docs, err := unstructured.NewRetriever(lake.IndexDir, unstructured.Options{
		Embedder: func() (unstructured.Embedder, error) {
			return ollama.NewEmbedClient(rt.OllamaURL, rt.EmbedModel), nil
		},
		Index:  index,
		Logger: logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	chat := chatClient(rt)
	rtr := router.New(chat, rt.ChatModel, logger)
	synth := answer.New(chat, rt.ChatModel, logger)
	a.svc = query.New(rtr, str, docs, synth, logger, a.reg)

	if rt.NATSURL != "" {
		nc, err := nats.Connect(rt.NATSURL, nats.Name("movielake"))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		a.nc = nc
		a.closers = append(a.closers, func() error { nc.Close(); return nil })
		logger.Info("audit publishing enabled", "url", rt.NATSURL)
	}

	return a, nil
}

// chatClient picks the chat backend. The OpenAI client reports
// ErrUnavailable without an API key, which keeps heuristic routing and
// the extractive fallback working with no configuration at all.
func chatClient(rt config.Runtime) llm.Client {
	if rt.ChatProvider == "ollama" {
		return llm.NewOllama(llm.OllamaConfig{BaseURL: rt.OllamaURL, Model: rt.ChatModel})
	}
	return llm.NewOpenAI(llm.OpenAIConfig{APIKey: rt.OpenAIKey, BaseURL: rt.OpenAIURL, Model: rt.ChatModel})
}

// qdrantIndex adapts the Qdrant store to the retriever's index
// capability. Cosine scores over normalized vectors are similarities,
// so the metric is inner product.
type qdrantIndex struct {
	store *vecstore.Store
}

func (q *qdrantIndex) Metric() unstructured.Metric { return unstructured.MetricInnerProduct }

func (q *qdrantIndex) Search(ctx context.Context, vector []float32, k int) ([]unstructured.Neighbor, error) {
	results, err := q.store.Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}
	neighbors := make([]unstructured.Neighbor, len(results))
	for i, r := range results {
		neighbors[i] = unstructured.Neighbor{SourceID: r.SourceID, Value: float64(r.Score)}
	}
	return neighbors, nil
}
