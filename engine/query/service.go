// Package query orchestrates the full answer pipeline. It accepts a user
// question, decides which retrieval modalities to run, fans out to the
// structured and document retrievers, fuses the raw hits into an evidence
// pack, and hands the pack to the answer synthesizer.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/movielake/movielake/engine/answer"
	"github.com/movielake/movielake/engine/evidence"
	"github.com/movielake/movielake/engine/fusion"
	"github.com/movielake/movielake/engine/structured"
	"github.com/movielake/movielake/pkg/metrics"
)

// StructuredSearcher abstracts the CSV plus relational retriever.
type StructuredSearcher interface {
	Search(ctx context.Context, query string, k int) (structured.Results, error)
}

// DocSearcher abstracts the embedded document retriever.
type DocSearcher interface {
	Search(ctx context.Context, query string, k int) ([]evidence.Evidence, error)
}

// RouteDecider picks retrieval modalities for a query.
type RouteDecider interface {
	Route(ctx context.Context, query string) evidence.RouteDecision
}

// Synthesizer turns an evidence pack into a final answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, pack *evidence.Pack, preferLLM bool) answer.Result
}

// Opts are per-query knobs.
type Opts struct {
	// K is the per-modality hit cap. Zero selects DefaultK.
	K int
	// Route forces a modality set and skips the router when non-empty.
	Route evidence.Route
	// PreferLLM asks for LLM synthesis; the extractive fallback still
	// applies when the LLM is unavailable or fails.
	PreferLLM bool
}

// DefaultK is the per-modality hit cap when the caller does not set one.
const DefaultK = 3

// Result is the full pipeline output for one query.
type Result struct {
	Query      string                 `json:"query"`
	Route      evidence.RouteDecision `json:"route"`
	Pack       *evidence.Pack         `json:"pack"`
	Answer     answer.Result          `json:"answer"`
	DurationMS int64                  `json:"duration_ms"`
}

// Service wires the pipeline stages together.
type Service struct {
	router     RouteDecider
	structured StructuredSearcher
	docs       DocSearcher
	synth      Synthesizer
	logger     *slog.Logger
	reg        *metrics.Registry
}

// New creates a Service. A nil registry gets a private one so metric
// calls never need guarding.
func New(router RouteDecider, str StructuredSearcher, docs DocSearcher, synth Synthesizer, logger *slog.Logger, reg *metrics.Registry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = metrics.New()
	}
	return &Service{
		router:     router,
		structured: str,
		docs:       docs,
		synth:      synth,
		logger:     logger,
		reg:        reg,
	}
}

// Query runs routing, retrieval, fusion, and synthesis for one question.
func (s *Service) Query(ctx context.Context, question string, opts Opts) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("query: empty question")
	}
	k := opts.K
	if k <= 0 {
		k = DefaultK
	}

	start := time.Now()
	s.logger.Info("query start", "question_len", len(question), "k", k)

	decision := s.decide(ctx, question, opts.Route)

	raw, err := s.retrieve(ctx, question, decision.Route, k)
	if err != nil {
		s.reg.Counter("retrieval_errors_total", "Retrieval failures").Inc()
		return nil, err
	}

	pack := fusion.Normalize(question, raw)
	ans := s.synth.Synthesize(ctx, pack, opts.PreferLLM)

	elapsed := time.Since(start)
	s.reg.Counter(metrics.WithLabels("queries_total", "route", string(decision.Route)), "Queries by route").Inc()
	s.reg.Histogram("query_duration_seconds", "End-to-end query latency", nil).Observe(elapsed.Seconds())
	s.logger.Info("query done",
		"route", decision.Route,
		"db_hits", len(pack.Retrieval.DB),
		"csv_hits", len(pack.Retrieval.CSV),
		"doc_hits", len(pack.Retrieval.Docs),
		"elapsed", elapsed)

	return &Result{
		Query:      question,
		Route:      decision,
		Pack:       pack,
		Answer:     ans,
		DurationMS: elapsed.Milliseconds(),
	}, nil
}

// decide honors a forced route, falling back to the router for auto mode.
// An invalid forced route is ignored with a warning rather than rejected.
func (s *Service) decide(ctx context.Context, question string, forced evidence.Route) evidence.RouteDecision {
	if forced != "" {
		if forced.Valid() {
			return evidence.RouteDecision{Route: forced, Confidence: 1.0}
		}
		s.logger.Warn("ignoring invalid forced route", "route", forced)
	}
	return s.router.Route(ctx, question)
}
