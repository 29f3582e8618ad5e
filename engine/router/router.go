// Package router classifies a query into a retrieval route using
// lexical cues, optionally backstopped by an external LLM vote. Routing
// never hard-fails: any trouble with the external capability keeps the
// heuristic decision.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/movielake/movielake/engine/evidence"
	"github.com/movielake/movielake/pkg/llm"
)

// backstopPrompt asks the model for the same three-way decision the
// heuristic makes, as an embedded JSON object.
const backstopPrompt = `Route the user query to one of: structured, unstructured, both.
structured: numeric/date facts, counts, filters, aggregates, exact release years.
unstructured: opinions, themes, sentiment, long-form descriptions.
both: comparisons across multiple entities mixing facts and descriptions.
Query: %s
Respond as JSON: {"route":"structured|unstructured|both","confidence":0.0-1.0}`

// Heuristic classifies a query with the cue tables. Pure function; the
// returned features expose the signals behind the decision.
func Heuristic(query string) evidence.RouteDecision {
	q := strings.ToLower(query)
	tokens := tokenize(q)

	hasStruct := containsAny(q, structuredCues)
	hasUnstruct := containsAny(q, unstructuredCues)
	hasCompare := containsAny(q, comparativeCues)

	features := func() map[string]bool {
		return map[string]bool{
			"structured":  hasStruct,
			"unstructured": hasUnstruct,
			"comparative": hasCompare,
		}
	}

	switch {
	case hasCompare && (hasStruct || hasUnstruct):
		return evidence.RouteDecision{Route: evidence.RouteBoth, Confidence: 0.85, Features: features()}
	case hasStruct && !hasUnstruct:
		return evidence.RouteDecision{Route: evidence.RouteStructured, Confidence: 0.8, Features: features()}
	case hasUnstruct && !hasStruct:
		return evidence.RouteDecision{Route: evidence.RouteUnstructured, Confidence: 0.8, Features: features()}
	case hasAnyToken(tokens, listingMarkers):
		return evidence.RouteDecision{Route: evidence.RouteStructured, Confidence: 0.6, Features: features()}
	case hasAnyToken(tokens, explanatoryMarkers):
		return evidence.RouteDecision{Route: evidence.RouteUnstructured, Confidence: 0.6, Features: features()}
	default:
		return evidence.RouteDecision{Route: evidence.RouteBoth, Confidence: 0.5, Features: features()}
	}
}

// Router wraps the heuristic with the optional LLM backstop.
type Router struct {
	chat   llm.Client // nil disables the backstop
	model  string
	logger *slog.Logger
}

// New creates a Router. Passing a nil chat client yields pure heuristic
// routing; that is a startup configuration decision, not a runtime probe.
func New(chat llm.Client, model string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{chat: chat, model: model, logger: logger}
}

// Route decides the retrieval route for a query. When the backstop is
// configured and returns a well-formed vote, the vote is adopted if it
// is at least as confident as the heuristic, or if it disagrees with
// confidence >= 0.7. Every backstop failure silently keeps the
// heuristic decision.
func (r *Router) Route(ctx context.Context, query string) evidence.RouteDecision {
	decision := Heuristic(query)
	if r.chat == nil {
		return decision
	}

	vote, ok := r.llmVote(ctx, query)
	if !ok {
		return decision
	}
	if vote.Confidence >= decision.Confidence || (vote.Route != decision.Route && vote.Confidence >= 0.7) {
		r.logger.Debug("adopting llm route",
			"heuristic", decision.Route, "heuristic_conf", decision.Confidence,
			"llm", vote.Route, "llm_conf", vote.Confidence)
		return evidence.RouteDecision{Route: vote.Route, Confidence: vote.Confidence, Features: decision.Features}
	}
	return decision
}

type routeVote struct {
	Route      evidence.Route
	Confidence float64
}

func (r *Router) llmVote(ctx context.Context, query string) (routeVote, bool) {
	text, err := r.chat.Complete(ctx, llm.Request{
		User:      fmt.Sprintf(backstopPrompt, query),
		Model:     r.model,
		MaxTokens: 60,
	})
	if err != nil {
		r.logger.Debug("route backstop unavailable", "err", err)
		return routeVote{}, false
	}

	obj, ok := llm.ExtractObject(text)
	if !ok {
		return routeVote{}, false
	}
	routeStr, _ := obj["route"].(string)
	route := evidence.Route(routeStr)
	if !route.Valid() {
		return routeVote{}, false
	}
	conf, _ := obj["confidence"].(float64)
	if conf < 0 || conf > 1 {
		return routeVote{}, false
	}
	return routeVote{Route: route, Confidence: conf}, true
}

func containsAny(q string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}

func tokenize(q string) map[string]struct{} {
	cleaned := strings.NewReplacer("?", " ", ",", " ", "!", " ", ".", " ").Replace(q)
	out := make(map[string]struct{})
	for _, f := range strings.Fields(cleaned) {
		out[f] = struct{}{}
	}
	return out
}

func hasAnyToken(tokens map[string]struct{}, markers []string) bool {
	for _, m := range markers {
		if _, ok := tokens[m]; ok {
			return true
		}
	}
	return false
}
