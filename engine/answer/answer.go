// Package answer builds a grounded answer from an evidence pack, either
// through the external LLM capability or through a deterministic
// composer that needs nothing beyond the pack itself. Synthesis never
// propagates an external-service error: every failure path lands on the
// deterministic composer.
package answer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/movielake/movielake/engine/evidence"
	"github.com/movielake/movielake/pkg/llm"
)

// Result is the synthesized answer with provenance.
type Result struct {
	Answer         string   `json:"answer"`
	UsedModalities []string `json:"used_modalities"`
	Citations      []string `json:"citations"`
}

// Synthesizer selects between LLM-backed and deterministic composition.
type Synthesizer struct {
	chat   llm.Client // nil disables the primary path entirely
	model  string
	logger *slog.Logger
}

// New creates a Synthesizer. chat may be nil when no LLM capability was
// configured at startup.
func New(chat llm.Client, model string, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{chat: chat, model: model, logger: logger}
}

// Synthesize produces an answer from the pack. The primary LLM path
// runs only when the caller opts in and a client is configured; any
// failure falls through to Fallback.
func (s *Synthesizer) Synthesize(ctx context.Context, pack *evidence.Pack, preferLLM bool) Result {
	if preferLLM && s.chat != nil {
		if res, ok := s.synthesizeLLM(ctx, pack); ok {
			return res
		}
	}
	return Fallback(pack)
}

func (s *Synthesizer) synthesizeLLM(ctx context.Context, pack *evidence.Pack) (Result, bool) {
	prompt := BuildPrompt(pack)
	text, err := s.chat.Complete(ctx, llm.Request{
		System:    prompt.System,
		User:      prompt.User,
		Model:     s.model,
		MaxTokens: 600,
	})
	if err != nil {
		s.logger.Warn("llm synthesis unavailable, composing deterministically", "err", err)
		return Result{}, false
	}

	obj, ok := llm.ExtractObject(text)
	if !ok {
		// No structured payload in the response; wrap the raw text as a
		// best-effort answer rather than failing.
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return Result{}, false
		}
		return Result{Answer: trimmed, UsedModalities: []string{}, Citations: []string{}}, true
	}

	res := Result{UsedModalities: []string{}, Citations: []string{}}
	if a, ok := obj["answer"].(string); ok && strings.TrimSpace(a) != "" {
		res.Answer = a
	} else {
		res.Answer = strings.TrimSpace(text)
	}
	res.UsedModalities = stringSlice(obj["used_modalities"])
	res.Citations = stringSlice(obj["citations"])
	return res, true
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
