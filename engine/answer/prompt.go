package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/movielake/movielake/engine/evidence"
)

const (
	// maxHitsPerModality caps how many structured rows and passages are
	// rendered into the prompt.
	maxHitsPerModality = 5
	// maxPassageLen truncates each unstructured passage.
	maxPassageLen = 400
)

// promptFields is the allow-list of row fields surfaced to the model.
var promptFields = []string{
	"title", "release_year", "box_office_usd", "runtime_min",
	"imdb", "metacritic", "rt_tomatoes",
}

const systemInstructions = `You are a movie knowledge assistant. Answer the question using ONLY the
provided evidence. If the evidence does not contain enough information,
say so. Respond as JSON:
{"answer": "...", "used_modalities": ["DB"|"CSV"|"DOC"], "citations": ["source_id", ...]}`

const citeInstructions = `Cite every fact with the source_id of the evidence line it came from.
Do not invent facts that are not in the evidence.`

// Prompt is the rendered request for the external model.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders an evidence pack into the fixed prompt template:
// the question, up to five structured hits per modality restricted to
// the field allow-list, and up to five flattened passages.
func BuildPrompt(pack *evidence.Pack) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "# Question\n%s\n\n", pack.Query)

	b.WriteString("# Structured Evidence (tables/rows)\n")
	b.WriteString(formatStructured(pack.Retrieval))
	b.WriteString("\n\n# Unstructured Evidence (passages)\n")
	b.WriteString(formatUnstructured(pack.Retrieval.Docs))
	b.WriteString("\n\n# Instructions\n")
	b.WriteString(citeInstructions)
	b.WriteString("\n")

	return Prompt{System: systemInstructions, User: b.String()}
}

func formatStructured(r evidence.Retrieval) string {
	var lines []string
	for _, h := range capHits(r.DB) {
		lines = append(lines, "- [DB] "+rowFields(h))
	}
	for _, h := range capHits(r.CSV) {
		lines = append(lines, "- [CSV] "+rowFields(h))
	}
	if len(lines) == 0 {
		return "(none)"
	}
	return strings.Join(lines, "\n")
}

func formatUnstructured(docs []evidence.DocHit) string {
	var lines []string
	for i, h := range docs {
		if i >= maxHitsPerModality {
			break
		}
		chunk := flatten(h.Chunk)
		lines = append(lines, fmt.Sprintf("- [DOC] (%s) %s [%s]", h.Metadata.Doc, truncate(chunk, maxPassageLen), h.SourceID))
	}
	if len(lines) == 0 {
		return "(none)"
	}
	return strings.Join(lines, "\n")
}

func capHits(hits []evidence.StructuredHit) []evidence.StructuredHit {
	if len(hits) > maxHitsPerModality {
		return hits[:maxHitsPerModality]
	}
	return hits
}

// rowFields renders the allow-listed fields of a row in a fixed order,
// tagged with the hit's source id.
func rowFields(h evidence.StructuredHit) string {
	var parts []string
	for _, f := range promptFields {
		v, ok := h.Row[f]
		if !ok || v == nil || v == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", f, v))
	}
	return fmt.Sprintf("{%s} [%s]", strings.Join(parts, ", "), h.SourceID)
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
