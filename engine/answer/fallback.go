package answer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/movielake/movielake/engine/evidence"
)

// InsufficientEvidence is the fixed message returned when no modality
// contributed a single fact.
const InsufficientEvidence = "Insufficient evidence in the pack to answer. Please refine the query."

// Fallback deterministically composes a grounded answer with no
// external dependency: at most two DB facts, at most two CSV rating
// facts, and one thematic sentence from the first document snippet.
// Each line is tagged with its origin.
func Fallback(pack *evidence.Pack) Result {
	var lines []string
	used := make(map[string]bool)

	for _, h := range capN(pack.Retrieval.DB, 2) {
		title, _ := evidence.AsString(h.Row["title"])
		year, yearOK := evidence.AsInt(h.Row["release_year"])
		if title == "" || !yearOK {
			continue
		}
		if box, ok := evidence.AsInt(h.Row["box_office_usd"]); ok && box > 0 {
			lines = append(lines, fmt.Sprintf("- %s (%d) grossed %s [DB].", title, year, formatUSD(box)))
		} else {
			lines = append(lines, fmt.Sprintf("- %s (%d) [DB].", title, year))
		}
		used["DB"] = true
	}

	for _, h := range capN(pack.Retrieval.CSV, 2) {
		title, _ := evidence.AsString(h.Row["title"])
		var bits []string
		if v, ok := h.Row["imdb"]; ok && v != nil && v != "" {
			bits = append(bits, "IMDb "+formatNumber(v))
		}
		if v, ok := h.Row["metacritic"]; ok && v != nil && v != "" {
			bits = append(bits, "Metacritic "+formatNumber(v))
		}
		if title == "" || len(bits) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s ratings: %s [CSV].", title, strings.Join(bits, ", ")))
		used["CSV"] = true
	}

	if len(pack.Retrieval.Docs) > 0 {
		chunk := strings.Join(strings.Fields(pack.Retrieval.Docs[0].Chunk), " ")
		if chunk != "" {
			lines = append(lines, fmt.Sprintf("- Critics note: %s [DOC].", truncate(chunk, 200)))
			used["DOC"] = true
		}
	}

	if len(lines) == 0 {
		return Result{
			Answer:         InsufficientEvidence,
			UsedModalities: []string{},
			Citations:      []string{},
		}
	}

	modalities := make([]string, 0, len(used))
	for m := range used {
		modalities = append(modalities, m)
	}
	sort.Strings(modalities)

	return Result{
		Answer:         strings.Join(lines, "\n"),
		UsedModalities: modalities,
		Citations:      []string{},
	}
}

func capN(hits []evidence.StructuredHit, n int) []evidence.StructuredHit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}

// formatUSD renders a dollar figure with thousands separators.
func formatUSD(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "$" + b.String()
	if neg {
		out = "-" + out
	}
	return out
}

// formatNumber renders ints without decimals and floats compactly.
func formatNumber(v any) string {
	if i, ok := evidence.AsInt(v); ok {
		return strconv.FormatInt(i, 10)
	}
	if f, ok := evidence.AsFloat(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}
