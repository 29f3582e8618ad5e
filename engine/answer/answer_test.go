package answer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/movielake/movielake/engine/evidence"
	"github.com/movielake/movielake/pkg/llm"
)

func dbHit(row map[string]any) evidence.StructuredHit {
	return evidence.StructuredHit{
		SourceID: "db:movies:x", Origin: evidence.OriginDB, Row: row, Score: 1.0,
	}
}

func csvHit(row map[string]any) evidence.StructuredHit {
	return evidence.StructuredHit{
		SourceID: "csv:ratings.csv:x", Origin: evidence.OriginCSV, Row: row, Score: 0.9,
	}
}

func emptyPack() *evidence.Pack {
	return &evidence.Pack{
		Query:    "anything",
		Entities: evidence.Entities{CanonicalMap: map[string]string{}},
	}
}

func TestFallbackNoEvidence(t *testing.T) {
	res := Fallback(emptyPack())
	if res.Answer != InsufficientEvidence {
		t.Errorf("answer = %q", res.Answer)
	}
	if len(res.UsedModalities) != 0 {
		t.Errorf("used_modalities = %v, want empty", res.UsedModalities)
	}
	if res.UsedModalities == nil {
		t.Error("used_modalities must be an empty list, not nil")
	}
}

func TestFallbackDBFact(t *testing.T) {
	pack := emptyPack()
	pack.Retrieval.DB = []evidence.StructuredHit{
		dbHit(map[string]any{"title": "Inception", "release_year": int64(2010), "box_office_usd": int64(829895144)}),
	}
	res := Fallback(pack)
	if !strings.Contains(res.Answer, "Inception (2010)") {
		t.Errorf("answer missing title/year: %q", res.Answer)
	}
	if !strings.Contains(res.Answer, "$829,895,144") {
		t.Errorf("answer missing formatted box office: %q", res.Answer)
	}
	if !strings.Contains(res.Answer, "[DB]") {
		t.Errorf("answer missing origin tag: %q", res.Answer)
	}
	if !reflect.DeepEqual(res.UsedModalities, []string{"DB"}) {
		t.Errorf("used_modalities = %v", res.UsedModalities)
	}
}

func TestFallbackAllModalities(t *testing.T) {
	pack := emptyPack()
	pack.Retrieval.DB = []evidence.StructuredHit{
		dbHit(map[string]any{"title": "Inception", "release_year": int64(2010)}),
	}
	pack.Retrieval.CSV = []evidence.StructuredHit{
		csvHit(map[string]any{"title": "Interstellar", "imdb": 8.7, "metacritic": int64(74)}),
	}
	pack.Retrieval.Docs = []evidence.DocHit{
		{SourceID: "doc:interstellar.txt", Origin: evidence.OriginDOC,
			Chunk: "Critics describe Interstellar as a meditation\non love and time.",
			Metadata: evidence.DocMeta{Doc: "interstellar.txt"}, Score: 0.88},
	}

	res := Fallback(pack)
	if !reflect.DeepEqual(res.UsedModalities, []string{"CSV", "DB", "DOC"}) {
		t.Errorf("used_modalities = %v", res.UsedModalities)
	}
	if !strings.Contains(res.Answer, "IMDb 8.7") || !strings.Contains(res.Answer, "Metacritic 74") {
		t.Errorf("ratings line wrong: %q", res.Answer)
	}
	if !strings.Contains(res.Answer, "Critics note:") {
		t.Errorf("doc line missing: %q", res.Answer)
	}
	if strings.Contains(res.Answer, "\nlove") {
		t.Error("doc snippet newlines must be flattened")
	}
}

func TestFallbackCapsFacts(t *testing.T) {
	pack := emptyPack()
	for i := 0; i < 4; i++ {
		pack.Retrieval.DB = append(pack.Retrieval.DB,
			dbHit(map[string]any{"title": "Movie", "release_year": int64(2000 + i)}))
	}
	res := Fallback(pack)
	if got := strings.Count(res.Answer, "[DB]"); got != 2 {
		t.Errorf("%d DB lines, want at most 2", got)
	}
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{829895144, "$829,895,144"},
		{1000, "$1,000"},
		{999, "$999"},
		{0, "$0"},
	}
	for _, tt := range tests {
		if got := formatUSD(tt.in); got != tt.want {
			t.Errorf("formatUSD(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildPromptCapsAndAllowList(t *testing.T) {
	pack := emptyPack()
	pack.Query = "Which movie made the most money?"
	for i := 0; i < 7; i++ {
		pack.Retrieval.DB = append(pack.Retrieval.DB, dbHit(map[string]any{
			"title": "M", "release_year": int64(2000 + i), "plot_secret": "hidden",
		}))
	}
	p := BuildPrompt(pack)
	if got := strings.Count(p.User, "- [DB]"); got != 5 {
		t.Errorf("%d DB lines in prompt, want 5", got)
	}
	if strings.Contains(p.User, "plot_secret") {
		t.Error("non-allow-listed field leaked into prompt")
	}
	if !strings.Contains(p.User, pack.Query) {
		t.Error("prompt must contain the question")
	}
	if !strings.Contains(p.User, "(none)") {
		t.Error("empty passage section should render (none)")
	}
	if p.System == "" {
		t.Error("system instructions missing")
	}
}

func TestBuildPromptTruncatesPassages(t *testing.T) {
	pack := emptyPack()
	pack.Retrieval.Docs = []evidence.DocHit{{
		SourceID: "doc:long.txt",
		Chunk:    strings.Repeat("critics adore it ", 100),
		Metadata: evidence.DocMeta{Doc: "long.txt"},
	}}
	p := BuildPrompt(pack)
	for _, line := range strings.Split(p.User, "\n") {
		if strings.HasPrefix(line, "- [DOC]") && len(line) > 500 {
			t.Errorf("passage line too long: %d bytes", len(line))
		}
	}
}

type stubChat struct {
	text  string
	err   error
	calls int
}

func (s *stubChat) Complete(context.Context, llm.Request) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestSynthesizeLLMStructuredResponse(t *testing.T) {
	chat := &stubChat{text: `Here you go: {"answer":"Inception grossed the most.","used_modalities":["DB"],"citations":["db:movies:Inception"]}`}
	s := New(chat, "gpt-4o-mini", nil)
	pack := emptyPack()
	pack.Retrieval.DB = []evidence.StructuredHit{dbHit(map[string]any{"title": "Inception", "release_year": int64(2010)})}

	res := s.Synthesize(context.Background(), pack, true)
	if res.Answer != "Inception grossed the most." {
		t.Errorf("answer = %q", res.Answer)
	}
	if !reflect.DeepEqual(res.UsedModalities, []string{"DB"}) {
		t.Errorf("used_modalities = %v", res.UsedModalities)
	}
	if !reflect.DeepEqual(res.Citations, []string{"db:movies:Inception"}) {
		t.Errorf("citations = %v", res.Citations)
	}
}

func TestSynthesizeLLMPlainTextWrapped(t *testing.T) {
	chat := &stubChat{text: "Inception made the most money at the box office."}
	s := New(chat, "", nil)
	res := s.Synthesize(context.Background(), emptyPack(), true)
	if res.Answer != "Inception made the most money at the box office." {
		t.Errorf("answer = %q", res.Answer)
	}
	if len(res.UsedModalities) != 0 || len(res.Citations) != 0 {
		t.Error("wrapped raw text must carry empty modality and citation lists")
	}
}

func TestSynthesizeLLMErrorFallsBack(t *testing.T) {
	chat := &stubChat{err: errors.New("timeout")}
	s := New(chat, "", nil)
	pack := emptyPack()
	pack.Retrieval.DB = []evidence.StructuredHit{
		dbHit(map[string]any{"title": "Inception", "release_year": int64(2010)}),
	}
	res := s.Synthesize(context.Background(), pack, true)
	if !strings.Contains(res.Answer, "Inception (2010)") {
		t.Errorf("fallback not engaged: %q", res.Answer)
	}
}

func TestSynthesizeOptOutSkipsLLM(t *testing.T) {
	chat := &stubChat{text: `{"answer":"should not be used"}`}
	s := New(chat, "", nil)
	res := s.Synthesize(context.Background(), emptyPack(), false)
	if chat.calls != 0 {
		t.Error("LLM called despite opt-out")
	}
	if res.Answer != InsufficientEvidence {
		t.Errorf("answer = %q", res.Answer)
	}
}

func TestSynthesizeNilClientFallsBack(t *testing.T) {
	s := New(nil, "", nil)
	res := s.Synthesize(context.Background(), emptyPack(), true)
	if res.Answer != InsufficientEvidence {
		t.Errorf("answer = %q", res.Answer)
	}
}
