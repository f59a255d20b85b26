package llm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/plumbline/plumbline/internal/model"
)

var llmNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func TestExtractURLs(t *testing.T) {
	text := `Supported by https://example.com/a and https://example.com/b.
Also https://example.com/a again, plus (https://other.org/x) in parens.`

	urls := extractURLs(text)

	want := []string{"https://example.com/a", "https://example.com/b", "https://other.org/x"}
	if len(urls) != len(want) {
		t.Fatalf("expected %d unique URLs, got %d: %v", len(want), len(urls), urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], urls[i])
		}
	}
}

func TestExtractURLs_TrimsTrailingPunctuation(t *testing.T) {
	urls := extractURLs("See https://example.com/page.")
	if len(urls) != 1 || urls[0] != "https://example.com/page" {
		t.Errorf("expected trailing period stripped, got %v", urls)
	}
}

func TestCheckCitations_RejectsLeaks(t *testing.T) {
	allowed := []string{"https://example.com/a", "https://example.com/b"}

	if err := checkCitations([]string{"https://example.com/a"}, allowed); err != nil {
		t.Errorf("allowed citation rejected: %v", err)
	}
	err := checkCitations([]string{"https://evil.example.net/x"}, allowed)
	if err == nil {
		t.Fatal("expected a citation leak error")
	}
	if !strings.Contains(err.Error(), "citation leak") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAllowedURLs_DedupedFromGraph(t *testing.T) {
	g := model.NewGraph(llmNow)
	g.Anchors["anc:1"] = &model.Anchor{ID: "anc:1", URL: "https://a.com/x"}
	g.Anchors["anc:2"] = &model.Anchor{ID: "anc:2", URL: "https://b.org/y"}
	g.Anchors["anc:3"] = &model.Anchor{ID: "anc:3", URL: "https://a.com/x"} // duplicate
	g.Anchors["anc:4"] = &model.Anchor{ID: "anc:4"}                        // no URL

	urls := AllowedURLs(g)

	if len(urls) != 2 {
		t.Fatalf("expected 2 distinct URLs, got %v", urls)
	}
	if urls[0] != "https://a.com/x" || urls[1] != "https://b.org/y" {
		t.Errorf("expected anchor-order URLs, got %v", urls)
	}
}

func TestBuildPrompt_CarriesAllowlistAndQuadrants(t *testing.T) {
	tm := &model.TruthMap{
		GeneratedAt: llmNow,
		Proof:       model.ProofIntegrity{PIS: 0.42},
		Counts: map[model.Quadrant]int{
			model.QuadrantLegitPattern:       2,
			model.QuadrantLikelyManipulation: 1,
		},
		Claims: []model.ClaimScore{
			{ClaimID: "clm:a", Term: "laksa", CS: 0.7, ML: 0.9, Quadrant: model.QuadrantWeaponizedTruth},
			{ClaimID: "clm:b", Term: "laksa", CS: 0.5, ML: 0.2, Quadrant: model.QuadrantBenignNoise},
		},
	}

	prompt := BuildPrompt(tm, []string{"https://a.com/x"})

	if !strings.Contains(prompt, "https://a.com/x") {
		t.Error("expected the allowlist in the prompt")
	}
	if !strings.Contains(prompt, "legit=2") || !strings.Contains(prompt, "likely_manipulation=1") {
		t.Error("expected quadrant counts in the prompt")
	}
	// Highest-ML claim listed first
	if !strings.Contains(prompt, `1. term="laksa" CS=0.70 ML=0.90`) {
		t.Errorf("expected the top-ML claim first:\n%s", prompt)
	}
}

func TestBuildPrompt_EmptyAllowlist(t *testing.T) {
	tm := &model.TruthMap{GeneratedAt: llmNow}

	prompt := BuildPrompt(tm, nil)

	if !strings.Contains(prompt, "No evidence URLs available") {
		t.Error("expected the explicit empty-allowlist marker")
	}
}

func TestSummarize_NilProviderIsNoop(t *testing.T) {
	resp, err := Summarize(context.Background(), nil, &model.TruthMap{}, model.NewGraph(llmNow))
	if resp != nil || err != nil {
		t.Errorf("expected (nil, nil) without a provider, got (%v, %v)", resp, err)
	}
}

func TestSummarize_NilTruthMapIsError(t *testing.T) {
	provider := &stubProvider{}
	if _, err := Summarize(context.Background(), provider, nil, nil); err == nil {
		t.Error("expected error for a nil truth map")
	}
}

type stubProvider struct {
	req SummarizeRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Summarize(_ context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	s.req = req
	return &SummarizeResponse{Summary: "ok", Model: "stub"}, nil
}

func (s *stubProvider) IsAvailable(_ context.Context) bool { return true }

func TestSummarize_PassesAllowlistToProvider(t *testing.T) {
	g := model.NewGraph(llmNow)
	g.Anchors["anc:1"] = &model.Anchor{ID: "anc:1", URL: "https://a.com/x"}
	provider := &stubProvider{}

	resp, err := Summarize(context.Background(), provider, &model.TruthMap{GeneratedAt: llmNow}, g)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if resp.Summary != "ok" {
		t.Errorf("unexpected summary: %q", resp.Summary)
	}
	if len(provider.req.EvidenceURLs) != 1 || provider.req.EvidenceURLs[0] != "https://a.com/x" {
		t.Errorf("expected the graph allowlist forwarded, got %v", provider.req.EvidenceURLs)
	}
}
