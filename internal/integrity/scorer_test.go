package integrity

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/plumbline/plumbline/internal/model"
)

func newTestScorer() *Scorer {
	return NewScorer(model.DefaultWeights())
}

func anchor(runID, url string, primary bool) model.Anchor {
	return model.Anchor{
		ID:        model.AnchorIdentity(runID, "t", url, ""),
		RunID:     runID,
		Term:      "t",
		URL:       url,
		Primary:   primary,
		FirstSeen: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestScore_MixedWindowLandsMidRange(t *testing.T) {
	// Three primary anchors reusing one URL on one domain plus one distinct
	// secondary domain: decent primary ratio, heavy duplication.
	anchors := []model.Anchor{
		anchor("r1", "https://a.com/x", true),
		anchor("r1", "https://a.com/x", true),
		anchor("r1", "https://a.com/x", true),
		anchor("r1", "https://b.com/y", false),
	}

	result := newTestScorer().Score(anchors, 5)

	if result.PIS < 0.55 || result.PIS > 0.75 {
		t.Errorf("expected PIS in [0.55, 0.75], got %.3f", result.PIS)
	}
	if result.PrimaryRatio != 0.75 {
		t.Errorf("expected raw primary ratio 0.75, got %v", result.PrimaryRatio)
	}
	if result.DupRate != 0.5 {
		t.Errorf("expected dup rate 0.5 (2 distinct of 4), got %v", result.DupRate)
	}
}

func TestScore_RecycledSingleDomainScoresLow(t *testing.T) {
	// One domain repeated many times, nothing primary: entropy 0, full
	// duplication, zero primary ratio.
	var anchors []model.Anchor
	for i := 0; i < 8; i++ {
		anchors = append(anchors, anchor("r1", "https://a.com/x", false))
	}

	result := newTestScorer().Score(anchors, 5)

	if result.PIS >= 0.3 {
		t.Errorf("expected PIS < 0.3 for recycled single-domain evidence, got %.3f", result.PIS)
	}
}

func TestScore_EmptyWindowIsErrorNotFailure(t *testing.T) {
	result := newTestScorer().Score(nil, 5)

	if result.PIS != 0 {
		t.Errorf("expected PIS 0 for empty window, got %v", result.PIS)
	}
	if result.Error == "" {
		t.Error("expected explicit error flag for empty window")
	}
}

func TestScore_DiverseEvidenceScoresHigh(t *testing.T) {
	anchors := []model.Anchor{
		anchor("r1", "https://a.com/1", true),
		anchor("r1", "https://b.org/2", true),
		anchor("r1", "https://c.net/3", false),
		anchor("r1", "https://d.io/4", false),
	}

	result := newTestScorer().Score(anchors, 5)

	if result.PIS < 0.9 {
		t.Errorf("expected PIS >= 0.9 for diverse, half-primary evidence, got %.3f", result.PIS)
	}
	if result.DomainEntropyNorm != 1.0 {
		t.Errorf("expected full entropy for uniform distribution, got %v", result.DomainEntropyNorm)
	}
}

func TestWindowAnchors_TailOfRuns(t *testing.T) {
	var anchors []model.Anchor
	for run := 1; run <= 6; run++ {
		anchors = append(anchors, anchor(fmt.Sprintf("r%d", run), fmt.Sprintf("https://a.com/%d", run), false))
	}

	window := WindowAnchors(anchors, 2)

	if len(window) != 2 {
		t.Fatalf("expected 2 anchors in window, got %d", len(window))
	}
	for _, a := range window {
		if a.RunID != "r5" && a.RunID != "r6" {
			t.Errorf("expected only the latest runs, got %s", a.RunID)
		}
	}
}

func TestWindowAnchors_ZeroWindow(t *testing.T) {
	if got := WindowAnchors([]model.Anchor{anchor("r1", "https://a.com", false)}, 0); got != nil {
		t.Errorf("expected nil for zero window, got %v", got)
	}
}

func TestNormalizeDomain_ETLDPlusOne(t *testing.T) {
	cases := []struct {
		url, want string
	}{
		{"https://news.example.com/story", "example.com"},
		{"https://deep.sub.example.co.uk/x", "example.co.uk"},
		{"https://example.org", "example.org"},
	}
	for _, tc := range cases {
		got := NormalizeDomain(model.Anchor{URL: tc.url})
		if got != tc.want {
			t.Errorf("NormalizeDomain(%s) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestNormalizeDomain_FallsBackToDomainField(t *testing.T) {
	got := NormalizeDomain(model.Anchor{Domain: "Example.COM"})
	if got != "example.com" {
		t.Errorf("expected declared domain fallback, got %q", got)
	}
}

func TestTermQuality_PenaltyTracksRecycling(t *testing.T) {
	s := newTestScorer()

	recycled := s.TermQuality("t", []model.Anchor{
		anchor("r1", "https://a.com/1", false),
		anchor("r1", "https://a.com/2", false),
		anchor("r1", "https://a.com/3", false),
	})
	diverse := s.TermQuality("t", []model.Anchor{
		anchor("r1", "https://a.com/1", false),
		anchor("r1", "https://b.org/2", false),
		anchor("r1", "https://c.net/3", false),
		anchor("r1", "https://d.io/4", false),
	})

	if recycled.Penalty <= diverse.Penalty {
		t.Errorf("expected recycled penalty (%.2f) > diverse penalty (%.2f)",
			recycled.Penalty, diverse.Penalty)
	}
	if diverse.DomainCount != 4 {
		t.Errorf("expected 4 domains, got %d", diverse.DomainCount)
	}
}

func TestTermQuality_NoAnchorsIsFullPenalty(t *testing.T) {
	q := newTestScorer().TermQuality("t", nil)
	if q.Penalty != 1 {
		t.Errorf("expected full penalty for evidence-free term, got %v", q.Penalty)
	}
}

func TestDomainEntropyNorm_Bounds(t *testing.T) {
	// Skewed but multi-domain distributions stay strictly inside (0, 1]
	anchors := []model.Anchor{
		anchor("r1", "https://a.com/1", false),
		anchor("r1", "https://a.com/2", false),
		anchor("r1", "https://a.com/3", false),
		anchor("r1", "https://b.com/1", false),
	}
	e := domainEntropyNorm(anchors)
	if e <= 0 || e > 1 {
		t.Errorf("entropy out of bounds: %v", e)
	}
	want := 0.811
	if math.Abs(e-want) > 0.01 {
		t.Errorf("expected entropy ~%.3f for 3:1 split, got %.3f", want, e)
	}
}
