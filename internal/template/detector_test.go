package template

import (
	"fmt"
	"testing"
	"time"

	"github.com/plumbline/plumbline/internal/model"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello, World!", "hello world"},
		{"See https://example.com/x?y=1 for details.", "see for details"},
		{"  spaced   out  ", "spaced out"},
		{"MiXeD Case", "mixed case"},
		{"café nói", "café nói"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFingerprint_ShortTextIsNonSignal(t *testing.T) {
	if fp := Fingerprint("too short", 12); fp != "" {
		t.Errorf("expected empty fingerprint for short text, got %q", fp)
	}
	if fp := Fingerprint("this text is comfortably long enough", 12); fp == "" {
		t.Error("expected non-empty fingerprint for long text")
	}
}

func TestFingerprint_InvariantToFormatting(t *testing.T) {
	a := Fingerprint("The SAME claim, stated here!", 12)
	b := Fingerprint("the same claim stated here", 12)
	if a == "" || a != b {
		t.Errorf("expected formatting-invariant fingerprints, got %q vs %q", a, b)
	}
}

// buildGraph wires n claims with identical text, each supported by one anchor
// on the given domains (cycled).
func buildGraph(n int, text string, domains []string) *model.Graph {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := model.NewGraph(now)
	for i := 0; i < n; i++ {
		claimID := fmt.Sprintf("clm:%03d", i)
		anchorID := fmt.Sprintf("anc:%03d", i)
		domain := domains[i%len(domains)]
		g.Claims[claimID] = &model.Claim{ID: claimID, Term: "t", Text: text, FirstSeen: now}
		g.Anchors[anchorID] = &model.Anchor{ID: anchorID, Term: "t", Domain: domain, FirstSeen: now}
		g.AnchorEdges = append(g.AnchorEdges, model.AnchorClaimEdge{
			AnchorID: anchorID, ClaimID: claimID,
			Relation: model.AnchorSupports, Weight: 1, Domain: domain, TS: now,
		})
	}
	return g
}

func TestDetect_TemplateRepetitionSaturates(t *testing.T) {
	d := NewDetector(model.DefaultWeights())
	text := "identical templated narrative repeated verbatim"

	single := d.Detect(buildGraph(1, text, []string{"a.com"}))
	if single.TPL["clm:000"] != 0 {
		t.Errorf("one occurrence is not repetition, got TPL %v", single.TPL["clm:000"])
	}

	// Default saturation 5: five identical claims pin TPL at 1
	many := d.Detect(buildGraph(5, text, []string{"a.com"}))
	if many.TPL["clm:000"] != 1 {
		t.Errorf("expected TPL 1 at saturation, got %v", many.TPL["clm:000"])
	}

	three := d.Detect(buildGraph(3, text, []string{"a.com"}))
	if tpl := three.TPL["clm:000"]; tpl <= 0 || tpl >= 1 {
		t.Errorf("expected partial TPL in (0,1) for 3 occurrences, got %v", tpl)
	}
}

func TestDetect_CoordinationNeedsMultipleDomains(t *testing.T) {
	d := NewDetector(model.DefaultWeights())
	text := "identical templated narrative repeated verbatim"

	oneDomain := d.Detect(buildGraph(4, text, []string{"a.com"}))
	if oneDomain.Coord["clm:000"] != 0 {
		t.Errorf("single-domain reuse is not coordination, got %v", oneDomain.Coord["clm:000"])
	}

	// Default saturation 4: four distinct domains pin COORD at 1
	fourDomains := d.Detect(buildGraph(4, text, []string{"a.com", "b.org", "c.net", "d.io"}))
	if fourDomains.Coord["clm:000"] != 1 {
		t.Errorf("expected COORD 1 at saturation, got %v", fourDomains.Coord["clm:000"])
	}
}

func TestDetect_ShortTextClaimsCarryNoSignal(t *testing.T) {
	d := NewDetector(model.DefaultWeights())
	g := buildGraph(6, "short", []string{"a.com", "b.org"})

	sig := d.Detect(g)

	for id, tpl := range sig.TPL {
		if tpl != 0 {
			t.Errorf("claim %s: expected TPL 0 for non-signal text, got %v", id, tpl)
		}
	}
}

func TestDetect_DistinctTextsDoNotCollide(t *testing.T) {
	d := NewDetector(model.DefaultWeights())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := model.NewGraph(now)
	texts := []string{
		"the first completely distinct narrative",
		"a second unrelated story about something else",
		"third framing with its own wording entirely",
	}
	for i, text := range texts {
		id := fmt.Sprintf("clm:%03d", i)
		g.Claims[id] = &model.Claim{ID: id, Term: "t", Text: text, FirstSeen: now}
	}

	sig := d.Detect(g)

	for id, tpl := range sig.TPL {
		if tpl != 0 {
			t.Errorf("claim %s: distinct text should not register as template, got %v", id, tpl)
		}
	}
}
