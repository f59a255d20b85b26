package score

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/plumbline/plumbline/internal/model"
	"github.com/plumbline/plumbline/internal/template"
)

var testNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func emptySignals() template.Signals {
	return template.Signals{
		TPL:          make(map[string]float64),
		Coord:        make(map[string]float64),
		Fingerprints: make(map[string]string),
	}
}

// supportedGraph builds one claim backed by supporting anchors on the given
// domains, optionally with contradicting weight from one more domain.
func supportedGraph(supportDomains []string, contradictWeight float64) *model.Graph {
	g := model.NewGraph(testNow)
	claimID := "clm:test"
	g.Claims[claimID] = &model.Claim{ID: claimID, Term: "t", Handle: "h", FirstSeen: testNow}

	for i, d := range supportDomains {
		anchorID := fmt.Sprintf("anc:s%02d", i)
		g.Anchors[anchorID] = &model.Anchor{ID: anchorID, Term: "t", Domain: d, FirstSeen: testNow}
		g.AnchorEdges = append(g.AnchorEdges, model.AnchorClaimEdge{
			AnchorID: anchorID, ClaimID: claimID,
			Relation: model.AnchorSupports, Weight: 1, Domain: d, TS: testNow,
		})
	}
	if contradictWeight > 0 {
		g.Anchors["anc:c"] = &model.Anchor{ID: "anc:c", Term: "t", Domain: "contra.org", FirstSeen: testNow}
		g.AnchorEdges = append(g.AnchorEdges, model.AnchorClaimEdge{
			AnchorID: "anc:c", ClaimID: claimID,
			Relation: model.AnchorContradicts, Weight: contradictWeight, Domain: "contra.org", TS: testNow,
		})
	}
	return g
}

func inputs(g *model.Graph, pis float64) Inputs {
	return Inputs{
		Graph:   g,
		Proof:   model.ProofIntegrity{PIS: pis},
		Signals: emptySignals(),
	}
}

func TestClassify_AllQuadrants(t *testing.T) {
	cases := []struct {
		cs, ml float64
		want   model.Quadrant
	}{
		{0.8, 0.2, model.QuadrantLegitPattern},
		{0.8, 0.8, model.QuadrantWeaponizedTruth},
		{0.2, 0.8, model.QuadrantLikelyManipulation},
		{0.2, 0.2, model.QuadrantBenignNoise},
		// Threshold boundaries belong to the >= side
		{0.6, 0.59, model.QuadrantLegitPattern},
		{0.6, 0.6, model.QuadrantWeaponizedTruth},
		{0.59, 0.6, model.QuadrantLikelyManipulation},
	}
	for _, tc := range cases {
		got := Classify(tc.cs, tc.ml, 0.6, 0.6)
		if got != tc.want {
			t.Errorf("Classify(%.2f, %.2f) = %s, want %s", tc.cs, tc.ml, got, tc.want)
		}
	}
}

func TestBuildTruthMap_EmptyGraph(t *testing.T) {
	e := NewEngine(model.DefaultWeights())
	tm := e.BuildTruthMap(inputs(model.NewGraph(testNow), 0.5), testNow)

	if tm.Error == "" {
		t.Error("expected explicit error for empty graph")
	}
	if len(tm.Claims) != 0 {
		t.Errorf("expected no claims, got %d", len(tm.Claims))
	}
	if tm.Disclaimer == "" {
		t.Error("expected the disclaimer even on the error path")
	}
}

func TestScoreClaim_ContradictionsLowerCS(t *testing.T) {
	e := NewEngine(model.DefaultWeights())

	clean := e.BuildTruthMap(inputs(supportedGraph([]string{"a.com", "b.org", "c.net"}, 0), 0.9), testNow)
	contested := e.BuildTruthMap(inputs(supportedGraph([]string{"a.com", "b.org", "c.net"}, 3), 0.9), testNow)

	if contested.Claims[0].CS >= clean.Claims[0].CS {
		t.Errorf("expected contradictions to lower CS: clean %.3f, contested %.3f",
			clean.Claims[0].CS, contested.Claims[0].CS)
	}
	if contested.Claims[0].CPR <= clean.Claims[0].CPR {
		t.Error("expected contradiction pressure to rise")
	}
}

func TestScoreClaim_DomainDiversityRaisesCS(t *testing.T) {
	e := NewEngine(model.DefaultWeights())

	narrow := e.BuildTruthMap(inputs(supportedGraph([]string{"a.com", "a.com", "a.com"}, 0), 0.9), testNow)
	broad := e.BuildTruthMap(inputs(supportedGraph([]string{"a.com", "b.org", "c.net"}, 0), 0.9), testNow)

	if broad.Claims[0].CS <= narrow.Claims[0].CS {
		t.Errorf("expected diverse support to score higher: narrow %.3f, broad %.3f",
			narrow.Claims[0].CS, broad.Claims[0].CS)
	}
}

func TestScoreClaim_LowIntegrityRaisesML(t *testing.T) {
	e := NewEngine(model.DefaultWeights())
	g := supportedGraph([]string{"a.com"}, 0)

	clean := e.BuildTruthMap(inputs(g, 1.0), testNow)
	polluted := e.BuildTruthMap(inputs(g, 0.1), testNow)

	if polluted.Claims[0].ML <= clean.Claims[0].ML {
		t.Errorf("expected low proof integrity to raise ML: clean %.3f, polluted %.3f",
			clean.Claims[0].ML, polluted.Claims[0].ML)
	}
}

func TestScoreClaim_RegimeShiftBoost(t *testing.T) {
	w := model.DefaultWeights()
	e := NewEngine(w)
	g := supportedGraph([]string{"a.com"}, 0)

	base := e.BuildTruthMap(inputs(g, 0.5), testNow)

	in := inputs(g, 0.5)
	in.RegimeShift = true
	boosted := e.BuildTruthMap(in, testNow)

	gotBoost := boosted.Claims[0].ML - base.Claims[0].ML
	if diff := gotBoost - w.RegimeShiftBoost; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected ML boost %.3f, got %.3f", w.RegimeShiftBoost, gotBoost)
	}
	if !boosted.RegimeShift {
		t.Error("expected regime flag carried into the artifact")
	}
}

func TestBuildTruthMap_FalsificationCulture(t *testing.T) {
	e := NewEngine(model.DefaultWeights())
	g := supportedGraph([]string{"a.com"}, 0)
	// Second claim, contradicted
	g.Claims["clm:contested"] = &model.Claim{ID: "clm:contested", Term: "t", FirstSeen: testNow}
	g.AnchorEdges = append(g.AnchorEdges, model.AnchorClaimEdge{
		AnchorID: "anc:c2", ClaimID: "clm:contested",
		Relation: model.AnchorContradicts, Weight: 1, Domain: "x.org", TS: testNow,
	})

	tm := e.BuildTruthMap(inputs(g, 0.5), testNow)

	if tm.Falsification != 0.5 {
		t.Errorf("expected falsification culture 0.5 (1 of 2 contested), got %v", tm.Falsification)
	}
}

func TestBuildTruthMap_Deterministic(t *testing.T) {
	e := NewEngine(model.DefaultWeights())
	g := supportedGraph([]string{"a.com", "b.org"}, 1)
	g.Claims["clm:aaa"] = &model.Claim{ID: "clm:aaa", Term: "t", FirstSeen: testNow}
	in := inputs(g, 0.7)

	tm1 := e.BuildTruthMap(in, testNow)
	tm2 := e.BuildTruthMap(in, testNow)

	if diff := cmp.Diff(tm1, tm2); diff != "" {
		t.Errorf("truth maps differ between identical builds:\n%s", diff)
	}
	// Sorted claim order
	for i := 1; i < len(tm1.Claims); i++ {
		if tm1.Claims[i-1].ClaimID >= tm1.Claims[i].ClaimID {
			t.Errorf("claims not in sorted order: %s before %s",
				tm1.Claims[i-1].ClaimID, tm1.Claims[i].ClaimID)
		}
	}
}

func TestBuildTruthMap_QuadrantCountsAddUp(t *testing.T) {
	e := NewEngine(model.DefaultWeights())
	g := supportedGraph([]string{"a.com", "b.org", "c.net"}, 0)
	g.Claims["clm:bare"] = &model.Claim{ID: "clm:bare", Term: "t", FirstSeen: testNow}

	tm := e.BuildTruthMap(inputs(g, 0.8), testNow)

	total := 0
	for _, n := range tm.Counts {
		total += n
	}
	if total != len(tm.Claims) {
		t.Errorf("quadrant counts (%d) do not cover all claims (%d)", total, len(tm.Claims))
	}
}
