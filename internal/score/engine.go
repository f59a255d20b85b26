// Package score combines graph edge weights, proof quality and
// template/coordination signals into the two classification axes:
// Coherence Strength and Manipulation Likelihood.
package score

import (
	"math"
	"time"

	"github.com/plumbline/plumbline/internal/integrity"
	"github.com/plumbline/plumbline/internal/model"
	"github.com/plumbline/plumbline/internal/template"
)

// cprEpsilon guards the contradiction ratio against a zero support total
const cprEpsilon = 1e-6

// Engine scores claims under a fixed weight policy. State-free per call.
type Engine struct {
	weights model.Weights
}

// NewEngine creates a scoring engine with the given policy weights
func NewEngine(weights model.Weights) *Engine {
	return &Engine{weights: weights}
}

// Inputs carries the upstream signals a truth map is built from
type Inputs struct {
	Graph       *model.Graph
	Proof       model.ProofIntegrity
	TermQuality []model.TermQuality
	Signals     template.Signals

	// RegimeShift applies the configured additive ML boost while a regime
	// shift is active. Policy knob, not an invariant; see Weights.RegimeShiftBoost.
	RegimeShift bool
}

// BuildTruthMap scores every claim and assembles the truth-contamination map.
// Claims are emitted in sorted ID order; output is deterministic for a fixed
// graph and timestamp.
func (e *Engine) BuildTruthMap(in Inputs, now time.Time) *model.TruthMap {
	tm := &model.TruthMap{
		GeneratedAt: now,
		Proof:       in.Proof,
		TermQuality: in.TermQuality,
		RegimeShift: in.RegimeShift,
		Counts:      make(map[model.Quadrant]int),
		Disclaimer:  model.TruthMapDisclaimer,
	}

	if in.Graph == nil || len(in.Graph.Claims) == 0 {
		tm.Error = "no claims in graph"
		return tm
	}

	tm.Falsification = falsificationCulture(in.Graph)

	quality := make(map[string]model.TermQuality, len(in.TermQuality))
	for _, q := range in.TermQuality {
		quality[q.Term] = q
	}

	for _, id := range in.Graph.ClaimIDs() {
		cs := e.ScoreClaim(in, quality, id, tm.Falsification)
		tm.Claims = append(tm.Claims, cs)
		tm.Counts[cs.Quadrant]++
	}

	return tm
}

// ScoreClaim computes both axes and the quadrant for one claim
func (e *Engine) ScoreClaim(in Inputs, quality map[string]model.TermQuality, claimID string, falsification float64) model.ClaimScore {
	w := e.weights
	claim := in.Graph.Claims[claimID]

	cs := model.ClaimScore{
		ClaimID: claimID,
		Term:    claim.Term,
		Handle:  claim.Handle,
		TPL:     in.Signals.TPL[claimID],
		Coord:   in.Signals.Coord[claimID],
	}

	supportDomains := make(map[string]bool)
	contraDomains := make(map[string]bool)
	for _, edge := range in.Graph.EdgesForClaim(claimID) {
		domain := integrity.NormalizeDomain(model.Anchor{URL: anchorURL(in.Graph, edge), Domain: edge.Domain})
		switch edge.Relation {
		case model.AnchorSupports:
			cs.SupportWeight += edge.Weight
			if domain != "" {
				supportDomains[domain] = true
			}
		case model.AnchorContradicts:
			cs.ContradictWeight += edge.Weight
			if domain != "" {
				contraDomains[domain] = true
			}
		}
	}
	cs.SupportDomains = len(supportDomains)
	cs.ContradictDomains = len(contraDomains)

	// CSS: logistic squash of net weighted support, scaled by how many
	// independent domains carry the support.
	net := cs.SupportWeight - w.ContradictionDiscount*cs.ContradictWeight
	diversityBonus := w.DiversityBonusFloor +
		w.DiversityBonusSpan*math.Min(float64(cs.SupportDomains)/w.DiversityDomainTarget, 1)
	cs.CSS = clamp01(logistic(net) * diversityBonus)

	cs.CPR = cs.ContradictWeight / (cs.SupportWeight + cprEpsilon)

	evidenceDiversity := math.Min(float64(cs.SupportDomains)/w.DiversityDomainTarget, 1)
	cs.CS = clamp01(w.CSFromCSS*cs.CSS +
		w.CSFromDiversity*evidenceDiversity +
		w.CSFromFalsification*falsification -
		w.CSContradictionPenalty*clamp01(cs.CPR/2))

	// Low-diversity environment: the term's whole anchor pool comes from
	// few domains, so even "supported" claims breathe recycled air.
	lowDiversity := 0.0
	if q, ok := quality[claim.Term]; ok {
		lowDiversity = 1 - math.Min(float64(q.DomainCount)/w.DiversityDomainTarget, 1)
	}

	ml := w.MLFromTemplate*cs.TPL +
		w.MLFromCoordination*cs.Coord +
		w.MLFromIntegrity*(1-in.Proof.PIS) +
		w.MLFromLowDiversity*lowDiversity
	if in.RegimeShift {
		ml += w.RegimeShiftBoost
	}
	cs.ML = clamp01(ml)

	cs.Quadrant = Classify(cs.CS, cs.ML, w.CSThreshold, w.MLThreshold)
	return cs
}

// Classify assigns exactly one quadrant. The four predicates are mutually
// exclusive and exhaustive over [0,1]^2.
func Classify(cs, ml, csThreshold, mlThreshold float64) model.Quadrant {
	switch {
	case cs >= csThreshold && ml < mlThreshold:
		return model.QuadrantLegitPattern
	case cs >= csThreshold && ml >= mlThreshold:
		return model.QuadrantWeaponizedTruth
	case ml >= mlThreshold:
		return model.QuadrantLikelyManipulation
	default:
		return model.QuadrantBenignNoise
	}
}

// falsificationCulture is the fraction of claims carrying at least one
// contradicting anchor. A corpus that records disconfirming evidence at all
// is structurally healthier than one that only accumulates support.
func falsificationCulture(g *model.Graph) float64 {
	if len(g.Claims) == 0 {
		return 0
	}
	contested := make(map[string]bool)
	for _, e := range g.AnchorEdges {
		if e.Relation == model.AnchorContradicts {
			contested[e.ClaimID] = true
		}
	}
	return float64(len(contested)) / float64(len(g.Claims))
}

func anchorURL(g *model.Graph, e model.AnchorClaimEdge) string {
	if a, ok := g.Anchors[e.AnchorID]; ok {
		return a.URL
	}
	return ""
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
