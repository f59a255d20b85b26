// Package integrity computes the global Proof Integrity Score and the
// per-term evidence-quality signals. PIS is a trust scalar, not a truth
// signal: it measures how hard the current anchor set would be to fake.
package integrity

import (
	"math"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/plumbline/plumbline/internal/model"
)

// Scorer computes proof-integrity scores under a fixed weight policy
type Scorer struct {
	weights model.Weights
}

// NewScorer creates a scorer with the given policy weights
func NewScorer(weights model.Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes PIS over the anchors of the most recent windowRuns runs.
// Zero anchors in the window yields PIS = 0 with an explicit error flag,
// never a failure.
func (s *Scorer) Score(anchors []model.Anchor, windowRuns int) model.ProofIntegrity {
	window := WindowAnchors(anchors, windowRuns)

	result := model.ProofIntegrity{
		AnchorCount: len(window),
		WindowRuns:  windowRuns,
	}
	if len(window) == 0 {
		result.Error = "no anchors in window"
		return result
	}

	result.DomainEntropyNorm = domainEntropyNorm(window)
	result.DupRate = dupRate(window)
	result.PrimaryRatio = primaryRatio(window)

	primarySat := math.Min(result.PrimaryRatio/s.weights.PrimaryTarget, 1.0)
	dupComponent := math.Max(1-2*result.DupRate, 0)

	pis := s.weights.PISEntropy*result.DomainEntropyNorm +
		s.weights.PISDup*dupComponent +
		s.weights.PISPrimary*primarySat
	result.PIS = clamp01(pis)

	return result
}

// TermQualities computes the per-term recycling penalty for every term,
// sorted by term. Low domain diversity and low distributional entropy across
// a term's anchors imply evidence recycling.
func (s *Scorer) TermQualities(g *model.Graph) []model.TermQuality {
	terms := g.Terms()
	out := make([]model.TermQuality, 0, len(terms))
	for _, term := range terms {
		out = append(out, s.TermQuality(term, g.AnchorsForTerm(term)))
	}
	return out
}

// TermQuality computes the recycling penalty for one term's anchors
func (s *Scorer) TermQuality(term string, anchors []model.Anchor) model.TermQuality {
	q := model.TermQuality{Term: term, AnchorCount: len(anchors)}
	if len(anchors) == 0 {
		q.Penalty = 1
		return q
	}

	q.DomainCount = len(domainCounts(anchors))
	q.EntropyNorm = domainEntropyNorm(anchors)

	diversitySat := math.Min(float64(q.DomainCount)/s.weights.GuardDomainTarget, 1.0)
	q.Penalty = clamp01(1 -
		s.weights.GuardEntropyWeight*q.EntropyNorm -
		s.weights.GuardDiversityWeight*diversitySat)
	return q
}

// WindowAnchors restricts anchors to the most recent n runs. Run IDs are
// ordered lexicographically when they all share a length (zero-padded or
// timestamped schemes); otherwise the ledger-order tail of distinct runs is
// used. Anchors without a run ID are treated as one implicit run.
func WindowAnchors(anchors []model.Anchor, n int) []model.Anchor {
	if n <= 0 || len(anchors) == 0 {
		return nil
	}

	var order []string
	seen := make(map[string]bool)
	sameLen := true
	for _, a := range anchors {
		if !seen[a.RunID] {
			seen[a.RunID] = true
			order = append(order, a.RunID)
		}
		if len(a.RunID) != len(anchors[0].RunID) {
			sameLen = false
		}
	}

	if sameLen {
		sort.Strings(order)
	}
	if len(order) > n {
		order = order[len(order)-n:]
	}

	keep := make(map[string]bool, len(order))
	for _, r := range order {
		keep[r] = true
	}

	var out []model.Anchor
	for _, a := range anchors {
		if keep[a.RunID] {
			out = append(out, a)
		}
	}
	return out
}

// NormalizeDomain reduces an anchor to its registrable domain (eTLD+1) so
// subdomain farms count as one source. Falls back to the raw host or the
// declared domain field when the URL does not parse.
func NormalizeDomain(a model.Anchor) string {
	host := strings.ToLower(a.Domain)
	if a.URL != "" {
		if u, err := url.Parse(a.URL); err == nil && u.Hostname() != "" {
			host = strings.ToLower(u.Hostname())
		}
	}
	if host == "" {
		return ""
	}
	if etld, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return etld
	}
	return host
}

// domainCounts tallies anchors per registrable domain
func domainCounts(anchors []model.Anchor) map[string]int {
	counts := make(map[string]int)
	for _, a := range anchors {
		if d := NormalizeDomain(a); d != "" {
			counts[d]++
		}
	}
	return counts
}

// domainEntropyNorm is the Shannon entropy of the domain distribution
// normalized to [0,1] by log(k). One domain (or none) scores 0.
func domainEntropyNorm(anchors []model.Anchor) float64 {
	counts := domainCounts(anchors)
	if len(counts) <= 1 {
		return 0
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return clamp01(entropy / math.Log2(float64(len(counts))))
}

// dupRate is the fraction of anchors whose URL repeats an earlier anchor.
// Degenerate case: one or zero anchors cannot duplicate anything.
func dupRate(anchors []model.Anchor) float64 {
	if len(anchors) <= 1 {
		return 0
	}
	distinct := make(map[string]bool)
	withURL := 0
	for _, a := range anchors {
		if a.URL == "" {
			continue
		}
		withURL++
		distinct[a.URL] = true
	}
	if withURL <= 1 {
		return 0
	}
	return 1 - float64(len(distinct))/float64(withURL)
}

// primaryRatio is the raw fraction of primary-flagged anchors
func primaryRatio(anchors []model.Anchor) float64 {
	primaries := 0
	for _, a := range anchors {
		if a.Primary {
			primaries++
		}
	}
	return float64(primaries) / float64(len(anchors))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
