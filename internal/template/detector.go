// Package template fingerprints claim text and counts cross-domain reuse.
// TPL and COORD are repetition proxies, not ground truth: legitimately
// syndicated content fingerprints the same way as a template farm. The
// scoring layer carries that disclaimer into every artifact.
package template

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/plumbline/plumbline/internal/integrity"
	"github.com/plumbline/plumbline/internal/model"
)

var (
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Signals holds the per-claim template and coordination proxies
type Signals struct {
	TPL   map[string]float64
	Coord map[string]float64

	// Fingerprints maps claim ID to its text fingerprint; empty when the
	// normalized text was too short to be a signal.
	Fingerprints map[string]string
}

// Detector computes template/coordination signals under a fixed policy
type Detector struct {
	weights model.Weights
}

// NewDetector creates a detector with the given policy weights
func NewDetector(weights model.Weights) *Detector {
	return &Detector{weights: weights}
}

// Detect fingerprints every claim's text and derives:
//   - TPL: saturating repetition count of the fingerprint across claims
//     (0 at first occurrence, 1 at the configured saturation)
//   - COORD: saturating count of distinct domains carrying the same
//     fingerprint (0 at one domain, 1 at the configured saturation)
func (d *Detector) Detect(g *model.Graph) Signals {
	sig := Signals{
		TPL:          make(map[string]float64),
		Coord:        make(map[string]float64),
		Fingerprints: make(map[string]string),
	}

	// Fingerprint in sorted claim order so repetition counts are stable
	claimIDs := g.ClaimIDs()
	fpCount := make(map[string]int)
	for _, id := range claimIDs {
		fp := Fingerprint(g.Claims[id].Text, d.weights.MinFingerprintLen)
		sig.Fingerprints[id] = fp
		if fp != "" {
			fpCount[fp]++
		}
	}

	// Distinct domains per fingerprint, via anchor edges of carrying claims
	fpDomains := make(map[string]map[string]bool)
	for _, e := range g.AnchorEdges {
		fp := sig.Fingerprints[e.ClaimID]
		if fp == "" {
			continue
		}
		domain := edgeDomain(g, e)
		if domain == "" {
			continue
		}
		if fpDomains[fp] == nil {
			fpDomains[fp] = make(map[string]bool)
		}
		fpDomains[fp][domain] = true
	}

	tplSat := float64(d.weights.TemplateSaturation - 1)
	coordSat := float64(d.weights.CoordinationSaturation - 1)

	for _, id := range claimIDs {
		fp := sig.Fingerprints[id]
		if fp == "" {
			sig.TPL[id] = 0
			sig.Coord[id] = 0
			continue
		}
		sig.TPL[id] = saturate(float64(fpCount[fp]-1), tplSat)

		domains := len(fpDomains[fp])
		if domains <= 1 {
			sig.Coord[id] = 0
		} else {
			sig.Coord[id] = saturate(float64(domains-1), coordSat)
		}
	}

	return sig
}

// Fingerprint normalizes claim text and hashes it. Text that normalizes to
// fewer than minLen characters is treated as non-signal and returns "".
func Fingerprint(text string, minLen int) string {
	normalized := Normalize(text)
	if len(normalized) < minLen {
		return ""
	}
	h := sha256.Sum256([]byte(normalized))
	return "fp:" + hex.EncodeToString(h[:8])
}

// Normalize strips URLs and punctuation, collapses whitespace and lowercases
func Normalize(text string) string {
	t := urlPattern.ReplaceAllString(text, " ")
	var b strings.Builder
	for _, r := range strings.ToLower(t) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case r >= 0x80: // keep non-ASCII letters, drop ASCII punctuation
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(b.String(), " "))
}

// edgeDomain resolves the registrable domain for an edge, preferring the
// edge's declared domain and falling back to the anchor node.
func edgeDomain(g *model.Graph, e model.AnchorClaimEdge) string {
	if e.Domain != "" {
		return integrity.NormalizeDomain(model.Anchor{Domain: e.Domain})
	}
	if a, ok := g.Anchors[e.AnchorID]; ok {
		return integrity.NormalizeDomain(*a)
	}
	return ""
}

// saturate maps v linearly onto [0,1] with the given saturation point
func saturate(v, sat float64) float64 {
	if sat <= 0 {
		if v > 0 {
			return 1
		}
		return 0
	}
	if v >= sat {
		return 1
	}
	if v <= 0 {
		return 0
	}
	return v / sat
}
