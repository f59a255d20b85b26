package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// AnchorRelation classifies an anchor-to-claim edge
type AnchorRelation string

const (
	AnchorSupports    AnchorRelation = "SUPPORTS"
	AnchorContradicts AnchorRelation = "CONTRADICTS"
	AnchorReframes    AnchorRelation = "REFRAMES"
	AnchorOriginates  AnchorRelation = "ORIGINATES"
)

// ClaimRelation classifies a claim-to-claim edge
type ClaimRelation string

const (
	ClaimSupports    ClaimRelation = "SUPPORTS"
	ClaimContradicts ClaimRelation = "CONTRADICTS"
	ClaimReframes    ClaimRelation = "REFRAMES"
	ClaimDerives     ClaimRelation = "DERIVES"
)

// Claim is an atomic assertion under analysis. Identity is a stable hash of
// (normalized term, handle); superseded claims are new nodes linked via a
// DERIVES edge, never mutations of the old one.
type Claim struct {
	ID        string    `json:"id"`
	Term      string    `json:"term"`
	Handle    string    `json:"handle"`
	Type      string    `json:"type,omitempty"`
	Text      string    `json:"text,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
}

// Anchor is a sourced evidence reference. Immutable once appended.
type Anchor struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id,omitempty"`
	Term        string    `json:"term"`
	URL         string    `json:"url,omitempty"`
	Domain      string    `json:"domain,omitempty"`
	Primary     bool      `json:"primary"`
	ContentHash string    `json:"content_hash,omitempty"`
	Note        string    `json:"note,omitempty"`
	FirstSeen   time.Time `json:"first_seen"`
}

// Entity is a named actor or object mentioned across claims
type Entity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FirstSeen time.Time `json:"first_seen"`
}

// AnchorClaimEdge links an anchor to a claim with a typed relation
type AnchorClaimEdge struct {
	AnchorID string         `json:"anchor_id"`
	ClaimID  string         `json:"claim_id"`
	Relation AnchorRelation `json:"relation"`
	Weight   float64        `json:"weight"`
	Primary  bool           `json:"primary"`
	Domain   string         `json:"domain,omitempty"`
	RunID    string         `json:"run_id,omitempty"`
	TS       time.Time      `json:"ts"`
}

// ClaimEdge links two claims with a typed relation
type ClaimEdge struct {
	FromID   string        `json:"from_id"`
	ToID     string        `json:"to_id"`
	Relation ClaimRelation `json:"relation"`
	TS       time.Time     `json:"ts"`
}

// EntityLink attaches an entity to a claim
type EntityLink struct {
	EntityID string    `json:"entity_id"`
	ClaimID  string    `json:"claim_id"`
	TS       time.Time `json:"ts"`
}

// Graph is the point-in-time evidence graph reconstructed by replaying the
// ledger. Node maps are first-declaration-wins; edge slices preserve ledger
// append order, which downstream determinism depends on.
type Graph struct {
	Claims   map[string]*Claim  `json:"claims"`
	Anchors  map[string]*Anchor `json:"anchors"`
	Entities map[string]*Entity `json:"entities"`

	AnchorEdges []AnchorClaimEdge `json:"anchor_edges"`
	ClaimEdges  []ClaimEdge       `json:"claim_edges"`
	EntityLinks []EntityLink      `json:"entity_links"`

	CompiledAt time.Time `json:"compiled_at"`
	EventCount int       `json:"event_count"`
	Skipped    int       `json:"skipped_records"`
	Ignored    int       `json:"ignored_kinds"`
}

// NewGraph returns an empty graph stamped with the compile time
func NewGraph(now time.Time) *Graph {
	return &Graph{
		Claims:     make(map[string]*Claim),
		Anchors:    make(map[string]*Anchor),
		Entities:   make(map[string]*Entity),
		CompiledAt: now,
	}
}

// ClaimIDs returns all claim IDs in sorted order. Every consumer that ranges
// over claims goes through this so map iteration order never leaks into output.
func (g *Graph) ClaimIDs() []string {
	ids := make([]string, 0, len(g.Claims))
	for id := range g.Claims {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AnchorIDs returns all anchor IDs in sorted order
func (g *Graph) AnchorIDs() []string {
	ids := make([]string, 0, len(g.Anchors))
	for id := range g.Anchors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Terms returns the distinct terms seen on claims and anchors, sorted
func (g *Graph) Terms() []string {
	seen := make(map[string]bool)
	for _, c := range g.Claims {
		seen[c.Term] = true
	}
	for _, a := range g.Anchors {
		seen[a.Term] = true
	}
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// EdgesForClaim returns anchor edges pointing at the claim, in ledger order
func (g *Graph) EdgesForClaim(claimID string) []AnchorClaimEdge {
	var out []AnchorClaimEdge
	for _, e := range g.AnchorEdges {
		if e.ClaimID == claimID {
			out = append(out, e)
		}
	}
	return out
}

// AnchorsForTerm returns anchors belonging to the term, sorted by anchor ID
func (g *Graph) AnchorsForTerm(term string) []Anchor {
	var out []Anchor
	for _, id := range g.AnchorIDs() {
		if a := g.Anchors[id]; a.Term == term {
			out = append(out, *a)
		}
	}
	return out
}

// AnchorList returns all anchors ordered by first-seen time, then ID.
// First-seen order stands in for ledger order when no run window is given.
func (g *Graph) AnchorList() []Anchor {
	out := make([]Anchor, 0, len(g.Anchors))
	for _, id := range g.AnchorIDs() {
		out = append(out, *g.Anchors[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// NormalizeTerm canonicalizes a term for identity hashing
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// ClaimIdentity derives the stable claim ID from (normalized term, handle)
func ClaimIdentity(term, handle string) string {
	h := sha256.Sum256([]byte(NormalizeTerm(term) + "\x00" + handle))
	return "clm:" + hex.EncodeToString(h[:8])
}

// AnchorIdentity derives the stable anchor ID from (run, term, url-or-note).
// When the anchor has no URL (offline/manual evidence) the note hash stands in.
func AnchorIdentity(runID, term, url, note string) string {
	ref := url
	if ref == "" {
		n := sha256.Sum256([]byte(note))
		ref = "note:" + hex.EncodeToString(n[:8])
	}
	h := sha256.Sum256([]byte(runID + "\x00" + NormalizeTerm(term) + "\x00" + ref))
	return "anc:" + hex.EncodeToString(h[:8])
}

// EntityIdentity derives the stable entity ID from the normalized name
func EntityIdentity(name string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(name))))
	return "ent:" + hex.EncodeToString(h[:8])
}
