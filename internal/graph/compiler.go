// Package graph replays the append-only ledger into a point-in-time evidence
// graph. Replay is idempotent and order-insensitive for node creation (first
// declaration wins) while edge lists preserve ledger append order.
package graph

import (
	"time"

	"github.com/plumbline/plumbline/internal/model"
)

// Compile replays events with timestamp <= now into a graph. Unknown event
// kinds are counted and ignored; nothing here is a failure mode, malformed
// records were already dropped by the ledger reader.
func Compile(events []model.Event, now time.Time) *model.Graph {
	g := model.NewGraph(now)

	for _, ev := range events {
		if ev.TS.After(now) {
			continue
		}
		g.EventCount++

		switch ev.Kind {
		case model.EventClaimAdded:
			declareClaim(g, claimFromEvent(ev))

		case model.EventAnchorAdded:
			declareAnchor(g, anchorFromEvent(ev))

		case model.EventAnchorClaimLink:
			// Edges may declare their endpoints implicitly; a later explicit
			// claim_added/anchor_added for the same ID is then a no-op.
			declareClaim(g, &model.Claim{
				ID: ev.ClaimID, Term: ev.Term, FirstSeen: ev.TS, RunID: ev.RunID,
			})
			declareAnchor(g, &model.Anchor{
				ID: ev.AnchorID, Term: ev.Term, Domain: ev.Domain,
				Primary: ev.Primary, FirstSeen: ev.TS, RunID: ev.RunID,
			})
			g.AnchorEdges = append(g.AnchorEdges, model.AnchorClaimEdge{
				AnchorID: ev.AnchorID,
				ClaimID:  ev.ClaimID,
				Relation: model.AnchorRelation(ev.Relation),
				Weight:   edgeWeight(ev.Weight),
				Primary:  ev.Primary,
				Domain:   ev.Domain,
				RunID:    ev.RunID,
				TS:       ev.TS,
			})

		case model.EventClaimEdge:
			declareClaim(g, &model.Claim{ID: ev.FromClaimID, Term: ev.Term, FirstSeen: ev.TS, RunID: ev.RunID})
			declareClaim(g, &model.Claim{ID: ev.ToClaimID, Term: ev.Term, FirstSeen: ev.TS, RunID: ev.RunID})
			g.ClaimEdges = append(g.ClaimEdges, model.ClaimEdge{
				FromID:   ev.FromClaimID,
				ToID:     ev.ToClaimID,
				Relation: model.ClaimRelation(ev.Relation),
				TS:       ev.TS,
			})

		case model.EventEntityLinked:
			entityID := model.EntityIdentity(ev.Entity)
			if _, ok := g.Entities[entityID]; !ok {
				g.Entities[entityID] = &model.Entity{ID: entityID, Name: ev.Entity, FirstSeen: ev.TS}
			}
			declareClaim(g, &model.Claim{ID: ev.ClaimID, Term: ev.Term, FirstSeen: ev.TS, RunID: ev.RunID})
			g.EntityLinks = append(g.EntityLinks, model.EntityLink{
				EntityID: entityID,
				ClaimID:  ev.ClaimID,
				TS:       ev.TS,
			})

		default:
			g.Ignored++
		}
	}

	return g
}

// declareClaim adds the claim if unseen. First declaration wins; a later
// richer declaration never overwrites an earlier one, but an implicit stub
// gains text/handle fields if they were empty (still no mutation of anything
// previously set).
func declareClaim(g *model.Graph, c *model.Claim) {
	existing, ok := g.Claims[c.ID]
	if !ok {
		g.Claims[c.ID] = c
		return
	}
	if existing.Handle == "" && c.Handle != "" {
		existing.Handle = c.Handle
		existing.Type = c.Type
		existing.Text = c.Text
	}
}

func declareAnchor(g *model.Graph, a *model.Anchor) {
	existing, ok := g.Anchors[a.ID]
	if !ok {
		g.Anchors[a.ID] = a
		return
	}
	if existing.URL == "" && a.URL != "" {
		existing.URL = a.URL
		existing.Domain = a.Domain
		existing.Primary = a.Primary
		existing.ContentHash = a.ContentHash
	}
}

func claimFromEvent(ev model.Event) *model.Claim {
	id := ev.ClaimID
	if id == "" {
		id = model.ClaimIdentity(ev.Term, ev.ClaimHandle)
	}
	return &model.Claim{
		ID:        id,
		Term:      ev.Term,
		Handle:    ev.ClaimHandle,
		Type:      ev.ClaimType,
		Text:      ev.Text,
		RunID:     ev.RunID,
		FirstSeen: ev.TS,
	}
}

func anchorFromEvent(ev model.Event) *model.Anchor {
	id := ev.AnchorID
	if id == "" {
		id = model.AnchorIdentity(ev.RunID, ev.Term, ev.URL, ev.Note)
	}
	return &model.Anchor{
		ID:          id,
		RunID:       ev.RunID,
		Term:        ev.Term,
		URL:         ev.URL,
		Domain:      ev.Domain,
		Primary:     ev.Primary,
		ContentHash: ev.ContentHash,
		Note:        ev.Note,
		FirstSeen:   ev.TS,
	}
}

// edgeWeight defaults unweighted links to 1.0
func edgeWeight(w float64) float64 {
	if w <= 0 {
		return 1.0
	}
	return w
}
