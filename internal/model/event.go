package model

import "time"

// EventKind identifies a ledger event type
type EventKind string

const (
	EventClaimAdded      EventKind = "claim_added"       // A claim was appended to the ledger
	EventAnchorAdded     EventKind = "anchor_added"      // A sourced anchor was appended
	EventAnchorClaimLink EventKind = "anchor_claim_link" // Anchor-to-claim typed edge
	EventClaimEdge       EventKind = "claim_edge"        // Claim-to-claim typed edge
	EventEntityLinked    EventKind = "entity_linked"     // Entity mention attached to a claim

	// EventUnknown is the documented no-op variant: any kind the reader does
	// not recognize is preserved under this tag and ignored by the compiler,
	// never rejected. This keeps old binaries forward-compatible with newer
	// ledgers.
	EventUnknown EventKind = "unknown"
)

// Event is one ledger record, decoded from a single JSONL line.
// Kind-specific fields are flattened; absent fields stay zero-valued.
// Events are append-only and never mutated after decode.
type Event struct {
	Kind  EventKind `json:"kind"`
	TS    time.Time `json:"ts"`
	RunID string    `json:"run_id"`
	Term  string    `json:"term"`

	// RawKind preserves the ledger's kind string when Kind == EventUnknown
	RawKind string `json:"-"`

	// claim_added
	ClaimHandle string `json:"claim_handle,omitempty"`
	ClaimType   string `json:"claim_type,omitempty"`
	Text        string `json:"text,omitempty"`

	// anchor_added
	URL         string `json:"url,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Primary     bool   `json:"primary,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
	Note        string `json:"note,omitempty"`

	// anchor_claim_link / claim_edge / entity_linked
	AnchorID    string  `json:"anchor_id,omitempty"`
	ClaimID     string  `json:"claim_id,omitempty"`
	Relation    string  `json:"relation,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	FromClaimID string  `json:"from_claim_id,omitempty"`
	ToClaimID   string  `json:"to_claim_id,omitempty"`
	Entity      string  `json:"entity,omitempty"`
}

// KnownEventKinds lists every kind the compiler replays, in no particular order.
var KnownEventKinds = []EventKind{
	EventClaimAdded,
	EventAnchorAdded,
	EventAnchorClaimLink,
	EventClaimEdge,
	EventEntityLinked,
}

// IsKnownEventKind reports whether kind is one the compiler replays.
func IsKnownEventKind(kind EventKind) bool {
	for _, k := range KnownEventKinds {
		if k == kind {
			return true
		}
	}
	return false
}
