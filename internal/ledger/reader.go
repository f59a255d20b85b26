package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/plumbline/plumbline/internal/logging"
	"github.com/plumbline/plumbline/internal/model"
)

// maxLineBytes bounds a single ledger line; anything larger is malformed
const maxLineBytes = 1 << 20

// ReadResult carries the decoded events plus the malformed-record count.
// Malformed lines are skipped and counted, never fatal to the batch.
type ReadResult struct {
	Events    []model.Event
	Malformed int
	Unknown   int
}

// ReadFile reads a JSONL ledger from disk in append order
func ReadFile(path string) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(f)
}

// Read decodes one event per line, preserving ledger append order.
// Unknown kinds are kept as Unknown no-op variants so the compiler can count
// them; lines that fail to parse or miss required fields are skipped.
func Read(r io.Reader) (*ReadResult, error) {
	log := logging.New("ledger")
	result := &ReadResult{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw struct {
			model.Event
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			result.Malformed++
			log.Debug("skipping malformed ledger line", "line", lineNo, "error", err)
			continue
		}

		ev := raw.Event
		ev.Kind = model.EventKind(raw.Kind)
		if !model.IsKnownEventKind(ev.Kind) {
			ev.RawKind = raw.Kind
			ev.Kind = model.EventUnknown
			result.Unknown++
			result.Events = append(result.Events, ev)
			continue
		}

		if err := validate(ev); err != nil {
			result.Malformed++
			log.Debug("skipping incomplete ledger record", "line", lineNo, "kind", raw.Kind, "error", err)
			continue
		}

		result.Events = append(result.Events, ev)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}

	if result.Malformed > 0 {
		log.Warn("ledger contained malformed records", "skipped", result.Malformed)
	}
	return result, nil
}

// validate checks the required fields for each known kind
func validate(ev model.Event) error {
	if ev.TS.IsZero() {
		return fmt.Errorf("missing ts")
	}
	switch ev.Kind {
	case model.EventClaimAdded:
		if ev.Term == "" || ev.ClaimHandle == "" {
			return fmt.Errorf("claim_added requires term and claim_handle")
		}
	case model.EventAnchorAdded:
		if ev.Term == "" {
			return fmt.Errorf("anchor_added requires term")
		}
		if ev.URL == "" && ev.Note == "" {
			return fmt.Errorf("anchor_added requires url or note")
		}
	case model.EventAnchorClaimLink:
		if ev.AnchorID == "" || ev.ClaimID == "" || ev.Relation == "" {
			return fmt.Errorf("anchor_claim_link requires anchor_id, claim_id and relation")
		}
	case model.EventClaimEdge:
		if ev.FromClaimID == "" || ev.ToClaimID == "" || ev.Relation == "" {
			return fmt.Errorf("claim_edge requires from_claim_id, to_claim_id and relation")
		}
	case model.EventEntityLinked:
		if ev.Entity == "" || ev.ClaimID == "" {
			return fmt.Errorf("entity_linked requires entity and claim_id")
		}
	}
	return nil
}
