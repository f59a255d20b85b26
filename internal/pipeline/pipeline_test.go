package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/plumbline/plumbline/internal/model"
)

func testRunner(t *testing.T, ledgerLines string) *Runner {
	t.Helper()
	dir := t.TempDir()

	ledgerPath := filepath.Join(dir, "ledger.jsonl")
	if err := os.WriteFile(ledgerPath, []byte(ledgerLines), 0o644); err != nil {
		t.Fatalf("write ledger: %v", err)
	}

	cfg := model.DefaultConfig()
	cfg.Ledger.Path = ledgerPath
	cfg.Artifacts.Dir = filepath.Join(dir, "artifacts")
	cfg.History.Enabled = false
	cfg.Cache.Enabled = false

	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

const runLedger = `{"kind":"claim_added","ts":"2026-01-01T00:00:00Z","term":"laksa","claim_handle":"origin","text":"laksa originated in X"}
{"kind":"anchor_added","ts":"2026-01-01T00:01:00Z","term":"laksa","url":"https://example.com/a","run_id":"r1"}
`

func TestRun_WritesEveryStageArtifact(t *testing.T) {
	r := testRunner(t, runLedger)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	out, err := r.Run(context.Background(), nil, now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"graph", "truthmap", "time_to_truth", "regime", "confidence_bands", "roi_plan"}
	if len(out.ArtifactPaths) != len(want) {
		t.Fatalf("expected %d artifacts, got %d: %v", len(want), len(out.ArtifactPaths), out.ArtifactPaths)
	}
	for i, name := range want {
		base := filepath.Base(out.ArtifactPaths[i])
		if !strings.HasPrefix(base, name+"-") || !strings.HasSuffix(base, ".json") {
			t.Errorf("artifact %d: expected %s-<ts>.json, got %s", i, name, base)
		}
		if _, err := os.Stat(out.ArtifactPaths[i]); err != nil {
			t.Errorf("artifact %s not on disk: %v", base, err)
		}
	}
}

func TestRun_GraphArtifactCarriesTheCompiledGraph(t *testing.T) {
	r := testRunner(t, runLedger)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	out, err := r.Run(context.Background(), nil, now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(out.ArtifactPaths[0])
	if err != nil {
		t.Fatalf("read graph artifact: %v", err)
	}
	for _, fragment := range []string{`"event_count": 2`, "laksa"} {
		if !strings.Contains(string(data), fragment) {
			t.Errorf("graph artifact missing %q", fragment)
		}
	}
}

func TestWriteGraph_SnapshotIsWriteOnce(t *testing.T) {
	r := testRunner(t, runLedger)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	g, err := r.LoadGraph(now)
	if err != nil {
		t.Fatalf("load graph: %v", err)
	}

	path, err := r.WriteGraph(g, now)
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	if !strings.HasSuffix(path, "graph-20260601T120000Z.json") {
		t.Errorf("unexpected snapshot path: %s", path)
	}
	if _, err := r.WriteGraph(g, now); err == nil {
		t.Fatal("expected refusal to overwrite the graph snapshot")
	}
}
