package store

import (
	"testing"
	"time"

	"github.com/plumbline/plumbline/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func snapshotAt(ts time.Time, claims ...model.ClaimScore) *model.TruthMap {
	return &model.TruthMap{GeneratedAt: ts, RunID: ts.UTC().Format("20060102T150405Z"), Claims: claims}
}

func TestSaveTruthMap_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tm := snapshotAt(ts,
		model.ClaimScore{ClaimID: "clm:b", Term: "laksa", Handle: "h2", CS: 0.7, ML: 0.2, Quadrant: model.QuadrantLegitPattern, CSS: 0.8, CPR: 0.1},
		model.ClaimScore{ClaimID: "clm:a", Term: "laksa", Handle: "h1", CS: 0.3, ML: 0.8, Quadrant: model.QuadrantLikelyManipulation, CSS: 0.4, CPR: 0.9},
	)
	if err := s.SaveTruthMap(tm); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.TruthMapAt(ts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Claims) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(got.Claims))
	}
	if got.Claims[0].ClaimID != "clm:a" {
		t.Errorf("expected claim-ID order, got %s first", got.Claims[0].ClaimID)
	}
	c := got.Claims[0]
	if c.CS != 0.3 || c.ML != 0.8 || c.Quadrant != model.QuadrantLikelyManipulation || c.CPR != 0.9 {
		t.Errorf("round trip mangled claim: %+v", c)
	}
	if got.Counts[model.QuadrantLegitPattern] != 1 {
		t.Errorf("expected rebuilt quadrant counts, got %v", got.Counts)
	}
}

func TestSaveTruthMap_AppendOnly(t *testing.T) {
	s := openTestStore(t)
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	first := snapshotAt(ts, model.ClaimScore{ClaimID: "clm:a", Term: "t", CS: 0.5, Quadrant: model.QuadrantBenignNoise})
	if err := s.SaveTruthMap(first); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Same (run_ts, claim) with different numbers: must not overwrite
	second := snapshotAt(ts, model.ClaimScore{ClaimID: "clm:a", Term: "t", CS: 0.9, Quadrant: model.QuadrantLegitPattern})
	if err := s.SaveTruthMap(second); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	got, err := s.TruthMapAt(ts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Claims[0].CS != 0.5 {
		t.Errorf("snapshot row was overwritten: CS %v", got.Claims[0].CS)
	}
}

func TestClaimSeries_GroupsAndOrders(t *testing.T) {
	s := openTestStore(t)
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.AddDate(0, 0, 1)

	for _, tm := range []*model.TruthMap{
		snapshotAt(t2, model.ClaimScore{ClaimID: "clm:a", Term: "t", CS: 0.6, Quadrant: model.QuadrantLegitPattern}),
		snapshotAt(t1,
			model.ClaimScore{ClaimID: "clm:a", Term: "t", CS: 0.4, Quadrant: model.QuadrantBenignNoise},
			model.ClaimScore{ClaimID: "clm:b", Term: "t", CS: 0.2, Quadrant: model.QuadrantBenignNoise},
		),
	} {
		if err := s.SaveTruthMap(tm); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	series, err := s.ClaimSeries()
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	a := series[0]
	if a.ClaimID != "clm:a" || len(a.Points) != 2 {
		t.Fatalf("expected clm:a with 2 points, got %s with %d", a.ClaimID, len(a.Points))
	}
	if !a.Points[0].TS.Before(a.Points[1].TS) {
		t.Error("expected chronological points")
	}
	if a.Points[0].CS != 0.4 || a.Points[1].CS != 0.6 {
		t.Errorf("unexpected series values: %v then %v", a.Points[0].CS, a.Points[1].CS)
	}
}

func TestSnapshotTimes_Ascending(t *testing.T) {
	s := openTestStore(t)
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.AddDate(0, 0, 1)

	for _, ts := range []time.Time{t2, t1} {
		if err := s.SaveTruthMap(snapshotAt(ts, model.ClaimScore{ClaimID: "clm:a", Term: "t", Quadrant: model.QuadrantBenignNoise})); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	times, err := s.SnapshotTimes()
	if err != nil {
		t.Fatalf("times: %v", err)
	}
	if len(times) != 2 || !times[0].Before(times[1]) {
		t.Errorf("expected 2 ascending timestamps, got %v", times)
	}
}

func TestSaveSIG_AppendOnlyHistory(t *testing.T) {
	s := openTestStore(t)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sig := model.SIGSnapshot{
		TS: ts, RunID: "r1",
		Composite: 0.55, CalibrationError: 0.1, Brier: 0.2,
		StabilizationHalfLife: 12, ProofDensity: 1.5, ForecastSkillDelta: 0.02, Stability: 0.9,
	}
	if err := s.SaveSIG(sig); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Duplicate timestamp silently ignored
	dup := sig
	dup.Composite = 0.99
	if err := s.SaveSIG(dup); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	if err := s.SaveSIG(model.SIGSnapshot{TS: ts.AddDate(0, 0, 1), Composite: 0.6}); err != nil {
		t.Fatalf("save second: %v", err)
	}

	history, err := s.SIGHistory(0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(history))
	}
	if history[0].Composite != 0.55 {
		t.Errorf("duplicate timestamp overwrote the original: %v", history[0].Composite)
	}
	if history[0].StabilizationHalfLife != 12 || history[0].Stability != 0.9 {
		t.Errorf("round trip mangled SIG fields: %+v", history[0])
	}

	limited, err := s.SIGHistory(1)
	if err != nil {
		t.Fatalf("limited history: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected limit respected, got %d", len(limited))
	}
}

func TestOutcomesBetween_HalfOpenWindow(t *testing.T) {
	s := openTestStore(t)
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.AddDate(0, 0, 1)
	t3 := t1.AddDate(0, 0, 2)

	outcomes := []model.TaskOutcome{
		{Kind: model.TaskProvenanceTrace, ClaimID: "clm:a", Term: "t", EdgesAdded: 2, ExecutedAt: t1},
		{Kind: model.TaskContradictionProbe, ClaimID: "clm:b", Term: "t", EdgesAdded: 1, ExecutedAt: t2},
		{Kind: model.TaskLivenessRecheck, ClaimID: "clm:c", Term: "t", EdgesAdded: 0, ExecutedAt: t3},
	}
	if err := s.RecordOutcomes(outcomes); err != nil {
		t.Fatalf("record: %v", err)
	}

	// (t1, t2]: excludes the boundary start, includes the boundary end
	got, err := s.OutcomesBetween(t1, t2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 outcome in (t1, t2], got %d", len(got))
	}
	o := got[0]
	if o.Kind != model.TaskContradictionProbe || o.ClaimID != "clm:b" || o.EdgesAdded != 1 {
		t.Errorf("round trip mangled outcome: %+v", o)
	}
}
