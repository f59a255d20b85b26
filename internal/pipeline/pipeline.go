// Package pipeline wires the analysis stages into runnable commands: ledger
// replay, scoring, temporal analysis, regime detection, ROI planning and the
// calibration loop. Every stage output is written as an immutable artifact.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/plumbline/plumbline/internal/cache"
	"github.com/plumbline/plumbline/internal/calibrate"
	"github.com/plumbline/plumbline/internal/graph"
	"github.com/plumbline/plumbline/internal/integrity"
	"github.com/plumbline/plumbline/internal/ledger"
	"github.com/plumbline/plumbline/internal/llm"
	"github.com/plumbline/plumbline/internal/logging"
	"github.com/plumbline/plumbline/internal/model"
	"github.com/plumbline/plumbline/internal/regime"
	"github.com/plumbline/plumbline/internal/roi"
	"github.com/plumbline/plumbline/internal/score"
	"github.com/plumbline/plumbline/internal/store"
	"github.com/plumbline/plumbline/internal/template"
	"github.com/plumbline/plumbline/internal/temporal"
	"github.com/plumbline/plumbline/internal/validate"
)

// Runner owns the shared resources of a pipeline invocation: config, the
// history index, the graph cache and the artifact writer.
type Runner struct {
	cfg       *model.Config
	log       *slog.Logger
	history   *store.Store
	graphs    cache.Cache
	artifacts *ArtifactWriter
}

// RunResult gathers everything one full pipeline run produced
type RunResult struct {
	Graph    *model.Graph
	TruthMap *model.TruthMap
	Temporal *model.TimeToTruthReport
	Regime   *model.RegimeReport
	Bands    *model.ConfidenceReport
	Plan     *model.ROIPlan
	SIG      model.SIGSnapshot

	ArtifactPaths []string
}

// CalibrationResult is the output of one calibration pass
type CalibrationResult struct {
	Uplift  *model.UpliftTable
	Weights *model.CalibrationWeights

	ArtifactPaths []string
}

// NewRunner validates the config and opens the history index and graph cache
func NewRunner(cfg *model.Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r := &Runner{
		cfg:       cfg,
		log:       logging.New("pipeline"),
		artifacts: NewArtifactWriter(expandPath(cfg.Artifacts.Dir)),
	}

	if cfg.History.Enabled {
		s, err := store.Open(expandPath(cfg.History.Path))
		if err != nil {
			return nil, err
		}
		r.history = s
	}
	if cfg.Cache.Enabled {
		r.graphs = cache.NewLayeredCache(cfg.Cache.MemoryTTL, expandPath(cfg.Cache.Dir), cfg.Cache.DiskTTL)
	}

	return r, nil
}

// Close releases the history index
func (r *Runner) Close() error {
	if r.history != nil {
		return r.history.Close()
	}
	return nil
}

// History exposes the underlying index for commands that read it directly
func (r *Runner) History() *store.Store {
	return r.history
}

// LoadGraph reads the ledger and compiles the point-in-time graph, going
// through the snapshot cache when enabled. Cached and freshly compiled graphs
// are byte-identical by construction.
func (r *Runner) LoadGraph(now time.Time) (*model.Graph, error) {
	data, err := os.ReadFile(expandPath(r.cfg.Ledger.Path))
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var key string
	if r.graphs != nil {
		key = cache.GraphKey(data, now)
		if cached, ok := r.graphs.Get(key); ok {
			var g model.Graph
			if err := json.Unmarshal(cached, &g); err == nil {
				r.log.Debug("graph cache hit", "key", key)
				return &g, nil
			}
			// Corrupt entry: drop it and recompile
			_ = r.graphs.Delete(key)
		}
	}

	result, err := ledger.Read(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	g := graph.Compile(result.Events, now)
	g.Skipped = result.Malformed

	if r.graphs != nil {
		if encoded, err := json.Marshal(g); err == nil {
			_ = r.graphs.Set(key, encoded, 0)
		}
	}

	r.log.Info("graph compiled",
		"events", g.EventCount, "claims", len(g.Claims), "anchors", len(g.Anchors),
		"skipped", g.Skipped, "ignored", g.Ignored)
	return g, nil
}

// Snapshot compiles the graph and scores it into a truth map without touching
// the history index. RegimeShift is applied when the prior SIG history already
// signals a shift.
func (r *Runner) Snapshot(now time.Time) (*model.Graph, *model.TruthMap, error) {
	g, err := r.LoadGraph(now)
	if err != nil {
		return nil, nil, err
	}

	tm := r.buildTruthMap(g, r.regimeActive(now), now)
	return g, tm, nil
}

func (r *Runner) buildTruthMap(g *model.Graph, regimeShift bool, now time.Time) *model.TruthMap {
	scorer := integrity.NewScorer(r.cfg.Weights)
	proof := scorer.Score(g.AnchorList(), r.cfg.Windows.PISRuns)
	quality := scorer.TermQualities(g)
	signals := template.NewDetector(r.cfg.Weights).Detect(g)

	engine := score.NewEngine(r.cfg.Weights)
	tm := engine.BuildTruthMap(score.Inputs{
		Graph:       g,
		Proof:       proof,
		TermQuality: quality,
		Signals:     signals,
		RegimeShift: regimeShift,
	}, now)
	tm.RunID = runID(now)
	return tm
}

// regimeActive checks whether the recorded SIG history already flags a shift
func (r *Runner) regimeActive(now time.Time) bool {
	if r.history == nil {
		return false
	}
	history, err := r.history.SIGHistory(0)
	if err != nil {
		r.log.Warn("reading sig history failed", "error", err)
		return false
	}
	report := regime.NewDetector(r.cfg.Weights, r.cfg.Windows.Regime).Detect(history, now)
	return report.Error == "" && report.Shift
}

// Run executes the full loop: compile, score, persist, temporal analysis,
// regime detection, ROI planning. Each stage's artifact is written as it
// completes so a late failure never loses earlier output.
func (r *Runner) Run(ctx context.Context, calibration *model.CalibrationWeights, now time.Time) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &RunResult{}

	g, tm, err := r.Snapshot(now)
	if err != nil {
		return nil, err
	}
	out.Graph = g
	out.TruthMap = tm
	r.writeArtifact(out, "graph", now, g)
	r.writeArtifact(out, "truthmap", now, tm)

	var history []model.SIGSnapshot
	if r.history != nil {
		if err := r.history.SaveTruthMap(tm); err != nil {
			return nil, err
		}
		history, err = r.history.SIGHistory(0)
		if err != nil {
			return nil, err
		}
	}

	series, err := r.claimSeries(tm)
	if err != nil {
		return nil, err
	}
	analyzer := temporal.NewAnalyzer(r.cfg.Weights, r.cfg.Windows.Variance, r.cfg.Concurrency.ClaimWorkers)
	out.Temporal = analyzer.Report(series, now)
	r.writeArtifact(out, "time_to_truth", now, out.Temporal)

	out.SIG = ComputeSIG(tm, g, out.Temporal, history, r.cfg.Weights, now)
	if r.history != nil {
		if err := r.history.SaveSIG(out.SIG); err != nil {
			return nil, err
		}
	}
	history = append(history, out.SIG)

	detector := regime.NewDetector(r.cfg.Weights, r.cfg.Windows.Regime)
	out.Regime = detector.Detect(history, now)
	out.Bands = detector.Bands(history, now)
	r.writeArtifact(out, "regime", now, out.Regime)
	r.writeArtifact(out, "confidence_bands", now, out.Bands)

	scheduler := roi.NewScheduler(r.cfg.Weights, r.cfg.Scheduler, calibration)
	out.Plan = scheduler.Plan(scheduler.GenerateCandidates(tm), now)
	r.writeArtifact(out, "roi_plan", now, out.Plan)

	r.log.Info("run complete",
		"claims", len(tm.Claims), "pis", tm.Proof.PIS,
		"regime_shift", out.Regime.Shift, "tasks_selected", len(out.Plan.Selected))
	return out, nil
}

// WriteGraph writes the compiled graph as an immutable snapshot artifact
func (r *Runner) WriteGraph(g *model.Graph, now time.Time) (string, error) {
	return r.artifacts.Write("graph", now, g)
}

// Stabilize runs only the temporal stage over recorded history
func (r *Runner) Stabilize(now time.Time) (*model.TimeToTruthReport, string, error) {
	series, err := r.claimSeries(nil)
	if err != nil {
		return nil, "", err
	}
	analyzer := temporal.NewAnalyzer(r.cfg.Weights, r.cfg.Windows.Variance, r.cfg.Concurrency.ClaimWorkers)
	report := analyzer.Report(series, now)
	path, err := r.artifacts.Write("time_to_truth", now, report)
	if err != nil {
		return nil, "", err
	}
	return report, path, nil
}

// Regime runs only regime detection and confidence bands over recorded history
func (r *Runner) Regime(now time.Time) (*model.RegimeReport, *model.ConfidenceReport, error) {
	if r.history == nil {
		return nil, nil, fmt.Errorf("regime detection requires the history index (history.enabled)")
	}
	history, err := r.history.SIGHistory(0)
	if err != nil {
		return nil, nil, err
	}
	detector := regime.NewDetector(r.cfg.Weights, r.cfg.Windows.Regime)
	return detector.Detect(history, now), detector.Bands(history, now), nil
}

// PlanTasks scores the current ledger state and produces an acquisition plan
func (r *Runner) PlanTasks(calibration *model.CalibrationWeights, now time.Time) (*model.ROIPlan, string, error) {
	_, tm, err := r.Snapshot(now)
	if err != nil {
		return nil, "", err
	}
	scheduler := roi.NewScheduler(r.cfg.Weights, r.cfg.Scheduler, calibration)
	plan := scheduler.Plan(scheduler.GenerateCandidates(tm), now)
	path, err := r.artifacts.Write("roi_plan", now, plan)
	if err != nil {
		return nil, "", err
	}
	return plan, path, nil
}

// RecordOutcomes stores executed-task outcomes for later attribution
func (r *Runner) RecordOutcomes(outcomes []model.TaskOutcome) error {
	if r.history == nil {
		return fmt.Errorf("recording outcomes requires the history index (history.enabled)")
	}
	if len(outcomes) == 0 {
		return fmt.Errorf("no outcomes to record")
	}
	return r.history.RecordOutcomes(outcomes)
}

// Calibrate diffs the snapshots at before/after, attributes the deltas to the
// outcomes recorded between them and ridge-fits new expected-gain weights.
// Term quality comes from the current graph: the guard discounts against the
// evidence pool as it stands, not as it stood.
func (r *Runner) Calibrate(before, after time.Time, now time.Time) (*CalibrationResult, error) {
	if r.history == nil {
		return nil, fmt.Errorf("calibration requires the history index (history.enabled)")
	}

	prev, err := r.history.TruthMapAt(before)
	if err != nil {
		return nil, err
	}
	next, err := r.history.TruthMapAt(after)
	if err != nil {
		return nil, err
	}
	if len(prev.Claims) == 0 || len(next.Claims) == 0 {
		return nil, fmt.Errorf("no snapshot rows at the requested timestamps")
	}

	outcomes, err := r.history.OutcomesBetween(before, after)
	if err != nil {
		return nil, err
	}

	g, err := r.LoadGraph(now)
	if err != nil {
		return nil, err
	}
	quality := integrity.NewScorer(r.cfg.Weights).TermQualities(g)

	attributor := calibrate.NewAttributor(r.cfg.Weights)
	deltas := calibrate.Deltas(prev, next)

	out := &CalibrationResult{
		Uplift:  attributor.Attribute(deltas, outcomes, quality, now),
		Weights: attributor.Fit(deltas, outcomes, quality, r.cfg.Scheduler.RidgeLambda, now),
	}

	if path, err := r.artifacts.Write("uplift", now, out.Uplift); err == nil {
		out.ArtifactPaths = append(out.ArtifactPaths, path)
	} else {
		r.log.Warn("writing uplift artifact failed", "error", err)
	}
	if path, err := r.artifacts.Write("calibration_weights", now, out.Weights); err == nil {
		out.ArtifactPaths = append(out.ArtifactPaths, path)
	} else {
		r.log.Warn("writing calibration artifact failed", "error", err)
	}

	return out, nil
}

// Audit runs the anchor liveness audit and writes its artifact
func (r *Runner) Audit(ctx context.Context, now time.Time) (*validate.Report, string, error) {
	g, err := r.LoadGraph(now)
	if err != nil {
		return nil, "", err
	}

	report := validate.NewAuditor(r.cfg.Audit).Audit(ctx, g.AnchorList(), now)
	path, err := r.artifacts.Write("liveness_audit", now, report)
	if err != nil {
		return nil, "", err
	}
	return report, path, nil
}

// Summarize renders the optional LLM narrative for the current truth map.
// Returns (nil, nil) when no provider is configured.
func (r *Runner) Summarize(ctx context.Context, now time.Time) (*llm.SummarizeResponse, error) {
	provider, err := llm.NewProvider(r.cfg.LLM)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}

	g, tm, err := r.Snapshot(now)
	if err != nil {
		return nil, err
	}
	return llm.Summarize(ctx, provider, tm, g)
}

// claimSeries assembles per-claim history. With the index enabled it spans
// every recorded run; without it, only the supplied current snapshot.
func (r *Runner) claimSeries(current *model.TruthMap) ([]model.ClaimSeries, error) {
	if r.history != nil {
		return r.history.ClaimSeries()
	}
	if current == nil {
		return nil, fmt.Errorf("temporal analysis requires the history index (history.enabled)")
	}
	return temporal.SeriesFromSnapshots([]*model.TruthMap{current}), nil
}

func (r *Runner) writeArtifact(out *RunResult, name string, now time.Time, v any) {
	path, err := r.artifacts.Write(name, now, v)
	if err != nil {
		r.log.Warn("writing artifact failed", "artifact", name, "error", err)
		return
	}
	out.ArtifactPaths = append(out.ArtifactPaths, path)
}

// runID stamps a run with its UTC compile instant
func runID(now time.Time) string {
	return now.UTC().Format("20060102T150405Z")
}

// expandPath resolves a leading ~/ against the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
