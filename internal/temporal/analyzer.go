// Package temporal measures how claim scores settle over time: days to a
// sustained threshold crossing, variance half-life, quadrant flip rate and a
// recommended forecast-horizon class.
package temporal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/plumbline/plumbline/internal/model"
	"github.com/plumbline/plumbline/internal/worker"
)

const hoursPerDay = 24.0

// Analyzer computes stabilization measures under a fixed policy
type Analyzer struct {
	weights   model.Weights
	varWindow int
	workers   int
}

// NewAnalyzer creates an analyzer. varWindow is the rolling-variance window
// for half-life; workers bounds the per-claim fan-out.
func NewAnalyzer(weights model.Weights, varWindow, workers int) *Analyzer {
	if varWindow < 2 {
		varWindow = 2
	}
	return &Analyzer{weights: weights, varWindow: varWindow, workers: workers}
}

// Report analyzes every series and assembles the time-to-truth artifact.
// Per-claim analyses are independent; they fan out across the worker pool
// and merge back in claim-ID order so output never depends on scheduling.
func (a *Analyzer) Report(series []model.ClaimSeries, now time.Time) *model.TimeToTruthReport {
	report := &model.TimeToTruthReport{
		GeneratedAt: now,
		Theta:       a.weights.Theta,
		Sustain:     a.weights.Sustain,
		Window:      a.varWindow,
	}
	if len(series) == 0 {
		report.Error = "no claim series available"
		return report
	}

	pool := worker.NewPool(a.workers)
	pool.Start()
	for _, s := range series {
		pool.Submit(&analyzeJob{analyzer: a, series: s})
	}
	results := pool.Wait()

	for _, r := range results {
		job := r.(*analyzeResult)
		report.Claims = append(report.Claims, job.stab)
	}
	sort.Slice(report.Claims, func(i, j int) bool {
		return report.Claims[i].ClaimID < report.Claims[j].ClaimID
	})

	return report
}

type analyzeJob struct {
	analyzer *Analyzer
	series   model.ClaimSeries
}

type analyzeResult struct {
	stab model.Stabilization
}

func (r *analyzeResult) GetError() error { return nil }

func (j *analyzeJob) Execute(_ context.Context) worker.Result {
	return &analyzeResult{stab: j.analyzer.Analyze(j.series)}
}

// Analyze computes all stabilization measures for one claim series
func (a *Analyzer) Analyze(s model.ClaimSeries) model.Stabilization {
	stab := model.Stabilization{
		ClaimID:             s.ClaimID,
		Points:              len(s.Points),
		Theta:               a.weights.Theta,
		Sustain:             a.weights.Sustain,
		TimeToThresholdDays: model.SentinelNotReached,
		HalfLifeDays:        model.SentinelNotReached,
	}

	if len(s.Points) < 2 {
		stab.Error = "insufficient series: need at least 2 points"
		stab.Horizon = string(model.HorizonUnknown)
		if len(s.Points) == 1 {
			stab.LatestML = s.Points[0].ML
		}
		return stab
	}

	points := sortedPoints(s.Points)
	stab.LatestML = points[len(points)-1].ML

	stab.TimeToThresholdDays = TimeToThreshold(points, a.weights.Theta, a.weights.Sustain)
	stab.HalfLifeDays, stab.PeakVariance = HalfLife(points, a.varWindow)
	stab.FlipRate = FlipRate(points)
	stab.Horizon = a.horizon(stab)

	return stab
}

// TimeToThreshold returns days from series start to the first point where
// CS >= theta holds for sustain consecutive points, or the sentinel.
func TimeToThreshold(points []model.SeriesPoint, theta float64, sustain int) float64 {
	if sustain < 1 {
		sustain = 1
	}
	run := 0
	for i, p := range points {
		if p.CS >= theta {
			run++
			if run >= sustain {
				start := i - sustain + 1
				return daysBetween(points[0].TS, points[start].TS)
			}
		} else {
			run = 0
		}
	}
	return model.SentinelNotReached
}

// HalfLife slides a variance window over CS scores, records the first
// window's variance as the peak, and returns elapsed days until rolling
// variance falls to half that peak. Requires at least 2*window points.
// A zero-variance first window means the series was already settled: 0 days.
func HalfLife(points []model.SeriesPoint, window int) (days, peak float64) {
	if len(points) < 2*window {
		return model.SentinelNotReached, 0
	}

	peak = variance(points[:window])
	if peak == 0 {
		return 0, 0
	}

	for j := 1; j+window <= len(points); j++ {
		v := variance(points[j : j+window])
		if v <= peak/2 {
			return daysBetween(points[0].TS, points[j+window-1].TS), peak
		}
	}
	return model.SentinelNotReached, peak
}

// FlipRate is the fraction of consecutive point pairs with differing quadrants
func FlipRate(points []model.SeriesPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	flips := 0
	for i := 1; i < len(points); i++ {
		if points[i].Quadrant != points[i-1].Quadrant {
			flips++
		}
	}
	return float64(flips) / float64(len(points)-1)
}

// horizon combines stabilization speed with the latest manipulation
// likelihood. The _HIGH_POLLUTION suffix is a governance label for slow or
// undetermined stabilization under heavy pollution, not a forecasting ban.
func (a *Analyzer) horizon(stab model.Stabilization) string {
	speed := stab.HalfLifeDays
	if speed == model.SentinelNotReached {
		speed = stab.TimeToThresholdDays
	}

	var h model.Horizon
	switch {
	case speed == model.SentinelNotReached:
		h = model.HorizonUnknown
	case speed <= 7:
		h = model.HorizonDays
	case speed <= 30:
		h = model.HorizonWeeks
	case speed <= 180:
		h = model.HorizonMonths
	default:
		h = model.HorizonYears
	}

	label := string(h)
	slow := speed == model.SentinelNotReached || speed > a.weights.SlowStabilizationDays
	if slow && stab.LatestML >= a.weights.HighPollutionML && !strings.HasSuffix(label, model.HighPollutionSuffix) {
		label += model.HighPollutionSuffix
	}
	return label
}

// sortedPoints enforces the non-decreasing timestamp invariant without
// mutating the caller's slice
func sortedPoints(points []model.SeriesPoint) []model.SeriesPoint {
	out := make([]model.SeriesPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out
}

func variance(points []model.SeriesPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	mean := 0.0
	for _, p := range points {
		mean += p.CS
	}
	mean /= float64(len(points))

	v := 0.0
	for _, p := range points {
		d := p.CS - mean
		v += d * d
	}
	return v / float64(len(points))
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / hoursPerDay
}

// SeriesFromSnapshots joins successive truth-map snapshots into per-claim
// series, ordered by timestamp. Claims with fewer than two points are still
// returned; Analyze reports the explicit insufficient-series error for them.
func SeriesFromSnapshots(maps []*model.TruthMap) []model.ClaimSeries {
	byClaim := make(map[string][]model.SeriesPoint)
	for _, tm := range maps {
		for _, c := range tm.Claims {
			byClaim[c.ClaimID] = append(byClaim[c.ClaimID], model.SeriesPoint{
				TS:       tm.GeneratedAt,
				CS:       c.CS,
				ML:       c.ML,
				Quadrant: c.Quadrant,
			})
		}
	}

	ids := make([]string, 0, len(byClaim))
	for id := range byClaim {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.ClaimSeries, 0, len(ids))
	for _, id := range ids {
		points := byClaim[id]
		sort.SliceStable(points, func(i, j int) bool { return points[i].TS.Before(points[j].TS) })
		out = append(out, model.ClaimSeries{ClaimID: id, Points: points})
	}
	return out
}

// String renders a compact one-line summary for verbose output
func (a *Analyzer) String() string {
	return fmt.Sprintf("temporal{theta=%.2f sustain=%d window=%d}", a.weights.Theta, a.weights.Sustain, a.varWindow)
}
