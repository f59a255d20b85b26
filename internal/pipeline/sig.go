package pipeline

import (
	"math"
	"time"

	"github.com/plumbline/plumbline/internal/model"
)

// Composite blend over the run's health inputs. Proxies, not ground truth:
// the rollup exists so regime detection has a stable scalar to watch.
const (
	compositeFromPIS = 0.40
	compositeFromCS  = 0.40
	compositeFromML  = 0.20
)

// ComputeSIG rolls one run up into an append-only health snapshot.
func ComputeSIG(tm *model.TruthMap, g *model.Graph, ttt *model.TimeToTruthReport, history []model.SIGSnapshot, weights model.Weights, now time.Time) model.SIGSnapshot {
	sig := model.SIGSnapshot{TS: now, RunID: tm.RunID}

	avgCS, avgML := 0.0, 0.0
	above := 0
	if n := len(tm.Claims); n > 0 {
		for _, c := range tm.Claims {
			avgCS += c.CS
			avgML += c.ML
			if c.CS >= weights.CSThreshold {
				above++
			}
		}
		avgCS /= float64(n)
		avgML /= float64(n)
	}

	sig.Composite = compositeFromPIS*tm.Proof.PIS +
		compositeFromCS*avgCS +
		compositeFromML*(1-avgML)

	if len(g.Claims) > 0 {
		sig.ProofDensity = float64(len(g.Anchors)) / float64(len(g.Claims))
	}

	// Calibration-error proxy: gap between the mean score and the share of
	// claims actually over the threshold. Brier proxy: squared distance of
	// each score from its own threshold verdict.
	if n := len(tm.Claims); n > 0 {
		sig.CalibrationError = math.Abs(avgCS - float64(above)/float64(n))
		brier := 0.0
		for _, c := range tm.Claims {
			verdict := 0.0
			if c.CS >= weights.CSThreshold {
				verdict = 1.0
			}
			d := c.CS - verdict
			brier += d * d
		}
		sig.Brier = brier / float64(n)
	}

	sig.StabilizationHalfLife = meanDeterminedHalfLife(ttt)
	sig.Stability = stability(ttt)

	if len(history) > 0 {
		sig.ForecastSkillDelta = sig.Composite - history[len(history)-1].Composite
	}

	return sig
}

// meanDeterminedHalfLife averages the half-lives that resolved; sentinel
// entries carry no information about speed and are excluded.
func meanDeterminedHalfLife(ttt *model.TimeToTruthReport) float64 {
	sum, n := 0.0, 0
	for _, c := range ttt.Claims {
		if c.HalfLifeDays != model.SentinelNotReached {
			sum += c.HalfLifeDays
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// stability is 1 minus the mean quadrant flip rate across claims
func stability(ttt *model.TimeToTruthReport) float64 {
	if len(ttt.Claims) == 0 {
		return 1
	}
	sum := 0.0
	for _, c := range ttt.Claims {
		sum += c.FlipRate
	}
	return 1 - sum/float64(len(ttt.Claims))
}
