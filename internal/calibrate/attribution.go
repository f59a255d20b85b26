// Package calibrate closes the loop: after selected tasks execute externally
// and a new truth map exists, observed per-claim deltas are attributed back
// to task kinds (edge-weighted credit) and a small ridge regression refits
// the scheduler's expected-gain coefficients.
package calibrate

import (
	"sort"
	"time"

	"github.com/plumbline/plumbline/internal/guard"
	"github.com/plumbline/plumbline/internal/model"
)

// Attributor distributes observed metric deltas across executed tasks
type Attributor struct {
	weights model.Weights
	guard   *guard.Guard
}

// NewAttributor creates an attributor; deltas pass through the anti-Goodhart
// guard before any credit is assigned.
func NewAttributor(weights model.Weights) *Attributor {
	return &Attributor{weights: weights, guard: guard.NewGuard(weights)}
}

// Deltas diffs two truth maps claim by claim. Claims present in only one
// snapshot contribute nothing: there is no before/after pair to credit.
func Deltas(before, after *model.TruthMap) []model.ClaimDelta {
	prev := make(map[string]model.ClaimScore, len(before.Claims))
	for _, c := range before.Claims {
		prev[c.ClaimID] = c
	}

	var out []model.ClaimDelta
	for _, c := range after.Claims {
		b, ok := prev[c.ClaimID]
		if !ok {
			continue
		}
		d := model.ClaimDelta{
			ClaimID: c.ClaimID,
			Term:    c.Term,
			DeltaCS: c.CS - b.CS,
			DeltaML: c.ML - b.ML,
		}
		// Improvement = coherence gained plus manipulation shed
		d.Delta = d.DeltaCS - d.DeltaML
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimID < out[j].ClaimID })
	return out
}

// Attribute distributes each claim's guarded delta across the tasks that
// touched it, weighted by each task's share of the claim's new evidence
// edges. Tasks that added more edges earn proportionally more credit; the
// split is never equal by default. When no task recorded any edges for a
// claim, the delta is unattributable and skipped.
func (a *Attributor) Attribute(deltas []model.ClaimDelta, outcomes []model.TaskOutcome, quality []model.TermQuality, now time.Time) *model.UpliftTable {
	table := &model.UpliftTable{GeneratedAt: now, Deltas: deltas}
	if len(deltas) == 0 {
		table.Error = "no claim deltas to attribute"
		return table
	}
	if len(outcomes) == 0 {
		table.Error = "no executed task outcomes recorded"
		return table
	}

	qualityByTerm := make(map[string]model.TermQuality, len(quality))
	for _, q := range quality {
		qualityByTerm[q.Term] = q
	}

	byClaim := make(map[string][]model.TaskOutcome)
	for _, o := range outcomes {
		byClaim[o.ClaimID] = append(byClaim[o.ClaimID], o)
	}

	credit := make(map[model.TaskKind]float64)
	observations := make(map[model.TaskKind]int)
	rawCredit := make(map[model.TaskKind]float64)

	for _, d := range deltas {
		touched := byClaim[d.ClaimID]
		if len(touched) == 0 {
			continue
		}

		totalEdges := 0
		for _, o := range touched {
			totalEdges += o.EdgesAdded
		}
		if totalEdges == 0 {
			continue
		}

		adjusted := a.guard.Discount(d.Delta, qualityByTerm[d.Term])

		for _, o := range touched {
			share := float64(o.EdgesAdded) / float64(totalEdges)
			credit[o.Kind] += adjusted * share
			rawCredit[o.Kind] += d.Delta * share
			observations[o.Kind]++
		}
	}

	for _, kind := range model.AllTaskKinds {
		if observations[kind] == 0 {
			continue
		}
		table.Rows = append(table.Rows, model.KindUplift{
			Kind:           kind,
			Observations:   observations[kind],
			Credit:         rawCredit[kind],
			AdjustedCredit: credit[kind],
		})
	}
	if len(table.Rows) == 0 {
		table.Error = "no attributable deltas: outcomes recorded no evidence edges"
	}

	return table
}

// Fit turns per-claim attribution into training rows and ridge-fits new
// expected-gain coefficients. Each row is one (claim, guarded delta) pair
// whose features are the edge-share of each task kind plus an intercept.
func (a *Attributor) Fit(deltas []model.ClaimDelta, outcomes []model.TaskOutcome, quality []model.TermQuality, lambda float64, now time.Time) *model.CalibrationWeights {
	cw := &model.CalibrationWeights{FittedAt: now, Lambda: lambda}

	qualityByTerm := make(map[string]model.TermQuality, len(quality))
	for _, q := range quality {
		qualityByTerm[q.Term] = q
	}

	byClaim := make(map[string][]model.TaskOutcome)
	for _, o := range outcomes {
		byClaim[o.ClaimID] = append(byClaim[o.ClaimID], o)
	}

	kindIndex := make(map[model.TaskKind]int, len(model.AllTaskKinds))
	for i, k := range model.AllTaskKinds {
		kindIndex[k] = i
	}
	p := len(model.AllTaskKinds) + 1 // + intercept

	var x [][]float64
	var y []float64
	for _, d := range deltas {
		touched := byClaim[d.ClaimID]
		totalEdges := 0
		for _, o := range touched {
			totalEdges += o.EdgesAdded
		}
		if totalEdges == 0 {
			continue
		}

		row := make([]float64, p)
		for _, o := range touched {
			row[kindIndex[o.Kind]] += float64(o.EdgesAdded) / float64(totalEdges)
		}
		row[p-1] = 1

		x = append(x, row)
		y = append(y, a.guard.Discount(d.Delta, qualityByTerm[d.Term]))
	}

	cw.Rows = len(x)
	if len(x) == 0 {
		cw.Error = "no training rows: no deltas with recorded evidence edges"
		return cw
	}

	w := RidgeFit(x, y, lambda)
	cw.Intercept = w[p-1]
	for i, kind := range model.AllTaskKinds {
		cw.Weights = append(cw.Weights, model.KindWeight{Kind: kind, Weight: w[i]})
	}
	return cw
}
