// Package roi turns scoring deficits into acquisition task candidates and
// greedily selects a batch under budget and time caps. Greedy rather than
// optimal knapsack is deliberate: selection order must be explainable and
// deterministic, with ties broken by input order.
package roi

import (
	"math"
	"sort"
	"time"

	"github.com/plumbline/plumbline/internal/model"
)

// roiEpsilon keeps the ROI ratio finite for near-free tasks
const roiEpsilon = 1e-6

// Scheduler scores and selects acquisition tasks
type Scheduler struct {
	weights model.Weights
	cfg     model.SchedulerConfig

	// calibration, when present, overrides hand-tuned base gains per kind
	calibration *model.CalibrationWeights
}

// NewScheduler creates a scheduler. calibration may be nil (v1 hand-tuned
// gains) or a previously fitted weight set.
func NewScheduler(weights model.Weights, cfg model.SchedulerConfig, calibration *model.CalibrationWeights) *Scheduler {
	return &Scheduler{weights: weights, cfg: cfg, calibration: calibration}
}

// GenerateCandidates derives task candidates from per-claim and per-term
// deficits in the truth map. Claims are visited in the truth map's sorted
// order and terms in sorted order, so candidate input order is deterministic.
func (s *Scheduler) GenerateCandidates(tm *model.TruthMap) []model.TaskCandidate {
	var out []model.TaskCandidate

	termML := termPollution(tm)
	quality := make(map[string]model.TermQuality, len(tm.TermQuality))
	for _, q := range tm.TermQuality {
		quality[q.Term] = q
	}

	// Per-claim deficits
	for _, c := range tm.Claims {
		driver := dominantDriver(c, tm.Proof, quality[c.Term])

		if c.ML >= s.weights.MLThreshold {
			// Polluted claims: trace where the narrative comes from and who
			// else is carrying it.
			out = append(out,
				s.candidate(c.ClaimID, c.Term, model.TaskProvenanceTrace, driver, termML[c.Term], c.ML),
				s.candidate(c.ClaimID, c.Term, model.TaskCoordinationScan, driver, termML[c.Term], c.ML),
			)
		}
		if c.CS >= 0.35 && c.CS < s.weights.CSThreshold && c.ContradictWeight == 0 {
			// Mid-coherence claims nobody has tried to falsify
			out = append(out,
				s.candidate(c.ClaimID, c.Term, model.TaskContradictionProbe, model.DriverContradictionGap, termML[c.Term], c.ML))
		}
	}

	// Per-term deficits
	for _, q := range tm.TermQuality {
		if q.Penalty >= 0.5 {
			out = append(out,
				s.candidate("", q.Term, model.TaskDomainDiversify, model.DriverLowDiversity, termML[q.Term], termML[q.Term]))
		}
	}
	if tm.Proof.PrimaryRatio < s.weights.PrimaryTarget {
		for _, q := range tm.TermQuality {
			out = append(out,
				s.candidate("", q.Term, model.TaskPrimarySourceHunt, model.DriverLowIntegrity, termML[q.Term], termML[q.Term]))
		}
	}
	if tm.Proof.DupRate >= 0.5 {
		for _, q := range tm.TermQuality {
			out = append(out,
				s.candidate("", q.Term, model.TaskLivenessRecheck, model.DriverLowIntegrity, termML[q.Term], termML[q.Term]))
		}
	}

	return out
}

// Plan greedily selects candidates by descending ROI subject to
// per-(claim, term, kind) de-duplication, running budget and time caps, and
// the hard task-count cap.
func (s *Scheduler) Plan(candidates []model.TaskCandidate, now time.Time) *model.ROIPlan {
	plan := &model.ROIPlan{
		GeneratedAt:     now,
		BudgetUSD:       s.cfg.BudgetUSD,
		BudgetMinutes:   s.cfg.BudgetMinutes,
		DecodoAvailable: s.cfg.DecodoAvailable,
		MaxTasks:        s.cfg.MaxTasks,
	}
	if len(candidates) == 0 {
		plan.Error = "no task candidates"
		return plan
	}

	ranked := make([]model.TaskCandidate, len(candidates))
	copy(ranked, candidates)
	// Stable sort: equal-ROI candidates keep input order
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ROI > ranked[j].ROI
	})
	plan.Ranked = ranked

	seen := make(map[string]bool)
	for _, c := range ranked {
		if len(plan.Selected) >= s.cfg.MaxTasks {
			break
		}
		if seen[c.Key()] {
			continue
		}
		if plan.TotalUSD+c.Cost.USD > s.cfg.BudgetUSD {
			continue
		}
		if plan.TotalMinutes+c.Cost.ManualMinutes > s.cfg.BudgetMinutes {
			continue
		}
		seen[c.Key()] = true
		plan.Selected = append(plan.Selected, c)
		plan.TotalUSD += c.Cost.USD
		plan.TotalMinutes += c.Cost.ManualMinutes
	}

	return plan
}

// candidate builds one fully-scored candidate
func (s *Scheduler) candidate(claimID, term string, kind model.TaskKind, driver model.Driver, pollution, severity float64) model.TaskCandidate {
	policy := s.weights.TaskPolicies[kind]

	c := model.TaskCandidate{
		ClaimID: claimID,
		Term:    term,
		Kind:    kind,
		Driver:  driver,
		Online:  policy.Online,
		Cost:    s.cost(policy),
	}
	c.ExpectedGain = s.expectedGain(kind, policy, driver, pollution, severity)
	c.ROI = c.ExpectedGain / (c.Cost.USD + s.cfg.LambdaPerMinute*c.Cost.ManualMinutes + roiEpsilon)
	return c
}

// cost picks the cheap online lane when the paid acquisition channel is
// available, and the slower manual lane otherwise. Offline kinds always pay
// the manual lane.
func (s *Scheduler) cost(policy model.KindPolicy) model.TaskCost {
	if policy.Online && s.cfg.DecodoAvailable {
		return model.TaskCost{USD: policy.OnlineUSD, ManualMinutes: policy.OnlineMinutes}
	}
	return model.TaskCost{USD: policy.ManualUSD, ManualMinutes: policy.ManualMinutes}
}

// expectedGain scales the kind's base weight by the term's pollution
// intensity and the manipulation-bucket severity, plus an alignment bonus
// when the task type matches the dominant pollution driver. Fitted
// calibration weights, when available, replace the hand-tuned base.
func (s *Scheduler) expectedGain(kind model.TaskKind, policy model.KindPolicy, driver model.Driver, pollution, severity float64) float64 {
	base := policy.BaseGain
	if w, ok := s.calibration.WeightFor(kind); ok {
		base = w
	}

	mult := 1.0
	switch {
	case severity >= s.weights.SeverityHighML:
		mult = s.weights.SeverityHighMult
	case severity >= s.weights.MLThreshold:
		mult = s.weights.SeverityMidMult
	}

	gain := base * (1 + pollution) * mult
	if aligned(kind, driver) {
		gain += s.weights.AlignmentBonus
	}
	return math.Max(gain, 0)
}

// aligned reports whether a task kind directly attacks the named driver
func aligned(kind model.TaskKind, driver model.Driver) bool {
	switch driver {
	case model.DriverTemplateReuse:
		return kind == model.TaskProvenanceTrace
	case model.DriverCoordination:
		return kind == model.TaskCoordinationScan
	case model.DriverLowIntegrity:
		return kind == model.TaskPrimarySourceHunt || kind == model.TaskLivenessRecheck
	case model.DriverLowDiversity:
		return kind == model.TaskDomainDiversify
	case model.DriverContradictionGap:
		return kind == model.TaskContradictionProbe
	}
	return false
}

// dominantDriver names the largest contributor to a claim's ML score
func dominantDriver(c model.ClaimScore, proof model.ProofIntegrity, q model.TermQuality) model.Driver {
	type contrib struct {
		driver model.Driver
		value  float64
	}
	contribs := []contrib{
		{model.DriverTemplateReuse, c.TPL},
		{model.DriverCoordination, c.Coord},
		{model.DriverLowIntegrity, 1 - proof.PIS},
		{model.DriverLowDiversity, q.Penalty},
	}
	best := contribs[0]
	for _, cand := range contribs[1:] {
		if cand.value > best.value {
			best = cand
		}
	}
	return best.driver
}

// termPollution averages ML per term as the pollution intensity input
func termPollution(tm *model.TruthMap) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, c := range tm.Claims {
		sums[c.Term] += c.ML
		counts[c.Term]++
	}
	out := make(map[string]float64, len(sums))
	for term, sum := range sums {
		out[term] = sum / float64(counts[term])
	}
	return out
}
