package model

import "time"

// TaskKind names an acquisition action the scheduler can propose
type TaskKind string

const (
	TaskProvenanceTrace    TaskKind = "provenance_trace"    // trace a claim's originating source chain
	TaskCoordinationScan   TaskKind = "coordination_scan"   // map who else carries the same template
	TaskPrimarySourceHunt  TaskKind = "primary_source_hunt" // find primary documents for a term
	TaskDomainDiversify    TaskKind = "domain_diversify"    // acquire anchors from unseen domains
	TaskContradictionProbe TaskKind = "contradiction_probe" // actively look for disconfirming evidence
	TaskLivenessRecheck    TaskKind = "liveness_recheck"    // re-verify existing anchors still resolve
)

// AllTaskKinds is the fixed ordering used for deterministic iteration and
// as the ridge feature layout.
var AllTaskKinds = []TaskKind{
	TaskProvenanceTrace,
	TaskCoordinationScan,
	TaskPrimarySourceHunt,
	TaskDomainDiversify,
	TaskContradictionProbe,
	TaskLivenessRecheck,
}

// Driver names the dominant pollution driver behind a task candidate
type Driver string

const (
	DriverTemplateReuse    Driver = "template_reuse"
	DriverCoordination     Driver = "coordination"
	DriverLowIntegrity     Driver = "low_integrity"
	DriverLowDiversity     Driver = "low_diversity"
	DriverContradictionGap Driver = "contradiction_gap"
)

// TaskCost is the estimated spend for one task
type TaskCost struct {
	USD           float64 `json:"usd"`
	ManualMinutes float64 `json:"manual_minutes"`
}

// TaskCandidate is a scored acquisition task. Lifecycle: generated from
// deficits, scored, greedily selected into a batch, executed externally,
// then its outcome is recorded for attribution.
type TaskCandidate struct {
	ClaimID string   `json:"claim_id,omitempty"`
	Term    string   `json:"term"`
	Kind    TaskKind `json:"task_kind"`
	Driver  Driver   `json:"dominant_driver"`

	Online       bool     `json:"online"`
	Cost         TaskCost `json:"cost"`
	ExpectedGain float64  `json:"expected_gain"`
	ROI          float64  `json:"roi"`
}

// Key is the de-duplication key for batch selection
func (t TaskCandidate) Key() string {
	return t.ClaimID + "|" + t.Term + "|" + string(t.Kind)
}

// ROIPlan is the acquisition plan artifact: the selected batch plus the full
// ranked candidate list for explainability.
type ROIPlan struct {
	GeneratedAt time.Time `json:"generated_at"`

	BudgetUSD       float64 `json:"budget_usd"`
	BudgetMinutes   float64 `json:"budget_minutes"`
	DecodoAvailable bool    `json:"decodo_available"`
	MaxTasks        int     `json:"max_tasks"`

	Selected []TaskCandidate `json:"selected"`
	Ranked   []TaskCandidate `json:"ranked"`

	TotalUSD     float64 `json:"total_usd"`
	TotalMinutes float64 `json:"total_minutes"`

	Error string `json:"error,omitempty"`
}
