package model

import "time"

// TaskOutcome records that a selected task was executed externally and how
// many evidence edges it added for a claim. One row per (task, claim).
type TaskOutcome struct {
	Kind       TaskKind  `json:"task_kind"`
	ClaimID    string    `json:"claim_id"`
	Term       string    `json:"term"`
	RunID      string    `json:"run_id,omitempty"`
	EdgesAdded int       `json:"edges_added"`
	ExecutedAt time.Time `json:"executed_at"`
}

// ClaimDelta is the observed metric movement for one claim between two
// truth-map snapshots: coherence gained plus manipulation shed.
type ClaimDelta struct {
	ClaimID string  `json:"claim_id"`
	Term    string  `json:"term"`
	DeltaCS float64 `json:"delta_cs"`
	DeltaML float64 `json:"delta_ml"`
	Delta   float64 `json:"delta"` // delta_cs - delta_ml
}

// KindUplift aggregates edge-weighted credit per task kind
type KindUplift struct {
	Kind           TaskKind `json:"task_kind"`
	Observations   int      `json:"observations"`
	Credit         float64  `json:"credit"`          // raw edge-weighted delta credit
	AdjustedCredit float64  `json:"adjusted_credit"` // after anti-Goodhart discount
}

// UpliftTable is the attribution artifact
type UpliftTable struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Deltas      []ClaimDelta `json:"claim_deltas"`
	Rows        []KindUplift `json:"rows"`
	Error       string       `json:"error,omitempty"`
}

// KindWeight is one fitted expected-gain coefficient
type KindWeight struct {
	Kind   TaskKind `json:"task_kind"`
	Weight float64  `json:"weight"`
}

// CalibrationWeights replaces the scheduler's hand-tuned expected-gain
// coefficients after a ridge fit. Kinds the fit could not solve keep a zero
// weight and the scheduler falls back to its policy default for them.
type CalibrationWeights struct {
	FittedAt  time.Time    `json:"fitted_at"`
	Lambda    float64      `json:"lambda"`
	Intercept float64      `json:"intercept"`
	Weights   []KindWeight `json:"weights"`
	Rows      int          `json:"rows"`
	Error     string       `json:"error,omitempty"`
}

// WeightFor returns the fitted weight for a kind and whether it is usable
// (non-zero). Zero means the fit left the coefficient unsolved.
func (c *CalibrationWeights) WeightFor(kind TaskKind) (float64, bool) {
	if c == nil {
		return 0, false
	}
	for _, w := range c.Weights {
		if w.Kind == kind {
			return w.Weight, w.Weight != 0
		}
	}
	return 0, false
}
