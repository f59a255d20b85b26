package model

import "time"

// SIGSnapshot is an append-only point-in-time rollup of system health.
// Historical input to regime detection and confidence bands; never mutated.
type SIGSnapshot struct {
	TS    time.Time `json:"ts"`
	RunID string    `json:"run_id,omitempty"`

	Composite             float64 `json:"composite"`
	CalibrationError      float64 `json:"calibration_error"`
	Brier                 float64 `json:"brier"`
	StabilizationHalfLife float64 `json:"stabilization_half_life"`
	ProofDensity          float64 `json:"proof_density"`
	ForecastSkillDelta    float64 `json:"forecast_skill_delta"`
	Stability             float64 `json:"stability"`
}

// SIG metric names tracked by the regime detector, in report order.
const (
	MetricComposite        = "composite"
	MetricCalibrationError = "calibration_error"
	MetricBrier            = "brier"
	MetricHalfLife         = "stabilization_half_life"
)

// TrackedMetrics is the fixed, ordered set of metrics the detector watches.
var TrackedMetrics = []string{
	MetricComposite,
	MetricCalibrationError,
	MetricBrier,
	MetricHalfLife,
}

// MetricFlag records one metric whose latest value left its rolling band
type MetricFlag struct {
	Metric string  `json:"metric"`
	Latest float64 `json:"latest"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	ZScore float64 `json:"z_score"`
}

// RegimeReport is the regime-shift artifact
type RegimeReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Window      int          `json:"window"`
	Snapshots   int          `json:"snapshots"`
	Flags       []MetricFlag `json:"flags"`

	MeanShiftSigma float64 `json:"mean_shift_sigma"`
	MeanShift      bool    `json:"mean_shift"`

	// Shift is true only when at least one z-flag exists AND the composite
	// mean shifted or the half-life metric itself flagged. A single noisy
	// spike is not a regime shift.
	Shift bool `json:"regime_shift"`

	Error string `json:"error,omitempty"`
}

// ConfidenceBand is a mean +/- k*std band for one tracked metric
type ConfidenceBand struct {
	Metric string  `json:"metric"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// ConfidenceReport is the confidence-bands artifact
type ConfidenceReport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Window      int              `json:"window"`
	K           float64          `json:"k"`
	Bands       []ConfidenceBand `json:"bands"`
	Error       string           `json:"error,omitempty"`
}
