package model

import "time"

// Horizon classifies how soon a claim's score can be expected to settle
type Horizon string

const (
	HorizonDays    Horizon = "DAYS"
	HorizonWeeks   Horizon = "WEEKS"
	HorizonMonths  Horizon = "MONTHS"
	HorizonYears   Horizon = "YEARS"
	HorizonUnknown Horizon = "UNKNOWN"
)

// HighPollutionSuffix marks horizons where stabilization is slow or
// undetermined while manipulation likelihood is high. A governance label,
// not a hard limit on forecasting.
const HighPollutionSuffix = "_HIGH_POLLUTION"

// SeriesPoint is one observation in a claim's score time series
type SeriesPoint struct {
	TS       time.Time `json:"ts"`
	CS       float64   `json:"cs_score"`
	ML       float64   `json:"ml_score"`
	Quadrant Quadrant  `json:"quadrant"`
}

// ClaimSeries is a chronologically ordered sequence of score points for one
// claim, assembled by joining successive truth-map snapshots.
// Invariant: points are non-decreasing in timestamp.
type ClaimSeries struct {
	ClaimID string        `json:"claim_id"`
	Points  []SeriesPoint `json:"points"`
}

// SentinelNotReached is the explicit "not yet achieved" value for temporal
// measures. Never a null, never an exception.
const SentinelNotReached = -1.0

// Stabilization is the per-claim temporal analysis result
type Stabilization struct {
	ClaimID string `json:"claim_id"`
	Points  int    `json:"points"`

	TimeToThresholdDays float64 `json:"time_to_threshold_days"` // -1 when not reached
	Theta               float64 `json:"theta"`
	Sustain             int     `json:"sustain"`

	HalfLifeDays float64 `json:"half_life_days"` // -1 when not reached
	PeakVariance float64 `json:"peak_variance"`

	FlipRate float64 `json:"flip_rate"`

	LatestML float64 `json:"latest_ml"`
	Horizon  string  `json:"horizon"`

	Error string `json:"error,omitempty"`
}

// TimeToTruthReport is the per-run temporal artifact
type TimeToTruthReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Theta       float64         `json:"theta"`
	Sustain     int             `json:"sustain"`
	Window      int             `json:"variance_window"`
	Claims      []Stabilization `json:"claims"`
	Error       string          `json:"error,omitempty"`
}
