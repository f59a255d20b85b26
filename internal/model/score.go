package model

import "time"

// Quadrant is the two-axis classification of a claim. Coherence and
// manipulation are independent axes so "well-supported but still weaponized"
// stays representable; a single truth score cannot express that.
type Quadrant string

const (
	QuadrantLegitPattern       Quadrant = "LEGIT_PATTERN"       // CS>=θ, ML<θ
	QuadrantWeaponizedTruth    Quadrant = "WEAPONIZED_TRUTH"    // CS>=θ, ML>=θ
	QuadrantLikelyManipulation Quadrant = "LIKELY_MANIPULATION" // CS<θ, ML>=θ
	QuadrantBenignNoise        Quadrant = "BENIGN_NOISE"        // CS<θ, ML<θ
)

// ProofIntegrity is the global evidence-quality scalar with its component
// breakdown. All fields are reported so the blend stays auditable.
type ProofIntegrity struct {
	PIS               float64 `json:"pis"`
	DomainEntropyNorm float64 `json:"domain_entropy_norm"`
	DupRate           float64 `json:"dup_rate"`
	PrimaryRatio      float64 `json:"primary_ratio"`
	AnchorCount       int     `json:"anchor_count"`
	WindowRuns        int     `json:"window_runs"`
	Error             string  `json:"error,omitempty"`
}

// TermQuality is the per-term evidence-recycling signal consumed by the
// anti-Goodhart guard and the low-diversity penalty in ML scoring.
type TermQuality struct {
	Term        string  `json:"term"`
	AnchorCount int     `json:"anchor_count"`
	DomainCount int     `json:"domain_count"`
	EntropyNorm float64 `json:"entropy_norm"`
	Penalty     float64 `json:"penalty"` // 0 = diverse evidence, 1 = full recycling
}

// ClaimScore is the per-claim, per-run scoring snapshot. Derived and
// recomputable from the graph; a point-in-time report, never ground truth.
type ClaimScore struct {
	ClaimID string `json:"claim_id"`
	Term    string `json:"term"`
	Handle  string `json:"handle"`

	CSS float64 `json:"css"` // Coherence Support Score
	CPR float64 `json:"cpr"` // Contradiction Pressure Ratio

	SupportWeight     float64 `json:"support_weight"`
	ContradictWeight  float64 `json:"contradict_weight"`
	SupportDomains    int     `json:"support_domains"`
	ContradictDomains int     `json:"contradict_domains"`

	TPL   float64 `json:"tpl"`   // template-likelihood proxy
	Coord float64 `json:"coord"` // coordination proxy

	CS       float64  `json:"cs_score"`
	ML       float64  `json:"ml_score"`
	Quadrant Quadrant `json:"quadrant"`
}

// TruthMap is the truth-contamination map artifact: quadrant counts plus
// per-claim scores and the inputs that produced them.
type TruthMap struct {
	GeneratedAt time.Time `json:"generated_at"`
	RunID       string    `json:"run_id,omitempty"`

	Proof         ProofIntegrity   `json:"proof_integrity"`
	TermQuality   []TermQuality    `json:"term_quality"`
	Claims        []ClaimScore     `json:"claims"`
	Counts        map[Quadrant]int `json:"quadrant_counts"`
	Falsification float64          `json:"falsification_culture"`
	RegimeShift   bool             `json:"regime_shift_active"`

	// Disclaimer is part of the output contract: TPL/COORD are repetition
	// proxies, not proof of coordination, and no score asserts truth.
	Disclaimer string `json:"disclaimer"`

	Error string `json:"error,omitempty"`
}

// TruthMapDisclaimer is stamped on every truth map artifact.
const TruthMapDisclaimer = "Scores measure evidence support and reuse patterns, not truth. " +
	"TPL and COORD are text-fingerprint proxies and can misfire on legitimately syndicated content."
