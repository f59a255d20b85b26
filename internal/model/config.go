package model

import (
	"fmt"
	"time"
)

// Config is the full runtime configuration. Every policy constant used by a
// scoring blend lives in Weights so tuning (or replacement by the learned
// model) never touches call sites.
type Config struct {
	Ledger    LedgerConfig    `yaml:"ledger"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	History   HistoryConfig   `yaml:"history"`
	Cache     CacheConfig     `yaml:"cache"`

	Windows   WindowConfig    `yaml:"windows"`
	Weights   Weights         `yaml:"weights"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Audit       AuditConfig       `yaml:"audit"`
	LLM         LLMConfig         `yaml:"llm"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// LedgerConfig locates the append-only event ledger
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// ArtifactsConfig controls report artifact output
type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

// HistoryConfig controls the sqlite history index
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// CacheConfig controls the compiled-graph snapshot cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// WindowConfig gathers every rolling-window size
type WindowConfig struct {
	// PISRuns restricts proof-integrity scoring to the most recent N runs
	PISRuns int `yaml:"pis_runs"`
	// Regime is the SIG snapshot window for regime detection
	Regime int `yaml:"regime"`
	// Variance is the rolling-variance window for stabilization half-life
	Variance int `yaml:"variance"`
}

// SchedulerConfig holds ROI planning budgets and caps
type SchedulerConfig struct {
	BudgetUSD       float64 `yaml:"budget_usd"`
	BudgetMinutes   float64 `yaml:"budget_minutes"`
	MaxTasks        int     `yaml:"max_tasks"`
	LambdaPerMinute float64 `yaml:"lambda_per_minute"` // USD-equivalent of one manual minute
	DecodoAvailable bool    `yaml:"decodo_available"`
	RidgeLambda     float64 `yaml:"ridge_lambda"`
}

// AuditConfig controls the anchor liveness audit
type AuditConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	Workers       int           `yaml:"workers"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	UserAgent     string        `yaml:"user_agent"`
	RespectRobots bool          `yaml:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy"`
}

// LLMConfig controls the optional narrative summary. The summary never
// affects scoring; it is rendered after artifacts are written.
type LLMConfig struct {
	Provider       string `yaml:"provider"` // "openai", "ollama", "" = disabled
	Model          string `yaml:"model"`
	APIKey         string `yaml:"-"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxTokens      int    `yaml:"max_tokens"`
	StrictEvidence bool   `yaml:"strict_evidence"`
}

// ConcurrencyConfig bounds per-claim fan-out
type ConcurrencyConfig struct {
	ClaimWorkers int `yaml:"claim_workers"`
}

// OutputConfig controls CLI chatter
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose"`
	LogFormat string `yaml:"log_format"` // "text" or "json"
}

// KindPolicy is the hand-tuned cost/gain table entry for one task kind.
// Online kinds get the cheap lane when a paid acquisition channel (decodo)
// is available and the expensive manual lane otherwise.
type KindPolicy struct {
	BaseGain float64 `yaml:"base_gain"`
	Online   bool    `yaml:"online"`

	OnlineUSD     float64 `yaml:"online_usd"`
	OnlineMinutes float64 `yaml:"online_minutes"`
	ManualUSD     float64 `yaml:"manual_usd"`
	ManualMinutes float64 `yaml:"manual_minutes"`
}

// Weights isolates every magic constant in the scoring blends. These are
// policy constants, not learned parameters, except where the ridge fit
// overrides scheduler gains.
type Weights struct {
	// Proof integrity blend: PIS = wE*entropy + wD*(1-2*dup) + wP*sat(primary)
	PISEntropy    float64 `yaml:"pis_entropy"`
	PISDup        float64 `yaml:"pis_dup"`
	PISPrimary    float64 `yaml:"pis_primary"`
	PrimaryTarget float64 `yaml:"primary_target"` // primary ratio saturation point

	// Coherence Strength blend
	CSFromCSS              float64 `yaml:"cs_from_css"`
	CSFromDiversity        float64 `yaml:"cs_from_diversity"`
	CSFromFalsification    float64 `yaml:"cs_from_falsification"`
	CSContradictionPenalty float64 `yaml:"cs_contradiction_penalty"`
	ContradictionDiscount  float64 `yaml:"contradiction_discount"` // weight on contradictions inside CSS
	DiversityBonusFloor    float64 `yaml:"diversity_bonus_floor"`
	DiversityBonusSpan     float64 `yaml:"diversity_bonus_span"`
	DiversityDomainTarget  float64 `yaml:"diversity_domain_target"`

	// Manipulation Likelihood blend
	MLFromTemplate     float64 `yaml:"ml_from_template"`
	MLFromCoordination float64 `yaml:"ml_from_coordination"`
	MLFromIntegrity    float64 `yaml:"ml_from_integrity"`
	MLFromLowDiversity float64 `yaml:"ml_from_low_diversity"`
	RegimeShiftBoost   float64 `yaml:"regime_shift_boost"`

	// Quadrant thresholds, both axes
	CSThreshold float64 `yaml:"cs_threshold"`
	MLThreshold float64 `yaml:"ml_threshold"`

	// Template / coordination saturation
	TemplateSaturation     int `yaml:"template_saturation"`     // occurrences for TPL=1
	CoordinationSaturation int `yaml:"coordination_saturation"` // domains for COORD=1
	MinFingerprintLen      int `yaml:"min_fingerprint_len"`

	// Temporal analysis
	Theta                 float64 `yaml:"theta"`
	Sustain               int     `yaml:"sustain"`
	SlowStabilizationDays float64 `yaml:"slow_stabilization_days"`
	HighPollutionML       float64 `yaml:"high_pollution_ml"`

	// Regime detection
	ZThreshold     float64 `yaml:"z_threshold"`
	MeanShiftSigma float64 `yaml:"mean_shift_sigma"`
	BandK          float64 `yaml:"band_k"`

	// Anti-Goodhart guard
	GuardNegativeDiscount float64 `yaml:"guard_negative_discount"`
	GuardGainBound        float64 `yaml:"guard_gain_bound"`
	GuardEntropyWeight    float64 `yaml:"guard_entropy_weight"`
	GuardDiversityWeight  float64 `yaml:"guard_diversity_weight"`
	GuardDomainTarget     float64 `yaml:"guard_domain_target"`

	// ROI expected-gain shaping
	AlignmentBonus   float64 `yaml:"alignment_bonus"`
	SeverityHighML   float64 `yaml:"severity_high_ml"` // ML >= this: highest bucket
	SeverityHighMult float64 `yaml:"severity_high_mult"`
	SeverityMidMult  float64 `yaml:"severity_mid_mult"`

	TaskPolicies map[TaskKind]KindPolicy `yaml:"task_policies"`
}

// DefaultConfig returns the full default configuration
func DefaultConfig() *Config {
	return &Config{
		Ledger:    LedgerConfig{Path: "ledger.jsonl"},
		Artifacts: ArtifactsConfig{Dir: "artifacts"},
		History:   HistoryConfig{Enabled: true, Path: "~/.plumbline/history.db"},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "~/.plumbline/cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Windows: WindowConfig{
			PISRuns:  5,
			Regime:   14,
			Variance: 4,
		},
		Weights: DefaultWeights(),
		Scheduler: SchedulerConfig{
			BudgetUSD:       200,
			BudgetMinutes:   480,
			MaxTasks:        12,
			LambdaPerMinute: 0.5,
			DecodoAvailable: false,
			RidgeLambda:     0.5,
		},
		Audit: AuditConfig{
			Timeout:       10 * time.Second,
			Workers:       8,
			RatePerSecond: 2,
			UserAgent:     "Plumbline/0.1 (+https://github.com/plumbline/plumbline)",
			RespectRobots: true,
		},
		LLM: LLMConfig{
			TimeoutSeconds: 30,
			MaxTokens:      1000,
			StrictEvidence: true,
		},
		Concurrency: ConcurrencyConfig{ClaimWorkers: 8},
		Output:      OutputConfig{LogFormat: "text"},
	}
}

// DefaultWeights returns the v1 policy constants
func DefaultWeights() Weights {
	return Weights{
		PISEntropy:    0.45,
		PISDup:        0.35,
		PISPrimary:    0.20,
		PrimaryTarget: 0.35,

		CSFromCSS:              0.60,
		CSFromDiversity:        0.20,
		CSFromFalsification:    0.20,
		CSContradictionPenalty: 0.12,
		ContradictionDiscount:  0.85,
		DiversityBonusFloor:    0.75,
		DiversityBonusSpan:     0.25,
		DiversityDomainTarget:  3,

		MLFromTemplate:     0.42,
		MLFromCoordination: 0.28,
		MLFromIntegrity:    0.22,
		MLFromLowDiversity: 0.10,
		RegimeShiftBoost:   0.05,

		CSThreshold: 0.60,
		MLThreshold: 0.60,

		TemplateSaturation:     5,
		CoordinationSaturation: 4,
		MinFingerprintLen:      12,

		Theta:                 0.60,
		Sustain:               2,
		SlowStabilizationDays: 60,
		HighPollutionML:       0.70,

		ZThreshold:     2.2,
		MeanShiftSigma: 1.2,
		BandK:          1.64,

		GuardNegativeDiscount: 0.15,
		GuardGainBound:        1.5,
		GuardEntropyWeight:    0.6,
		GuardDiversityWeight:  0.4,
		GuardDomainTarget:     4,

		AlignmentBonus:   0.15,
		SeverityHighML:   0.80,
		SeverityHighMult: 1.5,
		SeverityMidMult:  1.25,

		TaskPolicies: map[TaskKind]KindPolicy{
			TaskProvenanceTrace: {
				BaseGain: 1.0, Online: true,
				OnlineUSD: 6, OnlineMinutes: 10, ManualUSD: 2, ManualMinutes: 45,
			},
			TaskCoordinationScan: {
				BaseGain: 0.95, Online: true,
				OnlineUSD: 8, OnlineMinutes: 8, ManualUSD: 2, ManualMinutes: 60,
			},
			TaskPrimarySourceHunt: {
				BaseGain: 0.80, Online: false,
				OnlineUSD: 4, OnlineMinutes: 15, ManualUSD: 1, ManualMinutes: 40,
			},
			TaskDomainDiversify: {
				BaseGain: 0.70, Online: true,
				OnlineUSD: 5, OnlineMinutes: 6, ManualUSD: 1, ManualMinutes: 30,
			},
			TaskContradictionProbe: {
				BaseGain: 0.65, Online: false,
				OnlineUSD: 3, OnlineMinutes: 12, ManualUSD: 1, ManualMinutes: 35,
			},
			TaskLivenessRecheck: {
				BaseGain: 0.40, Online: true,
				OnlineUSD: 1, OnlineMinutes: 2, ManualUSD: 0.5, ManualMinutes: 10,
			},
		},
	}
}

// Validate fails fast on caller-supplied configuration that would produce
// nonsense downstream. Runs before any computation begins.
func (c *Config) Validate() error {
	if c.Windows.PISRuns < 1 {
		return fmt.Errorf("windows.pis_runs must be >= 1, got %d", c.Windows.PISRuns)
	}
	if c.Windows.Regime < 2 {
		return fmt.Errorf("windows.regime must be >= 2, got %d", c.Windows.Regime)
	}
	if c.Windows.Variance < 2 {
		return fmt.Errorf("windows.variance must be >= 2, got %d", c.Windows.Variance)
	}
	w := c.Weights
	for name, v := range map[string]float64{
		"weights.cs_threshold":      w.CSThreshold,
		"weights.ml_threshold":      w.MLThreshold,
		"weights.theta":             w.Theta,
		"weights.high_pollution_ml": w.HighPollutionML,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
	}
	if w.Sustain < 1 {
		return fmt.Errorf("weights.sustain must be >= 1, got %d", w.Sustain)
	}
	if w.ZThreshold <= 0 {
		return fmt.Errorf("weights.z_threshold must be > 0, got %v", w.ZThreshold)
	}
	if w.TemplateSaturation < 2 {
		return fmt.Errorf("weights.template_saturation must be >= 2, got %d", w.TemplateSaturation)
	}
	if w.CoordinationSaturation < 2 {
		return fmt.Errorf("weights.coordination_saturation must be >= 2, got %d", w.CoordinationSaturation)
	}
	if w.GuardGainBound <= 0 {
		return fmt.Errorf("weights.guard_gain_bound must be > 0, got %v", w.GuardGainBound)
	}
	if c.Scheduler.BudgetUSD < 0 || c.Scheduler.BudgetMinutes < 0 {
		return fmt.Errorf("scheduler budgets must be >= 0")
	}
	if c.Scheduler.MaxTasks < 1 {
		return fmt.Errorf("scheduler.max_tasks must be >= 1, got %d", c.Scheduler.MaxTasks)
	}
	if c.Scheduler.RidgeLambda < 0 {
		return fmt.Errorf("scheduler.ridge_lambda must be >= 0, got %v", c.Scheduler.RidgeLambda)
	}
	if len(w.TaskPolicies) == 0 {
		return fmt.Errorf("weights.task_policies must not be empty")
	}
	return nil
}
