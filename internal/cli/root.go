// Package cli wires the cobra command tree: compile, truthmap, run,
// stabilize, regime, plan, calibrate, audit, summarize and config.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plumbline/plumbline/internal/logging"
	"github.com/plumbline/plumbline/internal/model"
	"github.com/plumbline/plumbline/internal/pipeline"
)

var (
	cfgFile string
	verbose bool

	ledgerPath   string
	artifactsDir string
	historyPath  string
	noHistory    bool
	noCache      bool
	asOf         string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "plumbline",
	Short: "Plumbline - Evidence-support scoring & pollution diagnostics (non-normative)",
	Long: `Plumbline replays an append-only evidence ledger and scores how well each
claim is supported by recorded anchors.

It does not determine what is true, correct, legal, authentic, or valid.

Plumbline measures evidence diversity, duplication and reuse patterns,
tracks how scores stabilize over time, flags regime shifts in its own
health metrics, and plans the highest-ROI evidence acquisition tasks.

Plumbline is a plumb line, not an oracle.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("plumbline v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.plumbline/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.PersistentFlags().StringVar(&ledgerPath, "ledger", "", "ledger JSONL path (default: ledger.jsonl)")
	rootCmd.PersistentFlags().StringVar(&artifactsDir, "artifacts", "", "artifact output directory (default: artifacts)")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "", "history database path (default: ~/.plumbline/history.db)")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "disable the history index")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable the graph snapshot cache")
	rootCmd.PersistentFlags().StringVar(&asOf, "as-of", "", "compile the graph as of this RFC3339 instant (default: now)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("ledger.path", rootCmd.PersistentFlags().Lookup("ledger"))
	_ = viper.BindPFlag("artifacts.dir", rootCmd.PersistentFlags().Lookup("artifacts"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.plumbline")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match PLUMBLINE_*
	viper.SetEnvPrefix("PLUMBLINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// buildConfig assembles the effective configuration: defaults, then config
// file values, then flags.
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	if viper.ConfigFileUsed() != "" {
		if err := viper.Unmarshal(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: config file not fully applied: %v\n", err)
		}
	}

	if ledgerPath != "" {
		cfg.Ledger.Path = ledgerPath
	}
	if artifactsDir != "" {
		cfg.Artifacts.Dir = artifactsDir
	}
	if historyPath != "" {
		cfg.History.Path = historyPath
	}
	if noHistory {
		cfg.History.Enabled = false
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	cfg.Output.Verbose = verbose

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logging.Init(level, cfg.Output.LogFormat)

	return cfg
}

// newRunner builds a runner from the effective configuration
func newRunner() (*pipeline.Runner, *model.Config, error) {
	cfg := buildConfig()
	r, err := pipeline.NewRunner(cfg)
	if err != nil {
		return nil, nil, err
	}
	return r, cfg, nil
}

// newRunnerFrom builds a runner from an already-adjusted configuration
func newRunnerFrom(cfg *model.Config) (*pipeline.Runner, error) {
	return pipeline.NewRunner(cfg)
}

// effectiveNow resolves the --as-of flag, defaulting to the current instant
func effectiveNow() (time.Time, error) {
	if asOf == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, asOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: %w", asOf, err)
	}
	return t.UTC(), nil
}
