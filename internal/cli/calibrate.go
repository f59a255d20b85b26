package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/plumbline/plumbline/internal/model"
	"github.com/plumbline/plumbline/internal/pipeline"
)

var (
	calibrateBefore string
	calibrateAfter  string
)

// calibrateCmd represents the calibrate command
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Attribute score deltas to executed tasks and refit gain weights",
	Long: `Calibrate diffs two recorded truth-map snapshots, distributes each
claim's guarded delta across the tasks executed between them (weighted by
evidence edges added) and ridge-fits new expected-gain coefficients for
the scheduler.

Without --before/--after the two most recent snapshots are compared.

Example:
  plumbline calibrate
  plumbline calibrate --before 2026-07-01T00:00:00Z --after 2026-08-01T00:00:00Z`,
	RunE: runCalibrate,
}

// recordOutcomesCmd represents the record-outcomes command
var recordOutcomesCmd = &cobra.Command{
	Use:   "record-outcomes <outcomes.json>",
	Short: "Record executed-task outcomes for later attribution",
	Long: `Record-outcomes ingests a JSON array of executed-task outcomes into the
history index. Each entry names the task kind, the claim and term it
targeted, and how many evidence edges the execution added.

Example:
  plumbline record-outcomes batch-july.json`,
	Args: cobra.ExactArgs(1),
	RunE: runRecordOutcomes,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(recordOutcomesCmd)
	calibrateCmd.Flags().StringVar(&calibrateBefore, "before", "", "earlier snapshot timestamp (RFC3339)")
	calibrateCmd.Flags().StringVar(&calibrateAfter, "after", "", "later snapshot timestamp (RFC3339)")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	runner, _, err := newRunner()
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	now, err := effectiveNow()
	if err != nil {
		return err
	}

	before, after, err := calibrationWindow(runner)
	if err != nil {
		return err
	}

	result, err := runner.Calibrate(before, after, now)
	if err != nil {
		return err
	}

	fmt.Printf("Calibration window: %s -> %s\n",
		before.Format(time.RFC3339), after.Format(time.RFC3339))

	if result.Uplift.Error != "" {
		fmt.Printf("Attribution: %s\n", result.Uplift.Error)
	} else {
		fmt.Printf("\nUplift per task kind (edge-weighted, guard-adjusted):\n")
		for _, row := range result.Uplift.Rows {
			fmt.Printf("  %-22s obs=%-3d credit=%+.3f adjusted=%+.3f\n",
				row.Kind, row.Observations, row.Credit, row.AdjustedCredit)
		}
	}

	if result.Weights.Error != "" {
		fmt.Printf("Ridge fit: %s\n", result.Weights.Error)
	} else {
		fmt.Printf("\nFitted expected-gain weights (lambda=%.2f, %d rows):\n",
			result.Weights.Lambda, result.Weights.Rows)
		for _, w := range result.Weights.Weights {
			fmt.Printf("  %-22s %+.4f\n", w.Kind, w.Weight)
		}
		fmt.Printf("  %-22s %+.4f\n", "(intercept)", result.Weights.Intercept)
	}

	for _, p := range result.ArtifactPaths {
		fmt.Printf("\nArtifact: %s", p)
	}
	fmt.Println()
	return nil
}

func runRecordOutcomes(cmd *cobra.Command, args []string) error {
	runner, _, err := newRunner()
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read outcomes: %w", err)
	}
	var outcomes []model.TaskOutcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return fmt.Errorf("parse outcomes: %w", err)
	}

	if err := runner.RecordOutcomes(outcomes); err != nil {
		return err
	}
	fmt.Printf("Recorded %d task outcomes.\n", len(outcomes))
	return nil
}

// calibrationWindow resolves the snapshot pair: explicit flags, or the two
// most recent recorded snapshots.
func calibrationWindow(runner *pipeline.Runner) (before, after time.Time, err error) {
	if calibrateBefore != "" && calibrateAfter != "" {
		before, err = time.Parse(time.RFC3339, calibrateBefore)
		if err != nil {
			return before, after, fmt.Errorf("invalid --before: %w", err)
		}
		after, err = time.Parse(time.RFC3339, calibrateAfter)
		if err != nil {
			return before, after, fmt.Errorf("invalid --after: %w", err)
		}
		if !after.After(before) {
			return before, after, fmt.Errorf("--after must be later than --before")
		}
		return before, after, nil
	}
	if calibrateBefore != "" || calibrateAfter != "" {
		return before, after, fmt.Errorf("--before and --after must be given together")
	}

	history := runner.History()
	if history == nil {
		return before, after, fmt.Errorf("calibration requires the history index (history.enabled)")
	}
	times, err := history.SnapshotTimes()
	if err != nil {
		return before, after, err
	}
	if len(times) < 2 {
		return before, after, fmt.Errorf("calibration needs at least 2 recorded snapshots, have %d", len(times))
	}
	return times[len(times)-2], times[len(times)-1], nil
}
