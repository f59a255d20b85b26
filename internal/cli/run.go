package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/plumbline/plumbline/internal/model"
)

var (
	runTimeout     time.Duration
	runCalibration string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full analytics loop and persist all artifacts",
	Long: `Run executes every stage in sequence: compile the graph, score the
truth map, persist the snapshot, analyze stabilization, detect regime
shifts and plan the next acquisition batch. Each stage writes its own
immutable artifact as it completes.

Example:
  plumbline run
  plumbline run --calibration artifacts/calibration_weights-20260801T000000Z.json`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "overall run timeout")
	runCmd.Flags().StringVar(&runCalibration, "calibration", "", "fitted calibration weights JSON (optional)")
}

func runRun(cmd *cobra.Command, args []string) error {
	runner, _, err := newRunner()
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	now, err := effectiveNow()
	if err != nil {
		return err
	}

	calibration, err := loadCalibration(runCalibration)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	result, err := runner.Run(ctx, calibration, now)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printTruthMap(result.TruthMap)

	fmt.Printf("\nSystem health: composite=%.3f density=%.2f stability=%.2f\n",
		result.SIG.Composite, result.SIG.ProofDensity, result.SIG.Stability)
	if result.Regime.Error != "" {
		fmt.Printf("Regime detection: %s\n", result.Regime.Error)
	} else if result.Regime.Shift {
		fmt.Printf("REGIME SHIFT detected (%d metric flags, mean shift %.2f sigma)\n",
			len(result.Regime.Flags), result.Regime.MeanShiftSigma)
	}

	if result.Plan.Error != "" {
		fmt.Printf("ROI plan: %s\n", result.Plan.Error)
	} else {
		fmt.Printf("ROI plan: %d tasks selected, $%.2f / %.0f min\n",
			len(result.Plan.Selected), result.Plan.TotalUSD, result.Plan.TotalMinutes)
	}

	fmt.Printf("\nArtifacts:\n")
	for _, p := range result.ArtifactPaths {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

// loadCalibration reads a previously fitted weights artifact, or nil
func loadCalibration(path string) (*model.CalibrationWeights, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration weights: %w", err)
	}
	var cw model.CalibrationWeights
	if err := json.Unmarshal(data, &cw); err != nil {
		return nil, fmt.Errorf("parse calibration weights: %w", err)
	}
	if cw.Error != "" {
		return nil, fmt.Errorf("calibration weights carry an error, refusing to use them: %s", cw.Error)
	}
	return &cw, nil
}
