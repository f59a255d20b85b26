package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planCalibration string

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan the highest-ROI evidence acquisition batch",
	Long: `Plan derives acquisition task candidates from scoring deficits, ranks
them by expected gain per dollar-equivalent and greedily selects a batch
under the configured budget, time and count caps.

Selection is greedy by design: every pick is explainable as "highest ROI
that still fit", which an optimal knapsack solution is not.

Example:
  plumbline plan
  plumbline plan --calibration artifacts/calibration_weights-20260801T000000Z.json`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planCalibration, "calibration", "", "fitted calibration weights JSON (optional)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	runner, cfg, err := newRunner()
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	now, err := effectiveNow()
	if err != nil {
		return err
	}

	calibration, err := loadCalibration(planCalibration)
	if err != nil {
		return err
	}

	plan, path, err := runner.PlanTasks(calibration, now)
	if err != nil {
		return err
	}
	if plan.Error != "" {
		fmt.Printf("ROI plan: %s\n", plan.Error)
		return nil
	}

	lane := "manual"
	if cfg.Scheduler.DecodoAvailable {
		lane = "decodo online"
	}
	fmt.Printf("ROI plan: budget $%.2f / %.0f min, %s lane, max %d tasks\n",
		plan.BudgetUSD, plan.BudgetMinutes, lane, plan.MaxTasks)

	fmt.Printf("\nSelected (%d tasks, $%.2f / %.0f min):\n", len(plan.Selected), plan.TotalUSD, plan.TotalMinutes)
	for _, t := range plan.Selected {
		target := t.ClaimID
		if target == "" {
			target = "term:" + t.Term
		}
		fmt.Printf("  %-22s %-32s gain=%.2f roi=%.2f driver=%s\n",
			t.Kind, target, t.ExpectedGain, t.ROI, t.Driver)
	}

	fmt.Printf("\nArtifact: %s\n", path)
	return nil
}
